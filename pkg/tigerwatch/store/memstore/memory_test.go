package memstore

import (
	"testing"

	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store"
	"github.com/cognicore/tigerwatch/pkg/tigerwatch/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}
