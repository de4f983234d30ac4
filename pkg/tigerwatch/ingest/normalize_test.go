package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"fullwidth alnum", "ＡＢＣ１２３", "ABC123"},
		{"halfwidth katakana", "ｶﾀｶﾅ", "カタカナ"},
		{"ideographic space", "林社長　すごい", "林社長 すごい"},
		{"collapse and trim", "  林社長 \t\n すごい  ", "林社長 すごい"},
		{"fullwidth punctuation", "林社長！", "林社長!"},
		{"only whitespace", " 　\t", ""},
		{"information separators", "\x1c林社長\x1dすごい\x1f", "林社長 すごい"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	alphabet := []rune("林社長岩井さん小はのがＡａ1１ｶﾀカタ!！ 　\t\nー")
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringOf(rapid.SampledFrom(alphabet)).Draw(t, "text")
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent: %q -> %q -> %q", s, once, twice)
		}
	})
}
