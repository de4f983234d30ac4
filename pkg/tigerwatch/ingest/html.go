package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText flattens the HTML flavour of a comment (YouTube's textDisplay)
// into plain text. Entities are decoded, <br> becomes a newline and every
// other tag is dropped while its text content is kept.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return fragment
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed markup; either way keep what was decoded.
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}
