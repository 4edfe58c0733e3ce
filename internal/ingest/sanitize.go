package ingest

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SanitizeText strips markup and entities that portal exports leave in
// free-text fields and collapses runs of whitespace
func SanitizeText(s string) string {
	if strings.ContainsAny(s, "<&") {
		if text, ok := visibleText(s); ok {
			s = text
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// visibleText extracts text nodes, skipping scripts and styles
func visibleText(fragment string) (string, bool) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return "", false
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return buf.String(), true
}
