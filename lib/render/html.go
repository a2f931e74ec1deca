package render

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
)

// PlainText strips markup from a feed-provided fragment. Fragments that fail
// to parse are returned with whitespace compacted.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return compactWhitespace(fragment)
	}
	doc, err := htmlquery.Parse(strings.NewReader(fragment))
	if err != nil {
		return compactWhitespace(fragment)
	}
	if body := htmlquery.FindOne(doc, "//body"); body != nil {
		return digForText(body)
	}
	return digForText(doc)
}

func digForText(n *html.Node) string {
	if n == nil {
		return ""
	}
	buf := new(bytes.Buffer)
	dig(n, buf)
	return compactWhitespace(buf.String())
}

func dig(n *html.Node, buf *bytes.Buffer) {
	if n == nil {
		return
	}
	switch {
	case n.Type == html.TextNode:
		buf.WriteString(n.Data)
	case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
		return
	case n.Type == html.ElementNode && (n.Data == "br" || n.Data == "p" || n.Data == "li"):
		buf.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dig(c, buf)
	}
}

func compactWhitespace(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.Trim(s, " ")
	return s
}
