package parser

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// metaContent returns the content attribute of the first <meta> whose name
// or property equals key. Lookups run as XPath over the parsed tree.
func metaContent(root *html.Node, key string) string {
	if root == nil || key == "" || strings.ContainsAny(key, `'"`) {
		return ""
	}
	expr := "//meta[@name='" + key + "' or @property='" + key + "']"
	node, err := htmlquery.Query(root, expr)
	if err != nil || node == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(node, "content"))
}

// splitKeywords splits a keywords meta value on ASCII and full-width commas.
func splitKeywords(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '，'
	})
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			keywords = append(keywords, f)
		}
	}
	return keywords
}
