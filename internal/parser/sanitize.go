package parser

import (
	"github.com/PuerkitoBio/goquery"
)

// sanitize clones body and strips non-article fragments from the clone.
// Elements matching removeSelectors are deleted. For every element matching
// markerSelectors the top-level block of body that contains it is deleted;
// a marker that is a direct child of body is deleted alone. The document
// that owns body is never modified.
func sanitize(body *goquery.Selection, removeSelectors, markerSelectors []string) (string, error) {
	clone := body.Clone()
	root := clone.Get(0)

	for _, s := range removeSelectors {
		clone.Find(s).Remove()
	}

	for _, s := range markerSelectors {
		clone.Find(s).Each(func(_ int, marker *goquery.Selection) {
			block := marker
			for {
				parent := block.Parent()
				if parent.Length() == 0 || parent.Get(0) == root {
					break
				}
				block = parent
			}
			block.Remove()
		})
	}

	return clone.Html()
}
