package epub

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Elements that have no place in an offline reading document.
var strippedSelectors = []string{"script", "style", "iframe", "noscript", "form", "object", "embed", "video", "audio"}

// SanitizeHTML strips interactive and scripted elements from extracted
// article HTML so the result renders cleanly on an e-reader. Returns the
// input unchanged if it cannot be parsed.
func SanitizeHTML(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}

	for _, selector := range strippedSelectors {
		doc.Find(selector).Remove()
	}
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range []string{"onclick", "onload", "onerror", "srcset", "loading"} {
			s.RemoveAttr(attr)
		}
	})

	body, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(body) == "" {
		return rawHTML
	}
	return body
}
