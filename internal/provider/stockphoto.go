package provider

import (
	"net/url"
	"strings"

	"github.com/raine/room-design-studio/internal/design"
)

const stockPhotoBaseURL = "https://source.unsplash.com/featured/"

// StockPhotoKeywords derives search terms for a fallback photo: "interior",
// the style, the room type, up to three longer words from the regeneration
// comment and the color scheme. Empty terms are skipped.
func StockPhotoKeywords(req design.Request) []string {
	terms := []string{"interior"}
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			terms = append(terms, s)
		}
	}

	add(strings.ToLower(req.Style))
	add(req.RoomType)

	n := 0
	for _, w := range strings.Fields(req.RegenerationComment) {
		if n == 3 {
			break
		}
		if len([]rune(w)) > 3 {
			add(strings.ToLower(w))
			n++
		}
	}

	add(strings.ToLower(req.ColorScheme))
	return terms
}

// StockPhotoURL returns a stock photo search URL for req. The URL depends
// only on the request.
func StockPhotoURL(req design.Request) string {
	terms := StockPhotoKeywords(req)
	for i, t := range terms {
		terms[i] = url.QueryEscape(t)
	}
	return stockPhotoBaseURL + "?" + strings.Join(terms, ",")
}
