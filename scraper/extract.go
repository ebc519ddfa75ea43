package scraper

import (
	"strings"
	"unicode"
)

// FirstText returns the first text child of any match of selector in
// document order, or nil when nothing matches.
func FirstText(n Node, selector string) *string {
	if texts := n.SelectText(selector); len(texts) > 0 {
		return &texts[0]
	}
	return nil
}

// AllText returns every direct text child of every match, in document order.
func AllText(n Node, selector string) []string {
	return n.SelectText(selector)
}

// FirstAttr returns the first present value of attr across matches of selector.
func FirstAttr(n Node, selector, attr string) *string {
	for _, m := range n.Find(selector) {
		if v, ok := m.Attr(attr); ok {
			return &v
		}
	}
	return nil
}

// ownAttr reads attr from n itself.
func ownAttr(n Node, attr string) *string {
	if v, ok := n.Attr(attr); ok {
		return &v
	}
	return nil
}

// CleanPrice drops the currency sign from a result price, so "$" alone
// becomes "". Prices without a leading "$" lose any leading non-digit
// characters instead, and stay nil when nothing is left.
func CleanPrice(raw *string) *string {
	if raw == nil {
		return nil
	}

	if price, ok := strings.CutPrefix(*raw, "$"); ok {
		return &price
	}

	price := strings.TrimLeftFunc(*raw, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	if price == "" {
		return nil
	}
	return &price
}

// SplitHousing turns the free-text housing blurb ("\n- 2br -\n- 900ft2 -\n")
// into its tokens, trimmed of whitespace and dashes.
func SplitHousing(raw *string) []string {
	tokens := []string{}
	if raw == nil {
		return tokens
	}

	for _, line := range strings.Split(*raw, "\n") {
		token := strings.TrimFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || r == '-'
		})
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// PostIDFromURL takes the last path segment of a listing URL and drops a
// trailing ".html".
func PostIDFromURL(url string) string {
	parts := strings.Split(url, "/")
	return strings.TrimSuffix(parts[len(parts)-1], ".html")
}
