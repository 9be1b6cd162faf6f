package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var placeholderHints = []string{"placeholder", "blank.gif", "spacer", "default-image", "no-image", "pixel.gif", "1x1"}

// firstText returns the collapsed text of the first element matched by
// any of the comma separated selectors, trying them in order.
func firstText(block *goquery.Selection, selectors string) string {
	for _, sel := range splitSelectors(selectors) {
		var found string
		block.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = collapse(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func firstAttr(block *goquery.Selection, selectors, attr string) string {
	for _, sel := range splitSelectors(selectors) {
		var found string
		block.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = strings.TrimSpace(s.AttrOr(attr, ""))
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	if goquery.NodeName(block) == "a" {
		return strings.TrimSpace(block.AttrOr(attr, ""))
	}
	return ""
}

// dateText prefers a datetime attribute over visible text.
func dateText(block *goquery.Selection, selectors string) string {
	for _, sel := range splitSelectors(selectors) {
		var found string
		block.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if dt := strings.TrimSpace(s.AttrOr("datetime", "")); dt != "" {
				found = dt
			} else {
				found = collapse(s.Text())
			}
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func imageURL(block *goquery.Selection, selectors string) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if src := firstAttr(block, selectors, attr); src != "" && !strings.HasPrefix(src, "data:") {
			return src
		}
	}
	return ""
}

// CleanImage drops data URIs and obvious placeholder images.
func CleanImage(src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	lower := strings.ToLower(src)
	for _, hint := range placeholderHints {
		if strings.Contains(lower, hint) {
			return ""
		}
	}
	return src
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	if strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "javascript:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func splitSelectors(selectors string) []string {
	parts := strings.Split(selectors, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
