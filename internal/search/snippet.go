package search

import "unicode"

// snippetPad is the number of context characters kept on each side of the
// literal match, so a snippet is at most len(query)+2*snippetPad characters
// plus ellipses.
const snippetPad = 20

// Match locates which field of a hit matched and carries the highlighted
// excerpt shown in the palette.
type Match struct {
	Field string `json:"field"`
	Text  string `json:"text,omitempty"`
}

// ExtractMatch walks the hit's fields in declared order and returns a bounded
// excerpt around the first case-insensitive occurrence of the query. The
// window is centered on the match with snippetPad characters of context per
// side; "..." marks truncation at either end. When no field contains the
// query (a fuzzy-only match) the field is reported as "unknown" with no text.
func ExtractMatch(h Hit, query string) Match {
	qr := lowerRunes(query)
	if len(qr) == 0 {
		return Match{Field: "unknown"}
	}

	for _, f := range h.Fields {
		if f.Value == "" {
			continue
		}
		vr := []rune(f.Value)
		idx := indexFold(vr, qr)
		if idx < 0 {
			continue
		}

		start := idx - snippetPad
		if start < 0 {
			start = 0
		}
		end := idx + len(qr) + snippetPad
		if end > len(vr) {
			end = len(vr)
		}

		text := string(vr[start:end])
		if start > 0 {
			text = "..." + text
		}
		if end < len(vr) {
			text += "..."
		}
		return Match{Field: f.Display, Text: text}
	}

	return Match{Field: "unknown"}
}

// indexFold returns the rune index of the first case-insensitive occurrence
// of needle in haystack, or -1. Matching is rune-by-rune so window offsets
// always refer to the original text, even where case folding changes a
// rune's encoded length.
func indexFold(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		j := 0
		for j < len(needle) && unicode.ToLower(haystack[i+j]) == needle[j] {
			j++
		}
		if j == len(needle) {
			return i
		}
	}
	return -1
}

func lowerRunes(s string) []rune {
	rs := []rune(s)
	for i, r := range rs {
		rs[i] = unicode.ToLower(r)
	}
	return rs
}
