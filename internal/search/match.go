package search

import "strings"

// fuzzyMaxQueryLen bounds the edit-distance fallback to short tokens so a
// long query never triggers a fuzzy scan of long field values.
const fuzzyMaxQueryLen = 5

// Matches reports whether query matches value. Case-insensitive substring
// containment is the primary rule; for queries of at most five characters a
// Levenshtein distance of 1 against the value's len(query)+2 prefix also
// counts, which catches single-character typos in short tokens.
func Matches(value, query string) bool {
	if value == "" || query == "" {
		return false
	}
	v := strings.ToLower(value)
	q := strings.ToLower(query)
	if strings.Contains(v, q) {
		return true
	}

	qr := []rune(q)
	if len(qr) > fuzzyMaxQueryLen {
		return false
	}
	vr := []rune(v)
	window := len(qr) + 2
	if window > len(vr) {
		window = len(vr)
	}
	return levenshtein(qr, vr[:window]) <= 1
}

// levenshtein computes the edit distance between two rune slices using a
// rolling single-row table. Inputs are short (bounded by fuzzyMaxQueryLen+2).
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		prev := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			insert := row[j-1] + 1
			remove := row[j] + 1
			replace := prev
			if a[i-1] != b[j-1] {
				replace++
			}
			prev = row[j]
			row[j] = min3(insert, remove, replace)
		}
	}
	return row[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
