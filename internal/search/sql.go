package search

import "strings"

// likePattern wraps the query text for an ILIKE containment predicate,
// escaping the LIKE metacharacters so user input is matched literally.
func likePattern(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
	return "%" + escaped + "%"
}
