package search

import "testing"

func TestMatchesSubstring(t *testing.T) {
	if !Matches("Master Services Agreement", "services") {
		t.Error("expected case-insensitive substring match")
	}
	if !Matches("Acme Corp", "ACME") {
		t.Error("expected uppercase query to match")
	}
	if Matches("Acme Corp", "globex") {
		t.Error("expected no match for unrelated query")
	}
}

func TestMatchesEmptyInputs(t *testing.T) {
	if Matches("", "acme") {
		t.Error("empty value must not match")
	}
	if Matches("acme", "") {
		t.Error("empty query must not match")
	}
	if Matches("", "") {
		t.Error("both empty must not match")
	}
}

func TestMatchesFuzzySingleSubstitution(t *testing.T) {
	// One character substituted within a short query matches via the
	// Levenshtein fallback.
	if !Matches("hallo", "hello") {
		t.Error("expected single-substitution fuzzy match")
	}
	if !Matches("Acmi", "acme") {
		t.Error("expected fuzzy match to be case-insensitive")
	}
}

func TestMatchesFuzzyTwoEditsRejected(t *testing.T) {
	if Matches("haxxo", "hello") {
		t.Error("two substitutions within the checked prefix must not match")
	}
}

func TestMatchesNoFuzzyForLongQueries(t *testing.T) {
	// Six characters is past the fuzzy cutoff, so a one-edit miss stays a
	// miss.
	if Matches("indemnity", "indemnX") {
		t.Error("fuzzy fallback must not apply to queries longer than 5 chars")
	}
}

func TestMatchesWorkOrderNumberScenario(t *testing.T) {
	// "ab" is fuzzy-eligible at 2 chars, but the distance to the 4-char
	// prefix of "SO3009" is far above 1.
	if Matches("SO3009", "ab") {
		t.Error("expected no match for unrelated short query against work-order number")
	}
}

func TestMatchesFuzzyAgainstPrefixWindowOnly(t *testing.T) {
	// The fallback only inspects the first len(query)+2 characters, so a
	// near-miss deep inside a long value must not match.
	if Matches("completely unrelated hallo", "hello") {
		t.Error("fuzzy window must be limited to the value prefix")
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"so30", "ab", 4},
		{"hello", "hallo", 1},
	}
	for _, tc := range cases {
		if got := levenshtein([]rune(tc.a), []rune(tc.b)); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
