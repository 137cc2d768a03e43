package search

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractMatchShortValueNoEllipsis(t *testing.T) {
	h := Hit{Fields: []Field{{Name: "name", Display: "Contract Name", Value: "Acme MSA"}}}
	m := ExtractMatch(h, "acme")
	if m.Field != "Contract Name" {
		t.Errorf("field = %q, want Contract Name", m.Field)
	}
	if m.Text != "Acme MSA" {
		t.Errorf("text = %q, want full value without ellipsis", m.Text)
	}
}

func TestExtractMatchTruncatesBothSides(t *testing.T) {
	value := strings.Repeat("x", 50) + "indemnification" + strings.Repeat("y", 50)
	h := Hit{Fields: []Field{{Name: "extracted_text", Display: "Document Text", Value: value}}}

	m := ExtractMatch(h, "indemnification")
	if !strings.HasPrefix(m.Text, "...") || !strings.HasSuffix(m.Text, "...") {
		t.Fatalf("expected ellipsis on both sides, got %q", m.Text)
	}

	core := strings.TrimSuffix(strings.TrimPrefix(m.Text, "..."), "...")
	if !strings.Contains(value, core) {
		t.Errorf("snippet body %q is not verbatim in the source field", core)
	}
	if !strings.Contains(core, "indemnification") {
		t.Errorf("snippet %q does not contain the match", core)
	}
	// 20 context chars per side around the literal match.
	if want := len("indemnification") + 2*snippetPad; len(core) != want {
		t.Errorf("snippet window length = %d, want %d", len(core), want)
	}
}

func TestExtractMatchTruncatesTrailingOnly(t *testing.T) {
	value := "Acme " + strings.Repeat("z", 80)
	h := Hit{Fields: []Field{{Name: "notes", Display: "Notes", Value: value}}}

	m := ExtractMatch(h, "acme")
	if strings.HasPrefix(m.Text, "...") {
		t.Errorf("match at position 0 must not get a leading ellipsis: %q", m.Text)
	}
	if !strings.HasSuffix(m.Text, "...") {
		t.Errorf("expected trailing ellipsis: %q", m.Text)
	}
}

func TestExtractMatchFirstFieldInDeclaredOrder(t *testing.T) {
	h := Hit{Fields: []Field{
		{Name: "name", Display: "Contract Name", Value: "Renewal"},
		{Name: "account_name", Display: "Account", Value: "Acme Corp"},
		{Name: "notes", Display: "Notes", Value: "also mentions acme here"},
	}}
	m := ExtractMatch(h, "acme")
	if m.Field != "Account" {
		t.Errorf("expected first matching field in declared order, got %q", m.Field)
	}
}

func TestExtractMatchMultibyteCaseFold(t *testing.T) {
	// Lowercasing can change a rune's encoded length: Ⱥ (2 bytes) folds to
	// ⱥ (3 bytes), İ (2 bytes) to i (1 byte). The window must still land on
	// the match and slice the original text at rune boundaries.
	for _, prefix := range []string{"Ⱥ", "İ"} {
		value := strings.Repeat(prefix, 50) + "QUERY"
		h := Hit{Fields: []Field{{Name: "name", Display: "Contract Name", Value: value}}}

		m := ExtractMatch(h, "query")
		if m.Field != "Contract Name" {
			t.Fatalf("prefix %q: field = %q, want Contract Name", prefix, m.Field)
		}
		if !utf8.ValidString(m.Text) {
			t.Errorf("prefix %q: snippet is not valid UTF-8: %q", prefix, m.Text)
		}
		if !strings.Contains(m.Text, "QUERY") {
			t.Errorf("prefix %q: snippet %q does not contain the match", prefix, m.Text)
		}
		core := strings.TrimPrefix(m.Text, "...")
		if !strings.Contains(value, core) {
			t.Errorf("prefix %q: snippet body %q is not verbatim in the source field", prefix, core)
		}
	}
}

func TestExtractMatchNoField(t *testing.T) {
	h := Hit{Fields: []Field{{Name: "name", Display: "Contract Name", Value: "SO3009"}}}
	m := ExtractMatch(h, "ab")
	if m.Field != "unknown" {
		t.Errorf("field = %q, want unknown for fuzzy-only match", m.Field)
	}
	if m.Text != "" {
		t.Errorf("text = %q, want empty", m.Text)
	}
}
