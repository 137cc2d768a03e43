package export

import (
	"strings"
	"testing"
)

func TestRenderHTMLIncludesContractFields(t *testing.T) {
	html, err := renderHTML(Contract{
		Name:            "Acme Master Services Agreement",
		AccountName:     "Acme Corp",
		OpportunityName: "Acme Expansion FY26",
		SalesRep:        "Dana Ortiz",
		Status:          "Active",
		ContractValue:   250000,
		EffectiveDate:   "2026-01-15",
		Documents: []DocumentRef{
			{FileName: "acme-msa-v3.docx", Notes: "countersigned"},
		},
	})
	if err != nil {
		t.Fatalf("renderHTML failed: %v", err)
	}

	for _, want := range []string{
		"Acme Master Services Agreement",
		"Acme Corp",
		"Dana Ortiz",
		"$250000.00",
		"2026-01-15",
		"acme-msa-v3.docx",
		"countersigned",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRenderHTMLClosedContract(t *testing.T) {
	html, err := renderHTML(Contract{Name: "Old Deal", Status: "Won", IsClosed: true})
	if err != nil {
		t.Fatalf("renderHTML failed: %v", err)
	}
	if !strings.Contains(html, "(closed)") {
		t.Error("closed contracts should be marked in the summary")
	}
}

func TestRenderHTMLZeroValueShowsDash(t *testing.T) {
	html, err := renderHTML(Contract{Name: "Unpriced"})
	if err != nil {
		t.Fatalf("renderHTML failed: %v", err)
	}
	if !strings.Contains(html, "&mdash;") && !strings.Contains(html, "—") {
		t.Error("zero contract value should render as a dash")
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	if _, err := Export(Contract{Name: "Acme MSA"}, Format("xlsx")); err != ErrUnsupportedFormat {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Acme MSA (v3)", "Acme-MSA-v3"},
		{"///", "contract"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("<b>a b</b>")
	if strings.Contains(got, " ") || strings.Contains(got, "+") {
		t.Errorf("spaces must be %%20-encoded, got %q", got)
	}
	if !strings.Contains(got, "%20") {
		t.Errorf("expected %%20 in %q", got)
	}
	if !strings.Contains(got, "%3C") {
		t.Errorf("expected %%3C for < in %q", got)
	}
}
