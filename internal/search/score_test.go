package search

import "testing"

func contractHit(name, account, opportunity, rep string, value float64) Hit {
	return Hit{
		ID: "ct_1",
		Fields: []Field{
			{Name: "name", Display: "Contract Name", Value: name},
			{Name: "account_name", Display: "Account", Value: account},
			{Name: "opportunity_name", Display: "Opportunity", Value: opportunity},
			{Name: "sales_rep", Display: "Sales Rep", Value: rep},
		},
		Primary:   "name",
		Magnitude: value,
	}
}

func TestScoreExactPrimary(t *testing.T) {
	h := contractHit("Acme MSA", "", "", "", 0)
	if got := Score(h, "acme msa"); got != 100 {
		t.Errorf("exact primary match = %d, want 100", got)
	}
}

func TestScorePrefixPrimary(t *testing.T) {
	h := contractHit("Acme MSA 2026", "", "", "", 0)
	if got := Score(h, "acme"); got != 75 {
		t.Errorf("prefix primary match = %d, want 75", got)
	}
}

func TestScoreSubstringPrimary(t *testing.T) {
	h := contractHit("Global Acme MSA", "", "", "", 0)
	if got := Score(h, "acme"); got != 50 {
		t.Errorf("substring primary match = %d, want 50", got)
	}
}

func TestScoreSecondaryOnly(t *testing.T) {
	// A match reached only through a secondary field contributes exactly 30,
	// never a primary-tier score.
	h := contractHit("Renewal 2026", "Acme Corp", "", "", 0)
	if got := Score(h, "acme"); got != 30 {
		t.Errorf("secondary-only match = %d, want 30", got)
	}
}

func TestScoreSecondaryCountedOnce(t *testing.T) {
	h := contractHit("Renewal 2026", "Acme Corp", "Acme Expansion", "Acme Rep", 0)
	if got := Score(h, "acme"); got != 30 {
		t.Errorf("multiple secondary matches = %d, want 30 (no double counting)", got)
	}
}

func TestScorePrimaryPlusSecondary(t *testing.T) {
	h := contractHit("Acme MSA", "Acme Corp", "", "", 0)
	if got := Score(h, "acme"); got != 105 {
		t.Errorf("prefix + secondary = %d, want 105", got)
	}
}

func TestScoreMagnitudeBonus(t *testing.T) {
	cases := []struct {
		value float64
		want  int
	}{
		{0, 100},       // no bonus without a value
		{1, 100},       // log10(1) = 0
		{500, 102},     // floor(log10(500)) = 2
		{250000, 105},  // floor(log10(250000)) = 5
		{1e30, 120},    // capped at 20
	}
	for _, tc := range cases {
		h := contractHit("Acme MSA", "", "", "", tc.value)
		if got := Score(h, "acme msa"); got != tc.want {
			t.Errorf("value %.0f: score = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestScoreNoTextualMatch(t *testing.T) {
	h := contractHit("Globex Renewal", "Globex", "", "", 0)
	if got := Score(h, "acme"); got != 0 {
		t.Errorf("no match anywhere = %d, want 0", got)
	}
	// The magnitude bonus is independent of which field matched; a hit that
	// reached the scorer only via store-side matching still gets it.
	h = contractHit("Globex Renewal", "Globex", "", "", 90000)
	if got := Score(h, "acme"); got != 4 {
		t.Errorf("magnitude-only score = %d, want 4", got)
	}
}

func TestScoreMissingPrimaryField(t *testing.T) {
	h := Hit{
		Fields:  []Field{{Name: "account_name", Display: "Account", Value: "Acme Corp"}},
		Primary: "name",
	}
	if got := Score(h, "acme"); got != 30 {
		t.Errorf("absent primary treated as empty, got %d want 30", got)
	}
}
