package title

import "testing"

func TestCleanStripsCompositeSuffix(t *testing.T) {
	got := Clean("Vikram (2022) Tamil in HD - Einthusan")
	if got != "Vikram" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestCleanMultiLanguageSuffix(t *testing.T) {
	got := Clean("Baahubali (2015) Tamil, Telugu in HD - Einthusan")
	if got != "Baahubali" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestCleanBareYear(t *testing.T) {
	got := Clean("96 (2018)")
	if got != "96" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestCleanSitePrefix(t *testing.T) {
	got := Clean("Einthusan - Kaithi")
	if got != "Kaithi" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestCleanBracketedLanguage(t *testing.T) {
	got := Clean("Drishyam [Malayalam]")
	if got != "Drishyam" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestCleanPipeSuffix(t *testing.T) {
	got := Clean("Soorarai Pottru | Einthusan Watch Online")
	if got != "Soorarai Pottru" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestCleanMarketingSuffixes(t *testing.T) {
	cases := map[string]string{
		"Asuran Watch Full Movie Online Free":  "Asuran",
		"Kaala Online Watch Free HD":           "Kaala",
		"Pariyerum Perumal Free Movies Online": "Pariyerum Perumal",
	}
	for input, want := range cases {
		if got := Clean(input); got != want {
			t.Fatalf("Clean(%q) = %q, want %q", input, got, want)
		}
	}
}

// The composite rules must consume the whole noisy tail before the bare-year
// rule runs; if the order regresses, the language and brand fragments survive
// year removal.
func TestCleanRuleOrdering(t *testing.T) {
	got := Clean("Master (2021) Tamil in HD - Einthusan Watch Online")
	if got != "Master" {
		t.Fatalf("composite suffix not consumed atomically: %q", got)
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := Clean("   "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"Vikram (2022) Tamil in HD - Einthusan",
		"96 (2018)",
		"Drishyam [Malayalam]",
		"Einthusan - Kaithi",
		"Soorarai Pottru | Einthusan",
		"Asuran Watch Full Movie Online Free",
		"Plain Title",
		"",
	}
	for _, input := range inputs {
		once := Clean(input)
		twice := Clean(once)
		if once != twice {
			t.Fatalf("Clean not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}
