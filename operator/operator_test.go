package operator

import "testing"

func TestResolveSourceOverride(t *testing.T) {
	tbl := Table{
		CountryCode: "27",
		Prefix: map[string]map[string]string{
			"27": {"27761": "N1"},
		},
		Number: map[string]string{
			"N1": "27999",
		},
	}
	got := tbl.ResolveSource("27761234567", "27700000000")
	if got != "27999" {
		t.Errorf("got %q, want 27999", got)
	}
}

func TestResolveSourceLeadingZeroNormalized(t *testing.T) {
	tbl := Table{
		CountryCode: "27",
		Prefix: map[string]map[string]string{
			"27": {"27761": "N1"},
		},
		Number: map[string]string{
			"N1": "27999",
		},
	}
	got := tbl.ResolveSource("0761234567", "27700000000")
	if got != "27999" {
		t.Errorf("got %q, want 27999", got)
	}
}

func TestResolveSourceFallbackUnknownNetwork(t *testing.T) {
	tbl := Table{
		CountryCode: "27",
		Prefix: map[string]map[string]string{
			"27": {"27761": "N1"},
		},
		Number: map[string]string{
			"N1": "27999",
		},
	}
	got := tbl.ResolveSource("27799999999", "27700000000")
	if got != "27700000000" {
		t.Errorf("got %q, want fallback 27700000000", got)
	}
}

func TestResolveSourceFallbackNoPrefixTable(t *testing.T) {
	tbl := Table{}
	got := tbl.ResolveSource("27761234567", "27700000000")
	if got != "27700000000" {
		t.Errorf("got %q, want fallback 27700000000", got)
	}
}

func TestResolveSourceLongestPrefixWins(t *testing.T) {
	tbl := Table{
		CountryCode: "27",
		Prefix: map[string]map[string]string{
			"27": {
				"277":   "wide",
				"27761": "narrow",
			},
		},
		Number: map[string]string{
			"wide":   "27111",
			"narrow": "27222",
		},
	}
	got := tbl.ResolveSource("27761234567", "27700000000")
	if got != "27222" {
		t.Errorf("got %q, want narrow match 27222", got)
	}
}
