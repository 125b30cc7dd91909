package normalizer

import "testing"

func TestMapColumns_ReferenceHeader(t *testing.T) {
	header := []string{
		"scheme_name", "slug", "details", "benefits", "eligibility",
		"application", "documents", "level", "schemeCategory", "tags",
	}

	mapping := MapColumns(header)

	want := map[string]int{
		FieldSchemeName:  0,
		FieldSlug:        1,
		FieldDetails:     2,
		FieldBenefits:    3,
		FieldEligibility: 4,
		FieldApplication: 5,
		FieldDocuments:   6,
		FieldLevel:       7,
		FieldCategory:    8,
		FieldTags:        9,
	}
	if len(mapping) != len(want) {
		t.Fatalf("mapped %d fields, expected %d: %v", len(mapping), len(want), mapping)
	}
	for field, col := range want {
		if mapping[field] != col {
			t.Errorf("%s -> column %d, expected %d", field, mapping[field], col)
		}
	}
}

func TestMapColumns_LevelClaimsStateCentralBeforeState(t *testing.T) {
	mapping := MapColumns([]string{"Scheme Name", "STATE_CENTRAL", "State", "Details"})

	if got := mapping[FieldLevel]; got != 1 {
		t.Errorf("level -> column %d, expected 1 (state_central)", got)
	}
	if got := mapping[FieldState]; got != 2 {
		t.Errorf("state -> column %d, expected 2", got)
	}
	if got := mapping[FieldSchemeName]; got != 0 {
		t.Errorf("scheme_name -> column %d, expected 0", got)
	}
	if got := mapping[FieldDetails]; got != 3 {
		t.Errorf("details -> column %d, expected 3", got)
	}
}

func TestMapColumns_FirstMatchWins(t *testing.T) {
	// Two plausible description columns; the earlier one is claimed and the
	// later one stays unmapped rather than overwriting.
	mapping := MapColumns([]string{"description", "about"})

	if got := mapping[FieldDetails]; got != 0 {
		t.Errorf("details -> column %d, expected 0", got)
	}
	if len(mapping) != 1 {
		t.Errorf("mapping = %v, expected only details", mapping)
	}
}

func TestMapColumns_CaseInsensitiveSubstring(t *testing.T) {
	mapping := MapColumns([]string{"  Scheme NAME  ", "Official URL of Scheme"})

	if got, ok := mapping[FieldSchemeName]; !ok || got != 0 {
		t.Errorf("scheme_name -> (%d, %v), expected column 0", got, ok)
	}
	if got, ok := mapping[FieldOfficialURL]; !ok || got != 1 {
		t.Errorf("official_url -> (%d, %v), expected column 1", got, ok)
	}
}

func TestMapColumns_UnrecognizedHeader(t *testing.T) {
	if mapping := MapColumns([]string{"foo", "bar", "baz"}); len(mapping) != 0 {
		t.Errorf("mapping = %v, expected empty", mapping)
	}
}
