package scoring

import (
	"testing"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
)

func fullIncident() domain.Incident {
	return domain.Incident{
		VictimName:   "John Doe",
		Age:          28,
		IncidentDate: "2024-06-25",
		Location:     "Nairobi CBD",
		County:       "Nairobi",
		CaseType:     domain.CaseTypeAssault,
		Description:  "Officer assaulted a protester during demonstrations.",
	}
}

func TestScoreAllFields(t *testing.T) {
	t.Parallel()

	if got := Score(fullIncident()); got != 100 {
		t.Fatalf("expected 100 for fully populated incident, got %d", got)
	}
}

func TestScoreEmptyIncident(t *testing.T) {
	t.Parallel()

	if got := Score(domain.Incident{}); got != 0 {
		t.Fatalf("expected 0 for empty incident, got %d", got)
	}
}

func TestScoreRequiredFieldsOnly(t *testing.T) {
	t.Parallel()

	inc := domain.Incident{
		CaseType:    domain.CaseTypeDeath,
		Description: "A man died in custody.",
	}
	if got := Score(inc); got != 30 {
		t.Fatalf("expected 30 (case_type + description), got %d", got)
	}
}

func TestScorePartialFields(t *testing.T) {
	t.Parallel()

	inc := domain.Incident{
		VictimName:   "Jane Doe",
		IncidentDate: "2024-01-10",
		Location:     "Kisumu",
		CaseType:     domain.CaseTypeHarassment,
		Description:  "Harassment at a roadblock.",
	}
	// 0.20 + 0.15 + 0.15 + 0.10 + 0.20 = 0.80
	if got := Score(inc); got != 80 {
		t.Fatalf("expected 80, got %d", got)
	}
}

func TestScoreIgnoresWhitespaceOnlyFields(t *testing.T) {
	t.Parallel()

	inc := domain.Incident{
		VictimName:  "   ",
		County:      "\t",
		CaseType:    domain.CaseTypeAssault,
		Description: "Beaten during arrest.",
	}
	if got := Score(inc); got != 30 {
		t.Fatalf("whitespace fields must not score, got %d", got)
	}
}

func TestScoreBounded(t *testing.T) {
	t.Parallel()

	cases := []domain.Incident{
		{},
		fullIncident(),
		{Age: 120, Description: "x"},
		{VictimName: "a", Location: "b"},
	}
	for _, inc := range cases {
		got := Score(inc)
		if got < 0 || got > 100 {
			t.Fatalf("score out of bounds: %d for %+v", got, inc)
		}
	}
}
