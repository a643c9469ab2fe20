// Package scoring computes the confidence score of an extracted incident
// from weighted field completeness.
package scoring

import (
	"math"
	"strings"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
)

// Field weights sum to 1.0; a fully populated incident scores 100.
const (
	weightVictimName   = 0.20
	weightAge          = 0.10
	weightIncidentDate = 0.15
	weightLocation     = 0.15
	weightCounty       = 0.10
	weightCaseType     = 0.10
	weightDescription  = 0.20
)

// Score returns an integer confidence in [0,100]. A field contributes its
// weight when its stringified value is non-empty after trimming.
func Score(inc domain.Incident) int {
	sum := 0.0

	if present(inc.VictimName) {
		sum += weightVictimName
	}
	if inc.Age > 0 {
		sum += weightAge
	}
	if present(inc.IncidentDate) {
		sum += weightIncidentDate
	}
	if present(inc.Location) {
		sum += weightLocation
	}
	if present(inc.County) {
		sum += weightCounty
	}
	if present(string(inc.CaseType)) {
		sum += weightCaseType
	}
	if present(inc.Description) {
		sum += weightDescription
	}

	return int(math.Round(sum * 100))
}

func present(value string) bool {
	return strings.TrimSpace(value) != ""
}
