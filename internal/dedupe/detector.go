// Package dedupe decides whether an extracted incident already exists as a
// published case. Matching is exact string equality only; the Detector sits
// behind a narrow lookup port so a fuzzy matcher can replace it later
// without touching callers.
package dedupe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SK3CHI3/REX-sub000/internal/domain"
	"github.com/SK3CHI3/REX-sub000/internal/ports"
)

// Detector checks candidate incidents against existing cases.
type Detector struct {
	cases  ports.CaseFinder
	logger *slog.Logger
}

// NewDetector wires the case lookup surface.
func NewDetector(cases ports.CaseFinder, logger *slog.Logger) *Detector {
	return &Detector{cases: cases, logger: logger}
}

// IsDuplicate runs the two checks in order: exact article-URL match first,
// then an exact (victim, location, date) triple match. The triple check is
// only evaluated when all three fields are present on the candidate.
func (d *Detector) IsDuplicate(ctx context.Context, inc domain.Incident) (bool, error) {
	exists, err := d.cases.CaseExistsByURL(ctx, inc.ArticleURL)
	if err != nil {
		return false, fmt.Errorf("check url match: %w", err)
	}
	if exists {
		d.debug("duplicate by url", "url", inc.ArticleURL)
		return true, nil
	}

	if inc.VictimName == "" || inc.Location == "" || inc.IncidentDate == "" {
		return false, nil
	}

	exists, err = d.cases.CaseExistsByDetails(ctx, inc.VictimName, inc.Location, inc.IncidentDate)
	if err != nil {
		return false, fmt.Errorf("check detail match: %w", err)
	}
	if exists {
		d.debug("duplicate by details",
			"victim", inc.VictimName,
			"location", inc.Location,
			"date", inc.IncidentDate)
	}
	return exists, nil
}

func (d *Detector) debug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
