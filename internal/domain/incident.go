package domain

// CaseType classifies the kind of police misconduct an incident describes.
// "other" exists only as a UI category; extraction never produces it.
type CaseType string

const (
	CaseTypeDeath          CaseType = "death"
	CaseTypeAssault        CaseType = "assault"
	CaseTypeHarassment     CaseType = "harassment"
	CaseTypeUnlawfulArrest CaseType = "unlawful_arrest"
)

// ValidCaseType reports whether the extraction service returned a case type
// the pipeline accepts.
func ValidCaseType(ct CaseType) bool {
	switch ct {
	case CaseTypeDeath, CaseTypeAssault, CaseTypeHarassment, CaseTypeUnlawfulArrest:
		return true
	}
	return false
}

// Incident is the structured record pulled out of a single news article.
// Only CaseType and Description are required; everything else is best-effort
// and feeds the confidence score.
type Incident struct {
	VictimName    string   `json:"victim_name,omitempty"`
	Age           int      `json:"age,omitempty"`
	IncidentDate  string   `json:"incident_date,omitempty"`
	Location      string   `json:"location,omitempty"`
	County        string   `json:"county,omitempty"`
	CaseType      CaseType `json:"case_type"`
	Description   string   `json:"description"`
	ReportedBy    string   `json:"reported_by,omitempty"`
	JusticeServed string   `json:"justice_served,omitempty"`
	Witnesses     []string `json:"witnesses,omitempty"`
	PoliceStation string   `json:"police_station,omitempty"`
	OfficerNames  []string `json:"officer_names,omitempty"`

	SourceName      string `json:"source_name,omitempty"`
	ArticleURL      string `json:"article_url"`
	ArticleTitle    string `json:"article_title,omitempty"`
	PublishedAt     string `json:"published_at,omitempty"`
	ConfidenceScore int    `json:"confidence_score"`

	// ArticleContent carries the scraped page body (markdown) so the
	// orchestrator can record the candidate article; it is not part of
	// the incident payload itself.
	ArticleContent string `json:"-"`
}

// Valid reports whether the incident carries the fields required for it to
// count as an extraction at all. Invalid incidents are discarded upstream,
// treated as "no incident found", never as an error.
func (i Incident) Valid() bool {
	return ValidCaseType(i.CaseType) && i.Description != ""
}
