package model

import "time"

// Language codes supported by the analysis service.
const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

// Risk family names. The family set is closed; the analysis service never
// reports others.
const (
	FamilyCompliance     = "complianceRisk"
	FamilyBusiness       = "businessRisk"
	FamilyImplementation = "implementationRisk"
)

// Families lists the risk families in report order.
var Families = []string{FamilyCompliance, FamilyBusiness, FamilyImplementation}

// FamilyDimensions maps each family to its four fixed dimensions, in
// report order. Twelve dimensions total; the set is closed.
var FamilyDimensions = map[string][]string{
	FamilyCompliance:     {"saudiLaborLaw", "hrsdRequirements", "internationalStandards", "futureRegulations"},
	FamilyBusiness:       {"financialImpact", "operationalRisk", "reputationalRisk", "competitiveRisk"},
	FamilyImplementation: {"resourceRequirements", "changeManagement", "trainingNeeds", "technologyIntegration"},
}

// PolicySource records where the analyzed text came from. Type is "doc"
// (ID set) or "text".
type PolicySource struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// RiskScores holds the per-family dimension scores plus the producer's
// overall score. Overall is supplied by the analysis service and is not
// required to equal any arithmetic function of the family scores.
type RiskScores struct {
	ComplianceRisk     map[string]Score `json:"complianceRisk"`
	BusinessRisk       map[string]Score `json:"businessRisk"`
	ImplementationRisk map[string]Score `json:"implementationRisk"`
	Overall            Score            `json:"overall"`
}

// Family returns the dimension map for the named family, or nil for an
// unknown name.
func (s RiskScores) Family(name string) map[string]Score {
	switch name {
	case FamilyCompliance:
		return s.ComplianceRisk
	case FamilyBusiness:
		return s.BusinessRisk
	case FamilyImplementation:
		return s.ImplementationRisk
	default:
		return nil
	}
}

// ScoreDetail is the free-text rationale for one dimension's score. Not
// every dimension is guaranteed a detail entry.
type ScoreDetail struct {
	Dimension  string  `json:"dimension"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Impact/effort bands for mitigations.
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// Mitigation is a recommended remediation. The producer emits mitigations
// in priority order, but consumers must not rely on that.
type Mitigation struct {
	Strategy string   `json:"strategy"`
	Impact   string   `json:"impact"`
	Effort   string   `json:"effort"`
	ROI      float64  `json:"roi"`
	Actions  []string `json:"actions"`
}

// Citation is a reference snippet with a relevance score backing the
// assessment.
type Citation struct {
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
	Page    *int    `json:"page,omitempty"`
	Tag     string  `json:"tag,omitempty"`
}

// PolicyRiskResult is one finalized assessment. It is created once by the
// analysis service and immutable afterwards; history reads return fresh
// copies rather than mutating a previously returned value.
type PolicyRiskResult struct {
	RequestID    string        `json:"request_id"`
	Lang         string        `json:"lang"`
	CompanyID    string        `json:"company_id"`
	PolicySource PolicySource  `json:"policy_source"`
	Scores       RiskScores    `json:"scores"`
	ScoreDetails []ScoreDetail `json:"score_details"`
	Mitigations  []Mitigation  `json:"mitigations"`
	Citations    []Citation    `json:"citations"`
	CreatedAt    time.Time     `json:"created_at"`
}

// DetailFor returns the rationale entry for a dimension key, or nil when
// the producer supplied none.
func (r *PolicyRiskResult) DetailFor(dimension string) *ScoreDetail {
	for i := range r.ScoreDetails {
		if r.ScoreDetails[i].Dimension == dimension {
			return &r.ScoreDetails[i]
		}
	}
	return nil
}

// Title returns the human-facing name of the analyzed policy.
func (r *PolicyRiskResult) Title() string {
	if r.PolicySource.Title != "" {
		return r.PolicySource.Title
	}
	return "Policy Analysis"
}
