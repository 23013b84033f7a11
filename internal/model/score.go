package model

// Score is a confidence-weighted risk magnitude. Both fields are bounded
// to [0,1]; Value is the risk itself and Confidence is the producer's
// certainty in it. The two are not independent probabilities.
type Score struct {
	Value      float64 `json:"value"`
	Confidence float64 `json:"confidence"`
}

// RiskLevel is the qualitative band a score value falls into.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Classification thresholds. These are a public contract shared with the
// presentation layer (badge colors, heat maps) and must not drift.
const (
	lowThreshold    = 0.3
	mediumThreshold = 0.6
)

// ClassifyScore maps a score value to its risk level. Boundaries are
// inclusive to the lower band: 0.3 is low, 0.6 is medium.
func ClassifyScore(value float64) RiskLevel {
	switch {
	case value <= lowThreshold:
		return RiskLow
	case value <= mediumThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// AverageScores returns the arithmetic mean of the values and of the
// confidences, independently. Used for derived family summaries only; the
// producer-supplied overall score is never recomputed from this.
func AverageScores(scores []Score) Score {
	if len(scores) == 0 {
		return Score{}
	}
	var sumV, sumC float64
	for _, s := range scores {
		sumV += s.Value
		sumC += s.Confidence
	}
	n := float64(len(scores))
	return Score{Value: sumV / n, Confidence: sumC / n}
}
