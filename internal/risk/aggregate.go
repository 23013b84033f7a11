// Package risk derives presentation-level aggregates from finalized
// assessments. Derived values never overwrite producer-supplied scores.
package risk

import (
	"sort"

	"github.com/aqlhr/policy-intel-cli/internal/i18n"
	"github.com/aqlhr/policy-intel-cli/internal/model"
)

// FamilyScore averages the dimension scores within one named family, in
// the fixed dimension order. Missing dimensions are skipped rather than
// counted as zero. Returns false for an unknown family name.
func FamilyScore(result *model.PolicyRiskResult, family string) (model.Score, bool) {
	dims, ok := model.FamilyDimensions[family]
	if !ok {
		return model.Score{}, false
	}
	scores := result.Scores.Family(family)

	collected := make([]model.Score, 0, len(dims))
	for _, dim := range dims {
		if s, ok := scores[dim]; ok {
			collected = append(collected, s)
		}
	}
	return model.AverageScores(collected), true
}

// OverallDisplay returns the producer's headline score verbatim. It is
// never recomputed from the family scores.
func OverallDisplay(result *model.PolicyRiskResult) model.Score {
	return result.Scores.Overall
}

// Level classifies a score and returns its localized label.
func Level(s model.Score, lang string) string {
	return i18n.LevelLabel(model.ClassifyScore(s.Value), lang)
}

var impactRank = map[string]int{
	model.ImpactHigh:   0,
	model.ImpactMedium: 1,
	model.ImpactLow:    2,
}

// SortMitigations returns a copy ordered by impact (high first), then ROI
// descending. Producer order is the default everywhere in the core; this
// re-sort exists for display surfaces that ask for it and never mutates
// the result.
func SortMitigations(mitigations []model.Mitigation) []model.Mitigation {
	sorted := make([]model.Mitigation, len(mitigations))
	copy(sorted, mitigations)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := impactRank[sorted[i].Impact], impactRank[sorted[j].Impact]
		if ri != rj {
			return ri < rj
		}
		return sorted[i].ROI > sorted[j].ROI
	})
	return sorted
}
