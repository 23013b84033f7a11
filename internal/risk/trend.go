package risk

import (
	"sort"
	"time"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

// TrendPoint is one day's bucket of assessment activity.
type TrendPoint struct {
	Day     time.Time   `json:"day"`
	Overall model.Score `json:"overall"`
	Count   int         `json:"count"`
}

// Trend buckets assessments by UTC day of creation and averages their
// overall scores, oldest day first. Used by the history trend view.
func Trend(results []model.PolicyRiskResult) []TrendPoint {
	buckets := make(map[time.Time][]model.Score)
	for _, r := range results {
		day := r.CreatedAt.UTC().Truncate(24 * time.Hour)
		buckets[day] = append(buckets[day], r.Scores.Overall)
	}

	points := make([]TrendPoint, 0, len(buckets))
	for day, scores := range buckets {
		points = append(points, TrendPoint{
			Day:     day,
			Overall: model.AverageScores(scores),
			Count:   len(scores),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Day.Before(points[j].Day) })
	return points
}
