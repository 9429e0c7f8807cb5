package content

import (
	"context"
	"math"
	"sort"
	"time"
	"trendsetter/storage/models"
)

const topCategoriesLimit = 5

type CategoryStats struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// TrendAnalysis summarizes the stored trends. Nothing here is inferred: it
// is an aggregate over the curated records.
type TrendAnalysis struct {
	TotalTrends       int             `json:"totalTrends"`
	AverageConfidence float64         `json:"averageConfidence"`
	TopCategories     []CategoryStats `json:"topCategories"`
	LastUpdated       time.Time       `json:"lastUpdated"`
}

func (s *Service) ListTrends(ctx context.Context) ([]models.Trend, error) {
	return s.store.ListTrends(ctx)
}

func (s *Service) TrendAnalysis(ctx context.Context) (*TrendAnalysis, error) {
	trends, err := s.store.ListTrends(ctx)
	if err != nil {
		return nil, err
	}
	return AnalyzeTrends(trends, s.clock.Now()), nil
}

// AnalyzeTrends orders categories by trend count, then by average popularity,
// and keeps the first five.
func AnalyzeTrends(trends []models.Trend, now time.Time) *TrendAnalysis {
	analysis := &TrendAnalysis{
		TotalTrends:   len(trends),
		TopCategories: make([]CategoryStats, 0),
		LastUpdated:   now,
	}
	if len(trends) == 0 {
		return analysis
	}

	totalConfidence := 0.0
	scoreSums := make(map[string]float64)
	counts := make(map[string]int)
	for _, trend := range trends {
		totalConfidence += trend.AiConfidence
		counts[trend.Category]++
		scoreSums[trend.Category] += trend.PopularityScore
	}
	analysis.AverageConfidence = round(totalConfidence/float64(len(trends)), 2)

	for category, count := range counts {
		analysis.TopCategories = append(analysis.TopCategories, CategoryStats{
			Category: category,
			Count:    count,
			AvgScore: round(scoreSums[category]/float64(count), 1),
		})
	}
	sort.Slice(analysis.TopCategories, func(i, j int) bool {
		a, b := analysis.TopCategories[i], analysis.TopCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.AvgScore != b.AvgScore {
			return a.AvgScore > b.AvgScore
		}
		return a.Category < b.Category
	})
	if len(analysis.TopCategories) > topCategoriesLimit {
		analysis.TopCategories = analysis.TopCategories[:topCategoriesLimit]
	}
	return analysis
}

func round(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
