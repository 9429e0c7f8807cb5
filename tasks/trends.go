package tasks

import (
	"context"
	"fmt"
	"trendsetter/storage"
	"trendsetter/storage/models"

	log "github.com/sirupsen/logrus"
)

func DefaultTrends() []models.Trend {
	return []models.Trend{
		{
			Title:           "Y2K Revival",
			Description:     "Early 2000s fashion is making a major comeback...",
			Category:        "Retro",
			PopularityScore: 92,
			ImageUrl:        "https://images.pexels.com/photos/1040945/pexels-photo-1040945.jpeg?auto=compress&cs=tinysrgb&w=600&h=450&fit=crop",
			Tags:            []string{"Y2K", "Retro", "Low-rise", "Metallic", "Chunky sneakers"},
			AiConfidence:    0.94,
		},
		{
			Title:           "Sustainable Fashion",
			Description:     "Eco-conscious fashion choices are trending...",
			Category:        "Sustainable",
			PopularityScore: 88,
			ImageUrl:        "https://images.pexels.com/photos/1375849/pexels-photo-1375849.jpeg?auto=compress&cs=tinysrgb&w=600&h=450&fit=crop",
			Tags:            []string{"Sustainable", "Eco-friendly", "Organic", "Upcycled", "Ethical"},
			AiConfidence:    0.91,
		},
	}
}

// SeedTrends loads the default trends into an empty collection. It does
// nothing when any trend is already stored.
func SeedTrends(ctx context.Context, store storage.Store) error {
	count, err := store.CountTrends(ctx)
	if err != nil {
		return fmt.Errorf("count trends: %w", err)
	}
	if count > 0 {
		log.Infof("Trends already loaded (%d)", count)
		return nil
	}

	trends := DefaultTrends()
	if err := store.InsertTrends(ctx, trends); err != nil {
		return err
	}
	log.Infof("Loaded %d trends", len(trends))
	return nil
}
