package storage

import (
	"context"
	"time"
	"trendsetter/storage/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SummaryCache interface {
	GetSummaries(ctx context.Context, ids []primitive.ObjectID) map[primitive.ObjectID]models.UserSummary
	SetSummaries(ctx context.Context, summaries map[primitive.ObjectID]models.UserSummary)
	DeleteUser(ctx context.Context, id primitive.ObjectID)
}

// DefaultSummaryEvictionDelay bounds how long a listing that started before a
// profile update may take to write its summaries back to the cache.
const DefaultSummaryEvictionDelay = 2 * time.Second

// CachedStore serves owner summaries from a cache in front of another Store.
// Profile updates evict the user twice: immediately, and again after the
// eviction delay, dropping any old summary a concurrent listing cached in
// between.
type CachedStore struct {
	Store
	summaries     SummaryCache
	evictionDelay time.Duration
}

func NewCachedStore(store Store, summaries SummaryCache) *CachedStore {
	return &CachedStore{
		Store:         store,
		summaries:     summaries,
		evictionDelay: DefaultSummaryEvictionDelay,
	}
}

func (s *CachedStore) SetEvictionDelay(delay time.Duration) {
	s.evictionDelay = delay
}

func (s *CachedStore) GetUserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	result := s.summaries.GetSummaries(ctx, ids)

	missing := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := s.Store.GetUserSummaries(ctx, missing)
	if err != nil {
		return nil, err
	}
	s.summaries.SetSummaries(ctx, loaded)
	for id, summary := range loaded {
		result[id] = summary
	}
	return result, nil
}

func (s *CachedStore) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	user, err := s.Store.UpdateUserProfile(ctx, id, update)
	s.summaries.DeleteUser(ctx, id)
	if err == nil {
		time.AfterFunc(s.evictionDelay, func() {
			s.summaries.DeleteUser(context.Background(), id)
		})
	}
	return user, err
}
