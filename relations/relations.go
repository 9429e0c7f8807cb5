package relations

import (
	"context"
	"trendsetter/monitoring"
	"trendsetter/notifications"
	"trendsetter/storage"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrSelfFollow = storage.ErrSelfFollow

// Service flips likes and follows. Every toggle is decided and applied by the
// store in one atomic step, so concurrent toggles never lose an update.
type Service struct {
	store     storage.Store
	publisher notifications.Publisher
	clock     utils.Clock
}

func NewService(store storage.Store, publisher notifications.Publisher, clock utils.Clock) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		clock:     clock,
	}
}

// ToggleLike likes the post when userId has not liked it yet and unlikes it
// otherwise. It returns the new state.
func (s *Service) ToggleLike(ctx context.Context, userId, postId string) (bool, error) {
	userObjectId, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return false, storage.ErrNotFound
	}
	postObjectId, err := primitive.ObjectIDFromHex(postId)
	if err != nil {
		return false, storage.ErrNotFound
	}

	result, err := s.store.ToggleLike(ctx, postObjectId, userObjectId)
	if err != nil {
		return false, err
	}

	eventType := notifications.EventUnlike
	if result.Liked {
		eventType = notifications.EventLike
	}
	monitoring.RelationToggles.WithLabelValues(string(eventType)).Inc()
	log.WithFields(log.Fields{
		"user_id":     userId,
		"post_id":     postId,
		"liked":       result.Liked,
		"likes_count": result.LikesCount,
	}).Debug("Like toggled")

	if result.OwnerId != userObjectId {
		s.publish(notifications.Event{
			Type:        eventType,
			RecipientId: result.OwnerId.Hex(),
			ActorId:     userId,
			PostId:      postId,
		})
	}
	return result.Liked, nil
}

// ToggleFollow makes followerId follow targetId or stops following it. Both
// sides of the relationship change together.
func (s *Service) ToggleFollow(ctx context.Context, followerId, targetId string) (bool, error) {
	followerObjectId, err := primitive.ObjectIDFromHex(followerId)
	if err != nil {
		return false, storage.ErrNotFound
	}
	targetObjectId, err := primitive.ObjectIDFromHex(targetId)
	if err != nil {
		return false, storage.ErrNotFound
	}
	// Hex ids are case insensitive, so compare the parsed values
	if followerObjectId == targetObjectId {
		return false, ErrSelfFollow
	}

	following, err := s.store.ToggleFollow(ctx, followerObjectId, targetObjectId)
	if err != nil {
		return false, err
	}

	eventType := notifications.EventUnfollow
	if following {
		eventType = notifications.EventFollow
	}
	monitoring.RelationToggles.WithLabelValues(string(eventType)).Inc()
	log.WithFields(log.Fields{
		"follower_id": followerId,
		"target_id":   targetId,
		"following":   following,
	}).Debug("Follow toggled")

	s.publish(notifications.Event{
		Type:        eventType,
		RecipientId: targetObjectId.Hex(),
		ActorId:     followerObjectId.Hex(),
	})
	return following, nil
}

func (s *Service) publish(event notifications.Event) {
	if s.publisher == nil {
		return
	}
	event.CreatedAt = s.clock.Now()
	s.publisher.Publish(event)
}
