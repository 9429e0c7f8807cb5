package content

import (
	"context"
	"strings"
	"trendsetter/storage"
	"trendsetter/storage/models"
	"trendsetter/utils"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxCaptionLength = 2200

type NewPost struct {
	ImageUrl string
	Caption  string
	Tags     string
	Location string
}

type Service struct {
	store storage.Store
	clock utils.Clock
}

func NewService(store storage.Store, clock utils.Clock) *Service {
	return &Service{
		store: store,
		clock: clock,
	}
}

// CreatePost stores a post owned by userId. The owner's posts counter is only
// advisory: a failure to bump it is logged and the post is still returned.
func (s *Service) CreatePost(ctx context.Context, userId string, input NewPost) (*models.PostView, error) {
	ownerId, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	if input.ImageUrl == "" {
		return nil, utils.NewValidationError("Image is required")
	}
	caption := strings.TrimSpace(input.Caption)
	if len(caption) > maxCaptionLength {
		return nil, utils.NewValidationError("Caption must be at most %d characters", maxCaptionLength)
	}

	post := &models.Post{
		UserId:    ownerId,
		Caption:   caption,
		ImageUrl:  input.ImageUrl,
		Tags:      ParseTags(input.Tags),
		Location:  strings.TrimSpace(input.Location),
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	if err := s.store.IncrementPostsCount(ctx, ownerId, 1); err != nil {
		log.WithField("user_id", userId).Warningf("Error incrementing posts count: %v", err)
	}

	views, err := s.withOwners(ctx, []models.Post{*post}, ownerId)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) GetPost(ctx context.Context, callerId, postId string) (*models.PostView, error) {
	id, err := primitive.ObjectIDFromHex(postId)
	if err != nil {
		return nil, storage.ErrNotFound
	}
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	views, err := s.withOwners(ctx, []models.Post{*post}, parseCaller(callerId))
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListPosts returns every post, newest first.
func (s *Service) ListPosts(ctx context.Context, callerId string) ([]models.PostView, error) {
	posts, err := s.store.ListPosts(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.withOwners(ctx, posts, parseCaller(callerId))
}

// ListUserPosts returns the posts of one owner, newest first. An unknown
// owner simply has no posts.
func (s *Service) ListUserPosts(ctx context.Context, callerId, ownerId string) ([]models.PostView, error) {
	id, err := primitive.ObjectIDFromHex(ownerId)
	if err != nil {
		return []models.PostView{}, nil
	}
	posts, err := s.store.ListPosts(ctx, &id)
	if err != nil {
		return nil, err
	}
	return s.withOwners(ctx, posts, parseCaller(callerId))
}

// ParseTags splits a comma separated list, trimming entries and dropping
// empty ones.
func ParseTags(raw string) []string {
	tags := make([]string, 0)
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (s *Service) withOwners(ctx context.Context, posts []models.Post, callerId primitive.ObjectID) ([]models.PostView, error) {
	seen := make(map[primitive.ObjectID]bool)
	ownerIds := make([]primitive.ObjectID, 0)
	for _, post := range posts {
		if !seen[post.UserId] {
			seen[post.UserId] = true
			ownerIds = append(ownerIds, post.UserId)
		}
	}

	summaries, err := s.store.GetUserSummaries(ctx, ownerIds)
	if err != nil {
		return nil, err
	}

	views := make([]models.PostView, len(posts))
	for i, post := range posts {
		views[i] = models.PostView{
			Post:    post,
			IsLiked: !callerId.IsZero() && post.IsLikedBy(callerId),
		}
		if summary, ok := summaries[post.UserId]; ok {
			views[i].User = &summary
		}
	}
	return views, nil
}

func parseCaller(callerId string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(callerId)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
