package storage

import (
	"context"
	"errors"
	"trendsetter/storage/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrSelfFollow        = errors.New("you can't follow yourself")
)

// Store is the persistence contract shared by the MongoDB manager and the
// in-memory store used for development and tests.
type Store interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	// CreateUser inserts user and fills in its id. Uniqueness of email and
	// username is checked before anything is written.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserById(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
	UpdateUserProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error)
	IncrementPostsCount(ctx context.Context, id primitive.ObjectID, delta int64) error

	// ToggleFollow flips targetId in follower.following and followerId in
	// target.followers as one unit and reports whether the follower now
	// follows the target. Equal ids fail with ErrSelfFollow.
	ToggleFollow(ctx context.Context, followerId, targetId primitive.ObjectID) (bool, error)

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	// ListPosts returns posts newest first, restricted to authorId when given.
	ListPosts(ctx context.Context, authorId *primitive.ObjectID) ([]models.Post, error)
	// ToggleLike flips userId in post.likes in a single atomic step.
	ToggleLike(ctx context.Context, postId, userId primitive.ObjectID) (models.LikeResult, error)

	CountTrends(ctx context.Context) (int64, error)
	InsertTrends(ctx context.Context, trends []models.Trend) error
	// ListTrends returns trends by descending popularity score.
	ListTrends(ctx context.Context) ([]models.Trend, error)
}
