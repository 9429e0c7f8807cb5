package storage

import (
	"context"
	"sort"
	"sync"
	"time"
	"trendsetter/storage/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryManager is a Store kept in process memory. Every operation runs under
// one lock, so toggles are serialized and follow edges are always mirrored.
type MemoryManager struct {
	mu     sync.Mutex
	users  map[primitive.ObjectID]*models.User
	posts  map[primitive.ObjectID]*models.Post
	trends []models.Trend
}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		users: make(map[primitive.ObjectID]*models.User),
		posts: make(map[primitive.ObjectID]*models.Post),
	}
}

func (m *MemoryManager) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryManager) Close(ctx context.Context) error {
	return nil
}

func (m *MemoryManager) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
	}

	user.Id = primitive.NewObjectID()
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	m.users[user.Id] = copyUser(user)
	return nil
}

func (m *MemoryManager) GetUserById(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (m *MemoryManager) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryManager) GetUserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			summaries[id] = user.Summary()
		}
	}
	return summaries, nil
}

func (m *MemoryManager) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Username != nil {
		for otherId, other := range m.users {
			if otherId != id && other.Username == *update.Username {
				return nil, ErrDuplicateUsername
			}
		}
		user.Username = *update.Username
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.AvatarUrl != nil {
		user.AvatarUrl = *update.AvatarUrl
	}
	user.UpdatedAt = time.Now().UTC()
	return copyUser(user), nil
}

func (m *MemoryManager) IncrementPostsCount(ctx context.Context, id primitive.ObjectID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.PostsCount += delta
	return nil
}

func (m *MemoryManager) ToggleFollow(ctx context.Context, followerId, targetId primitive.ObjectID) (bool, error) {
	if followerId == targetId {
		return false, ErrSelfFollow
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.users[targetId]
	if !ok {
		return false, ErrNotFound
	}
	follower, ok := m.users[followerId]
	if !ok {
		return false, ErrNotFound
	}

	following := !follower.IsFollowing(targetId)
	if following {
		follower.Following = append(follower.Following, targetId)
		target.Followers = append(removeId(target.Followers, followerId), followerId)
	} else {
		follower.Following = removeId(follower.Following, targetId)
		target.Followers = removeId(target.Followers, followerId)
	}
	follower.FollowingCount = int64(len(follower.Following))
	target.FollowersCount = int64(len(target.Followers))
	return following, nil
}

func (m *MemoryManager) CreatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	post.Id = primitive.NewObjectID()
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	post.LikesCount = int64(len(post.Likes))
	m.posts[post.Id] = copyPost(post)
	return nil
}

func (m *MemoryManager) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPost(post), nil
}

func (m *MemoryManager) ListPosts(ctx context.Context, authorId *primitive.ObjectID) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := make([]models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		if authorId != nil && post.UserId != *authorId {
			continue
		}
		posts = append(posts, *copyPost(post))
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].Id.Hex() > posts[j].Id.Hex()
	})
	return posts, nil
}

func (m *MemoryManager) ToggleLike(ctx context.Context, postId, userId primitive.ObjectID) (models.LikeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, ok := m.posts[postId]
	if !ok {
		return models.LikeResult{}, ErrNotFound
	}

	liked := !post.IsLikedBy(userId)
	if liked {
		post.Likes = append(post.Likes, userId)
	} else {
		post.Likes = removeId(post.Likes, userId)
	}
	post.LikesCount = int64(len(post.Likes))

	return models.LikeResult{
		Liked:      liked,
		OwnerId:    post.UserId,
		LikesCount: post.LikesCount,
	}, nil
}

func (m *MemoryManager) CountTrends(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.trends)), nil
}

func (m *MemoryManager) InsertTrends(ctx context.Context, trends []models.Trend) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, trend := range trends {
		if trend.Id.IsZero() {
			trend.Id = primitive.NewObjectID()
		}
		trend.Tags = append([]string(nil), trend.Tags...)
		m.trends = append(m.trends, trend)
	}
	return nil
}

func (m *MemoryManager) ListTrends(ctx context.Context) ([]models.Trend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trends := make([]models.Trend, len(m.trends))
	copy(trends, m.trends)
	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].PopularityScore > trends[j].PopularityScore
	})
	return trends, nil
}

func removeId(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	result := make([]primitive.ObjectID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			result = append(result, candidate)
		}
	}
	return result
}

func copyUser(user *models.User) *models.User {
	clone := *user
	clone.Followers = append([]primitive.ObjectID{}, user.Followers...)
	clone.Following = append([]primitive.ObjectID{}, user.Following...)
	return &clone
}

func copyPost(post *models.Post) *models.Post {
	clone := *post
	clone.Tags = append([]string{}, post.Tags...)
	clone.Likes = append([]primitive.ObjectID{}, post.Likes...)
	return &clone
}
