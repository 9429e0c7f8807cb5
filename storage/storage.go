package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"trendsetter/storage/models"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	usersCollection  = "users"
	postsCollection  = "posts"
	trendsCollection = "trends"

	emailIndexName    = "users_email_unique"
	usernameIndexName = "users_username_unique"
)

// Manager is the MongoDB Store. Follow toggles run in multi-document
// transactions, so the deployment must be a replica set.
type Manager struct {
	dbConnection *mongo.Database
}

func Connect(ctx context.Context, uri string, database string) (*Manager, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	manager := NewManager(client.Database(database))
	if err := manager.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if err := manager.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return manager, nil
}

func NewManager(dbConnection *mongo.Database) *Manager {
	return &Manager{dbConnection: dbConnection}
}

func (m *Manager) EnsureIndexes(ctx context.Context) error {
	_, err := m.dbConnection.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{"email", 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndexName),
		},
		{
			Keys:    bson.D{{"username", 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndexName),
		},
	})
	if err != nil {
		return fmt.Errorf("create users indexes: %w", err)
	}

	_, err = m.dbConnection.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{"createdAt", -1}}},
		{Keys: bson.D{{"userId", 1}, {"createdAt", -1}}},
	})
	if err != nil {
		return fmt.Errorf("create posts indexes: %w", err)
	}

	_, err = m.dbConnection.Collection(trendsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{"popularityScore", -1}},
	})
	if err != nil {
		return fmt.Errorf("create trends indexes: %w", err)
	}
	return nil
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.dbConnection.Client().Ping(ctx, nil)
}

func (m *Manager) Close(ctx context.Context) error {
	return m.dbConnection.Client().Disconnect(ctx)
}

// Drop removes the whole database.
func (m *Manager) Drop(ctx context.Context) error {
	return m.dbConnection.Drop(ctx)
}

func (m *Manager) CreateUser(ctx context.Context, user *models.User) error {
	coll := m.dbConnection.Collection(usersCollection)

	user.Id = primitive.NewObjectID()
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}

	_, err := coll.InsertOne(ctx, user)
	if err != nil {
		user.Id = primitive.NilObjectID
		if dupErr := duplicateKeyError(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *Manager) GetUserById(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findUser(ctx, bson.D{{"_id", id}})
}

func (m *Manager) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.D{{"email", email}})
}

func (m *Manager) GetUserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	coll := m.dbConnection.Collection(usersCollection)
	summaries := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	cursor, err := coll.Find(
		ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.D{{"username", 1}, {"full_name", 1}, {"avatar_url", 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find user summaries: %w", err)
	}

	var results []models.UserSummary
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode user summaries: %w", err)
	}
	for _, summary := range results {
		summaries[summary.Id] = summary
	}
	return summaries, nil
}

func (m *Manager) UpdateUserProfile(ctx context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	coll := m.dbConnection.Collection(usersCollection)

	set := bson.D{{"updatedAt", time.Now().UTC()}}
	if update.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *update.Username})
	}
	if update.FullName != nil {
		set = append(set, bson.E{Key: "full_name", Value: *update.FullName})
	}
	if update.Bio != nil {
		set = append(set, bson.E{Key: "bio", Value: *update.Bio})
	}
	if update.AvatarUrl != nil {
		set = append(set, bson.E{Key: "avatar_url", Value: *update.AvatarUrl})
	}

	var user models.User
	err := coll.FindOneAndUpdate(
		ctx,
		bson.D{{"_id", id}},
		bson.D{{"$set", set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if dupErr := duplicateKeyError(err); dupErr != nil {
			return nil, dupErr
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

func (m *Manager) IncrementPostsCount(ctx context.Context, id primitive.ObjectID, delta int64) error {
	coll := m.dbConnection.Collection(usersCollection)

	result, err := coll.UpdateOne(
		ctx,
		bson.D{{"_id", id}},
		bson.D{{"$inc", bson.D{{"posts_count", delta}}}},
	)
	if err != nil {
		return fmt.Errorf("increment posts count: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Manager) ToggleFollow(ctx context.Context, followerId, targetId primitive.ObjectID) (bool, error) {
	if followerId == targetId {
		return false, ErrSelfFollow
	}
	usersColl := m.dbConnection.Collection(usersCollection)

	result, err := m.executeTransaction(ctx, func(ctx mongo.SessionContext) (interface{}, error) {
		count, err := usersColl.CountDocuments(ctx, bson.D{{"_id", targetId}})
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrNotFound
		}

		// Flip the edge on the follower; the returned document is the
		// source of truth for the new state.
		var follower models.User
		err = usersColl.FindOneAndUpdate(
			ctx,
			bson.D{{"_id", followerId}},
			togglePipeline("following", "following_count", targetId),
			options.FindOneAndUpdate().
				SetReturnDocument(options.After).
				SetProjection(bson.D{{"following", 1}}),
		).Decode(&follower)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		following := follower.IsFollowing(targetId)

		// Mirror it on the target
		_, err = usersColl.UpdateOne(
			ctx,
			bson.D{{"_id", targetId}},
			membershipPipeline("followers", "followers_count", followerId, following),
		)
		if err != nil {
			return nil, err
		}
		return following, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	return result.(bool), nil
}

func (m *Manager) CreatePost(ctx context.Context, post *models.Post) error {
	coll := m.dbConnection.Collection(postsCollection)

	post.Id = primitive.NewObjectID()
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	post.LikesCount = int64(len(post.Likes))

	if _, err := coll.InsertOne(ctx, post); err != nil {
		post.Id = primitive.NilObjectID
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (m *Manager) GetPost(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	coll := m.dbConnection.Collection(postsCollection)

	var post models.Post
	err := coll.FindOne(ctx, bson.D{{"_id", id}}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

func (m *Manager) ListPosts(ctx context.Context, authorId *primitive.ObjectID) ([]models.Post, error) {
	coll := m.dbConnection.Collection(postsCollection)

	filter := bson.D{}
	if authorId != nil {
		filter = bson.D{{"userId", *authorId}}
	}
	cursor, err := coll.Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{"createdAt", -1}, {"_id", -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}

	posts := make([]models.Post, 0)
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

func (m *Manager) ToggleLike(ctx context.Context, postId, userId primitive.ObjectID) (models.LikeResult, error) {
	coll := m.dbConnection.Collection(postsCollection)

	var post models.Post
	err := coll.FindOneAndUpdate(
		ctx,
		bson.D{{"_id", postId}},
		togglePipeline("likes", "likesCount", userId),
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.D{{"userId", 1}, {"likes", 1}, {"likesCount", 1}}),
	).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.LikeResult{}, ErrNotFound
		}
		return models.LikeResult{}, fmt.Errorf("toggle like: %w", err)
	}

	return models.LikeResult{
		Liked:      post.IsLikedBy(userId),
		OwnerId:    post.UserId,
		LikesCount: post.LikesCount,
	}, nil
}

func (m *Manager) CountTrends(ctx context.Context) (int64, error) {
	count, err := m.dbConnection.Collection(trendsCollection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count trends: %w", err)
	}
	return count, nil
}

func (m *Manager) InsertTrends(ctx context.Context, trends []models.Trend) error {
	if len(trends) == 0 {
		return nil
	}
	documents := make([]interface{}, len(trends))
	for i := range trends {
		if trends[i].Id.IsZero() {
			trends[i].Id = primitive.NewObjectID()
		}
		documents[i] = trends[i]
	}
	if _, err := m.dbConnection.Collection(trendsCollection).InsertMany(ctx, documents); err != nil {
		return fmt.Errorf("insert trends: %w", err)
	}
	return nil
}

func (m *Manager) ListTrends(ctx context.Context) ([]models.Trend, error) {
	cursor, err := m.dbConnection.Collection(trendsCollection).Find(
		ctx,
		bson.D{},
		options.Find().SetSort(bson.D{{"popularityScore", -1}, {"_id", 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find trends: %w", err)
	}

	trends := make([]models.Trend, 0)
	if err = cursor.All(ctx, &trends); err != nil {
		return nil, fmt.Errorf("decode trends: %w", err)
	}
	return trends, nil
}

func (m *Manager) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	var user models.User
	err := m.dbConnection.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (m *Manager) executeTransaction(
	ctx context.Context,
	operation func(ctx mongo.SessionContext) (interface{}, error),
) (interface{}, error) {
	client := m.dbConnection.Client()
	wc := writeconcern.Majority()
	txnOptions := options.Transaction().SetWriteConcern(wc)

	session, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, operation, txnOptions)
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Warningf("Error committing transaction: %v", err)
	}
	return result, err
}

// togglePipeline builds an update that removes id from the array field when
// present and appends it otherwise, then stores the array size in countField.
// The decision and the write happen inside one document update.
func togglePipeline(field, countField string, id primitive.ObjectID) mongo.Pipeline {
	current := bson.D{{"$ifNull", bson.A{"$" + field, bson.A{}}}}
	return mongo.Pipeline{
		{{"$set", bson.D{{field, bson.D{{"$cond", bson.D{
			{"if", bson.D{{"$in", bson.A{id, current}}}},
			{"then", without(current, id)},
			{"else", bson.D{{"$concatArrays", bson.A{current, bson.A{id}}}}},
		}}}}}}},
		{{"$set", bson.D{{countField, bson.D{{"$size", "$" + field}}}}}},
	}
}

// membershipPipeline makes the array field contain id exactly when present
// is true, then stores the array size in countField.
func membershipPipeline(field, countField string, id primitive.ObjectID, present bool) mongo.Pipeline {
	current := bson.D{{"$ifNull", bson.A{"$" + field, bson.A{}}}}
	value := without(current, id)
	if present {
		value = bson.D{{"$concatArrays", bson.A{without(current, id), bson.A{id}}}}
	}
	return mongo.Pipeline{
		{{"$set", bson.D{{field, value}}}},
		{{"$set", bson.D{{countField, bson.D{{"$size", "$" + field}}}}}},
	}
}

func without(array bson.D, id primitive.ObjectID) bson.D {
	return bson.D{{"$filter", bson.D{
		{"input", array},
		{"cond", bson.D{{"$ne", bson.A{"$$this", id}}}},
	}}}
}

func duplicateKeyError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	message := err.Error()
	switch {
	case strings.Contains(message, emailIndexName):
		return ErrDuplicateEmail
	case strings.Contains(message, usernameIndexName):
		return ErrDuplicateUsername
	}
	return fmt.Errorf("duplicate key: %w", err)
}
