package cache

import (
	"context"
	"encoding/json"
	"time"
	"trendsetter/storage/models"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const UserSummariesRedisKey = "users_summaries"

// UsersCache keeps the owner summaries embedded in post listings.
type UsersCache struct {
	redisClient *redis.Client
	expiration  time.Duration
}

func NewUsersCache(redisConnection *redis.Client, expiration time.Duration) *UsersCache {
	return &UsersCache{
		redisClient: redisConnection,
		expiration:  expiration,
	}
}

// GetSummaries returns the cached summaries among ids. Ids missing from the
// result must be loaded from the store.
func (c *UsersCache) GetSummaries(ctx context.Context, ids []primitive.ObjectID) map[primitive.ObjectID]models.UserSummary {
	result := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return result
	}

	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = id.Hex()
	}
	values, err := c.redisClient.HMGet(ctx, UserSummariesRedisKey, fields...).Result()
	if err != nil {
		log.Warningf("Error reading user summaries from cache: %v", err)
		return result
	}

	for i, value := range values {
		encoded, ok := value.(string)
		if !ok {
			continue
		}
		var summary models.UserSummary
		if err := json.Unmarshal([]byte(encoded), &summary); err != nil {
			continue
		}
		result[ids[i]] = summary
	}
	return result
}

func (c *UsersCache) SetSummaries(ctx context.Context, summaries map[primitive.ObjectID]models.UserSummary) {
	for id, summary := range summaries {
		encoded, err := json.Marshal(summary)
		if err != nil {
			continue
		}
		c.hSetWithExpiration(ctx, UserSummariesRedisKey, id.Hex(), string(encoded))
	}
}

func (c *UsersCache) DeleteUser(ctx context.Context, id primitive.ObjectID) {
	if err := c.redisClient.HDel(ctx, UserSummariesRedisKey, id.Hex()).Err(); err != nil {
		log.Warningf("Error deleting user %s from cache: %v", id.Hex(), err)
	}
}

func (c *UsersCache) hSetWithExpiration(ctx context.Context, redisKey, key, value string) {
	c.redisClient.HSet(ctx, redisKey, key, value)
	c.redisClient.HExpire(ctx, redisKey, c.expiration, key)
}
