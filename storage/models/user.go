package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

type User struct {
	Id             primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Email          string               `bson:"email" json:"email"`
	Password       string               `bson:"password" json:"-"`
	Username       string               `bson:"username" json:"username"`
	FullName       string               `bson:"full_name" json:"full_name"`
	Bio            string               `bson:"bio,omitempty" json:"bio,omitempty"`
	AvatarUrl      string               `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Followers      []primitive.ObjectID `bson:"followers" json:"followers"`
	Following      []primitive.ObjectID `bson:"following" json:"following"`
	FollowersCount int64                `bson:"followers_count" json:"followers_count"`
	FollowingCount int64                `bson:"following_count" json:"following_count"`
	PostsCount     int64                `bson:"posts_count" json:"posts_count"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// PublicUser is a profile as shown to other users.
type PublicUser struct {
	Id             primitive.ObjectID   `json:"_id"`
	Username       string               `json:"username"`
	FullName       string               `json:"full_name"`
	Bio            string               `json:"bio,omitempty"`
	AvatarUrl      string               `json:"avatar_url,omitempty"`
	Followers      []primitive.ObjectID `json:"followers"`
	Following      []primitive.ObjectID `json:"following"`
	FollowersCount int64                `json:"followers_count"`
	FollowingCount int64                `json:"following_count"`
	PostsCount     int64                `json:"posts_count"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// UserSummary is the owner view embedded in posts.
type UserSummary struct {
	Id        primitive.ObjectID `bson:"_id" json:"_id"`
	Username  string             `bson:"username" json:"username"`
	FullName  string             `bson:"full_name" json:"full_name"`
	AvatarUrl string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
}

// ProfileUpdate lists the only user fields mutable through profile editing.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Username  *string
	FullName  *string
	Bio       *string
	AvatarUrl *string
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		Id:        u.Id,
		Username:  u.Username,
		FullName:  u.FullName,
		AvatarUrl: u.AvatarUrl,
	}
}

func (u *User) Public() PublicUser {
	return PublicUser{
		Id:             u.Id,
		Username:       u.Username,
		FullName:       u.FullName,
		Bio:            u.Bio,
		AvatarUrl:      u.AvatarUrl,
		Followers:      u.Followers,
		Following:      u.Following,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		PostsCount:     u.PostsCount,
		CreatedAt:      u.CreatedAt,
	}
}

func (u *User) IsFollowing(id primitive.ObjectID) bool {
	return ContainsId(u.Following, id)
}

func (u *User) IsFollowedBy(id primitive.ObjectID) bool {
	return ContainsId(u.Followers, id)
}

func ContainsId(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
