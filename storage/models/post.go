package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"time"
)

type Post struct {
	Id            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	UserId        primitive.ObjectID   `bson:"userId" json:"userId"`
	Caption       string               `bson:"caption,omitempty" json:"caption,omitempty"`
	ImageUrl      string               `bson:"imageUrl" json:"imageUrl"`
	Tags          []string             `bson:"tags" json:"tags"`
	Location      string               `bson:"location,omitempty" json:"location,omitempty"`
	Likes         []primitive.ObjectID `bson:"likes" json:"likes"`
	LikesCount    int64                `bson:"likesCount" json:"likesCount"`
	CommentsCount int64                `bson:"commentsCount" json:"commentsCount"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
}

// PostView is a post as served to clients: the owner summary and whether the
// caller liked it are resolved at read time.
type PostView struct {
	Post
	User    *UserSummary `json:"user,omitempty"`
	IsLiked bool         `json:"is_liked"`
}

// LikeResult describes the state of a post right after a like toggle.
type LikeResult struct {
	Liked      bool
	OwnerId    primitive.ObjectID
	LikesCount int64
}

func (p *Post) IsLikedBy(id primitive.ObjectID) bool {
	return ContainsId(p.Likes, id)
}
