package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Trend struct {
	Id              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description" json:"description"`
	Category        string             `bson:"category" json:"category"`
	PopularityScore float64            `bson:"popularityScore" json:"popularityScore"`
	ImageUrl        string             `bson:"imageUrl" json:"imageUrl"`
	Tags            []string           `bson:"tags" json:"tags"`
	AiConfidence    float64            `bson:"aiConfidence" json:"aiConfidence"`
}
