package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Scholar struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ScholarID string             `bson:"id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Year      string             `bson:"year" json:"year"`
	Course    string             `bson:"course" json:"course"`
	Duty      string             `bson:"duty" json:"duty"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
