package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckerAttendance is one persisted QR check-in.
type CheckerAttendance struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	StudentID   string             `bson:"studentId" json:"studentId"`
	StudentName string             `bson:"studentName" json:"studentName"`
	DutyType    string             `bson:"dutyType" json:"dutyType"`
	Location    string             `bson:"location" json:"location"`
	CheckInTime time.Time          `bson:"checkInTime" json:"checkInTime"`
	Status      string             `bson:"status" json:"status"`
	CheckedBy   string             `bson:"checkedBy,omitempty" json:"checkedBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// SelfAttendance is a selfie check-in with its GPS fix.
type SelfAttendance struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"userId" json:"userId"`
	PhotoURL  string             `bson:"photoUrl" json:"photoUrl"`
	Time      string             `bson:"time" json:"time"`
	Latitude  float64            `bson:"latitude" json:"latitude"`
	Longitude float64            `bson:"longitude" json:"longitude"`
	Address   string             `bson:"address" json:"address"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
