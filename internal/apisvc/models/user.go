package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin       = "admin"
	RoleChecker     = "checker"
	RoleFacilitator = "facilitator"

	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// User is a login account. Scholars get one with username = scholar id.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username   string             `bson:"username" json:"username"`
	EmployeeID string             `bson:"employeeId,omitempty" json:"employeeId,omitempty"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password" json:"-"`
	Role       string             `bson:"role" json:"role"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsInactive() bool {
	return strings.EqualFold(u.Status, StatusInactive)
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleChecker, RoleFacilitator:
		return true
	}
	return false
}

// RoleFor picks the explicit role when it is valid, otherwise derives one from
// the duty description. Checker is the default.
func RoleFor(explicit, duty string) string {
	if r := strings.ToLower(strings.TrimSpace(explicit)); ValidRole(r) {
		return r
	}

	d := strings.ToLower(duty)
	switch {
	case strings.Contains(d, RoleFacilitator):
		return RoleFacilitator
	case strings.Contains(d, RoleAdmin):
		return RoleAdmin
	}
	return RoleChecker
}
