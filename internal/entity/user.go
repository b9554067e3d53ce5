package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the account record held in the credential store.
type User struct {
	ID          primitive.ObjectID
	FirstName   string
	LastName    string
	Username    string
	PhoneNumber string
	Email       string // normalized to lowercase
	Password    string // This will be the hashed password
	IsVerified  bool
	Token       string // single current-token slot, empty when signed out
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
