package models

import (
	"fmt"
	"time"
)

// Role is the supply-chain role of a registered user.
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
)

// ParseRole validates a raw role string against the fixed enum.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleFarmer, RoleDistributor, RoleRetailer:
		return Role(raw), nil
	default:
		return "", &ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", raw)}
	}
}

// User is a registered account. PasswordHash never leaves the service
// layer; responses carry PublicUser instead.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Username     string    `bson:"username" json:"username"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Role         Role      `bson:"role" json:"role"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// Public strips credential material for API responses.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is the credential-free view of a User.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterRequest is the POST /api/register payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the POST /api/login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
