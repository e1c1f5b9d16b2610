package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the dashboard
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
)

// Actions checked by RequirePermission.
const (
	ActionViewRecords   = "view_records"
	ActionEditRecords   = "edit_records"
	ActionDeleteRecords = "delete_records"
	ActionManageUsers   = "manage_users"
)

// User represents a dashboard account. Bootstrap marks the account that
// claimed the first-admin slot; a unique partial index allows only one.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email            string             `bson:"email" json:"email"`
	DisplayName      string             `bson:"displayName" json:"displayName"`
	PhotoURL         string             `bson:"photoURL" json:"photoURL"`
	PasswordHash     string             `bson:"passwordHash" json:"-"`
	RefreshTokenHash string             `bson:"refreshTokenHash,omitempty" json:"-"`
	RefreshExpiresAt *time.Time         `bson:"refreshExpiresAt,omitempty" json:"-"`
	Role             Role               `bson:"role" json:"role"`
	Bootstrap        bool               `bson:"bootstrap,omitempty" json:"-"`
	IsActive         bool               `bson:"isActive" json:"isActive"`
	LastLogin        *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RevokeRefreshToken drops the stored refresh token so it can no longer be
// exchanged.
func (u *User) RevokeRefreshToken() {
	u.RefreshTokenHash = ""
	u.RefreshExpiresAt = nil
}

// SignInRequest represents a sign-in request
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest represents an account creation request. New accounts get
// the staff role; the first account ever created becomes an admin.
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// UserUpdateRequest is what an admin may change on another account.
type UserUpdateRequest struct {
	Role     *Role `json:"role,omitempty"`
	IsActive *bool `json:"isActive,omitempty"`
}

// RefreshRequest exchanges a refresh token for a new session
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SessionResponse is returned by sign-in, sign-up and refresh
type SessionResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleStaff:
		return action != ActionManageUsers
	case RoleViewer:
		return action == ActionViewRecords
	default:
		return false
	}
}
