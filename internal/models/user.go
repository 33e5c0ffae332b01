package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application user stored in the users table.
// Role and ProfileCompleted are mutated only by the onboarding flow.
type User struct {
	ID               string    `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	PasswordHash     string    `db:"password_hash" json:"-"`
	FullName         string    `db:"full_name" json:"full_name"`
	Role             UserRole  `db:"role" json:"role"`
	ProfileCompleted bool      `db:"profile_completed" json:"profile_completed"`
	ProfileImageURL  *string   `db:"profile_image_url" json:"profile_image_url,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// PublicUser is the projection safe to expose on feeds and profiles.
type PublicUser struct {
	ID              string   `db:"id" json:"id"`
	FullName        string   `db:"full_name" json:"full_name"`
	Role            UserRole `db:"role" json:"role"`
	ProfileImageURL *string  `db:"profile_image_url" json:"profile_image_url,omitempty"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
