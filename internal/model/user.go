package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a staff or citizen principal known to the credential subsystem.
type User struct {
	ID           string    `json:"id" gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	FullName     string    `json:"full_name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"size:255"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(40);not null;index"`
	Team         *string   `json:"team,omitempty" gorm:"size:100"`
	Active       bool      `json:"is_active" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Assignable reports whether cases may be routed to this user.
func (u *User) Assignable() bool {
	return u.Active && u.Role.IsStaff()
}

// Actor returns the principal view of u used for authorization.
func (u *User) Actor() Actor {
	return Actor{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// Actor is the authenticated principal performing a request.
type Actor struct {
	UserID   string `json:"id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}
