package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a community member who pins trees.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	Username     string `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"` // "-" means don't include in JSON responses
	DisplayName  string `json:"display_name"`
	Bio          string `json:"bio"`
	Verified     bool   `json:"verified" gorm:"not null;default:false"`

	// deleting a user deletes their trees and uploads
	Trees   []Tree   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Uploads []Upload `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerSummary is the slim user shape embedded in tree responses.
type OwnerSummary struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

func (u *User) Summary() OwnerSummary {
	return OwnerSummary{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// TableName explicitly sets the table name for GORM.
func (User) TableName() string {
	return "users"
}
