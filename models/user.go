package models

import "time"

// User is an account that can log in and author posts.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// All lists every model managed by the schema, parents before children.
func All() []any {
	return []any{&User{}, &Question{}, &Choice{}, &Post{}, &Comment{}}
}
