package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:120;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`       // bcrypt digest
	Avatar    string    `gorm:"default:🌱" json:"avatar"` // emoji avatar
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
