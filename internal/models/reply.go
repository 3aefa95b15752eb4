package models

import (
	"time"
)

// Reply is a node in the tree rooted at a Comment.
//
// CommentID is denormalized onto every node so that the owning comment never has to be
// found by walking to the root. It always equals Parent.CommentID when ParentID is set.
type Reply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index" json:"comment_id"`
	Comment   Comment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // nil: direct child of the comment
	Parent    *Reply    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
