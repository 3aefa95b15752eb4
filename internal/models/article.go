package models

import (
	"time"
)

// Article is a titled document owned by exactly one author.
// UserID is written once on create and never updated.
type Article struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	User          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Title         string    `gorm:"size:200;not null" json:"title"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	FeaturedImage string    `gorm:"size:500" json:"featured_image"`
	Tags          []Tag     `gorm:"many2many:article_tags;constraint:OnDelete:CASCADE;" json:"tags"`
	Published     bool      `gorm:"not null;default:false;index:idx_articles_published_created,priority:1" json:"published"`
	Views         int       `gorm:"default:0" json:"views"`
	CreatedAt     time.Time `gorm:"index:idx_articles_published_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// 非数据库字段，列表页填充
	CommentCount int `gorm:"-" json:"comment_count"`
}
