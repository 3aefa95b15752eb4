package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentArticle NotificationType = "comment_article"
	NotificationTypeReplyComment   NotificationType = "reply_comment"
	NotificationTypeReplyReply     NotificationType = "reply_reply"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID   *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor     User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	ArticleID uint             `gorm:"not null;index" json:"article_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Reason    string           `gorm:"type:text" json:"reason"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
