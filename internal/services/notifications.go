package services

import (
	"context"
	"fmt"

	"quill/internal/models"

	"gorm.io/gorm"
)

const notificationListLimit = 50

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// createNotification records that actor did something recipient should hear about.
// Acting on your own content produces nothing.
func createNotification(tx *gorm.DB, recipient, actor *models.User, articleID uint, typ models.NotificationType, reason string) error {
	if recipient == nil || recipient.ID == 0 || recipient.ID == actor.ID {
		return nil
	}
	actorID := actor.ID
	n := models.Notification{
		UserID:    recipient.ID,
		ActorID:   &actorID,
		ArticleID: articleID,
		Type:      typ,
		Reason:    reason,
	}
	if err := tx.Omit("User", "Actor").Create(&n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List returns the latest notifications of a user, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	var list []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(notificationListLimit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkRead flags one notification as read. Another user's notification is reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// An already-read row may report no change.
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: notification", ErrNotFound)
		}
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
