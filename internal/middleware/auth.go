package middleware

import (
	"context"
	"net/http"

	"quill/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey   = "user"
	UnreadCountKey = "unread_count"
	SessionUserKey = "user_id"
)

type UserFinder interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID uint) (int64, error)
}

// LoadUser resolves the signed-in user from the session and stores it on the context.
// A session pointing at a vanished account is cleared.
func LoadUser(users UserFinder, notifications UnreadCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(SessionUserKey).(uint)
		if !ok {
			c.Next()
			return
		}

		user, err := users.Get(c.Request.Context(), userID)
		if err != nil {
			Logger(c).WithError(err).WithField("user_id", userID).Info("dropping stale session")
			session.Delete(SessionUserKey)
			_ = session.Save()
			c.Next()
			return
		}
		c.Set(CheckUserKey, user)

		// 未读通知数
		if count, err := notifications.UnreadCount(c.Request.Context(), user.ID); err == nil {
			c.Set(UnreadCountKey, count)
		}
		c.Next()
	}
}

// AuthRequired sends anonymous visitors to the login page.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			AddFlash(c, FlashError, "Please sign in first.")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
