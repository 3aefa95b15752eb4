package handlers

import (
	"net/http"

	"quill/internal/middleware"
	"quill/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	notifications, err := h.notifications.List(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, err, "/")
		return
	}

	Render(c, http.StatusOK, "notification/list.html", gin.H{
		"Title":         "Notifications",
		"Notifications": notifications,
		"Active":        "notifications",
	})
}

// Read marks one notification read and opens the article it points at.
func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)

	if err := h.notifications.MarkRead(c.Request.Context(), user.ID, id); err != nil {
		fail(c, err, "/notifications")
		return
	}

	if next := c.PostForm("next"); next != "" && next[0] == '/' && (len(next) == 1 || next[1] != '/') {
		c.Redirect(http.StatusFound, next)
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}

func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := h.notifications.MarkAllRead(c.Request.Context(), user.ID); err != nil {
		fail(c, err, "/notifications")
		return
	}
	c.Redirect(http.StatusFound, "/notifications")
}
