package handlers

import (
	"fmt"
	"net/http"

	"quill/internal/middleware"
	"quill/internal/services"

	"github.com/gin-gonic/gin"
)

type DiscussionHandler struct {
	discussion *services.DiscussionService
}

func NewDiscussionHandler(discussion *services.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{discussion: discussion}
}

func (h *DiscussionHandler) CreateComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user := middleware.CurrentUser(c)
	back := articleURL(id)

	comment, err := h.discussion.AddComment(c.Request.Context(), user, id, c.PostForm("body"))
	if err != nil {
		fail(c, err, back)
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Comment posted.")
	c.Redirect(http.StatusFound, fmt.Sprintf("%s#comment-%d", back, comment.ID))
}

func (h *DiscussionHandler) ReplyToComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.reply(c, services.CommentTarget(id))
}

func (h *DiscussionHandler) ReplyToReply(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.reply(c, services.ReplyTarget(id))
}

func (h *DiscussionHandler) reply(c *gin.Context, target services.Target) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	article, err := h.discussion.ArticleFor(ctx, target)
	if err != nil {
		fail(c, err, "/")
		return
	}
	back := articleURL(article.ID)

	reply, err := h.discussion.AddReply(ctx, user, target, c.PostForm("body"))
	if err != nil {
		fail(c, err, back)
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Reply posted.")
	c.Redirect(http.StatusFound, fmt.Sprintf("%s#reply-%d", back, reply.ID))
}

func (h *DiscussionHandler) DeleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.remove(c, services.CommentTarget(id))
}

func (h *DiscussionHandler) DeleteReply(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.remove(c, services.ReplyTarget(id))
}

func (h *DiscussionHandler) remove(c *gin.Context, target services.Target) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)

	article, err := h.discussion.ArticleFor(ctx, target)
	if err != nil {
		fail(c, err, "/")
		return
	}
	back := articleURL(article.ID)

	if target.Kind == services.TargetComment {
		_, err = h.discussion.DeleteComment(ctx, user, target.ID)
	} else {
		_, err = h.discussion.DeleteReply(ctx, user, target.ID)
	}
	if err != nil {
		fail(c, err, back)
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Deleted.")
	c.Redirect(http.StatusFound, back)
}
