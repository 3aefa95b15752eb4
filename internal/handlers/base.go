package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"quill/internal/middleware"
	"quill/internal/services"
	"quill/internal/utils"

	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
		if count, ok := c.Get(middleware.UnreadCountKey); ok {
			obj["UnreadCount"] = int(count.(int64))
		} else {
			obj["UnreadCount"] = 0
		}
	}

	obj["Flashes"] = middleware.Flashes(c)
	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError shows the error page with a message safe for the visitor.
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Title": http.StatusText(code), "Error": message})
}

// msg strips the taxonomy prefix from a domain error, leaving the user facing text.
func msg(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, target := range []error{services.ErrValidation, services.ErrConflict, services.ErrAuth, services.ErrNotFound, services.ErrPermission} {
		if errors.Is(err, target) {
			text = strings.TrimPrefix(text, target.Error()+": ")
			break
		}
	}
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}

// fail maps a service error onto a response. Rejections the visitor can act on are
// flashed and redirected to back; missing resources get a 404 page; everything else is
// logged and answered with a generic 500.
func fail(c *gin.Context, err error, back string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		RenderError(c, http.StatusNotFound, msg(err))
	case services.IsDomainError(err):
		middleware.AddFlash(c, middleware.FlashError, msg(err))
		c.Redirect(http.StatusFound, back)
	default:
		middleware.Logger(c).WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		RenderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

// paramID reads a numeric route parameter and answers 404 when it is malformed.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		RenderError(c, http.StatusNotFound, "Page not found.")
	}
	return id, ok
}

// pageParam reads ?page= and clamps it to [1, totalPages].
func pageParam(c *gin.Context, totalPages int) int {
	page := 1
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}
	return min(page, max(totalPages, 1))
}
