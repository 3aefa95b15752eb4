package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	FlashInfo    = "info"
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notice carried across a redirect.
type Flash struct {
	Kind    string
	Message string
}

// AddFlash queues a notice for the next rendered page.
func AddFlash(c *gin.Context, kind, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, kind)
	if err := session.Save(); err != nil {
		Logger(c).WithError(err).Warn("save flash")
	}
}

// Flashes drains all queued notices.
func Flashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	var out []Flash
	for _, kind := range []string{FlashError, FlashSuccess, FlashInfo} {
		for _, v := range session.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		_ = session.Save()
	}
	return out
}
