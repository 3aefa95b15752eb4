package handlers

import (
	"errors"
	"net/http"

	"quill/internal/middleware"
	"quill/internal/services"
	"quill/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const captchaSessionKey = "captcha_answer"

type AuthHandler struct {
	users          *services.UserService
	captchaService *services.CaptchaService
	captchaEnabled bool
}

func NewAuthHandler(users *services.UserService, captcha *services.CaptchaService, captchaEnabled bool) *AuthHandler {
	return &AuthHandler{
		users:          users,
		captchaService: captcha,
		captchaEnabled: captchaEnabled,
	}
}

// renderRegister shows the sign-up form with a fresh captcha question.
func (h *AuthHandler) renderRegister(c *gin.Context, code int, data gin.H) {
	if data == nil {
		data = gin.H{"Username": "", "Email": ""}
	}
	data["Title"] = "Sign up"
	if h.captchaEnabled {
		question, answer := h.captchaService.GenerateMathProblem()
		session := sessions.Default(c)
		session.Set(captchaSessionKey, answer)
		if err := session.Save(); err != nil {
			middleware.Logger(c).WithError(err).Warn("save captcha")
		}
		data["Captcha"] = question
	}
	Render(c, code, "auth/register.html", data)
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	h.renderRegister(c, http.StatusOK, nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	form := gin.H{"Username": username, "Email": email}

	if h.captchaEnabled {
		session := sessions.Default(c)
		expected, ok := session.Get(captchaSessionKey).(int)
		session.Delete(captchaSessionKey)
		_ = session.Save()
		if !ok || utils.StringToInt(c.PostForm("captcha")) != expected {
			form["Error"] = "The answer to the captcha is wrong."
			h.renderRegister(c, http.StatusBadRequest, form)
			return
		}
	}

	_, err := h.users.Register(c.Request.Context(), username, email, password)
	switch {
	case errors.Is(err, services.ErrValidation):
		form["Error"] = msg(err)
		h.renderRegister(c, http.StatusBadRequest, form)
		return
	case errors.Is(err, services.ErrConflict):
		form["Error"] = msg(err)
		h.renderRegister(c, http.StatusConflict, form)
		return
	case err != nil:
		fail(c, err, "/register")
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Registration complete. Please sign in.")
	c.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Sign in", "Email": ""})
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	user, err := h.users.Authenticate(c.Request.Context(), email, password)
	if errors.Is(err, services.ErrAuth) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Title": "Sign in", "Error": msg(err), "Email": email})
		return
	}
	if err != nil {
		fail(c, err, "/login")
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	session.AddFlash("Signed in.", middleware.FlashSuccess)
	if err := session.Save(); err != nil {
		fail(c, err, "/login")
		return
	}
	middleware.Logger(c).WithField("user_id", user.ID).Info("user signed in")
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.AddFlash("Signed out.", middleware.FlashInfo)
	_ = session.Save()
	c.Redirect(http.StatusFound, "/")
}
