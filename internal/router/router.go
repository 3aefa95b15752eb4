package router

import (
	"quill/internal/config"
	"quill/internal/handlers"
	"quill/internal/middleware"
	"quill/internal/services"
	"quill/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Config        *config.Config
	Log           logrus.FieldLogger
	Users         *services.UserService
	Articles      *services.ArticleService
	Discussion    *services.DiscussionService
	Notifications *services.NotificationService
	Captcha       *services.CaptchaService
	RenderCache   *utils.RenderCache
}

// New builds the engine with sessions, templates and every route.
func New(d Deps) *gin.Engine {
	cfg := d.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(d.Log))
	r.Use(middleware.AccessLog())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
	})
	r.Use(sessions.Sessions(cfg.SessionName, store))

	r.HTMLRender = LoadTemplates(cfg.TemplatesDir)
	if cfg.StaticDir != "" {
		r.Static("/static", cfg.StaticDir)
	}

	r.Use(middleware.LoadUser(d.Users, d.Notifications))

	RegisterRoutes(r, d)

	r.NoRoute(func(c *gin.Context) {
		handlers.RenderError(c, 404, "Page not found.")
	})
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Users, d.Captcha, d.Config.CaptchaEnabled)
	articleHandler := handlers.NewArticleHandler(d.Articles, d.Discussion, d.RenderCache, d.Config.PageSize)
	discussionHandler := handlers.NewDiscussionHandler(d.Discussion)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)
	seoHandler := handlers.NewSEOHandler(d.Articles, d.Config.SiteURL)

	// 公共路由 (Public Routes)
	r.GET("/", articleHandler.List)
	r.GET("/articles/:id", articleHandler.Detail)
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)

	r.GET("/register", authHandler.ShowRegister)
	r.POST("/register", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// 受保护路由 (Protected Routes)
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/articles/new", articleHandler.ShowCreate)
		authorized.POST("/articles/new", articleHandler.Create)
		authorized.GET("/my-articles", articleHandler.Mine)
		authorized.GET("/articles/:id/edit", articleHandler.ShowEdit)
		authorized.POST("/articles/:id/edit", articleHandler.Update)
		authorized.POST("/articles/:id/delete", articleHandler.Delete)

		authorized.POST("/articles/:id/comments", discussionHandler.CreateComment)
		authorized.POST("/comments/:id/replies", discussionHandler.ReplyToComment)
		authorized.POST("/replies/:id/replies", discussionHandler.ReplyToReply)
		authorized.POST("/comments/:id/delete", discussionHandler.DeleteComment)
		authorized.POST("/replies/:id/delete", discussionHandler.DeleteReply)

		authorized.GET("/notifications", notificationHandler.List)
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)
	}
}
