package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quill/internal/config"
	"quill/internal/db"
	"quill/internal/logging"
	"quill/internal/router"
	"quill/internal/services"
	"quill/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg := config.Load()
	logger := logging.NewLogger(cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	conn, err := db.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("database")
	}
	logger.WithField("driver", cfg.DBDriver).Info("database connected and migrated")

	renderCache, err := utils.NewRenderCache(cfg.RenderCacheLen, cfg.RenderCacheTTL)
	if err != nil {
		logger.WithError(err).Fatal("render cache")
	}

	mail := services.NewMailService(cfg, logger)
	engine := router.New(router.Deps{
		Config:        cfg,
		Log:           logger,
		Users:         services.NewUserService(conn, logger),
		Articles:      services.NewArticleService(conn, logger),
		Discussion:    services.NewDiscussionService(conn, logger, mail),
		Notifications: services.NewNotificationService(conn),
		Captcha:       services.NewCaptchaService(),
		RenderCache:   renderCache,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Quill server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped")
}
