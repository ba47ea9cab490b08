// Package routesはroutingを行います。
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/config"
	"gifty/backend/internal/handlers"
	"gifty/backend/internal/repositories"
	"gifty/backend/internal/services"
)

// Pinger はデータベース接続の確認に使います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(cfg *config.Config, repo repositories.BirthdayRepository, db Pinger, clock birthdate.Clock, translator *services.Translator) *gin.Engine {
	r := gin.Default()

	// CORS対策
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	// サービス
	birthdayService := services.NewBirthdayService(repo, clock, translator)
	calendarService := services.NewCalendarService(translator)
	importService := services.NewImportService(repo)
	archive := services.NewUploadArchive(cfg.Upload.Dir)

	// ハンドラー
	birthdayHandler := handlers.NewBirthdayHandler(birthdayService, calendarService)
	importHandler := handlers.NewImportHandler(importService, archive)

	// ルーティング
	r.GET("/api/hello", HelloHandler)
	r.GET("/api/dbcheck", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Database connection failed", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Database connection is healthy"})
	})

	api := r.Group("/api/birthdays")
	{
		api.GET("", birthdayHandler.GetBirthdaysHandler)
		api.POST("", birthdayHandler.CreateBirthdayHandler)
		api.GET("/upcoming", birthdayHandler.GetUpcomingHandler)
		api.GET("/statistics", birthdayHandler.GetStatisticsHandler)
		api.GET("/by-month/:month", birthdayHandler.GetByMonthHandler)
		api.GET("/calendar.ics", birthdayHandler.GetCalendarHandler)
		api.POST("/generate-sample", birthdayHandler.GenerateSampleHandler)
		api.GET("/:id", birthdayHandler.GetBirthdayByIDHandler)
		api.PUT("/:id", birthdayHandler.UpdateBirthdayHandler)
		api.DELETE("/:id", birthdayHandler.DeleteBirthdayHandler)
	}

	uploads := api.Group("")
	uploads.Use(BodyLimit(cfg.Upload.MaxBytes))
	{
		uploads.POST("/upload-csv", importHandler.UploadCSVHandler)
		uploads.POST("/upload-vcard", importHandler.UploadVCardHandler)
	}

	return r
}

func HelloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from Gifty Backend!"})
}
