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

	"github.com/gin-gonic/gin"

	"gifty/backend/internal/birthdate"
	"gifty/backend/internal/config"
	"gifty/backend/internal/database"
	"gifty/backend/internal/routes"
	"gifty/backend/internal/services"
)

func main() {
	// 設定読み込み
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Fatal: Failed to load config: %v", err)
	}
	log.Printf("[INFO] mode:%s driver:%s locale:%s", cfg.Mode, cfg.Database.Driver, cfg.Locale)
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	clock := birthdate.RealClock{Location: loc}

	translator, err := services.NewTranslator(cfg.Locale)
	if err != nil {
		log.Fatalf("Fatal: Failed to load translations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := database.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		log.Fatalf("Fatal: Failed to open database: %v", err)
	}
	defer store.Close()

	// リマインダーと古いアップロードの削除
	notifier, err := services.NewNotifier(cfg.Reminder)
	if err != nil {
		log.Fatalf("Fatal: Failed to create notifier: %v", err)
	}
	reminders := services.NewReminderService(
		services.NewBirthdayService(store.Birthdays, clock, translator),
		notifier,
		translator,
		services.NewUploadArchive(cfg.Upload.Dir),
		cfg,
		loc,
	)
	if err := reminders.Start(); err != nil {
		log.Fatalf("Fatal: Failed to start scheduler: %v", err)
	}
	defer reminders.Stop()

	r := routes.SetupRouter(cfg, store.Birthdays, store, clock, translator)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
