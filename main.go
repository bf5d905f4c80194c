package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"clinic-scheduler-server/internal/config"
	"clinic-scheduler-server/internal/models"
	"clinic-scheduler-server/internal/notify"
	"clinic-scheduler-server/internal/routes"
	"clinic-scheduler-server/internal/scheduling"
)

func main() {
	// Load environment variables; a missing .env is fine in production
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}

	var notifier notify.Notifier
	if cfg.Mailer.SMTPHost != "" {
		notifier = &notify.SMTPNotifier{
			Host:     cfg.Mailer.SMTPHost,
			Port:     cfg.Mailer.SMTPPort,
			Username: cfg.Mailer.SMTPUsername,
			Password: cfg.Mailer.SMTPPassword,
			From:     cfg.Mailer.DefaultFrom,
		}
	} else {
		notifier = &notify.LogNotifier{Log: log}
	}

	reminders := scheduling.NewReminderScheduler(
		db,
		notifier,
		time.Duration(cfg.Reminder.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Reminder.LookaheadHours)*time.Hour,
		log,
	)

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, notifier, reminders, log)

	// The reminder worker and the HTTP server share one cancellation signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go reminders.Run(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
