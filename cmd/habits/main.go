package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kiribu/actor-relay/internal/habits/repository"
	"github.com/kiribu/actor-relay/internal/habits/service"
	"github.com/kiribu/actor-relay/internal/pkg/config"
	"github.com/kiribu/actor-relay/internal/pkg/logger"
	"github.com/kiribu/actor-relay/internal/pkg/mongodb"
	"github.com/kiribu/actor-relay/internal/pkg/telegram"
	"github.com/kiribu/actor-relay/internal/pkg/trigger"
	"go.uber.org/zap"
)

func main() {
	cfg := &config.HabitsConfig{}
	config.MustLoadConfig(cfg)

	log := logger.MustNew(cfg.HTTP.LogLevel)
	defer log.Sync()

	log.Info("Starting Habits", zap.String("port", cfg.HTTP.Port), zap.String("timezone", cfg.TimeZone))

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatal("Invalid HABITS_TIMEZONE", zap.String("timezone", cfg.TimeZone), zap.Error(err))
	}

	ctx := context.Background()

	var job trigger.Job
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 || cfg.Mongo.URL == "" {
		log.Error("TELEGRAM_TOKEN, CHAT_ID or MONGO_URL not configured")
	} else {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Timeout, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}

		mongoClient, err := mongodb.Connect(ctx, cfg.Mongo.URL, cfg.Mongo.Timeout)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Error("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}()
		log.Info("Connected to MongoDB")

		db := mongoClient.Database(cfg.Mongo.DB)
		store := repository.NewRepository(
			db.Collection(cfg.Mongo.HabitsCollection),
			db.Collection(cfg.Mongo.HabitPunchesCollection),
			db.Collection(cfg.Mongo.HabitAnchorsCollection),
			log,
		)
		job = service.NewService(store, bot, cfg.Telegram.ChatID, loc, log)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	trigger.NewHandler("habits", job, log).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler: r,
	}

	log.Info("Habits is running", zap.String("address", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Habits")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}
