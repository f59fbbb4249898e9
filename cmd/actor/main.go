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
	"github.com/kiribu/actor-relay/internal/actor/handler"
	"github.com/kiribu/actor-relay/internal/pkg/config"
	"github.com/kiribu/actor-relay/internal/pkg/logger"
	"github.com/kiribu/actor-relay/internal/pkg/telegram"
	"go.uber.org/zap"
)

func main() {
	cfg := &config.ActorConfig{}
	config.MustLoadConfig(cfg)

	log := logger.MustNew(cfg.HTTP.LogLevel)
	defer log.Sync()

	log.Info("Starting Actor", zap.String("port", cfg.HTTP.Port))

	var defaultBot handler.Sender
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Timeout, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}
		defaultBot = bot
	} else {
		log.Error("TELEGRAM_TOKEN not configured")
	}

	channels := map[string]handler.Sender{}
	if cfg.Pyas2Token != "" {
		bot, err := telegram.NewBot(cfg.Pyas2Token, cfg.Telegram.Timeout, log)
		if err != nil {
			log.Fatal("Failed to create pyas2 bot", zap.Error(err))
		}
		channels[handler.ChannelPyas2] = bot
	}

	h := handler.NewHandler(defaultBot, channels, cfg.Telegram.ChatID, log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler: r,
	}

	log.Info("Actor is running", zap.String("address", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Actor")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}
