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
	"github.com/kiribu/actor-relay/internal/chat/handler"
	"github.com/kiribu/actor-relay/internal/chat/llm"
	"github.com/kiribu/actor-relay/internal/pkg/config"
	"github.com/kiribu/actor-relay/internal/pkg/logger"
	"github.com/kiribu/actor-relay/internal/pkg/telegram"
	"go.uber.org/zap"
)

func main() {
	cfg := &config.ChatConfig{}
	config.MustLoadConfig(cfg)

	log := logger.MustNew(cfg.HTTP.LogLevel)
	defer log.Sync()

	log.Info("Starting Chat", zap.String("port", cfg.HTTP.Port), zap.String("model", cfg.GeminiModel))

	ctx := context.Background()

	var generator handler.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Fatal("Failed to init Gemini", zap.Error(err))
		}
		generator = gemini
	} else {
		log.Error("GEMINI_API_KEY not configured")
	}

	var sender handler.Sender
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Timeout, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}
		sender = bot
	} else {
		log.Error("TELEGRAM_TOKEN not configured")
	}

	h := handler.NewHandler(generator, sender, cfg.AllowedChatID, cfg.GenerateTimeout, log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler: r,
	}

	log.Info("Chat is running", zap.String("address", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Chat")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
}
