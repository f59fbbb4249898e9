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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiribu/actor-relay/internal/dispatcher/forwarder"
	"github.com/kiribu/actor-relay/internal/dispatcher/handler"
	"github.com/kiribu/actor-relay/internal/dispatcher/repository"
	"github.com/kiribu/actor-relay/internal/dispatcher/router"
	"github.com/kiribu/actor-relay/internal/pkg/config"
	"github.com/kiribu/actor-relay/internal/pkg/identity"
	"github.com/kiribu/actor-relay/internal/pkg/logger"
	"github.com/kiribu/actor-relay/internal/pkg/mongodb"
	"github.com/kiribu/actor-relay/internal/pkg/telegram"
	timerepo "github.com/kiribu/actor-relay/internal/timecat/repository"
	timesvc "github.com/kiribu/actor-relay/internal/timecat/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	cfg := &config.DispatcherConfig{}
	config.MustLoadConfig(cfg)

	log := logger.MustNew(cfg.HTTP.LogLevel)
	defer log.Sync()

	log.Info("Starting Dispatcher",
		zap.String("port", cfg.HTTP.Port),
		zap.String("hooks_backend", cfg.HooksBackend),
	)

	ctx := context.Background()

	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	var fwd *forwarder.Forwarder
	var h *handler.Handler

	if cfg.Telegram.Token == "" || cfg.Mongo.URL == "" {
		log.Error("TELEGRAM_TOKEN or MONGO_URL not configured, every update will be rejected")
		h = handler.NewHandler(nil, log)
	} else {
		bot, err := telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.Timeout, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}

		mongoClient, err := mongodb.Connect(ctx, cfg.Mongo.URL, cfg.Mongo.Timeout)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		cleanups = append(cleanups, func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Error("Failed to disconnect from MongoDB", zap.Error(err))
			}
		})
		log.Info("Connected to MongoDB")
		db := mongoClient.Database(cfg.Mongo.DB)

		hooks, closeHooks, err := newHookSource(ctx, cfg, db.Collection(cfg.Mongo.HooksCollection), log)
		if err != nil {
			log.Fatal("Failed to init routing table", zap.Error(err))
		}
		cleanups = append(cleanups, closeHooks)

		var issuer identity.Issuer = identity.NewMetadataIssuer(cfg.Identity.MetadataURL, cfg.Identity.Timeout, log)
		if cfg.Redis.Addr != "" {
			cache, err := identity.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Timeout, log)
			if err != nil {
				log.Fatal("Failed to connect to Redis", zap.Error(err))
			}
			cleanups = append(cleanups, func() { _ = cache.Close() })
			issuer = identity.NewCachedIssuer(issuer, cache, cfg.Redis.TokenTTL, log)
			log.Info("Identity tokens cached in Redis", zap.Duration("ttl", cfg.Redis.TokenTTL))
		}

		completer := timesvc.NewService(timerepo.NewRepository(db.Collection(cfg.Mongo.TimeCollection), log), bot, log)
		fwd = forwarder.NewForwarder(issuer, cfg.ForwardTimeout, log)

		var opts []router.Option
		if cfg.Telegram.ChatID != 0 {
			opts = append(opts, router.WithAllowedChat(cfg.Telegram.ChatID))
		}
		h = handler.NewHandler(router.NewRouter(hooks, completer, fwd, bot, log, opts...), log)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler: r,
	}

	log.Info("Dispatcher is running", zap.String("address", srv.Addr))

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Dispatcher")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if fwd != nil {
		if err := fwd.Wait(shutdownCtx); err != nil {
			log.Error("Pending forwards abandoned", zap.Error(err))
		}
	}
}

func newHookSource(ctx context.Context, cfg *config.DispatcherConfig, coll *mongo.Collection, log *zap.Logger) (router.HookSource, func(), error) {
	switch cfg.HooksBackend {
	case config.HooksBackendMongo:
		return repository.NewMongoRepository(coll, log), func() {}, nil
	case config.HooksBackendPostgres:
		if err := repository.Migrate(cfg.Postgres.DSN()); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		log.Info("Connected to PostgreSQL")
		return repository.NewPostgresRepository(pool, log), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown hooks backend %q", cfg.HooksBackend)
	}
}
