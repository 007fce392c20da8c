package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ageniuscoder/guffgaff/backend/internal/auth"
	"github.com/ageniuscoder/guffgaff/backend/internal/chat"
	"github.com/ageniuscoder/guffgaff/backend/internal/config"
	"github.com/ageniuscoder/guffgaff/backend/internal/conversations"
	"github.com/ageniuscoder/guffgaff/backend/internal/delivery"
	"github.com/ageniuscoder/guffgaff/backend/internal/httpx"
	"github.com/ageniuscoder/guffgaff/backend/internal/messages"
	"github.com/ageniuscoder/guffgaff/backend/internal/presence"
	"github.com/ageniuscoder/guffgaff/backend/internal/storage"
	"github.com/ageniuscoder/guffgaff/backend/internal/storage/postgres"
	"github.com/ageniuscoder/guffgaff/backend/internal/storage/sqlite"
	"github.com/ageniuscoder/guffgaff/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	migrate := flag.Bool("migrate", false, "run migrations and exits")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}
	cfg := config.MustLoad()

	if err := run(cfg, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func openDatabase(cfg config.Config) (storage.Database, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.New(cfg.PostgresDsn)
	default:
		return sqlite.New(cfg.SQLITEDsn)
	}
}

func run(cfg config.Config, migrateOnly bool) error {
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.DBDriver, err)
	}
	defer func() {
		logger.Info("Closing database...")
		_ = db.Close()
	}()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if migrateOnly {
		logger.Info("Migration Completed", "driver", db.Dialect().String())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observers []presence.Observer
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, presence mirror will retry on change", "addr", cfg.RedisAddr, "error", err)
		}
		mirror := presence.NewRedisMirror(logger, rdb, cfg.RedisPresenceKey)
		mirrorCtx, stopMirror := context.WithCancel(context.Background())
		go mirror.Run(mirrorCtx)
		defer func() {
			if err := shutdownMirror(stopMirror, mirror, rdb); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
		}()
		observers = append(observers, mirror)
	}

	registry := presence.NewRegistry(logger, observers...)
	router := delivery.NewRouter(logger, registry)
	locks := messages.NewPairLocks()
	msgStore := messages.NewSQLStore(db)
	userStore := users.NewStore(db)
	msgService := messages.NewService(logger, msgStore, locks, router)
	coordinator := conversations.NewCoordinator(logger, msgStore, locks, router)

	engine := newEngine(cfg, logger, routes{
		db:          db,
		registry:    registry,
		users:       userStore,
		messages:    msgService,
		coordinator: coordinator,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", cfg.Addr, "driver", db.Dialect().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("Program stopped cleanly")
	return nil
}

// shutdownMirror stops the presence mirror and closes its client only after
// the mirror cleared the online set.
func shutdownMirror(stop context.CancelFunc, mirror interface{ Done() <-chan struct{} }, client io.Closer) error {
	stop()
	<-mirror.Done()
	return client.Close()
}

type routes struct {
	db          storage.Database
	registry    *presence.Registry
	users       *users.Store
	messages    *messages.Service
	coordinator *conversations.Coordinator
}

func newEngine(cfg config.Config, logger *slog.Logger, rt routes) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpx.Logger(logger), httpx.CORS(cfg.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		if err := rt.db.Ping(c.Request.Context()); err != nil {
			logger.Error("health check failed", "error", err)
			httpx.Err(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		httpx.OK(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	userSvc := users.Service{
		Store:        rt.users,
		Online:       rt.registry,
		Log:          logger,
		JWTSecret:    cfg.JWTSecret,
		JWTTTLMin:    cfg.JWTTTLMin,
		CookieSecure: cfg.CookieSecure,
	}
	users.RegisterPublic(api.Group("/auth"), userSvc)
	chat.RegisterWS(api, rt.registry, logger, chat.Options{
		JWTSecret:      cfg.JWTSecret,
		SendBuffer:     cfg.WSSendBuffer,
		AllowedOrigins: cfg.CORSOrigins,
	})

	protected := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	users.RegisterProtected(protected.Group("/auth"), userSvc)

	msgs := protected.Group("/messages")
	users.RegisterDirectory(msgs, protected, userSvc)
	messages.Register(msgs, rt.messages, rt.users)
	conversations.Register(msgs, rt.coordinator)

	return r
}
