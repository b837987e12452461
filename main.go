package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snipfeed/writegate/config"
	"github.com/snipfeed/writegate/internal/actions"
	"github.com/snipfeed/writegate/internal/handler"
	"github.com/snipfeed/writegate/internal/limiter"
	"github.com/snipfeed/writegate/internal/middleware"
	"github.com/snipfeed/writegate/internal/storage/memory"
	"github.com/snipfeed/writegate/internal/storage/redis"
	"github.com/snipfeed/writegate/internal/storage/sqldb"
	"github.com/snipfeed/writegate/internal/vote"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	store := initCounterStore(cfg, logger)
	l := limiter.New(store, logger)

	db := initDatabase(cfg, logger)
	if err := sqldb.Migrate(db); err != nil {
		logger.Fatal("migrate votes", zap.Error(err))
	}

	coordinator := vote.NewCoordinator(sqldb.NewVoteRepository(db), logger)
	svc := actions.NewService(l, coordinator, middleware.ContextSubjectResolver{}, logger)

	h := handler.New(svc, logger)
	rateLimitMW := middleware.NewRateLimit(l, logger)
	wrap := func(fn http.HandlerFunc) http.HandlerFunc {
		return middleware.WithSubject(rateLimitMW.Handler(fn))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/votes", wrap(h.Vote))
	mux.HandleFunc("POST /api/posts", wrap(h.CreatePost))
	mux.HandleFunc("GET /api/status", h.Status)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func initCounterStore(cfg *config.Config, logger *zap.Logger) limiter.CounterStore {
	switch cfg.StorageType {
	case "redis":
		logger.Info("connecting to Redis", zap.String("addr", cfg.RedisAddr))
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		return redis.NewStore(rdb)
	default:
		logger.Info("using in-memory counter store (not for multi-instance deployments)")
		return memory.NewStore()
	}
}

func initDatabase(cfg *config.Config, logger *zap.Logger) *gorm.DB {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	if cfg.DatabaseDSN == "" || cfg.DatabaseDSN == "file::memory:?cache=shared" {
		logger.Info("using in-memory sqlite vote store")
		db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), gormCfg)
	} else {
		logger.Info("connecting to Postgres")
		db, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), gormCfg)
	}
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	return db
}
