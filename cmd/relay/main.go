package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/grpc/reflection"

	grpcctx "github.com/dtroode/cipherroom/internal/api/grpc/context"
	"github.com/dtroode/cipherroom/internal/api/grpc/router"
	grpcServer "github.com/dtroode/cipherroom/internal/api/grpc/server"
	"github.com/dtroode/cipherroom/internal/classifier"
	"github.com/dtroode/cipherroom/internal/config"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/repository/postgres"
	"github.com/dtroode/cipherroom/internal/server"
	storage "github.com/dtroode/cipherroom/internal/storage/minio"
	"github.com/dtroode/cipherroom/internal/store/memory"
	redisstore "github.com/dtroode/cipherroom/internal/store/redis"
	"github.com/dtroode/cipherroom/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

// backend is a realtime document store that also keeps invite inboxes.
type backend interface {
	model.DocumentStore
	model.InviteStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	store, closeStore, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize store", "backend", cfg.StoreBackend, "error", err)
	}
	defer closeStore()

	seedClassifierModel(ctx, cfg, logger)

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)
	r := router.New(store, store, tokenManager, grpcctx.NewManager(), logger)
	s := r.Register()
	reflection.Register(s)

	servers := []model.Server{
		grpcServer.NewGRPCServer(s, fmt.Sprintf(":%s", cfg.GRPC.Port)),
		server.NewMetricsServer(cfg.MetricsAddr),
	}
	layers := []model.SecurityLayer{
		server.NewSecurityLayer(cfg.GRPC),
		server.NewPlainListener(),
	}

	var wg sync.WaitGroup
	for i, srv := range servers {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(srv, layers[i])
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")
	r.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, srv := range servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", srv.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func openBackend(ctx context.Context, cfg *config.Config, logger *logger.Logger) (backend, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		return redisstore.NewStore(rdb, logger), func() { _ = rdb.Close() }, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, rooms are lost on restart")
		return memory.New(), func() {}, nil

	default:
		db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		notifier := postgres.NewNotifier(db, logger)
		if err := notifier.Start(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewDocumentStore(db, notifier, logger), func() {
			<-notifier.Done()
			db.Close()
		}, nil
	}
}

// seedClassifierModel publishes the built-in lexicon for clients that have
// no model in object storage yet. The relay runs without it.
func seedClassifierModel(ctx context.Context, cfg *config.Config, logger *logger.Logger) {
	if cfg.Storage.Endpoint == "" {
		return
	}
	objects, err := storage.Connect(ctx, cfg.Storage)
	if err != nil {
		logger.Warn("object storage unavailable, classifier model not seeded", "error", err)
		return
	}
	uploaded, err := classifier.SeedLexicon(ctx, objects, cfg.Classifier.ModelKey)
	if err != nil {
		logger.Warn("failed to seed classifier model", "error", err)
		return
	}
	if uploaded {
		logger.Info("seeded classifier model", "key", cfg.Classifier.ModelKey)
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
