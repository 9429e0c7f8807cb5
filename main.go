package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"
	"trendsetter/accounts"
	"trendsetter/config"
	"trendsetter/content"
	"trendsetter/notifications"
	"trendsetter/relations"
	"trendsetter/server"
	"trendsetter/sessions"
	"trendsetter/storage"
	"trendsetter/storage/cache"
	"trendsetter/tasks"
	"trendsetter/uploads"
	"trendsetter/utils"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const userSummariesExpiration = 10 * time.Minute

type backends struct {
	store    storage.Store
	denylist cache.TokenDenylist
	limiter  cache.RateLimiter
	purgers  []tasks.Purger
	close    func()
}

func connectBackends(ctx context.Context, cfg *config.Config, clock utils.Clock) (*backends, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		denylist := cache.NewMemoryTokenDenylist(clock)
		limiter := cache.NewMemoryRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, clock)
		return &backends{
			store:    storage.NewMemoryManager(),
			denylist: denylist,
			limiter:  limiter,
			purgers:  []tasks.Purger{denylist, limiter},
			close:    func() {},
		}, nil
	}

	manager, err := storage.Connect(ctx, cfg.Mongo.Uri, cfg.Mongo.Database)
	if err != nil {
		return nil, err
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = manager.Close(ctx)
		return nil, err
	}

	return &backends{
		store:    storage.NewCachedStore(manager, cache.NewUsersCache(redisClient, userSummariesExpiration)),
		denylist: cache.NewRedisTokenDenylist(redisClient, clock),
		limiter:  cache.NewRedisRateLimiter(redisClient, cfg.RateLimit.Requests, cfg.RateLimit.Window),
		close: func() {
			if err := redisClient.Close(); err != nil {
				log.Warningf("Error closing redis: %v", err)
			}
			if err := manager.Close(context.Background()); err != nil {
				log.Warningf("Error closing mongo: %v", err)
			}
		},
	}, nil
}

func runBackgroundTasks(ctx context.Context, cfg *config.Config, purgers []tasks.Purger) {
	if len(purgers) == 0 {
		return
	}
	go utils.Recoverer(math.MaxInt, 1, func() {
		tasks.CleanExpiredEntries(ctx, cfg.RateLimit.Window, purgers...)
	})
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := utils.NewRealClock()
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	backend, err := connectBackends(connectCtx, cfg, clock)
	cancel()
	if err != nil {
		log.Fatalf("Error connecting to storage: %v", err)
	}
	defer backend.close()

	if err := tasks.SeedTrends(ctx, backend.store); err != nil {
		log.Errorf("Error seeding trends: %v", err)
	}

	uploadsStore, err := uploads.NewStore(cfg.Server.UploadsDir, clock)
	if err != nil {
		log.Fatalf("Error preparing uploads: %v", err)
	}

	hub := notifications.NewHub()
	accountsService := accounts.NewService(backend.store, cfg.Auth.BcryptCost, clock)
	s := server.NewServer(
		server.Options{
			Addr:          ":" + cfg.Server.Port,
			AllowedOrigin: cfg.Server.AllowedOrigin,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
		},
		backend.store,
		accountsService,
		sessions.NewIssuer(cfg.Auth.JwtSecret, cfg.Auth.TokenTTL, clock),
		backend.denylist,
		backend.limiter,
		relations.NewService(backend.store, hub, clock),
		content.NewService(backend.store, clock),
		uploadsStore,
		notifications.NewStreamer(hub, cfg.Server.AllowedOrigin),
	)

	// Run background tasks
	runBackgroundTasks(ctx, cfg, backend.purgers)

	if err := s.Run(ctx); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
}
