// Command server runs the retrieval cascade as a single HTTP service,
// replacing the teacher platform's four-way microservice split
// (ingestion/searcher/indexer/gateway) with one process that owns all four
// cascade stages in memory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/api"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/cascade"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/personalize"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/semantic"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/store"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/metrics"
	pkgpostgres "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting retrieval cascade", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := cascade.New(
		semantic.NewHashEmbedder(cfg.Embedding.VectorDimension),
		personalize.Weights{
			UserProfile: cfg.Personalize.UserProfileWeight,
			Context:     cfg.Personalize.ContextWeight,
			Temporal:    cfg.Personalize.TemporalWeight,
		},
		cascade.Caps{
			Layer1: cfg.Cascade.MaxResultsLayer1,
			Layer2: cfg.Cascade.MaxResultsLayer2,
			Layer3: cfg.Cascade.MaxResultsLayer3,
			Final:  cfg.Cascade.MaxFinalResults,
		},
	)

	checker := health.NewChecker()
	checker.Register("cascade", func(ctx context.Context) health.ComponentHealth {
		if service.Ready() {
			return health.ComponentHealth{Status: health.StatusUp}
		}
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "embedding provider still loading"}
	})

	m := metrics.New()

	var db *pkgpostgres.Client
	var docStore *store.DocumentStore
	if cfg.Postgres.Enabled() {
		err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			db, err = pkgpostgres.New(cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Warn("postgres unavailable, warm-start persistence disabled", "error", err)
		} else {
			defer db.Close()
			docStore = store.New(db, m)
			if err := docStore.EnsureSchema(ctx); err != nil {
				slog.Error("failed to ensure document schema", "error", err)
			} else if warm, err := docStore.LoadAll(ctx); err != nil {
				slog.Error("failed to warm-start from postgres", "error", err)
			} else if len(warm) > 0 {
				if err := service.AddDocuments(ctx, warm); err != nil {
					slog.Error("failed to replay warm-start documents", "error", err)
				} else {
					slog.Info("warm-started from postgres", "documents", len(warm))
				}
			}
			checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
				if err := db.DB.PingContext(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
	}

	var redisClient *pkgredis.Client
	var respCache *cache.Cache[cascade.SearchResponse]
	if cfg.Redis.Enabled() {
		err = resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 3}, func() error {
			redisClient, err = pkgredis.NewClient(cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, search-response caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			respCache = cache.New[cascade.SearchResponse](redisClient, cfg.Redis, m)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if err := redisClient.Ping(ctx); err != nil {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
				}
				return health.ComponentHealth{Status: health.StatusUp}
			})
		}
	}

	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled() {
		consumer := ingest.NewConsumer(service, docStore)
		kafkaConsumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, consumer.Handle)
		go func() {
			if err := kafkaConsumer.Start(ctx); err != nil {
				slog.Error("ingest consumer stopped with error", "error", err)
			}
		}()
		slog.Info("async document ingestion enabled", "topic", cfg.Kafka.Topics.DocumentIngest)
	}

	var keyValidator *apikey.Validator
	var limiter *ratelimit.Limiter
	if db != nil {
		keyValidator = apikey.NewValidator(db)
		limiter = ratelimit.New(time.Minute)
	}

	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	handler := api.NewRouter(service, api.RouterConfig{
		KeyValidator: keyValidator,
		Limiter:      limiter,
		Cache:        respCache,
		Store:        docStore,
		Metrics:      m,
		Checker:      checker,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if kafkaConsumer != nil {
			kafkaConsumer.Close()
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("retrieval cascade listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("retrieval cascade stopped")
}
