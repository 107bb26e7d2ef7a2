package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tweetcounts-gateway/internal/handlers"
	"tweetcounts-gateway/internal/httpserver"
	"tweetcounts-gateway/internal/metrics"
	"tweetcounts-gateway/internal/resolver"
	"tweetcounts-gateway/internal/store"
	"tweetcounts-gateway/internal/upstream"
	"tweetcounts-gateway/pkg/logging/logging"
)

type Config struct {
	Port         string
	CacheBackend string // "memory" or "redis"
	RedisAddr    string

	CountsBaseURL string
	BearerToken   string

	DefaultQuery    string
	FreshnessWindow time.Duration
	MinRateLock     time.Duration
	SafetyBuffer    time.Duration
	Aliases         map[string][]string

	CDNMaxAge               int
	CDNStaleWhileRevalidate int
}

func LoadConfig() Config {
	return Config{
		Port:         getenv("PORT", "8080"),
		CacheBackend: getenv("CACHE_BACKEND", "memory"),
		RedisAddr:    getenv("REDIS_ADDR", "127.0.0.1:6379"),

		CountsBaseURL: getenv("COUNTS_BASE_URL", "https://api.twitter.com"),
		BearerToken:   os.Getenv("TWITTER_BEARER_TOKEN"),

		DefaultQuery:    getenv("DEFAULT_QUERY", "$ZEN"),
		FreshnessWindow: getenvDuration("FRESHNESS_WINDOW", 5*time.Minute),
		MinRateLock:     getenvDuration("MIN_RATE_LOCK", 60*time.Second),
		SafetyBuffer:    getenvDuration("SAFETY_BUFFER", 30*time.Second),
		Aliases:         parseAliases(os.Getenv("CASHTAG_ALIASES")),

		CDNMaxAge:               getenvInt("CDN_MAX_AGE", 300),
		CDNStaleWhileRevalidate: getenvInt("CDN_STALE_WHILE_REVALIDATE", 600),
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := LoadConfig()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("counts_base_url", cfg.CountsBaseURL),
		zap.String("default_query", cfg.DefaultQuery),
		zap.Duration("freshness_window", cfg.FreshnessWindow),
		zap.Duration("min_rate_lock", cfg.MinRateLock),
	)

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Entry store -----
	entryStore := store.NewStore(store.Config{
		Backend:  cfg.CacheBackend,
		Prefix:   "tweetcounts",
		RedisTTL: 24 * time.Hour,
	}, redisClient)
	entryStore = store.NewLoggingStore(entryStore)

	// ----- Upstream counts client -----
	if cfg.BearerToken == "" {
		return fmt.Errorf("TWITTER_BEARER_TOKEN is required")
	}

	countsClient, err := upstream.NewClient(upstream.Config{
		BaseURL:     cfg.CountsBaseURL,
		BearerToken: cfg.BearerToken,
	}, logger)
	if err != nil {
		return err
	}
	if closer, ok := countsClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// ----- Resolver -----
	countsResolver := resolver.New(resolver.Config{
		DefaultQuery:    cfg.DefaultQuery,
		FreshnessWindow: cfg.FreshnessWindow,
		MinRateLock:     cfg.MinRateLock,
		SafetyBuffer:    cfg.SafetyBuffer,
		Aliases:         cfg.Aliases,
	}, entryStore, countsClient, logger)

	// ----- Handlers -----
	countsHandler := handlers.NewCountsHandler(
		countsResolver,
		cfg.CDNMaxAge,
		cfg.CDNStaleWhileRevalidate,
	)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, countsHandler)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting gateway",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// parseAliases reads CASHTAG_ALIASES, e.g. "ZEN=horizen,zencash;BTC=bitcoin".
// Tickers are upper-cased; malformed segments are skipped.
func parseAliases(raw string) map[string][]string {
	aliases := make(map[string][]string)
	for _, segment := range strings.Split(raw, ";") {
		ticker, terms, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" {
			continue
		}
		for _, term := range strings.Split(terms, ",") {
			if term = strings.TrimSpace(term); term != "" {
				aliases[ticker] = append(aliases[ticker], term)
			}
		}
	}
	return aliases
}
