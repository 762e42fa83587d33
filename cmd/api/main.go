// @title        Expense Share API
// @version      1.0
// @description  Shared expenses, split strategies and pairwise balances.
// @BasePath     /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	memstore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AnvithShetty10/expense-share/internal/auth"
	"github.com/AnvithShetty10/expense-share/internal/balance"
	"github.com/AnvithShetty10/expense-share/internal/cache"
	"github.com/AnvithShetty10/expense-share/internal/config"
	"github.com/AnvithShetty10/expense-share/internal/database"
	"github.com/AnvithShetty10/expense-share/internal/expense"
	"github.com/AnvithShetty10/expense-share/internal/observability"
	"github.com/AnvithShetty10/expense-share/internal/user"
	mw "github.com/AnvithShetty10/expense-share/pkg/middleware"
	"github.com/AnvithShetty10/expense-share/pkg/response"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	if err := database.Migrate(db, logger); err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	store, closeCache, err := newCache(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer closeCache()

	rateLimiter, err := newRateLimiter(cfg, store, logger)
	if err != nil {
		return err
	}

	router := newRouter(cfg, db, store, rateLimiter, metrics, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// newCache connects to Redis when REDIS_URL is set and falls back to the
// in-process cache otherwise.
func newCache(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics) (cache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, using in-memory cache")
		mem := cache.NewMemory(time.Minute)
		return mem, func() { _ = mem.Close() }, nil
	}

	rc, err := cache.NewRedis(cfg.RedisURL, logger.Named("cache"), metrics)
	if err != nil {
		return nil, nil, err
	}

	pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(pctx); err != nil {
		// the cache degrades to misses; the service still starts
		logger.Warn("redis not reachable at startup", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return rc, func() { _ = rc.Close() }, nil
}

// newRateLimiter shares the Redis connection when there is one so limits
// hold across replicas.
func newRateLimiter(cfg *config.Config, c cache.Cache, logger *zap.Logger) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	if rc, ok := c.(*cache.Redis); ok {
		st, err := redisstore.NewStoreWithOptions(rc.Client(), limiter.StoreOptions{
			Prefix: "ratelimit",
		})
		if err != nil {
			return nil, err
		}
		return limiter.New(st, rate), nil
	}

	logger.Debug("using in-memory rate limit store")
	return limiter.New(memstore.NewStore(), rate), nil
}

func newRouter(cfg *config.Config, db *sql.DB, c cache.Cache, rl *limiter.Limiter, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	expenseRepo := expense.NewRepository(db)

	balanceService := balance.NewService(
		balance.NewStore(expenseRepo, userService),
		c,
		cfg.BalanceCacheTTL,
		logger.Named("balance"),
		metrics,
	)
	balanceHandler := balance.NewHandler(balanceService)

	expenseService := expense.NewService(
		expenseRepo,
		userService,
		balanceService,
		c,
		expense.Options{DefaultCurrency: cfg.DefaultCurrency, IdempotencyTTL: cfg.IdempotencyTTL},
		logger.Named("expense"),
	)
	expenseHandler := expense.NewHandler(expenseService)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := auth.NewService(userService, tokens, logger.Named("auth"))
	authHandler := auth.NewHandler(authService)

	if cfg.DevAuth {
		logger.Warn("development auth enabled: X-User-ID is trusted without a token")
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(mw.Tracing)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "ok", "cache": "ok"}
		code := http.StatusOK

		if err := db.PingContext(r.Context()); err != nil {
			status["status"], status["database"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
		if p, ok := c.(cache.Pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				// balances are still served without the cache
				status["cache"] = "unreachable"
			}
		}
		response.JSON(w, code, status)
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit(rl, logger.Named("ratelimit")))

		requireUser := mw.Auth(tokens, userService, cfg.DevAuth, logger.Named("auth"))

		r.Mount("/auth", authHandler.Routes(requireUser))

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Mount("/users", userHandler.Routes())
			r.Mount("/expenses", expenseHandler.Routes())
			r.Mount("/balances", balanceHandler.Routes())
		})
	})

	return r
}
