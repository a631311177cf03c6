package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/auth"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/routes/alias"
	"github.com/Ramsey-B/fern/pkg/routes/candidate"
	"github.com/Ramsey-B/fern/pkg/routes/dashboard"
	"github.com/Ramsey-B/fern/pkg/routes/employee"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/match"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger, appOptions{
			migrate: cfg.DatabaseMigrateOnStartup,
			redis:   true,
			kafka:   true,
		})
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.close(closeCtx); err != nil {
				logger.WithError(err).Error("failed to stop dependencies")
			}
		}()

		return serve(ctx, a)
	},
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	resolver, extract, err := newResolver(ctx, cfg)
	if err != nil {
		return err
	}

	checker := health.NewChecker(cfg.Version).AddCheck("database", a.db.PingContext)
	if a.redis != nil {
		checker.AddOptionalCheck("redis", a.redis.Ping)
	}

	e := newServer(a, resolver, extract, checker)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("%s listening on %s", cfg.AppName, server.Addr)
		errCh <- server.ListenAndServe()
	}()
	checker.SetReady(true)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	checker.SetReady(false)
	a.logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newServer registers middleware and every route group on a fresh echo instance.
func newServer(a *app, resolver auth.PrincipalResolver, extract middleware.TokenExtractor, checker *health.Checker) *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Container(a.containerID))
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	if cfg.MetricsEnabled {
		e.GET("/metrics", metrics.Handler())
	}

	api := e.Group("/api/v1")
	checker.Register(api)

	authed := api.Group("", middleware.Authentication(a.logger, resolver, extract))

	employee.Register(authed.Group("/employees"), a.gate)
	candidate.Register(authed.Group("/candidates"), a.gate)
	match.Register(authed.Group("/match"), a.gate, bulkThrottles(a)...)
	alias.Register(authed.Group("/aliases"), a.gate)
	dashboard.Register(authed.Group("/dashboard"), a.gate)

	return e
}

// bulkThrottles limits bulk match calls per caller when redis is available.
func bulkThrottles(a *app) []echo.MiddlewareFunc {
	if a.redis == nil || a.cfg.BulkRateLimit == 0 {
		return nil
	}

	limiter := redis.NewRateLimiter(a.redis, "")
	limit, window := int64(a.cfg.BulkRateLimit), a.cfg.BulkRateWindow
	throttle := middleware.RateLimit(a.logger, "bulk-match", func(ctx context.Context, key string) (bool, time.Duration, error) {
		res, err := limiter.Allow(ctx, key, limit, window)
		if err != nil {
			return false, 0, err
		}
		return res.Allowed, res.RetryIn, nil
	})
	return []echo.MiddlewareFunc{throttle}
}

// newResolver picks OIDC bearer verification, or the trusted email header for local runs.
func newResolver(ctx context.Context, cfg *config.Config) (auth.PrincipalResolver, middleware.TokenExtractor, error) {
	if !cfg.AuthEnabled {
		return auth.NewHeaderResolver(), middleware.HeaderToken(auth.HeaderUserEmail), nil
	}

	resolver, err := auth.NewOIDCResolver(ctx, cfg.AuthIssuerURL, cfg.AuthClientID)
	if err != nil {
		return nil, nil, err
	}
	return resolver, middleware.BearerToken, nil
}
