package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/application"
	appanalyses "github.com/bryanwahyu/propvest/internal/application/analyses"
	appdigest "github.com/bryanwahyu/propvest/internal/application/digest"
	appexports "github.com/bryanwahyu/propvest/internal/application/exports"
	appshares "github.com/bryanwahyu/propvest/internal/application/shares"
	"github.com/bryanwahyu/propvest/internal/config"
	"github.com/bryanwahyu/propvest/internal/domain/ai"
	"github.com/bryanwahyu/propvest/internal/domain/analysis"
	"github.com/bryanwahyu/propvest/internal/domain/digest"
	"github.com/bryanwahyu/propvest/internal/infra/ai/anthropic"
	"github.com/bryanwahyu/propvest/internal/infra/ai/openai"
	"github.com/bryanwahyu/propvest/internal/infra/ai/prompt"
	"github.com/bryanwahyu/propvest/internal/infra/cache"
	"github.com/bryanwahyu/propvest/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/propvest/internal/infra/db/mysql"
	"github.com/bryanwahyu/propvest/internal/infra/db/postgres"
	"github.com/bryanwahyu/propvest/internal/infra/export"
	"github.com/bryanwahyu/propvest/internal/infra/httpserver"
	"github.com/bryanwahyu/propvest/internal/infra/storage"
	"github.com/bryanwahyu/propvest/internal/middleware"
)

// app holds the wired process. Every dependency is built here and passed down
// explicitly.
type app struct {
	handler http.Handler
	limiter *middleware.RateLimiter
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checkers := map[string]middleware.HealthChecker{}

	store, digests, conn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if conn != nil {
		a.closers = append(a.closers, conn.Close)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: conn}
	}

	var shareCache analysis.ShareCache
	if cfg.Redis.URL != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		checkers["redis"] = &middleware.RedisHealthChecker{Client: rdb}
		shareCache = cache.NewShareCache(rdb, cfg.Share.CacheTTL)
	}

	var artifacts analysis.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		s, err := storage.New(ctx, cfg.Minio)
		if err != nil {
			a.Close()
			return nil, err
		}
		artifacts = s
	}

	insights, err := newGenerator(cfg.AI)
	if err != nil {
		a.Close()
		return nil, err
	}

	clock := application.SystemClock{}
	deps := httpserver.Deps{
		Analyses: &appanalyses.Service{Store: store, Cache: shareCache, Insights: insights, Clock: clock},
		Exports: appexports.NewService(store, artifacts, clock,
			export.PDF{Title: "Propvest analysis"}, export.CSV{}, export.XLSX{}),
		Shares:         &appshares.Service{Repo: store, Cache: shareCache, BaseURL: cfg.Share.BaseURL, Clock: clock},
		Digest:         &appdigest.Service{Repo: digests, Clock: clock},
		Auth:           middleware.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Metrics:        middleware.NewMetrics(),
		Checkers:       checkers,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if cfg.RateLimit.Enabled {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
		deps.Limiter = a.limiter
	}
	a.handler = httpserver.NewRouter(deps)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (analysis.Store, digest.Repository, *sql.DB, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		conn, err := postgres.Connect(ctx, cfg.Store.DSN, cfg.Store.Pool)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewAnalysisStore(conn), postgres.NewDigestRepository(conn), conn, nil
	case config.DriverMySQL:
		conn, err := mysqlp.Connect(ctx, cfg.Store.DSN, cfg.Store.Pool)
		if err != nil {
			return nil, nil, nil, err
		}
		return mysqlp.NewAnalysisStore(conn), mysqlp.NewDigestRepository(conn), conn, nil
	case config.DriverMemory:
		zap.L().Warn("using in-memory store, data is lost on restart")
		return memory.New(), memory.NewDigestRepository(), nil, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newGenerator(c config.AIConfig) (ai.Generator, error) {
	switch c.Provider {
	case config.ProviderOpenAI:
		oc := goopenai.DefaultConfig(c.OpenAIKey)
		if c.OpenAIBaseURL != "" {
			oc.BaseURL = c.OpenAIBaseURL
		}
		return openai.NewClientWithConfig(oc, c.OpenAIModel), nil
	case config.ProviderAnthropic:
		return anthropic.NewClient(c.AnthropicKey, c.AnthropicModel), nil
	case config.ProviderHeuristic:
		return prompt.Heuristic{}, nil
	}
	return nil, errors.New("unknown ai provider " + c.Provider)
}
