// Package server exposes the HTTP surface: an OpenAI-compatible chat
// API under /v1 and a JWT-protected office API under /api.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/practisage/medassist/config"
	"github.com/practisage/medassist/internal/chat"
	"github.com/practisage/medassist/internal/guardrail"
	"github.com/practisage/medassist/internal/retrieval"
	"github.com/practisage/medassist/internal/store"
	"github.com/practisage/medassist/internal/vectorstore"
	"github.com/practisage/medassist/provider"
)

func Run(cfg *config.Config) error {
	e := newEcho(cfg)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:    "ok",
			Version:   cfg.General.Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		log.Printf("[SERVER] migrations: %v", err)
	}

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	llm, err := provider.NewProvider(provider.OpenAI, cfg.Providers.OpenAI)
	if err != nil {
		return err
	}

	qdrant, err := vectorstore.NewQdrantStore(cfg.Qdrant)
	if err != nil {
		return err
	}
	retriever := retrieval.NewRetriever(qdrant, llm, cfg.Providers.OpenAI.EmbeddingModel, nil)

	validator, err := guardrail.NewValidator(cfg.Guardrail.JailbreakPhrases, nil, cfg.Guardrail.ProfanityThreshold, nil)
	if err != nil {
		return err
	}

	svc := chat.NewService(llm, validator, retriever, cfg.Providers.OpenAI.CompletionModel, nil)

	var rdb *redis.Client
	if cfg.Server.RateLimit.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}

	if cfg.Server.JWTSecret == "" {
		return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
	}
	secret := []byte(cfg.Server.JWTSecret)

	v1 := e.Group("/v1")
	v1.Use(withAPIKey(cfg.Server.APIKey))
	if cfg.Server.RateLimit.Enabled {
		v1.Use(withRateLimit(rdb, cfg.Server.RateLimit.PerMinute))
	}
	ch := &ChatHandler{Service: svc}
	ch.Register(v1)

	api := e.Group("/api")
	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))
	th := &TodosHandler{Store: st}
	th.Register(api.Group("/todos"), secret)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with shared middleware and the
// unified JSON error handler.
func newEcho(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))
	return e
}
