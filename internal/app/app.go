package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/assign"
	"github.com/gokatarajesh/challenger/internal/auth"
	"github.com/gokatarajesh/challenger/internal/auth/jwt"
	"github.com/gokatarajesh/challenger/internal/billing"
	"github.com/gokatarajesh/challenger/internal/config"
	"github.com/gokatarajesh/challenger/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/challenger/internal/db/sqlc"
	"github.com/gokatarajesh/challenger/internal/leaderboard"
	"github.com/gokatarajesh/challenger/internal/logging"
	"github.com/gokatarajesh/challenger/internal/problem/ai"
	"github.com/gokatarajesh/challenger/internal/problem/catalog"
	"github.com/gokatarajesh/challenger/internal/profile"
	"github.com/gokatarajesh/challenger/internal/server"
	"github.com/gokatarajesh/challenger/internal/session"
	ws "github.com/gokatarajesh/challenger/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	lbBroadcaster *leaderboard.Broadcaster
	bgCancels     []context.CancelFunc
}

// New bootstraps logger, Postgres, Redis, the domain services and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	queries := sqlcgen.New(pool)
	userRepo := repository.NewUserRepository(queries)
	challengeRepo := repository.NewChallengeRepository(queries)
	connectionRepo := repository.NewConnectionRepository(queries)
	paymentRepo := repository.NewPaymentRepository(queries)

	// Identity
	authSvc := auth.NewService(userRepo, auth.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(cfg.Security.RefreshSecret()),
			AccessTTL:     cfg.Security.AccessTokenTTL,
			RefreshTTL:    cfg.Security.RefreshTokenTTL,
			Issuer:        cfg.Name,
		},
	}, logger)

	oauthSvc := auth.NewOAuthService(auth.OAuthConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURI:  cfg.OAuth.GoogleRedirectURL,
	}, redisClient, authSvc, logger)
	if oauthSvc == nil {
		logger.Warn().Msg("OAuth not configured (missing GOOGLE_OAUTH_CLIENT_ID)")
	}

	// Profiles and billing
	profileSvc := profile.NewService(userRepo, challengeRepo, connectionRepo, profile.Options{
		QuotaWindow: cfg.Quota.Window,
	}, logger)

	verifiers := billing.Secrets{
		Stripe:       cfg.Billing.StripeWebhookSecret,
		Paddle:       cfg.Billing.PaddleWebhookSecret,
		LemonSqueezy: cfg.Billing.LemonSqueezyWebhookSecret,
		Tolerance:    cfg.Billing.SignatureTolerance,
	}.Verifiers()
	if len(verifiers) == 0 {
		logger.Warn().Msg("no payment provider webhook secret configured; billing webhooks disabled")
	}
	billingSvc := billing.NewService(verifiers, paymentRepo, profileSvc, logger)

	// Problem sources and assignment
	tables, err := cfg.Catalog.Tables()
	if err != nil {
		return nil, err
	}
	catalogSrc := catalog.NewCachedSource(
		catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.ProblemURL, &http.Client{Timeout: cfg.Catalog.HTTPTimeout}),
		redisClient,
		cfg.Catalog.CacheTTL,
		logger,
	)

	var generator assign.GenerativeSource
	if cfg.AI.GeneratorURL != "" {
		generator = ai.NewGenerator(ai.Config{
			GeneratorURL: cfg.AI.GeneratorURL,
			GeneratorKey: cfg.AI.GeneratorKey,
			Timeout:      cfg.AI.HTTPTimeout,
		}, logger)
	} else {
		logger.Warn().Msg("AI generator not configured; generative sessions will fail")
	}
	engine := assign.NewEngine(catalogSrc, generator, assign.Options{Tables: tables}, logger)

	// Sessions, live feed and leaderboard
	wsHub := ws.NewHub(logger)
	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN:          cfg.Leaderboard.TopN,
		PublishTop:    cfg.Leaderboard.PublishTop,
		PubSubChannel: cfg.Leaderboard.PubSubChannel,
	})

	store := session.NewStore(redisClient, session.StoreOptions{
		TTL:      cfg.Session.TTL,
		LockTTL:  cfg.Session.LockTTL,
		LockWait: cfg.Session.LockWait,
	}, logger)
	sessionMgr := session.NewManager(store, engine, profileSvc, session.Options{
		AutoDrawDelay:     cfg.Session.AutoDrawDelay,
		GenerationTimeout: cfg.Session.GenerationTimeout,
		Wheel: session.WheelConfig{
			FullTurns: cfg.Session.SpinTurns,
			Duration:  cfg.Session.SpinDuration,
		},
		Notifier:    wsHub,
		Leaderboard: leaderboardSvc,
	}, logger)

	routes := server.Routes{
		Auth:         auth.NewHTTPHandlers(authSvc, oauthSvc, logger),
		Sessions:     session.NewHTTPHandler(sessionMgr, tables.Topics(), logger),
		SessionWS:    session.NewWSHandler(sessionMgr, wsHub, authSvc, server.NewWSUpgrader(cfg.CORS), logger),
		Profile:      profile.NewHTTPHandler(profileSvc, logger),
		Billing:      billing.NewHTTPHandler(billingSvc, logger),
		Leaderboard:  leaderboard.NewHTTPHandler(leaderboardSvc, logger),
		Authenticate: auth.AuthMiddleware(authSvc, logger),
	}
	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, routes)

	return &Application{
		cfg:           cfg,
		logger:        logger,
		pool:          pool,
		redis:         redisClient,
		http:          apiServer,
		lbBroadcaster: leaderboard.NewBroadcaster(redisClient, wsHub, cfg.Leaderboard.PubSubChannel, logger),
		bgCancels:     make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.lbBroadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.lbBroadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
			}
		}()
	}
}
