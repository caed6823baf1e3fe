package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/challenger/internal/auth"
	"github.com/gokatarajesh/challenger/internal/billing"
	"github.com/gokatarajesh/challenger/internal/config"
	"github.com/gokatarajesh/challenger/internal/leaderboard"
	"github.com/gokatarajesh/challenger/internal/logging"
	"github.com/gokatarajesh/challenger/internal/profile"
	"github.com/gokatarajesh/challenger/internal/session"
	httperrors "github.com/gokatarajesh/challenger/pkg/http/errors"
)

// NewWSUpgrader builds a WebSocket upgrader that accepts the configured browser origins.
// Requests without an Origin header (non-browser clients) are accepted.
func NewWSUpgrader(cors config.CORS) websocket.Upgrader {
	allowed := originSet(cors.AllowedOrigins)
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(allowed, origin)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// Routes groups the feature handlers mounted on the API mux. Nil members are skipped.
type Routes struct {
	Auth        *auth.HTTPHandlers
	Sessions    *session.HTTPHandler
	SessionWS   *session.WSHandler
	Profile     *profile.HTTPHandler
	Billing     *billing.HTTPHandler
	Leaderboard *leaderboard.HTTPHandler
	// Authenticate resolves bearer tokens into request claims.
	Authenticate func(http.Handler) http.Handler
}

// NewHTTPServer wires base routes (health, metrics, ping) and the feature routes for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", pingHandler(logger,
		func(ctx context.Context) error { return pool.Ping(ctx) },
		func(ctx context.Context) error { return redis.Ping(ctx).Err() },
	))

	if h := routes.Auth; h != nil {
		mux.HandleFunc("/v1/auth/register", h.Register)
		mux.HandleFunc("/v1/auth/login", h.Login)
		mux.HandleFunc("/v1/auth/refresh", h.RefreshToken)
		mux.HandleFunc("/v1/oauth/{provider}/start", h.OAuthStart)
		mux.HandleFunc("/v1/oauth/{provider}/callback", h.OAuthCallback)
		mux.HandleFunc("/v1/users/me", h.GetMe)
	}

	if h := routes.Sessions; h != nil {
		mux.HandleFunc("/v1/topics", h.HandleTopics)
		mux.HandleFunc("/v1/sessions", h.HandleCreate)
		mux.HandleFunc("/v1/sessions/{id}", h.HandleGet)
		mux.HandleFunc("/v1/sessions/{id}/setup", h.HandleSetup)
		mux.HandleFunc("/v1/sessions/{id}/confirm", h.HandleConfirm)
		mux.HandleFunc("/v1/sessions/{id}/spin", h.HandleSpin)
		mux.HandleFunc("/v1/sessions/{id}/reveal", h.HandleReveal)
		mux.HandleFunc("/v1/sessions/{id}/advance", h.HandleAdvance)
		mux.HandleFunc("/v1/sessions/{id}/reset", h.HandleReset)
		mux.HandleFunc("/v1/sessions/{id}/save", h.HandleSave)
	}

	if routes.SessionWS != nil {
		mux.HandleFunc("/ws/sessions", routes.SessionWS.HandleWebSocket)
	}

	if h := routes.Profile; h != nil {
		mux.HandleFunc("/v1/profile", h.HandleProfile)
		mux.HandleFunc("/v1/profile/challenges", h.HandleChallenges)
		mux.HandleFunc("/v1/profile/challenges/{id}", h.HandleChallenge)
		mux.HandleFunc("/v1/connections", h.HandleConnections)
		mux.HandleFunc("/v1/connections/{id}", h.HandleConnection)
	}

	if routes.Billing != nil {
		mux.HandleFunc("/v1/billing/webhooks/{provider}", routes.Billing.HandleWebhook)
	}

	if routes.Leaderboard != nil {
		mux.HandleFunc("/v1/leaderboards/{window}", routes.Leaderboard.HandleGet)
	}

	var handler http.Handler = mux
	if routes.Authenticate != nil {
		handler = routes.Authenticate(handler)
	}
	handler = CORSMiddleware(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

// pingHandler answers 502 when any dependency check fails.
func pingHandler(logger zerolog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		for _, check := range checks {
			if err := check(ctx); err != nil {
				logging.FromContext(ctx).Error().Err(err).Msg("dependency ping failed")
				httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	}
}
