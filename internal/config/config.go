package config

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/gokatarajesh/challenger/internal/problem"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"challenger"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	OAuth       OAuth
	Catalog     Catalog
	AI          AI
	Session     Session
	Quota       Quota
	Billing     Billing
	Leaderboard Leaderboard
	CORS        CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// DSN renders the pgx connection string.
func (p Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

// Redis holds cache, session and pubsub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret        string        `env:"JWT_SECRET,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:""`
	AccessTokenTTL   time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`
	RefreshTokenTTL  time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
}

// RefreshSecret falls back to the access secret when no dedicated one is set.
func (s Security) RefreshSecret() string {
	if s.JWTRefreshSecret != "" {
		return s.JWTRefreshSecret
	}
	return s.JWTSecret
}

// OAuth holds OAuth provider configuration.
type OAuth struct {
	GoogleClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID" envDefault:""`
	GoogleClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET" envDefault:""`
	GoogleRedirectURL  string `env:"GOOGLE_OAUTH_REDIRECT_URL" envDefault:""`
}

// Catalog configures the external problem catalog and its filtering tables.
type Catalog struct {
	BaseURL     string            `env:"CATALOG_BASE_URL" envDefault:"https://codeforces.com"`
	ProblemURL  string            `env:"CATALOG_PROBLEM_URL" envDefault:"https://codeforces.com"`
	HTTPTimeout time.Duration     `env:"CATALOG_HTTP_TIMEOUT" envDefault:"8s"`
	CacheTTL    time.Duration     `env:"CATALOG_CACHE_TTL" envDefault:"6h"`
	TierBands   map[string]string `env:"CATALOG_TIER_BANDS" envSeparator:";" envKeyValSeparator:":" envDefault:""`
	TopicTags   map[string]string `env:"CATALOG_TOPIC_TAGS" envSeparator:";" envKeyValSeparator:"=" envDefault:""`
}

// AI configures the problem generator service.
type AI struct {
	GeneratorURL string        `env:"AI_GENERATOR_URL" envDefault:""`
	GeneratorKey string        `env:"AI_GENERATOR_API_KEY" envDefault:""`
	HTTPTimeout  time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"20s"`
}

// Session governs reveal sessions and their timers.
type Session struct {
	TTL               time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	LockTTL           time.Duration `env:"SESSION_LOCK_TTL" envDefault:"30s"`
	LockWait          time.Duration `env:"SESSION_LOCK_WAIT" envDefault:"1s"`
	AutoDrawDelay     time.Duration `env:"SESSION_AUTO_DRAW_DELAY" envDefault:"1500ms"`
	GenerationTimeout time.Duration `env:"SESSION_GENERATION_TIMEOUT" envDefault:"25s"`
	SpinDuration      time.Duration `env:"SESSION_SPIN_DURATION" envDefault:"4s"`
	SpinTurns         int           `env:"SESSION_SPIN_TURNS" envDefault:"5"`
}

// Quota governs the free-plan generative allowance.
type Quota struct {
	Window time.Duration `env:"QUOTA_GENERATIVE_WINDOW" envDefault:"24h"`
}

// Billing holds webhook signing secrets per payment provider. Empty disables the provider.
type Billing struct {
	StripeWebhookSecret       string        `env:"STRIPE_WEBHOOK_SECRET" envDefault:""`
	PaddleWebhookSecret       string        `env:"PADDLE_WEBHOOK_SECRET" envDefault:""`
	LemonSqueezyWebhookSecret string        `env:"LEMONSQUEEZY_WEBHOOK_SECRET" envDefault:""`
	SignatureTolerance        time.Duration `env:"BILLING_SIGNATURE_TOLERANCE" envDefault:"5m"`
}

// Leaderboard governs ranking reads and broadcast behavior.
type Leaderboard struct {
	TopN          int    `env:"LEADERBOARD_TOP_N" envDefault:"50"`
	PublishTop    int    `env:"LEADERBOARD_PUBLISH_TOP" envDefault:"10"`
	PubSubChannel string `env:"LEADERBOARD_CHANNEL" envDefault:"lb:updates"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.Catalog.Tables(); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Session.LockTTL <= cfg.Session.GenerationTimeout {
		return nil, fmt.Errorf("parse config: SESSION_LOCK_TTL %s must exceed SESSION_GENERATION_TIMEOUT %s",
			cfg.Session.LockTTL, cfg.Session.GenerationTimeout)
	}
	return cfg, nil
}

// LoadPostgres parses only the PG_* variables, for tools that need the database and nothing else.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse postgres config: %w", err)
	}
	return pg, nil
}

// Tables builds the tier band and topic tag tables; empty values fall back to the defaults.
func (c Catalog) Tables() (problem.Tables, error) {
	bands, err := problem.ParseBands(c.TierBands)
	if err != nil {
		return problem.Tables{}, fmt.Errorf("CATALOG_TIER_BANDS: %w", err)
	}
	tags, err := problem.ParseTopicTags(c.TopicTags)
	if err != nil {
		return problem.Tables{}, fmt.Errorf("CATALOG_TOPIC_TAGS: %w", err)
	}
	return problem.Tables{Bands: bands, TopicTags: tags}, nil
}
