package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizforge"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Security   Security
	Generation Generation
	AI         AI
	Session    Session
	CORS       CORS
}

// Postgres captures connection info for the session store.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// DSN renders a libpq style connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Redis holds leaderboard store configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	Prefix   string `env:"LEADERBOARD_PREFIX" envDefault:"quizforge:lb"`
	TopN     int    `env:"LEADERBOARD_TOP" envDefault:"50"`
}

// Security stores the secret used to verify bearer tokens. Empty disables identity.
type Security struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:""`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"quizforge"`
}

// Generation configures the question pipeline.
type Generation struct {
	CacheTTL    time.Duration `env:"GENERATION_CACHE_TTL" envDefault:"30m"`
	Denylist    []string      `env:"GENERATION_DENYLIST" envSeparator:"," envDefault:""`
	WarmTopics  []string      `env:"GENERATION_WARM_TOPICS" envSeparator:";" envDefault:""`
	WarmCount   int           `env:"GENERATION_WARM_COUNT" envDefault:"10"`
	WarmTimeout time.Duration `env:"GENERATION_WARM_TIMEOUT" envDefault:"45s"`
}

// AI configures the completion endpoint.
type AI struct {
	APIKey      string        `env:"AI_API_KEY" envDefault:""`
	BaseURL     string        `env:"AI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model       string        `env:"AI_MODEL" envDefault:"gpt-4o-mini"`
	MaxTokens   int           `env:"AI_MAX_TOKENS" envDefault:"4096"`
	Temperature float32       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	HTTPTimeout time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"60s"`
}

// Session groups timed session defaults.
type Session struct {
	GuestSeconds         int           `env:"SESSION_GUEST_SECONDS" envDefault:"30"`
	AuthenticatedSeconds int           `env:"SESSION_AUTHENTICATED_SECONDS" envDefault:"45"`
	ScheduledSeconds     int           `env:"SESSION_SCHEDULED_SECONDS" envDefault:"60"`
	TickInterval         time.Duration `env:"SESSION_TICK_INTERVAL" envDefault:"1s"`
	Retention            time.Duration `env:"SESSION_RETENTION" envDefault:"15m"`
	PersistTimeout       time.Duration `env:"SESSION_PERSIST_TIMEOUT" envDefault:"10s"`
	AdvanceOnAnswer      bool          `env:"SESSION_ADVANCE_ON_ANSWER" envDefault:"false"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	MaxAge         int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadGeneration parses only the generation and AI sections, for tools that
// run without Postgres or Redis.
func LoadGeneration() (Generation, AI, error) {
	var out struct {
		Generation Generation
		AI         AI
	}
	if err := env.ParseWithOptions(&out, env.Options{RequiredIfNoDef: true}); err != nil {
		return Generation{}, AI{}, fmt.Errorf("parse config: %w", err)
	}
	return out.Generation, out.AI, nil
}

// LoadPostgres parses only the Postgres section, for the migrator.
func LoadPostgres() (Postgres, error) {
	var pg Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return Postgres{}, fmt.Errorf("parse config: %w", err)
	}
	return pg, nil
}
