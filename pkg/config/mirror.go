package config

import "time"

// MirrorConfig holds runtime configuration for the mirror service.
type MirrorConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	UpstreamEndpoint   string
	UpstreamAPIKey     string
	UpstreamTimeout    time.Duration
	PageDelay          time.Duration
	SyncInterval       time.Duration
	SyncRunCooldown    time.Duration
	AdminToken         string
	WebhookSecret      string
	FallbackProject    string
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// Load constructs a MirrorConfig from environment variables.
func Load() MirrorConfig {
	return MirrorConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("MIRROR_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://mirror:mirror@db:5432/mirror?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		UpstreamEndpoint:   GetString("UPSTREAM_ENDPOINT", "https://api.linear.app/graphql"),
		UpstreamAPIKey:     GetString("UPSTREAM_API_KEY", ""),
		UpstreamTimeout:    time.Duration(GetInt("UPSTREAM_TIMEOUT_SECONDS", 10)) * time.Second,
		PageDelay:          time.Duration(GetInt("UPSTREAM_PAGE_DELAY_MS", 500)) * time.Millisecond,
		SyncInterval:       time.Duration(GetInt("SYNC_INTERVAL_MINUTES", 60)) * time.Minute,
		SyncRunCooldown:    time.Duration(GetInt("SYNC_RUN_COOLDOWN_MINUTES", 5)) * time.Minute,
		AdminToken:         GetString("ADMIN_TOKEN", ""),
		WebhookSecret:      GetString("UPSTREAM_WEBHOOK_SECRET", ""),
		FallbackProject:    GetString("FALLBACK_PROJECT_NAME", "Unassigned"),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
