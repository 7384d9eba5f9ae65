package config

import (
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env             string
	ServerAddr      string
	MongoURI        string
	MongoDB         string
	FrontendOrigins []string
	LogLevel        slog.Level

	RedisURL        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTLSeconds int

	RateLimitContact   int
	RateLimitWindowSec int

	GoogleAPIKey        string
	GeocodeRPS          int
	GeocodeCacheFile    string
	GeocodeRegionSuffix string
	BackfillCron        string
	BackfillWorkers     int

	ZohoClientID     string
	ZohoClientSecret string
	ZohoRefreshToken string
	ZohoAccountsURL  string
	ZohoAPIURL       string

	BrevoAPIKey      string
	BrevoSenderEmail string
	BrevoSenderName  string
	BrevoSandbox     bool
	LeadNotifyEmail  string

	JWTSecret         string
	SessionTTLMinutes int
	CookieSecure      bool
	AdminAPIKey       string

	MetricsEnabled bool
	Timezone       *time.Location
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func Load() (*Config, error) {
	// godotenv.Load never overrides variables that are already set.
	_ = godotenv.Load(".env")

	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Kolkata"))
	if err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGODB_URI", "mongodb://localhost:27017/realty")
	mongoDB := getEnv("MONGODB_DB", "")
	if mongoDB == "" {
		mongoDB = mongoDBFromURI(mongoURI)
	}
	if mongoDB == "" {
		mongoDB = "realty"
	}

	addr := getEnv("SERVER_ADDR", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "5000")
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		ServerAddr:          addr,
		MongoURI:            mongoURI,
		MongoDB:             mongoDB,
		FrontendOrigins:     splitList(getEnv("FRONTEND_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		LogLevel:            parseLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		CacheTTLSeconds:     getEnvInt("CACHE_TTL_SECONDS", 300),
		RateLimitContact:    getEnvInt("RATE_LIMIT_CONTACT", 5),
		RateLimitWindowSec:  getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		GoogleAPIKey:        getEnv("GOOGLE_API_KEY", ""),
		GeocodeRPS:          getEnvInt("GEOCODE_RPS", 10),
		GeocodeCacheFile:    getEnv("GEOCODE_CACHE_FILE", "geocoded-locations-cache.json"),
		GeocodeRegionSuffix: getEnv("GEOCODE_REGION_SUFFIX", "Hyderabad, Telangana, India"),
		BackfillCron:        getEnv("BACKFILL_CRON", ""),
		BackfillWorkers:     getEnvInt("BACKFILL_WORKERS", 4),
		ZohoClientID:        getEnv("ZOHO_CLIENT_ID", ""),
		ZohoClientSecret:    getEnv("ZOHO_CLIENT_SECRET", ""),
		ZohoRefreshToken:    getEnv("ZOHO_REFRESH_TOKEN", ""),
		ZohoAccountsURL:     getEnv("ZOHO_ACCOUNTS_URL", "https://accounts.zoho.in"),
		ZohoAPIURL:          getEnv("ZOHO_API_URL", "https://www.zohoapis.in"),
		BrevoAPIKey:         getEnv("BREVO_API_KEY", ""),
		BrevoSenderEmail:    getEnv("BREVO_SENDER_EMAIL", ""),
		BrevoSenderName:     getEnv("BREVO_SENDER_NAME", ""),
		BrevoSandbox:        getEnvBool("BREVO_SANDBOX", false),
		LeadNotifyEmail:     getEnv("LEAD_NOTIFY_EMAIL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		SessionTTLMinutes:   getEnvInt("SESSION_TTL_MINUTES", 720),
		CookieSecure:        getEnvBool("COOKIE_SECURE", false),
		AdminAPIKey:         getEnv("ADMIN_API_KEY", ""),
		MetricsEnabled:      getEnvBool("METRICS_ENABLED", true),
		Timezone:            loc,
	}

	return cfg, nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func mongoDBFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return ""
	}
	// only the first path segment names the database
	if idx := strings.Index(db, "/"); idx >= 0 {
		db = db[:idx]
	}
	return db
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
