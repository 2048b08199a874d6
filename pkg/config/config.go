package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Admin    AdminConfig
	Sheets   SheetsConfig
	Export   ExportConfig
	Schedule ScheduleConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig protects the one-time admin bootstrap endpoint.
type AdminConfig struct {
	SetupToken string
}

// SheetsConfig holds Google Sheets credentials. The credential sources are
// resolved in declaration order; the first non-empty one wins.
type SheetsConfig struct {
	CredentialsJSON string
	CredentialsB64  string
	ClientEmail     string
	PrivateKey      string
	ProjectID       string
	CredentialsPath string
	SpreadsheetID   string
}

// ExportConfig tunes the spreadsheet export endpoints.
type ExportConfig struct {
	RateLimit  int
	RateWindow time.Duration
	AutoExport bool
}

// ScheduleConfig governs caching of the grouped schedule listing.
type ScheduleConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admin = AdminConfig{
		SetupToken: v.GetString("ADMIN_SETUP_TOKEN"),
	}

	cfg.Sheets = SheetsConfig{
		CredentialsJSON: v.GetString("GOOGLE_SHEETS_CREDENTIALS_JSON"),
		CredentialsB64:  v.GetString("GOOGLE_SHEETS_CREDENTIALS_B64"),
		ClientEmail:     v.GetString("GOOGLE_SHEETS_CLIENT_EMAIL"),
		PrivateKey:      v.GetString("GOOGLE_SHEETS_PRIVATE_KEY"),
		ProjectID:       v.GetString("GOOGLE_SHEETS_PROJECT_ID"),
		CredentialsPath: v.GetString("GOOGLE_SHEETS_CREDENTIALS_PATH"),
		SpreadsheetID:   v.GetString("GOOGLE_SHEETS_SPREADSHEET_ID"),
	}

	cfg.Export = ExportConfig{
		RateLimit:  v.GetInt("EXPORT_RATE_LIMIT"),
		RateWindow: parseDuration(v.GetString("EXPORT_RATE_WINDOW"), time.Minute),
		AutoExport: v.GetBool("ENABLE_AUTO_EXPORT"),
	}

	cfg.Schedule = ScheduleConfig{
		CacheTTL: parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tahsinku")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_SETUP_TOKEN", "")

	v.SetDefault("GOOGLE_SHEETS_CREDENTIALS_JSON", "")
	v.SetDefault("GOOGLE_SHEETS_CREDENTIALS_B64", "")
	v.SetDefault("GOOGLE_SHEETS_CLIENT_EMAIL", "")
	v.SetDefault("GOOGLE_SHEETS_PRIVATE_KEY", "")
	v.SetDefault("GOOGLE_SHEETS_PROJECT_ID", "")
	v.SetDefault("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	v.SetDefault("GOOGLE_SHEETS_SPREADSHEET_ID", "")

	v.SetDefault("EXPORT_RATE_LIMIT", 5)
	v.SetDefault("EXPORT_RATE_WINDOW", "60s")
	v.SetDefault("ENABLE_AUTO_EXPORT", true)

	v.SetDefault("SCHEDULE_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
