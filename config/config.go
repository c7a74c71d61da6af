// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, varsa .env dosyasını da yükler.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Presence session store backend'leri.
const (
	PresenceStoreSQLite = "sqlite"
	PresenceStoreRedis  = "redis"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Presence PresenceConfig
	Redis    RedisConfig
	Log      LogConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string
}

// JWTConfig, token doğrulama ayarları.
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// PresenceConfig, presence hub ayarları.
type PresenceConfig struct {
	Store        string        // "sqlite" | "redis"
	SessionTTL   time.Duration // side-table kayıtlarının yaşam süresi
	RequireToken bool          // upgrade öncesi token zorunlu mu
}

// RedisConfig, Redis bağlantı ayarları (PRESENCE_STORE=redis iken kullanılır).
type RedisConfig struct {
	URL string
}

// LogConfig, zerolog ayarları.
type LogConfig struct {
	Level  string
	Format string // "json" | "console"
}

// Load, environment variable'lardan Config oluşturur.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	accessExpiry, err := strconv.Atoi(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_EXPIRY_MINUTES: %w", err)
	}

	sessionTTL, err := strconv.Atoi(getEnv("PRESENCE_SESSION_TTL_MINUTES", "1440"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRESENCE_SESSION_TTL_MINUTES: %w", err)
	}

	requireToken, err := strconv.ParseBool(getEnv("PRESENCE_REQUIRE_TOKEN", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRESENCE_REQUIRE_TOKEN: %w", err)
	}

	store := strings.ToLower(getEnv("PRESENCE_STORE", PresenceStoreSQLite))
	if store != PresenceStoreSQLite && store != PresenceStoreRedis {
		return nil, fmt.Errorf("invalid PRESENCE_STORE %q: want %s or %s", store, PresenceStoreSQLite, PresenceStoreRedis)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        port,
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/teamchat.db"),
		},
		JWT: JWTConfig{
			Secret:            jwtSecret,
			Issuer:            getEnv("JWT_ISSUER", "teamchat"),
			AccessTokenExpiry: time.Duration(accessExpiry) * time.Minute,
		},
		Presence: PresenceConfig{
			Store:        store,
			SessionTTL:   time.Duration(sessionTTL) * time.Minute,
			RequireToken: requireToken,
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
