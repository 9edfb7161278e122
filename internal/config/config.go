package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DB holds PostgreSQL connection parameters.
type DB struct {
	Host            string
	Port            string
	Name            string
	User            string
	Pass            string
	SSLMode         string
	ConnectAttempts int
}

// DSN renders the connection string understood by lib/pq.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

// Config describes the whole portal process.
type Config struct {
	DB              DB
	RedisAddr       string
	Port            string
	PageSize        int
	SearchLimit     int
	PopularTags     int
	HotSearchTTL    time.Duration
	ShutdownTimeout time.Duration
	LLM             LLM
}

// LLM configures the summarizer that fills in missing article summaries.
// An empty URL turns it off.
type LLM struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// Load reads an optional .env file and then builds a Config from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	c := &Config{
		DB: DB{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "news_db"),
			User:            getEnv("DB_USER", "news_user"),
			Pass:            getEnv("DB_PASS", "news_pass"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			ConnectAttempts: getInt("DB_CONNECT_ATTEMPTS", 10),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		Port:            getEnv("PORT", "8080"),
		PageSize:        getInt("ARTICLES_PAGE_SIZE", 10),
		SearchLimit:     getInt("SEARCH_LIMIT", 10),
		PopularTags:     getInt("POPULAR_TAGS_LIMIT", 20),
		HotSearchTTL:    getDuration("HOT_SEARCH_TTL", "168h"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", "10s"),
		LLM: LLM{
			URL:     getEnv("LLM_URL", ""),
			Model:   getEnv("LLM_MODEL", "smollm2:135m"),
			Timeout: getDuration("LLM_TIMEOUT", "30s"),
		},
	}

	if c.PageSize <= 0 {
		return nil, fmt.Errorf("ARTICLES_PAGE_SIZE must be positive")
	}
	if c.SearchLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be positive")
	}
	if c.PopularTags <= 0 {
		return nil, fmt.Errorf("POPULAR_TAGS_LIMIT must be positive")
	}
	if c.DB.ConnectAttempts <= 0 {
		return nil, fmt.Errorf("DB_CONNECT_ATTEMPTS must be positive")
	}
	if c.HotSearchTTL <= 0 {
		return nil, fmt.Errorf("HOT_SEARCH_TTL must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}
