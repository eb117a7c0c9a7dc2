package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Crawler   CrawlerConfig
	Browser   BrowserConfig
	Proxy     ProxyConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Sentiment SentimentConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type CrawlerConfig struct {
	SearchBaseURL string
	ListSize      int
	SettleMin     time.Duration
	SettleMax     time.Duration
}

type BrowserConfig struct {
	// WSEndpoint is the CDP endpoint of a remote scraping browser
	// (e.g. Bright Data). When empty a local headless Chromium is launched.
	WSEndpoint     string
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
}

type ProxyConfig struct {
	Host     string
	Username string
	Password string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	Stream   string
}

type SentimentConfig struct {
	Endpoint string
	Timeout  time.Duration
	// Model-specific label strings mapped onto positive/negative; anything
	// else is reported as neutral. Kept in configuration because the
	// vocabulary depends on which model the inference service loads.
	PositiveLabels []string
	NegativeLabels []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Crawler: CrawlerConfig{
			SearchBaseURL: getEnvOrDefault("CRAWLER_SEARCH_BASE_URL", "https://www.coupang.com"),
			ListSize:      getIntOrDefault("CRAWLER_LIST_SIZE", 36),
			SettleMin:     getDurationOrDefault("CRAWLER_SETTLE_MIN", 1500*time.Millisecond),
			SettleMax:     getDurationOrDefault("CRAWLER_SETTLE_MAX", 2500*time.Millisecond),
		},
		Browser: BrowserConfig{
			WSEndpoint:     getEnvOrDefault("BROWSER_WS_ENDPOINT", ""),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "ko-KR"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Seoul"),
		},
		Proxy: ProxyConfig{
			Host:     getEnvOrDefault("PROXY_HOST", ""),
			Username: getEnvOrDefault("PROXY_USERNAME", ""),
			Password: getEnvOrDefault("PROXY_PASSWORD", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "coupang_reviews"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:harvest_runs"),
		},
		Sentiment: SentimentConfig{
			Endpoint:       getEnvOrDefault("SENTIMENT_ENDPOINT", ""),
			Timeout:        getDurationOrDefault("SENTIMENT_TIMEOUT", 60*time.Second),
			PositiveLabels: getStringSliceOrDefault("SENTIMENT_POSITIVE_LABELS", []string{"positive", "pos", "label_1"}),
			NegativeLabels: getStringSliceOrDefault("SENTIMENT_NEGATIVE_LABELS", []string{"negative", "neg", "label_0"}),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Crawler.ListSize < 1 {
		return fmt.Errorf("CRAWLER_LIST_SIZE must be at least 1")
	}

	if c.Crawler.SettleMin > c.Crawler.SettleMax {
		return fmt.Errorf("CRAWLER_SETTLE_MIN cannot be greater than CRAWLER_SETTLE_MAX")
	}

	if (c.Proxy.Username != "" || c.Proxy.Password != "") && c.Proxy.Host == "" {
		return fmt.Errorf("PROXY_HOST is required when proxy credentials are set")
	}

	return nil
}

// ProxyURL returns the authenticated proxy URL, or "" when no proxy is
// configured.
func (c *Config) ProxyURL() string {
	if c.Proxy.Host == "" {
		return ""
	}
	if c.Proxy.Username == "" {
		return fmt.Sprintf("http://%s", c.Proxy.Host)
	}
	return fmt.Sprintf("http://%s:%s@%s", c.Proxy.Username, c.Proxy.Password, c.Proxy.Host)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
