// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/storefront-campaigns/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	WhatsApp   WhatsAppConfig   `json:"whatsapp"`
	Campaign   CampaignConfig   `json:"campaign"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`

	// Content Security
	CSPPolicy           string `json:"csp_policy"`
	XFrameOptions       string `json:"x_frame_options"`
	XContentTypeOptions string `json:"x_content_type_options"`
	ReferrerPolicy      string `json:"referrer_policy"`
	HSTSMaxAge          int    `json:"hsts_max_age"`
}

// JWTConfig describes how storefront access tokens are verified
type JWTConfig struct {
	SecretKey      string        `json:"secret_key"`
	PrivateKey     string        `json:"private_key"`  // RSA private key in PEM format, optional
	PublicKey      string        `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys     bool          `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

// WhatsAppConfig configures the WhatsApp Business Cloud API transport
type WhatsAppConfig struct {
	Provider         string        `json:"provider"` // cloud, mock
	APIBaseURL       string        `json:"api_base_url"`
	PhoneNumberID    string        `json:"phone_number_id"`
	AccessToken      string        `json:"access_token"`
	TemplateName     string        `json:"template_name"`
	TemplateLanguage string        `json:"template_language"`
	Timeout          time.Duration `json:"timeout"`
}

// Campaign status modes
const (
	CampaignStatusModeStaged = "staged"
	CampaignStatusModeLegacy = "legacy"
)

// CampaignConfig holds the dispatch thresholds and behaviour switches
type CampaignConfig struct {
	StatusMode             string        `json:"status_mode"` // staged, legacy
	DispatchTimeout        time.Duration `json:"dispatch_timeout"`
	MinPhoneLength         int           `json:"min_phone_length"`
	RecentOrdersWindow     time.Duration `json:"recent_orders_window"`
	HighValueOrderTotal    float64       `json:"high_value_order_total"`
	FrequentBuyerMinOrders int           `json:"frequent_buyer_min_orders"`
	PremiumTierThreshold   float64       `json:"premium_tier_threshold"`
	GoldTierThreshold      float64       `json:"gold_tier_threshold"`
	CurrencySymbol         string        `json:"currency_symbol"`
	CurrencyLocale         string        `json:"currency_locale"`
}

// IsLegacyStatusMode reports whether the campaign is marked sent before the send loop
func (c CampaignConfig) IsLegacyStatusMode() bool {
	return c.StatusMode == CampaignStatusModeLegacy
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, text
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`

	// Access Logs
	EnableAccessLog bool `json:"enable_access_log"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled             bool          `json:"enabled"`
	Provider            string        `json:"provider"` // redis, memory
	RedisURL            string        `json:"redis_url"`
	RedisDB             int           `json:"redis_db"`
	RedisPrefix         string        `json:"redis_prefix"`
	DefaultTTL          time.Duration `json:"default_ttl"`
	CleanupInterval     time.Duration `json:"cleanup_interval"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

type DeploymentConfig struct {
	Domain      string `json:"domain"`
	APIDomain   string `json:"api_domain"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// IsDevelopment reports whether the service runs in a development environment
func (d DeploymentConfig) IsDevelopment() bool {
	return d.Environment == "development" || d.Environment == "dev" || d.Environment == "local"
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file; variables already set win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "storefront"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    getEnvDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Security: SecurityConfig{
			AllowedOrigins:      getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://admin.storefront.example"}),
			AllowedMethods:      getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:      getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			AllowCredentials:    getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:          getEnvInt("CORS_MAX_AGE", utils.CORSMaxAge),
			GlobalRateLimit:     getEnvInt("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			CSPPolicy:           getEnvString("CSP_POLICY", "default-src 'self'"),
			XFrameOptions:       getEnvString("X_FRAME_OPTIONS", "DENY"),
			XContentTypeOptions: getEnvString("X_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:      getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			HSTSMaxAge:          getEnvInt("HSTS_MAX_AGE", 31536000), // 1 year
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			PrivateKey:     getEnvString("JWT_PRIVATE_KEY", ""),
			PublicKey:      getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:     getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "storefront"),
			Audience:       getEnvString("JWT_AUDIENCE", "storefront-api"),
		},
		WhatsApp: WhatsAppConfig{
			Provider:         getEnvString("WHATSAPP_PROVIDER", "mock"),
			APIBaseURL:       getEnvString("WHATSAPP_API_BASE_URL", "https://graph.facebook.com/v19.0"),
			PhoneNumberID:    getEnvString("WHATSAPP_PHONE_NUMBER_ID", ""),
			AccessToken:      getEnvString("WHATSAPP_ACCESS_TOKEN", ""),
			TemplateName:     getEnvString("WHATSAPP_TEMPLATE_NAME", ""),
			TemplateLanguage: getEnvString("WHATSAPP_TEMPLATE_LANGUAGE", "en"),
			Timeout:          getEnvDuration("WHATSAPP_TIMEOUT", 15*time.Second),
		},
		Campaign: CampaignConfig{
			StatusMode:             getEnvString("CAMPAIGN_STATUS_MODE", CampaignStatusModeStaged),
			DispatchTimeout:        getEnvDuration("CAMPAIGN_DISPATCH_TIMEOUT", 15*time.Minute),
			MinPhoneLength:         getEnvInt("CAMPAIGN_MIN_PHONE_LENGTH", utils.MinRecipientPhoneLength),
			RecentOrdersWindow:     getEnvDuration("CAMPAIGN_RECENT_ORDERS_WINDOW", utils.RecentOrdersWindow),
			HighValueOrderTotal:    getEnvFloat("CAMPAIGN_HIGH_VALUE_TOTAL", utils.HighValueOrderTotal),
			FrequentBuyerMinOrders: getEnvInt("CAMPAIGN_FREQUENT_BUYER_MIN_ORDERS", utils.FrequentBuyerMinOrders),
			PremiumTierThreshold:   getEnvFloat("CAMPAIGN_PREMIUM_TIER_THRESHOLD", utils.PremiumTierThreshold),
			GoldTierThreshold:      getEnvFloat("CAMPAIGN_GOLD_TIER_THRESHOLD", utils.GoldTierThreshold),
			CurrencySymbol:         getEnvString("CAMPAIGN_CURRENCY_SYMBOL", utils.DefaultCurrencySymbol),
			CurrencyLocale:         getEnvString("CAMPAIGN_CURRENCY_LOCALE", "en-IN"),
		},
		Logging: LoggingConfig{
			Level:           getEnvString("LOG_LEVEL", "info"),
			Format:          getEnvString("LOG_FORMAT", "json"),
			Output:          getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:        getEnvString("LOG_FILE_PATH", "/var/log/storefront-campaigns/app.log"),
			MaxSize:         getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:      getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:          getEnvInt("LOG_MAX_AGE", 30),
			Compress:        getEnvBool("LOG_COMPRESS", true),
			EnableAccessLog: getEnvBool("LOG_ENABLE_ACCESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:             getEnvBool("CACHE_ENABLED", true),
			Provider:            getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:            getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:             getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:         getEnvString("CACHE_REDIS_PREFIX", "campaigns:"),
			DefaultTTL:          getEnvDuration("CACHE_DEFAULT_TTL", 10*time.Minute),
			CleanupInterval:     getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			HealthCheckInterval: getEnvDuration("CACHE_HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Deployment: DeploymentConfig{
			Domain:      getEnvString("DOMAIN", "storefront.example"),
			APIDomain:   getEnvString("API_DOMAIN", "api.storefront.example"),
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration and reports every violation
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	// Validate database configuration
	if cfg.Database.Host == "" {
		add("DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		add("DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		add("DB_NAME is required")
	}
	if cfg.Database.User == "" {
		add("DB_USER is required")
	}
	if cfg.Database.Password == "" {
		add("DB_PASSWORD is required")
	}

	// Validate JWT configuration
	if cfg.JWT.UseRSAKeys {
		if cfg.JWT.PublicKey == "" {
			add("JWT_PUBLIC_KEY is required when JWT_USE_RSA_KEYS is true")
		}
	} else if len(cfg.JWT.SecretKey) < 32 {
		add("JWT_SECRET_KEY must be at least 32 characters long")
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		add("JWT_ACCESS_TOKEN_TTL must be positive")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		add("SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		add("SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		add("SERVER_WRITE_TIMEOUT must be positive")
	}

	// Validate WhatsApp configuration unless mocked
	switch cfg.WhatsApp.Provider {
	case "mock":
	case "cloud":
		if cfg.WhatsApp.PhoneNumberID == "" {
			add("WHATSAPP_PHONE_NUMBER_ID is required for the cloud provider")
		}
		if cfg.WhatsApp.AccessToken == "" {
			add("WHATSAPP_ACCESS_TOKEN is required for the cloud provider")
		}
		if cfg.WhatsApp.Timeout <= 0 {
			add("WHATSAPP_TIMEOUT must be positive")
		}
	default:
		add("WHATSAPP_PROVIDER must be one of: cloud, mock")
	}

	// Validate campaign configuration
	if cfg.Campaign.StatusMode != CampaignStatusModeStaged && cfg.Campaign.StatusMode != CampaignStatusModeLegacy {
		add("CAMPAIGN_STATUS_MODE must be one of: %s, %s", CampaignStatusModeStaged, CampaignStatusModeLegacy)
	}
	if cfg.Campaign.DispatchTimeout <= 0 {
		add("CAMPAIGN_DISPATCH_TIMEOUT must be positive")
	}
	if cfg.Campaign.MinPhoneLength <= 0 {
		add("CAMPAIGN_MIN_PHONE_LENGTH must be positive")
	}
	if cfg.Campaign.GoldTierThreshold > cfg.Campaign.PremiumTierThreshold {
		add("CAMPAIGN_GOLD_TIER_THRESHOLD must not exceed CAMPAIGN_PREMIUM_TIER_THRESHOLD")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		add("LOG_LEVEL must be one of: %v", validLevels)
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		add("LOG_OUTPUT must be one of: %v", validOutputs)
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		add("LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			add("CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
		if cfg.Cache.DefaultTTL <= 0 {
			add("CACHE_DEFAULT_TTL must be positive")
		}
	}

	if result != nil {
		return fmt.Errorf("configuration validation failed: %w", result.ErrorOrNil())
	}

	return nil
}
