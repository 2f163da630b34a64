package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	PublicBaseURL      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Store selection: mongo, mysql, postgres or sqlite
	StoreDriver string
	// MongoDB
	MongoURI                 string
	MongoDB                  string
	MongoTimeoutSec          int
	MongoDisableTransactions bool
	// SQL (gorm)
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	// OAuth providers
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	// Redis for caching, token revocation and registration throttling
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Registration security
	RegisterCaptchaEnabled        bool
	RegisterMaxPerIPPerDay        int
	RegisterAttemptCooldownSec    int
	RegisterFailedMaxPerIPPerHour int
	RegisterTempBanMinutes        int
	// Uploads
	UploadDir      string
	UploadMaxBytes int64
}

// IsDevelopment reports whether internal error details may be exposed to clients.
func (c AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.GinMode, "debug")
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> .env -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("config/config.json ignored: %v", err)
	}

	applyDefaults(&cfg)

	// .env is optional; real environment variables still win because godotenv never overrides them.
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	deriveURLs(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set installs c as the active configuration after applying defaults.
// Tests use it to run without config files or environment.
func Set(c AppConfig) {
	applyDefaults(&c)
	deriveURLs(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.PublicBaseURL = getString(app, "PublicBaseURL")
		out.StoreDriver = getString(app, "StoreDriver")
	}

	if mg, ok := raw["mongo"].(map[string]any); ok {
		out.MongoURI = getString(mg, "URI")
		out.MongoDB = getString(mg, "Database")
		out.MongoTimeoutSec = getInt(mg, "TimeoutSec")
		out.MongoDisableTransactions = getBool(mg, "DisableTransactions")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.SQLitePath = getString(dbs, "SQLitePath")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if oa, ok := raw["oauth"].(map[string]any); ok {
		out.GitHubClientID = getString(oa, "GitHubClientID")
		out.GitHubClientSecret = getString(oa, "GitHubClientSecret")
		out.GoogleClientID = getString(oa, "GoogleClientID")
		out.GoogleClientSecret = getString(oa, "GoogleClientSecret")
		out.OAuthRedirectBase = getString(oa, "RedirectBase")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if rg, ok := raw["register"].(map[string]any); ok {
		out.RegisterCaptchaEnabled = getBool(rg, "CaptchaEnabled")
		out.RegisterMaxPerIPPerDay = getInt(rg, "MaxPerIPPerDay")
		out.RegisterAttemptCooldownSec = getInt(rg, "AttemptCooldownSec")
		out.RegisterFailedMaxPerIPPerHour = getInt(rg, "FailedMaxPerIPPerHour")
		out.RegisterTempBanMinutes = getInt(rg, "TempBanMinutes")
	}

	if up, ok := raw["upload"].(map[string]any); ok {
		out.UploadDir = getString(up, "Dir")
		out.UploadMaxBytes = int64(getInt(up, "MaxBytes"))
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "5000"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 7 * 24
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.StoreDriver == "" {
		c.StoreDriver = "mongo"
	}
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://localhost:27017"
	}
	if c.MongoDB == "" {
		c.MongoDB = "social_media"
	}
	if c.MongoTimeoutSec == 0 {
		c.MongoTimeoutSec = 10
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
		if strings.EqualFold(c.StoreDriver, "postgres") {
			c.DBPort = "5432"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "social_media"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/social.db"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 5
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
	if c.RegisterFailedMaxPerIPPerHour == 0 {
		c.RegisterFailedMaxPerIPPerHour = 20
	}
	if c.RegisterTempBanMinutes == 0 {
		c.RegisterTempBanMinutes = 60
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join("static", "uploads")
	}
	if c.UploadMaxBytes == 0 {
		c.UploadMaxBytes = 5 * 1024 * 1024
	}
}

// deriveURLs fills URL settings that depend on the final port.
func deriveURLs(c *AppConfig) {
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:" + c.AppPort
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = c.PublicBaseURL
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("PORT", &c.AppPort)
	setString("JWT_SECRET", &c.JWTSecret)
	setInt("TOKEN_TTL_HOURS", &c.TokenTTLHours)
	setInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	setString("PUBLIC_BASE_URL", &c.PublicBaseURL)
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)

	setString("STORE_DRIVER", &c.StoreDriver)
	setString("MONGO_URI", &c.MongoURI)
	setString("MONGO_DB", &c.MongoDB)
	setInt("MONGO_TIMEOUT_SEC", &c.MongoTimeoutSec)
	if v := getEnv("MONGO_TRANSACTIONS", ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MongoDisableTransactions = !b
		}
	}

	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)
	setString("SQLITE_PATH", &c.SQLitePath)

	setString("GITHUB_CLIENT_ID", &c.GitHubClientID)
	setString("GITHUB_CLIENT_SECRET", &c.GitHubClientSecret)
	setString("GOOGLE_CLIENT_ID", &c.GoogleClientID)
	setString("GOOGLE_CLIENT_SECRET", &c.GoogleClientSecret)
	setString("OAUTH_REDIRECT_BASE", &c.OAuthRedirectBase)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	setBool("REGISTER_CAPTCHA_ENABLED", &c.RegisterCaptchaEnabled)
	setInt("REGISTER_MAX_PER_IP_PER_DAY", &c.RegisterMaxPerIPPerDay)
	setInt("REGISTER_ATTEMPT_COOLDOWN_SEC", &c.RegisterAttemptCooldownSec)
	setInt("REGISTER_FAILED_MAX_PER_IP_PER_HOUR", &c.RegisterFailedMaxPerIPPerHour)
	setInt("REGISTER_TEMP_BAN_MINUTES", &c.RegisterTempBanMinutes)

	setString("UPLOAD_DIR", &c.UploadDir)
	if v := getEnv("UPLOAD_MAX_BYTES", ""); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.UploadMaxBytes = n
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
