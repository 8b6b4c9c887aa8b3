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
	AppPort           string
	JWTSecret         string
	SessionCookieName string
	SessionTTLHours   int
	SecureCookies     bool
	// Database
	DBDriver    string // mysql | postgres | sqlite
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// OAuth providers
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectBase  string
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	GinMode            string
	GinPath            string
	// Feeds
	IndexPageSize     int
	GroupPageSize     int
	ProfilePageSize   int
	FollowPageSize    int
	CacheBackend      string // redis | memory
	IndexCacheSeconds int
	// Redis for caching, token revocation and oauth state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Image storage
	StorageBackend string // local | minio
	UploadDir      string
	MediaURL       string
	MaxImageMB     int
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
	// Events
	KafkaBrokers []string
	KafkaTopic   string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Admins may create groups
	AdminUsernames []string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides
	_ = godotenv.Load()
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

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

// Set replaces the cached configuration. Missing values are filled with defaults.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped JSON sections into out if the file is present.
// Returns error only for invalid JSON.
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
	section := func(name string) map[string]any {
		m, _ := raw[name].(map[string]any)
		if m == nil {
			return map[string]any{}
		}
		return m
	}

	app := section("app")
	out.AppPort = getString(app, "AppPort")
	out.JWTSecret = getString(app, "JWTSecret")
	out.SessionCookieName = getString(app, "SessionCookieName")
	out.SessionTTLHours = getInt(app, "SessionTTLHours")
	out.SecureCookies = getBool(app, "SecureCookies")
	out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
	out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
	out.GinMode = getString(app, "GinMode")
	out.GinPath = getString(app, "GinPath")
	out.AdminUsernames = getStringSlice(app, "AdminUsernames")

	feed := section("feed")
	out.IndexPageSize = getInt(feed, "IndexPageSize")
	out.GroupPageSize = getInt(feed, "GroupPageSize")
	out.ProfilePageSize = getInt(feed, "ProfilePageSize")
	out.FollowPageSize = getInt(feed, "FollowPageSize")
	out.CacheBackend = getString(feed, "CacheBackend")
	out.IndexCacheSeconds = getInt(feed, "IndexCacheSeconds")

	db := section("db")
	out.DBDriver = getString(db, "Driver")
	out.DatabaseURI = getString(db, "DatabaseURI")
	out.DBHost = getString(db, "Host")
	out.DBPort = getString(db, "Port")
	out.DBUser = getString(db, "User")
	out.DBPassword = getString(db, "Password")
	out.DBName = getString(db, "Name")

	redis := section("redis")
	out.RedisHost = getString(redis, "Host")
	out.RedisPort = getInt(redis, "Port")
	out.RedisDB = getInt(redis, "DB")
	out.RedisPassword = getString(redis, "Password")

	storage := section("storage")
	out.StorageBackend = getString(storage, "Backend")
	out.UploadDir = getString(storage, "UploadDir")
	out.MediaURL = getString(storage, "MediaURL")
	out.MaxImageMB = getInt(storage, "MaxImageMB")
	out.MinioEndpoint = getString(storage, "MinioEndpoint")
	out.MinioAccessKey = getString(storage, "MinioAccessKey")
	out.MinioSecretKey = getString(storage, "MinioSecretKey")
	out.MinioBucket = getString(storage, "MinioBucket")
	out.MinioUseSSL = getBool(storage, "MinioUseSSL")
	out.MinioPublicURL = getString(storage, "MinioPublicURL")

	kafka := section("kafka")
	out.KafkaBrokers = getStringSlice(kafka, "Brokers")
	out.KafkaTopic = getString(kafka, "Topic")

	oauth := section("oauth")
	out.GitHubClientID = getString(oauth, "GitHubClientID")
	out.GitHubClientSecret = getString(oauth, "GitHubClientSecret")
	out.GoogleClientID = getString(oauth, "GoogleClientID")
	out.GoogleClientSecret = getString(oauth, "GoogleClientSecret")
	out.OAuthRedirectBase = getString(oauth, "RedirectBase")

	logging := section("log")
	out.LogLevel = getString(logging, "Level")
	out.LogPath = getString(logging, "Path")
	out.LogMaxSizeMB = getInt(logging, "MaxSizeMB")
	out.LogMaxBackups = getInt(logging, "MaxBackups")
	out.LogMaxAgeDays = getInt(logging, "MaxAgeDays")
	out.LogCompress = getBool(logging, "Compress")

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "yatube_session"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 72
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
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = "http://localhost:8000"
	}
	if c.IndexPageSize == 0 {
		c.IndexPageSize = 10
	}
	if c.GroupPageSize == 0 {
		c.GroupPageSize = 10
	}
	if c.ProfilePageSize == 0 {
		c.ProfilePageSize = 10
	}
	if c.FollowPageSize == 0 {
		c.FollowPageSize = 10
	}
	if c.CacheBackend == "" {
		c.CacheBackend = "redis"
	}
	if c.IndexCacheSeconds == 0 {
		c.IndexCacheSeconds = 20
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "yatube"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.StorageBackend == "" {
		c.StorageBackend = "local"
	}
	if c.UploadDir == "" {
		c.UploadDir = "media"
	}
	if c.MediaURL == "" {
		c.MediaURL = "/media/"
	}
	if c.MaxImageMB == 0 {
		c.MaxImageMB = 5
	}
	if c.MinioBucket == "" {
		c.MinioBucket = "yatube"
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = "yatube.events"
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
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	strs := map[string]*string{
		"APP_PORT":             &c.AppPort,
		"JWT_SECRET":           &c.JWTSecret,
		"SESSION_COOKIE_NAME":  &c.SessionCookieName,
		"GIN_MODE":             &c.GinMode,
		"GIN_PATH":             &c.GinPath,
		"DB_DRIVER":            &c.DBDriver,
		"DATABASE_URI":         &c.DatabaseURI,
		"DB_HOST":              &c.DBHost,
		"DB_PORT":              &c.DBPort,
		"DB_USER":              &c.DBUser,
		"DB_PASSWORD":          &c.DBPassword,
		"DB_NAME":              &c.DBName,
		"GITHUB_CLIENT_ID":     &c.GitHubClientID,
		"GITHUB_CLIENT_SECRET": &c.GitHubClientSecret,
		"GOOGLE_CLIENT_ID":     &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": &c.GoogleClientSecret,
		"OAUTH_REDIRECT_BASE":  &c.OAuthRedirectBase,
		"CACHE_BACKEND":        &c.CacheBackend,
		"REDIS_HOST":           &c.RedisHost,
		"REDIS_PASSWORD":       &c.RedisPassword,
		"STORAGE_BACKEND":      &c.StorageBackend,
		"UPLOAD_DIR":           &c.UploadDir,
		"MEDIA_URL":            &c.MediaURL,
		"MINIO_ENDPOINT":       &c.MinioEndpoint,
		"MINIO_ACCESS_KEY":     &c.MinioAccessKey,
		"MINIO_SECRET_KEY":     &c.MinioSecretKey,
		"MINIO_BUCKET":         &c.MinioBucket,
		"MINIO_PUBLIC_URL":     &c.MinioPublicURL,
		"KAFKA_TOPIC":          &c.KafkaTopic,
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_PATH":             &c.LogPath,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SESSION_TTL_HOURS":   &c.SessionTTLHours,
		"RATE_LIMIT":          &c.RateLimitPerMinute,
		"INDEX_PAGE_SIZE":     &c.IndexPageSize,
		"GROUP_PAGE_SIZE":     &c.GroupPageSize,
		"PROFILE_PAGE_SIZE":   &c.ProfilePageSize,
		"FOLLOW_PAGE_SIZE":    &c.FollowPageSize,
		"INDEX_CACHE_SECONDS": &c.IndexCacheSeconds,
		"REDIS_PORT":          &c.RedisPort,
		"REDIS_DB":            &c.RedisDB,
		"MAX_IMAGE_MB":        &c.MaxImageMB,
		"LOG_MAX_SIZE_MB":     &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":     &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":    &c.LogMaxAgeDays,
	}
	for key, dst := range ints {
		if v := getEnv(key, ""); v != "" {
			*dst = mustParseInt(v)
		}
	}

	bools := map[string]*bool{
		"SECURE_COOKIES": &c.SecureCookies,
		"MINIO_USE_SSL":  &c.MinioUseSSL,
		"LOG_COMPRESS":   &c.LogCompress,
	}
	for key, dst := range bools {
		if v := getEnv(key, ""); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	c.AllowedOrigins = readListEnv("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.KafkaBrokers = readListEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
}

func mustParseInt(val string) int {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Fatalf("invalid integer value %q: %v", val, err)
	}
	return n
}

func readListEnv(key string, defaults []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaults
	}
	return splitAndTrim(raw)
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
