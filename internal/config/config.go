package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxBodyBytes is the request body limit applied by the HTTP server (16 MiB).
const DefaultMaxBodyBytes = 16 * 1024 * 1024

// DatabaseConfig holds PostgreSQL settings for the generated-document registry.
// The registry is optional: an empty Host selects the in-memory implementation.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	// ApplicationName tags registry sessions in pg_stat_activity.
	ApplicationName string
	// Schema, when set, becomes the session search_path.
	Schema string
	// ConnectTimeout bounds both the dial and the startup ping.
	ConnectTimeout time.Duration
	// Required disables the in-memory fallback when the database cannot be reached.
	Required bool
}

// Enabled reports whether a PostgreSQL registry has been configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects where files are kept.
// Uploads always land in UploadDir; generated documents go to OutputDir unless Backend is "minio".
type StorageConfig struct {
	Backend   string
	UploadDir string
	OutputDir string
}

// OCRConfig configures the text-recognition engine.
type OCRConfig struct {
	Language       string
	Timeout        time.Duration
	MinWidth       int
	MaxPixels      int
	TessdataPrefix string
}

// RenderConfig configures the PDF renderer.
type RenderConfig struct {
	Compress bool
}

// RetentionConfig controls eviction of generated documents.
// A zero TTL keeps documents forever.
type RetentionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is built once at startup from environment variables and passed down explicitly.
type AppConfig struct {
	AppHost        string
	Port           string
	Timezone       string
	MaxBodyBytes   int
	AllowedOrigins []string
	Storage        StorageConfig
	OCR            OCRConfig
	Render         RenderConfig
	Retention      RetentionConfig
	Database       DatabaseConfig
	MinIO          MinIOConfig
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

var defaultOrigins = []string{
	"http://localhost:5500",
	"http://127.0.0.1:5500",
	"http://localhost:5000",
	"http://127.0.0.1:5000",
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:        getEnv("APP_HOST", "localhost:5000"),
		Port:           getEnv("PORT", "5000"),
		Timezone:       getEnv("APP_TIMEZONE", "UTC"),
		MaxBodyBytes:   getEnvInt("MAX_BODY_BYTES", DefaultMaxBodyBytes),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", defaultOrigins),
		Storage: StorageConfig{
			Backend:   strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			UploadDir: getEnv("UPLOAD_DIR", "uploads"),
			OutputDir: getEnv("OUTPUT_DIR", "descargos"),
		},
		OCR: OCRConfig{
			Language:       getEnv("OCR_LANGUAGE", "spa"),
			Timeout:        getEnvDuration("OCR_TIMEOUT", 60*time.Second),
			MinWidth:       getEnvInt("OCR_MIN_WIDTH", 1000),
			MaxPixels:      getEnvInt("OCR_MAX_PIXELS", 178_956_970),
			TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
		},
		Render: RenderConfig{
			Compress: getEnvBool("PDF_COMPRESS", true),
		},
		Retention: RetentionConfig{
			TTL:           getEnvDuration("DOCUMENT_TTL", 24*time.Hour),
			SweepInterval: getEnvDuration("RETENTION_SWEEP_INTERVAL", 10*time.Minute),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ApplicationName:    getEnv("DB_APPLICATION_NAME", "impugnaya"),
			Schema:             getEnv("DB_SCHEMA", ""),
			ConnectTimeout:     getEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			Required:           getEnvBool("DB_REQUIRED", false),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("90s", "24h") and "0" to disable.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d >= 0 {
			return d
		}
	}
	return def
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return append([]string(nil), def...)
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}
