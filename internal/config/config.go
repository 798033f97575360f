package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort               = "8080"
	defaultDatabaseURL        = "intakeflow.db"
	defaultStorageType        = "local"
	defaultUploadDir          = "./uploads"
	defaultMaxFileSize        = "30MB"
	defaultTruncMinDeclared   = "1MB"
	defaultTruncMaxReceived   = "1KB"
	defaultPipelineWorkers    = "4"
	defaultShutdownTimeout    = "30s"
	defaultTranscribeProvider = "openai"
	defaultOpenAIBaseURL      = "https://api.openai.com"
	defaultWhisperModel       = "whisper-1"
	defaultAnthropicBaseURL   = "https://api.anthropic.com"
	defaultClaudeModel        = "claude-sonnet-4-20250514"
	defaultProviderTimeout    = "5m"
	defaultSpeechLanguage     = "zh-TW"
	defaultThumbCacheSize     = "256"
	defaultJWTSecret          = "change-me-jwt-secret"
)

type StorageConfig struct {
	Type       string
	UploadDir  string
	S3Endpoint string
	S3Access   string
	S3Secret   string
	S3Bucket   string
	S3Region   string
	S3UseSSL   bool
	GCSBucket  string
}

type UploadConfig struct {
	TempDir       string
	MaxFileSize   int64
	TruncMinBytes int64 // declared Content-Length at or above which truncation is suspected
	TruncMaxBytes int64 // received byte count at or below which truncation is suspected
}

type PipelineConfig struct {
	MockAudio       bool
	Concurrency     int
	ShutdownTimeout time.Duration
}

type ProviderConfig struct {
	TranscribeProvider string
	OpenAIKey          string
	OpenAIBaseURL      string
	WhisperModel       string
	AnthropicKey       string
	AnthropicBaseURL   string
	ClaudeModel        string
	Timeout            time.Duration
	SpeechLanguage     string
}

type AuthConfig struct {
	JWTSecret string
	Required  bool
}

type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	CORSAllowedOrigins []string
	ThumbnailCacheSize int

	Storage   StorageConfig
	Upload    UploadConfig
	Pipeline  PipelineConfig
	Providers ProviderConfig
	Auth      AuthConfig
}

// Load reads the runtime configuration from the environment. A .env file in
// the working directory is applied first when present; real env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	var err error
	if cfg.ThumbnailCacheSize, err = parseIntEnv("THUMBNAIL_CACHE_SIZE", defaultThumbCacheSize); err != nil {
		return nil, err
	}

	cfg.Storage = StorageConfig{
		Type:       strings.ToLower(strings.TrimSpace(getEnv("STORAGE_TYPE", defaultStorageType))),
		UploadDir:  strings.TrimSpace(getEnv("UPLOAD_DIR", defaultUploadDir)),
		S3Endpoint: strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3Access:   strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3Secret:   strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		S3Bucket:   strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:   strings.TrimSpace(os.Getenv("S3_REGION")),
		S3UseSSL:   parseBoolEnv("S3_USE_SSL", "true"),
		GCSBucket:  strings.TrimSpace(os.Getenv("GCS_BUCKET")),
	}

	cfg.Upload.TempDir = strings.TrimSpace(getEnv("TEMP_DIR", os.TempDir()))
	if cfg.Upload.MaxFileSize, err = parseSizeEnv("MAX_FILE_SIZE", defaultMaxFileSize); err != nil {
		return nil, err
	}
	if cfg.Upload.TruncMinBytes, err = parseSizeEnv("TRUNCATION_MIN_DECLARED", defaultTruncMinDeclared); err != nil {
		return nil, err
	}
	if cfg.Upload.TruncMaxBytes, err = parseSizeEnv("TRUNCATION_MAX_RECEIVED", defaultTruncMaxReceived); err != nil {
		return nil, err
	}

	cfg.Pipeline.MockAudio = parseBoolEnv("MOCK_AUDIO_PROCESSING", "false")
	if cfg.Pipeline.Concurrency, err = parseIntEnv("PIPELINE_CONCURRENCY", defaultPipelineWorkers); err != nil {
		return nil, err
	}
	if cfg.Pipeline.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}

	cfg.Providers = ProviderConfig{
		TranscribeProvider: strings.ToLower(strings.TrimSpace(getEnv("TRANSCRIBE_PROVIDER", defaultTranscribeProvider))),
		OpenAIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:      strings.TrimRight(strings.TrimSpace(getEnv("OPENAI_BASE_URL", defaultOpenAIBaseURL)), "/"),
		WhisperModel:       strings.TrimSpace(getEnv("WHISPER_MODEL", defaultWhisperModel)),
		AnthropicKey:       strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		AnthropicBaseURL:   strings.TrimRight(strings.TrimSpace(getEnv("ANTHROPIC_BASE_URL", defaultAnthropicBaseURL)), "/"),
		ClaudeModel:        strings.TrimSpace(getEnv("CLAUDE_MODEL", defaultClaudeModel)),
		SpeechLanguage:     strings.TrimSpace(getEnv("GCP_SPEECH_LANGUAGE", defaultSpeechLanguage)),
	}
	if cfg.Providers.Timeout, err = parseDurationEnv("PROVIDER_TIMEOUT", defaultProviderTimeout); err != nil {
		return nil, err
	}

	cfg.Auth = AuthConfig{
		JWTSecret: strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret)),
		Required:  parseBoolEnv("AUTH_REQUIRED", "false"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the app runs in a prod-like environment.
func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	switch cfg.Storage.Type {
	case "local", "s3", "gcs", "nas":
	default:
		return fmt.Errorf("STORAGE_TYPE must be one of: local, s3, gcs, nas")
	}
	switch cfg.Providers.TranscribeProvider {
	case "openai", "gcp":
	default:
		return fmt.Errorf("TRANSCRIBE_PROVIDER must be one of: openai, gcp")
	}
	if cfg.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be > 0")
	}
	if cfg.Pipeline.Concurrency < 1 {
		return fmt.Errorf("PIPELINE_CONCURRENCY must be >= 1")
	}
	if cfg.Providers.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	if cfg.ThumbnailCacheSize < 1 {
		return fmt.Errorf("THUMBNAIL_CACHE_SIZE must be >= 1")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.Auth.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

// parseSizeEnv accepts plain byte counts or a KB/MB/GB suffix (binary units).
func parseSizeEnv(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := ParseSize(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func ParseSize(value string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(value))
	mult := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(v, unit.suffix) {
			v = strings.TrimSpace(strings.TrimSuffix(v, unit.suffix))
			mult = unit.mult
			break
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("size must not be negative")
	}
	return n * mult, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
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
