package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env      string         `yaml:"env" env:"SERVER_ENV" env-default:"development"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	Storage  StorageConfig  `yaml:"storage"`
	Media    MediaConfig    `yaml:"media"`
	Purge    PurgeConfig    `yaml:"purge"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	SecureCookies   bool          `yaml:"secure_cookies" env:"SECURE_COOKIES" env-default:"false"`
}

type DatabaseConfig struct {
	// Driver is sqlite3 or pgx
	Driver  string        `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite3"`
	DSN     string        `yaml:"dsn" env:"DB_DSN" env-default:"planx.db"`
	Timeout time.Duration `yaml:"timeout" env:"DB_TIMEOUT" env-default:"10s"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"JWT_TTL" env-default:"24h"`
	OTPTTL    time.Duration `yaml:"otp_ttl" env:"OTP_TTL" env-default:"10m"`
}

type MailConfig struct {
	// An empty host logs mail instead of sending it
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"EMAIL"`
	Password string `yaml:"password" env:"PASSWORD"`
	From     string `yaml:"from" env:"MAIL_FROM"`
}

type StorageConfig struct {
	// Driver is s3 or disk
	Driver          string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"disk"`
	Bucket          string `yaml:"bucket" env:"AWS_BUCKET_NAME"`
	Region          string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint        string `yaml:"endpoint" env:"AWS_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	PublicBaseURL   string `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL"`
	Dir             string `yaml:"dir" env:"STORAGE_DIR" env-default:"uploads"`
}

type MediaConfig struct {
	MaxImageWidth  int    `yaml:"max_image_width" env:"MEDIA_MAX_IMAGE_WIDTH" env-default:"1024"`
	VideoWidth     int    `yaml:"video_width" env:"MEDIA_VIDEO_WIDTH" env-default:"640"`
	FFmpegPath     string `yaml:"ffmpeg_path" env:"FFMPEG_PATH" env-default:"ffmpeg"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"MEDIA_MAX_UPLOAD_BYTES" env-default:"104857600"`
}

type PurgeConfig struct {
	Interval  time.Duration `yaml:"interval" env:"PURGE_INTERVAL" env-default:"1h"`
	Retention time.Duration `yaml:"retention" env:"PURGE_RETENTION" env-default:"720h"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// NewLogger builds the process logger. Format is text or json; an
// unknown level falls back to info.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Load reads .env (if present), the YAML file at path (if present) and the
// environment, in that order of increasing precedence.
func Load(path string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, cfg.Validate()
}

// Path returns the config file location from CONFIG_PATH
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func (c Config) Validate() error {
	if !slices.Contains([]string{"sqlite3", "pgx"}, c.Database.Driver) {
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must be set")
	}
	switch c.Storage.Driver {
	case "disk":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be s3 or disk, got %q", c.Storage.Driver)
	}
	if c.Auth.JWTSecret == "" && c.Env != EnvDevelopment {
		return errors.New("auth.jwt_secret must be set outside development")
	}
	if c.Media.MaxImageWidth <= 0 || c.Media.VideoWidth <= 0 {
		return errors.New("media widths must be positive")
	}
	if c.Purge.Interval <= 0 {
		return errors.New("purge.interval must be positive")
	}
	return nil
}

// EnsureJWTSecret fills an empty JWT secret with a random one that only
// lives as long as the process. It reports whether it did so.
func (c *Config) EnsureJWTSecret() (bool, error) {
	if c.Auth.JWTSecret != "" {
		return false, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return false, fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	c.Auth.JWTSecret = hex.EncodeToString(b)
	return true, nil
}

// Dump writes the configuration as YAML with secrets redacted
func (c Config) Dump(w io.Writer) error {
	redacted := c
	redacted.Auth.JWTSecret = redact(c.Auth.JWTSecret)
	redacted.Mail.Password = redact(c.Mail.Password)
	redacted.Storage.SecretAccessKey = redact(c.Storage.SecretAccessKey)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(redacted); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
