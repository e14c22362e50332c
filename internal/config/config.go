package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. Secrets and
// deployment-specific values can be overridden through the environment.
type FileConfig struct {
	Port               string `yaml:"port"`
	LogLevel           string `yaml:"logLevel"`
	DatabaseURL        string `yaml:"databaseURL"`
	UploadDir          string `yaml:"uploadDir"`
	PortalBaseURL      string `yaml:"portalBaseURL"`
	MaxUploadBytes     int64  `yaml:"maxUploadBytes"`
	MaxFilesPerRequest int    `yaml:"maxFilesPerRequest"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	GoogleSheetID         string `yaml:"googleSheetId"`
	GoogleCredentialsFile string `yaml:"googleCredentialsFile"`

	SendgridAPIKey    string `yaml:"sendgridApiKey"`
	SendgridFromEmail string `yaml:"sendgridFromEmail"`
	SendgridFromName  string `yaml:"sendgridFromName"`
	NotifyEmail       string `yaml:"notifyEmail"`
	CCEmail           string `yaml:"ccEmail"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("PORTAL_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("PORTAL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("PORTAL_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("PORTAL_UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("PORTAL_BASE_URL"); v != "" {
		cfg.PortalBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("PORTAL_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("PORTAL_MAX_FILES_PER_REQUEST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxFilesPerRequest = n
		}
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("GOOGLE_SHEET_ID"); v != "" {
		cfg.GoogleSheetID = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS_FILE"); v != "" {
		cfg.GoogleCredentialsFile = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.SendgridAPIKey = v
	}
	if v := os.Getenv("SENDGRID_FROM_EMAIL"); v != "" {
		cfg.SendgridFromEmail = v
	}
	if v := os.Getenv("SENDGRID_FROM_NAME"); v != "" {
		cfg.SendgridFromName = v
	}
	if v := os.Getenv("NOTIFY_EMAIL"); v != "" {
		cfg.NotifyEmail = v
	}
	if v := os.Getenv("CC_EMAIL"); v != "" {
		cfg.CCEmail = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or PORTAL_DATABASE_URL)")
	}
	if cfg.MinioEndpoint == "" && strings.TrimSpace(cfg.UploadDir) == "" {
		return errors.New("config: uploadDir is required when no minio endpoint is configured")
	}
	if cfg.MaxUploadBytes < 0 || cfg.MaxFilesPerRequest < 0 {
		return errors.New("config: upload limits must be >= 0")
	}
	if cfg.SendgridAPIKey != "" && cfg.SendgridFromEmail == "" {
		return errors.New("config: sendgridFromEmail is required when sendgridApiKey is set")
	}
	return nil
}
