package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once at startup.
type Config struct {
	NodeEnv  string
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Label    LabelConfig
}

type ServerConfig struct {
	Port           string
	FrontendDir    string
	AllowedOrigins []string
}

// DatabaseConfig selects and addresses the label store. An empty Password
// with Host localhost starts an embedded postgres.
type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	Host       string
	Port       string
	Username   string
	Password   string
	Database   string
	SQLitePath string
	Alter      bool
}

type LoggerConfig struct {
	Mode  string
	Level string
}

// LabelConfig carries generator and sheet defaults.
type LabelConfig struct {
	QRSize           int
	QRBackground     string
	DateLayout       string
	TimeLayout       string
	BatchConcurrency int
	MaxBatchQuantity int
	SheetCols        int
	SheetRows        int
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		NodeEnv: str("NODE_ENV", "development"),
		Server: ServerConfig{
			Port:           str("PORT", "3210"),
			FrontendDir:    os.Getenv("FRONTEND_DIR"),
			AllowedOrigins: env("ALLOWED_ORIGINS", []string(nil), splitList),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(str("DB_DRIVER", "postgres")),
			Host:       str("PG_HOST", "localhost"),
			Port:       str("PG_PORT", "5432"),
			Username:   str("PG_USERNAME", "postgres"),
			Password:   os.Getenv("PG_PASSWORD"),
			Database:   str("PG_DATABASE", "clamflow_labels"),
			SQLitePath: str("SQLITE_PATH", "labels.db"),
			Alter:      env("DB_ALTER", false, strconv.ParseBool),
		},
		Logger: LoggerConfig{
			Mode:  str("LOG_MODE", "development"),
			Level: str("LOG_LEVEL", "debug"),
		},
		Label: LabelConfig{
			QRSize:           env("LABEL_QR_SIZE", 200, strconv.Atoi),
			QRBackground:     str("LABEL_QR_BACKGROUND", "#FFFFFF"),
			DateLayout:       str("LABEL_DATE_LAYOUT", "1/2/2006"),
			TimeLayout:       str("LABEL_TIME_LAYOUT", "3:04:05 PM"),
			BatchConcurrency: env("LABEL_BATCH_CONCURRENCY", 8, strconv.Atoi),
			MaxBatchQuantity: env("LABEL_MAX_BATCH_QUANTITY", 10000, strconv.Atoi),
			SheetCols:        env("LABEL_SHEET_COLS", 3, strconv.Atoi),
			SheetRows:        env("LABEL_SHEET_ROWS", 7, strconv.Atoi),
		},
	}

	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Label.QRSize <= 0 || cfg.Label.QRSize > 2000 {
		return nil, fmt.Errorf("LABEL_QR_SIZE must be within 1..2000, got %d", cfg.Label.QRSize)
	}
	cfg.Label.BatchConcurrency = max(cfg.Label.BatchConcurrency, 1)

	return cfg, nil
}

// env parses key with parse, keeping fallback when the variable is unset
// or malformed.
func env[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func str(key, fallback string) string {
	return env(key, fallback, func(s string) (string, error) { return s, nil })
}

func splitList(raw string) ([]string, error) {
	items := strings.Split(raw, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items, nil
}
