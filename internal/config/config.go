package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"invscreen/internal/screening"
)

// Ledger storage backends.
const (
	LedgerBackendPostgres = "postgres"
	LedgerBackendCSV      = "csv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Log       LogConfig
	CORS      CORSConfig
	Ledger    LedgerConfig
	Screening ScreeningConfig
	S3        S3Config
	Alert     AlertConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LedgerConfig selects where clean invoices are stored.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
	CSVDir  string `mapstructure:"csv_dir"`
}

// ScreeningConfig holds detector tuning and batch limits.
type ScreeningConfig struct {
	InflationRate      float64 `mapstructure:"inflation_rate"`
	PriceMargin        float64 `mapstructure:"price_margin"`
	HighValueThreshold float64 `mapstructure:"high_value_threshold"`
	BatchConcurrency   int     `mapstructure:"batch_concurrency"`
}

// Options converts the configuration into detector options. The HSN lookup is
// attached separately once the master table is loaded.
func (s *ScreeningConfig) Options() screening.Options {
	return screening.Options{
		InflationRate:      s.InflationRate,
		PriceMargin:        s.PriceMargin,
		HighValueThreshold: s.HighValueThreshold,
	}
}

// S3Config holds the verdict archive bucket. An empty bucket disables archiving.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// AlertConfig holds flag alert delivery settings.
type AlertConfig struct {
	Provider    string   `mapstructure:"provider"`
	Region      string   `mapstructure:"region"`
	FromAddress string   `mapstructure:"from_address"`
	FromName    string   `mapstructure:"from_name"`
	Recipients  []string `mapstructure:"recipients"`
}

// Load reads configuration from environment variables with the INVSCREEN_
// prefix. A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("INVSCREEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "invscreen")
	v.SetDefault("db.password", "invscreen_secret")
	v.SetDefault("db.name", "invscreen_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	v.SetDefault("ledger.backend", LedgerBackendPostgres)
	v.SetDefault("ledger.csv_dir", "data/ledgers")

	v.SetDefault("screening.inflation_rate", 0.05)
	v.SetDefault("screening.price_margin", 0.20)
	v.SetDefault("screening.high_value_threshold", 10000)
	v.SetDefault("screening.batch_concurrency", 4)

	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "verdicts")

	v.SetDefault("alert.provider", "noop")
	v.SetDefault("alert.region", "ap-south-1")
	v.SetDefault("alert.from_address", "alerts@invscreen.local")
	v.SetDefault("alert.from_name", "Invoice Screening")
	v.SetDefault("alert.recipients", "")

	envBindings := map[string]string{
		"server.port":                    "INVSCREEN_SERVER_PORT",
		"server.read_timeout":            "INVSCREEN_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "INVSCREEN_SERVER_WRITE_TIMEOUT",
		"server.environment":             "INVSCREEN_SERVER_ENVIRONMENT",
		"db.host":                        "INVSCREEN_DB_HOST",
		"db.port":                        "INVSCREEN_DB_PORT",
		"db.user":                        "INVSCREEN_DB_USER",
		"db.password":                    "INVSCREEN_DB_PASSWORD",
		"db.name":                        "INVSCREEN_DB_NAME",
		"db.sslmode":                     "INVSCREEN_DB_SSLMODE",
		"db.max_open":                    "INVSCREEN_DB_MAX_OPEN",
		"db.max_idle":                    "INVSCREEN_DB_MAX_IDLE",
		"log.level":                      "INVSCREEN_LOG_LEVEL",
		"log.format":                     "INVSCREEN_LOG_FORMAT",
		"cors.allowed_origins":           "INVSCREEN_CORS_ALLOWED_ORIGINS",
		"ledger.backend":                 "INVSCREEN_LEDGER_BACKEND",
		"ledger.csv_dir":                 "INVSCREEN_LEDGER_CSV_DIR",
		"screening.inflation_rate":       "INVSCREEN_SCREENING_INFLATION_RATE",
		"screening.price_margin":         "INVSCREEN_SCREENING_PRICE_MARGIN",
		"screening.high_value_threshold": "INVSCREEN_SCREENING_HIGH_VALUE_THRESHOLD",
		"screening.batch_concurrency":    "INVSCREEN_SCREENING_BATCH_CONCURRENCY",
		"s3.region":                      "INVSCREEN_S3_REGION",
		"s3.bucket":                      "INVSCREEN_S3_BUCKET",
		"s3.endpoint":                    "INVSCREEN_S3_ENDPOINT",
		"s3.access_key":                  "INVSCREEN_S3_ACCESS_KEY",
		"s3.secret_key":                  "INVSCREEN_S3_SECRET_KEY",
		"s3.prefix":                      "INVSCREEN_S3_PREFIX",
		"alert.provider":                 "INVSCREEN_ALERT_PROVIDER",
		"alert.region":                   "INVSCREEN_ALERT_REGION",
		"alert.from_address":             "INVSCREEN_ALERT_FROM_ADDRESS",
		"alert.from_name":                "INVSCREEN_ALERT_FROM_NAME",
		"alert.recipients":               "INVSCREEN_ALERT_RECIPIENTS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Platforms like Railway set PORT; honour it unless the explicit variable is set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("INVSCREEN_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{AllowedOrigins: splitList(v.GetString("cors.allowed_origins"))}

	cfg.Ledger = LedgerConfig{
		Backend: strings.ToLower(v.GetString("ledger.backend")),
		CSVDir:  v.GetString("ledger.csv_dir"),
	}
	switch cfg.Ledger.Backend {
	case LedgerBackendPostgres, LedgerBackendCSV:
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}

	cfg.Screening = ScreeningConfig{
		InflationRate:      v.GetFloat64("screening.inflation_rate"),
		PriceMargin:        v.GetFloat64("screening.price_margin"),
		HighValueThreshold: v.GetFloat64("screening.high_value_threshold"),
		BatchConcurrency:   v.GetInt("screening.batch_concurrency"),
	}
	if cfg.Screening.BatchConcurrency < 1 {
		cfg.Screening.BatchConcurrency = 1
	}

	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		Prefix:    v.GetString("s3.prefix"),
	}

	cfg.Alert = AlertConfig{
		Provider:    v.GetString("alert.provider"),
		Region:      v.GetString("alert.region"),
		FromAddress: v.GetString("alert.from_address"),
		FromName:    v.GetString("alert.from_name"),
		Recipients:  splitList(v.GetString("alert.recipients")),
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
