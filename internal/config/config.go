package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	SinkNone       = "none"
	SinkGoogleDocs = "googledocs"
	SinkS3         = "s3"

	defaultWorkerPoolSize = 8
)

type Config struct {
	WSPort string

	DBDriver   string
	Host       string
	Port       string
	User       string
	Password   string
	DbName     string
	SQLitePath string

	JWTSecret string
	DevUser   string

	RedisAddr string

	Sink                  string
	GoogleCredentialsFile string
	Bucket                string
	Region                string

	WorkerPoolSize int
}

// Load reads envFile (when present) into the process environment and builds a
// Config from it. Every missing required variable is reported in one error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var missing []string
	must := func(name string) string {
		val := os.Getenv(name)
		if val == "" {
			missing = append(missing, name)
		}
		return val
	}

	cfg := &Config{
		WSPort:                must("WS_PORT"),
		DBDriver:              strings.ToLower(must("DB_DRIVER")),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		DevUser:               os.Getenv("AUTH_DEV_USER"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		Sink:                  strings.ToLower(os.Getenv("SYNC_SINK")),
		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		Bucket:                os.Getenv("BUCKET_NAME"),
		Region:                os.Getenv("REGION"),
		WorkerPoolSize:        defaultWorkerPoolSize,
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		cfg.Host = must("POSTGRESS_HOST")
		cfg.Port = must("POSTGRESS_PORT")
		cfg.User = must("POSTGRESS_USER")
		cfg.Password = must("POSTGRESS_PASSWORD")
		cfg.DbName = must("POSTGRESS_DB_NAME")
	case DriverSQLite:
		cfg.SQLitePath = must("SQLITE_PATH")
	case "":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.JWTSecret == "" && cfg.DevUser == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if cfg.Sink == "" {
		cfg.Sink = SinkNone
	}
	switch cfg.Sink {
	case SinkNone:
	case SinkGoogleDocs:
		cfg.GoogleCredentialsFile = must("GOOGLE_CREDENTIALS_FILE")
	case SinkS3:
		cfg.Bucket = must("BUCKET_NAME")
		cfg.Region = must("REGION")
	default:
		return nil, fmt.Errorf("unsupported SYNC_SINK %q", cfg.Sink)
	}

	if raw := os.Getenv("WORKER_POOL_SIZE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("WORKER_POOL_SIZE must be a positive integer, got %q", raw)
		}
		cfg.WorkerPoolSize = n
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}
	return cfg, nil
}

// PostgresDSN builds the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DbName,
	)
}
