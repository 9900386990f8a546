package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

var configVars = []string{
	"WS_PORT", "DB_DRIVER", "POSTGRESS_HOST", "POSTGRESS_PORT", "POSTGRESS_USER",
	"POSTGRESS_PASSWORD", "POSTGRESS_DB_NAME", "SQLITE_PATH", "JWT_SECRET", "AUTH_DEV_USER",
	"REDIS_ADDR", "SYNC_SINK", "GOOGLE_CREDENTIALS_FILE", "BUCKET_NAME", "REGION", "WORKER_POOL_SIZE",
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range configVars {
		t.Setenv(name, "")
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadSQLite(t *testing.T) {
	clearEnv(t)
	t.Setenv("WS_PORT", "8001")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/forms.db")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assert.Equal(t, cfg.DBDriver, DriverSQLite)
	assert.Equal(t, cfg.SQLitePath, "/tmp/forms.db")
	assert.Equal(t, cfg.Sink, SinkNone)
	assert.Equal(t, cfg.WorkerPoolSize, defaultWorkerPoolSize)
}

func TestLoadReportsAllMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "postgres")

	_, err := Load(noEnvFile(t))
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, name := range []string{"WS_PORT", "POSTGRESS_HOST", "POSTGRESS_DB_NAME", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error %q does not mention %s", err, name)
		}
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	for _, name := range configVars {
		os.Unsetenv(name)
	}
	path := filepath.Join(t.TempDir(), "test.env")
	content := "WS_PORT=9000\nDB_DRIVER=postgres\nPOSTGRESS_HOST=db\nPOSTGRESS_PORT=5432\n" +
		"POSTGRESS_USER=u\nPOSTGRESS_PASSWORD=p\nPOSTGRESS_DB_NAME=plans\nAUTH_DEV_USER=dev\n" +
		"SYNC_SINK=s3\nBUCKET_NAME=plans-bucket\nREGION=eu-west-1\nWORKER_POOL_SIZE=3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assert.Equal(t, cfg.WSPort, "9000")
	assert.Equal(t, cfg.Sink, SinkS3)
	assert.Equal(t, cfg.Bucket, "plans-bucket")
	assert.Equal(t, cfg.WorkerPoolSize, 3)
	assert.Equal(t, cfg.PostgresDSN(), "host=db port=5432 user=u password=p dbname=plans sslmode=disable")
}

func TestLoadRejectsUnknownSink(t *testing.T) {
	clearEnv(t)
	t.Setenv("WS_PORT", "8001")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "forms.db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SYNC_SINK", "dropbox")

	if _, err := Load(noEnvFile(t)); err == nil {
		t.Fatalf("expected error for unknown sink")
	}
}
