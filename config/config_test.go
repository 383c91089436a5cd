package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/recordbase/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s
  admin:
    enabled: true
    token_hash: "$2a$10$abc"

database:
  driver: "sqlite"
  dsn: ":memory:"

models:
  dir: "./models"
  per_page: 50

logging:
  level: "debug"
  format: "console"
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if !cfg.Server.Admin.Enabled {
		t.Error("Admin.Enabled = false, want true")
	}
	if cfg.Server.Admin.TokenHash != "$2a$10$abc" {
		t.Errorf("Admin.TokenHash = %q", cfg.Server.Admin.TokenHash)
	}
	if cfg.Database.DSN != ":memory:" {
		t.Errorf("DSN = %s, want :memory:", cfg.Database.DSN)
	}
	if cfg.Models.Dir != "./models" {
		t.Errorf("Models.Dir = %s, want ./models", cfg.Models.Dir)
	}
	if cfg.Models.PerPage != 50 {
		t.Errorf("Models.PerPage = %d, want 50", cfg.Models.PerPage)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("Addr = %s, want 127.0.0.1:9090", cfg.Server.Addr())
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, `
models:
  dir: "./models"
`)

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("default RequestTimeout = %v, want 30s", cfg.Server.RequestTimeout)
	}
	if cfg.Server.Admin.Enabled {
		t.Error("default Admin.Enabled = true, want false")
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("default Driver = %s, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "recordbase.db" {
		t.Errorf("default DSN = %s, want recordbase.db", cfg.Database.DSN)
	}
	if cfg.Models.PerPage != 20 {
		t.Errorf("default PerPage = %d, want 20", cfg.Models.PerPage)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Format = %s, want json", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("default Metrics.Enabled = false, want true")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics.Path = %s, want /metrics", cfg.Metrics.Path)
	}
}

func TestLoad_MemoryDriverHasNoDSN(t *testing.T) {
	cfg := writeAndLoad(t, `
database:
  driver: memory
models:
  dir: "./models"
`)
	if cfg.Database.DSN != "" {
		t.Errorf("DSN = %q, want empty", cfg.Database.DSN)
	}
}

func TestLoad_MetricsDisabled(t *testing.T) {
	cfg := writeAndLoad(t, `
models:
  dir: "./models"
metrics:
  enabled: false
`)
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_MODELS_DIR", "/srv/models")

	cfg := writeAndLoad(t, `
models:
  dir: "${TEST_MODELS_DIR}"
`)
	if cfg.Models.Dir != "/srv/models" {
		t.Errorf("Models.Dir = %s, want /srv/models", cfg.Models.Dir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RECORDBASE_SERVER_PORT", "7070")
	t.Setenv("RECORDBASE_DATABASE_DRIVER", "memory")
	t.Setenv("RECORDBASE_LOG_LEVEL", "warn")
	t.Setenv("RECORDBASE_METRICS_ENABLED", "no")
	t.Setenv("RECORDBASE_ADMIN_ENABLED", "on")
	t.Setenv("RECORDBASE_MODELS_PER_PAGE", "5")

	cfg := writeAndLoad(t, `
server:
  port: 9090
models:
  dir: "./models"
logging:
  level: debug
`)

	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("Driver = %s, want memory", cfg.Database.Driver)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %s, want warn", cfg.Logging.Level)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if !cfg.Server.Admin.Enabled {
		t.Error("Admin.Enabled = false, want true")
	}
	if cfg.Models.PerPage != 5 {
		t.Errorf("PerPage = %d, want 5", cfg.Models.PerPage)
	}
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("RECORDBASE_SERVER_PORT", "not-a-port")
	t.Setenv("RECORDBASE_SERVER_READ_TIMEOUT", "soon")

	cfg := writeAndLoad(t, `
models:
  dir: "./models"
`)
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing models dir",
			content: "server:\n  port: 8080\n",
			wantErr: "models.dir is required",
		},
		{
			name:    "unknown driver",
			content: "models:\n  dir: m\ndatabase:\n  driver: postgres\n",
			wantErr: "database.driver",
		},
		{
			name:    "port out of range",
			content: "models:\n  dir: m\nserver:\n  port: 70000\n",
			wantErr: "server.port",
		},
		{
			name:    "negative per page",
			content: "models:\n  dir: m\n  per_page: -1\n",
			wantErr: "models.per_page",
		},
		{
			name:    "bad log level",
			content: "models:\n  dir: m\nlogging:\n  level: loud\n",
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			content: "models:\n  dir: m\nlogging:\n  format: xml\n",
			wantErr: "logging.format",
		},
		{
			name:    "relative metrics path",
			content: "models:\n  dir: m\nmetrics:\n  path: metrics\n",
			wantErr: "metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := config.Parse([]byte("models: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Errorf("error = %v, want parse config error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RECORDBASE_MODELS_DIR", "/models")
	t.Setenv("RECORDBASE_DATABASE_DSN", "/data/rb.db")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Models.Dir != "/models" {
		t.Errorf("Models.Dir = %s, want /models", cfg.Models.Dir)
	}
	if cfg.Database.DSN != "/data/rb.db" {
		t.Errorf("DSN = %s, want /data/rb.db", cfg.Database.DSN)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoadFromEnv_Missing(t *testing.T) {
	t.Setenv("RECORDBASE_MODELS_DIR", "")
	if _, err := config.LoadFromEnv(); err == nil {
		t.Error("expected error without RECORDBASE_MODELS_DIR")
	}
}

func TestLoadWithFallback(t *testing.T) {
	t.Run("file wins", func(t *testing.T) {
		t.Setenv("RECORDBASE_MODELS_DIR", "")
		path := writeConfig(t, "models:\n  dir: from-file\n")
		cfg, err := config.LoadWithFallback(path)
		if err != nil {
			t.Fatalf("LoadWithFallback error: %v", err)
		}
		if cfg.Models.Dir != "from-file" {
			t.Errorf("Models.Dir = %s, want from-file", cfg.Models.Dir)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("RECORDBASE_MODELS_DIR", "from-env")
		cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "none.yaml"))
		if err != nil {
			t.Fatalf("LoadWithFallback error: %v", err)
		}
		if cfg.Models.Dir != "from-env" {
			t.Errorf("Models.Dir = %s, want from-env", cfg.Models.Dir)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		t.Setenv("RECORDBASE_MODELS_DIR", "")
		if _, err := config.LoadWithFallback(""); err == nil {
			t.Error("expected error with no file and no env")
		}
	})
}

func TestHasEnvConfig(t *testing.T) {
	t.Setenv("RECORDBASE_MODELS_DIR", "")
	if config.HasEnvConfig() {
		t.Error("HasEnvConfig = true without env")
	}
	t.Setenv("RECORDBASE_MODELS_DIR", "x")
	if !config.HasEnvConfig() {
		t.Error("HasEnvConfig = false with env")
	}
}

// Helpers

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := config.Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
