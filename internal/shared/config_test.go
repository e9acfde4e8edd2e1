package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Database.DSN != "./checkgate.db" {
		t.Fatalf("dsn = %q", c.Database.DSN)
	}
	if c.Server.Addr != ":8080" || c.Server.SessionTTLHours != 12 {
		t.Fatalf("server defaults = %+v", c.Server)
	}
	if c.Logging.Format != "json" || c.Logging.Level != "info" {
		t.Fatalf("logging defaults = %+v", c.Logging)
	}
}

func TestLoadConfig_FileAndEnvPrecedence(t *testing.T) {
	p := filepath.Join(t.TempDir(), "checkgate.yaml")
	if err := os.WriteFile(p, []byte(`
database:
  dsn: ./from-file.db
policy:
  path: ./policies/file.yaml
logging:
  format: text
`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("CHECKGATE_DB_DSN", "./from-env.db")

	c, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Database.DSN != "./from-env.db" {
		t.Fatalf("env should win over file: %q", c.Database.DSN)
	}
	if c.Policy.Path != "./policies/file.yaml" {
		t.Fatalf("file should win over default: %q", c.Policy.Path)
	}
	if c.Logging.Format != "text" {
		t.Fatalf("format = %q", c.Logging.Format)
	}
	// untouched keys keep defaults
	if c.Reporting.OutDir != "./reports" {
		t.Fatalf("out_dir = %q", c.Reporting.OutDir)
	}
}
