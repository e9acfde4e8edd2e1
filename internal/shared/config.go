package shared

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./checkgate.db"
	} `yaml:"database"`

	Policy struct {
		Path string `yaml:"path"` // "./policies/default.yaml"
	} `yaml:"policy"`

	Signals struct {
		Path string `yaml:"path"` // "./signals.yaml"
	} `yaml:"signals"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	Server struct {
		Addr            string   `yaml:"addr"`              // ":8080"
		SessionTTLHours int      `yaml:"session_ttl_hours"` // 12
		AllowedOrigins  []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./checkgate.db"
	c.Policy.Path = "./policies/default.yaml"
	c.Reporting.OutDir = "./reports"
	c.Server.Addr = ":8080"
	c.Server.SessionTTLHours = 12
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("CHECKGATE_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CHECKGATE_POLICY"); v != "" {
		c.Policy.Path = v
	}
	if v := os.Getenv("CHECKGATE_SIGNALS"); v != "" {
		c.Signals.Path = v
	}
	if v := os.Getenv("CHECKGATE_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("CHECKGATE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CHECKGATE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CHECKGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return c, nil
}
