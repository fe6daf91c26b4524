package config

import (
	"testing"
	"time"
)

func TestDefaultConfigPassesValidate(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidateCatalogRequiresHost(t *testing.T) {
	cfg := defaultConfig()
	cfg.Catalog.Host = ""
	cfg.Catalog.HostAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when both dbhost and dbhostaddr are empty")
	}
}

func TestValidateCatalogPortRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Catalog.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for dbport=0")
	}
	cfg.Catalog.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for dbport>65535")
	}
}

func TestValidateSMTPOnlyWhenEnabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.SMTP.AlertsEnabled = false
	cfg.SMTP.Server = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled smtp block should skip validation: %v", err)
	}

	cfg.SMTP.AlertsEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enabled smtp with no server")
	}
}

func TestValidateLoggingLevel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestEnvTransformFuncMapsKnownKeys(t *testing.T) {
	cases := map[string]string{
		"DBHOST":                "catalog.dbhost",
		"DBPORT":                "catalog.dbport",
		"MAINTENANCE_INTERVAL":  "maintenance.maintenance_interval",
		"SMTP_ALERTS":           "smtp.smtp_alerts",
		"SOME_UNRELATED_THING":  "",
	}
	for in, want := range cases {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultConfigRetryInterval(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Catalog.ConnectRetryInterval != 10*time.Second {
		t.Fatalf("unexpected default retry interval: %v", cfg.Catalog.ConnectRetryInterval)
	}
}
