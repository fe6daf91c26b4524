package config

import "fmt"

// Validate checks that required configuration is present and internally
// consistent. It is called at the end of LoadWithKoanf.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalog() error {
	if c.Catalog.Host == "" && c.Catalog.HostAddr == "" {
		return fmt.Errorf("dbhost or dbhostaddr is required")
	}
	if c.Catalog.Name == "" {
		return fmt.Errorf("dbname is required")
	}
	if c.Catalog.User == "" {
		return fmt.Errorf("dbuser is required")
	}
	if c.Catalog.Port <= 0 || c.Catalog.Port > 65535 {
		return fmt.Errorf("dbport must be between 1 and 65535, got %d", c.Catalog.Port)
	}
	if c.Catalog.ConnectRetryInterval <= 0 {
		return fmt.Errorf("pg_connect_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if !c.SMTP.AlertsEnabled {
		return nil
	}
	if c.SMTP.Server == "" {
		return fmt.Errorf("smtp_server is required when smtp_alerts is enabled")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp_port must be between 1 and 65535, got %d", c.SMTP.Port)
	}
	if c.SMTP.FromAddress == "" {
		return fmt.Errorf("smtp_from_address is required when smtp_alerts is enabled")
	}
	if c.SMTP.CheckInterval <= 0 {
		return fmt.Errorf("alerts_check_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug|info|warn|error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
