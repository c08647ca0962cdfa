// Package config handles loading and validating solar poller configuration.
//
// This package manages:
//   - Loading configuration from YAML or TOML files
//   - Overriding secrets with environment variables
//   - Validation of required database and inverter keys
//   - Default value handling (15s request timeout, 180s/900s cadence)
//
// Security Considerations:
//   - Passwords should be set via SOLARPOLLER_* environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Inverter.StatusURL)
package config
