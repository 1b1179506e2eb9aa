// Package config handles loading and validating Gray Logic WHA configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The schema covers the whole gateway: logging, the MQTT session, the
// amplifier transport (exactly one of a local serial device or a remote
// TCP serial bridge), and the amplifier inventory (poll interval, zone
// and source tables). Baud settings accept keyword forms ("auto",
// "max", "off") alongside literal rates, and zone/source entries accept
// a bare name string or a full mapping.
//
// Security Considerations:
//   - Sensitive values (MQTT credentials) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.MQTT.Broker)
//
// Related Documents:
//   - docs/operations/bootstrapping.md — Gateway initialisation procedures
package config
