package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic WHA
// gateway. All configuration is loaded from YAML and can be overridden
// by environment variables.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Serial  SerialConfig  `yaml:"serial"`
	TCP     TCPConfig     `yaml:"tcp"`
	Amp     AmpConfig     `yaml:"amp"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    string `yaml:"broker"`
	ClientID  string `yaml:"client_id"`
	TopicBase string `yaml:"topic_base"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// SerialConfig contains settings for a directly attached serial port.
type SerialConfig struct {
	Device      string        `yaml:"device"`
	Baud        BaudSetting   `yaml:"baud"`
	AdjustBaud  AdjustSetting `yaml:"adjust_baud"`
	ResetBaud   bool          `yaml:"reset_baud"`
	ReadTimeout Duration      `yaml:"read_timeout"`
}

// TCPConfig contains settings for an amplifier chain reached through a
// remote serial bridge.
type TCPConfig struct {
	Address     string   `yaml:"address"`
	ReadTimeout Duration `yaml:"read_timeout"`
}

// AmpConfig describes the amplifier chain and what the gateway exposes
// from it.
type AmpConfig struct {
	PollInterval Duration               `yaml:"poll_interval"`
	Manufacturer string                 `yaml:"manufacturer"`
	Model        string                 `yaml:"model"`
	Serial       string                 `yaml:"serial"`
	Sources      map[string]SourceEntry `yaml:"sources"`
	Zones        map[string]ZoneEntry   `yaml:"zones"`
}

// Duration wraps time.Duration so YAML values use Go duration strings
// ("500ms", "1s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %v", value.Kind)
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BaudSetting selects the serial line rate: a fixed rate, or automatic
// detection ("auto").
type BaudSetting struct {
	Auto bool
	Rate int
}

// UnmarshalYAML implements yaml.Unmarshaler. Accepts "auto" or a
// numeric rate.
func (b *BaudSetting) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("baud must be a scalar, got %v", value.Kind)
	}
	raw := value.Value
	if raw == "" || strings.EqualFold(raw, "auto") {
		*b = BaudSetting{Auto: true}
		return nil
	}
	rate, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid baud %q: want auto or a numeric rate", raw)
	}
	*b = BaudSetting{Rate: rate}
	return nil
}

// AdjustSetting selects the baud renegotiation target applied after the
// line is up: disabled ("off"), the fastest supported rate ("max"), or
// a fixed rate.
type AdjustSetting struct {
	Off  bool
	Max  bool
	Rate int
}

// UnmarshalYAML implements yaml.Unmarshaler. Accepts "off", "max" or a
// numeric rate. Note that an unquoted off arrives as a boolean-tagged
// scalar, so the raw node text is inspected rather than decoded.
func (a *AdjustSetting) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("adjust_baud must be a scalar, got %v", value.Kind)
	}
	raw := value.Value
	switch {
	case raw == "" || strings.EqualFold(raw, "off"):
		*a = AdjustSetting{Off: true}
	case strings.EqualFold(raw, "max"):
		*a = AdjustSetting{Max: true}
	default:
		rate, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid adjust_baud %q: want off, max or a numeric rate", raw)
		}
		*a = AdjustSetting{Rate: rate}
	}
	return nil
}

// ZoneEntry configures one addressable id. YAML accepts either a bare
// name string or a mapping with a name key.
type ZoneEntry struct {
	Name string `yaml:"name"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (z *ZoneEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&z.Name)
	}
	type plain ZoneEntry
	return value.Decode((*plain)(z))
}

// SourceEntry configures one source input. YAML accepts either a bare
// name string (enabled) or a mapping with name and enabled keys;
// omitting enabled in the mapping form means enabled.
type SourceEntry struct {
	Name    string
	Enabled bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *SourceEntry) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if err := value.Decode(&s.Name); err != nil {
			return err
		}
		s.Enabled = true
		return nil
	}
	var aux struct {
		Name    string `yaml:"name"`
		Enabled *bool  `yaml:"enabled"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	s.Name = aux.Name
	s.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYWHA_SECTION_KEY
// For example: GRAYWHA_MQTT_BROKER, GRAYWHA_SERIAL_DEVICE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			ClientID:  "graywha",
			TopicBase: "mwha/",
		},
		Serial: SerialConfig{
			Baud:        BaudSetting{Auto: true},
			AdjustBaud:  AdjustSetting{Off: true},
			ResetBaud:   true,
			ReadTimeout: Duration(time.Second),
		},
		TCP: TCPConfig{
			ReadTimeout: Duration(time.Second),
		},
		Amp: AmpConfig{
			PollInterval: Duration(500 * time.Millisecond),
			Manufacturer: "Monoprice",
			Model:        "MPR-6ZHMAUT",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables follow the pattern:
// GRAYWHA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Logging
	if v := os.Getenv("GRAYWHA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GRAYWHA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// MQTT
	if v := os.Getenv("GRAYWHA_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("GRAYWHA_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.ClientID = v
	}
	if v := os.Getenv("GRAYWHA_MQTT_TOPIC_BASE"); v != "" {
		cfg.MQTT.TopicBase = v
	}
	if v := os.Getenv("GRAYWHA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("GRAYWHA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	// Transports
	if v := os.Getenv("GRAYWHA_SERIAL_DEVICE"); v != "" {
		cfg.Serial.Device = v
	}
	if v := os.Getenv("GRAYWHA_TCP_ADDRESS"); v != "" {
		cfg.TCP.Address = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required")
	} else if !strings.Contains(c.MQTT.Broker, "://") {
		errs = append(errs, "mqtt.broker must be a URL (tcp://host:port or ssl://host:port)")
	}
	if c.MQTT.ClientID == "" {
		errs = append(errs, "mqtt.client_id is required")
	}
	if strings.ContainsAny(c.MQTT.TopicBase, "+#") {
		errs = append(errs, "mqtt.topic_base must not contain wildcard characters")
	}

	// Transport validation: exactly one of serial or TCP.
	hasSerial := c.Serial.Device != ""
	hasTCP := c.TCP.Address != ""
	switch {
	case hasSerial && hasTCP:
		errs = append(errs, "serial.device and tcp.address are mutually exclusive; configure exactly one transport")
	case !hasSerial && !hasTCP:
		errs = append(errs, "one of serial.device or tcp.address is required")
	}

	if hasSerial {
		if !c.Serial.Baud.Auto && c.Serial.Baud.Rate <= 0 {
			errs = append(errs, "serial.baud must be auto or a positive rate")
		}
		if !c.Serial.AdjustBaud.Off && !c.Serial.AdjustBaud.Max && c.Serial.AdjustBaud.Rate <= 0 {
			errs = append(errs, "serial.adjust_baud must be off, max or a positive rate")
		}
		if c.Serial.ReadTimeout.Std() <= 0 {
			errs = append(errs, "serial.read_timeout must be positive")
		}
	}
	if hasTCP && c.TCP.ReadTimeout.Std() <= 0 {
		errs = append(errs, "tcp.read_timeout must be positive")
	}

	// Amp validation
	if c.Amp.PollInterval.Std() <= 0 {
		errs = append(errs, "amp.poll_interval must be positive")
	}
	if len(c.Amp.Zones) == 0 {
		errs = append(errs, "amp.zones requires at least one zone")
	}
	for key, zone := range c.Amp.Zones {
		if zone.Name == "" {
			errs = append(errs, fmt.Sprintf("amp.zones[%s]: name is required", key))
		}
	}
	for key, source := range c.Amp.Sources {
		if source.Enabled && source.Name == "" {
			errs = append(errs, fmt.Sprintf("amp.sources[%s]: enabled sources need a name", key))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
