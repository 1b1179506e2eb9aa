// Gray Logic WHA - Whole House Audio Gateway
//
// This is the main entry point for the Gray Logic whole-house audio
// gateway. It puts a Monoprice MPR-6ZHMAUT-family amplifier chain on
// the MQTT bus: zone state is polled over the serial link and
// published as retained messages, and per-attribute command topics
// accept writes for every zone, amp and the whole chain.
//
// For the protocol details, see: docs/protocols/mwha.md
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-wha/internal/bridges/mwha"
	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-wha/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic WHA gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Parse the zone and source tables before touching any hardware so
	// a typo in a key fails fast with a precise message.
	zones, err := parseZones(cfg.Amp.Zones)
	if err != nil {
		return fmt.Errorf("parsing zone config: %w", err)
	}
	sources, err := parseSources(cfg.Amp.Sources)
	if err != nil {
		return fmt.Errorf("parsing source config: %w", err)
	}
	log.Info("zone table parsed", "zones", len(zones), "sources", len(sources))

	// Connect to the MQTT broker. The will is registered before the
	// connect, so an unclean death flips the availability topic.
	mqttClient, err := mqtt.Connect(cfg.MQTT, log)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", cfg.MQTT.Broker,
		"client_id", cfg.MQTT.ClientID,
		"topic_base", mqttClient.Topics().Base(),
	)

	// Open the amplifier transport and bring the link up.
	port, err := openPort(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening amplifier port: %w", err)
	}

	driver, err := mwha.NewDriver(port, log)
	if err != nil {
		_ = port.Close()
		return fmt.Errorf("initialising amplifier driver: %w", err)
	}
	defer func() {
		log.Info("closing amplifier port")
		if closeErr := driver.Close(); closeErr != nil {
			log.Error("error closing amplifier port", "error", closeErr)
		}
	}()
	log.Info("amplifier link up",
		"manufacturer", cfg.Amp.Manufacturer,
		"model", cfg.Amp.Model,
		"serial", cfg.Amp.Serial,
	)

	// Start the bridge: subscriptions, metadata, worker.
	bridge, err := mwha.NewBridge(mwha.BridgeOptions{
		MQTT:         mqttClient,
		Amp:          driver,
		Topics:       mqttClient.Topics(),
		Zones:        zones,
		Sources:      sources,
		PollInterval: cfg.Amp.PollInterval.Std(),
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// The gateway has no reconnect story on either side: a lost broker
	// connection or a dead amplifier link ends the process, and the
	// supervisor restarts it from a clean slate.
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, cleaning up")
	case <-bridge.Fatal():
		return fmt.Errorf("amplifier bridge failed: %w", bridge.Err())
	case err := <-mqttClient.ConnectionLost():
		return fmt.Errorf("MQTT connection lost: %w", err)
	}

	log.Info("Gray Logic WHA gateway stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYWHA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYWHA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openPort opens the configured transport: a local serial device with
// baud negotiation, or a remote TCP serial bridge.
func openPort(ctx context.Context, cfg *config.Config, log *logging.Logger) (mwha.Port, error) {
	if cfg.TCP.Address != "" {
		log.Info("dialling TCP serial bridge", "address", cfg.TCP.Address)
		return mwha.DialTCP(ctx, cfg.TCP.Address, cfg.TCP.ReadTimeout.Std())
	}

	opts := mwha.SerialOptions{
		Device:      cfg.Serial.Device,
		ReadTimeout: cfg.Serial.ReadTimeout.Std(),
		ResetBaud:   cfg.Serial.ResetBaud,
		Logger:      log,
	}
	if !cfg.Serial.Baud.Auto {
		opts.Baud = cfg.Serial.Baud.Rate
	}
	switch {
	case cfg.Serial.AdjustBaud.Max:
		opts.AdjustBaud = mwha.MaxBaudRate()
	case cfg.Serial.AdjustBaud.Rate != 0:
		opts.AdjustBaud = cfg.Serial.AdjustBaud.Rate
	}

	log.Info("opening serial device",
		"device", opts.Device,
		"baud", describeBaud(cfg.Serial.Baud),
		"adjust_baud", describeAdjust(cfg.Serial.AdjustBaud),
	)
	return mwha.OpenSerialPort(opts)
}

// parseZones converts the configuration zone table into domain ids.
func parseZones(entries map[string]config.ZoneEntry) (map[mwha.ZoneID]mwha.ZoneConfig, error) {
	zones := make(map[mwha.ZoneID]mwha.ZoneConfig, len(entries))
	for key, entry := range entries {
		id, err := mwha.ParseZoneID(key)
		if err != nil {
			return nil, fmt.Errorf("zone %q: %w", key, err)
		}
		zones[id] = mwha.ZoneConfig{Name: entry.Name}
	}
	return zones, nil
}

// parseSources converts the configuration source table into domain ids.
func parseSources(entries map[string]config.SourceEntry) (map[mwha.SourceID]mwha.SourceConfig, error) {
	sources := make(map[mwha.SourceID]mwha.SourceConfig, len(entries))
	for key, entry := range entries {
		id, err := mwha.ParseSourceID(key)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", key, err)
		}
		sources[id] = mwha.SourceConfig{Name: entry.Name, Enabled: entry.Enabled}
	}
	return sources, nil
}

func describeBaud(b config.BaudSetting) string {
	if b.Auto {
		return "auto"
	}
	return fmt.Sprintf("%d", b.Rate)
}

func describeAdjust(a config.AdjustSetting) string {
	switch {
	case a.Max:
		return "max"
	case a.Off:
		return "off"
	default:
		return fmt.Sprintf("%d", a.Rate)
	}
}
