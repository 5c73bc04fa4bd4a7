// Package config loads the bridge configuration from a YAML file with
// MYHOME_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the bridge.
type Config struct {
	Hub         HubConfig     `yaml:"hub"`
	MQTT        MQTTConfig    `yaml:"mqtt"`
	Poll        PollConfig    `yaml:"poll"`
	HTTP        HTTPConfig    `yaml:"http"`
	Logging     LoggingConfig `yaml:"logging"`
	SSDP        SSDPConfig    `yaml:"ssdp"`
	EntriesPath string        `yaml:"entries_path"`
}

// HubConfig bootstraps a hub entry on first start. Host may be empty when
// SSDP discovery is enabled.
type HubConfig struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type MQTTConfig struct {
	Broker          MQTTBrokerConfig `yaml:"broker"`
	Username        string           `yaml:"username"`
	Password        string           `yaml:"password"`
	DiscoveryPrefix string           `yaml:"discovery_prefix"`
	NodeID          string           `yaml:"node_id"`
	QoS             byte             `yaml:"qos"`
}

type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// URL returns the broker address in the form accepted by paho.
func (b MQTTBrokerConfig) URL() string {
	return fmt.Sprintf("tcp://%s:%d", b.Host, b.Port)
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	Parallel int           `yaml:"parallel"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SSDPConfig struct {
	Enabled      bool          `yaml:"enabled"`
	SearchTarget string        `yaml:"search_target"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result.
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

// Default returns the defaults with environment overrides applied, for
// running without a config file.
func Default() (*Config, error) {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Username: "admin",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "myhome-bridge",
			},
			DiscoveryPrefix: "homeassistant",
			NodeID:          "myhome",
			QoS:             1,
		},
		Poll: PollConfig{
			Interval: 30 * time.Second,
			Parallel: 10,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		SSDP: SSDPConfig{
			Enabled:      false,
			SearchTarget: "urn:schemas-upnp-org:device:Basic:1",
			Timeout:      3 * time.Second,
		},
		EntriesPath: "./data/entries.json",
	}
}

// applyEnvOverrides applies MYHOME_SECTION_KEY variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MYHOME_HUB_HOST"); v != "" {
		cfg.Hub.Host = v
	}
	if v := os.Getenv("MYHOME_HUB_USERNAME"); v != "" {
		cfg.Hub.Username = v
	}
	if v := os.Getenv("MYHOME_HUB_PASSWORD"); v != "" {
		cfg.Hub.Password = v
	}

	if v := os.Getenv("MYHOME_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MYHOME_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MYHOME_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MYHOME_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	if v := os.Getenv("MYHOME_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Poll.Interval = d
		}
	}
	if v := os.Getenv("MYHOME_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("MYHOME_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MYHOME_ENTRIES_PATH"); v != "" {
		cfg.EntriesPath = v
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.DiscoveryPrefix == "" {
		errs = append(errs, "mqtt.discovery_prefix is required")
	}
	if c.MQTT.NodeID == "" || strings.ContainsAny(c.MQTT.NodeID, "/+#") {
		errs = append(errs, "mqtt.node_id must be a non-empty topic segment")
	}

	if c.Poll.Interval < time.Second {
		errs = append(errs, "poll.interval must be at least 1s")
	}
	if c.Poll.Parallel < 1 {
		errs = append(errs, "poll.parallel must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, "logging.format must be json or console")
	}

	if c.EntriesPath == "" {
		errs = append(errs, "entries_path is required")
	}
	if c.SSDP.Enabled && c.SSDP.Timeout <= 0 {
		errs = append(errs, "ssdp.timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
