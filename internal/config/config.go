// Package config loads the bridge configuration from a TOML file,
// generating a commented default file on first run.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// defaultTOML is written verbatim when no config file exists yet.
const defaultTOML = `# godsmr-bridge configuration.

[serial]
# P1 port device and speed. DSMR 4 meters run at 115200 8N1.
device = "/dev/ttyUSB0"
baud_rate = 115200

[mqtt]
# Broker URL, e.g. "tcp://localhost:1883" or "ssl://broker:8883".
# Leave empty to disable MQTT publishing.
broker_url = ""
client_id = "godsmr-bridge"
# Telegrams go to <topic_prefix>/telegram, availability to <topic_prefix>/status.
topic_prefix = "dsmr"
username = ""
password = ""

[http]
# Listen address for /ws, /latest and /metrics.
# Leave empty to disable the HTTP server.
listen_address = ":9039"

[store]
# SQLite file for the reading log. Leave empty to disable.
path = "godsmr.db"
`

type Config struct {
	Serial SerialConfig `toml:"serial"`
	MQTT   MQTTConfig   `toml:"mqtt"`
	HTTP   HTTPConfig   `toml:"http"`
	Store  StoreConfig  `toml:"store"`
}

type SerialConfig struct {
	Device   string `toml:"device"`
	BaudRate uint   `toml:"baud_rate"`
}

type MQTTConfig struct {
	BrokerURL   string `toml:"broker_url"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
}

type HTTPConfig struct {
	ListenAddress string `toml:"listen_address"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// Load reads the config at path. A missing file is created from
// defaultTOML first, so an operator always has a commented template to
// edit. Keys the Config struct does not know are rejected.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(defaultTOML), 0o644); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the fields a running bridge cannot do without.
func (c *Config) Validate() error {
	if c.Serial.Device == "" {
		return fmt.Errorf("serial.device must be set")
	}
	if c.Serial.BaudRate == 0 {
		return fmt.Errorf("serial.baud_rate must be positive")
	}
	if c.MQTT.BrokerURL != "" {
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("mqtt.client_id must be set when mqtt is enabled")
		}
		if c.MQTT.TopicPrefix == "" || strings.HasPrefix(c.MQTT.TopicPrefix, "/") ||
			strings.HasSuffix(c.MQTT.TopicPrefix, "/") {
			return fmt.Errorf("mqtt.topic_prefix %q must be non-empty without leading or trailing slash", c.MQTT.TopicPrefix)
		}
	}
	return nil
}
