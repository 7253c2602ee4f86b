// Package config decodes the static bind-time configuration surface
// (host/port/credentials, timing knobs, operator tables, kvstore
// connection info) from YAML, applying the same defaults the worker's
// individual components already fall back to when left zero.
package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigError reports a configuration value that fails validation
// before any network activity starts, matching the fail-fast-at-startup
// requirement for invalid configuration.
type ConfigError struct {
	Field string
	Msg   string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// KVStoreConfig names the Redis connection a deployment points the
// correlation store at.
type KVStoreConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config is the full static bind-time configuration surface.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	SystemID         string `yaml:"system_id"`
	Password         string `yaml:"password"`
	SystemType       string `yaml:"system_type"`
	InterfaceVersion int    `yaml:"interface_version"`
	ServiceType      string `yaml:"service_type"`

	DestAddrTon int `yaml:"dest_addr_ton"`
	DestAddrNpi int `yaml:"dest_addr_npi"`
	SrcAddrTon  int `yaml:"source_addr_ton"`
	SrcAddrNpi  int `yaml:"source_addr_npi"`

	RegisteredDelivery bool `yaml:"registered_delivery"`

	BindMode string `yaml:"bind_mode"`

	SMPPBindTimeout         time.Duration `yaml:"smpp_bind_timeout"`
	SMPPEnquireLinkInterval time.Duration `yaml:"smpp_enquire_link_interval"`
	InitialReconnectDelay   time.Duration `yaml:"initial_reconnect_delay"`
	ThirdPartyIDExpiry      time.Duration `yaml:"third_party_id_expiry"`
	ThrottleDelay           time.Duration `yaml:"throttle_delay"`

	DeliveryReportRegex  string         `yaml:"delivery_report_regex"`
	DataCodingOverrides  map[int]string `yaml:"data_coding_overrides"`
	SendLongMessages     bool           `yaml:"send_long_messages"`
	SplitBindPrefix      string         `yaml:"split_bind_prefix"`

	CountryCode    string                       `yaml:"country_code"`
	OperatorPrefix map[string]map[string]string `yaml:"operator_prefix"`
	OperatorNumber map[string]string            `yaml:"operator_number"`

	KVStore KVStoreConfig `yaml:"kvstore"`
}

func (c *Config) setDefaults() {
	if c.InterfaceVersion == 0 {
		c.InterfaceVersion = 0x34
	}
	if c.DestAddrNpi == 0 {
		c.DestAddrNpi = 1
	}
	if c.SMPPBindTimeout == 0 {
		c.SMPPBindTimeout = 30 * time.Second
	}
	if c.SMPPEnquireLinkInterval == 0 {
		c.SMPPEnquireLinkInterval = 55 * time.Second
	}
	if c.InitialReconnectDelay == 0 {
		c.InitialReconnectDelay = 5 * time.Second
	}
	if c.ThirdPartyIDExpiry == 0 {
		c.ThirdPartyIDExpiry = 7 * 24 * time.Hour
	}
	if c.ThrottleDelay == 0 {
		c.ThrottleDelay = 100 * time.Millisecond
	}
	if c.BindMode == "" {
		c.BindMode = "transceiver"
	}
}

// Load decodes a Config from r, applies defaults for every zero-valued
// field listed in the configuration surface (registered_delivery is true
// unless the document sets it), and validates the fields that must be
// present before any network activity is attempted.
func Load(r io.Reader) (Config, error) {
	c := Config{RegisteredDelivery: true}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return Config{}, ConfigError{Field: "<root>", Msg: err.Error()}
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.Host == "" {
		return ConfigError{Field: "host", Msg: "must not be empty"}
	}
	if c.Port == 0 {
		return ConfigError{Field: "port", Msg: "must be set"}
	}
	if c.SystemID == "" {
		return ConfigError{Field: "system_id", Msg: "must not be empty"}
	}
	if c.Password == "" {
		return ConfigError{Field: "password", Msg: "must not be empty"}
	}
	switch c.BindMode {
	case "transceiver", "transmitter", "receiver":
	default:
		return ConfigError{Field: "bind_mode", Msg: "must be one of transceiver, transmitter, receiver"}
	}
	return nil
}

// Addr is host:port, as dialed by the bind.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Prefix is the correlation-store namespace this bind uses: either the
// configured override or the system_id@host:port default.
func (c Config) Prefix() string {
	if c.SplitBindPrefix != "" {
		return c.SplitBindPrefix
	}
	return fmt.Sprintf("%s@%s", c.SystemID, c.Addr())
}
