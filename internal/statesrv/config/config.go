package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

type DbConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port" validate:"gte=0,lte=65535"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DbName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
}

type ConfigParam struct {
	ServerPort        string   `toml:"server_port" validate:"required"`
	HandleCORS        bool     `toml:"handle_cors"`
	Storage           string   `toml:"storage" validate:"required,oneof=postgresql memory"`
	CompressManifests bool     `toml:"compress_manifests"`
	DefaultLockTTL    string   `toml:"default_lock_ttl" validate:"omitempty"`
	MaxLockTTL        string   `toml:"max_lock_ttl" validate:"omitempty"`
	AuthSecret        string   `toml:"auth_secret"`
	Db                DbConfig `toml:"db"`
}

const DefaultConfigFile = "/etc/stately/stately.conf"

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

var validate = validator.New()

func LoadConfig(filename string) error {
	if filename == "" {
		cfg = defaultConfig()
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	cp := *defaultConfig()
	if _, err := toml.Decode(string(content), &cp); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}
	if err := validate.Struct(&cp); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	if _, err := parseTTL(cp.DefaultLockTTL); err != nil {
		return fmt.Errorf("invalid default_lock_ttl: %v", err)
	}
	if _, err := parseTTL(cp.MaxLockTTL); err != nil {
		return fmt.Errorf("invalid max_lock_ttl: %v", err)
	}
	cfg = &cp
	return nil
}

func defaultConfig() *ConfigParam {
	return &ConfigParam{
		ServerPort:        "8184",
		HandleCORS:        true,
		Storage:           "memory",
		CompressManifests: true,
		Db: DbConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "stately_api",
			DbName:  "stately",
			SSLMode: "disable",
		},
	}
}

// DefaultLockTTLDuration returns the TTL applied when an acquire request does
// not carry one. Zero means locks never expire unless the caller asks for it.
func (c *ConfigParam) DefaultLockTTLDuration() time.Duration {
	d, _ := parseTTL(c.DefaultLockTTL)
	return d
}

// MaxLockTTLDuration returns the upper bound requested TTLs are clamped to.
// Zero means no clamping.
func (c *ConfigParam) MaxLockTTLDuration() time.Duration {
	d, _ := parseTTL(c.MaxLockTTL)
	return d
}

func parseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("ttl cannot be negative")
	}
	return d, nil
}

func init() {
	if err := LoadConfig(""); err != nil {
		panic(err)
	}
}
