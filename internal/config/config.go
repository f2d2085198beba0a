// Package config provides runtime configuration for sserver-status.
// It uses Viper to load settings from an optional YAML file and environment
// variables, and writes the durable configuration snapshot back as YAML so
// generated server IDs and interval changes survive restarts.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/RainbowCandyX/sserver-status/internal/models"
)

// MinCheckInterval is the floor for the live-tunable check interval.
const MinCheckInterval = 5

// Config holds all runtime configuration.
type Config struct {
	// Listen is the HTTP bind address, e.g. "0.0.0.0:3000".
	Listen string `mapstructure:"listen" yaml:"listen"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// CheckIntervalSecs is the scheduler cadence; live-tunable via the
	// settings API, floor MinCheckInterval.
	CheckIntervalSecs int `mapstructure:"check_interval_secs" yaml:"check_interval_secs"`
	TCPTimeoutSecs    int `mapstructure:"tcp_timeout_secs" yaml:"tcp_timeout_secs"`
	SSTimeoutSecs     int `mapstructure:"ss_timeout_secs" yaml:"ss_timeout_secs"`
	// TestTarget is the host the protocol probe tunnels an HTTP request to.
	TestTarget string `mapstructure:"test_target" yaml:"test_target"`

	Servers []ServerConfig `mapstructure:"servers" yaml:"servers"`
}

// AuthConfig is the single shared credential pair for the admin session.
// Password may be a bcrypt hash (recognized by its $2 prefix) or plaintext.
type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// ServerConfig is the on-disk form of a monitored server.
type ServerConfig struct {
	ID       string   `mapstructure:"id" yaml:"id"`
	Name     string   `mapstructure:"name" yaml:"name"`
	Host     string   `mapstructure:"host" yaml:"host"`
	Port     uint16   `mapstructure:"port" yaml:"port"`
	Password string   `mapstructure:"password" yaml:"password"`
	Method   string   `mapstructure:"method" yaml:"method"`
	Enabled  *bool    `mapstructure:"enabled" yaml:"enabled"`
	Tags     []string `mapstructure:"tags" yaml:"tags"`
}

// Load reads config from the given YAML file, falling back to defaults when
// the file is absent. Environment variables with prefix SSERVER_ override
// file values (e.g. SSERVER_LISTEN, SSERVER_AUTH_PASSWORD).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", "0.0.0.0:3000")
	v.SetDefault("db_path", "sserver-status.db")
	v.SetDefault("auth.username", "admin")
	v.SetDefault("auth.password", "admin")
	v.SetDefault("check_interval_secs", 60)
	v.SetDefault("tcp_timeout_secs", 5)
	v.SetDefault("ss_timeout_secs", 10)
	v.SetDefault("test_target", "www.gstatic.com")

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	// config file is optional; defaults apply when it is absent

	v.SetEnvPrefix("SSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.CheckIntervalSecs < MinCheckInterval {
		cfg.CheckIntervalSecs = MinCheckInterval
	}
	return &cfg, nil
}

// BuildServers converts the on-disk server list to domain servers, generating
// IDs and filling defaults where the file omitted them. Persist the snapshot
// afterwards so generated IDs become stable.
func (c *Config) BuildServers() []models.Server {
	out := make([]models.Server, 0, len(c.Servers))
	for _, sc := range c.Servers {
		id, err := uuid.Parse(sc.ID)
		if err != nil {
			id = uuid.New()
		}
		method := sc.Method
		if method == "" {
			method = "aes-256-gcm"
		}
		enabled := true
		if sc.Enabled != nil {
			enabled = *sc.Enabled
		}
		out = append(out, models.Server{
			ID:       id,
			Name:     sc.Name,
			Host:     sc.Host,
			Port:     sc.Port,
			Password: sc.Password,
			Method:   method,
			Enabled:  enabled,
			Tags:     sc.Tags,
		})
	}
	return out
}

// Persist writes the durable configuration snapshot: the static settings from
// cfg plus the current server set and check interval. Overwrites path.
func Persist(path string, cfg *Config, servers []models.Server, intervalSecs int) error {
	snap := Config{
		Listen:            cfg.Listen,
		DBPath:            cfg.DBPath,
		Auth:              cfg.Auth,
		CheckIntervalSecs: intervalSecs,
		TCPTimeoutSecs:    cfg.TCPTimeoutSecs,
		SSTimeoutSecs:     cfg.SSTimeoutSecs,
		TestTarget:        cfg.TestTarget,
		Servers:           make([]ServerConfig, 0, len(servers)),
	}
	for i := range servers {
		s := &servers[i]
		enabled := s.Enabled
		snap.Servers = append(snap.Servers, ServerConfig{
			ID:       s.ID.String(),
			Name:     s.Name,
			Host:     s.Host,
			Port:     s.Port,
			Password: s.Password,
			Method:   s.Method,
			Enabled:  &enabled,
			Tags:     s.Tags,
		})
	}

	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshaling config snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}
	return nil
}
