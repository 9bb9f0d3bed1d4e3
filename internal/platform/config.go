package platform

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/notely/pkg/core"
)

// FileConfig is the content of a notely.yaml file.
// String values may reference environment variables (${NOTELY_API_KEY}).
type FileConfig struct {
	Adapter          string        `yaml:"adapter,omitempty"`
	Endpoint         string        `yaml:"endpoint"`
	RealtimeEndpoint string        `yaml:"realtime_endpoint,omitempty"`
	APIKey           string        `yaml:"api_key,omitempty"`
	ClientID         string        `yaml:"client_id,omitempty"`
	RetryMax         *int          `yaml:"retry_max,omitempty"`
	PageSize         int           `yaml:"page_size,omitempty"`
	AckTimeout       time.Duration `yaml:"ack_timeout,omitempty"`
}

// LoadConfig reads and parses a config file.
func LoadConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.Endpoint = os.ExpandEnv(cfg.Endpoint)
	cfg.RealtimeEndpoint = os.ExpandEnv(cfg.RealtimeEndpoint)
	cfg.APIKey = os.ExpandEnv(cfg.APIKey)
	cfg.ClientID = os.ExpandEnv(cfg.ClientID)
	return cfg, nil
}

// Options converts the file settings into functional options.
func (c FileConfig) Options() []Option {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.RealtimeEndpoint != "" {
		opts = append(opts, WithRealtimeEndpoint(c.RealtimeEndpoint))
	}
	if c.APIKey != "" {
		opts = append(opts, WithAPIKey(c.APIKey))
	}
	if c.ClientID != "" {
		opts = append(opts, WithClientID(core.ClientID(c.ClientID)))
	}
	if c.RetryMax != nil {
		opts = append(opts, WithRetryMax(*c.RetryMax))
	}
	if c.PageSize > 0 {
		opts = append(opts, WithPageSize(c.PageSize))
	}
	if c.AckTimeout > 0 {
		opts = append(opts, WithAckTimeout(c.AckTimeout))
	}
	return opts
}
