// Package config loads the proxy's configuration via cobra flags,
// environment variables, and an optional config file.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/patsnapops/piam-s3-proxy/internal/hostset"
)

// IdentityMode selects which identity-resolution strategy the proxy
// runs as a build-time variant.
type IdentityMode string

const (
	AccountSuffixMode IdentityMode = "account-suffix"
	UniKeyMode        IdentityMode = "uni-key"
)

// Config holds everything the proxy needs to start serving.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
	DevMode    bool   `mapstructure:"dev_mode"`

	// ProxyHosts are the configured virtual-hosted proxy domains.
	// DevMode appends "s3-proxy.dev" to this list, so local testing
	// never needs a real domain.
	ProxyHosts []string `mapstructure:"proxy_hosts"`

	IdentityMode IdentityMode `mapstructure:"identity_mode"`

	StateUpdateInterval  time.Duration `mapstructure:"state_update_interval"`
	IPProvider           string        `mapstructure:"ip_provider"`
	ConfigFetchingTimeout time.Duration `mapstructure:"config_fetching_timeout"`
}

const envPrefix = "PIAMPROXY"

// Load builds Config from cmd's flags, a config file (if --config was
// given), and PIAMPROXY_-prefixed environment variables. Precedence
// follows viper's: a flag explicitly set on the command line wins,
// then the environment, then the config file, then the defaults.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("dev_mode", false)
	v.SetDefault("proxy_hosts", []string{})
	v.SetDefault("identity_mode", string(AccountSuffixMode))
	v.SetDefault("state_update_interval", "5m")
	v.SetDefault("ip_provider", "")
	v.SetDefault("config_fetching_timeout", "10s")
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"listen":        "listen_addr",
		"log-level":     "log_level",
		"dev-mode":      "dev_mode",
		"identity-mode": "identity_mode",
	}
	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.IdentityMode != AccountSuffixMode && cfg.IdentityMode != UniKeyMode {
		return fmt.Errorf("identity_mode must be %q or %q, got %q", AccountSuffixMode, UniKeyMode, cfg.IdentityMode)
	}
	if len(cfg.ProxyHosts) == 0 && !cfg.DevMode {
		return fmt.Errorf("proxy_hosts must not be empty unless dev_mode is set")
	}
	if cfg.StateUpdateInterval <= 0 {
		return fmt.Errorf("state_update_interval must be positive")
	}

	if cfg.DevMode {
		cfg.ProxyHosts = hostset.WithDevHost(cfg.ProxyHosts, "s3-proxy.dev")
	}
	return nil
}

// Features reports the build-time identity variant as a single
// startup-log field.
func (c *Config) Features() string {
	return "mode=" + string(c.IdentityMode)
}
