package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Wyydra/callrelay/internal/core/domain"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "RELAY"

type User struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Role     string `mapstructure:"role"`
}

type Config struct {
	ConfigFile string `mapstructure:"config"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	HTTP struct {
		Addr           string   `mapstructure:"addr"`
		StaticDir      string   `mapstructure:"static_dir"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"http"`

	Presence struct {
		GracePeriod time.Duration `mapstructure:"grace_period"`
	} `mapstructure:"presence"`

	Signaling struct {
		MaxMessageBytes   int64         `mapstructure:"max_message_bytes"`
		MessagesPerSecond float64       `mapstructure:"messages_per_second"`
		Burst             int           `mapstructure:"burst"`
		SendBuffer        int           `mapstructure:"send_buffer"`
		WriteTimeout      time.Duration `mapstructure:"write_timeout"`
		PongTimeout       time.Duration `mapstructure:"pong_timeout"`
		PingInterval      time.Duration `mapstructure:"ping_interval"`
	} `mapstructure:"signaling"`

	Monitoring struct {
		Enabled bool              `mapstructure:"enabled"`
		Labels  map[string]string `mapstructure:"labels"`
	} `mapstructure:"monitoring"`

	Users []User `mapstructure:"users"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.static_dir", "")
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("presence.grace_period", 2*time.Second)

	v.SetDefault("signaling.max_message_bytes", 64*1024)
	v.SetDefault("signaling.messages_per_second", 50)
	v.SetDefault("signaling.burst", 100)
	v.SetDefault("signaling.send_buffer", 64)
	v.SetDefault("signaling.write_timeout", 5*time.Second)
	v.SetDefault("signaling.pong_timeout", 60*time.Second)
	v.SetDefault("signaling.ping_interval", 50*time.Second)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.labels", map[string]string{})

	v.SetDefault("users", []map[string]any{
		{"username": "user1", "password": "P", "role": "Technician"},
		{"username": "user2", "password": "P", "role": "Expert"},
		{"username": "user3", "password": "p3", "role": "Expert"},
	})
}

// Load builds the configuration from defaults, an optional config file,
// RELAY_* environment variables and command line flags, in increasing
// order of precedence.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("callrelay", pflag.ContinueOnError)
	flags.String("config", "", "Config file location")
	flags.String("addr", "", "HTTP listen address")
	flags.String("level", "", "Log level")
	flags.Duration("grace", 0, "Disconnect grace period")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("config", flags.Lookup("config")); err != nil {
		return nil, err
	}
	for key, flag := range map[string]string{
		"http.addr":             "addr",
		"log.level":             "level",
		"presence.grace_period": "grace",
	} {
		// Unset flags must not shadow file or environment values.
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("log.format: unsupported value %q", c.Log.Format))
	}
	if c.HTTP.Addr == "" {
		result = multierror.Append(result, errors.New("http.addr: must not be empty"))
	}
	if c.Presence.GracePeriod <= 0 {
		result = multierror.Append(result, errors.New("presence.grace_period: must be positive"))
	}

	s := c.Signaling
	if s.MaxMessageBytes <= 0 {
		result = multierror.Append(result, errors.New("signaling.max_message_bytes: must be positive"))
	}
	if s.MessagesPerSecond <= 0 {
		result = multierror.Append(result, errors.New("signaling.messages_per_second: must be positive"))
	}
	if s.Burst <= 0 {
		result = multierror.Append(result, errors.New("signaling.burst: must be positive"))
	}
	if s.SendBuffer <= 0 {
		result = multierror.Append(result, errors.New("signaling.send_buffer: must be positive"))
	}
	if s.WriteTimeout <= 0 {
		result = multierror.Append(result, errors.New("signaling.write_timeout: must be positive"))
	}
	if s.PingInterval <= 0 || s.PingInterval >= s.PongTimeout {
		result = multierror.Append(result, errors.New("signaling.ping_interval: must be positive and shorter than signaling.pong_timeout"))
	}

	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		if u.Username == "" {
			result = multierror.Append(result, fmt.Errorf("users[%d]: missing username", i))
			continue
		}
		if seen[u.Username] {
			result = multierror.Append(result, fmt.Errorf("users[%d]: duplicate username %q", i, u.Username))
		}
		seen[u.Username] = true
		if !domain.Role(u.Role).Valid() {
			result = multierror.Append(result, fmt.Errorf("users[%d]: unknown role %q", i, u.Role))
		}
	}

	return result.ErrorOrNil()
}
