package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	ServerURL  string `mapstructure:"server_url"`
	Token      string `mapstructure:"token"`
	DeviceName string `mapstructure:"device_name"`
	StateFile  string `mapstructure:"state_file"`

	Transport TransportConfig `mapstructure:"transport"`
	Alert     AlertConfig     `mapstructure:"alert"`
	Push      PushConfig      `mapstructure:"push"`
	Panel     PanelConfig     `mapstructure:"panel"`
	Log       LogConfig       `mapstructure:"log"`
}

type TransportConfig struct {
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `mapstructure:"reconnect_delay"`
	HeartbeatPeriod      time.Duration `mapstructure:"heartbeat_period"`
	DialTimeout          time.Duration `mapstructure:"dial_timeout"`
	WriteWait            time.Duration `mapstructure:"write_wait"`
	ReadLimit            int64         `mapstructure:"read_limit"`
}

type AlertConfig struct {
	PlayerCommand   string `mapstructure:"player_command"`
	// Ringtone is a sound file path; empty selects the built-in ringtone.
	Ringtone        string `mapstructure:"ringtone"`
	WakeLockCommand string `mapstructure:"wake_lock_command"`
}

type PushConfig struct {
	Endpoint          string `mapstructure:"endpoint"`
	RequireStandalone bool   `mapstructure:"require_standalone"`
	Standalone        bool   `mapstructure:"standalone"`
}

type PanelConfig struct {
	Mode       string        `mapstructure:"mode"`
	Addr       string        `mapstructure:"addr"`
	Secret     string        `mapstructure:"secret"`
	StaticPath string        `mapstructure:"static_path"`
	RingRate   time.Duration `mapstructure:"ring_rate"`
	RingBurst  int           `mapstructure:"ring_burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads path, or config/config.<CONFIG_ENV>.yaml when path is empty.
// A missing file is not an error; BUZZER_* environment variables override
// file values (BUZZER_TRANSPORT_RECONNECT_DELAY for transport.reconnect_delay).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)

	v.SetEnvPrefix("BUZZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_url", "")
	v.SetDefault("token", "")
	v.SetDefault("device_name", defaultDeviceName())
	v.SetDefault("state_file", "buzzer-state.yaml")

	v.SetDefault("transport.max_reconnect_attempts", 5)
	v.SetDefault("transport.reconnect_delay", "3s")
	v.SetDefault("transport.heartbeat_period", "30s")
	v.SetDefault("transport.dial_timeout", "10s")
	v.SetDefault("transport.write_wait", "5s")
	v.SetDefault("transport.read_limit", 32768)

	v.SetDefault("alert.player_command", "paplay")
	v.SetDefault("alert.ringtone", "")
	v.SetDefault("alert.wake_lock_command", "")

	v.SetDefault("push.endpoint", "")
	v.SetDefault("push.require_standalone", false)
	v.SetDefault("push.standalone", false)

	v.SetDefault("panel.mode", "release")
	v.SetDefault("panel.addr", "127.0.0.1:8090")
	v.SetDefault("panel.secret", "")
	v.SetDefault("panel.static_path", "./web")
	v.SetDefault("panel.ring_rate", "2s")
	v.SetDefault("panel.ring_burst", 3)

	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		log.Warn().Str("module", "config").Str("file", path).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return errors.New("server_url is required")
	case c.Token == "":
		return errors.New("token is required")
	case c.StateFile == "":
		return errors.New("state_file is required")
	case c.Transport.MaxReconnectAttempts < 0:
		return errors.New("transport.max_reconnect_attempts must not be negative")
	case c.Transport.ReconnectDelay <= 0:
		return errors.New("transport.reconnect_delay must be positive")
	case c.Transport.HeartbeatPeriod <= 0:
		return errors.New("transport.heartbeat_period must be positive")
	case c.Transport.DialTimeout <= 0:
		return errors.New("transport.dial_timeout must be positive")
	case c.Alert.Ringtone != "" && !fileExists(c.Alert.Ringtone):
		return fmt.Errorf("alert.ringtone %q: no such file", c.Alert.Ringtone)
	case c.Panel.Mode != "release" && c.Panel.Mode != "debug":
		return fmt.Errorf("panel.mode %q: want release or debug", c.Panel.Mode)
	case c.Panel.RingRate <= 0:
		return errors.New("panel.ring_rate must be positive")
	case c.Panel.RingBurst < 1:
		return errors.New("panel.ring_burst must be at least 1")
	}
	return nil
}

func defaultDeviceName() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "Device"
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
