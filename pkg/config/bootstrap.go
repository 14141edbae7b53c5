package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// BootstrapFileName is the bootstrap configuration file looked up in the config directory.
const BootstrapFileName = "console_config.yaml"

// EnvPrefix prefixes every environment override (CONSOLE_LINK_ADDRESS, ...).
const EnvPrefix = "CONSOLE"

// Link transports
const (
	TransportWebSocket = "websocket"
	TransportZeroMQ    = "zeromq"
)

// Gamepad sources
const (
	GamepadSourceRemote   = "remote"
	GamepadSourceJoystick = "joystick"
	GamepadSourceNone     = "none"
)

// BootstrapConfig holds the process configuration loaded from console_config.yaml
type BootstrapConfig struct {
	ConsoleID string        `mapstructure:"console_id"`
	Logging   LoggingConfig `mapstructure:"logging"`
	Server    ServerConfig  `mapstructure:"server"`
	Link      LinkConfig    `mapstructure:"link"`
	ZeroMQ    ZeroMQConfig  `mapstructure:"zeromq"`
	Control   ControlConfig `mapstructure:"control"`
	Gamepad   GamepadConfig `mapstructure:"gamepad"`
	Data      DataConfig    `mapstructure:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	LogPath    string `mapstructure:"log_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// LinkConfig describes how the console reaches the vehicle.
type LinkConfig struct {
	Transport           string `mapstructure:"transport"`
	Address             string `mapstructure:"address"`
	Port                int    `mapstructure:"port"`
	ConnectTimeoutMs    int    `mapstructure:"connect_timeout_ms"`
	ReconnectIntervalMs int    `mapstructure:"reconnect_interval_ms"`
	HeartbeatIntervalMs int    `mapstructure:"heartbeat_interval_ms"`
	HeartbeatTimeoutMs  int    `mapstructure:"heartbeat_timeout_ms"`
}

// ZeroMQConfig holds ZeroMQ link settings
type ZeroMQConfig struct {
	PublishBindAddress string `mapstructure:"publish_bind_address"`
	ReplyBindAddress   string `mapstructure:"reply_bind_address"`
	CommandTopic       string `mapstructure:"command_topic"`
}

// ControlConfig tunes the control loop and the transmitter.
type ControlConfig struct {
	TickRateHz            int `mapstructure:"tick_rate_hz"`
	ErrorReportIntervalMs int `mapstructure:"error_report_interval_ms"`
	SendWorkers           int `mapstructure:"send_workers"`
	SendQueueSize         int `mapstructure:"send_queue_size"`
	SendTimeoutMs         int `mapstructure:"send_timeout_ms"`
}

// GamepadConfig selects where gamepad snapshots come from.
type GamepadConfig struct {
	Source              string  `mapstructure:"source"`
	JoystickIndex       int     `mapstructure:"joystick_index"`
	DeadZone            float64 `mapstructure:"dead_zone"`
	StaleAfterMs        int     `mapstructure:"stale_after_ms"`
	ReconnectIntervalMs int     `mapstructure:"reconnect_interval_ms"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory    string `mapstructure:"directory"`
	BindingsFile string `mapstructure:"bindings_file"`
}

// LoadBootstrapConfig loads the bootstrap configuration from console_config.yaml
// in configDir. Any key can be overridden through CONSOLE_* environment variables.
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	v := viper.New()
	v.SetConfigFile(bootstrapConfigPath)
	v.SetConfigType("yaml")
	setBootstrapDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are invisible to Unmarshal unless bound explicitly.
	for _, key := range []string{"console_id", "logging.log_path", "data.directory", "data.bindings_file"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for '%s': %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := v.Unmarshal(&bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	if err := bootstrapCfg.validate(); err != nil {
		return nil, err
	}

	if bootstrapCfg.ConsoleID == "" {
		bootstrapCfg.ConsoleID = uuid.NewString()
	}

	return &bootstrapCfg, nil
}

func setBootstrapDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 14)
	v.SetDefault("logging.compress", true)
	v.SetDefault("server.http_port", 8080)

	v.SetDefault("link.transport", TransportWebSocket)
	v.SetDefault("link.address", "192.168.1.2")
	v.SetDefault("link.port", 9000)
	v.SetDefault("link.connect_timeout_ms", 5000)
	v.SetDefault("link.reconnect_interval_ms", 3000)
	v.SetDefault("link.heartbeat_interval_ms", 1000)
	v.SetDefault("link.heartbeat_timeout_ms", 5000)

	v.SetDefault("zeromq.publish_bind_address", "tcp://*:5556")
	v.SetDefault("zeromq.reply_bind_address", "tcp://*:5555")
	v.SetDefault("zeromq.command_topic", "teleop.control.movement")

	v.SetDefault("control.tick_rate_hz", 60)
	v.SetDefault("control.error_report_interval_ms", 10000)
	v.SetDefault("control.send_workers", 2)
	v.SetDefault("control.send_queue_size", 8)
	v.SetDefault("control.send_timeout_ms", 250)

	v.SetDefault("gamepad.source", GamepadSourceRemote)
	v.SetDefault("gamepad.joystick_index", 0)
	v.SetDefault("gamepad.dead_zone", 0.0)
	v.SetDefault("gamepad.stale_after_ms", 500)
	v.SetDefault("gamepad.reconnect_interval_ms", 2000)
}

func (c *BootstrapConfig) validate() error {
	if c.Data.Directory == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if c.Data.BindingsFile == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.bindings_file")
	}

	switch c.Link.Transport {
	case TransportWebSocket:
		if c.Link.Address == "" || c.Link.Port <= 0 {
			return fmt.Errorf("missing required field in bootstrap config: link.address/link.port")
		}
	case TransportZeroMQ:
		if c.ZeroMQ.PublishBindAddress == "" {
			return fmt.Errorf("missing required field in bootstrap config: zeromq.publish_bind_address")
		}
		if c.ZeroMQ.ReplyBindAddress == "" {
			return fmt.Errorf("missing required field in bootstrap config: zeromq.reply_bind_address")
		}
	default:
		return fmt.Errorf("invalid link.transport '%s' (expected %s or %s)", c.Link.Transport, TransportWebSocket, TransportZeroMQ)
	}

	switch c.Gamepad.Source {
	case GamepadSourceRemote, GamepadSourceJoystick, GamepadSourceNone:
	default:
		return fmt.Errorf("invalid gamepad.source '%s'", c.Gamepad.Source)
	}

	if c.Control.TickRateHz <= 0 {
		return fmt.Errorf("control.tick_rate_hz must be positive, got %d", c.Control.TickRateHz)
	}
	if c.Control.SendWorkers <= 0 {
		return fmt.Errorf("control.send_workers must be positive, got %d", c.Control.SendWorkers)
	}
	return nil
}

// BindingsPath returns the full path of the operational bindings file.
func (c *BootstrapConfig) BindingsPath() string {
	return filepath.Join(c.Data.Directory, c.Data.BindingsFile)
}

// LinkURL returns the WebSocket URL of the vehicle.
func (c LinkConfig) LinkURL() string {
	return fmt.Sprintf("ws://%s:%d", c.Address, c.Port)
}

// TickInterval converts the tick rate into the loop period.
func (c ControlConfig) TickInterval() time.Duration {
	if c.TickRateHz <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRateHz)
}

// Millis converts a millisecond setting into a time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
