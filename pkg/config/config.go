package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the operational console configuration: the input bindings the
// control loop reads on every tick. It is persisted as YAML and edited through
// the configuration API.
type Config struct {
	Version     string          `yaml:"version" json:"version"`
	ConfigID    string          `yaml:"config_id" json:"config_id"`
	LastUpdated string          `yaml:"lastUpdated" json:"lastUpdated"`
	Keyboard    KeyBindings     `yaml:"keyboard" json:"keyboard"`
	Gamepad     GamepadBindings `yaml:"gamepad" json:"gamepad"`
}

// KeyBindings maps each logical action to a physical key identifier
// (a DOM KeyboardEvent.code value such as "KeyW" or "ArrowUp").
type KeyBindings struct {
	MoveForward  string `yaml:"move_forward" json:"moveForward"`
	MoveBackward string `yaml:"move_backward" json:"moveBackward"`
	MoveRight    string `yaml:"move_right" json:"moveRight"`
	MoveLeft     string `yaml:"move_left" json:"moveLeft"`
	MoveUp       string `yaml:"move_up" json:"moveUp"`
	MoveDown     string `yaml:"move_down" json:"moveDown"`
	PitchUp      string `yaml:"pitch_up" json:"pitchUp"`
	PitchDown    string `yaml:"pitch_down" json:"pitchDown"`
	YawRight     string `yaml:"yaw_right" json:"yawRight"`
	YawLeft      string `yaml:"yaw_left" json:"yawLeft"`
	RollRight    string `yaml:"roll_right" json:"rollRight"`
	RollLeft     string `yaml:"roll_left" json:"rollLeft"`
}

// ControlSource names the analog group on a gamepad that drives a two-axis
// logical group (moveHorizontal or pitchYaw).
type ControlSource string

const (
	LeftStick   ControlSource = "LeftStick"
	RightStick  ControlSource = "RightStick"
	DPad        ControlSource = "DPad"
	FaceButtons ControlSource = "FaceButtons"
)

// ControlSources lists every supported ControlSource.
var ControlSources = []ControlSource{LeftStick, RightStick, DPad, FaceButtons}

// GamepadBindings maps the gamepad groups and buttons to logical actions.
// Button entries hold a button index stored as text.
type GamepadBindings struct {
	MoveHorizontal ControlSource `yaml:"move_horizontal" json:"moveHorizontal"`
	PitchYaw       ControlSource `yaml:"pitch_yaw" json:"pitchYaw"`
	MoveUp         string        `yaml:"move_up" json:"moveUp"`
	MoveDown       string        `yaml:"move_down" json:"moveDown"`
	RollLeft       string        `yaml:"roll_left" json:"rollLeft"`
	RollRight      string        `yaml:"roll_right" json:"rollRight"`
}

// ValidationError reports a configuration that parsed but is not acceptable.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// IsValidationError lets callers tell validation failures from I/O failures.
func (e *ValidationError) IsValidationError() bool {
	return true
}

// DefaultKeyBindings returns the stock keyboard layout.
func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		MoveForward:  "KeyW",
		MoveBackward: "KeyS",
		MoveRight:    "KeyD",
		MoveLeft:     "KeyA",
		MoveUp:       "Space",
		MoveDown:     "ShiftLeft",
		PitchUp:      "ArrowUp",
		PitchDown:    "ArrowDown",
		YawRight:     "ArrowRight",
		YawLeft:      "ArrowLeft",
		RollRight:    "KeyE",
		RollLeft:     "KeyQ",
	}
}

// DefaultGamepadBindings returns the stock gamepad layout (standard mapping:
// 4/5 are the bumpers, 6/7 the triggers).
func DefaultGamepadBindings() GamepadBindings {
	return GamepadBindings{
		MoveHorizontal: LeftStick,
		PitchYaw:       RightStick,
		MoveUp:         "7",
		MoveDown:       "6",
		RollLeft:       "4",
		RollRight:      "5",
	}
}

// DefaultConfig returns a complete configuration with the stock bindings.
func DefaultConfig() *Config {
	return &Config{
		Version:  "1.0",
		ConfigID: "default",
		Keyboard: DefaultKeyBindings(),
		Gamepad:  DefaultGamepadBindings(),
	}
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML into a Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the fields the API refuses to accept. Unknown key codes are
// fine (an unbound key simply never matches); unknown control sources and
// non-numeric button indices are rejected here even though the samplers would
// tolerate them.
func (c *Config) Validate() error {
	if c.Version == "" {
		return &ValidationError{Field: "version", Reason: "required"}
	}
	return c.Gamepad.Validate()
}

// Validate checks gamepad bindings.
func (g GamepadBindings) Validate() error {
	sources := map[string]ControlSource{
		"move_horizontal": g.MoveHorizontal,
		"pitch_yaw":       g.PitchYaw,
	}
	for field, src := range sources {
		if _, ok := ParseControlSource(string(src)); !ok {
			return &ValidationError{Field: "gamepad." + field, Reason: fmt.Sprintf("unknown control source %q", src)}
		}
	}
	buttons := map[string]string{
		"move_up":    g.MoveUp,
		"move_down":  g.MoveDown,
		"roll_left":  g.RollLeft,
		"roll_right": g.RollRight,
	}
	for field, raw := range buttons {
		if _, ok := ParseButtonIndex(raw); !ok {
			return &ValidationError{Field: "gamepad." + field, Reason: fmt.Sprintf("invalid button index %q", raw)}
		}
	}
	return nil
}

// ParseControlSource accepts the canonical names as well as the camelCase and
// snake_case spellings used by older configuration files.
func ParseControlSource(raw string) (ControlSource, bool) {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(raw))
	for _, src := range ControlSources {
		if strings.ToLower(string(src)) == normalized {
			return src, true
		}
	}
	return "", false
}

// ParseButtonIndex parses a stored button index. It reports false for text
// that is not a non-negative integer.
func ParseButtonIndex(raw string) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
