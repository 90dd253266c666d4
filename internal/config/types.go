package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Settings Settings       `yaml:"settings" json:"settings"`
	Cache    CacheConfig    `yaml:"cache" json:"cache"`
	Move     MoveConfig     `yaml:"move" json:"move"`
	Click    ClickConfig    `yaml:"click" json:"click"`
	TempShow TempShowConfig `yaml:"tempShow" json:"tempShow"`
}

// Settings contains the user preferences the engine reads while running
type Settings struct {
	RehideInterval      Duration `yaml:"rehideInterval" json:"rehideInterval"`
	AlwaysHiddenEnabled bool     `yaml:"alwaysHiddenEnabled" json:"alwaysHiddenEnabled"`
	Display             string   `yaml:"display,omitempty" json:"display,omitempty"` // pin to a display; empty follows the menu bar
}

// CacheConfig tunes the refresh coordinator
type CacheConfig struct {
	RefreshInterval Duration `yaml:"refreshInterval" json:"refreshInterval"`
	MoveCooldown    Duration `yaml:"moveCooldown" json:"moveCooldown"`
}

// MoveConfig tunes move retries and the adaptive timeout
type MoveConfig struct {
	Attempts          int      `yaml:"attempts" json:"attempts"`
	InitialTimeout    Duration `yaml:"initialTimeout" json:"initialTimeout"`
	MinTimeout        Duration `yaml:"minTimeout" json:"minTimeout"`
	MaxTimeout        Duration `yaml:"maxTimeout" json:"maxTimeout"`
	QuiescenceTimeout Duration `yaml:"quiescenceTimeout" json:"quiescenceTimeout"`
}

// ClickConfig tunes clicks
type ClickConfig struct {
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// TempShowConfig tunes temporary show and rehide
type TempShowConfig struct {
	SettleDelay           Duration `yaml:"settleDelay" json:"settleDelay"`
	MaxRehideAttempts     int      `yaml:"maxRehideAttempts" json:"maxRehideAttempts"`
	InterfaceRehideFactor int      `yaml:"interfaceRehideFactor" json:"interfaceRehideFactor"` // rehide delay multiplier while a menu is open
}

// Duration is a time.Duration written as "300ms", "15s" in config files.
type Duration time.Duration

// D returns the value as a time.Duration
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"300ms\"", node.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"300ms\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
