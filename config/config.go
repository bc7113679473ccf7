package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// AudioConfig defines the output stream parameters
type AudioConfig struct {
	SampleRate int `json:"sampleRate"`
	BufferSize int `json:"bufferSize"`
}

// MidiInputConfig defines a saved MIDI input port
type MidiInputConfig struct {
	PortName    string `json:"portName"`
	AutoConnect bool   `json:"autoConnect"`
}

// PathsConfig stores where instruments and state live on disk
type PathsConfig struct {
	SoundFontDir string `json:"soundFontDir,omitempty"`
	BeatDir      string `json:"beatDir,omitempty"`
	SnapshotPath string `json:"snapshotPath,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Audio      AudioConfig       `json:"audio"`
	MidiInputs []MidiInputConfig `json:"midiInputs,omitempty"`
	Paths      PathsConfig       `json:"paths,omitempty"`
	LogLevel   string            `json:"logLevel,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 44100,
			BufferSize: 512,
		},
		LogLevel: "info",
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ami"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// SnapshotPath resolves the instrument snapshot location, defaulting to
// the config directory
func (c *Config) SnapshotPath() (string, error) {
	if c.Paths.SnapshotPath != "" {
		return c.Paths.SnapshotPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "snapshot.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FindInput finds a MIDI input config by port name
func (c *Config) FindInput(portName string) *MidiInputConfig {
	for i := range c.MidiInputs {
		if c.MidiInputs[i].PortName == portName {
			return &c.MidiInputs[i]
		}
	}
	return nil
}

// AddInput adds or updates a MIDI input config
func (c *Config) AddInput(input MidiInputConfig) {
	for i := range c.MidiInputs {
		if c.MidiInputs[i].PortName == input.PortName {
			c.MidiInputs[i] = input
			return
		}
	}
	c.MidiInputs = append(c.MidiInputs, input)
}

// AutoConnectInputs returns MIDI inputs with autoConnect enabled
func (c *Config) AutoConnectInputs() []MidiInputConfig {
	var result []MidiInputConfig
	for _, input := range c.MidiInputs {
		if input.AutoConnect {
			result = append(result, input)
		}
	}
	return result
}
