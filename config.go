package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const defaultConfig = `
{
	"backend": "portaudio",
	"sampleRate": 48000,
	"midiPort": 0,
	"midiChannel": 0,
	"noteOnZeroIsOff": true,
	"watchConfig": true,
	"gain": 0.8,
	"pitchBendCents": 819.2,
	"envelope": {
		"attackMs": 1000,
		"decayMs": 100,
		"sustain": 0.75,
		"releaseMs": 1000
	}
}
`

const (
	backendPortAudio = "portaudio"
	backendOto       = "oto"
)

// StaticConfig is read once at startup. SampleRate is only used by
// backends that let us pick the rate.
type StaticConfig struct {
	Backend         string `json:"backend"`
	SampleRate      uint   `json:"sampleRate"`
	MidiPort        int    `json:"midiPort"`
	MidiChannel     int    `json:"midiChannel"`
	NoteOnZeroIsOff bool   `json:"noteOnZeroIsOff"`
	WatchConfig     bool   `json:"watchConfig"`
}

// DynamicConfig is re-applied whenever the config file changes.
type DynamicConfig struct {
	Gain           float64 `json:"gain"`
	PitchBendCents float64 `json:"pitchBendCents"`
	Envelope       ADSR    `json:"envelope"`
}

type Config struct {
	StaticConfig
	DynamicConfig
}

func ReadConfig(p string) (*Config, error) {
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		err = os.WriteFile(p, []byte(defaultConfig), 0644)
		if err != nil {
			return nil, fmt.Errorf("can't write defaultConfig: %w", err)
		}
	}
	return loadConfig(p)
}

// loadConfig reads p without creating it.
func loadConfig(p string) (*Config, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("can't read config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*Config, error) {
	// start from the defaults so missing keys keep sane values
	var c Config
	if err := json.Unmarshal([]byte(defaultConfig), &c); err != nil {
		return nil, fmt.Errorf("unmarshalling defaults: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshalling: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case backendPortAudio, backendOto:
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.Backend == backendOto && c.SampleRate == 0 {
		return fmt.Errorf("sampleRate must be set for backend %s", backendOto)
	}
	if c.MidiPort < 0 {
		return fmt.Errorf("midiPort must not be negative, was: %d", c.MidiPort)
	}
	if c.MidiChannel < 0 || c.MidiChannel > 16 {
		return fmt.Errorf("midiChannel must be 0 (omni) or 1-16, was: %d", c.MidiChannel)
	}
	return c.DynamicConfig.Validate()
}

func (c DynamicConfig) Validate() error {
	if c.Gain < 0 || c.Gain > 1 {
		return fmt.Errorf("gain must be in [0, 1], was: %v", c.Gain)
	}
	if c.PitchBendCents < 0 {
		return fmt.Errorf("pitchBendCents must not be negative, was: %v", c.PitchBendCents)
	}
	env := c.Envelope
	if env.AttackMs < 0 || env.DecayMs < 0 || env.ReleaseMs < 0 {
		return fmt.Errorf("envelope times must not be negative: %+v", env)
	}
	if env.Sustain < 0 || env.Sustain > 1 {
		return fmt.Errorf("envelope sustain must be in [0, 1], was: %v", env.Sustain)
	}
	return nil
}
