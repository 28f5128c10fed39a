// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultClientName        = "midisine"
	DefaultSampleRate        = 48000
	DefaultBufferSize        = 256
	DefaultMidiRelayCapacity = 64
	DefaultFrequencyCapacity = 1
	DefaultFrequency         = 220
	DefaultAmplitude         = 0.5
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero field that has a default.
func (cfg *Config) ApplyDefaults() {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Client.Name == "" {
		cfg.Client.Name = DefaultClientName
	}
	if cfg.Backend.Kind == "" {
		cfg.Backend.Kind = BackendDummy
	}
	if cfg.Backend.SampleRate == 0 {
		cfg.Backend.SampleRate = DefaultSampleRate
	}
	if cfg.Backend.BufferSize == 0 {
		cfg.Backend.BufferSize = DefaultBufferSize
	}
	if cfg.Channels.MidiRelayCapacity == 0 {
		cfg.Channels.MidiRelayCapacity = DefaultMidiRelayCapacity
	}
	if cfg.Channels.FrequencyCapacity == 0 {
		cfg.Channels.FrequencyCapacity = DefaultFrequencyCapacity
	}
	if cfg.Synth.Frequency == 0 {
		cfg.Synth.Frequency = DefaultFrequency
	}
	if cfg.Synth.Amplitude == 0 {
		cfg.Synth.Amplitude = DefaultAmplitude
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Client.Name == "" || strings.Contains(cfg.Client.Name, ":") {
		errs = append(errs, fmt.Errorf("client.name %q must be non-empty and must not contain ':'", cfg.Client.Name))
	}

	b := cfg.Backend
	if !b.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("backend.kind %q is invalid; valid values: dummy, offline", b.Kind))
	}
	if b.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("backend.sample_rate %d must be positive", b.SampleRate))
	}
	if b.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("backend.buffer_size %d must be positive", b.BufferSize))
	}
	if b.Kind == BackendOffline && b.Input == "" && b.Duration <= 0 {
		errs = append(errs, errors.New("backend: offline needs backend.input or a positive backend.duration"))
	}
	if b.Kind != BackendOffline && (b.Input != "" || b.Output != "" || len(b.Events) > 0) {
		errs = append(errs, fmt.Errorf("backend: input, output and events need kind %q", BackendOffline))
	}
	switch b.BitDepth {
	case 0, 16, 24, 32:
	default:
		errs = append(errs, fmt.Errorf("backend.bit_depth %d is invalid; valid values: 16, 24, 32", b.BitDepth))
	}
	if b.Channels < 0 {
		errs = append(errs, fmt.Errorf("backend.channels %d must not be negative", b.Channels))
	}
	for i, ev := range b.Events {
		prefix := fmt.Sprintf("backend.events[%d]", i)
		if ev.Port < 1 {
			errs = append(errs, fmt.Errorf("%s.port %d must be at least 1", prefix, ev.Port))
		}
		if len(ev.Bytes) == 0 {
			errs = append(errs, fmt.Errorf("%s.bytes is required", prefix))
		}
		for j, v := range ev.Bytes {
			if v < 0 || v > 0xFF {
				errs = append(errs, fmt.Errorf("%s.bytes[%d] %d is not a byte", prefix, j, v))
			}
		}
	}

	if cfg.Channels.MidiRelayCapacity < 1 {
		errs = append(errs, fmt.Errorf("channels.midi_relay_capacity %d must be at least 1", cfg.Channels.MidiRelayCapacity))
	}
	if cfg.Channels.FrequencyCapacity < 1 {
		errs = append(errs, fmt.Errorf("channels.frequency_capacity %d must be at least 1", cfg.Channels.FrequencyCapacity))
	}

	for i, c := range cfg.Connections {
		if c.Src == "" || c.Dst == "" {
			errs = append(errs, fmt.Errorf("connections[%d]: src and dst are required", i))
		}
	}

	if cfg.Synth.Frequency < 0 || (b.SampleRate > 0 && cfg.Synth.Frequency >= float64(b.SampleRate)/2) {
		errs = append(errs, fmt.Errorf("synth.frequency %.2f must be in [0, %d)", cfg.Synth.Frequency, b.SampleRate/2))
	}
	if cfg.Synth.Amplitude < 0 || cfg.Synth.Amplitude > 1 {
		errs = append(errs, fmt.Errorf("synth.amplitude %.2f is out of range [0, 1]", cfg.Synth.Amplitude))
	}

	return errors.Join(errs...)
}
