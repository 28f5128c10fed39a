// SPDX-License-Identifier: EPL-2.0

// Package config holds the YAML configuration of the midisine command.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog level. Unknown values are info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// BackendKind selects the audio backend.
type BackendKind string

const (
	// BackendDummy free-runs on the wall clock with no audio device.
	BackendDummy BackendKind = "dummy"
	// BackendOffline renders as fast as possible, optionally to a WAV file.
	BackendOffline BackendKind = "offline"
)

func (k BackendKind) IsValid() bool {
	return k == BackendDummy || k == BackendOffline
}

// Config is the root of the configuration file.
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	Client      ClientConfig   `yaml:"client"`
	Backend     BackendConfig  `yaml:"backend"`
	Channels    ChannelsConfig `yaml:"channels"`
	Connections []Connection   `yaml:"connections"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Synth       SynthConfig    `yaml:"synth"`
}

type ClientConfig struct {
	// Name is the client name; ports are called name:port.
	Name string `yaml:"name"`
}

type BackendConfig struct {
	Kind       BackendKind `yaml:"kind"`
	SampleRate int         `yaml:"sample_rate"`
	BufferSize int         `yaml:"buffer_size"`

	// The fields below apply to the offline backend only.

	// Input is an audio file played on system:capture_1.
	Input string `yaml:"input"`
	// Output is a WAV file recording the playback ports.
	Output   string `yaml:"output"`
	Channels int    `yaml:"channels"`
	BitDepth int    `yaml:"bit_depth"`
	// Duration bounds the render; zero means until the input ends.
	Duration time.Duration `yaml:"duration"`
	Events   []EventConfig `yaml:"events"`
}

// EventConfig schedules a MIDI message on system:midi_capture_<port>.
type EventConfig struct {
	Frame uint64 `yaml:"frame"`
	Port  int    `yaml:"port"`
	Bytes []int  `yaml:"bytes"`
}

// Message returns the event bytes. Validate has checked the range.
func (e EventConfig) Message() []byte {
	out := make([]byte, len(e.Bytes))
	for i, b := range e.Bytes {
		out[i] = byte(b)
	}
	return out
}

// ChannelsConfig sizes the channels between the process callback and the
// rest of the program.
type ChannelsConfig struct {
	MidiRelayCapacity int `yaml:"midi_relay_capacity"`
	FrequencyCapacity int `yaml:"frequency_capacity"`
}

// Connection links two ports by full name once the client is active.
type Connection struct {
	Src string `yaml:"src"`
	Dst string `yaml:"dst"`
}

// MetricsConfig enables the Prometheus endpoint when ListenAddr is set.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type SynthConfig struct {
	Frequency float64 `yaml:"frequency"`
	Amplitude float64 `yaml:"amplitude"`
}
