// Package config provides the configuration schema, loader, and provider
// registry for the wren voice agent.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the wren agent.
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

// Duration wraps time.Duration so YAML values can be written as "2s" or
// "1.5s" rather than nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Prompt accepts either a single YAML string or a list of strings; a list is
// joined with newlines. This keeps long personas readable in the config file.
type Prompt string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Prompt) UnmarshalYAML(value *yaml.Node) error {
	var single string
	if err := value.Decode(&single); err == nil {
		*p = Prompt(single)
		return nil
	}
	var lines []string
	if err := value.Decode(&lines); err != nil {
		return fmt.Errorf("system_prompt must be a string or a list of strings: %w", err)
	}
	*p = Prompt(strings.Join(lines, "\n"))
	return nil
}

// Config is the root configuration structure for wren.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Audio        AudioConfig        `yaml:"audio"`
	Wake         WakeConfig         `yaml:"wake"`
	Recorder     RecorderConfig     `yaml:"recorder"`
	Conversation ConversationConfig `yaml:"conversation"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Status       StatusConfig       `yaml:"status"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Defaults to "info".
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus metrics endpoint listens
	// on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AudioConfig describes the capture device and framing.
type AudioConfig struct {
	// SampleRate is the device native rate in Hz. Defaults to 48000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the device channel count. Defaults to 1. Microphone
	// arrays with an onboard beamformer typically expose 6.
	Channels int `yaml:"channels"`

	// Channel is the index of the working channel when Channels > 1.
	// Channel 0 is usually the beamformed output. Defaults to 0.
	Channel int `yaml:"channel"`

	// FrameSamples is the per-channel frame size at the native rate.
	// Defaults to 3840, which decimates to 1280 samples at 16 kHz.
	FrameSamples int `yaml:"frame_samples"`
}

// WakeConfig tunes wake-word detection.
type WakeConfig struct {
	// Keywords lists the builtin wake-word models to load.
	// Defaults to ["hey_jarvis"].
	Keywords []string `yaml:"keywords"`

	// Sensitivity is the confidence threshold in [0, 1]. Defaults to 0.5.
	Sensitivity float64 `yaml:"sensitivity"`

	// Cooldown suppresses re-triggers after a detection. Defaults to 2s.
	Cooldown Duration `yaml:"cooldown"`

	// TargetRate is the rate expected by the scorer in Hz. Defaults to 16000.
	TargetRate int `yaml:"target_rate"`
}

// RecorderConfig tunes utterance capture.
type RecorderConfig struct {
	// MaxDuration is the hard recording ceiling. Defaults to 15s.
	MaxDuration Duration `yaml:"max_duration"`

	// SilenceLimit is the trailing-silence run that ends a recording.
	// Defaults to 1.5s.
	SilenceLimit Duration `yaml:"silence_limit"`

	// EnergyThreshold is the RMS speech/silence boundary. Defaults to 500.
	EnergyThreshold float64 `yaml:"energy_threshold"`

	// PreRoll is how much pre-onset audio is retained. Defaults to 500ms.
	PreRoll Duration `yaml:"pre_roll"`

	// DebugDump writes each captured utterance as a WAV file to the OS temp
	// directory. Defaults to false.
	DebugDump bool `yaml:"debug_dump"`
}

// ConversationConfig tunes the turn orchestrator.
type ConversationConfig struct {
	// Timeout ends a conversation after this much time without a valid
	// interaction. Defaults to 120s.
	Timeout Duration `yaml:"timeout"`

	// HistoryCap is the maximum number of retained history messages; the
	// oldest are dropped first. Defaults to 10.
	HistoryCap int `yaml:"history_cap"`

	// SystemPrompt is the persona injected into every LLM call. Accepts a
	// string or a list of strings joined with newlines.
	SystemPrompt Prompt `yaml:"system_prompt"`

	// PersistFallback keeps the canned fallback reply in history when the
	// LLM fails. Defaults to false so a transient outage does not teach the
	// model its own apology.
	PersistFallback bool `yaml:"persist_fallback"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	STT ProviderEntry `yaml:"stt"`
	LLM ProviderEntry `yaml:"llm"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "whisper", "ollama", "piper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider
	// (e.g., "llama3.2", "/opt/voices/en_US-lessac-medium.onnx").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// StatusConfig selects the status bus transport. All fields optional; with
// none set, status updates are discarded.
type StatusConfig struct {
	// MQTT configures an MQTT broker sink. Nil disables it.
	MQTT *MQTTConfig `yaml:"mqtt"`

	// FaceURL is the WebSocket URL of a face display server
	// (e.g., "ws://localhost:8765/status"). Empty disables it.
	FaceURL string `yaml:"face_url"`
}

// MQTTConfig holds MQTT broker connection settings.
type MQTTConfig struct {
	// BrokerURL is the broker address (e.g., "tcp://localhost:1883").
	BrokerURL string `yaml:"broker_url"`

	// ClientID identifies this agent to the broker. Defaults to "wren".
	ClientID string `yaml:"client_id"`
}
