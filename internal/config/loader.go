package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "whisper-native", "openai"},
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts": {"piper"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
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

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero-valued tunable with its documented default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 48000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.FrameSamples <= 0 {
		cfg.Audio.FrameSamples = 3840
	}
	if len(cfg.Wake.Keywords) == 0 {
		cfg.Wake.Keywords = []string{"hey_jarvis"}
	}
	if cfg.Wake.Sensitivity <= 0 {
		cfg.Wake.Sensitivity = 0.5
	}
	if cfg.Wake.Cooldown <= 0 {
		cfg.Wake.Cooldown = Duration(2 * time.Second)
	}
	if cfg.Wake.TargetRate <= 0 {
		cfg.Wake.TargetRate = 16000
	}
	if cfg.Recorder.MaxDuration <= 0 {
		cfg.Recorder.MaxDuration = Duration(15 * time.Second)
	}
	if cfg.Recorder.SilenceLimit <= 0 {
		cfg.Recorder.SilenceLimit = Duration(1500 * time.Millisecond)
	}
	if cfg.Recorder.EnergyThreshold <= 0 {
		cfg.Recorder.EnergyThreshold = 500
	}
	if cfg.Recorder.PreRoll <= 0 {
		cfg.Recorder.PreRoll = Duration(500 * time.Millisecond)
	}
	if cfg.Conversation.Timeout <= 0 {
		cfg.Conversation.Timeout = Duration(120 * time.Second)
	}
	if cfg.Conversation.HistoryCap <= 0 {
		cfg.Conversation.HistoryCap = 10
	}
	if cfg.Conversation.SystemPrompt == "" {
		cfg.Conversation.SystemPrompt = "You are a small, friendly robot. Keep replies short and speakable."
	}
	if cfg.Status.MQTT != nil && cfg.Status.MQTT.ClientID == "" {
		cfg.Status.MQTT.ClientID = "wren"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.Channel < 0 || cfg.Audio.Channel >= cfg.Audio.Channels {
		errs = append(errs, fmt.Errorf("audio.channel %d is out of range for %d channels", cfg.Audio.Channel, cfg.Audio.Channels))
	}
	if cfg.Audio.SampleRate < cfg.Wake.TargetRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is below wake.target_rate %d", cfg.Audio.SampleRate, cfg.Wake.TargetRate))
	} else if cfg.Wake.TargetRate > 0 && cfg.Audio.SampleRate%cfg.Wake.TargetRate != 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is not an integer multiple of wake.target_rate %d", cfg.Audio.SampleRate, cfg.Wake.TargetRate))
	}

	if cfg.Wake.Sensitivity < 0 || cfg.Wake.Sensitivity > 1 {
		errs = append(errs, fmt.Errorf("wake.sensitivity %.2f is out of range [0, 1]", cfg.Wake.Sensitivity))
	}

	if cfg.Recorder.SilenceLimit.Std() >= cfg.Recorder.MaxDuration.Std() {
		errs = append(errs, fmt.Errorf("recorder.silence_limit %s must be below recorder.max_duration %s",
			cfg.Recorder.SilenceLimit.Std(), cfg.Recorder.MaxDuration.Std()))
	}

	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; replies will be logged but not spoken")
	}

	if cfg.Status.MQTT != nil && cfg.Status.MQTT.BrokerURL == "" {
		errs = append(errs, errors.New("status.mqtt.broker_url is required when status.mqtt is set"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
