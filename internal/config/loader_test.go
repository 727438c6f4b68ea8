package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/wrenrobotics/wren/internal/config"
)

const minimalYAML = `
providers:
  stt:
    name: whisper
    base_url: http://localhost:8080
  llm:
    name: ollama
    model: llama3.2
`

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.FrameSamples != 3840 {
		t.Errorf("FrameSamples = %d, want 3840", cfg.Audio.FrameSamples)
	}
	if len(cfg.Wake.Keywords) != 1 || cfg.Wake.Keywords[0] != "hey_jarvis" {
		t.Errorf("Keywords = %v", cfg.Wake.Keywords)
	}
	if cfg.Wake.Sensitivity != 0.5 {
		t.Errorf("Sensitivity = %v, want 0.5", cfg.Wake.Sensitivity)
	}
	if cfg.Wake.Cooldown.Std() != 2*time.Second {
		t.Errorf("Cooldown = %v, want 2s", cfg.Wake.Cooldown.Std())
	}
	if cfg.Recorder.MaxDuration.Std() != 15*time.Second {
		t.Errorf("MaxDuration = %v, want 15s", cfg.Recorder.MaxDuration.Std())
	}
	if cfg.Recorder.SilenceLimit.Std() != 1500*time.Millisecond {
		t.Errorf("SilenceLimit = %v, want 1.5s", cfg.Recorder.SilenceLimit.Std())
	}
	if cfg.Recorder.EnergyThreshold != 500 {
		t.Errorf("EnergyThreshold = %v, want 500", cfg.Recorder.EnergyThreshold)
	}
	if cfg.Recorder.PreRoll.Std() != 500*time.Millisecond {
		t.Errorf("PreRoll = %v, want 500ms", cfg.Recorder.PreRoll.Std())
	}
	if cfg.Conversation.Timeout.Std() != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", cfg.Conversation.Timeout.Std())
	}
	if cfg.Conversation.HistoryCap != 10 {
		t.Errorf("HistoryCap = %d, want 10", cfg.Conversation.HistoryCap)
	}
	if cfg.Conversation.PersistFallback {
		t.Error("PersistFallback should default to false")
	}
}

func TestLoadFromReader_ParsesDurations(t *testing.T) {
	t.Parallel()

	yaml := minimalYAML + `
wake:
  cooldown: 3s
recorder:
  silence_limit: 2s
  max_duration: 20s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Wake.Cooldown.Std() != 3*time.Second {
		t.Errorf("Cooldown = %v, want 3s", cfg.Wake.Cooldown.Std())
	}
	if cfg.Recorder.SilenceLimit.Std() != 2*time.Second {
		t.Errorf("SilenceLimit = %v, want 2s", cfg.Recorder.SilenceLimit.Std())
	}
}

func TestLoadFromReader_SystemPromptList(t *testing.T) {
	t.Parallel()

	yaml := minimalYAML + `
conversation:
  system_prompt:
    - "Line one."
    - "Line two."
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if got := string(cfg.Conversation.SystemPrompt); got != "Line one.\nLine two." {
		t.Errorf("SystemPrompt = %q", got)
	}
}

func TestLoadFromReader_SystemPromptString(t *testing.T) {
	t.Parallel()

	yaml := minimalYAML + `
conversation:
  system_prompt: "Just one line."
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if string(cfg.Conversation.SystemPrompt) != "Just one line." {
		t.Errorf("SystemPrompt = %q", cfg.Conversation.SystemPrompt)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	yaml := minimalYAML + `
recorderr:
  max_duration: 20s
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		yaml    string
		wantSub string
	}{
		{
			name:    "bad log level",
			yaml:    minimalYAML + "server:\n  log_level: loud\n",
			wantSub: "log_level",
		},
		{
			name:    "channel out of range",
			yaml:    minimalYAML + "audio:\n  channels: 2\n  channel: 5\n",
			wantSub: "audio.channel",
		},
		{
			name:    "rate not multiple of target",
			yaml:    minimalYAML + "audio:\n  sample_rate: 44100\n",
			wantSub: "integer multiple",
		},
		{
			name:    "sensitivity out of range",
			yaml:    minimalYAML + "wake:\n  sensitivity: 1.5\n",
			wantSub: "sensitivity",
		},
		{
			name:    "silence limit above ceiling",
			yaml:    minimalYAML + "recorder:\n  silence_limit: 20s\n  max_duration: 10s\n",
			wantSub: "silence_limit",
		},
		{
			name:    "missing stt",
			yaml:    "providers:\n  llm:\n    name: ollama\n",
			wantSub: "providers.stt.name",
		},
		{
			name:    "mqtt without broker",
			yaml:    minimalYAML + "status:\n  mqtt:\n    client_id: wren\n",
			wantSub: "broker_url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestRegistry_CreateUnregistered(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	if _, err := reg.CreateSTT(config.ProviderEntry{Name: "nope"}); err == nil {
		t.Fatal("expected ErrProviderNotRegistered")
	}
}
