package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

var envKeys = []string{
	"ELEVENLABS_API_KEYS", "ELEVENLABS_API_KEY", "TTS_API_KEY", "TTS_BASE_URL", "TTS_MODEL",
	"ELEVENLABS_VOICE_ID", "TTS_VOICE_ID", "GROQ_API_KEY", "OPENAI_API_KEY", "LLM_API_KEY",
	"LLM_PROVIDER", "LLM_BASE_URL", "LLM_MODEL", "GOOGLE_CLOUD_PROJECT", "GOOGLE_APPLICATION_CREDENTIALS", "GCS_BUCKET",
}

func setup(t *testing.T, configYAML string) string {
	t.Helper()
	tmp := t.TempDir()
	t.Chdir(tmp)
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
	if configYAML != "" {
		_ = os.WriteFile(filepath.Join(tmp, DefaultConfigPath), []byte(configYAML), 0644)
	}
	return tmp
}

type fakeSecrets struct {
	values    map[string]string
	requested []string
	closed    bool
}

func (f *fakeSecrets) Secret(_ context.Context, name string) (string, error) {
	f.requested = append(f.requested, name)
	value, ok := f.values[name]
	if !ok {
		return "", errors.New("not found")
	}
	return value, nil
}

func (f *fakeSecrets) Close() error {
	f.closed = true
	return nil
}

func TestLoadDefaults(t *testing.T) {
	setup(t, "")

	cfg, err := Load(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Fitting.MarginMS != defaultMarginMS {
		t.Errorf("MarginMS = %d, want %d", cfg.Fitting.MarginMS, defaultMarginMS)
	}
	if cfg.Fitting.TailSlackMS != 10000 {
		t.Errorf("TailSlackMS = %d, want 10000", cfg.Fitting.TailSlackMS)
	}
	if cfg.Fitting.SpeedThreshold != 0.85 {
		t.Errorf("SpeedThreshold = %v, want 0.85", cfg.Fitting.SpeedThreshold)
	}
	if cfg.Fitting.CheapShortenRetries != 2 || cfg.Fitting.RealShortenRetries != 2 {
		t.Errorf("retries = %d/%d, want 2/2", cfg.Fitting.CheapShortenRetries, cfg.Fitting.RealShortenRetries)
	}
	if cfg.Fitting.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Fitting.Concurrency)
	}
	if cfg.Audio.Bitrate != "192k" {
		t.Errorf("Bitrate = %q, want 192k", cfg.Audio.Bitrate)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("LLM.Provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.ContextWindow != 2 {
		t.Errorf("ContextWindow = %d, want 2", cfg.LLM.ContextWindow)
	}
	if cfg.HasTTS() {
		t.Error("HasTTS() = true without keys")
	}
	if cfg.HasLLM() {
		t.Error("HasLLM() = true without keys")
	}
}

func TestLoadFromYAML(t *testing.T) {
	setup(t, `
elevenlabs:
  voice_id: voice-1
  model: eleven_v3
estimator:
  type: provider
llm:
  provider: groq
  model: test-model
fitting:
  margin_ms: 250
  speed_threshold: 0.9
  cheap_shorten_retries: 0
  real_shorten_retries: 4
  language: ja
  concurrency: 8
gcs:
  enabled: true
  bucket: my-bucket
`)

	cfg, err := Load(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ElevenLabs.VoiceID != "voice-1" || cfg.ElevenLabs.Model != "eleven_v3" {
		t.Errorf("ElevenLabs = %+v", cfg.ElevenLabs)
	}
	if cfg.Estimator.Type != EstimatorProvider {
		t.Errorf("Estimator.Type = %q, want provider", cfg.Estimator.Type)
	}
	if cfg.LLM.Provider != ProviderGroq || cfg.LLM.Model != "test-model" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Fitting.MarginMS != 250 {
		t.Errorf("MarginMS = %d, want 250", cfg.Fitting.MarginMS)
	}
	if cfg.Fitting.CheapShortenRetries != 0 {
		t.Errorf("CheapShortenRetries = %d, want 0", cfg.Fitting.CheapShortenRetries)
	}
	if cfg.Fitting.RealShortenRetries != 4 {
		t.Errorf("RealShortenRetries = %d, want 4", cfg.Fitting.RealShortenRetries)
	}
	if cfg.ElevenLabs.LanguageCode != "ja" {
		t.Errorf("LanguageCode = %q, want ja", cfg.ElevenLabs.LanguageCode)
	}
	if !cfg.GCS.Enabled || cfg.GCS.Bucket != "my-bucket" {
		t.Errorf("GCS = %+v", cfg.GCS)
	}
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	setup(t, `
elevenlabs:
  stability: 0
fitting:
  margin_ms: 0
  tail_slack_ms: 0
  cheap_shorten_retries: 0
  real_shorten_retries: 0
`)

	cfg, err := Load(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	f := cfg.Fitting
	if f.MarginMS != 0 || f.TailSlackMS != 0 {
		t.Errorf("margin/tail = %d/%d, want 0/0", f.MarginMS, f.TailSlackMS)
	}
	if f.CheapShortenRetries != 0 || f.RealShortenRetries != 0 {
		t.Errorf("retries = %d/%d, want 0/0", f.CheapShortenRetries, f.RealShortenRetries)
	}
	if cfg.ElevenLabs.Stability != 0 {
		t.Errorf("Stability = %v, want 0", cfg.ElevenLabs.Stability)
	}
	if f.SpeedThreshold != defaultSpeedThreshold || f.Concurrency != defaultConcurrency {
		t.Errorf("unset keys lost their defaults: %+v", f)
	}
}

func TestLoadRejectsNegativeRetries(t *testing.T) {
	setup(t, "fitting:\n  real_shorten_retries: -1\n")

	if _, err := Load(context.Background(), Options{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Load() error = %v, want ErrInvalid", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	setup(t, "")
	t.Setenv("LLM_PROVIDER", "groq")

	t.Setenv("ELEVENLABS_API_KEYS", "k1, k2,,k3")
	t.Setenv("TTS_VOICE_ID", "voice-env")
	t.Setenv("GROQ_API_KEY", "test-groq")
	t.Setenv("GCS_BUCKET", "env-bucket")

	cfg, err := Load(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if want := []string{"k1", "k2", "k3"}; !slices.Equal(cfg.ElevenLabsAPIKeys, want) {
		t.Errorf("ElevenLabsAPIKeys = %v, want %v", cfg.ElevenLabsAPIKeys, want)
	}
	if cfg.ElevenLabs.VoiceID != "voice-env" {
		t.Errorf("VoiceID = %q, want voice-env", cfg.ElevenLabs.VoiceID)
	}
	if cfg.LLM.APIKey != "test-groq" {
		t.Errorf("LLM.APIKey = %q, want test-groq", cfg.LLM.APIKey)
	}
	if !cfg.GCS.Enabled || cfg.GCS.Bucket != "env-bucket" {
		t.Errorf("GCS = %+v, want enabled env-bucket", cfg.GCS)
	}
	if !cfg.HasTTS() || !cfg.HasLLM() {
		t.Errorf("HasTTS() = %v, HasLLM() = %v, want both true", cfg.HasTTS(), cfg.HasLLM())
	}
}

func TestLoadExplicitPath(t *testing.T) {
	tmp := setup(t, "")

	if _, err := Load(context.Background(), Options{Path: filepath.Join(tmp, "missing.yaml")}); err == nil {
		t.Error("Load() should fail when an explicit config path is missing")
	}

	path := filepath.Join(tmp, "custom.yaml")
	_ = os.WriteFile(path, []byte("fitting:\n  margin_ms: 42\n"), 0644)
	cfg, err := Load(context.Background(), Options{Path: path})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Fitting.MarginMS != 42 {
		t.Errorf("MarginMS = %d, want 42", cfg.Fitting.MarginMS)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	setup(t, "fitting: [unclosed")

	if _, err := Load(context.Background(), Options{}); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestLoadSecrets(t *testing.T) {
	setup(t, "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")

	secrets := &fakeSecrets{values: map[string]string{
		secretElevenLabsAPIKey: "a,b",
		secretOpenAIAPIKey:     "sk-secret",
	}}

	cfg, err := Load(context.Background(), Options{Secrets: secrets})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if want := []string{"a", "b"}; !slices.Equal(cfg.ElevenLabsAPIKeys, want) {
		t.Errorf("ElevenLabsAPIKeys = %v, want %v", cfg.ElevenLabsAPIKeys, want)
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Errorf("LLM.APIKey = %q, want sk-secret", cfg.LLM.APIKey)
	}
	if slices.Contains(secrets.requested, secretGroqAPIKey) {
		t.Error("groq secret requested while provider is openai")
	}
	if !secrets.closed {
		t.Error("secret source not closed")
	}
}

func TestLoadSecretsSkippedWhenEnvComplete(t *testing.T) {
	setup(t, "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("ELEVENLABS_API_KEY", "env-key")
	t.Setenv("OPENAI_API_KEY", "env-openai")

	secrets := &fakeSecrets{}
	if _, err := Load(context.Background(), Options{Secrets: secrets}); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(secrets.requested) != 0 {
		t.Errorf("requested = %v, want none", secrets.requested)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknownEstimator", func(c *Config) { c.Estimator.Type = "magic" }},
		{"unknownProvider", func(c *Config) { c.LLM.Provider = "bard" }},
		{"thresholdAboveOne", func(c *Config) { c.Fitting.SpeedThreshold = 1.5 }},
		{"negativeThreshold", func(c *Config) { c.Fitting.SpeedThreshold = -0.1 }},
		{"estimateSafety", func(c *Config) { c.Fitting.EstimateSafetyFactor = 2 }},
		{"synthesisSafety", func(c *Config) { c.Fitting.SynthesisSafetyFactor = -1 }},
		{"negativeTailSlack", func(c *Config) { c.Fitting.TailSlackMS = -5 }},
		{"negativeMargin", func(c *Config) { c.Fitting.MarginMS = -1 }},
		{"negativeCheapRetries", func(c *Config) { c.Fitting.CheapShortenRetries = -1 }},
		{"negativeRealRetries", func(c *Config) { c.Fitting.RealShortenRetries = -1 }},
		{"zeroConcurrency", func(c *Config) { c.Fitting.Concurrency = 0 }},
		{"gcsWithoutBucket", func(c *Config) { c.GCS.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.Validate(); err != nil {
				t.Fatalf("defaults invalid: %v", err)
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}
