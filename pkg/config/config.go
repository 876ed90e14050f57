package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"

	defaultElevenLabsModel = "eleven_multilingual_v2"
	defaultEstimatorModel  = "eleven_flash_v2_5"
	defaultOutputFormat    = "mp3_44100_128"
	defaultStability       = 0.5
	defaultSimilarity      = 0.5
	defaultEstimatorType   = EstimatorRate
	defaultWordsPerMinute  = 150
	defaultCharsPerSecond  = 7
	defaultEstimationRatio = 0.9
	defaultLLMProvider     = ProviderOpenAI
	defaultContextWindow   = 2
	defaultPromptsPath     = "prompts.yaml"
	defaultMarginMS        = 100
	defaultTailSlackMS     = 10000
	defaultSpeedThreshold  = 0.85
	defaultShortenRetries  = 2
	defaultEstimateSafety  = 0.95
	defaultSynthesisSafety = 0.85
	defaultLanguage        = "en"
	defaultConcurrency     = 2
	defaultFFmpegPath      = "ffmpeg"
	defaultFFprobePath     = "ffprobe"
	defaultBitrate         = "192k"
	defaultOutputDir       = "./output"
	defaultWorkDir         = "./.work"
	defaultCachePath       = "./.cache/synthesis.db"
	defaultGCSPrefix       = "srtvoice"
	secretElevenLabsAPIKey = "elevenlabs-api-key"
	secretGroqAPIKey       = "groq-api-key"
	secretOpenAIAPIKey     = "openai-api-key"
	envListSeparator       = ","
	maxSpeedThreshold      = 1.0
	maxSafetyFactor        = 1.0
)

const (
	EstimatorRate     = "rate"
	EstimatorProvider = "provider"
	EstimatorNone     = "none"

	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	ElevenLabsAPIKeys []string `yaml:"-"`
	GroqAPIKey        string   `yaml:"-"`
	OpenAIAPIKey      string   `yaml:"-"`
	GCPProject        string   `yaml:"-"`
	CredentialsFile   string   `yaml:"-"`

	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	LLM        LLMConfig        `yaml:"llm"`
	Fitting    FittingConfig    `yaml:"fitting"`
	Audio      AudioConfig      `yaml:"audio"`
	Output     OutputConfig     `yaml:"output"`
	Cache      CacheConfig      `yaml:"cache"`
	GCS        GCSConfig        `yaml:"gcs"`
}

type ElevenLabsConfig struct {
	BaseURL      string  `yaml:"base_url"`
	VoiceID      string  `yaml:"voice_id"`
	Model        string  `yaml:"model"`
	OutputFormat string  `yaml:"output_format"`
	LanguageCode string  `yaml:"language_code"`
	Speed        float64 `yaml:"speed"`
	Stability    float64 `yaml:"stability"`
	Similarity   float64 `yaml:"similarity"`
}

type EstimatorConfig struct {
	Type           string  `yaml:"type"` // "rate", "provider" or "none"
	WordsPerMinute float64 `yaml:"words_per_minute"`
	CharsPerSecond float64 `yaml:"chars_per_second"`
	Ratio          float64 `yaml:"ratio"`
	Model          string  `yaml:"model"`
}

type LLMConfig struct {
	Provider      string `yaml:"provider"` // "groq", "openai" or "none"
	Model         string `yaml:"model"`
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"-"`
	DisableTags   bool   `yaml:"disable_tags"`
	ContextWindow int    `yaml:"context_window"`
	PromptsPath   string `yaml:"prompts_path"`
}

type FittingConfig struct {
	MarginMS              int     `yaml:"margin_ms"`
	TailSlackMS           int     `yaml:"tail_slack_ms"`
	SpeedThreshold        float64 `yaml:"speed_threshold"`
	CheapShortenRetries   int     `yaml:"cheap_shorten_retries"`
	RealShortenRetries    int     `yaml:"real_shorten_retries"`
	EstimateSafetyFactor  float64 `yaml:"estimate_safety_factor"`
	SynthesisSafetyFactor float64 `yaml:"synthesis_safety_factor"`
	Language              string  `yaml:"language"`
	Concurrency           int     `yaml:"concurrency"`
	FailFast              bool    `yaml:"fail_fast"`
}

type AudioConfig struct {
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
	Bitrate     string `yaml:"bitrate"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	WorkDir     string `yaml:"work_dir"`
	KeepScratch bool   `yaml:"keep_scratch"`
}

type CacheConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

type GCSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
}

// SecretSource resolves named secrets for keys missing from the environment.
type SecretSource interface {
	Secret(ctx context.Context, name string) (string, error)
	Close() error
}

type Options struct {
	// Path of the YAML file. Empty means DefaultConfigPath, which may be absent.
	Path string
	// Secrets overrides the Secret Manager lookup used when GOOGLE_CLOUD_PROJECT is set.
	Secrets SecretSource
}

func Load(ctx context.Context, opts Options) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := Default()
	if err := loadYAMLConfig(cfg, opts.Path); err != nil {
		return nil, err
	}

	loadEnv(cfg)

	if err := loadSecrets(ctx, cfg, opts.Secrets); err != nil {
		slog.Warn("Secret Manager lookup failed", "error", err)
	}

	resolve(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			slog.Debug("No config.yaml found, using defaults")
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) {
	cfg.ElevenLabsAPIKeys = splitList(firstEnv("ELEVENLABS_API_KEYS", "ELEVENLABS_API_KEY", "TTS_API_KEY"))
	cfg.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GCPProject = os.Getenv("GOOGLE_CLOUD_PROJECT")
	cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")

	setFromEnv(&cfg.ElevenLabs.BaseURL, "TTS_BASE_URL")
	setFromEnv(&cfg.ElevenLabs.Model, "TTS_MODEL")
	setFromEnv(&cfg.ElevenLabs.VoiceID, "ELEVENLABS_VOICE_ID", "TTS_VOICE_ID")
	setFromEnv(&cfg.LLM.Provider, "LLM_PROVIDER")
	setFromEnv(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setFromEnv(&cfg.LLM.Model, "LLM_MODEL")
	setFromEnv(&cfg.LLM.APIKey, "LLM_API_KEY")
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		cfg.GCS.Bucket = bucket
		cfg.GCS.Enabled = true
	}
}

func loadSecrets(ctx context.Context, cfg *Config, source SecretSource) error {
	wanted := cfg.missingSecrets()
	if cfg.GCPProject == "" || len(wanted) == 0 {
		return nil
	}

	if source == nil {
		sm, err := NewSecretManager(ctx, cfg.GCPProject, cfg.CredentialsFile)
		if err != nil {
			return err
		}
		source = sm
	}
	defer func() { _ = source.Close() }()

	var errs []error
	for _, name := range wanted {
		value, err := source.Secret(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("secret %s: %w", name, err))
			continue
		}
		switch name {
		case secretElevenLabsAPIKey:
			cfg.ElevenLabsAPIKeys = splitList(value)
		case secretGroqAPIKey:
			cfg.GroqAPIKey = value
		case secretOpenAIAPIKey:
			cfg.OpenAIAPIKey = value
		}
	}
	return errors.Join(errs...)
}

func (c *Config) missingSecrets() []string {
	var names []string
	if len(c.ElevenLabsAPIKeys) == 0 {
		names = append(names, secretElevenLabsAPIKey)
	}
	if c.LLM.APIKey != "" {
		return names
	}
	switch {
	case c.LLM.Provider == ProviderGroq && c.GroqAPIKey == "":
		names = append(names, secretGroqAPIKey)
	case c.LLM.Provider == ProviderOpenAI && c.OpenAIAPIKey == "":
		names = append(names, secretOpenAIAPIKey)
	}
	return names
}

// Default returns the built-in settings. config.yaml is decoded on top of
// them, so keys present in the file win even when they are zero.
func Default() *Config {
	return &Config{
		ElevenLabs: ElevenLabsConfig{
			Model:        defaultElevenLabsModel,
			OutputFormat: defaultOutputFormat,
			Stability:    defaultStability,
			Similarity:   defaultSimilarity,
		},
		Estimator: EstimatorConfig{
			Type:           defaultEstimatorType,
			WordsPerMinute: defaultWordsPerMinute,
			CharsPerSecond: defaultCharsPerSecond,
			Ratio:          defaultEstimationRatio,
			Model:          defaultEstimatorModel,
		},
		LLM: LLMConfig{
			Provider:      defaultLLMProvider,
			ContextWindow: defaultContextWindow,
			PromptsPath:   defaultPromptsPath,
		},
		Fitting: FittingConfig{
			MarginMS:              defaultMarginMS,
			TailSlackMS:           defaultTailSlackMS,
			SpeedThreshold:        defaultSpeedThreshold,
			CheapShortenRetries:   defaultShortenRetries,
			RealShortenRetries:    defaultShortenRetries,
			EstimateSafetyFactor:  defaultEstimateSafety,
			SynthesisSafetyFactor: defaultSynthesisSafety,
			Language:              defaultLanguage,
			Concurrency:           defaultConcurrency,
		},
		Audio: AudioConfig{
			FFmpegPath:  defaultFFmpegPath,
			FFprobePath: defaultFFprobePath,
			Bitrate:     defaultBitrate,
		},
		Output: OutputConfig{
			Dir:     defaultOutputDir,
			WorkDir: defaultWorkDir,
		},
		Cache: CacheConfig{Path: defaultCachePath},
		GCS:   GCSConfig{Prefix: defaultGCSPrefix},
	}
}

// resolve fills settings derived from other settings.
func resolve(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderGroq:
			cfg.LLM.APIKey = cfg.GroqAPIKey
		case ProviderOpenAI:
			cfg.LLM.APIKey = cfg.OpenAIAPIKey
		}
	}
	if cfg.ElevenLabs.LanguageCode == "" && cfg.Fitting.Language != defaultLanguage {
		cfg.ElevenLabs.LanguageCode = cfg.Fitting.Language
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Estimator.Type {
	case EstimatorRate, EstimatorProvider, EstimatorNone:
	default:
		errs = append(errs, fmt.Errorf("estimator.type %q: want rate, provider or none", c.Estimator.Type))
	}
	switch c.LLM.Provider {
	case ProviderGroq, ProviderOpenAI, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q: want groq, openai or none", c.LLM.Provider))
	}
	if c.Fitting.SpeedThreshold <= 0 || c.Fitting.SpeedThreshold > maxSpeedThreshold {
		errs = append(errs, fmt.Errorf("fitting.speed_threshold %v: want (0, 1]", c.Fitting.SpeedThreshold))
	}
	if c.Fitting.EstimateSafetyFactor <= 0 || c.Fitting.EstimateSafetyFactor > maxSafetyFactor {
		errs = append(errs, fmt.Errorf("fitting.estimate_safety_factor %v: want (0, 1]", c.Fitting.EstimateSafetyFactor))
	}
	if c.Fitting.SynthesisSafetyFactor <= 0 || c.Fitting.SynthesisSafetyFactor > maxSafetyFactor {
		errs = append(errs, fmt.Errorf("fitting.synthesis_safety_factor %v: want (0, 1]", c.Fitting.SynthesisSafetyFactor))
	}
	if c.Fitting.MarginMS < 0 {
		errs = append(errs, fmt.Errorf("fitting.margin_ms %d: want >= 0", c.Fitting.MarginMS))
	}
	if c.Fitting.TailSlackMS < 0 {
		errs = append(errs, fmt.Errorf("fitting.tail_slack_ms %d: want >= 0", c.Fitting.TailSlackMS))
	}
	if c.Fitting.CheapShortenRetries < 0 || c.Fitting.RealShortenRetries < 0 {
		errs = append(errs, fmt.Errorf("fitting shorten retries %d/%d: want >= 0",
			c.Fitting.CheapShortenRetries, c.Fitting.RealShortenRetries))
	}
	if c.Fitting.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("fitting.concurrency %d: want >= 1", c.Fitting.Concurrency))
	}
	if c.GCS.Enabled && c.GCS.Bucket == "" {
		errs = append(errs, errors.New("gcs.enabled requires gcs.bucket or GCS_BUCKET"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// HasTTS reports whether real synthesis can run.
func (c *Config) HasTTS() bool {
	return len(c.ElevenLabsAPIKeys) > 0 && c.ElevenLabs.VoiceID != ""
}

func (c *Config) HasLLM() bool {
	return c.LLM.Provider != ProviderNone && c.LLM.APIKey != ""
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

func setFromEnv(dst *string, keys ...string) {
	if value := firstEnv(keys...); value != "" {
		*dst = value
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, envListSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
