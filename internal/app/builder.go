package app

import (
	"context"
	"fmt"
	"log/slog"

	"srtvoice/internal/audio"
	"srtvoice/internal/cache"
	"srtvoice/internal/fitting"
	"srtvoice/internal/llm"
	"srtvoice/internal/llm/groq"
	"srtvoice/internal/llm/openai"
	"srtvoice/internal/speech"
	"srtvoice/internal/speech/elevenlabs"
	"srtvoice/internal/storage"
	"srtvoice/pkg/config"
	"srtvoice/pkg/prompts"
)

type BuildOptions struct {
	// NeedSpeech is false for runs that only tag text.
	NeedSpeech bool
	// NeedRewriter is false when tagging is off and no shortening can happen.
	NeedRewriter bool
}

func BuildService(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Service, error) {
	var closers []func() error
	fail := func(err error) (*Service, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	localStorage := storage.NewLocalStorage(cfg.Output.Dir, cfg.Output.WorkDir)
	if err := localStorage.EnsureDirectories(); err != nil {
		return fail(err)
	}

	tool := audio.NewTool(cfg.Audio.FFmpegPath, cfg.Audio.FFprobePath, audio.WithBitrate(cfg.Audio.Bitrate))
	names := ComponentNames{}

	var store *cache.Store
	if opts.NeedSpeech && !cfg.Cache.Disabled {
		s, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return fail(err)
		}
		store = s
		closers = append(closers, store.Close)
	}

	var ttsProvider speech.Provider
	if opts.NeedSpeech {
		if err := tool.CheckBinaries(); err != nil {
			return fail(fmt.Errorf("audio toolchain: %w", err))
		}
		provider, name := buildSpeech(cfg, cfg.ElevenLabs.Model, store)
		ttsProvider = provider
		names.Synthesizer = name
	}

	estimator, estimatorName := buildEstimator(cfg, store, tool)
	names.Estimator = estimatorName

	var rewriter Rewriter
	if opts.NeedRewriter || opts.NeedSpeech {
		r, name, err := buildRewriter(cfg)
		if err != nil {
			return fail(err)
		}
		if r != nil {
			rewriter = r
			names.Shortener = name
		}
	}

	var publisher storage.Publisher
	if cfg.GCS.Enabled {
		gcsOpts, err := storage.CredentialsOptions(ctx, cfg.CredentialsFile)
		if err != nil {
			return fail(err)
		}
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCS.Bucket, cfg.GCS.Prefix, gcsOpts...)
		if err != nil {
			return fail(err)
		}
		publisher = gcs
		closers = append(closers, gcs.Close)
	}

	return NewService(ServiceOptions{
		Config:    cfg,
		TTS:       ttsProvider,
		Estimator: estimator,
		Rewriter:  rewriter,
		Tool:      tool,
		Storage:   localStorage,
		Publisher: publisher,
		Cache:     store,
		Names:     names,
		Closers:   closers,
	}), nil
}

// buildSpeech falls back to the silent stub when ElevenLabs is not configured.
func buildSpeech(cfg *config.Config, model string, store *cache.Store) (speech.Provider, string) {
	var provider speech.NamedProvider
	if cfg.HasTTS() {
		provider = elevenlabs.NewClient(elevenlabs.Config{
			APIKeys:      cfg.ElevenLabsAPIKeys,
			BaseURL:      cfg.ElevenLabs.BaseURL,
			VoiceID:      cfg.ElevenLabs.VoiceID,
			Model:        model,
			OutputFormat: cfg.ElevenLabs.OutputFormat,
			LanguageCode: cfg.ElevenLabs.LanguageCode,
			Speed:        cfg.ElevenLabs.Speed,
			Stability:    cfg.ElevenLabs.Stability,
			Similarity:   cfg.ElevenLabs.Similarity,
		})
	} else {
		slog.Warn("ElevenLabs not configured (missing ELEVENLABS_API_KEY or voice id), using silent stub")
		provider = speech.NewStubProvider(cfg.Estimator.WordsPerMinute)
	}

	name := provider.CacheKey()
	if store == nil {
		return provider, name
	}
	return cache.NewCachedProvider(provider, store), name
}

func buildEstimator(cfg *config.Config, store *cache.Store, tool *audio.Tool) (fitting.Estimator, string) {
	switch cfg.Estimator.Type {
	case config.EstimatorNone:
		return nil, ""
	case config.EstimatorProvider:
		if cfg.HasTTS() {
			provider, name := buildSpeech(cfg, cfg.Estimator.Model, store)
			return speech.NewProviderEstimator(provider, tool, cfg.Output.WorkDir, cfg.Estimator.Ratio), "provider:" + name
		}
		slog.Warn("Provider estimator needs ElevenLabs, falling back to rate estimator")
	}
	return speech.NewRateEstimator(cfg.Estimator.WordsPerMinute, cfg.Estimator.CharsPerSecond, cfg.Estimator.Ratio), "rate"
}

// buildRewriter returns a nil Rewriter when no language model is configured.
func buildRewriter(cfg *config.Config) (Rewriter, string, error) {
	if !cfg.HasLLM() {
		slog.Warn("LLM not configured, audio tags and shortening disabled", "provider", cfg.LLM.Provider)
		return nil, "", nil
	}

	p, err := prompts.Load(cfg.LLM.PromptsPath)
	if err != nil {
		return nil, "", err
	}

	var client llm.Client
	switch cfg.LLM.Provider {
	case config.ProviderGroq:
		c, err := groq.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
		if err != nil {
			return nil, "", err
		}
		client = c
	case config.ProviderOpenAI:
		client = openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
	default:
		return nil, "", fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	return llm.NewRewriter(client, p), cfg.LLM.Provider, nil
}
