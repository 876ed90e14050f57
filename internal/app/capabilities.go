package app

import (
	"context"
	"fmt"
	"path/filepath"

	"srtvoice/internal/audio"
	"srtvoice/internal/fitting"
	"srtvoice/internal/speech"
	"srtvoice/internal/storage"
)

// AudioTool is the ffmpeg surface the pipeline needs. *audio.Tool satisfies it.
type AudioTool interface {
	DurationMS(ctx context.Context, path string) (int, error)
	Stretch(ctx context.Context, clip audio.Clip, targetMS int, outPath string) (audio.Clip, error)
	Normalize(ctx context.Context, inPath, outPath string) error
	Concat(ctx context.Context, paths []string, outPath string) error
}

// Rewriter is the language model surface. *llm.Rewriter satisfies it.
type Rewriter interface {
	AddTags(ctx context.Context, text string, prev, next []string) (string, error)
	Shorten(ctx context.Context, text string, ratio float64, prev, next []string) (string, error)
}

// speechSynthesizer stores each attempt as cue_NNNN/raw_N.<ext> in the run's
// scratch directory and measures it.
type speechSynthesizer struct {
	provider   speech.Provider
	storage    *storage.LocalStorage
	meter      speech.DurationMeter
	scratchDir string
}

func (s *speechSynthesizer) Synthesize(ctx context.Context, req fitting.SynthesisRequest) (audio.Clip, error) {
	data, err := s.provider.Synthesize(ctx, req.Text)
	if err != nil {
		return audio.Clip{}, err
	}

	name := fmt.Sprintf("raw_%d%s", req.Attempt, audio.DetectFormat(data))
	path, err := s.storage.SaveAudio(storage.CueDir(s.scratchDir, req.CueIndex), data, name)
	if err != nil {
		return audio.Clip{}, err
	}

	ms, err := s.meter.DurationMS(ctx, path)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("measure %s: %w", name, err)
	}
	return audio.Clip{Path: path, DurationMS: ms}, nil
}

type ffmpegStretcher struct {
	tool       AudioTool
	scratchDir string
}

func (s *ffmpegStretcher) Stretch(ctx context.Context, req fitting.StretchRequest) (audio.Clip, error) {
	out := filepath.Join(storage.CueDir(s.scratchDir, req.CueIndex), "stretched.wav")
	return s.tool.Stretch(ctx, req.Clip, req.TargetMS, out)
}

type llmShortener struct {
	rewriter Rewriter
}

func (s *llmShortener) Shorten(ctx context.Context, req fitting.ShortenRequest) (string, error) {
	return s.rewriter.Shorten(ctx, req.Text, req.TargetRatio, req.Prev, req.Next)
}
