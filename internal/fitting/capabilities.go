package fitting

import (
	"context"

	"srtvoice/internal/audio"
)

type Estimator interface {
	EstimateMS(ctx context.Context, text, lang string) (int, error)
}

type SynthesisRequest struct {
	CueIndex int
	// Attempt starts at 1 and increases with each authoritative synthesis.
	Attempt int
	Text    string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (audio.Clip, error)
}

type ShortenRequest struct {
	CueIndex    int
	Text        string
	TargetRatio float64
	Prev        []string
	Next        []string
}

type Shortener interface {
	Shorten(ctx context.Context, req ShortenRequest) (string, error)
}

type StretchRequest struct {
	CueIndex int
	Clip     audio.Clip
	TargetMS int
}

// Stretcher must return a clip of exactly TargetMS when the input is longer,
// and the input unchanged otherwise.
type Stretcher interface {
	Stretch(ctx context.Context, req StretchRequest) (audio.Clip, error)
}

type Capabilities struct {
	Estimator   Estimator
	Synthesizer Synthesizer
	Shortener   Shortener
	Stretcher   Stretcher
}

// Neighbors carries the texts around a cue for shortening context.
type Neighbors struct {
	Prev []string
	Next []string
}
