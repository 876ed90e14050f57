package fitting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"srtvoice/internal/audio"
)

// lengthSynth voices every character as msPerChar of audio.
type lengthSynth struct {
	msPerChar int
	err       error

	mu    sync.Mutex
	calls []SynthesisRequest
}

func (s *lengthSynth) Synthesize(_ context.Context, req SynthesisRequest) (audio.Clip, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.err != nil {
		return audio.Clip{}, s.err
	}
	return audio.Clip{
		Path:       fmt.Sprintf("cue_%d/raw_%d.wav", req.CueIndex, req.Attempt),
		DurationMS: len([]rune(req.Text)) * s.msPerChar,
	}, nil
}

// scriptedSynth returns durations in order, repeating the last one.
type scriptedSynth struct {
	durations []int
	calls     []SynthesisRequest
}

func (s *scriptedSynth) Synthesize(_ context.Context, req SynthesisRequest) (audio.Clip, error) {
	s.calls = append(s.calls, req)
	i := min(len(s.calls)-1, len(s.durations)-1)
	return audio.Clip{
		Path:       fmt.Sprintf("raw_%d.wav", req.Attempt),
		DurationMS: s.durations[i],
	}, nil
}

type lengthEstimator struct {
	msPerChar int
	err       error
	calls     int
}

func (e *lengthEstimator) EstimateMS(_ context.Context, text, _ string) (int, error) {
	e.calls++
	if e.err != nil {
		return 0, e.err
	}
	return len([]rune(text)) * e.msPerChar, nil
}

// truncatingShortener keeps the leading share of the text given by the
// target ratio.
type truncatingShortener struct {
	err   error
	calls []ShortenRequest
}

func (s *truncatingShortener) Shorten(_ context.Context, req ShortenRequest) (string, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return "", s.err
	}
	runes := []rune(req.Text)
	keep := max(1, int(float64(len(runes))*req.TargetRatio))
	return string(runes[:min(keep, len(runes))]), nil
}

type suffixShortener struct {
	calls []ShortenRequest
}

func (s *suffixShortener) Shorten(_ context.Context, req ShortenRequest) (string, error) {
	s.calls = append(s.calls, req)
	return req.Text + "'", nil
}

type exactStretcher struct {
	err   error
	calls []StretchRequest
}

func (s *exactStretcher) Stretch(_ context.Context, req StretchRequest) (audio.Clip, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return audio.Clip{}, s.err
	}
	if req.Clip.DurationMS <= req.TargetMS {
		return req.Clip, nil
	}
	return audio.Clip{
		Path:       strings.TrimSuffix(req.Clip.Path, ".wav") + "_fit.wav",
		DurationMS: req.TargetMS,
	}, nil
}

var errBoom = errors.New("boom")
