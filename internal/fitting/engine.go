package fitting

import (
	"context"
	"fmt"
	"log/slog"

	"srtvoice/internal/audio"
	"srtvoice/internal/subtitle"
	"srtvoice/internal/timing"
)

type state int

const (
	statePreFit state = iota
	stateAuthoritativeFit
	stateForcedFit
	stateDone
)

func (s state) String() string {
	switch s {
	case statePreFit:
		return "PRE_FIT"
	case stateAuthoritativeFit:
		return "AUTHORITATIVE_FIT"
	case stateForcedFit:
		return "FORCED_FIT"
	case stateDone:
		return "DONE"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Engine holds no per-cue state and is safe for concurrent use when its
// capabilities are.
type Engine struct {
	cfg  Config
	caps Capabilities
}

func NewEngine(cfg Config, caps Capabilities) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, caps: caps}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// fitRun is the mutable state of a single Fit call.
type fitRun struct {
	engine    *Engine
	cue       subtitle.Cue
	window    timing.Window
	neighbors Neighbors
	available int

	text          string
	cheapAttempts int
	realAttempts  int
	lastClip      audio.Clip
	speedRatio    float64

	result Result
}

func (e *Engine) Fit(ctx context.Context, cue subtitle.Cue, window timing.Window, neighbors Neighbors) (Result, error) {
	run := &fitRun{
		engine:    e,
		cue:       cue,
		window:    window,
		neighbors: neighbors,
		text:      cue.Text,
		available: window.SizeMS(),
		result: Result{
			CueIndex:    cue.Index,
			PlacementMS: cue.StartMS,
			FinalText:   cue.Text,
		},
	}
	if run.available <= 0 {
		run.available = cue.DurationMS()
		run.warn("window is empty, falling back to cue duration", "window_start", window.StartMS, "window_end", window.EndMS)
	}
	run.result.AvailableMS = run.available

	st := stateAuthoritativeFit
	if e.caps.Estimator != nil && run.available > 0 {
		st = statePreFit
	}

	for st != stateDone {
		if err := ctx.Err(); err != nil {
			return Result{}, &CueError{Index: cue.Index, Err: err}
		}

		slog.Debug("Fitting cue", "cue", cue.Index, "state", st.String())

		var err error
		switch st {
		case statePreFit:
			st = run.preFit(ctx)
		case stateAuthoritativeFit:
			st, err = run.authoritativeFit(ctx)
		case stateForcedFit:
			st = run.forcedFit(ctx)
		default:
			return Result{}, fmt.Errorf("cue %d: unexpected state %s", cue.Index, st)
		}
		if err != nil {
			return Result{}, err
		}
	}

	return run.result, nil
}

func (r *fitRun) preFit(ctx context.Context) state {
	cfg := r.engine.cfg
	r.cheapAttempts++

	estimated, err := r.engine.caps.Estimator.EstimateMS(ctx, r.text, cfg.Language)
	r.result.Estimates++
	if err != nil {
		r.warn("estimate failed, skipping pre-fit", "error", err)
		return stateAuthoritativeFit
	}
	if estimated <= r.available {
		return stateAuthoritativeFit
	}
	if r.cheapAttempts > cfg.CheapShortenRetries || r.engine.caps.Shortener == nil {
		return stateAuthoritativeFit
	}

	ratio := float64(r.available) / float64(estimated)
	if !r.shorten(ctx, ratio*cfg.EstimateSafetyFactor) {
		return stateAuthoritativeFit
	}
	return statePreFit
}

func (r *fitRun) authoritativeFit(ctx context.Context) (state, error) {
	cfg := r.engine.cfg
	synth := r.engine.caps.Synthesizer

	if synth == nil {
		r.result.FinalText = r.text
		r.result.Outcome = OutcomeTextOnly
		return stateDone, nil
	}

	r.realAttempts++
	clip, err := synth.Synthesize(ctx, SynthesisRequest{
		CueIndex: r.cue.Index,
		Attempt:  r.realAttempts,
		Text:     r.text,
	})
	r.result.Syntheses++
	if err != nil {
		return stateDone, &CueError{Index: r.cue.Index, Err: fmt.Errorf("%w: %w", ErrSynthesis, err)}
	}
	r.lastClip = clip
	r.result.RawDurationMS = clip.DurationMS

	if clip.DurationMS <= r.available {
		r.finish(clip, OutcomeFit)
		return stateDone, nil
	}
	if r.available <= 0 {
		r.warn("no time available, keeping unstretched audio", "duration_ms", clip.DurationMS)
		r.finish(clip, OutcomeForced)
		return stateDone, nil
	}

	r.speedRatio = float64(r.available) / float64(clip.DurationMS)
	if r.speedRatio >= cfg.SpeedThreshold {
		r.finish(r.stretch(ctx, clip), OutcomeStretched)
		return stateDone, nil
	}

	if r.realAttempts > cfg.RealShortenRetries || r.engine.caps.Shortener == nil {
		return stateForcedFit, nil
	}
	if !r.shorten(ctx, r.speedRatio*cfg.SynthesisSafetyFactor) {
		return stateForcedFit, nil
	}
	return stateAuthoritativeFit, nil
}

func (r *fitRun) forcedFit(ctx context.Context) state {
	r.warn("forced fit",
		"attempts", r.realAttempts,
		"speed_ratio", fmt.Sprintf("%.3f", r.speedRatio),
		"threshold", r.engine.cfg.SpeedThreshold,
	)
	r.finish(r.stretch(ctx, r.lastClip), OutcomeForced)
	return stateDone
}

// shorten replaces the working text and reports whether it did.
func (r *fitRun) shorten(ctx context.Context, targetRatio float64) bool {
	shortener := r.engine.caps.Shortener
	if shortener == nil {
		return false
	}

	shortened, err := shortener.Shorten(ctx, ShortenRequest{
		CueIndex:    r.cue.Index,
		Text:        r.text,
		TargetRatio: targetRatio,
		Prev:        r.neighbors.Prev,
		Next:        r.neighbors.Next,
	})
	r.result.Shortenings++
	if err != nil {
		r.warn("shortening failed", "error", err)
		return false
	}
	if shortened == "" {
		r.warn("shortening returned empty text")
		return false
	}

	slog.Debug("Shortened cue text", "cue", r.cue.Index, "target_ratio", fmt.Sprintf("%.3f", targetRatio), "text", shortened)
	r.text = shortened
	return true
}

// stretch falls back to the unstretched clip when no stretcher is configured
// or stretching fails; the residual overflow then shows up in the result.
func (r *fitRun) stretch(ctx context.Context, clip audio.Clip) audio.Clip {
	stretcher := r.engine.caps.Stretcher
	if stretcher == nil {
		r.warn("no stretcher configured, keeping unstretched audio")
		return clip
	}

	out, err := stretcher.Stretch(ctx, StretchRequest{
		CueIndex: r.cue.Index,
		Clip:     clip,
		TargetMS: r.available,
	})
	if err != nil {
		r.warn("stretch failed, keeping unstretched audio", "error", err)
		return clip
	}
	return out
}

func (r *fitRun) finish(clip audio.Clip, outcome Outcome) {
	c := clip
	r.result.Clip = &c
	r.result.FinalText = r.text
	r.result.DurationMS = clip.DurationMS
	r.result.OverflowMS = max(0, clip.DurationMS-r.available)
	r.result.PlacementMS = Place(r.cue, r.window, clip.DurationMS)
	r.result.Outcome = outcome
}

func (r *fitRun) warn(msg string, args ...any) {
	slog.Warn(msg, append([]any{"cue", r.cue.Index}, args...)...)

	detail := msg
	for i := 0; i+1 < len(args); i += 2 {
		detail += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	r.result.Warnings = append(r.result.Warnings, detail)
}
