package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"srtvoice/internal/fitting"
	"srtvoice/internal/report"
	"srtvoice/internal/subtitle"
	"srtvoice/internal/timing"
	"srtvoice/internal/track"
)

const defaultParallelism = 2

type Pipeline struct {
	service *Service
	now     func() time.Time
}

type SynthesizeRequest struct {
	InputPath string
	// OutputPath defaults to <output dir>/<input stem>.mp3.
	OutputPath  string
	NoTags      bool
	JSONOnly    bool
	KeepScratch bool
	// Concurrency overrides fitting.concurrency when positive.
	Concurrency int
}

type SynthesizeResult struct {
	RunID      string
	OutputPath string
	ReportPath string
	Report     *report.Report
	Track      *track.MasterTrack
}

type cueOutcome struct {
	index  int
	result fitting.Result
	err    error
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service, now: time.Now}
}

func (pipeline *Pipeline) Synthesize(ctx context.Context, req SynthesizeRequest) (*SynthesizeResult, error) {
	cfg := pipeline.service.Config()

	cues, err := subtitle.ParseFile(req.InputPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Parsed subtitles", "file", req.InputPath, "cues", len(cues))

	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = defaultOutputPath(req.InputPath)
	}
	outputPath = pipeline.service.Storage().OutputPath(outputPath)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	synthesize := !req.JSONOnly
	if synthesize && pipeline.service.TTS() == nil {
		return nil, errors.New("no speech provider configured")
	}

	sess, err := newSession(pipeline.service.Storage(), outputPath, synthesize)
	if err != nil {
		return nil, err
	}
	keepScratch := req.KeepScratch || cfg.Output.KeepScratch
	defer func() {
		if err := sess.release(keepScratch); err != nil {
			slog.Warn("Failed to release session", "error", err)
		}
		if keepScratch && sess.scratchDir != "" {
			slog.Info("Scratch kept", "dir", sess.scratchDir)
		}
	}()

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Fitting.Concurrency
	}
	if concurrency <= 0 {
		concurrency = defaultParallelism
	}

	noTags := req.NoTags || cfg.LLM.DisableTags
	tagged := pipeline.tagAll(ctx, cues, !noTags, concurrency)
	windows := timing.ComputeAll(cues, cfg.Fitting.MarginMS, cfg.Fitting.TailSlackMS)

	rep := pipeline.newReport(req, sess.id, cues, windows, tagged)
	rep.Settings.Tags = !noTags && pipeline.service.Rewriter() != nil
	result := &SynthesizeResult{
		RunID:      sess.id,
		ReportPath: report.PathFor(outputPath),
		Report:     rep,
	}

	if synthesize {
		master, err := pipeline.synthesizeTrack(ctx, sess, cues, windows, tagged, rep, concurrency, outputPath)
		if err != nil {
			if writeErr := report.Write(result.ReportPath, rep); writeErr != nil {
				slog.Warn("Failed to write report", "error", writeErr)
			}
			return nil, err
		}
		result.OutputPath = outputPath
		result.Track = master
		rep.Output = filepath.Base(outputPath)
		rep.TotalDurationMS = master.DurationMS
		pipeline.publish(ctx, sess.id, rep, outputPath)
	}

	if err := report.Write(result.ReportPath, rep); err != nil {
		return nil, err
	}
	slog.Info("Report written", "path", result.ReportPath)
	pipeline.publish(ctx, sess.id, nil, result.ReportPath)

	return result, nil
}

func (pipeline *Pipeline) newReport(req SynthesizeRequest, runID string, cues []subtitle.Cue, windows []timing.Window, tagged []string) *report.Report {
	cfg := pipeline.service.Config()
	names := pipeline.service.names

	rep := &report.Report{
		Source:      filepath.Base(req.InputPath),
		RunID:       runID,
		GeneratedAt: pipeline.now().UTC(),
		Settings: report.Settings{
			MarginMS:            cfg.Fitting.MarginMS,
			TailSlackMS:         cfg.Fitting.TailSlackMS,
			SpeedThreshold:      cfg.Fitting.SpeedThreshold,
			CheapShortenRetries: cfg.Fitting.CheapShortenRetries,
			RealShortenRetries:  cfg.Fitting.RealShortenRetries,
			Language:            cfg.Fitting.Language,
			JSONOnly:            req.JSONOnly,
			Synthesizer:         names.Synthesizer,
			Estimator:           names.Estimator,
			Shortener:           names.Shortener,
		},
		Cues: make([]report.CueReport, len(cues)),
	}
	for i, cue := range cues {
		rep.Cues[i] = report.NewCue(cue, windows[i], tagged[i])
	}
	return rep
}

// tagAll annotates every cue with audio tags, using the original texts of
// neighboring cues as context. A failed cue keeps its original text.
func (pipeline *Pipeline) tagAll(ctx context.Context, cues []subtitle.Cue, enabled bool, parallelism int) []string {
	tagged := make([]string, len(cues))
	for i, cue := range cues {
		tagged[i] = cue.Text
	}

	rewriter := pipeline.service.Rewriter()
	if !enabled || rewriter == nil {
		return tagged
	}
	window := pipeline.service.Config().LLM.ContextWindow

	slog.Info("Adding audio tags...", "cues", len(cues))

	type result struct {
		index int
		text  string
	}

	results := make(chan result, len(cues))
	semaphore := make(chan struct{}, parallelism)

	for i := range cues {
		go func(i int) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			prev, next := subtitle.Neighbors(cues, i, window)
			text, err := rewriter.AddTags(ctx, cues[i].Text, prev, next)
			if err != nil || strings.TrimSpace(text) == "" {
				slog.Warn("Tagging failed, keeping original text", "cue", cues[i].Index, "error", err)
				results <- result{index: i, text: cues[i].Text}
				return
			}
			results <- result{index: i, text: text}
		}(i)
	}

	for range cues {
		r := <-results
		tagged[r.index] = r.text
	}
	return tagged
}

func (pipeline *Pipeline) synthesizeTrack(
	ctx context.Context,
	sess *session,
	cues []subtitle.Cue,
	windows []timing.Window,
	tagged []string,
	rep *report.Report,
	parallelism int,
	outputPath string,
) (*track.MasterTrack, error) {
	engine, err := fitting.NewEngine(pipeline.fittingConfig(), pipeline.capabilities(sess.scratchDir))
	if err != nil {
		return nil, err
	}

	outcomes, err := pipeline.fitAll(ctx, engine, cues, windows, tagged, parallelism)
	if err != nil {
		return nil, err
	}

	entries := make([]track.Entry, 0, len(outcomes))
	for i, o := range outcomes {
		if o.err != nil {
			rep.Cues[i].ApplyError(o.err)
			continue
		}
		rep.Cues[i].ApplyResult(o.result)
		entries = append(entries, track.Entry{
			CueIndex: o.result.CueIndex,
			StartMS:  o.result.PlacementMS,
			Clip:     o.result.Clip,
		})
	}

	master, err := track.Assemble(entries)
	if err != nil {
		return nil, fmt.Errorf("assemble track: %w", err)
	}

	slog.Info("Rendering master track...", "segments", len(master.Segments), "duration_ms", master.DurationMS)
	if err := track.NewRenderer(pipeline.service.Tool(), sess.scratchDir).Render(ctx, master, outputPath); err != nil {
		return nil, fmt.Errorf("render track: %w", err)
	}
	return master, nil
}

// fitAll runs the engine for every cue on a bounded set of workers. With
// fail_fast unset a synthesis failure is recorded for its cue and the run
// continues.
func (pipeline *Pipeline) fitAll(
	ctx context.Context,
	engine *fitting.Engine,
	cues []subtitle.Cue,
	windows []timing.Window,
	tagged []string,
	parallelism int,
) ([]cueOutcome, error) {
	cfg := pipeline.service.Config()
	failFast := cfg.Fitting.FailFast
	window := cfg.LLM.ContextWindow

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	spoken := make([]subtitle.Cue, len(cues))
	for i, cue := range cues {
		cue.Text = tagged[i]
		spoken[i] = cue
	}

	results := make(chan cueOutcome, len(spoken))
	semaphore := make(chan struct{}, parallelism)

	for i := range spoken {
		go func(i int) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			prev, next := subtitle.Neighbors(cues, i, window)
			slog.Info("Fitting cue", "cue", spoken[i].Index, "total", len(spoken))
			res, err := engine.Fit(ctx, spoken[i], windows[i], fitting.Neighbors{Prev: prev, Next: next})
			results <- cueOutcome{index: i, result: res, err: err}
		}(i)
	}

	outcomes := make([]cueOutcome, len(spoken))
	var firstErr error
	for range spoken {
		o := <-results
		outcomes[o.index] = o
		if o.err == nil {
			continue
		}
		if failFast && firstErr == nil {
			firstErr = o.err
			cancel()
		}
		if !failFast {
			slog.Warn("Cue failed, continuing", "cue", spoken[o.index].Index, "error", o.err)
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return outcomes, nil
}

func (pipeline *Pipeline) fittingConfig() fitting.Config {
	f := pipeline.service.Config().Fitting
	return fitting.Config{
		SpeedThreshold:        f.SpeedThreshold,
		CheapShortenRetries:   f.CheapShortenRetries,
		RealShortenRetries:    f.RealShortenRetries,
		EstimateSafetyFactor:  f.EstimateSafetyFactor,
		SynthesisSafetyFactor: f.SynthesisSafetyFactor,
		Language:              f.Language,
	}
}

func (pipeline *Pipeline) capabilities(scratchDir string) fitting.Capabilities {
	service := pipeline.service
	caps := fitting.Capabilities{
		Synthesizer: &speechSynthesizer{
			provider:   service.TTS(),
			storage:    service.Storage(),
			meter:      service.Tool(),
			scratchDir: scratchDir,
		},
		Stretcher: &ffmpegStretcher{tool: service.Tool(), scratchDir: scratchDir},
	}
	if service.Estimator() != nil {
		caps.Estimator = service.Estimator()
	}
	if service.Rewriter() != nil {
		caps.Shortener = &llmShortener{rewriter: service.Rewriter()}
	}
	return caps
}

// publish uploads one artifact when a publisher is configured and records
// its URI on rep when given. Failures are logged and leave the local file in
// place.
func (pipeline *Pipeline) publish(ctx context.Context, runID string, rep *report.Report, path string) {
	publisher := pipeline.service.Publisher()
	if publisher == nil {
		return
	}

	uri, err := publisher.Publish(ctx, path, runID+"/"+filepath.Base(path))
	if err != nil {
		slog.Warn("Failed to publish artifact", "path", path, "error", err)
		return
	}
	slog.Info("Published artifact", "uri", uri)
	if rep != nil {
		rep.Published = append(rep.Published, uri)
	}
}

func defaultOutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".mp3"
}
