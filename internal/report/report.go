// Package report records what happened to every cue of a run as JSON and
// renders it back as a terminal table.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"srtvoice/internal/fitting"
	"srtvoice/internal/subtitle"
	"srtvoice/internal/timing"
)

type Report struct {
	Source          string      `json:"source"`
	RunID           string      `json:"run_id"`
	GeneratedAt     time.Time   `json:"generated_at"`
	Output          string      `json:"output,omitempty"`
	TotalDurationMS int         `json:"total_duration_ms,omitempty"`
	Settings        Settings    `json:"settings"`
	Cues            []CueReport `json:"subtitles"`
	Published       []string    `json:"published,omitempty"`
}

type Settings struct {
	MarginMS            int     `json:"margin_ms"`
	TailSlackMS         int     `json:"tail_slack_ms"`
	SpeedThreshold      float64 `json:"speed_threshold"`
	CheapShortenRetries int     `json:"cheap_shorten_retries"`
	RealShortenRetries  int     `json:"real_shorten_retries"`
	Language            string  `json:"language"`
	Tags                bool    `json:"tags"`
	JSONOnly            bool    `json:"json_only"`
	Synthesizer         string  `json:"synthesizer,omitempty"`
	Estimator           string  `json:"estimator,omitempty"`
	Shortener           string  `json:"shortener,omitempty"`
}

type CueReport struct {
	Index         int      `json:"index"`
	StartMS       int      `json:"start_ms"`
	EndMS         int      `json:"end_ms"`
	WindowStartMS int      `json:"window_start_ms"`
	WindowEndMS   int      `json:"window_end_ms"`
	AvailableMS   int      `json:"available_ms,omitempty"`
	OriginalText  string   `json:"original_text"`
	TaggedText    string   `json:"tagged_text"`
	FinalText     string   `json:"final_text,omitempty"`
	RawDurationMS int      `json:"raw_duration_ms,omitempty"`
	DurationMS    int      `json:"duration_ms,omitempty"`
	OverflowMS    int      `json:"overflow_ms,omitempty"`
	PlacementMS   int      `json:"placement_ms"`
	Outcome       string   `json:"outcome,omitempty"`
	Estimates     int      `json:"estimates,omitempty"`
	Syntheses     int      `json:"syntheses,omitempty"`
	Shortenings   int      `json:"shortenings,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func NewCue(cue subtitle.Cue, window timing.Window, taggedText string) CueReport {
	return CueReport{
		Index:         cue.Index,
		StartMS:       cue.StartMS,
		EndMS:         cue.EndMS,
		WindowStartMS: window.StartMS,
		WindowEndMS:   window.EndMS,
		OriginalText:  cue.Text,
		TaggedText:    taggedText,
		PlacementMS:   cue.StartMS,
	}
}

func (c *CueReport) ApplyResult(r fitting.Result) {
	c.AvailableMS = r.AvailableMS
	c.FinalText = r.FinalText
	c.RawDurationMS = r.RawDurationMS
	c.DurationMS = r.DurationMS
	c.OverflowMS = r.OverflowMS
	c.PlacementMS = r.PlacementMS
	c.Outcome = string(r.Outcome)
	c.Estimates = r.Estimates
	c.Syntheses = r.Syntheses
	c.Shortenings = r.Shortenings
	c.Warnings = r.Warnings
}

func (c *CueReport) ApplyError(err error) {
	c.Error = err.Error()
}

type Summary struct {
	Cues       int
	Outcomes   map[string]int
	Failed     int
	Warnings   int
	OverflowMS int
}

func (r *Report) Summary() Summary {
	s := Summary{Cues: len(r.Cues), Outcomes: make(map[string]int)}
	for _, c := range r.Cues {
		if c.Error != "" {
			s.Failed++
			continue
		}
		if c.Outcome != "" {
			s.Outcomes[c.Outcome]++
		}
		s.Warnings += len(c.Warnings)
		s.OverflowMS += c.OverflowMS
	}
	return s
}

// PathFor returns the report path that sits next to an audio output.
func PathFor(outputPath string) string {
	return strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".json"
}

func Write(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}
