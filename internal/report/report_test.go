package report

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"srtvoice/internal/audio"
	"srtvoice/internal/fitting"
	"srtvoice/internal/subtitle"
	"srtvoice/internal/timing"
)

func sampleReport() *Report {
	cue := subtitle.Cue{Index: 0, StartMS: 0, EndMS: 2000, Text: "Hello there"}
	fitted := NewCue(cue, timing.Window{StartMS: 0, EndMS: 2100}, "[warmly] Hello there")
	fitted.ApplyResult(fitting.Result{
		CueIndex:      0,
		PlacementMS:   0,
		Clip:          &audio.Clip{Path: "x.wav", DurationMS: 2050},
		FinalText:     "Hello",
		DurationMS:    2050,
		RawDurationMS: 2050,
		AvailableMS:   2100,
		Outcome:       fitting.OutcomeFit,
		Syntheses:     2,
		Shortenings:   1,
	})

	failed := NewCue(subtitle.Cue{Index: 1, StartMS: 2200, EndMS: 4000, Text: "Second"},
		timing.Window{StartMS: 2100, EndMS: 4400}, "Second")
	failed.ApplyError(&fitting.CueError{Index: 1, Err: errors.New("boom")})

	forced := NewCue(subtitle.Cue{Index: 2, StartMS: 4500, EndMS: 6000, Text: strings.Repeat("long ", 20)},
		timing.Window{StartMS: 4100, EndMS: 16000}, "")
	forced.ApplyResult(fitting.Result{
		CueIndex:    2,
		PlacementMS: 4500,
		DurationMS:  12000,
		AvailableMS: 11900,
		OverflowMS:  100,
		Outcome:     fitting.OutcomeForced,
		Warnings:    []string{"stretch failed"},
	})

	return &Report{
		Source:      "talk.srt",
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Settings:    Settings{MarginMS: 100, TailSlackMS: 10000, SpeedThreshold: 0.9},
		Cues:        []CueReport{fitted, failed, forced},
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "talk.json")
	want := sampleReport()

	if err := Write(path, want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Source != want.Source || got.RunID != want.RunID || !got.GeneratedAt.Equal(want.GeneratedAt) {
		t.Errorf("header = %+v", got)
	}
	if len(got.Cues) != 3 {
		t.Fatalf("cues = %d, want 3", len(got.Cues))
	}
	if got.Cues[0].TaggedText != "[warmly] Hello there" || got.Cues[0].FinalText != "Hello" {
		t.Errorf("cue 0 = %+v", got.Cues[0])
	}
	if got.Cues[1].Error != "cue 1: boom" {
		t.Errorf("cue 1 error = %q", got.Cues[1].Error)
	}
}

func TestReadInvalid(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Read() expected error for missing file")
	}
}

func TestSummary(t *testing.T) {
	s := sampleReport().Summary()

	if s.Cues != 3 || s.Failed != 1 {
		t.Errorf("Cues = %d, Failed = %d", s.Cues, s.Failed)
	}
	if s.Outcomes["fit"] != 1 || s.Outcomes["forced"] != 1 {
		t.Errorf("Outcomes = %v", s.Outcomes)
	}
	if s.OverflowMS != 100 || s.Warnings != 1 {
		t.Errorf("OverflowMS = %d, Warnings = %d", s.OverflowMS, s.Warnings)
	}
}

func TestPathFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"output/talk.mp3", "output/talk.json"},
		{"talk.wav", "talk.json"},
		{"noext", "noext.json"},
	}
	for _, tt := range tests {
		if got := PathFor(tt.in); got != tt.want {
			t.Errorf("PathFor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sampleReport(), false)

	for _, want := range []string{"talk.srt (run-1)", "0-2100", "fit", "failed", "forced", "3 cues", "fit:1 forced:1 failed:1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("uncolored table contains ANSI escapes")
	}
	if !strings.Contains(out, "…") {
		t.Error("long text not truncated")
	}
}

func TestShouldColorize(t *testing.T) {
	if ShouldColorize(&bytes.Buffer{}) {
		t.Error("ShouldColorize(buffer) = true")
	}
}
