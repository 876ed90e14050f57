package fitting

import (
	"errors"
	"fmt"

	"srtvoice/internal/audio"
)

type Outcome string

const (
	OutcomeFit       Outcome = "fit"
	OutcomeStretched Outcome = "stretched"
	OutcomeForced    Outcome = "forced"
	OutcomeTextOnly  Outcome = "text_only"
)

// Result is produced once per cue and not modified afterwards.
type Result struct {
	CueIndex    int
	PlacementMS int
	// Clip is nil for text-only results.
	Clip          *audio.Clip
	FinalText     string
	DurationMS    int
	RawDurationMS int
	AvailableMS   int
	OverflowMS    int
	Outcome       Outcome

	Estimates   int
	Syntheses   int
	Shortenings int
	Warnings    []string
}

func (r Result) HasAudio() bool {
	return r.Clip != nil
}

// RawOverflowMS is the overflow of the last synthesized clip before any
// stretching.
func (r Result) RawOverflowMS() int {
	return max(0, r.RawDurationMS-r.AvailableMS)
}

var ErrSynthesis = errors.New("synthesis failed")

// CueError reports a cue that could not produce audio.
type CueError struct {
	Index int
	Err   error
}

func (e *CueError) Error() string {
	return fmt.Sprintf("cue %d: %v", e.Index, e.Err)
}

func (e *CueError) Unwrap() error {
	return e.Err
}
