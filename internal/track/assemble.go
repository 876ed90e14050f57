// Package track folds fitted clips into one continuous master track.
package track

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"srtvoice/internal/audio"
)

var ErrEmptyInput = errors.New("no audio entries to assemble")

// EmptyInputError is returned when nothing with audio reaches the assembler.
type EmptyInputError struct {
	Given int
}

func (e *EmptyInputError) Error() string {
	if e.Given == 0 {
		return ErrEmptyInput.Error()
	}
	return fmt.Sprintf("%s (%d entries, none with audio)", ErrEmptyInput, e.Given)
}

func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// Entry is one placed clip. A nil Clip marks a text-only cue.
type Entry struct {
	CueIndex int
	StartMS  int
	Clip     *audio.Clip
}

type SegmentKind string

const (
	SegmentSilence SegmentKind = "silence"
	SegmentClip    SegmentKind = "clip"
)

type Segment struct {
	Kind       SegmentKind
	StartMS    int
	DurationMS int
	CueIndex   int
	Clip       *audio.Clip
}

// MasterTrack addresses its segments back to back from zero.
type MasterTrack struct {
	Segments   []Segment
	DurationMS int
}

func (m *MasterTrack) Clips() int {
	n := 0
	for _, s := range m.Segments {
		if s.Kind == SegmentClip {
			n++
		}
	}
	return n
}

// Assemble orders entries by start time, keeping input order on ties, and
// fills gaps with silence. An entry starting before the cursor is appended at
// the cursor instead of being mixed.
func Assemble(entries []Entry) (*MasterTrack, error) {
	placed := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Clip != nil {
			placed = append(placed, e)
		}
	}
	if len(placed) == 0 {
		return nil, &EmptyInputError{Given: len(entries)}
	}

	slices.SortStableFunc(placed, func(a, b Entry) int {
		return cmp.Compare(a.StartMS, b.StartMS)
	})

	track := &MasterTrack{Segments: make([]Segment, 0, len(placed)*2)}
	cursor := 0
	for _, e := range placed {
		if e.StartMS > cursor {
			track.Segments = append(track.Segments, Segment{
				Kind:       SegmentSilence,
				StartMS:    cursor,
				DurationMS: e.StartMS - cursor,
				CueIndex:   -1,
			})
			cursor = e.StartMS
		}

		clip := *e.Clip
		track.Segments = append(track.Segments, Segment{
			Kind:       SegmentClip,
			StartMS:    cursor,
			DurationMS: clip.DurationMS,
			CueIndex:   e.CueIndex,
			Clip:       &clip,
		})
		cursor += clip.DurationMS
	}
	track.DurationMS = cursor

	return track, nil
}
