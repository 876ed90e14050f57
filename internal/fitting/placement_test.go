package fitting

import (
	"math/rand/v2"
	"testing"

	"srtvoice/internal/subtitle"
	"srtvoice/internal/timing"
)

func TestPlace(t *testing.T) {
	cue := subtitle.Cue{StartMS: 1000, EndMS: 2000}

	tests := []struct {
		name     string
		window   timing.Window
		duration int
		want     int
	}{
		{
			name:     "fitsCueSpan",
			window:   timing.Window{StartMS: 500, EndMS: 2100},
			duration: 1000,
			want:     1000,
		},
		{
			name:     "shiftByOverflow",
			window:   timing.Window{StartMS: 500, EndMS: 2100},
			duration: 1200,
			want:     800,
		},
		{
			name:     "shiftCappedByMarginBefore",
			window:   timing.Window{StartMS: 700, EndMS: 2100},
			duration: 1600,
			want:     700,
		},
		{
			name:     "equalMarginsShift",
			window:   timing.Window{StartMS: 900, EndMS: 2100},
			duration: 1050,
			want:     950,
		},
		{
			name:     "moreRoomAfterKeepsStart",
			window:   timing.Window{StartMS: 900, EndMS: 3000},
			duration: 1500,
			want:     1000,
		},
		{
			name:     "noRoomBefore",
			window:   timing.Window{StartMS: 1000, EndMS: 2000},
			duration: 1300,
			want:     1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Place(cue, tt.window, tt.duration); got != tt.want {
				t.Errorf("Place() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlaceShiftBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for i := 0; i < 500; i++ {
		start := rng.IntN(10000)
		cue := subtitle.Cue{StartMS: start, EndMS: start + rng.IntN(4000)}
		window := timing.Window{
			StartMS: max(0, start-rng.IntN(1500)),
			EndMS:   cue.EndMS + rng.IntN(1500),
		}
		duration := rng.IntN(8000)

		got := Place(cue, window, duration)
		shift := cue.StartMS - got

		overflow := max(0, duration-cue.DurationMS())
		marginBefore := cue.StartMS - window.StartMS
		marginAfter := window.EndMS - cue.EndMS

		if shift < 0 {
			t.Fatalf("case %d: clip moved later by %d", i, -shift)
		}
		if shift > overflow {
			t.Errorf("case %d: shift %d exceeds overflow %d", i, shift, overflow)
		}
		if shift > marginBefore {
			t.Errorf("case %d: shift %d exceeds margin before %d", i, shift, marginBefore)
		}
		if marginBefore < marginAfter && got != cue.StartMS {
			t.Errorf("case %d: placement %d, want cue start %d", i, got, cue.StartMS)
		}
	}
}
