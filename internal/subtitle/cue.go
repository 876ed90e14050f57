package subtitle

import "errors"

// ContextWindow is the default number of neighboring entries on each side
// handed to the language model as context.
const ContextWindow = 2

var (
	ErrNoCues         = errors.New("subtitle: no cues found")
	ErrDuplicateIndex = errors.New("subtitle: duplicate cue index")
)

type Cue struct {
	Index   int
	StartMS int
	EndMS   int
	Text    string
}

func (c Cue) DurationMS() int {
	return c.EndMS - c.StartMS
}

// Neighbors returns the texts of up to window cues before and after position
// i. A non-positive window means ContextWindow. Either slice is nil when there
// is nothing on that side.
func Neighbors(cues []Cue, i, window int) (prev, next []string) {
	if window <= 0 {
		window = ContextWindow
	}
	from := max(0, i-window)
	for _, c := range cues[from:i] {
		prev = append(prev, c.Text)
	}
	to := min(len(cues), i+1+window)
	for _, c := range cues[i+1 : to] {
		next = append(next, c.Text)
	}
	return prev, next
}
