package speech

import (
	"context"
	"strings"

	"srtvoice/internal/audio"
)

// StubProvider produces silent WAV audio whose length follows a fixed
// speaking rate. Used for dry runs and tests.
type StubProvider struct {
	wordsPerMinute float64
}

func NewStubProvider(wordsPerMinute float64) *StubProvider {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return &StubProvider{wordsPerMinute: wordsPerMinute}
}

func (s *StubProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return audio.SilentWAV(s.durationMS(text))
}

func (s *StubProvider) CacheKey() string {
	return "stub"
}

func (s *StubProvider) durationMS(text string) int {
	words := len(strings.Fields(StripTags(text)))
	return int(float64(words) / s.wordsPerMinute * 60_000)
}
