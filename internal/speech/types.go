package speech

import (
	"context"
	"regexp"
	"strings"
)

const (
	DefaultWordsPerMinute = 150.0
	DefaultCharsPerSecond = 7.0
	// DefaultEstimationRatio corrects the raw rate estimate, which tends to
	// run long against real synthesis.
	DefaultEstimationRatio = 0.9
)

// Provider turns text into encoded audio bytes.
type Provider interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NamedProvider is implemented by providers whose output depends on more than
// the text, so cached audio can be keyed by voice and model.
type NamedProvider interface {
	Provider
	CacheKey() string
}

var (
	bracketTag = regexp.MustCompile(`\[[^\]]*\]`)
	markupTag  = regexp.MustCompile(`<[^>]+>`)
)

// StripTags removes audio tags such as "[laughs]" and markup such as
// "<break time="1s"/>" and collapses whitespace.
func StripTags(text string) string {
	text = bracketTag.ReplaceAllString(text, " ")
	text = markupTag.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
