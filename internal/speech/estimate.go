package speech

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"

	"srtvoice/internal/audio"
)

var charTimedLanguages = map[language.Base]bool{}

func init() {
	for _, tag := range []string{"ja", "zh", "ko", "th"} {
		base, _ := language.MustParse(tag).Base()
		charTimedLanguages[base] = true
	}
}

// RateEstimator predicts speech length from a speaking rate without any
// synthesis. Languages written without word spacing are timed per character.
type RateEstimator struct {
	wordsPerMinute float64
	charsPerSecond float64
	ratio          float64
}

func NewRateEstimator(wordsPerMinute, charsPerSecond, ratio float64) *RateEstimator {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	if charsPerSecond <= 0 {
		charsPerSecond = DefaultCharsPerSecond
	}
	if ratio <= 0 {
		ratio = DefaultEstimationRatio
	}
	return &RateEstimator{
		wordsPerMinute: wordsPerMinute,
		charsPerSecond: charsPerSecond,
		ratio:          ratio,
	}
}

func (e *RateEstimator) EstimateMS(_ context.Context, text, lang string) (int, error) {
	clean := StripTags(text)
	if clean == "" {
		return 0, nil
	}

	var seconds float64
	if isCharTimed(lang) {
		seconds = float64(countSpoken(clean)) / e.charsPerSecond
	} else {
		seconds = float64(len(strings.Fields(clean))) / e.wordsPerMinute * 60
	}
	return int(math.Round(seconds * 1000 * e.ratio)), nil
}

func isCharTimed(lang string) bool {
	if lang == "" {
		return false
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return charTimedLanguages[base]
}

func countSpoken(text string) int {
	n := 0
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			n++
		}
	}
	if n == 0 {
		return utf8.RuneCountInString(text)
	}
	return n
}

type DurationMeter interface {
	DurationMS(ctx context.Context, path string) (int, error)
}

// ProviderEstimator measures the audio of a cheaper provider, such as a fast
// low-quality model, and scales the result by a correction ratio.
type ProviderEstimator struct {
	provider Provider
	meter    DurationMeter
	tempDir  string
	ratio    float64
}

func NewProviderEstimator(provider Provider, meter DurationMeter, tempDir string, ratio float64) *ProviderEstimator {
	if ratio <= 0 {
		ratio = DefaultEstimationRatio
	}
	return &ProviderEstimator{provider: provider, meter: meter, tempDir: tempDir, ratio: ratio}
}

func (e *ProviderEstimator) EstimateMS(ctx context.Context, text, _ string) (int, error) {
	clean := StripTags(text)
	if clean == "" {
		return 0, nil
	}

	data, err := e.provider.Synthesize(ctx, clean)
	if err != nil {
		return 0, fmt.Errorf("estimate synthesis: %w", err)
	}

	ms, err := e.measure(ctx, data)
	if err != nil {
		return 0, err
	}
	return int(math.Round(float64(ms) * e.ratio)), nil
}

func (e *ProviderEstimator) measure(ctx context.Context, data []byte) (int, error) {
	if ms, err := audio.WAVDurationMS(bytes.NewReader(data)); err == nil {
		return ms, nil
	}
	if e.meter == nil {
		return 0, fmt.Errorf("estimate: cannot measure %s audio without a meter", audio.DetectFormat(data))
	}

	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		return 0, fmt.Errorf("create estimate dir: %w", err)
	}
	f, err := os.CreateTemp(e.tempDir, "estimate_*"+audio.DetectFormat(data))
	if err != nil {
		return 0, fmt.Errorf("create estimate file: %w", err)
	}
	path := f.Name()
	defer func() { _ = os.Remove(path) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return 0, fmt.Errorf("write estimate file: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close estimate file: %w", err)
	}

	ms, err := e.meter.DurationMS(ctx, filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("measure estimate: %w", err)
	}
	return ms, nil
}
