package speech

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"srtvoice/internal/audio"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "Hello world", "Hello world"},
		{"audioTag", "[laughs] Hello   world", "Hello world"},
		{"markup", `Wait<break time="1s"/>here`, "Wait here"},
		{"onlyTags", "[sighs] <pause/>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripTags(tt.text); got != tt.want {
				t.Errorf("StripTags() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateEstimator(t *testing.T) {
	est := NewRateEstimator(120, 5, 1)

	tests := []struct {
		name string
		text string
		lang string
		want int
	}{
		{"englishWords", "one two three four", "en", 2000},
		{"tagsIgnored", "[whispers] one two", "en-US", 1000},
		{"japaneseChars", "こんにちは", "ja", 1000},
		{"chineseRegion", "你好世界吗", "zh-Hant-TW", 1000},
		{"unknownLanguage", "one two", "not a tag!", 1000},
		{"empty", "", "en", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := est.EstimateMS(context.Background(), tt.text, tt.lang)
			if err != nil {
				t.Fatalf("EstimateMS() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EstimateMS() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateEstimatorDefaults(t *testing.T) {
	est := NewRateEstimator(0, 0, 0)
	got, err := est.EstimateMS(context.Background(), "a b c d e f g h i j k l m n o", "en")
	if err != nil {
		t.Fatal(err)
	}
	// 15 words at 150 wpm is 6s, scaled by 0.9.
	if got != 5400 {
		t.Errorf("EstimateMS() = %d, want 5400", got)
	}
}

func TestStubProvider(t *testing.T) {
	stub := NewStubProvider(60)
	data, err := stub.Synthesize(context.Background(), "three short words")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	ms, err := audio.WAVDurationMS(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("WAVDurationMS() error = %v", err)
	}
	if ms != 3000 {
		t.Errorf("duration = %dms, want 3000", ms)
	}
}

type bytesProvider struct {
	data []byte
	err  error
	got  string
}

func (p *bytesProvider) Synthesize(_ context.Context, text string) ([]byte, error) {
	p.got = text
	return p.data, p.err
}

type fixedMeter struct {
	ms   int
	path string
}

func (m *fixedMeter) DurationMS(_ context.Context, path string) (int, error) {
	m.path = path
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return m.ms, nil
}

func TestProviderEstimator(t *testing.T) {
	t.Run("wavMeasuredDirectly", func(t *testing.T) {
		wav, err := audio.SilentWAV(2000)
		if err != nil {
			t.Fatal(err)
		}
		provider := &bytesProvider{data: wav}
		est := NewProviderEstimator(provider, nil, t.TempDir(), 0.5)

		got, err := est.EstimateMS(context.Background(), "[laughs] hi there", "en")
		if err != nil {
			t.Fatalf("EstimateMS() error = %v", err)
		}
		if got != 1000 {
			t.Errorf("EstimateMS() = %d, want 1000", got)
		}
		if provider.got != "hi there" {
			t.Errorf("provider text = %q, want tags stripped", provider.got)
		}
	})

	t.Run("encodedUsesMeter", func(t *testing.T) {
		meter := &fixedMeter{ms: 1500}
		est := NewProviderEstimator(&bytesProvider{data: []byte("ID3\x04fake mp3")}, meter, t.TempDir(), 1)

		got, err := est.EstimateMS(context.Background(), "hello", "en")
		if err != nil {
			t.Fatalf("EstimateMS() error = %v", err)
		}
		if got != 1500 {
			t.Errorf("EstimateMS() = %d, want 1500", got)
		}
		if _, err := os.Stat(meter.path); !os.IsNotExist(err) {
			t.Errorf("temporary file %s should be removed", meter.path)
		}
	})

	t.Run("providerError", func(t *testing.T) {
		boom := errors.New("quota")
		est := NewProviderEstimator(&bytesProvider{err: boom}, nil, t.TempDir(), 1)
		if _, err := est.EstimateMS(context.Background(), "hello", "en"); !errors.Is(err, boom) {
			t.Errorf("error = %v, want wrapped provider error", err)
		}
	})
}
