// Package audio holds the on-disk audio handle shared by the fitting and
// assembly stages together with the ffmpeg tooling that measures, stretches
// and joins clips.
package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Clip is an audio file on disk with its measured duration.
type Clip struct {
	Path       string `json:"path"`
	DurationMS int    `json:"duration_ms"`
}

func (c Clip) Ext() string {
	return filepath.Ext(c.Path)
}

// DetectFormat returns a file extension for the encoded audio in data.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return ".bin"
	}

	// WAV: starts with "RIFF"
	if data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' {
		return ".wav"
	}

	// MP3: starts with ID3 or an MPEG frame sync
	if (data[0] == 'I' && data[1] == 'D' && data[2] == '3') ||
		(data[0] == 0xFF && (data[1]&0xE0) == 0xE0) {
		return ".mp3"
	}

	return ".bin"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy audio: %w", err)
	}
	return out.Close()
}
