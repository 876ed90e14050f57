package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16

	wavPCMFormat = 1
)

var ErrNotWAV = errors.New("not a RIFF/WAVE file")

// encodeSilence writes PCM silence of the given length in the canonical
// intermediate format.
func encodeSilence(w io.WriteSeeker, durationMS int) error {
	enc := wav.NewEncoder(w, SampleRate, BitsPerSample, Channels, wavPCMFormat)

	remaining := int(int64(max(0, durationMS)) * SampleRate / 1000 * Channels)
	zeros := make([]int, min(remaining, SampleRate*Channels))
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		SourceBitDepth: BitsPerSample,
	}
	for first := true; first || remaining > 0; first = false {
		n := min(remaining, len(zeros))
		buf.Data = zeros[:n]
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("encode silence: %w", err)
		}
		remaining -= n
	}
	return enc.Close()
}

// SilentWAV returns PCM WAV bytes of the given length.
func SilentWAV(durationMS int) ([]byte, error) {
	var buf seekBuffer
	if err := encodeSilence(&buf, durationMS); err != nil {
		return nil, err
	}
	return buf.data, nil
}

func WriteSilence(path string, durationMS int) (Clip, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Clip{}, fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return Clip{}, fmt.Errorf("create silence: %w", err)
	}
	if err := encodeSilence(f, durationMS); err != nil {
		_ = f.Close()
		return Clip{}, err
	}
	if err := f.Close(); err != nil {
		return Clip{}, fmt.Errorf("write silence: %w", err)
	}
	return Clip{Path: path, DurationMS: max(0, durationMS)}, nil
}

// WAVDurationMS derives the duration of a PCM WAV stream from its data chunk
// size and byte rate. Decoder.Duration counts the whole RIFF body, so the
// data chunk is located explicitly.
func WAVDurationMS(r io.ReadSeeker) (int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, ErrNotWAV
	}
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("wav: missing data chunk: %w", err)
	}
	if dec.AvgBytesPerSec == 0 {
		return 0, errors.New("wav: zero byte rate")
	}
	return int(math.Round(float64(dec.PCMSize) * 1000 / float64(dec.AvgBytesPerSec))), nil
}

func wavFileDurationMS(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return WAVDurationMS(f)
}

// seekBuffer is an in-memory io.WriteSeeker for the WAV encoder, which
// rewrites chunk sizes on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, errors.New("seek: negative position")
	}
	b.pos = int(pos)
	return pos, nil
}
