package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	maxAtempo = 2.0
	minAtempo = 0.5

	DefaultBitrate = "192k"
)

type Tool struct {
	ffmpegPath  string
	ffprobePath string
	bitrate     string
}

type ToolOption func(*Tool)

func WithBitrate(bitrate string) ToolOption {
	return func(t *Tool) {
		if bitrate != "" {
			t.bitrate = bitrate
		}
	}
}

func NewTool(ffmpegPath, ffprobePath string, opts ...ToolOption) *Tool {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	t := &Tool{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, bitrate: DefaultBitrate}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CheckBinaries reports the first of ffmpeg/ffprobe that cannot be found.
func (t *Tool) CheckBinaries() error {
	for _, bin := range []string{t.ffmpegPath, t.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// DurationMS measures a file. PCM WAV is read directly; anything else is
// handed to ffprobe.
func (t *Tool) DurationMS(ctx context.Context, path string) (int, error) {
	ms, err := wavFileDurationMS(path)
	if err == nil {
		return ms, nil
	}
	if !errors.Is(err, ErrNotWAV) {
		return 0, fmt.Errorf("read wav header: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.ffprobePath, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w, output: %s", err, strings.TrimSpace(string(output)))
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", result.Format.Duration, err)
	}
	return int(math.Round(seconds * 1000)), nil
}

// Stretch changes the tempo of clip so that it lasts exactly targetMS,
// keeping pitch. A clip already within target is copied unchanged.
func (t *Tool) Stretch(ctx context.Context, clip Clip, targetMS int, outPath string) (Clip, error) {
	if clip.DurationMS <= targetMS {
		if err := copyFile(clip.Path, outPath); err != nil {
			return Clip{}, err
		}
		return Clip{Path: outPath, DurationMS: clip.DurationMS}, nil
	}
	if targetMS <= 0 {
		return Clip{}, fmt.Errorf("stretch target must be positive, got %dms", targetMS)
	}

	tempo := float64(clip.DurationMS) / float64(targetMS)
	filter := AtempoChain(tempo) + ",apad"

	args := []string{
		"-y",
		"-i", clip.Path,
		"-filter:a", filter,
		"-t", formatSeconds(targetMS),
	}
	args = append(args, pcmArgs()...)
	args = append(args, outPath)

	if err := t.run(ctx, "stretch", args); err != nil {
		return Clip{}, err
	}
	return Clip{Path: outPath, DurationMS: targetMS}, nil
}

// Normalize converts any input into the intermediate PCM WAV format.
func (t *Tool) Normalize(ctx context.Context, inPath, outPath string) error {
	args := []string{"-y", "-i", inPath}
	args = append(args, pcmArgs()...)
	args = append(args, outPath)
	return t.run(ctx, "normalize", args)
}

// Concat joins files with the concat demuxer. The output codec follows the
// extension of outPath: .wav keeps PCM, anything else is MP3.
func (t *Tool) Concat(ctx context.Context, paths []string, outPath string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no segments to concat")
	}

	var list strings.Builder
	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(absPath, "'", `'\''`))
	}

	listPath := outPath + ".concat.txt"
	if err := os.WriteFile(listPath, []byte(list.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer func() { _ = os.Remove(listPath) }()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}
	if strings.EqualFold(filepath.Ext(outPath), ".wav") {
		args = append(args, pcmArgs()...)
	} else {
		args = append(args, "-acodec", "libmp3lame", "-b:a", t.bitrate)
	}
	args = append(args, outPath)

	return t.run(ctx, "concat", args)
}

func (t *Tool) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg %s failed: %w, output: %s", op, err, string(output))
	}
	return nil
}

// AtempoChain splits a tempo factor into atempo stages that each stay within
// the filter's accepted range.
func AtempoChain(tempo float64) string {
	if tempo <= 0 || math.IsNaN(tempo) || math.IsInf(tempo, 0) {
		tempo = 1
	}

	var stages []string
	for tempo > maxAtempo {
		stages = append(stages, "atempo=2.0")
		tempo /= maxAtempo
	}
	for tempo < minAtempo {
		stages = append(stages, "atempo=0.5")
		tempo /= minAtempo
	}
	stages = append(stages, "atempo="+strconv.FormatFloat(tempo, 'f', 6, 64))
	return strings.Join(stages, ",")
}

func pcmArgs() []string {
	return []string{
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
	}
}

func formatSeconds(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}
