package track

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"srtvoice/internal/audio"
)

type Toolchain interface {
	Normalize(ctx context.Context, inPath, outPath string) error
	Concat(ctx context.Context, paths []string, outPath string) error
}

// Renderer writes a MasterTrack to a single audio file.
type Renderer struct {
	tool       Toolchain
	scratchDir string
}

func NewRenderer(tool Toolchain, scratchDir string) *Renderer {
	return &Renderer{tool: tool, scratchDir: scratchDir}
}

func (r *Renderer) Render(ctx context.Context, track *MasterTrack, outPath string) error {
	if track == nil || len(track.Segments) == 0 {
		return &EmptyInputError{}
	}

	dir := filepath.Join(r.scratchDir, "assembly")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create assembly dir: %w", err)
	}

	parts := make([]string, 0, len(track.Segments))
	for i, seg := range track.Segments {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch seg.Kind {
		case SegmentSilence:
			clip, err := audio.WriteSilence(filepath.Join(dir, fmt.Sprintf("silence_%04d.wav", i)), seg.DurationMS)
			if err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			parts = append(parts, clip.Path)
		case SegmentClip:
			norm := filepath.Join(dir, fmt.Sprintf("clip_%04d.wav", i))
			if err := r.tool.Normalize(ctx, seg.Clip.Path, norm); err != nil {
				return fmt.Errorf("segment %d (cue %d): %w", i, seg.CueIndex, err)
			}
			parts = append(parts, norm)
		default:
			return fmt.Errorf("segment %d: unknown kind %q", i, seg.Kind)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := r.tool.Concat(ctx, parts, outPath); err != nil {
		return fmt.Errorf("concat master track: %w", err)
	}

	slog.Info("Master track rendered", "path", outPath, "segments", len(parts), "duration_ms", track.DurationMS)
	return nil
}
