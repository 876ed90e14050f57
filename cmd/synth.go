package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"srtvoice/internal/app"
	"srtvoice/internal/report"
	"srtvoice/pkg/config"
)

var (
	synthOutput      string
	synthNoTags      bool
	synthJSONOnly    bool
	synthKeepScratch bool
	synthConcurrency int
)

var synthCmd = &cobra.Command{
	Use:   "synth <input.srt>",
	Short: "Synthesize a subtitle file into one audio track",
	Long: `Synthesize every cue of an SRT file, fit each clip to its time window and
render the master track. A JSON report is written next to the output.`,
	Args: cobra.ExactArgs(1),
	RunE: runSynth,
}

func init() {
	synthCmd.Flags().StringVarP(&synthOutput, "output", "o", "", "Output audio path (default <output dir>/<input>.mp3)")
	synthCmd.Flags().BoolVar(&synthNoTags, "no-tags", false, "Skip the audio tag pass")
	synthCmd.Flags().BoolVar(&synthJSONOnly, "json-only", false, "Only write the tagged-text report, no speech")
	synthCmd.Flags().BoolVar(&synthKeepScratch, "keep-scratch", false, "Keep intermediate clips after the run")
	synthCmd.Flags().IntVarP(&synthConcurrency, "concurrency", "j", 0, "Cues fitted in parallel (default from config)")
	rootCmd.AddCommand(synthCmd)
}

func runSynth(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, config.Options{Path: configPath})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	service, err := app.BuildService(ctx, cfg, app.BuildOptions{
		NeedSpeech:   !synthJSONOnly,
		NeedRewriter: !synthNoTags && !cfg.LLM.DisableTags,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			slog.Warn("Failed to close service", "error", err)
		}
	}()

	result, err := app.NewPipeline(service).Synthesize(ctx, app.SynthesizeRequest{
		InputPath:   args[0],
		OutputPath:  synthOutput,
		NoTags:      synthNoTags,
		JSONOnly:    synthJSONOnly,
		KeepScratch: synthKeepScratch,
		Concurrency: synthConcurrency,
	})
	if err != nil {
		if ctx.Err() == context.Canceled {
			slog.Info("Cancelled")
		}
		return err
	}

	fmt.Println(report.RenderTable(result.Report, report.ShouldColorize(os.Stdout)))

	if result.OutputPath != "" {
		slog.Info("Track written", "path", result.OutputPath, "duration_ms", result.Track.DurationMS)
	}
	slog.Info("Done", "run_id", result.RunID, "report", result.ReportPath)
	return nil
}
