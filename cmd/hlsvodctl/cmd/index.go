package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/observability"
	"github.com/hlsvod/originserver/internal/streamindex"
)

var indexCmd = &cobra.Command{
	Use:   "index <source>",
	Short: "Probe a source file and print its stream index",
	Long: `index runs the same ffprobe-backed scan the session registry runs
the first time a source is opened (spec §4.D), and prints a summary of the
video/audio/subtitle streams and segment boundaries it found.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func buildIndex(sourcePath string) (*model.StreamIndex, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	builder := streamindex.NewBuilder(streamindex.Options{
		FfprobePath:               cfg.FFmpeg.FfprobePath,
		FfprobeTimeout:            cfg.FFmpeg.ProbeTimeout,
		TargetSegmentDurationSecs: cfg.Synthesis.TargetSegmentDurationSecs,
	})

	ctx := context.Background()
	logger := observability.WithComponent(slog.Default(), "hlsvodctl.index")
	done := observability.TimedOperation(ctx, logger, "build_stream_index")
	defer done()

	si, err := builder.Build(ctx, "cli", sourcePath)
	if err != nil {
		return nil, fmt.Errorf("building stream index: %w", err)
	}
	return si, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	si, err := buildIndex(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source:   %s\n", si.SourcePath)
	fmt.Fprintf(out, "duration: %.3fs\n", si.Duration)
	fmt.Fprintf(out, "segments: %d\n", len(si.Segments))

	if si.Video != nil {
		fmt.Fprintf(out, "video:    stream %d, %s, %dx%d, %d/%d fps\n",
			si.Video.StreamIndex, si.Video.Codec, si.Video.Width, si.Video.Height,
			si.Video.FrameRateNum, si.Video.FrameRateDen)
	}
	for i, a := range si.Audio {
		transcode := ""
		if a.TranscodeTo != "" {
			transcode = fmt.Sprintf(" (transcoded to %s)", a.TranscodeTo)
		}
		fmt.Fprintf(out, "audio[%d]: stream %d, %s, %dHz, %dch, lang=%q%s\n",
			i, a.StreamIndex, a.Codec, a.SampleRate, a.ChannelCount, a.Language, transcode)
	}
	for i, s := range si.Subtitles {
		fmt.Fprintf(out, "sub[%d]:   stream %d, %s, lang=%q, %d cues\n",
			i, s.StreamIndex, s.Codec, s.Language, len(s.SampleIndex))
	}
	return nil
}
