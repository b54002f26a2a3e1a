package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/synth"
)

var (
	segmentKind       string
	segmentAudioTrack int
	segmentSubTrack   int
	segmentSeq        int
	segmentSubEndSeq  int
	segmentInit       bool
	segmentOutputPath string
)

var segmentCmd = &cobra.Command{
	Use:   "segment <source>",
	Short: "Render one init or media segment and write it to a file or stdout",
	Long: `segment drives internal/synth directly (spec §4.H): the same
per-request synthesis path an origin server's segment handler would call
once it has parsed a request URL into (kind, track, sequence).`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	segmentCmd.Flags().StringVar(&segmentKind, "kind", "video", "video|audio|interleaved|subtitle")
	segmentCmd.Flags().IntVar(&segmentAudioTrack, "audio", 0, "audio track index (audio/interleaved kinds)")
	segmentCmd.Flags().IntVar(&segmentSubTrack, "sub", 0, "subtitle track index (subtitle kind)")
	segmentCmd.Flags().IntVar(&segmentSeq, "seq", 0, "segment sequence number (or subtitle span start sequence)")
	segmentCmd.Flags().IntVar(&segmentSubEndSeq, "seq-end", 0, "subtitle span end sequence (subtitle kind only, defaults to --seq)")
	segmentCmd.Flags().BoolVar(&segmentInit, "init", false, "render the init segment instead of a media segment")
	segmentCmd.Flags().StringVar(&segmentOutputPath, "out", "", "output file path (default: stdout)")
	rootCmd.AddCommand(segmentCmd)
}

func runSegment(cmd *cobra.Command, args []string) error {
	si, err := buildIndex(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	synthesizer := synth.NewSynthesizer(synth.Config{
		FfprobePath: cfg.FFmpeg.FfprobePath,
		FfmpegPath:  cfg.FFmpeg.FfmpegPath,
		Timeout:     cfg.FFmpeg.TranscodeTimeout,
	})

	data, err := renderSegment(cmd.Context(), synthesizer, si)
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), data)
}

func renderSegment(ctx context.Context, s *synth.Synthesizer, si *model.StreamIndex) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if segmentInit {
		switch segmentKind {
		case "video":
			return s.VideoInit(si)
		case "audio":
			return s.AudioInit(si, segmentAudioTrack)
		case "interleaved":
			return s.InterleavedInit(si, segmentAudioTrack)
		default:
			return nil, fmt.Errorf("kind %q has no init segment", segmentKind)
		}
	}

	switch segmentKind {
	case "video":
		return s.VideoSegment(ctx, si, segmentSeq)
	case "audio":
		return s.AudioSegment(ctx, si, segmentAudioTrack, segmentSeq)
	case "interleaved":
		return s.InterleavedSegment(ctx, si, segmentAudioTrack, segmentSeq)
	case "subtitle":
		end := segmentSubEndSeq
		if end == 0 {
			end = segmentSeq
		}
		return s.SubtitleSegment(si, segmentSubTrack, segmentSeq, end)
	default:
		return nil, fmt.Errorf("unknown segment kind %q", segmentKind)
	}
}

func writeOutput(stdout io.Writer, data []byte) error {
	if segmentOutputPath == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(segmentOutputPath, data, 0o600)
}
