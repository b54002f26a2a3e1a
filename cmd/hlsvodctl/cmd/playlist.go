package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/playlist"
)

var (
	playlistKind        string
	playlistAudioTrack  int
	playlistSubTrack    int
	playlistTranscodeTo string
)

var playlistCmd = &cobra.Command{
	Use:   "playlist <source>",
	Short: "Print one of a source's HLS playlists",
	Long: `playlist builds a source's stream index and writes the requested
playlist to stdout (spec §4.I): the master playlist, a video/audio/
interleaved variant, or a subtitle variant.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlaylist,
}

func init() {
	playlistCmd.Flags().StringVar(&playlistKind, "kind", "master", "master|video|audio|interleaved|subtitle")
	playlistCmd.Flags().IntVar(&playlistAudioTrack, "audio", 0, "audio track index (audio/interleaved kinds)")
	playlistCmd.Flags().IntVar(&playlistSubTrack, "sub", 0, "subtitle track index (subtitle kind)")
	playlistCmd.Flags().StringVar(&playlistTranscodeTo, "transcode-to", "", "target codec if this audio track is transcoded, e.g. aac")
	rootCmd.AddCommand(playlistCmd)
}

func runPlaylist(cmd *cobra.Command, args []string) error {
	si, err := buildIndex(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return writePlaylist(out, si, playlistKind, playlistAudioTrack, playlistSubTrack, playlistTranscodeTo)
}

func writePlaylist(w io.Writer, si *model.StreamIndex, kind string, audioTrack, subTrack int, transcodeTo string) error {
	switch kind {
	case "master":
		return playlist.MasterPlaylist(w, si)
	case "video":
		return playlist.VideoPlaylist(w, si)
	case "audio":
		return playlist.AudioPlaylist(w, si, audioTrack, transcodeTo)
	case "interleaved":
		return playlist.InterleavedPlaylist(w, si, audioTrack, transcodeTo)
	case "subtitle":
		return playlist.SubtitlePlaylist(w, si, subTrack)
	default:
		return fmt.Errorf("unknown playlist kind %q", kind)
	}
}
