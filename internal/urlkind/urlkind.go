// Package urlkind builds the relative URLs spec.md §6's URL grammar
// describes, for embedding inside generated playlists. Parsing that same
// grammar back into an operation is the surrounding HTTP layer's job (out
// of scope, per spec.md §1); this package only needs the write side,
// mirrored off `original_source/hls-vod-lib/src/url.rs`'s `Display` impls
// for `VideoSegment`/`AudioSegment`/`VttSegment`/`Playlist`.
package urlkind

import "fmt"

// videoStem builds the "v/<trk>[+<a>[-<xc>]]" URL stem shared by video
// and interleaved init/media segment URLs.
func videoStem(videoTrack int, audioTrack *int, transcodeTo string) string {
	s := fmt.Sprintf("v/%d", videoTrack)
	if audioTrack != nil {
		s += fmt.Sprintf("+%d", *audioTrack)
		if transcodeTo != "" {
			s += "-" + transcodeTo
		}
	}
	return s
}

// VideoInit builds a video (or, with audioTrack set, interleaved) init
// segment URL: "v/<trk>[+<a>[-<xc>]].init.mp4".
func VideoInit(videoTrack int, audioTrack *int, transcodeTo string) string {
	return videoStem(videoTrack, audioTrack, transcodeTo) + ".init.mp4"
}

// VideoSegment builds a video (or interleaved) media segment URL:
// "v/<trk>[+<a>[-<xc>]].<seq>.m4s".
func VideoSegment(videoTrack int, audioTrack *int, transcodeTo string, seq int) string {
	return fmt.Sprintf("%s.%d.m4s", videoStem(videoTrack, audioTrack, transcodeTo), seq)
}

func audioStem(audioTrack int, transcodeTo string) string {
	s := fmt.Sprintf("a/%d", audioTrack)
	if transcodeTo != "" {
		s += "-" + transcodeTo
	}
	return s
}

// AudioInit builds an audio init segment URL: "a/<trk>[-<xc>].init.mp4".
func AudioInit(audioTrack int, transcodeTo string) string {
	return audioStem(audioTrack, transcodeTo) + ".init.mp4"
}

// AudioSegment builds an audio media segment URL: "a/<trk>[-<xc>].<seq>.m4s".
func AudioSegment(audioTrack int, transcodeTo string, seq int) string {
	return fmt.Sprintf("%s.%d.m4s", audioStem(audioTrack, transcodeTo), seq)
}

// SubtitleSegment builds a subtitle segment URL: "s/<trk>.<start>-<end>.vtt".
func SubtitleSegment(subtitleTrack, start, end int) string {
	return fmt.Sprintf("s/%d.%d-%d.vtt", subtitleTrack, start, end)
}

// Playlist builds a variant playlist URL: "t.<trk>[+<a>[-<xc>]].m3u8". trk
// is a video track index for video/interleaved variants, or a subtitle or
// audio-only track index for those variant kinds.
func Playlist(trk int, audioTrack *int, transcodeTo string) string {
	s := fmt.Sprintf("t.%d", trk)
	if audioTrack != nil {
		s += fmt.Sprintf("+%d", *audioTrack)
		if transcodeTo != "" {
			s += "-" + transcodeTo
		}
	}
	return s + ".m3u8"
}

// MasterPlaylist builds a master playlist URL relative to the source
// file's basename: "<video-file>.as.m3u8".
func MasterPlaylist(videoFileBasename string) string {
	return videoFileBasename + ".as.m3u8"
}
