// Package codec provides a codec registry for the video/audio/subtitle
// codecs segment synthesis needs to recognize: aliasing and normalization
// of the names ffprobe/mediacommon report, and the HLS-deliverability
// rules that decide whether an audio stream is passed through or must be
// transcoded to AAC (spec §4.F, the "audio plan").
package codec

import "strings"

// Video represents a video codec. This system never transcodes video
// (spec Non-goals); Video values are only used to identify what to copy
// into the fMP4 init segment's sample entry.
type Video string

const (
	VideoH264 Video = "h264"
	VideoH265 Video = "h265"
	VideoVP9  Video = "vp9"
	VideoAV1  Video = "av1"
)

// Audio represents an audio codec.
type Audio string

const (
	AudioAAC  Audio = "aac"
	AudioMP3  Audio = "mp3"
	AudioAC3  Audio = "ac3"
	AudioEAC3 Audio = "eac3"
	AudioOpus Audio = "opus"
	// Everything else is not HLS-deliverable and must transcode to AAC.
)

// Subtitle represents a subtitle codec this system can extract cues from.
type Subtitle string

const (
	SubtitleSRT     Subtitle = "subrip"
	SubtitleASS     Subtitle = "ass"
	SubtitleMovText Subtitle = "mov_text"
	SubtitleWebVTT  Subtitle = "webvtt"
	SubtitleText    Subtitle = "text"
)

func (v Video) String() string    { return string(v) }
func (a Audio) String() string    { return string(a) }
func (s Subtitle) String() string { return string(s) }

var videoAliases = map[string]Video{
	"h264": VideoH264, "avc": VideoH264, "avc1": VideoH264, "h.264": VideoH264,
	"h265": VideoH265, "hevc": VideoH265, "hev1": VideoH265, "hvc1": VideoH265, "h.265": VideoH265,
	"vp9": VideoVP9, "vp09": VideoVP9,
	"av1": VideoAV1, "av01": VideoAV1,
}

var audioAliases = map[string]Audio{
	"aac": AudioAAC, "mp4a": AudioAAC,
	"mp3": AudioMP3, "mp3float": AudioMP3, "libmp3lame": AudioMP3,
	"ac3": AudioAC3, "ac-3": AudioAC3, "a52": AudioAC3,
	"eac3": AudioEAC3, "ec-3": AudioEAC3,
	"opus": AudioOpus, "libopus": AudioOpus,
}

var subtitleAliases = map[string]Subtitle{
	"subrip": SubtitleSRT, "srt": SubtitleSRT,
	"ass": SubtitleASS, "ssa": SubtitleASS,
	"mov_text": SubtitleMovText, "tx3g": SubtitleMovText,
	"webvtt": SubtitleWebVTT, "vtt": SubtitleWebVTT,
	"text": SubtitleText,
}

// ParseVideo resolves a codec name/alias to its canonical Video value.
func ParseVideo(s string) (Video, bool) {
	v, ok := videoAliases[strings.ToLower(strings.TrimSpace(s))]
	return v, ok
}

// ParseAudio resolves a codec name/alias to its canonical Audio value.
func ParseAudio(s string) (Audio, bool) {
	a, ok := audioAliases[strings.ToLower(strings.TrimSpace(s))]
	return a, ok
}

// ParseSubtitle resolves a codec name/alias to its canonical Subtitle value.
func ParseSubtitle(s string) (Subtitle, bool) {
	sub, ok := subtitleAliases[strings.ToLower(strings.TrimSpace(s))]
	return sub, ok
}

// NormalizeHLSCodec maps an RFC 6381 codec string (as it would appear in
// an HLS CODECS attribute, e.g. "avc1.64001f", "mp4a.40.2") to this
// package's canonical codec name.
func NormalizeHLSCodec(name string) string {
	lower := strings.ToLower(name)
	if len(lower) >= 4 {
		switch lower[:4] {
		case "avc1", "avc3":
			return string(VideoH264)
		case "hev1", "hvc1":
			return string(VideoH265)
		case "mp4a":
			return string(AudioAAC)
		case "vp09":
			return string(VideoVP9)
		case "av01":
			return string(VideoAV1)
		case "ac-3":
			return string(AudioAC3)
		case "ec-3":
			return string(AudioEAC3)
		}
	}
	return name
}

// IsHLSPassthroughAudio reports whether an audio codec can be packaged
// into CMAF as-is. Anything else must be transcoded to AAC (spec §4.F).
func IsHLSPassthroughAudio(a Audio) bool {
	switch a {
	case AudioAAC, AudioAC3, AudioEAC3, AudioMP3, AudioOpus:
		return true
	default:
		return false
	}
}
