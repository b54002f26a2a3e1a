// Package playlist generates the master and variant HLS playlists spec
// §4.I describes, grounded on
// original_source/hls-vod-lib/src/playlist/{master,codec}.rs for the
// exact EXT-X-MEDIA grouping/bandwidth/codec-string rules and on
// a streaming text-writer idiom (header-once, fmt.Fprint* into an
// io.Writer, no intermediate DOM).
package playlist

import (
	"fmt"
	"io"
	"sort"

	"github.com/hlsvod/originserver/internal/audioplan"
	"github.com/hlsvod/originserver/internal/codec"
	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/urlkind"
)

// bandwidthOverheadNumerator/Denominator implements spec §4.I's "× 1.6"
// peak-bitrate margin (HLS BANDWIDTH must be a peak, not an average; a
// measured source bitrate underestimates it).
const (
	bandwidthOverheadNumerator   = 160
	bandwidthOverheadDenominator = 100
)

// audioGroup identifies the EXT-X-MEDIA GROUP-ID an audio stream belongs
// to (spec §4.I: grouped by codec family; transcoded streams always land
// in audio-aac regardless of source codec).
func audioGroup(stream model.AudioStreamInfo, transcoded bool) string {
	if transcoded {
		return "audio-aac"
	}
	switch codec.Audio(stream.Codec) {
	case codec.AudioAC3:
		return "audio-ac3"
	case codec.AudioEAC3:
		return "audio-eac3"
	case codec.AudioMP3:
		return "audio-mp3"
	case codec.AudioOpus:
		return "audio-opus"
	default:
		return "audio-aac"
	}
}

// audioCodecStringForGroup is the RFC 6381 string advertised for a
// GROUP-ID, matching codec.rs's codec_str_for_group.
func audioCodecStringForGroup(group string) string {
	switch group {
	case "audio-ac3":
		return codec.AC3CodecString()
	case "audio-eac3":
		return codec.EAC3CodecString()
	case "audio-mp3":
		return codec.MP3CodecString()
	case "audio-opus":
		return codec.OpusCodecString()
	default:
		return codec.AACCodecString()
	}
}

// audioCodecLabel is the human-readable NAME fragment for an
// EXT-X-MEDIA entry, matching codec.rs's codec_label.
func audioCodecLabel(stream model.AudioStreamInfo, transcoded bool) string {
	if transcoded {
		return "AAC (Transcoded)"
	}
	switch codec.Audio(stream.Codec) {
	case codec.AudioAAC:
		return "AAC"
	case codec.AudioAC3:
		return "Dolby Digital"
	case codec.AudioEAC3:
		return "Dolby Digital Plus"
	case codec.AudioMP3:
		return "MP3"
	case codec.AudioOpus:
		return "Opus"
	default:
		return "Audio"
	}
}

// rfc5646Language maps ffprobe's common 3-letter ISO 639-2 codes to their
// 2-letter RFC 5646 equivalent; unrecognized codes pass through unchanged.
func rfc5646Language(lang string) string {
	switch lang {
	case "eng":
		return "en"
	case "fre":
		return "fr"
	case "ger":
		return "de"
	case "spa":
		return "es"
	case "ita":
		return "it"
	case "jpn":
		return "ja"
	case "kor":
		return "ko"
	case "chi":
		return "zh"
	case "rus":
		return "ru"
	case "por":
		return "pt"
	default:
		return lang
	}
}

// h264ProfileIDC maps an ffprobe profile name string to its profile_idc
// byte, falling back to a resolution-based guess when the name is
// unrecognized (matches codec.rs's get_h264_profile_level fallback).
func h264ProfileIDC(profile string, width, height int) int {
	switch profile {
	case "Baseline", "Constrained Baseline":
		return 0x42
	case "Main":
		return 0x4d
	case "High":
		return 0x64
	case "High 4:4:4 Predictive":
		return 0xf4
	default:
		pixels := width * height
		switch {
		case pixels <= 130000:
			return 0x42
		case pixels <= 921600:
			return 0x4d
		default:
			return 0x64
		}
	}
}

// videoCodecString builds the RFC 6381 CODECS fragment for the primary
// video stream. Only H.264 carries a profile/level byte pair (spec §4.I);
// other video codecs are out of this system's transcode/passthrough scope
// per spec Non-goals but may still appear via passthrough, so a fixed
// representative string is used.
func videoCodecString(v *model.VideoStreamInfo) string {
	switch codec.Video(v.Codec) {
	case codec.VideoH265:
		return "hvc1.1.6.L93.B0"
	case codec.VideoVP9:
		return "vp09.00.10.08"
	case codec.VideoAV1:
		return "av01.0.04M.08"
	default:
		return codec.H264CodecString(h264ProfileIDC(v.Profile, v.Width, v.Height), v.Level)
	}
}

func bandwidth(videoBitrate int, audioBitrates []int) int {
	total := videoBitrate
	if total <= 0 {
		total = 100000
	}
	for _, b := range audioBitrates {
		total += b
	}
	return total * bandwidthOverheadNumerator / bandwidthOverheadDenominator
}

// MasterPlaylist writes the top-level playlist: one EXT-X-MEDIA per audio
// stream (grouped by codec family) and subtitle stream, and one
// EXT-X-STREAM-INF per distinct audio group, all referencing the same
// video variant URL (spec §4.I "Master playlist").
func MasterPlaylist(w io.Writer, si *model.StreamIndex) error {
	ew := &errWriter{w: w}
	ew.println("#EXTM3U")
	ew.println("#EXT-X-VERSION:7")

	plans := audioplan.Plan(si.Audio)

	if len(si.Audio) > 0 {
		sorted := make([]int, len(si.Audio))
		for i := range sorted {
			sorted[i] = i
		}
		sort.SliceStable(sorted, func(a, b int) bool {
			ga := audioGroup(si.Audio[sorted[a]], plans[sorted[a]].Action == audioplan.ActionTranscode)
			gb := audioGroup(si.Audio[sorted[b]], plans[sorted[b]].Action == audioplan.ActionTranscode)
			if ga != gb {
				return ga < gb
			}
			return si.Audio[sorted[a]].StreamIndex < si.Audio[sorted[b]].StreamIndex
		})

		seenGroups := map[string]bool{}
		for _, idx := range sorted {
			stream := si.Audio[idx]
			transcoded := plans[idx].Action == audioplan.ActionTranscode
			group := audioGroup(stream, transcoded)

			lang := stream.Language
			if lang == "" {
				lang = "und"
			}
			langRFC := rfc5646Language(lang)

			label := audioCodecLabel(stream, transcoded)
			name := label
			if lang != "und" {
				name = fmt.Sprintf("%s %s", upper(lang), label)
			}

			isDefault := "NO"
			if !seenGroups[group] {
				isDefault = "YES"
				seenGroups[group] = true
			}

			xc := ""
			if transcoded {
				xc = "aac"
			}
			uri := urlkind.Playlist(stream.StreamIndex, nil, xc)

			ew.printf("#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID=%q,LANGUAGE=%q,NAME=%q,DEFAULT=%s,AUTOSELECT=YES,URI=%q\n",
				group, langRFC, name, isDefault, uri)
		}
	}

	for i, sub := range si.Subtitles {
		lang := sub.Language
		if lang == "" {
			lang = "und"
		}
		isDefault := "NO"
		if i == 0 {
			isDefault = "YES"
		}
		uri := urlkind.Playlist(sub.StreamIndex, nil, "")
		ew.printf("#EXT-X-MEDIA:TYPE=SUBTITLES,GROUP-ID=\"subs\",LANGUAGE=%q,NAME=%q,DEFAULT=%s,AUTOSELECT=%s,FORCED=NO,URI=%q\n",
			rfc5646Language(lang), fmt.Sprintf("%s Subtitles", upper(lang)), isDefault, isDefault, uri)
	}

	if si.Video == nil {
		return ew.err
	}
	resolution := fmt.Sprintf("%dx%d", si.Video.Width, si.Video.Height)
	hasSubs := len(si.Subtitles) > 0
	subtitleAttr := ""
	if hasSubs {
		subtitleAttr = `,SUBTITLES="subs"`
	}

	if len(si.Audio) == 0 {
		codecs := videoCodecString(si.Video)
		if hasSubs {
			codecs += ",wvtt"
		}
		bw := bandwidth(si.Video.Bitrate, nil)
		ew.printf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s%s,CODECS=%q\n", bw, resolution, subtitleAttr, codecs)
		ew.println(urlkind.Playlist(si.Video.StreamIndex, nil, ""))
		return ew.err
	}

	var groupOrder []string
	seen := map[string]bool{}
	for idx, stream := range si.Audio {
		g := audioGroup(stream, plans[idx].Action == audioplan.ActionTranscode)
		if !seen[g] {
			seen[g] = true
			groupOrder = append(groupOrder, g)
		}
	}

	for _, group := range groupOrder {
		var groupBitrates []int
		var firstAudioIdx int
		var firstXC string
		foundFirst := false
		for idx, stream := range si.Audio {
			transcoded := plans[idx].Action == audioplan.ActionTranscode
			if audioGroup(stream, transcoded) != group {
				continue
			}
			groupBitrates = append(groupBitrates, stream.Bitrate)
			if !foundFirst {
				firstAudioIdx = stream.StreamIndex
				if transcoded {
					firstXC = "aac"
				}
				foundFirst = true
			}
		}

		codecs := videoCodecString(si.Video) + "," + audioCodecStringForGroup(group)
		if hasSubs {
			codecs += ",wvtt"
		}
		bw := bandwidth(si.Video.Bitrate, groupBitrates)

		ew.printf("#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s,AUDIO=%q,CODECS=%q%s\n",
			bw, resolution, group, codecs, subtitleAttr)
		audioTrack := firstAudioIdx
		ew.println(urlkind.Playlist(si.Video.StreamIndex, &audioTrack, firstXC))
	}
	return ew.err
}

func upper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - ('a' - 'A')
		}
	}
	return string(out)
}
