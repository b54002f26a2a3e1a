// Package fmp4mux builds CMAF-compatible fragmented MP4 init and media
// segments from elementary-stream samples, wrapping
// bluenviron/mediacommon/v2's fmp4.Init/fmp4.Part types (spec §4.E).
//
// Unlike an ffmpeg libavformat mp4 muxer invoked with empty_moov/
// default_base_moof/frag_duration options, mediacommon's Part type already
// emits exactly one self-contained fragment (styp-less moof+mdat) per
// Marshal call — there is no sub-fragmentation to suppress and no
// delay_moov interleaving mode to select, so those ffmpeg-specific knobs
// have no equivalent here and are not reproduced.
package fmp4mux

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mp4"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/hlsvod/originserver/internal/codec"
)

// VideoParams carries the codec-specific parameter sets needed to build an
// mp4.Codec sample entry for a video track.
type VideoParams struct {
	Codec codec.Video

	// H.264/H.265
	SPS, PPS, VPS []byte

	// AV1
	AV1SequenceHeader []byte

	// VP9
	Width, Height, Profile int
}

// AudioParams carries the codec-specific parameters needed to build an
// mp4.Codec sample entry for an audio track.
type AudioParams struct {
	Codec        codec.Audio
	SampleRate   int
	ChannelCount int

	// ASC holds a raw AAC AudioSpecificConfig, when already known (e.g.
	// parsed from an ADTS header). If empty, an AAC-LC config is built
	// from SampleRate/ChannelCount.
	ASC []byte
}

// buildVideoCodec constructs the mp4.Codec sample entry for p.
func buildVideoCodec(p VideoParams) (mp4.Codec, error) {
	switch p.Codec {
	case codec.VideoAV1:
		if len(p.AV1SequenceHeader) == 0 {
			return nil, fmt.Errorf("fmp4mux: AV1 sequence header not available")
		}
		return &mp4.CodecAV1{SequenceHeader: p.AV1SequenceHeader}, nil

	case codec.VideoVP9:
		return &mp4.CodecVP9{
			Width:   p.Width,
			Height:  p.Height,
			Profile: p.Profile,
		}, nil

	case codec.VideoH265:
		if len(p.VPS) == 0 || len(p.SPS) == 0 || len(p.PPS) == 0 {
			return nil, fmt.Errorf("fmp4mux: H.265 VPS/SPS/PPS not available")
		}
		return &mp4.CodecH265{VPS: p.VPS, SPS: p.SPS, PPS: p.PPS}, nil

	case codec.VideoH264:
		if len(p.SPS) == 0 || len(p.PPS) == 0 {
			return nil, fmt.Errorf("fmp4mux: H.264 SPS/PPS not available")
		}
		return &mp4.CodecH264{SPS: p.SPS, PPS: p.PPS}, nil

	default:
		return nil, fmt.Errorf("fmp4mux: unsupported video codec %q", p.Codec)
	}
}

// buildAudioCodec constructs the mp4.Codec sample entry for p.
func buildAudioCodec(p AudioParams) (mp4.Codec, error) {
	switch p.Codec {
	case codec.AudioAAC:
		asc := mpeg4audio.AudioSpecificConfig{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   p.SampleRate,
			ChannelCount: p.ChannelCount,
		}
		if len(p.ASC) > 0 {
			var parsed mpeg4audio.AudioSpecificConfig
			if err := parsed.Unmarshal(p.ASC); err == nil {
				asc = parsed
			}
		}
		return &mp4.CodecMPEG4Audio{Config: asc}, nil

	case codec.AudioOpus:
		return &mp4.CodecOpus{ChannelCount: p.ChannelCount}, nil

	case codec.AudioAC3:
		return &mp4.CodecAC3{SampleRate: p.SampleRate, ChannelCount: p.ChannelCount}, nil

	case codec.AudioEAC3:
		return &mp4.CodecEAC3{SampleRate: p.SampleRate, ChannelCount: p.ChannelCount}, nil

	case codec.AudioMP3:
		return &mp4.CodecMPEG1Audio{SampleRate: p.SampleRate, ChannelCount: p.ChannelCount}, nil

	default:
		return nil, fmt.Errorf("fmp4mux: unsupported audio codec %q", p.Codec)
	}
}

// audioTimescale returns the output timebase denominator for an audio
// track: the sample rate, per spec §4.E ("audio streams' output timebase
// is 1/sample_rate").
func audioTimescale(p AudioParams) uint32 {
	if p.SampleRate <= 0 {
		return 48000
	}
	return uint32(p.SampleRate)
}
