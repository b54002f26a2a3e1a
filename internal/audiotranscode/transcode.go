// Package audiotranscode decodes a source audio stream for one segment
// window, resamples and re-encodes it to AAC, and returns a patched
// CMAF media-fragment ready to serve — spec §4.F. It shells out to ffmpeg
// for decode/resample/encode via internal/ffmpeg.RunCapture rather than
// linking a codec library, then parses the resulting ADTS stream with
// mediacommon's mpeg4audio package the way other_examples' mediamtx HLS
// client parses ADTS off the wire.
package audiotranscode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"

	"github.com/hlsvod/originserver/internal/ffmpeg"
	"github.com/hlsvod/originserver/internal/fmp4mux"
	"github.com/hlsvod/originserver/internal/hlserr"
	"github.com/hlsvod/originserver/internal/mp4box"
	"github.com/hlsvod/originserver/internal/timebase"
)

// targetSampleRate is the fixed PCM rate every transcoded track is
// resampled to before AAC encoding (spec §4.F step 3).
const targetSampleRate = 48000

// samplesPerFrame is the AAC access-unit grid size (spec §4.F step 5).
const samplesPerFrame = mpeg4audio.SamplesPerAccessUnit

// preRollSeconds is how far before the segment start the source is
// sought, priming the encoder and resolving codecs with initial skip
// samples (spec §4.F step 2).
const preRollSeconds = 0.5

// Config configures a Transcoder.
type Config struct {
	FfmpegPath string
	Timeout    time.Duration
}

// Transcoder runs the decode/resample/encode/mux pipeline for one audio
// segment at a time.
type Transcoder struct {
	ffmpegPath string
	timeout    time.Duration
}

// NewTranscoder creates a Transcoder using the given ffmpeg binary path
// (empty uses "ffmpeg" from PATH).
func NewTranscoder(cfg Config) *Transcoder {
	path := cfg.FfmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transcoder{ffmpegPath: path, timeout: timeout}
}

// Request describes one audio segment to transcode.
type Request struct {
	SourcePath       string
	AudioStreamIndex int // ffprobe stream index of the source audio track
	ChannelCount     int
	SegmentSequence  int
	SegmentStartPTS  int64 // video timebase
	SegmentEndPTS    int64 // video timebase
	VideoTimebase    timebase.Rational
}

// TranscodeSegment runs the full pipeline and returns the final,
// tfdt-patched, styp-prefixed CMAF media-fragment bytes for req.
func (t *Transcoder) TranscodeSegment(ctx context.Context, req Request) ([]byte, error) {
	adts, err := t.decodeToADTS(ctx, req)
	if err != nil {
		return nil, err
	}

	var packets mpeg4audio.ADTSPackets
	if err := packets.Unmarshal(adts); err != nil {
		return nil, &hlserr.TranscodeError{Msg: "decode ADTS stream", Err: err}
	}
	if len(packets) == 0 {
		return nil, &hlserr.TranscodeError{Msg: "no PCM frames decoded (seek past end of stream?)"}
	}

	seekSeconds := seekStart(req)
	firstFramePTS48k := int64((seekSeconds * targetSampleRate) + 0.5)
	alignedStart := ceilToGrid(firstFramePTS48k, samplesPerFrame)
	targetGridStart := timebase.Rescale(req.SegmentStartPTS, req.VideoTimebase, timebase.Rational{Num: 1, Den: targetSampleRate})

	samples := make([]*fmp4.Sample, 0, len(packets))
	for i, pkt := range packets {
		pts := alignedStart + int64(i)*samplesPerFrame
		if pts < targetGridStart {
			continue // pre-roll primer, discard per spec §4.F step 6
		}
		samples = append(samples, &fmp4.Sample{
			Duration: samplesPerFrame,
			Payload:  pkt.AU,
		})
	}
	if len(samples) == 0 {
		return nil, &hlserr.TranscodeError{Msg: "all encoded frames fell before segment start"}
	}

	channels := req.ChannelCount
	if channels <= 0 {
		channels = 2
	}
	params := fmp4mux.AudioParams{
		Codec:        "aac",
		SampleRate:   targetSampleRate,
		ChannelCount: channels,
	}

	_, media, err := fmp4mux.MuxAACPacketsToFMP4(params, samples)
	if err != nil {
		return nil, err
	}

	return patchAudioMediaFragment(media, req.SegmentSequence, uint64(targetGridStart))
}

// decodeToADTS runs ffmpeg to seek, decode, resample to 48kHz, and encode
// to AAC, returning the raw ADTS byte stream.
func (t *Transcoder) decodeToADTS(ctx context.Context, req Request) ([]byte, error) {
	seekSeconds := seekStart(req)
	durationSeconds := timebase.PTSToSeconds(req.SegmentEndPTS-req.SegmentStartPTS, req.VideoTimebase) + preRollSeconds + 0.25

	channels := req.ChannelCount
	if channels <= 0 {
		channels = 2
	}
	if channels > 2 {
		channels = 2
	}

	args := []string{
		"-nostdin",
		"-v", "error",
		"-ss", fmt.Sprintf("%.3f", seekSeconds),
		"-i", req.SourcePath,
		"-map", fmt.Sprintf("0:%d", req.AudioStreamIndex),
		"-vn", "-sn",
		"-af", fmt.Sprintf("aresample=%d", targetSampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-c:a", "aac",
		"-t", fmt.Sprintf("%.3f", durationSeconds),
		"-f", "adts",
		"pipe:1",
	}

	out, stats, err := ffmpeg.RunCapture(ctx, t.ffmpegPath, t.timeout, args)
	if err != nil {
		return nil, &hlserr.FfmpegError{Err: err}
	}
	slog.Default().DebugContext(ctx, "audio segment transcoded",
		"segment_sequence", req.SegmentSequence,
		"cpu_percent", stats.CPUPercent,
		"memory_rss_mb", stats.MemoryRSSMB,
		"duration", stats.Duration)
	return out, nil
}

func seekStart(req Request) float64 {
	s := timebase.PTSToSeconds(req.SegmentStartPTS, req.VideoTimebase) - preRollSeconds
	if s < 0 {
		s = 0
	}
	return s
}

// ceilToGrid rounds v up to the next multiple of grid (grid > 0),
// implementing spec §4.F step 5's "discard (1024 − grid_offset) mod 1024
// leading samples" as a single rounding operation.
func ceilToGrid(v, grid int64) int64 {
	m := v % grid
	if m < 0 {
		m += grid
	}
	if m == 0 {
		return v
	}
	return v + (grid - m)
}

// patchAudioMediaFragment applies spec §4.H.3's patch sequence to an
// audio-only media fragment produced by fmp4mux: sequence number, tfdt
// base-media-decode-time, and the prepended styp box.
func patchAudioMediaFragment(media []byte, sequence int, baseMediaDecodeTime uint64) ([]byte, error) {
	out, err := mp4box.PatchSingleTrackFragment(media, uint32(sequence*1000+1), baseMediaDecodeTime)
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "patch audio media fragment", Err: err}
	}
	return out, nil
}
