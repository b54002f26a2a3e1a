package streamindex

import (
	"context"
	"time"

	"github.com/hlsvod/originserver/internal/codec"
	"github.com/hlsvod/originserver/internal/demux"
	"github.com/hlsvod/originserver/internal/hlserr"
	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/timebase"
)

// bitmapSubtitleCodecs are subtitle codecs this system cannot convert to
// WebVTT cues; streams using them are dropped from the index (spec §4.D.2).
var bitmapSubtitleCodecs = map[string]bool{
	"hdmv_pgs_subtitle": true,
	"dvd_subtitle":       true,
	"dvb_subtitle":       true,
	"xsub":               true,
}

// Options configures a Builder.
type Options struct {
	FfprobePath            string
	FfprobeTimeout         time.Duration
	TargetSegmentDurationSecs float64
}

// Builder constructs a model.StreamIndex for one source file.
type Builder struct {
	prober  *prober
	reader  *demux.Reader
	opts    Options
}

// NewBuilder creates a Builder using the given ffprobe path/timeout for
// both metadata probing and index-entry reading.
func NewBuilder(opts Options) *Builder {
	if opts.TargetSegmentDurationSecs <= 0 {
		opts.TargetSegmentDurationSecs = 6
	}
	return &Builder{
		prober: newProber(opts.FfprobePath, opts.FfprobeTimeout),
		reader: demux.NewReader(opts.FfprobePath, opts.FfprobeTimeout),
		opts:   opts,
	}
}

// Build runs the full stream-index construction algorithm (spec §4.D) for
// sourcePath, tagging the result with streamID.
func (b *Builder) Build(ctx context.Context, streamID, sourcePath string) (*model.StreamIndex, error) {
	probed, err := b.prober.probe(ctx, sourcePath)
	if err != nil {
		return nil, err
	}

	var videoStream *probeStream
	var audioStreams []probeStream
	var subtitleStreams []probeStream

	for i := range probed.Streams {
		s := &probed.Streams[i]
		switch s.CodecType {
		case "video":
			if videoStream == nil {
				videoStream = s
			}
		case "audio":
			audioStreams = append(audioStreams, *s)
		case "subtitle":
			if bitmapSubtitleCodecs[s.CodecName] {
				continue
			}
			subtitleStreams = append(subtitleStreams, *s)
		}
	}

	if videoStream == nil {
		return nil, hlserr.ErrNoVideoStream
	}

	videoTB := parseRational(videoStream.TimeBase, timebase.Rational{Num: 1, Den: 90000})

	videoEntries, err := b.reader.ReadIndexEntries(ctx, sourcePath, videoStream.Index)
	if err != nil {
		return nil, err
	}
	if len(videoEntries) == 0 {
		return nil, &hlserr.NoIndexError{Path: sourcePath}
	}

	duration := parseFloatOr(probed.Format.Duration, 0)
	totalDurationVideoTB := timebase.SecondsToPTS(duration, videoTB)

	segments := buildSegmentBoundaries(videoEntries, videoTB, b.opts.TargetSegmentDurationSecs, totalDurationVideoTB)

	frameRateNum, frameRateDen := parseFrameRate(videoStream.RFrameRate)

	video := &model.VideoStreamInfo{
		StreamIndex:  videoStream.Index,
		Codec:        normalizeCodecName(videoStream.CodecName),
		Width:        videoStream.Width,
		Height:       videoStream.Height,
		Timebase:     videoTB,
		Profile:      videoStream.Profile,
		Level:        videoStream.Level,
		Bitrate:      parseIntOr(videoStream.BitRate, 0),
		FrameRateNum: frameRateNum,
		FrameRateDen: frameRateDen,
	}

	audio := make([]model.AudioStreamInfo, 0, len(audioStreams))
	for _, s := range audioStreams {
		tb := parseRational(s.TimeBase, timebase.Rational{Num: 1, Den: int64(parseIntOr(s.SampleRate, 48000))})

		entries, err := b.reader.ReadIndexEntries(ctx, sourcePath, s.Index)
		if err != nil {
			return nil, err
		}
		var delay int64
		if len(entries) > 0 {
			delay = -entries[0].Timestamp
			if delay < 0 {
				delay = 0
			}
		}

		name := normalizeCodecName(s.CodecName)
		var transcodeTo string
		if a, ok := codec.ParseAudio(name); !ok || !codec.IsHLSPassthroughAudio(a) {
			transcodeTo = string(codec.AudioAAC)
		}

		audio = append(audio, model.AudioStreamInfo{
			StreamIndex:  s.Index,
			Codec:        name,
			SampleRate:   parseIntOr(s.SampleRate, 0),
			ChannelCount: s.Channels,
			Timebase:     tb,
			Bitrate:      parseIntOr(s.BitRate, 0),
			Language:     s.Tags["language"],
			EncoderDelay: delay,
			TranscodeTo:  transcodeTo,
		})
	}

	subtitles := make([]model.SubtitleStreamInfo, 0, len(subtitleStreams))
	for _, s := range subtitleStreams {
		tb := parseRational(s.TimeBase, timebase.Rational{Num: 1, Den: 1000})

		entries, err := b.reader.ReadIndexEntries(ctx, sourcePath, s.Index)
		if err != nil {
			// A subtitle stream with no index is simply excluded, unlike
			// the video stream's index being mandatory.
			continue
		}

		samples := make([]model.SubtitleSample, 0, len(entries))
		for _, e := range entries {
			samples = append(samples, model.SubtitleSample{IndexEntry: e})
		}

		subtitles = append(subtitles, model.SubtitleStreamInfo{
			StreamIndex:       s.Index,
			Codec:             normalizeCodecName(s.CodecName),
			Language:          s.Tags["language"],
			SampleIndex:       samples,
			NonEmptySequences: buildNonEmptySequences(samples, tb, videoTB, segments),
		})
	}

	si := model.NewStreamIndex(streamID, sourcePath, len(segments))
	si.Duration = duration
	si.VideoTimebase = videoTB
	si.Video = video
	si.Audio = audio
	si.Subtitles = subtitles
	si.Segments = segments
	si.IndexedAt = time.Now()

	return si, nil
}

// parseRational parses an ffprobe "num/den" time_base string, falling back
// to fallback on malformed or missing input.
func parseRational(tb string, fallback timebase.Rational) timebase.Rational {
	num, den, ok := parseTimeBase(tb)
	if !ok {
		return fallback
	}
	return timebase.Rational{Num: num, Den: den}
}

// parseFrameRate parses ffprobe's "r_frame_rate" rational string (e.g.
// "24000/1001"), returning (0, 0) on malformed or missing input.
func parseFrameRate(rfr string) (int64, int64) {
	num, den, ok := parseTimeBase(rfr)
	if !ok {
		return 0, 0
	}
	return num, den
}

// normalizeCodecName returns name unchanged; ffprobe codec_name values are
// already the canonical short names this system's codec aliases
// expect (e.g. "h264", "aac", "ac3").
func normalizeCodecName(name string) string { return name }

// buildSegmentBoundaries implements spec §4.D.1: walk keyframe entries,
// closing a segment once the running duration reaches 0.8x the target.
func buildSegmentBoundaries(entries []demux.IndexEntry, videoTB timebase.Rational, targetSecs float64, totalDuration int64) []model.SegmentInfo {
	var keyframes []demux.IndexEntry
	for _, e := range entries {
		if e.IsKeyframe() {
			keyframes = append(keyframes, e)
		}
	}
	if len(keyframes) == 0 {
		keyframes = entries
	}

	thresholdTicks := timebase.SecondsToPTS(0.8*targetSecs, videoTB)

	var segments []model.SegmentInfo
	seq := 0
	startPTS := keyframes[0].Timestamp
	if startPTS < 0 {
		startPTS = 0
	}
	segStartByteOffset := keyframes[0].Pos

	for i := 1; i < len(keyframes); i++ {
		ts := keyframes[i].Timestamp
		if ts-startPTS >= thresholdTicks {
			segments = append(segments, model.SegmentInfo{
				Sequence:        seq,
				StartPTS:        startPTS,
				EndPTS:          ts,
				DurationSecs:    timebase.PTSToSeconds(ts-startPTS, videoTB),
				IsKeyframe:      true,
				VideoByteOffset: segStartByteOffset,
			})
			seq++
			startPTS = ts
			segStartByteOffset = keyframes[i].Pos
		}
	}

	endPTS := totalDuration
	if endPTS < startPTS {
		endPTS = startPTS
	}
	durationSecs := timebase.PTSToSeconds(endPTS-startPTS, videoTB)
	if durationSecs < 0.1 {
		durationSecs = 0.1
	}
	segments = append(segments, model.SegmentInfo{
		Sequence:        seq,
		StartPTS:        startPTS,
		EndPTS:          endPTS,
		DurationSecs:    durationSecs,
		IsKeyframe:      true,
		VideoByteOffset: segStartByteOffset,
	})

	return segments
}

// buildNonEmptySequences implements spec §4.D.2: for each subtitle sample,
// rescale its pts into the video timebase and find which segment it falls
// within, producing the sorted deduplicated set of segment sequences that
// contain at least one cue.
func buildNonEmptySequences(samples []model.SubtitleSample, subTB, videoTB timebase.Rational, segments []model.SegmentInfo) []bool {
	marks := make([]bool, len(segments))
	if len(segments) == 0 {
		return marks
	}

	for _, s := range samples {
		rescaled := timebase.Rescale(s.Timestamp, subTB, videoTB)
		idx := findSegmentForPTS(rescaled, segments)
		marks[idx] = true
	}
	return marks
}

// findSegmentForPTS finds the index of the segment whose [start,end) range
// contains pts; clamps out-of-range values to the nearest boundary segment.
func findSegmentForPTS(pts int64, segments []model.SegmentInfo) int {
	if pts < segments[0].StartPTS {
		return 0
	}
	for i, seg := range segments {
		if pts >= seg.StartPTS && pts < seg.EndPTS {
			return i
		}
	}
	return len(segments) - 1
}
