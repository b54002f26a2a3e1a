// Package synth is the segment synthesizer: the top-level dispatcher that
// turns one parsed request (video/audio/interleaved init, video/audio/
// interleaved segment, subtitle segment) into the exact response bytes,
// driving internal/fmp4mux, internal/mp4box's post-mux patching, and
// internal/audiotranscode/internal/webvtt for the codecs that need them
// (spec §4.H): parse boxes out of a muxer's output, patch the handful of
// fields HLS clients actually need right.
package synth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"

	"github.com/hlsvod/originserver/internal/audioplan"
	"github.com/hlsvod/originserver/internal/audiotranscode"
	"github.com/hlsvod/originserver/internal/codec"
	"github.com/hlsvod/originserver/internal/demux"
	"github.com/hlsvod/originserver/internal/fmp4mux"
	"github.com/hlsvod/originserver/internal/hlserr"
	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/mp4box"
	"github.com/hlsvod/originserver/internal/timebase"
	"github.com/hlsvod/originserver/internal/webvtt"
)

// outputVideoTimebase is the fixed 90kHz clock every video track is muxed
// into, matching internal/fmp4mux.
var outputVideoTimebase = timebase.Rational{Num: 1, Den: 90000}

// defaultVideoFrameTicks is the trex.default_sample_duration fallback
// used when a stream's frame rate is unknown (spec §4.H.1: "fallback 3000
// for 30 fps").
const defaultVideoFrameTicks = 3000

// audioDefaultSampleDuration is the trex.default_sample_duration every
// audio track's init segment is patched to (spec §4.H.4): one AAC/AC-3/
// Opus/MP3 access unit's worth of samples at the output timebase.
const audioDefaultSampleDuration = 1024

// Config configures a Synthesizer.
type Config struct {
	FfprobePath string
	FfmpegPath  string
	Timeout     time.Duration
}

// Synthesizer builds init and media segments for one source file's
// streams, reading packet-level index data fresh on every call (spec
// §4.H.2 describes a per-request demuxer seek-and-iterate; this system
// has no long-lived demuxer handle to keep open between requests).
type Synthesizer struct {
	reader     *demux.Reader
	transcoder *audiotranscode.Transcoder
	timeout    time.Duration
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(cfg Config) *Synthesizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{
		reader:     demux.NewReader(cfg.FfprobePath, timeout),
		transcoder: audiotranscode.NewTranscoder(audiotranscode.Config{FfmpegPath: cfg.FfmpegPath, Timeout: timeout}),
		timeout:    timeout,
	}
}

// ensureVideoExtradata lazily parses SPS/PPS/VPS/AV1 sequence header out
// of the source file's moov, caching the result on si.Video so later
// calls (segments on the same stream) don't re-parse it.
func (s *Synthesizer) ensureVideoExtradata(si *model.StreamIndex) error {
	if len(si.Video.SPS) > 0 || len(si.Video.AV1SequenceHeader) > 0 {
		return nil
	}

	info, err := os.Stat(si.SourcePath)
	if err != nil {
		return &hlserr.MuxingError{Msg: "stat source for extradata", Err: err}
	}

	seeker, err := demux.OpenSeeker(si.SourcePath)
	if err != nil {
		return &hlserr.MuxingError{Msg: "open source for extradata", Err: err}
	}
	defer seeker.Close()

	moov, err := mp4box.LocateMoov(seeker, info.Size())
	if err != nil {
		return &hlserr.MuxingError{Msg: "locate moov", Err: err}
	}

	entry, err := mp4box.FindVideoSampleEntry(moov)
	if err != nil {
		return &hlserr.MuxingError{Msg: "find video sample entry", Err: err}
	}

	si.Video.SPS = entry.SPS
	si.Video.PPS = entry.PPS
	si.Video.VPS = entry.VPS
	si.Video.AV1SequenceHeader = entry.AV1SequenceHeader
	return nil
}

func videoParamsFrom(v *model.VideoStreamInfo) (fmp4mux.VideoParams, error) {
	c, ok := codec.ParseVideo(v.Codec)
	if !ok {
		return fmp4mux.VideoParams{}, &hlserr.InvalidCodecError{Name: v.Codec}
	}
	return fmp4mux.VideoParams{
		Codec:             c,
		SPS:               v.SPS,
		PPS:               v.PPS,
		VPS:               v.VPS,
		AV1SequenceHeader: v.AV1SequenceHeader,
		Width:             v.Width,
		Height:            v.Height,
	}, nil
}

// videoFrameTicks computes trex.default_sample_duration for a 90kHz
// video track from the stream's nominal frame rate (spec §4.H.1/§4.H.4).
func videoFrameTicks(v *model.VideoStreamInfo) uint32 {
	if v.FrameRateNum <= 0 || v.FrameRateDen <= 0 {
		return defaultVideoFrameTicks
	}
	ticks := (int64(outputVideoTimebase.Den)*v.FrameRateDen + v.FrameRateNum/2) / v.FrameRateNum
	if ticks <= 0 {
		return defaultVideoFrameTicks
	}
	return uint32(ticks)
}

// patchTrex walks init's moov/mvex for the trex whose track_ID matches
// trackID and sets its default_sample_duration.
func patchTrex(init []byte, trackID int, value uint32) error {
	mvexBox, err := mp4box.Find(init, []string{"moov", "mvex"})
	if err != nil {
		return err
	}
	mvexPayload := init[mvexBox.PayloadStart:mvexBox.End]

	boxes, err := mp4box.FindAll(mvexPayload, "trex")
	if err != nil {
		return err
	}
	for _, trex := range boxes {
		if int(mp4box.TfhdTrackID(mvexPayload, trex)) != trackID {
			continue
		}
		mp4box.TrexSetDefaultSampleDuration(mvexPayload, trex, value)
		return nil
	}
	return mp4box.ErrBoxNotFound
}

// VideoInit builds the init segment for the primary video stream (spec
// §4.H.1 "Video init").
func (s *Synthesizer) VideoInit(si *model.StreamIndex) ([]byte, error) {
	if err := s.ensureVideoExtradata(si); err != nil {
		return nil, err
	}
	params, err := videoParamsFrom(si.Video)
	if err != nil {
		return nil, err
	}

	m := fmp4mux.NewMuxer()
	trackID, err := m.AddVideoStream(params, si.Video.StreamIndex)
	if err != nil {
		return nil, err
	}
	init, err := m.WriteHeader()
	if err != nil {
		return nil, err
	}
	if err := patchTrex(init, trackID, videoFrameTicks(si.Video)); err != nil {
		return nil, &hlserr.MuxingError{Msg: "patch video trex", Err: err}
	}
	return init, nil
}

// AudioInit builds the init segment for audio track audioIdx (index into
// si.Audio), using AAC encoder params if the audio plan selects transcode,
// else the source's own codec parameters (spec §4.H.1 "Audio init").
func (s *Synthesizer) AudioInit(si *model.StreamIndex, audioIdx int) ([]byte, error) {
	if audioIdx < 0 || audioIdx >= len(si.Audio) {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentAudio, Sequence: audioIdx}
	}
	stream := si.Audio[audioIdx]
	plan := audioplan.Plan(si.Audio)[audioIdx]

	m := fmp4mux.NewMuxer()
	var trackID int
	var err error

	switch {
	case plan.Action == audioplan.ActionTranscode:
		channels := stream.ChannelCount
		if channels > 2 {
			channels = 2
		}
		if channels <= 0 {
			channels = 2
		}
		params := fmp4mux.AudioParams{Codec: codec.AudioAAC, SampleRate: 48000, ChannelCount: channels}
		trackID, err = m.AddAudioStream(params, stream.StreamIndex)

	case plan.TargetCodec == codec.AudioAC3 || plan.TargetCodec == codec.AudioEAC3:
		params := fmp4mux.AudioParams{Codec: plan.TargetCodec, SampleRate: stream.SampleRate, ChannelCount: stream.ChannelCount}
		init, genErr := m.GenerateInitSegmentWithPacket(params, stream.StreamIndex, nil)
		if genErr != nil {
			return nil, genErr
		}
		trackID, _ = m.GetOutputTrackID(stream.StreamIndex)
		if patchErr := patchTrex(init, trackID, audioDefaultSampleDuration); patchErr != nil {
			return nil, &hlserr.MuxingError{Msg: "patch audio trex", Err: patchErr}
		}
		return init, nil

	default:
		params := fmp4mux.AudioParams{Codec: plan.TargetCodec, SampleRate: stream.SampleRate, ChannelCount: stream.ChannelCount}
		trackID, err = m.AddAudioStream(params, stream.StreamIndex)
	}
	if err != nil {
		return nil, err
	}

	init, err := m.WriteHeader()
	if err != nil {
		return nil, err
	}
	if err := patchTrex(init, trackID, audioDefaultSampleDuration); err != nil {
		return nil, &hlserr.MuxingError{Msg: "patch audio trex", Err: err}
	}
	return init, nil
}

// InterleavedInit builds a single init segment containing both the video
// stream and audio track audioIdx (spec §4.H.1 "Interleaved init").
func (s *Synthesizer) InterleavedInit(si *model.StreamIndex, audioIdx int) ([]byte, error) {
	if audioIdx < 0 || audioIdx >= len(si.Audio) {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentAudio, Sequence: audioIdx}
	}
	if err := s.ensureVideoExtradata(si); err != nil {
		return nil, err
	}

	videoParams, err := videoParamsFrom(si.Video)
	if err != nil {
		return nil, err
	}
	stream := si.Audio[audioIdx]
	plan := audioplan.Plan(si.Audio)[audioIdx]

	audioCodec := plan.TargetCodec
	sampleRate := stream.SampleRate
	channels := stream.ChannelCount
	if plan.Action == audioplan.ActionTranscode {
		sampleRate = 48000
		if channels > 2 || channels <= 0 {
			channels = 2
		}
	}
	audioParams := fmp4mux.AudioParams{Codec: audioCodec, SampleRate: sampleRate, ChannelCount: channels}

	m := fmp4mux.NewMuxer()
	videoTrackID, err := m.AddVideoStream(videoParams, si.Video.StreamIndex)
	if err != nil {
		return nil, err
	}
	audioTrackID, err := m.AddAudioStream(audioParams, stream.StreamIndex)
	if err != nil {
		return nil, err
	}

	init, err := m.WriteHeader()
	if err != nil {
		return nil, err
	}
	if err := patchTrex(init, videoTrackID, videoFrameTicks(si.Video)); err != nil {
		return nil, &hlserr.MuxingError{Msg: "patch video trex", Err: err}
	}
	if err := patchTrex(init, audioTrackID, audioDefaultSampleDuration); err != nil {
		return nil, &hlserr.MuxingError{Msg: "patch audio trex", Err: err}
	}
	return init, nil
}

// videoSamples reads segment seq's video packets via a byte-offset seek
// (spec §4.H.2), returning fmp4 samples in the fixed 90kHz output
// timebase and the segment's rescaled [start,end) boundary.
func (s *Synthesizer) videoSamples(ctx context.Context, si *model.StreamIndex, seq int) ([]*fmp4.Sample, int64, error) {
	if seq < 0 || seq >= len(si.Segments) {
		return nil, 0, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentVideo, Sequence: seq}
	}
	seg := si.Segments[seq]

	entries, err := s.reader.ReadIndexEntries(ctx, si.SourcePath, si.Video.StreamIndex)
	if err != nil {
		return nil, 0, err
	}

	var selected []demux.IndexEntry
	for _, e := range entries {
		if e.Timestamp < seg.StartPTS {
			continue // pre-roll packet belonging to the previous segment
		}
		if e.IsKeyframe() && e.Timestamp >= seg.EndPTS && len(selected) > 0 {
			break
		}
		selected = append(selected, e)
	}
	if len(selected) == 0 {
		return nil, 0, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentVideo, Sequence: seq}
	}

	seeker, err := demux.OpenSeeker(si.SourcePath)
	if err != nil {
		return nil, 0, &hlserr.MuxingError{Msg: "open source for video segment", Err: err}
	}
	defer seeker.Close()

	startOut := timebase.Rescale(seg.StartPTS, si.VideoTimebase, outputVideoTimebase)
	endOut := timebase.Rescale(seg.EndPTS, si.VideoTimebase, outputVideoTimebase)

	samples := make([]*fmp4.Sample, 0, len(selected))
	for i, e := range selected {
		payload := make([]byte, e.Size)
		if err := seeker.SeekToByteOffset(e.Pos); err != nil {
			return nil, 0, &hlserr.MuxingError{Msg: "seek video sample", Err: err}
		}
		if err := seeker.ReadN(payload); err != nil {
			return nil, 0, &hlserr.MuxingError{Msg: "read video sample", Err: err}
		}

		tsOut := timebase.Rescale(e.Timestamp, si.VideoTimebase, outputVideoTimebase)
		var duration int64
		if i+1 < len(selected) {
			duration = timebase.Rescale(selected[i+1].Timestamp, si.VideoTimebase, outputVideoTimebase) - tsOut
		} else {
			duration = endOut - tsOut
		}
		if duration <= 0 {
			duration = 1
		}

		ptsOffsetOut := timebase.Rescale(e.PTSOffset(), si.VideoTimebase, outputVideoTimebase)

		samples = append(samples, &fmp4.Sample{
			Payload:         payload,
			Duration:        uint32(duration),
			IsNonSyncSample: !e.IsKeyframe(),
			PTSOffset:       int32(ptsOffsetOut),
		})
	}

	return samples, startOut, nil
}

// VideoSegment builds the moof+mdat for video segment seq (spec §4.H.1
// "Video segment seq N").
func (s *Synthesizer) VideoSegment(ctx context.Context, si *model.StreamIndex, seq int) ([]byte, error) {
	if err := s.ensureVideoExtradata(si); err != nil {
		return nil, err
	}
	params, err := videoParamsFrom(si.Video)
	if err != nil {
		return nil, err
	}

	samples, startOut, err := s.videoSamples(ctx, si, seq)
	if err != nil {
		return nil, err
	}

	m := fmp4mux.NewMuxer()
	trackID, err := m.AddVideoStream(params, si.Video.StreamIndex)
	if err != nil {
		return nil, err
	}
	media, err := m.WritePart(1, map[int][]*fmp4.Sample{trackID: samples}, map[int]uint64{trackID: uint64(startOut)})
	if err != nil {
		return nil, err
	}

	patched, err := mp4box.PatchSingleTrackFragment(media, uint32(seq*1000+1), uint64(startOut))
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "patch video media fragment", Err: err}
	}

	si.SegmentFirstPTSSet(seq, startOut)
	return patched, nil
}

// AudioSegment builds the moof+mdat for audio track audioIdx's segment
// seq: a direct packet copy for a passthrough plan, or a full
// internal/audiotranscode pass for a transcode plan (spec §4.H.1 "Audio
// segment seq N").
func (s *Synthesizer) AudioSegment(ctx context.Context, si *model.StreamIndex, audioIdx, seq int) ([]byte, error) {
	if audioIdx < 0 || audioIdx >= len(si.Audio) {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentAudio, Sequence: audioIdx}
	}
	if seq < 0 || seq >= len(si.Segments) {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentAudio, Sequence: seq}
	}
	stream := si.Audio[audioIdx]
	seg := si.Segments[seq]
	plan := audioplan.Plan(si.Audio)[audioIdx]

	if plan.Action == audioplan.ActionTranscode {
		channels := stream.ChannelCount
		return s.transcoder.TranscodeSegment(ctx, audiotranscode.Request{
			SourcePath:       si.SourcePath,
			AudioStreamIndex: stream.StreamIndex,
			ChannelCount:     channels,
			SegmentSequence:  seq,
			SegmentStartPTS:  seg.StartPTS,
			SegmentEndPTS:    seg.EndPTS,
			VideoTimebase:    si.VideoTimebase,
		})
	}

	return s.passthroughAudioSegment(ctx, si, stream, seg, seq)
}

// passthroughAudioSegment copies an HLS-deliverable audio stream's
// packets for segment seq directly into a new media fragment, using
// segment_first_pts (written by the matching video segment render) to
// align tfdt with the video track when available, else falling back to
// the segment's own start PTS rescaled into the audio timebase (spec
// §4.H.3 step 3, audio case).
func (s *Synthesizer) passthroughAudioSegment(ctx context.Context, si *model.StreamIndex, stream model.AudioStreamInfo, seg model.SegmentInfo, seq int) ([]byte, error) {
	audioTB := stream.Timebase

	entries, err := s.reader.ReadIndexEntries(ctx, si.SourcePath, stream.StreamIndex)
	if err != nil {
		return nil, err
	}

	startAudioPTS := timebase.Rescale(seg.StartPTS, si.VideoTimebase, audioTB)
	endAudioPTS := timebase.Rescale(seg.EndPTS, si.VideoTimebase, audioTB)

	var selected []demux.IndexEntry
	for _, e := range entries {
		if e.Timestamp < startAudioPTS {
			continue
		}
		if e.Timestamp >= endAudioPTS && len(selected) > 0 {
			break
		}
		selected = append(selected, e)
	}
	if len(selected) == 0 {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentAudio, Sequence: seq}
	}

	seeker, err := demux.OpenSeeker(si.SourcePath)
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "open source for audio segment", Err: err}
	}
	defer seeker.Close()

	samples := make([]*fmp4.Sample, 0, len(selected))
	for i, e := range selected {
		payload := make([]byte, e.Size)
		if err := seeker.SeekToByteOffset(e.Pos); err != nil {
			return nil, &hlserr.MuxingError{Msg: "seek audio sample", Err: err}
		}
		if err := seeker.ReadN(payload); err != nil {
			return nil, &hlserr.MuxingError{Msg: "read audio sample", Err: err}
		}

		var duration int64
		if i+1 < len(selected) {
			duration = selected[i+1].Timestamp - e.Timestamp
		} else {
			duration = endAudioPTS - e.Timestamp
		}
		if duration <= 0 {
			duration = 1
		}

		samples = append(samples, &fmp4.Sample{Payload: payload, Duration: uint32(duration)})
	}

	params := fmp4mux.AudioParams{Codec: codec.Audio(stream.Codec), SampleRate: stream.SampleRate, ChannelCount: stream.ChannelCount}
	if c, ok := codec.ParseAudio(stream.Codec); ok {
		params.Codec = c
	}

	m := fmp4mux.NewMuxer()
	trackID, err := m.AddAudioStream(params, stream.StreamIndex)
	if err != nil {
		return nil, err
	}

	baseTime := baseMediaDecodeTimeForAudio(si, seq, audioTB, startAudioPTS)

	media, err := m.WritePart(1, map[int][]*fmp4.Sample{trackID: samples}, map[int]uint64{trackID: uint64(baseTime)})
	if err != nil {
		return nil, err
	}

	patched, err := mp4box.PatchSingleTrackFragment(media, uint32(seq*1000+1), uint64(baseTime))
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "patch audio media fragment", Err: err}
	}
	return patched, nil
}

// baseMediaDecodeTimeForAudio implements spec §4.H.3 step 3's audio
// pairing rule: prefer the video segment's recorded first displayable
// PTS (converted into the audio timebase) so audio and video tfdt values
// agree under B-frame PTS offsets, falling back to the segment's own
// start PTS when no video render has populated it yet.
func baseMediaDecodeTimeForAudio(si *model.StreamIndex, seq int, audioTB timebase.Rational, fallback int64) int64 {
	if videoPTS90k, ok := si.SegmentFirstPTS(seq); ok {
		return timebase.Rescale(videoPTS90k, outputVideoTimebase, audioTB)
	}
	return fallback
}

// InterleavedSegment builds one moof+mdat containing both the video
// stream's and audio track audioIdx's samples for segment seq, with a
// per-track tfdt (spec §4.H.1 "Interleaved segment seq N"). Video drives
// the segment boundary; audio packets are admitted whenever they lie
// within video's window (spec §4.H.2).
func (s *Synthesizer) InterleavedSegment(ctx context.Context, si *model.StreamIndex, audioIdx, seq int) ([]byte, error) {
	if err := s.ensureVideoExtradata(si); err != nil {
		return nil, err
	}
	videoParams, err := videoParamsFrom(si.Video)
	if err != nil {
		return nil, err
	}
	if audioIdx < 0 || audioIdx >= len(si.Audio) {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentAudio, Sequence: audioIdx}
	}
	stream := si.Audio[audioIdx]
	if stream.TranscodeTo != "" {
		return nil, &hlserr.MuxingError{Msg: fmt.Sprintf("interleaved segment requires passthrough audio, stream %d needs transcode", audioIdx)}
	}

	videoSamples, videoStartOut, err := s.videoSamples(ctx, si, seq)
	if err != nil {
		return nil, err
	}

	seg := si.Segments[seq]
	audioTB := stream.Timebase
	startAudioPTS := timebase.Rescale(seg.StartPTS, si.VideoTimebase, audioTB)
	endAudioPTS := timebase.Rescale(seg.EndPTS, si.VideoTimebase, audioTB)

	entries, err := s.reader.ReadIndexEntries(ctx, si.SourcePath, stream.StreamIndex)
	if err != nil {
		return nil, err
	}
	var selected []demux.IndexEntry
	for _, e := range entries {
		if e.Timestamp < startAudioPTS || e.Timestamp >= endAudioPTS {
			continue
		}
		selected = append(selected, e)
	}

	seeker, err := demux.OpenSeeker(si.SourcePath)
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "open source for interleaved segment", Err: err}
	}
	defer seeker.Close()

	audioSamples := make([]*fmp4.Sample, 0, len(selected))
	for i, e := range selected {
		payload := make([]byte, e.Size)
		if err := seeker.SeekToByteOffset(e.Pos); err != nil {
			return nil, &hlserr.MuxingError{Msg: "seek audio sample", Err: err}
		}
		if err := seeker.ReadN(payload); err != nil {
			return nil, &hlserr.MuxingError{Msg: "read audio sample", Err: err}
		}
		var duration int64
		if i+1 < len(selected) {
			duration = selected[i+1].Timestamp - e.Timestamp
		} else {
			duration = endAudioPTS - e.Timestamp
		}
		if duration <= 0 {
			duration = 1
		}
		audioSamples = append(audioSamples, &fmp4.Sample{Payload: payload, Duration: uint32(duration)})
	}

	audioParams := fmp4mux.AudioParams{Codec: codec.Audio(stream.Codec), SampleRate: stream.SampleRate, ChannelCount: stream.ChannelCount}
	if c, ok := codec.ParseAudio(stream.Codec); ok {
		audioParams.Codec = c
	}

	m := fmp4mux.NewMuxer()
	videoTrackID, err := m.AddVideoStream(videoParams, si.Video.StreamIndex)
	if err != nil {
		return nil, err
	}
	audioTrackID, err := m.AddAudioStream(audioParams, stream.StreamIndex)
	if err != nil {
		return nil, err
	}

	samplesByTrack := map[int][]*fmp4.Sample{videoTrackID: videoSamples}
	baseTimes := map[int]uint64{videoTrackID: uint64(videoStartOut)}
	if len(audioSamples) > 0 {
		samplesByTrack[audioTrackID] = audioSamples
		baseTimes[audioTrackID] = uint64(startAudioPTS)
	}

	media, err := m.WritePart(1, samplesByTrack, baseTimes)
	if err != nil {
		return nil, err
	}

	patched, err := patchInterleavedFragment(media, seq, videoTrackID, uint64(videoStartOut), audioTrackID, uint64(startAudioPTS))
	if err != nil {
		return nil, err
	}

	si.SegmentFirstPTSSet(seq, videoStartOut)
	return patched, nil
}

// SubtitleSegment builds the WebVTT bytes for subtitle track subIdx
// covering segments [startSeq, endSeq] (spec §4.H.1 "Subtitle segment
// [s..e]"); a playlist may request a merged multi-segment range for an
// otherwise-empty stretch.
func (s *Synthesizer) SubtitleSegment(si *model.StreamIndex, subIdx, startSeq, endSeq int) ([]byte, error) {
	if subIdx < 0 || subIdx >= len(si.Subtitles) {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentSubtitle, Sequence: subIdx}
	}
	if startSeq < 0 || endSeq >= len(si.Segments) || startSeq > endSeq {
		return nil, &hlserr.SegmentNotFoundError{StreamID: si.StreamID, Kind: hlserr.SegmentSubtitle, Sequence: startSeq}
	}

	sub := si.Subtitles[subIdx]
	seeker, err := demux.OpenSeeker(si.SourcePath)
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "open source for subtitle segment", Err: err}
	}
	defer seeker.Close()

	subTB := timebase.Rational{Num: 1, Den: 1000}
	return webvtt.ExtractSegment(seeker, sub, si.Segments[startSeq], si.Segments[endSeq], si.VideoTimebase, subTB)
}
