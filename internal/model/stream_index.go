// Package model holds the shared data model the segment-synthesis pipeline
// passes between its stages: a StreamIndex built once per source file and
// read (never rebuilt) by every request against that file.
package model

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hlsvod/originserver/internal/demux"
	"github.com/hlsvod/originserver/internal/timebase"
)

// unsetPTS is the sentinel value for a segment_first_pts slot that has not
// yet been written by a real segment render.
const unsetPTS = int64(-1 << 62)

// VideoStreamInfo describes the single video stream a StreamIndex carries.
type VideoStreamInfo struct {
	StreamIndex int // ffprobe/container stream index
	Codec       string
	Width       int
	Height      int
	Timebase    timebase.Rational
	Profile     string
	Level       int
	Bitrate     int
	// FrameRateNum/FrameRateDen is the stream's nominal frame rate
	// (ffprobe r_frame_rate), used to derive trex.default_sample_duration
	// in a 90kHz init segment (spec §4.H.1/§4.H.4). FrameRateDen of 0 means
	// unknown; callers fall back to a 30fps assumption.
	FrameRateNum int64
	FrameRateDen int64
	// SPS/PPS/VPS/AV1SequenceHeader hold the codec configuration bytes
	// parsed from moov's sample entry (avcC/hvcC/av1C) lazily, the first
	// time a caller needs to build an init segment for this stream. Empty
	// until then.
	SPS               []byte
	PPS               []byte
	VPS               []byte
	AV1SequenceHeader []byte
}

// AudioStreamInfo describes one audio stream a StreamIndex carries.
type AudioStreamInfo struct {
	StreamIndex  int
	Codec        string
	SampleRate   int
	ChannelCount int
	Timebase     timebase.Rational
	Bitrate      int
	Language     string
	// EncoderDelay is max(0, -first_dts) in the stream's own timebase: the
	// number of priming samples to discard so playback timestamps start at
	// zero once decoded.
	EncoderDelay int64
	// TranscodeTo is non-empty when this stream must be transcoded to be
	// HLS-deliverable (anything other than AAC/AC-3/E-AC-3/MP3/Opus),
	// naming the target codec (always "aac" in this system).
	TranscodeTo string
}

// SubtitleStreamInfo describes one subtitle stream a StreamIndex carries.
type SubtitleStreamInfo struct {
	StreamIndex int
	Codec       string // "subrip", "ass", "mov_text", "webvtt", "text"
	Language    string
	// SampleIndex is the per-cue index built from the demuxer (pos,
	// timestamp, size, duration) for this subtitle stream.
	SampleIndex []SubtitleSample
	// NonEmptySequences marks, per segment sequence number, whether any
	// cue overlaps that segment's time window.
	NonEmptySequences []bool
}

// SubtitleSample is one subtitle packet's index entry plus its duration
// (ffprobe reports 0 for many text formats; the extractor substitutes the
// system default in that case).
type SubtitleSample struct {
	demux.IndexEntry
	DurationTicks int64
}

// SegmentInfo describes one media segment's boundaries in the video
// stream's timebase. Every segment starts on a keyframe by construction
// (§4.D.1).
type SegmentInfo struct {
	Sequence      int
	StartPTS      int64
	EndPTS        int64
	DurationSecs  float64
	IsKeyframe    bool
	VideoByteOffset int64
}

// StreamIndex is the complete, immutable-after-build description of one
// source file, shared by every concurrent request against it.
type StreamIndex struct {
	StreamID   string
	SourcePath string
	Duration   float64

	VideoTimebase timebase.Rational
	Video         *VideoStreamInfo
	Audio         []AudioStreamInfo
	Subtitles     []SubtitleStreamInfo

	Segments []SegmentInfo

	IndexedAt    time.Time
	lastAccessed atomic.Int64 // unix nanos

	// segmentFirstPTS holds, per segment sequence, the first displayable
	// PTS rendered for that sequence so far (video writes it first; audio
	// reads it back to align tfdt per §4.H.3/§9). unsetPTS until written.
	segmentFirstPTS []atomic.Int64

	cacheMu         sync.Mutex
	cacheEnabled    bool
	cachedContext   any // opaque decoder/demuxer handle reused across requests for this source
}

// NewStreamIndex allocates a StreamIndex with its per-segment atomic slots
// initialized to the unset sentinel.
func NewStreamIndex(streamID, sourcePath string, segmentCount int) *StreamIndex {
	si := &StreamIndex{
		StreamID:        streamID,
		SourcePath:      sourcePath,
		segmentFirstPTS: make([]atomic.Int64, segmentCount),
		cacheEnabled:    true,
	}
	for i := range si.segmentFirstPTS {
		si.segmentFirstPTS[i].Store(unsetPTS)
	}
	si.Touch()
	return si
}

// Touch records the current time as the last-accessed time, used by the
// session registry's TTL sweep.
func (si *StreamIndex) Touch() {
	si.lastAccessed.Store(time.Now().UnixNano())
}

// LastAccessed returns the last time this StreamIndex was looked up.
func (si *StreamIndex) LastAccessed() time.Time {
	return time.Unix(0, si.lastAccessed.Load())
}

// SegmentFirstPTSSet records the first displayable PTS rendered for
// segment seq. Each call overwrites any earlier value for that sequence
// (relaxed, last-writer-wins is fine since only video writes this for a
// given seq under normal operation). An out-of-range seq is ignored.
func (si *StreamIndex) SegmentFirstPTSSet(seq int, pts int64) {
	if seq < 0 || seq >= len(si.segmentFirstPTS) {
		return
	}
	si.segmentFirstPTS[seq].Store(pts)
}

// SegmentFirstPTS returns the first displayable PTS recorded for segment
// seq, and false if no video render has happened yet for that sequence.
func (si *StreamIndex) SegmentFirstPTS(seq int) (int64, bool) {
	if seq < 0 || seq >= len(si.segmentFirstPTS) {
		return 0, false
	}
	v := si.segmentFirstPTS[seq].Load()
	if v == unsetPTS {
		return 0, false
	}
	return v, true
}

// CachedContext returns a previously stashed decoder/demuxer handle for
// this source, if caching is enabled and one has been stored.
func (si *StreamIndex) CachedContext() (any, bool) {
	si.cacheMu.Lock()
	defer si.cacheMu.Unlock()
	if !si.cacheEnabled || si.cachedContext == nil {
		return nil, false
	}
	return si.cachedContext, true
}

// SetCachedContext stashes a decoder/demuxer handle for reuse by later
// requests against this source.
func (si *StreamIndex) SetCachedContext(ctx any) {
	si.cacheMu.Lock()
	defer si.cacheMu.Unlock()
	si.cachedContext = ctx
}
