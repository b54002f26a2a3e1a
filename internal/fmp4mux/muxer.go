package fmp4mux

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"

	"github.com/hlsvod/originserver/internal/hlserr"
	"github.com/hlsvod/originserver/internal/timebase"
)

// videoTrackTimeScale is the fixed 90kHz presentation clock every video
// track uses, matching the stream-index builder's video_timebase.
const videoTrackTimeScale = 90000

// track records the output assignment for one input stream added to a Muxer.
type track struct {
	inputIndex int
	outputID   int
	timebase   timebase.Rational
	initTrack  *fmp4.InitTrack
}

// Muxer builds fMP4 init and media-fragment bytes for one or more tracks,
// wrapping fmp4.Init/fmp4.Part (spec §4.E). It is not safe for concurrent
// use by multiple goroutines; callers serialize per-segment synthesis.
type Muxer struct {
	tracks  []*track
	byInput map[int]*track
	nextID  int
}

// NewMuxer creates an empty Muxer. Tracks are added with AddVideoStream /
// AddAudioStream before WriteHeader or WritePart are called.
func NewMuxer() *Muxer {
	return &Muxer{byInput: make(map[int]*track)}
}

// AddVideoStream registers a video track built from p for source stream
// inputIndex and returns its output track id (1-based, assignment order).
func (m *Muxer) AddVideoStream(p VideoParams, inputIndex int) (int, error) {
	c, err := buildVideoCodec(p)
	if err != nil {
		return 0, &hlserr.MuxingError{Msg: "add video stream", Err: err}
	}
	m.nextID++
	t := &track{
		inputIndex: inputIndex,
		outputID:   m.nextID,
		timebase:   timebase.Rational{Num: 1, Den: videoTrackTimeScale},
		initTrack: &fmp4.InitTrack{
			ID:        m.nextID,
			TimeScale: videoTrackTimeScale,
			Codec:     c,
		},
	}
	m.tracks = append(m.tracks, t)
	m.byInput[inputIndex] = t
	return t.outputID, nil
}

// AddAudioStream registers an audio track built from p for source stream
// inputIndex and returns its output track id.
func (m *Muxer) AddAudioStream(p AudioParams, inputIndex int) (int, error) {
	c, err := buildAudioCodec(p)
	if err != nil {
		return 0, &hlserr.MuxingError{Msg: "add audio stream", Err: err}
	}
	ts := audioTimescale(p)
	m.nextID++
	t := &track{
		inputIndex: inputIndex,
		outputID:   m.nextID,
		timebase:   timebase.Rational{Num: 1, Den: int64(ts)},
		initTrack: &fmp4.InitTrack{
			ID:        m.nextID,
			TimeScale: ts,
			Codec:     c,
		},
	}
	m.tracks = append(m.tracks, t)
	m.byInput[inputIndex] = t
	return t.outputID, nil
}

// GetOutputTrackID returns the output track id assigned to inputIndex.
func (m *Muxer) GetOutputTrackID(inputIndex int) (int, bool) {
	t, ok := m.byInput[inputIndex]
	if !ok {
		return 0, false
	}
	return t.outputID, true
}

// GetOutputTimebase returns the output timebase assigned to inputIndex.
func (m *Muxer) GetOutputTimebase(inputIndex int) (timebase.Rational, bool) {
	t, ok := m.byInput[inputIndex]
	if !ok {
		return timebase.Rational{}, false
	}
	return t.timebase, true
}

// WriteHeader marshals the ftyp+moov init segment for every track added so
// far and returns its bytes.
func (m *Muxer) WriteHeader() ([]byte, error) {
	if len(m.tracks) == 0 {
		return nil, &hlserr.MuxingError{Msg: "write header: no tracks added"}
	}

	init := &fmp4.Init{Tracks: make([]*fmp4.InitTrack, 0, len(m.tracks))}
	for _, t := range m.tracks {
		init.Tracks = append(init.Tracks, t.initTrack)
	}

	var buf bytes.Buffer
	w := &seekableBuffer{Buffer: &buf}
	if err := init.Marshal(w); err != nil {
		return nil, &hlserr.MuxingError{Msg: "marshal init segment", Err: err}
	}
	return buf.Bytes(), nil
}

// GenerateInitSegmentWithPacket builds the init segment for a single audio
// track whose codec parameters are only fully known once AudioParams has
// been populated from the first decoded/probed packet (notably AC-3's
// sample rate/channel count). The packet itself carries no information
// this Go stack doesn't already get from AudioParams — unlike an
// ffmpeg-muxer pipeline that must observe raw bitstream bytes to infer
// AC-3 parameters, the stream index already captured sample_rate/channels
// via ffprobe — so it exists for call-site symmetry with §4.E's audio
// pipeline rather than to parse anything here.
func (m *Muxer) GenerateInitSegmentWithPacket(p AudioParams, inputIndex int, _ []byte) ([]byte, error) {
	if _, err := m.AddAudioStream(p, inputIndex); err != nil {
		return nil, err
	}
	return m.WriteHeader()
}

// WritePart marshals one media fragment containing the given samples for
// each output track, in sequenceNumber order, with baseTimes giving each
// track's starting tfdt value (in that track's own timebase).
func (m *Muxer) WritePart(sequenceNumber uint32, samplesByOutputID map[int][]*fmp4.Sample, baseTimes map[int]uint64) ([]byte, error) {
	part := &fmp4.Part{
		SequenceNumber: sequenceNumber,
		Tracks:         make([]*fmp4.PartTrack, 0, len(samplesByOutputID)),
	}

	for _, t := range m.tracks {
		samples, ok := samplesByOutputID[t.outputID]
		if !ok || len(samples) == 0 {
			continue
		}
		part.Tracks = append(part.Tracks, &fmp4.PartTrack{
			ID:       t.outputID,
			BaseTime: baseTimes[t.outputID],
			Samples:  samples,
		})
	}

	if len(part.Tracks) == 0 {
		return nil, &hlserr.MuxingError{Msg: "write part: no samples for any track"}
	}

	var buf bytes.Buffer
	w := &seekableBuffer{Buffer: &buf}
	if err := part.Marshal(w); err != nil {
		return nil, &hlserr.MuxingError{Msg: "marshal media fragment", Err: err}
	}
	return buf.Bytes(), nil
}

// MuxAACPacketsToFMP4 muxes an already-encoded, contiguous list of AAC
// samples into a complete init+media fMP4 pair. All samples go into a
// single fragment (sequence number 1, base decode time 0) — used by the
// audio transcode pipeline, which has no video keyframes to key
// fragmentation off of.
func MuxAACPacketsToFMP4(p AudioParams, samples []*fmp4.Sample) (init, media []byte, err error) {
	m := NewMuxer()
	if _, err := m.AddAudioStream(p, 0); err != nil {
		return nil, nil, err
	}

	init, err = m.WriteHeader()
	if err != nil {
		return nil, nil, err
	}

	outputID, _ := m.GetOutputTrackID(0)
	media, err = m.WritePart(1, map[int][]*fmp4.Sample{outputID: samples}, map[int]uint64{outputID: 0})
	if err != nil {
		return nil, nil, err
	}
	return init, media, nil
}

// seekableBuffer adapts a bytes.Buffer to io.WriteSeeker — mediacommon's
// Marshal writes sequentially but its internal box-size backpatching
// needs Seek.
type seekableBuffer struct {
	*bytes.Buffer
	pos int64
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	if int(s.pos) > s.Buffer.Len() {
		s.Buffer.Write(make([]byte, int(s.pos)-s.Buffer.Len()))
	}

	var n int
	var err error
	if int(s.pos) == s.Buffer.Len() {
		n, err = s.Buffer.Write(p)
	} else {
		b := s.Buffer.Bytes()
		n = copy(b[s.pos:], p)
		if n < len(p) {
			var m int
			m, err = s.Buffer.Write(p[n:])
			n += m
		}
	}
	s.pos += int64(n)
	return n, err
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = int64(s.Buffer.Len()) + offset
	default:
		return 0, fmt.Errorf("fmp4mux: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("fmp4mux: negative seek position")
	}
	s.pos = newPos
	return newPos, nil
}
