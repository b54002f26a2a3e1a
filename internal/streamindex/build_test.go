package streamindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlsvod/originserver/internal/demux"
	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/timebase"
)

func TestBuildSegmentBoundariesClampsNegativeStart(t *testing.T) {
	tb := timebase.Rational{Num: 1, Den: 90000}
	entries := []demux.IndexEntry{
		{Pos: 0, Timestamp: -1800, Flags: demux.KeyframeFlag},
		{Pos: 1000, Timestamp: 540000, Flags: demux.KeyframeFlag},
	}
	segs := buildSegmentBoundaries(entries, tb, 6, 600000)
	require.Equal(t, int64(0), segs[0].StartPTS)
}

func TestBuildSegmentBoundariesClosesOnThreshold(t *testing.T) {
	tb := timebase.Rational{Num: 1, Den: 90000}
	// target 6s -> threshold 4.8s -> 432000 ticks at 90kHz
	entries := []demux.IndexEntry{
		{Pos: 0, Timestamp: 0, Flags: demux.KeyframeFlag},
		{Pos: 100, Timestamp: 200000, Flags: demux.KeyframeFlag},   // too soon, same segment
		{Pos: 200, Timestamp: 450000, Flags: demux.KeyframeFlag},   // past threshold, closes segment 0
		{Pos: 300, Timestamp: 900000, Flags: demux.KeyframeFlag},
	}
	segs := buildSegmentBoundaries(entries, tb, 6, 1000000)
	require.Len(t, segs, 3)
	require.Equal(t, int64(0), segs[0].StartPTS)
	require.Equal(t, int64(450000), segs[0].EndPTS)
	require.Equal(t, int64(450000), segs[1].StartPTS)
	require.Equal(t, int64(900000), segs[1].EndPTS)
	require.Equal(t, int64(900000), segs[2].StartPTS)
	require.Equal(t, int64(1000000), segs[2].EndPTS)
}

func TestBuildSegmentBoundariesFinalSegmentMinDuration(t *testing.T) {
	tb := timebase.Rational{Num: 1, Den: 90000}
	entries := []demux.IndexEntry{
		{Pos: 0, Timestamp: 0, Flags: demux.KeyframeFlag},
	}
	segs := buildSegmentBoundaries(entries, tb, 6, 0)
	require.Len(t, segs, 1)
	require.GreaterOrEqual(t, segs[0].DurationSecs, 0.1)
}

func TestBuildNonEmptySequencesAssignsAndClamps(t *testing.T) {
	videoTB := timebase.Rational{Num: 1, Den: 90000}
	subTB := timebase.Rational{Num: 1, Den: 1000}
	segments := []model.SegmentInfo{
		{Sequence: 0, StartPTS: 0, EndPTS: 540000},
		{Sequence: 1, StartPTS: 540000, EndPTS: 1080000},
	}
	samples := []model.SubtitleSample{
		{IndexEntry: demux.IndexEntry{Timestamp: 1000}},   // 90000 in video tb -> seg 0
		{IndexEntry: demux.IndexEntry{Timestamp: 8000}},   // 720000 in video tb -> seg 1
		{IndexEntry: demux.IndexEntry{Timestamp: -5000}},  // before first -> seg 0
	}
	marks := buildNonEmptySequences(samples, subTB, videoTB, segments)
	require.Equal(t, []bool{true, true}, marks)
}

func TestFindSegmentForPTSClampsPastEnd(t *testing.T) {
	segments := []model.SegmentInfo{
		{Sequence: 0, StartPTS: 0, EndPTS: 100},
		{Sequence: 1, StartPTS: 100, EndPTS: 200},
	}
	require.Equal(t, 1, findSegmentForPTS(500, segments))
	require.Equal(t, 0, findSegmentForPTS(-10, segments))
	require.Equal(t, 0, findSegmentForPTS(50, segments))
}

func TestParseRationalFallback(t *testing.T) {
	fallback := timebase.Rational{Num: 1, Den: 90000}
	require.Equal(t, timebase.Rational{Num: 1, Den: 24000}, parseRational("1/24000", fallback))
	require.Equal(t, fallback, parseRational("garbage", fallback))
}

func TestParseIntAndFloatFallback(t *testing.T) {
	require.Equal(t, 5, parseIntOr("5", 0))
	require.Equal(t, 0, parseIntOr("nope", 0))
	require.Equal(t, 1.5, parseFloatOr("1.5", 0))
}
