package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentFirstPTSUnsetUntilWritten(t *testing.T) {
	si := NewStreamIndex("stream-1", "/tmp/source.mp4", 3)

	_, ok := si.SegmentFirstPTS(1)
	require.False(t, ok)

	si.SegmentFirstPTSSet(1, 45000)
	pts, ok := si.SegmentFirstPTS(1)
	require.True(t, ok)
	require.Equal(t, int64(45000), pts)
}

func TestSegmentFirstPTSOutOfRangeIsNoop(t *testing.T) {
	si := NewStreamIndex("stream-1", "/tmp/source.mp4", 2)
	si.SegmentFirstPTSSet(99, 1)
	_, ok := si.SegmentFirstPTS(99)
	require.False(t, ok)
}

func TestTouchUpdatesLastAccessed(t *testing.T) {
	si := NewStreamIndex("stream-1", "/tmp/source.mp4", 1)
	first := si.LastAccessed()
	si.Touch()
	require.False(t, si.LastAccessed().Before(first))
}

func TestCachedContextRoundTrip(t *testing.T) {
	si := NewStreamIndex("stream-1", "/tmp/source.mp4", 1)
	_, ok := si.CachedContext()
	require.False(t, ok)

	si.SetCachedContext("handle")
	v, ok := si.CachedContext()
	require.True(t, ok)
	require.Equal(t, "handle", v)
}
