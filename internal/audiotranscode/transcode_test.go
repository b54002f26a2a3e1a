package audiotranscode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlsvod/originserver/internal/mp4box"
	"github.com/hlsvod/originserver/internal/timebase"
)

func TestCeilToGridAlreadyAligned(t *testing.T) {
	require.Equal(t, int64(1024), ceilToGrid(1024, samplesPerFrame))
}

func TestCeilToGridRoundsUp(t *testing.T) {
	require.Equal(t, int64(1024), ceilToGrid(1000, samplesPerFrame))
	require.Equal(t, int64(2048), ceilToGrid(1025, samplesPerFrame))
}

func TestCeilToGridNegative(t *testing.T) {
	require.Equal(t, int64(0), ceilToGrid(-10, samplesPerFrame))
	require.Equal(t, int64(-1024), ceilToGrid(-1024, samplesPerFrame))
}

func TestSeekStartClampsToZero(t *testing.T) {
	req := Request{SegmentStartPTS: 0, VideoTimebase: timebase.Rational{Num: 1, Den: 90000}}
	require.Equal(t, 0.0, seekStart(req))
}

func TestSeekStartSubtractsPreroll(t *testing.T) {
	tb := timebase.Rational{Num: 1, Den: 90000}
	req := Request{SegmentStartPTS: 90000, VideoTimebase: tb} // 1 second in
	require.InDelta(t, 0.5, seekStart(req), 1e-9)
}

func TestPatchAudioMediaFragmentPrependsStypAndPatches(t *testing.T) {
	tfdtContent := make([]byte, 12)
	tfdtContent[0] = 1 // version 1, 64-bit
	tfdt := makeBox("tfdt", tfdtContent)
	traf := makeBox("traf", tfdt)

	mfhdContent := make([]byte, 8)
	mfhd := makeBox("mfhd", mfhdContent)
	moofContent := append(append([]byte{}, mfhd...), traf...)
	moof := makeBox("moof", moofContent)

	patched, err := patchAudioMediaFragment(moof, 3, 1<<33)
	require.NoError(t, err)

	require.Equal(t, "styp", string(patched[4:8]))

	afterStyp := patched[24:]
	mfhdBox, err := mp4box.Find(afterStyp, []string{"moof", "mfhd"})
	require.NoError(t, err)
	require.Equal(t, uint32(3001), beUint32(afterStyp[mfhdBox.PayloadStart+4:mfhdBox.PayloadStart+8]))

	tfdtBox, err := mp4box.Find(afterStyp, []string{"moof", "traf", "tfdt"})
	require.NoError(t, err)
	require.Equal(t, uint64(1<<33), beUint64(afterStyp[tfdtBox.PayloadStart+4:tfdtBox.PayloadStart+12]))
}

func makeBox(boxType string, content []byte) []byte {
	size := uint32(8 + len(content))
	box := make([]byte, size)
	putUint32(box[0:4], size)
	copy(box[4:8], boxType)
	copy(box[8:], content)
	return box
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
