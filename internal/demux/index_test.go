package demux

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexEntryIsKeyframe(t *testing.T) {
	e := IndexEntry{Flags: KeyframeFlag}
	require.True(t, e.IsKeyframe())

	e2 := IndexEntry{Flags: 0}
	require.False(t, e2.IsKeyframe())
}

func TestBytesContainsKeyframe(t *testing.T) {
	require.True(t, bytesContainsKeyframe("K_"))
	require.False(t, bytesContainsKeyframe("__"))
}

func TestSeekerSeekAndRead(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "demux-seek-*.bin")
	require.NoError(t, err)
	_, err = f.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s, err := OpenSeeker(f.Name())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SeekToByteOffset(10))
	buf := make([]byte, 4)
	require.NoError(t, s.ReadN(buf))
	require.Equal(t, "abcd", string(buf))
}
