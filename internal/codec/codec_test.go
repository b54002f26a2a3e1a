package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVideoAliases(t *testing.T) {
	v, ok := ParseVideo("HEVC")
	require.True(t, ok)
	require.Equal(t, VideoH265, v)

	_, ok = ParseVideo("")
	require.False(t, ok)
}

func TestParseAudioAliases(t *testing.T) {
	a, ok := ParseAudio("ec-3")
	require.True(t, ok)
	require.Equal(t, AudioEAC3, a)
}

func TestNormalizeHLSCodec(t *testing.T) {
	require.Equal(t, string(VideoH264), NormalizeHLSCodec("avc1.64001f"))
	require.Equal(t, string(AudioAAC), NormalizeHLSCodec("mp4a.40.2"))
	require.Equal(t, string(AudioEAC3), NormalizeHLSCodec("ec-3"))
}

func TestIsHLSPassthroughAudio(t *testing.T) {
	require.True(t, IsHLSPassthroughAudio(AudioAAC))
	require.True(t, IsHLSPassthroughAudio(AudioOpus))
	require.False(t, IsHLSPassthroughAudio(Audio("flac")))
}
