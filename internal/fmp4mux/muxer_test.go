package fmp4mux

import (
	"bytes"
	"io"
	"testing"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/stretchr/testify/require"

	"github.com/hlsvod/originserver/internal/codec"
)

func sampleH264Params() VideoParams {
	return VideoParams{
		Codec: codec.VideoH264,
		SPS:   []byte{0x67, 0x42, 0x00, 0x1f},
		PPS:   []byte{0x68, 0xce, 0x3c, 0x80},
	}
}

func sampleAACParams() AudioParams {
	return AudioParams{Codec: codec.AudioAAC, SampleRate: 48000, ChannelCount: 2}
}

func TestAddVideoStreamAssignsSequentialTrackIDs(t *testing.T) {
	m := NewMuxer()

	videoID, err := m.AddVideoStream(sampleH264Params(), 0)
	require.NoError(t, err)
	require.Equal(t, 1, videoID)

	audioID, err := m.AddAudioStream(sampleAACParams(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, audioID)

	gotVideo, ok := m.GetOutputTrackID(0)
	require.True(t, ok)
	require.Equal(t, videoID, gotVideo)

	gotAudio, ok := m.GetOutputTrackID(1)
	require.True(t, ok)
	require.Equal(t, audioID, gotAudio)

	_, ok = m.GetOutputTrackID(99)
	require.False(t, ok)
}

func TestAudioOutputTimebaseIsSampleRate(t *testing.T) {
	m := NewMuxer()
	_, err := m.AddAudioStream(AudioParams{Codec: codec.AudioAAC, SampleRate: 44100, ChannelCount: 2}, 0)
	require.NoError(t, err)

	tb, ok := m.GetOutputTimebase(0)
	require.True(t, ok)
	require.Equal(t, int64(1), tb.Num)
	require.Equal(t, int64(44100), tb.Den)
}

func TestVideoOutputTimebaseIs90kHz(t *testing.T) {
	m := NewMuxer()
	_, err := m.AddVideoStream(sampleH264Params(), 0)
	require.NoError(t, err)

	tb, ok := m.GetOutputTimebase(0)
	require.True(t, ok)
	require.Equal(t, int64(90000), tb.Den)
}

func TestWriteHeaderMissingParamsFails(t *testing.T) {
	m := NewMuxer()
	_, err := m.AddVideoStream(VideoParams{Codec: codec.VideoH264}, 0)
	require.Error(t, err)
}

func TestWriteHeaderProducesNonEmptyInit(t *testing.T) {
	m := NewMuxer()
	_, err := m.AddVideoStream(sampleH264Params(), 0)
	require.NoError(t, err)

	initBytes, err := m.WriteHeader()
	require.NoError(t, err)
	require.NotEmpty(t, initBytes)
	// ftyp box type appears within the first 12 bytes of a valid init segment.
	require.Contains(t, string(initBytes[:16]), "ftyp")
}

func TestWritePartNoSamplesFails(t *testing.T) {
	m := NewMuxer()
	_, err := m.AddVideoStream(sampleH264Params(), 0)
	require.NoError(t, err)
	_, err = m.WriteHeader()
	require.NoError(t, err)

	_, err = m.WritePart(1, map[int][]*fmp4.Sample{}, map[int]uint64{})
	require.Error(t, err)
}

func TestMuxAACPacketsToFMP4(t *testing.T) {
	samples := []*fmp4.Sample{
		{Duration: 1024, Payload: []byte{0x01, 0x02}},
		{Duration: 1024, Payload: []byte{0x03, 0x04}},
	}
	init, media, err := MuxAACPacketsToFMP4(sampleAACParams(), samples)
	require.NoError(t, err)
	require.NotEmpty(t, init)
	require.NotEmpty(t, media)
}

func TestSeekableBufferOverwriteInPlace(t *testing.T) {
	s := &seekableBuffer{Buffer: &bytes.Buffer{}}
	_, err := s.Write([]byte("hello"))
	require.NoError(t, err)

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = s.Write([]byte("H"))
	require.NoError(t, err)

	require.Equal(t, "Hello", s.Buffer.String())
}
