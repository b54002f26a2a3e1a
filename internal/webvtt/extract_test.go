package webvtt

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlsvod/originserver/internal/demux"
	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/timebase"
)

func TestWriteHeaderIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteHeader())
	require.Equal(t, "WEBVTT\n\n", buf.String())
}

func TestWriteCueFormatsTimestamps(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteCue(Cue{StartMS: 61500, EndMS: 3725001, Text: "hello"}))
	require.Equal(t, "WEBVTT\n\n00:01:01.500 --> 01:02:05.001\nhello\n\n", buf.String())
}

func TestSerializeEmptyCuesStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, nil))
	require.Equal(t, "WEBVTT\n\n", buf.String())
}

func TestDecodeCuePayloadSubrip(t *testing.T) {
	text, ok := decodeCuePayload("subrip", []byte("Hello there\r\n"))
	require.True(t, ok)
	require.Equal(t, "Hello there", text)
}

func TestDecodeCuePayloadSubripEmptyDropped(t *testing.T) {
	_, ok := decodeCuePayload("subrip", []byte("  \n"))
	require.False(t, ok)
}

func TestDecodeASSStripsFieldsAndOverrides(t *testing.T) {
	line := "Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,{\\i1}Hello{\\i0} world"
	text, ok := decodeASS([]byte(line))
	require.True(t, ok)
	require.Equal(t, "Hello world", text)
}

func TestDecodeASSNewlineEscape(t *testing.T) {
	line := "Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Line one\\NLine two"
	text, ok := decodeASS([]byte(line))
	require.True(t, ok)
	require.Equal(t, "Line one\nLine two", text)
}

func TestDecodeMovTextParsesLengthPrefixedPayload(t *testing.T) {
	body := "Subtitle text"
	payload := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(payload[0:2], uint16(len(body)))
	copy(payload[2:], body)

	text, ok := decodeMovText(payload)
	require.True(t, ok)
	require.Equal(t, body, text)
}

func TestDecodeMovTextEmptyIsClearScreen(t *testing.T) {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload[0:2], 0)
	_, ok := decodeMovText(payload)
	require.False(t, ok)
}

func TestDecodeMovTextTooShortIsDropped(t *testing.T) {
	_, ok := decodeMovText([]byte{0x00})
	require.False(t, ok)
}

func TestExtractSegmentRejectsBitmapCodec(t *testing.T) {
	sub := model.SubtitleStreamInfo{Codec: "hdmv_pgs_subtitle"}
	videoTB := timebase.Rational{Num: 1, Den: 90000}
	_, err := ExtractSegment(nil, sub, model.SegmentInfo{}, model.SegmentInfo{}, videoTB, videoTB)
	require.Error(t, err)
}

func TestExtractSegmentBuildsCuesWithinWindow(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "webvtt-*.bin")
	require.NoError(t, err)

	videoTB := timebase.Rational{Num: 1, Den: 90000}
	subTB := timebase.Rational{Num: 1, Den: 1000} // milliseconds

	cueText := "in window"
	offset, err := f.WriteString(cueText)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sub := model.SubtitleStreamInfo{
		Codec: "subrip",
		SampleIndex: []model.SubtitleSample{
			{
				IndexEntry:    demux.IndexEntry{Pos: 0, Timestamp: 500, Size: int64(offset)},
				DurationTicks: 2000, // 2s, in subTB units (ms)
			},
		},
	}

	seg := model.SegmentInfo{StartPTS: 0, EndPTS: timebase.SecondsToPTS(6, videoTB)}

	seeker, err := demux.OpenSeeker(f.Name())
	require.NoError(t, err)
	defer seeker.Close()

	out, err := ExtractSegment(seeker, sub, seg, seg, videoTB, subTB)
	require.NoError(t, err)
	require.Contains(t, string(out), "WEBVTT")
	require.Contains(t, string(out), cueText)
	require.Contains(t, string(out), "00:00:00.500 --> 00:00:02.500")
}

func TestExtractSegmentOutsideWindowProducesNoCues(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "webvtt-*.bin")
	require.NoError(t, err)
	offset, err := f.WriteString("late cue")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	videoTB := timebase.Rational{Num: 1, Den: 90000}
	subTB := timebase.Rational{Num: 1, Den: 1000}

	sub := model.SubtitleStreamInfo{
		Codec: "subrip",
		SampleIndex: []model.SubtitleSample{
			{
				IndexEntry:    demux.IndexEntry{Pos: 0, Timestamp: 60000, Size: int64(offset)},
				DurationTicks: 2000,
			},
		},
	}

	seg := model.SegmentInfo{StartPTS: 0, EndPTS: timebase.SecondsToPTS(6, videoTB)}

	seeker, err := demux.OpenSeeker(f.Name())
	require.NoError(t, err)
	defer seeker.Close()

	out, err := ExtractSegment(seeker, sub, seg, seg, videoTB, subTB)
	require.NoError(t, err)
	require.Equal(t, "WEBVTT\n\n", string(out))
}
