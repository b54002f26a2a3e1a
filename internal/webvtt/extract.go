package webvtt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hlsvod/originserver/internal/demux"
	"github.com/hlsvod/originserver/internal/hlserr"
	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/timebase"
)

// bitmapCodecs are the image-based subtitle codecs this system never
// renders to WebVTT (no text payload to extract). Streams with these
// codecs are already filtered out at stream-index build time, but
// ExtractSegment re-checks so it fails loudly if ever called directly on
// one.
var bitmapCodecs = map[string]bool{
	"hdmv_pgs_subtitle": true,
	"dvd_subtitle":      true,
	"dvb_subtitle":      true,
	"xsub":              true,
}

// backSearchSeconds is how far before a segment's nominal start this
// extractor widens its sample-index search, so a cue that began just
// before the segment boundary but still overlaps it is not missed.
const backSearchSeconds = 10.0

// ExtractSegment builds the WebVTT bytes for one subtitle segment: the
// cues from sub whose time window overlaps [segStart.StartPTS,
// segEnd.EndPTS) on the video timeline (spec §4.G). segStart and segEnd
// are usually the same SegmentInfo; HLS subtitle variants may merge
// several consecutive empty segments into one (playlist concern, not
// this function's).
func ExtractSegment(seeker *demux.Seeker, sub model.SubtitleStreamInfo, segStart, segEnd model.SegmentInfo, videoTB timebase.Rational, subTB timebase.Rational) ([]byte, error) {
	if bitmapCodecs[sub.Codec] {
		return nil, &hlserr.MuxingError{Msg: fmt.Sprintf("subtitle codec %q has no text payload", sub.Codec)}
	}

	windowStart := timebase.Rescale(segStart.StartPTS, videoTB, subTB)
	windowEnd := timebase.Rescale(segEnd.EndPTS, videoTB, subTB)
	searchStart := windowStart - timebase.SecondsToPTS(backSearchSeconds, subTB)

	samples := sub.SampleIndex
	first := sort.Search(len(samples), func(i int) bool {
		return samples[i].Timestamp >= searchStart
	})

	var cues []Cue
	for i := first; i < len(samples); i++ {
		s := samples[i]
		if s.Timestamp >= windowEnd {
			break
		}
		duration := s.DurationTicks
		if duration <= 0 {
			duration = timebase.SecondsToPTS(float64(DefaultCueDurationMS)/1000, subTB)
		}
		if s.Timestamp+duration <= windowStart {
			continue
		}

		payload := make([]byte, s.Size)
		if err := seeker.SeekToByteOffset(s.Pos); err != nil {
			return nil, &hlserr.MuxingError{Msg: "seeking subtitle sample", Err: err}
		}
		if err := seeker.ReadN(payload); err != nil {
			return nil, &hlserr.MuxingError{Msg: "reading subtitle sample", Err: err}
		}

		text, ok := decodeCuePayload(sub.Codec, payload)
		if !ok {
			continue
		}

		startVideoPTS := timebase.Rescale(s.Timestamp, subTB, videoTB)
		endVideoPTS := timebase.Rescale(s.Timestamp+duration, subTB, videoTB)

		startMS := timebase.PTSToMillis(startVideoPTS-segStart.StartPTS, videoTB)
		endMS := timebase.PTSToMillis(endVideoPTS-segStart.StartPTS, videoTB)

		segDurationMS := timebase.PTSToMillis(segEnd.EndPTS-segStart.StartPTS, videoTB)
		if startMS < 0 {
			startMS = 0
		}
		if endMS > segDurationMS {
			endMS = segDurationMS
		}
		if startMS >= endMS {
			continue
		}

		cues = append(cues, Cue{StartMS: startMS, EndMS: endMS, Text: text})
	}

	var buf bytes.Buffer
	if err := Serialize(&buf, cues); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeCuePayload extracts cue text from one subtitle packet's raw bytes,
// dispatching on the source container's codec name (spec §4.G.1). ok is
// false for a packet that decodes to no visible text (an empty MOV_TEXT
// clear-screen sample, for instance) and should be dropped rather than
// emitted as a blank cue.
func decodeCuePayload(codecName string, payload []byte) (text string, ok bool) {
	switch codecName {
	case "subrip", "text", "webvtt":
		t := strings.TrimRight(string(payload), "\r\n")
		t = strings.TrimSpace(t)
		if t == "" {
			return "", false
		}
		return t, true
	case "ass", "ssa":
		return decodeASS(payload)
	case "mov_text":
		return decodeMovText(payload)
	default:
		t := strings.TrimSpace(string(payload))
		if t == "" {
			return "", false
		}
		return t, true
	}
}

// assOverrideBlock matches a "{...}" ASS/SSA override tag block, which
// carries styling directives with no place in plain WebVTT text.
var assOverrideBlock = regexp.MustCompile(`\{[^}]*\}`)

// decodeASS strips an SSA "Dialogue:" line down to its Text field,
// discarding the nine leading comma-separated fields (Layer through
// Effect) and any "{...}" override blocks in what remains. A raw ASS
// event payload with no field separators is treated as already-bare text.
func decodeASS(payload []byte) (string, bool) {
	line := strings.TrimSpace(string(payload))
	line = strings.TrimPrefix(line, "Dialogue:")
	line = strings.TrimSpace(line)

	fields := strings.SplitN(line, ",", 10)
	text := line
	if len(fields) == 10 {
		text = fields[9]
	}

	text = assOverrideBlock.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\\N", "\n")
	text = strings.ReplaceAll(text, "\\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	return text, true
}

// decodeMovText parses an ISO/IEC 14496-17 "tx3g" sample: a big-endian
// uint16 text length followed by that many bytes of UTF-8, then optional
// trailing style/box atoms this extractor ignores. A zero-length payload
// is a clear-screen sample and carries no cue.
func decodeMovText(payload []byte) (string, bool) {
	if len(payload) < 2 {
		return "", false
	}
	textLen := int(binary.BigEndian.Uint16(payload[0:2]))
	if textLen <= 0 || 2+textLen > len(payload) {
		return "", false
	}
	text := strings.TrimSpace(string(payload[2 : 2+textLen]))
	if text == "" {
		return "", false
	}
	return text, true
}
