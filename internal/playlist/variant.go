package playlist

import (
	"io"
	"math"

	"github.com/hlsvod/originserver/internal/model"
	"github.com/hlsvod/originserver/internal/urlkind"
)

// minTargetDurationSecs is the floor spec §4.I clamps EXT-X-TARGETDURATION
// to, regardless of how short the source's actual segments are.
const minTargetDurationSecs = 6

// maxSubtitleSpanSecs caps a merged run of empty subtitle segments (spec
// §4.I "Subtitle variant").
const maxSubtitleSpanSecs = 30.0

func targetDuration(segments []model.SegmentInfo) int {
	max := 0.0
	for _, s := range segments {
		if s.DurationSecs > max {
			max = s.DurationSecs
		}
	}
	td := int(math.Ceil(max))
	if td < minTargetDurationSecs {
		td = minTargetDurationSecs
	}
	return td
}

func writeVariantHeader(ew *errWriter, segments []model.SegmentInfo, initURI string) {
	ew.println("#EXTM3U")
	ew.println("#EXT-X-VERSION:7")
	ew.printf("#EXT-X-TARGETDURATION:%d\n", targetDuration(segments))
	ew.println("#EXT-X-MEDIA-SEQUENCE:0")
	ew.println("#EXT-X-PLAYLIST-TYPE:VOD")
	ew.println("#EXT-X-INDEPENDENT-SEGMENTS")
	ew.printf("#EXT-X-MAP:URI=%q\n", initURI)
}

// VideoPlaylist writes the variant playlist for the primary video stream
// alone (no audio track interleaved) — spec §4.I "Variant playlists".
func VideoPlaylist(w io.Writer, si *model.StreamIndex) error {
	ew := &errWriter{w: w}
	initURI := urlkind.VideoInit(si.Video.StreamIndex, nil, "")
	writeVariantHeader(ew, si.Segments, initURI)

	for _, seg := range si.Segments {
		ew.printf("#EXTINF:%.6f,\n", seg.DurationSecs)
		ew.println(urlkind.VideoSegment(si.Video.StreamIndex, nil, "", seg.Sequence))
	}
	ew.println("#EXT-X-ENDLIST")
	return ew.err
}

// InterleavedPlaylist writes the variant playlist for the video stream
// muxed together with one audio track's segments (spec §4.I, the
// "t.<trk>+<audio-trk>[-<xc>]" URL form).
func InterleavedPlaylist(w io.Writer, si *model.StreamIndex, audioIdx int, transcodeTo string) error {
	ew := &errWriter{w: w}
	audioTrack := si.Audio[audioIdx].StreamIndex
	initURI := urlkind.VideoInit(si.Video.StreamIndex, &audioTrack, transcodeTo)
	writeVariantHeader(ew, si.Segments, initURI)

	for _, seg := range si.Segments {
		ew.printf("#EXTINF:%.6f,\n", seg.DurationSecs)
		ew.println(urlkind.VideoSegment(si.Video.StreamIndex, &audioTrack, transcodeTo, seg.Sequence))
	}
	ew.println("#EXT-X-ENDLIST")
	return ew.err
}

// AudioPlaylist writes the variant playlist for one audio track served on
// its own timeline (spec §4.I, the "t.<audio-trk>" URL form when <trk>
// names an audio stream rather than the video stream).
func AudioPlaylist(w io.Writer, si *model.StreamIndex, audioIdx int, transcodeTo string) error {
	ew := &errWriter{w: w}
	audioTrack := si.Audio[audioIdx].StreamIndex
	initURI := urlkind.AudioInit(audioTrack, transcodeTo)
	writeVariantHeader(ew, si.Segments, initURI)

	for _, seg := range si.Segments {
		ew.printf("#EXTINF:%.6f,\n", seg.DurationSecs)
		ew.println(urlkind.AudioSegment(audioTrack, transcodeTo, seg.Sequence))
	}
	ew.println("#EXT-X-ENDLIST")
	return ew.err
}

// subtitleSpan is one merged run of subtitle segments, empty or not, that
// the variant playlist emits as a single VTT span.
type subtitleSpan struct {
	startSeq, endSeq int
	durationSecs     float64
}

// mergeSubtitleSpans implements spec §4.I's "Subtitle variant" merge
// rule: consecutive empty segments (not in nonEmpty) collapse into one
// span capped at maxSubtitleSpanSecs; a non-empty segment always flushes
// the accumulator and stands alone.
func mergeSubtitleSpans(segments []model.SegmentInfo, nonEmpty []bool) []subtitleSpan {
	var spans []subtitleSpan
	var acc *subtitleSpan

	flush := func() {
		if acc != nil {
			spans = append(spans, *acc)
			acc = nil
		}
	}

	isNonEmpty := func(seq int) bool {
		return seq < len(nonEmpty) && nonEmpty[seq]
	}

	for _, seg := range segments {
		if isNonEmpty(seg.Sequence) {
			flush()
			spans = append(spans, subtitleSpan{startSeq: seg.Sequence, endSeq: seg.Sequence, durationSecs: seg.DurationSecs})
			continue
		}

		if acc != nil && acc.durationSecs+seg.DurationSecs > maxSubtitleSpanSecs {
			flush()
		}
		if acc == nil {
			acc = &subtitleSpan{startSeq: seg.Sequence, endSeq: seg.Sequence, durationSecs: seg.DurationSecs}
		} else {
			acc.endSeq = seg.Sequence
			acc.durationSecs += seg.DurationSecs
		}
	}
	flush()
	return spans
}

// SubtitlePlaylist writes the variant playlist for one subtitle track,
// merging consecutive cue-less segments into single spans (spec §4.I
// "Subtitle variant"). There is no init segment for WebVTT tracks, so no
// EXT-X-MAP line is emitted.
func SubtitlePlaylist(w io.Writer, si *model.StreamIndex, subIdx int) error {
	ew := &errWriter{w: w}
	sub := si.Subtitles[subIdx]

	ew.println("#EXTM3U")
	ew.println("#EXT-X-VERSION:7")
	ew.printf("#EXT-X-TARGETDURATION:%d\n", targetDuration(si.Segments))
	ew.println("#EXT-X-MEDIA-SEQUENCE:0")
	ew.println("#EXT-X-PLAYLIST-TYPE:VOD")
	ew.println("#EXT-X-INDEPENDENT-SEGMENTS")

	for _, span := range mergeSubtitleSpans(si.Segments, sub.NonEmptySequences) {
		ew.printf("#EXTINF:%.6f,\n", span.durationSecs)
		ew.println(urlkind.SubtitleSegment(sub.StreamIndex, span.startSeq, span.endSeq))
	}
	ew.println("#EXT-X-ENDLIST")
	return ew.err
}
