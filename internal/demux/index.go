// Package demux reads container-level index tables (the packet/sample
// position table every MP4/MKV source already carries) without decoding
// any media payload. It uses internal/ffmpeg's Prober to run ffprobe and
// parse its JSON packet output, rather than linking a demuxer library
// directly.
package demux

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/hlsvod/originserver/internal/ffmpeg"
	"github.com/hlsvod/originserver/internal/hlserr"
)

// KeyframeFlag is set on IndexEntry.Flags when ffprobe reports the packet
// as a key/sync sample ("K" in the packet's flags string).
const KeyframeFlag uint32 = 0x0001

// IndexEntry describes one packet's position in the container's index
// table: its byte offset, decode timestamp, presentation timestamp (both
// in the stream's own timebase), encoded size, and flag bits.
//
// PTS and Timestamp (DTS) differ whenever the source reorders frames for
// B-frame prediction; PTSOffset below captures that difference for the
// muxer (spec §4.H.2).
type IndexEntry struct {
	Pos       int64
	Timestamp int64 // decode timestamp
	PTS       int64 // presentation timestamp; equals Timestamp when ffprobe reports no separate pts
	Size      int64
	Flags     uint32
}

// PTSOffset returns PTS-Timestamp, the composition-time offset a muxer
// must apply so frames display in the order the encoder intended rather
// than decode order.
func (e IndexEntry) PTSOffset() int64 { return e.PTS - e.Timestamp }

// IsKeyframe reports whether this entry is a random-access point.
func (e IndexEntry) IsKeyframe() bool { return e.Flags&KeyframeFlag != 0 }

// Reader extracts index entries from a source file via ffprobe.
type Reader struct {
	prober *ffmpeg.Prober
}

// NewReader creates an index Reader using the given ffprobe binary path
// (empty uses "ffprobe" from PATH) and per-invocation timeout.
func NewReader(ffprobePath string, timeout time.Duration) *Reader {
	return &Reader{prober: ffmpeg.NewProber(ffprobePath, timeout)}
}

// ReadIndexEntries reads the packet-position table for one stream of
// sourcePath, sorted ascending by timestamp. streamIndex is the ffprobe
// stream index (0-based, across all stream types) to select.
func (r *Reader) ReadIndexEntries(ctx context.Context, sourcePath string, streamIndex int) ([]IndexEntry, error) {
	packets, err := r.prober.ProbePackets(ctx, sourcePath, streamIndex)
	if err != nil {
		return nil, err
	}

	if len(packets) == 0 {
		return nil, &hlserr.NoIndexError{Path: sourcePath}
	}

	entries := make([]IndexEntry, 0, len(packets))
	for _, p := range packets {
		ts := int64(0)
		switch {
		case p.DTS != nil:
			ts = *p.DTS
		case p.PTS != nil:
			ts = *p.PTS
		}

		pts := ts
		if p.PTS != nil {
			pts = *p.PTS
		}

		pos, _ := strconv.ParseInt(p.Pos, 10, 64)
		size, _ := strconv.ParseInt(p.Size, 10, 64)

		var flags uint32
		if bytesContainsKeyframe(p.Flags) {
			flags |= KeyframeFlag
		}

		entries = append(entries, IndexEntry{
			Pos:       pos,
			Timestamp: ts,
			PTS:       pts,
			Size:      size,
			Flags:     flags,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})

	return entries, nil
}

// bytesContainsKeyframe reports whether an ffprobe packet flags string
// (e.g. "K_", "__") marks the packet as a keyframe/sync sample.
func bytesContainsKeyframe(flags string) bool {
	for _, c := range flags {
		if c == 'K' {
			return true
		}
	}
	return false
}
