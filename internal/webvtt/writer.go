// Package webvtt extracts text-subtitle cues from a per-codec sample
// payload and serializes them to WebVTT, the format every HLS subtitle
// segment this system emits uses regardless of the source codec
// (spec §4.G). The serializer follows a streaming text-writer idiom:
// header-once, io.Writer-based, fmt.Fprint*.
package webvtt

import (
	"fmt"
	"io"
)

// DefaultCueDurationMS is substituted when a subtitle packet reports zero
// duration (common for SRT/text tracks demuxed from MP4) — spec §4.G.1.
const DefaultCueDurationMS = 2000

// Cue is one subtitle event, timed in milliseconds on the video timeline.
type Cue struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// Writer streams WebVTT bytes: "WEBVTT\n\n" once, then one cue block per
// WriteCue call. No X-TIMESTAMP-MAP is ever emitted — HLS clients
// reconcile cue timing to the playlist timeline via segment start.
type Writer struct {
	w             io.Writer
	headerWritten bool
}

// NewWriter creates a WebVTT Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the WebVTT file signature. Automatically called by
// WriteCue if not already written.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprint(w.w, "WEBVTT\n\n"); err != nil {
		return fmt.Errorf("webvtt: writing header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteCue writes one cue's timestamp line and text, followed by a blank
// line separator.
func (w *Writer) WriteCue(cue Cue) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.w, "%s --> %s\n%s\n\n", formatTimestamp(cue.StartMS), formatTimestamp(cue.EndMS), cue.Text)
	if err != nil {
		return fmt.Errorf("webvtt: writing cue: %w", err)
	}
	return nil
}

// formatTimestamp renders milliseconds as WebVTT's "HH:MM:SS.mmm".
func formatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	ms -= hours * 3600000
	minutes := ms / 60000
	ms -= minutes * 60000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, ms)
}

// Serialize renders cues as a complete WebVTT document.
func Serialize(w io.Writer, cues []Cue) error {
	vw := NewWriter(w)
	if err := vw.WriteHeader(); err != nil {
		return err
	}
	for _, c := range cues {
		if err := vw.WriteCue(c); err != nil {
			return err
		}
	}
	return nil
}
