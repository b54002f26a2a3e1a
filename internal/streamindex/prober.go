// Package streamindex builds a model.StreamIndex from a source file: it
// probes container/stream metadata via ffprobe, reads the video stream's
// index table (internal/demux), derives segment boundaries and subtitle
// sample maps, and computes audio encoder delay — spec §4.D.
package streamindex

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hlsvod/originserver/internal/ffmpeg"
)

// probeFormat and probeStream alias the shared ffprobe JSON shapes from
// internal/ffmpeg so the rest of this package can keep its existing field
// names without depending on the ffmpeg package directly everywhere.
type probeFormat = ffmpeg.ProbeFormat
type probeStream = ffmpeg.ProbeStream
type probeResult = ffmpeg.ProbeResult

// prober shells out to ffprobe for container/stream metadata.
type prober struct {
	p *ffmpeg.Prober
}

func newProber(ffprobePath string, timeout time.Duration) *prober {
	return &prober{p: ffmpeg.NewProber(ffprobePath, timeout)}
}

func (pr *prober) probe(ctx context.Context, sourcePath string) (*probeResult, error) {
	return pr.p.Probe(ctx, sourcePath)
}

// parseTimeBase parses ffprobe's "1/90000" rational time_base strings.
func parseTimeBase(tb string) (int64, int64, bool) {
	parts := strings.Split(tb, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	num, err1 := strconv.ParseInt(parts[0], 10, 64)
	den, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0, 0, false
	}
	return num, den, true
}

func parseIntOr(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func parseFloatOr(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}
