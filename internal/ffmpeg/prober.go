package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ProbeFormat is the subset of ffprobe's -show_format JSON the index
// builder needs.
type ProbeFormat struct {
	Duration string `json:"duration"`
}

// ProbeStream is the subset of ffprobe's -show_streams JSON needed to
// classify and describe one stream.
type ProbeStream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	Profile    string            `json:"profile"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Level      int               `json:"level,omitempty"`
	SampleRate string            `json:"sample_rate,omitempty"`
	Channels   int               `json:"channels,omitempty"`
	BitRate    string            `json:"bit_rate,omitempty"`
	TimeBase   string            `json:"time_base,omitempty"`
	RFrameRate string            `json:"r_frame_rate,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// ProbeResult is ffprobe's -show_format -show_streams JSON output.
type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// Packet is one entry from ffprobe's -show_entries packet=... JSON output.
type Packet struct {
	Pos         string `json:"pos"`
	DTS         *int64 `json:"dts"`
	PTS         *int64 `json:"pts"`
	Size        string `json:"size"`
	Flags       string `json:"flags"`
	StreamIndex int    `json:"stream_index"`
}

type packetsDocument struct {
	Packets []Packet `json:"packets"`
}

// Prober shells out to ffprobe for container/stream metadata and
// packet-level index tables of local source files.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a Prober using the given ffprobe binary path (empty
// uses "ffprobe" from PATH) and a default per-invocation timeout.
func NewProber(ffprobePath string, timeout time.Duration) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{ffprobePath: ffprobePath, timeout: timeout}
}

// Probe runs ffprobe -show_format -show_streams against sourcePath.
func (p *Prober) Probe(ctx context.Context, sourcePath string) (*ProbeResult, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		sourcePath,
	}

	out, _, err := RunCapture(ctx, p.ffprobePath, p.timeout, args)
	if err != nil {
		return nil, err
	}

	var result ProbeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	return &result, nil
}

// ProbePackets runs ffprobe -show_entries packet=... against sourcePath,
// restricted to one stream, and returns its packets in file order.
func (p *Prober) ProbePackets(ctx context.Context, sourcePath string, streamIndex int) ([]Packet, error) {
	args := []string{
		"-v", "error",
		"-select_streams", fmt.Sprintf("%d", streamIndex),
		"-show_entries", "packet=pos,pts,dts,size,flags",
		"-print_format", "json",
		sourcePath,
	}

	out, _, err := RunCapture(ctx, p.ffprobePath, p.timeout, args)
	if err != nil {
		return nil, err
	}

	var doc packetsDocument
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("parsing ffprobe packet output: %w", err)
	}
	return doc.Packets, nil
}
