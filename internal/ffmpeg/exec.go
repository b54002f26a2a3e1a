// Package ffmpeg wraps the ffmpeg/ffprobe command-line tools for the
// pieces of the pipeline that have to shell out to them: container/stream
// probing, packet-index extraction, and segment transcoding. It captures
// process output the same way regardless of caller, and samples resource
// usage of the child process with ProcessMonitor while it runs.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// RunCapture runs binary with args and a per-invocation timeout, returning
// everything written to stdout. stderr is captured too and folded into the
// returned error so callers get the tool's diagnostic output, not just its
// exit status.
func RunCapture(ctx context.Context, binary string, timeout time.Duration, args []string) ([]byte, *ProcessStats, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting %s: %w", binary, err)
	}

	monitor := NewProcessMonitor(cmd.Process.Pid)
	monitor.Start()

	err := cmd.Wait()
	monitor.Stop()
	stats := monitor.Stats()

	if err != nil {
		return nil, &stats, fmt.Errorf("%s failed: %w: %s", binary, err, stderr.String())
	}
	return stdout.Bytes(), &stats, nil
}
