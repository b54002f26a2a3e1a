package ffmpeg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunCaptureReturnsStdout(t *testing.T) {
	out, stats, err := RunCapture(context.Background(), "/bin/echo", time.Second, []string{"hello"})
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(out))
	require.NotNil(t, stats)
}

func TestRunCaptureWrapsFailureWithStderr(t *testing.T) {
	_, _, err := RunCapture(context.Background(), "/bin/sh", time.Second, []string{"-c", "echo boom >&2; exit 1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestRunCaptureMissingBinary(t *testing.T) {
	_, _, err := RunCapture(context.Background(), "/nonexistent/binary-xyz", time.Second, nil)
	require.Error(t, err)
}
