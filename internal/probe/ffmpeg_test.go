package probe

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"
)

func TestClassifyExecError(t *testing.T) {
	execFailed := fmt.Errorf("exit status 1")

	tc := []struct {
		name   string
		err    error
		stderr string
		want   error
	}{
		{name: "http status maps to network", err: execFailed, stderr: "server returned 403 Forbidden", want: ErrNetwork},
		{name: "connection refused maps to network", err: execFailed, stderr: "Connection refused", want: ErrNetwork},
		{name: "invalid data maps to decode", err: execFailed, stderr: "Invalid data found when processing input", want: ErrDecode},
		{name: "unknown container maps to unsupported", err: execFailed, stderr: "Unknown format", want: ErrUnsupported},
		{name: "binary not found maps to unavailable", err: &exec.Error{Name: "ffprobe", Err: exec.ErrNotFound}, stderr: "", want: ErrUnavailable},
		{name: "failure with empty stderr maps to unavailable", err: execFailed, stderr: "", want: ErrUnavailable},
		{name: "unrecognized stderr stays decode", err: execFailed, stderr: "something exotic happened", want: ErrDecode},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyExecError(context.Background(), tt.err, tt.stderr)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyExecError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProbeOneMissingBinaryLeavesUnchecked(t *testing.T) {
	// Without the player binaries the probe cannot say anything about the
	// file; it must not condemn it, and it must not mark it checked.
	player := NewFFmpegPlayer("/nonexistent/ffprobe", "/nonexistent/ffmpeg")
	prober := NewProber(func() Player { return player }, WithTimeout(2*time.Second))

	res := prober.ProbeOne(context.Background(), "https://cdn/x.mp4", "/x.mp4")

	if !res.Compatible {
		t.Errorf("missing player binary condemned the file: %q", res.Reason)
	}
	if res.Checked {
		t.Error("Checked = true, want unchecked so a repaired environment can re-probe")
	}
}
