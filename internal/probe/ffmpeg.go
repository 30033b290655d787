package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpegPlayer implements [Player] by shelling out to ffprobe and ffmpeg.
// This is the native stand-in for a browser's headless video element.
type FFmpegPlayer struct {
	FFprobePath string
	FFmpegPath  string
}

// NewFFmpegPlayer creates a player using the given binary paths, defaulting to
// whatever "ffprobe"/"ffmpeg" resolve to on PATH.
func NewFFmpegPlayer(ffprobePath, ffmpegPath string) *FFmpegPlayer {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegPlayer{FFprobePath: ffprobePath, FFmpegPath: ffmpegPath}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// LoadMetadata runs ffprobe against the URL and reports the first video
// stream's dimensions plus the container duration. A stream with no video
// track reports zero dimensions, which the prober reads as audio-only.
func (p *FFmpegPlayer) LoadMetadata(ctx context.Context, url string) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, p.FFprobePath,
		"-v", "error",
		"-show_entries", "stream=codec_name,codec_type,width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		url,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyExecError(ctx, err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%w: unreadable ffprobe output: %v", ErrDecode, err)
	}

	md := &Metadata{}
	for _, stream := range out.Streams {
		if stream.CodecType == "video" {
			md.Width = stream.Width
			md.Height = stream.Height
			md.Codec = stream.CodecName
			break
		}
	}
	if secs, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		md.Duration = time.Duration(secs * float64(time.Second))
	}
	return md, nil
}

// AttemptDecode seeks to seekOffset and decodes a single frame, which is the
// cheapest proof that playback would actually start.
func (p *FFmpegPlayer) AttemptDecode(ctx context.Context, url string, seekOffset time.Duration) error {
	cmd := exec.CommandContext(ctx, p.FFmpegPath,
		"-v", "error",
		"-ss", fmt.Sprintf("%.2f", seekOffset.Seconds()),
		"-i", url,
		"-frames:v", "1",
		"-f", "null", "-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classifyExecError(ctx, err, stderr.String())
	}
	return nil
}

// Dispose is a no-op; each invocation runs a short-lived subprocess.
func (p *FFmpegPlayer) Dispose() {}

// classifyExecError translates ffmpeg/ffprobe failures into the probe error
// taxonomy by inspecting stderr.
func classifyExecError(ctx context.Context, err error, stderr string) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrAborted, ctx.Err())
	}

	// A command that never started (binary missing, not executable) is a
	// broken environment, not a broken file.
	var startErr *exec.Error
	if errors.As(err, &startErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, startErr)
	}

	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "401"),
		strings.Contains(lower, "403"),
		strings.Contains(lower, "404"),
		strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "failed to resolve"),
		strings.Contains(lower, "server returned"):
		return fmt.Errorf("%w: %s", ErrNetwork, firstLine(stderr))
	case strings.Contains(lower, "invalid data"),
		strings.Contains(lower, "could not find codec"),
		strings.Contains(lower, "decoder"),
		strings.Contains(lower, "moov atom not found"):
		return fmt.Errorf("%w: %s", ErrDecode, firstLine(stderr))
	case strings.Contains(lower, "unknown format"),
		strings.Contains(lower, "not supported"):
		return fmt.Errorf("%w: %s", ErrUnsupported, firstLine(stderr))
	default:
		if strings.TrimSpace(stderr) == "" {
			// Exit with no media diagnostics on stderr gives no grounds
			// for condemning the file.
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("%w: %v: %s", ErrDecode, err, firstLine(stderr))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
