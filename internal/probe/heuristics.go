package probe

import (
	"path/filepath"
	"strings"

	"github.com/mcampolo/reeldeck/internal/models"
)

// Codec tokens that browsers generally refuse to decode. Matched
// case-insensitively anywhere in the provider metadata.
var incompatibleCodecTokens = []string{
	"prores",
	"hevc",
	"av1",
	"vp9",
	"cinepak",
	"mjpeg",
}

// Container extensions browsers play natively. Anything else is provisionally
// incompatible until the full probe has its say.
var playableExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".webm": true,
	".ogv":  true,
}

// Heuristic applies the instant, network-free compatibility check: filename
// extension plus a scan of the provider metadata for known-incompatible codec
// tokens. The verdict is provisional; ProbeAll ANDs it with the full probe.
func Heuristic(rec models.VideoRecord) (ok bool, reason string) {
	ext := strings.ToLower(filepath.Ext(rec.Path))
	if ext != "" && !playableExtensions[ext] {
		return false, ReasonCodec
	}

	if token := findCodecToken(rec.ProviderMetadata, 0); token != "" {
		return false, ReasonCodec
	}

	return true, ""
}

// findCodecToken walks the metadata graph looking for a known-bad codec name
// in any string value. Depth-bounded so cyclic or pathological metadata cannot
// stall the instant pass.
func findCodecToken(value any, depth int) string {
	if depth > 4 {
		return ""
	}

	switch v := value.(type) {
	case string:
		lower := strings.ToLower(v)
		for _, token := range incompatibleCodecTokens {
			if strings.Contains(lower, token) {
				return token
			}
		}
	case map[string]any:
		for _, child := range v {
			if token := findCodecToken(child, depth+1); token != "" {
				return token
			}
		}
	case []any:
		for _, child := range v {
			if token := findCodecToken(child, depth+1); token != "" {
				return token
			}
		}
	}
	return ""
}
