package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/mcampolo/reeldeck/internal/models"
)

var (
	_ list.Item = videoItem{}
)

// videoItem wraps [models.VideoRecord] to implement [list.Item].
type videoItem struct {
	record models.VideoRecord
}

func (i videoItem) FilterValue() string { return i.record.Name }

func (i videoItem) Title() string {
	switch i.record.Compatibility {
	case models.CompatOK:
		return fmt.Sprintf("%s %s", styles.success.Render("▶"), i.record.Name)
	case models.CompatFailed:
		return fmt.Sprintf("%s %s", styles.error.Render("✗"), i.record.Name)
	default:
		return fmt.Sprintf("%s %s", styles.help.Render("·"), i.record.Name)
	}
}

func (i videoItem) Description() string {
	desc := i.record.FormattedDuration()
	if i.record.Compatibility == models.CompatFailed && i.record.CompatibilityError != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.record.CompatibilityError)
	} else if i.record.Size > 0 {
		desc = fmt.Sprintf("%s • %s", desc, formatSize(i.record.Size))
	}
	return desc
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
