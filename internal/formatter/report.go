package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/shared"
)

// ProbeReport summarizes playability verdicts for every video in a folder.
type ProbeReport struct {
	Folder       string           `json:"folder"`
	Videos       int              `json:"videos"`
	Compatible   int              `json:"compatible"`
	Incompatible int              `json:"incompatible"`
	Unchecked    int              `json:"unchecked"`
	Results      []ProbeReportRow `json:"results"`
}

// ProbeReportRow is a single video's verdict within a [ProbeReport].
type ProbeReportRow struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	Compatibility string `json:"compatibility"`
	Error         string `json:"error,omitempty"`
	Duration      string `json:"duration"`
	Checked       bool   `json:"checked"`
}

// NewProbeReport builds a report from catalog records, tallying verdicts.
func NewProbeReport(folder string, records []models.VideoRecord) *ProbeReport {
	report := &ProbeReport{
		Folder:  folder,
		Videos:  len(records),
		Results: make([]ProbeReportRow, 0, len(records)),
	}

	for _, rec := range records {
		switch rec.Compatibility {
		case models.CompatOK:
			report.Compatible++
		case models.CompatFailed:
			report.Incompatible++
		default:
			report.Unchecked++
		}

		report.Results = append(report.Results, ProbeReportRow{
			Name:          rec.Name,
			Path:          rec.Path,
			Compatibility: rec.Compatibility.String(),
			Error:         rec.CompatibilityError,
			Duration:      rec.FormattedDuration(),
			Checked:       rec.CheckedWithBrowser,
		})
	}

	return report
}

// ProbeReportToCSV renders the report rows as CSV with columns: Name, Path,
// Compatibility, Error, Duration, Checked
func ProbeReportToCSV(report *ProbeReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Name", "Path", "Compatibility", "Error", "Duration", "Checked"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range report.Results {
		record := []string{
			row.Name,
			row.Path,
			row.Compatibility,
			row.Error,
			row.Duration,
			strconv.FormatBool(row.Checked),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ProbeReportToMarkdown renders the report as a Markdown summary and table.
func ProbeReportToMarkdown(report *ProbeReport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Playability report: %s\n\n", report.Folder))
	buf.WriteString(fmt.Sprintf("**Videos**: %d\n", report.Videos))
	buf.WriteString(fmt.Sprintf("**Compatible**: %d\n", report.Compatible))
	buf.WriteString(fmt.Sprintf("**Incompatible**: %d\n", report.Incompatible))
	if report.Unchecked > 0 {
		buf.WriteString(fmt.Sprintf("**Unchecked**: %d\n", report.Unchecked))
	}
	buf.WriteString("\n| Video | Verdict | Duration | Notes |\n")
	buf.WriteString("|-------|---------|----------|-------|\n")

	for _, row := range report.Results {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			row.Name, row.Compatibility, row.Duration, row.Error))
	}

	return buf.Bytes(), nil
}

// ProbeReportToJSON generates an indented JSON representation of the report.
func ProbeReportToJSON(report *ProbeReport) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}
