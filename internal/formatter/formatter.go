// package formatter provides functions to export reel arrangements to various formats (CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/mcampolo/reeldeck/internal/models"
	"github.com/mcampolo/reeldeck/internal/shared"
)

// ExportToCSV converts a reel to CSV format with columns: Position, Name, Path, Duration, Size
func ExportToCSV(reel *models.Reel) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Name", "Path", "Duration", "Size"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range reel.Items() {
		record := []string{
			strconv.Itoa(item.Position + 1),
			item.Name,
			item.Path,
			models.FormatClock(item.Duration),
			strconv.FormatInt(item.Size, 10),
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

// ExportToMarkdown converts a reel to Markdown format with optional cover image
func ExportToMarkdown(reel *models.Reel, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", reel.Title()))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if reel.Folder() != "" {
		buf.WriteString(fmt.Sprintf("**Source folder**: %s\n", reel.Folder()))
	}
	if reel.Theme() != "" {
		buf.WriteString(fmt.Sprintf("**Theme**: %s\n", reel.Theme()))
	}
	buf.WriteString(fmt.Sprintf("**Videos**: %d\n", len(reel.Items())))
	buf.WriteString(fmt.Sprintf("**Runtime**: %s\n\n", models.FormatClock(TotalRuntime(reel))))

	buf.WriteString("## Order\n\n")
	for _, item := range reel.Items() {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", item.Position+1, item.Name, models.FormatClock(item.Duration)))
	}

	return buf.Bytes(), nil
}

// TotalRuntime sums the durations of every item in the reel.
// Items whose duration is still unknown contribute nothing.
func TotalRuntime(reel *models.Reel) time.Duration {
	var total time.Duration
	for _, item := range reel.Items() {
		total += item.Duration
	}
	return total
}

// reelDocument is the serialized shape of a reel for JSON export.
type reelDocument struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Folder    string            `json:"folder,omitempty"`
	Theme     string            `json:"theme,omitempty"`
	Runtime   string            `json:"runtime"`
	Items     []models.ReelItem `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ExportToJSON generates an indented JSON representation of the reel
func ExportToJSON(reel *models.Reel) ([]byte, error) {
	doc := reelDocument{
		ID:        reel.ID(),
		Title:     reel.Title(),
		Folder:    reel.Folder(),
		Theme:     reel.Theme(),
		Runtime:   models.FormatClock(TotalRuntime(reel)),
		Items:     reel.Items(),
		CreatedAt: reel.CreatedAt(),
		UpdatedAt: reel.UpdatedAt(),
	}
	return shared.MarshalJSON(doc, true)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports a reel to CSV format with an accompanying metadata JSON file.
//
// Defaults to the reel ID as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(reel *models.Reel, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = reel.ID()
	}

	csvData, err := ExportToCSV(reel)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ExportToJSON(reel)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a reel to Markdown format in a dedicated directory.
//
// Directory name defaults to the reel ID. When the reel's first item carries a
// thumbnail URL, the thumbnail is downloaded as the cover image. Creates
// {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(reel *models.Reel, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = reel.ID()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if items := reel.Items(); len(items) > 0 && items[0].ThumbnailURL != "" {
		imageData, err := DownloadImage(items[0].ThumbnailURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := fmt.Sprintf("%s/%s", outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(reel, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteJSONExport exports a reel to an indented JSON file.
//
// Defaults to {reel.ID}.json as the filename.
func WriteJSONExport(reel *models.Reel, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s.json", reel.ID())
	}

	jsonData, err := ExportToJSON(reel)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return filepath, nil
}
