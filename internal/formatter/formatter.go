// package formatter exports feed cards to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/tubeswipe/internal/models"
	"github.com/desertthunder/tubeswipe/internal/shared"
)

// Supported export formats
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Formats lists the names accepted by [Export].
var Formats = []string{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// Export renders cards in the named format. "md" and "txt" are accepted as aliases.
func Export(format string, cards []models.FeedCard) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatText, "txt", "":
		return ExportToText(cards)
	case FormatCSV:
		return ExportToCSV(cards)
	case FormatMarkdown, "md":
		return ExportToMarkdown(cards)
	case FormatJSON:
		return shared.MarshalJSON(cards, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

func savedTo(card models.FeedCard) string {
	titles := make([]string, len(card.SavedTo))
	for i, ref := range card.SavedTo {
		titles[i] = ref.Title
	}
	return strings.Join(titles, "; ")
}

// ExportToCSV converts feed cards to CSV with columns: Video ID, Title, Channel, Channel ID, Published, Duration,
// Saved To, URL
func ExportToCSV(cards []models.FeedCard) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Video ID", "Title", "Channel", "Channel ID", "Published", "Duration", "Saved To", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, card := range cards {
		record := []string{
			card.ID,
			card.Title,
			card.ChannelTitle,
			card.ChannelID,
			card.PublishedAt,
			strconv.Itoa(card.DurationSeconds),
			savedTo(card),
			card.WatchURL(),
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

// ExportToMarkdown converts feed cards to a Markdown document with one section per video
func ExportToMarkdown(cards []models.FeedCard) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# TubeSwipe feed\n\n")
	buf.WriteString(fmt.Sprintf("**Videos**: %d\n\n", len(cards)))

	for i, card := range cards {
		buf.WriteString(fmt.Sprintf("## %d. [%s](%s)\n\n", i+1, card.Title, card.WatchURL()))
		if card.ThumbnailURL != "" {
			buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", card.ID, card.ThumbnailURL))
		}
		buf.WriteString(fmt.Sprintf("- **Channel**: %s\n", card.ChannelTitle))
		buf.WriteString(fmt.Sprintf("- **Published**: %s\n", card.PublishedAt))
		if card.DurationSeconds > 0 {
			buf.WriteString(fmt.Sprintf("- **Duration**: %s\n", shared.FormatDuration(card.DurationSeconds)))
		}
		if card.Saved {
			buf.WriteString(fmt.Sprintf("- **Saved to**: %s\n", savedTo(card)))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts feed cards to plain text, one video per line
func ExportToText(cards []models.FeedCard) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Videos: %d\n\n", len(cards)))

	for i, card := range cards {
		line := fmt.Sprintf("%d. %s - %s", i+1, card.ChannelTitle, card.Title)
		if card.DurationSeconds > 0 {
			line += fmt.Sprintf(" [%s]", shared.FormatDuration(card.DurationSeconds))
		}
		if card.Saved {
			line += " (saved)"
		}
		buf.WriteString(line + "\n")
		buf.WriteString(fmt.Sprintf("   %s\n", card.WatchURL()))
	}

	return buf.Bytes(), nil
}

// WriteExport renders cards in format and writes them to path.
func WriteExport(path, format string, cards []models.FeedCard) error {
	data, err := Export(format, cards)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
