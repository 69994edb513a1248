// package formatter renders conversion run history as CSV, Markdown, JSON or plain text reports
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spyt/internal/models"
	"github.com/desertthunder/spyt/internal/services"
	"github.com/desertthunder/spyt/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
	FormatText     Format = "txt"
)

// ParseFormat accepts a format name or common file extension alias.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "txt", "text", "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, name)
}

// RunSummary is the exported view of a [models.Run].
type RunSummary struct {
	Sequence    int       `json:"sequence"`
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Title       string    `json:"title"`
	SourceURL   string    `json:"source_url"`
	PlaylistID  string    `json:"playlist_id,omitempty"`
	PlaylistURL string    `json:"playlist_url,omitempty"`
	Tracks      int       `json:"tracks"`
	Matched     int       `json:"matched"`
	Added       int       `json:"added"`
	Deferred    int       `json:"deferred"`
	FailedIDs   []string  `json:"failed_ids,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summarize flattens a run for export.
func Summarize(run *models.Run) RunSummary {
	s := RunSummary{
		Sequence:   run.Sequence(),
		ID:         run.ID(),
		Status:     string(run.Status()),
		Title:      run.Title(),
		SourceURL:  run.SourceURL(),
		PlaylistID: run.PlaylistID(),
		Tracks:     run.TrackCount(),
		Matched:    run.MatchedCount(),
		Added:      run.AddedCount(),
		Deferred:   run.DeferredCount(),
		FailedIDs:  run.FailedIDs(),
		Error:      run.ErrorMessage(),
		CreatedAt:  run.CreatedAt(),
		UpdatedAt:  run.UpdatedAt(),
	}
	if s.PlaylistID != "" {
		s.PlaylistURL = services.PlaylistURL(s.PlaylistID)
	}
	return s
}

// MatchRate returns the share of tracks that found a video, in percent.
func (s RunSummary) MatchRate() float64 {
	if s.Tracks == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Tracks) * 100
}

// Export renders runs in the requested format.
func Export(runs []*models.Run, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(runs)
	case FormatMarkdown:
		return ExportToMarkdown(runs)
	case FormatJSON:
		return ExportToJSON(runs)
	case FormatText:
		return ExportToText(runs)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
}

// ExportToCSV writes one row per run with columns: Sequence, ID, Status, Title, Source, Playlist, Tracks, Matched, Added, Deferred, Failed, Created
func ExportToCSV(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Status", "Title", "Source", "Playlist", "Tracks", "Matched", "Added", "Deferred", "Failed", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		s := Summarize(run)
		record := []string{
			strconv.Itoa(s.Sequence),
			s.ID,
			s.Status,
			s.Title,
			s.SourceURL,
			s.PlaylistURL,
			strconv.Itoa(s.Tracks),
			strconv.Itoa(s.Matched),
			strconv.Itoa(s.Added),
			strconv.Itoa(s.Deferred),
			strings.Join(s.FailedIDs, ";"),
			s.CreatedAt.Format(time.RFC3339),
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

// ExportToMarkdown renders a table of runs followed by the failed videos of each run that has any.
func ExportToMarkdown(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Conversion Runs\n\n")
	buf.WriteString("| # | Status | Title | Tracks | Matched | Added | Deferred | Failed |\n")
	buf.WriteString("|---|--------|-------|--------|---------|-------|----------|--------|\n")

	var withFailures []RunSummary
	for _, run := range runs {
		s := Summarize(run)
		title := s.Title
		if s.PlaylistURL != "" {
			title = fmt.Sprintf("[%s](%s)", s.Title, s.PlaylistURL)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %d | %d | %d | %d | %d |\n",
			s.Sequence, s.Status, title, s.Tracks, s.Matched, s.Added, s.Deferred, len(s.FailedIDs)))
		if len(s.FailedIDs) > 0 {
			withFailures = append(withFailures, s)
		}
	}

	for _, s := range withFailures {
		buf.WriteString(fmt.Sprintf("\n## Run %d: failed videos\n\n", s.Sequence))
		for _, id := range s.FailedIDs {
			buf.WriteString(fmt.Sprintf("- https://www.youtube.com/watch?v=%s\n", id))
		}
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders runs as an indented JSON array.
func ExportToJSON(runs []*models.Run) ([]byte, error) {
	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = Summarize(run)
	}
	return json.MarshalIndent(summaries, "", "  ")
}

// ExportToText renders runs as plain text blocks.
func ExportToText(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	for i, run := range runs {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(FormatRun(run))
	}
	return buf.Bytes(), nil
}

// FormatRun describes a single run as a few plain text lines.
func FormatRun(run *models.Run) string {
	s := Summarize(run)

	var b strings.Builder
	fmt.Fprintf(&b, "Run #%d (%s): %s\n", s.Sequence, s.Status, s.Title)
	fmt.Fprintf(&b, "  Source: %s\n", s.SourceURL)
	if s.PlaylistURL != "" {
		fmt.Fprintf(&b, "  Playlist: %s\n", s.PlaylistURL)
	}
	fmt.Fprintf(&b, "  Tracks: %d, matched %d (%.1f%%), added %d, deferred %d, failed %d\n",
		s.Tracks, s.Matched, s.MatchRate(), s.Added, s.Deferred, len(s.FailedIDs))
	if s.Error != "" {
		fmt.Fprintf(&b, "  Error: %s\n", s.Error)
	}
	fmt.Fprintf(&b, "  Started: %s\n", s.CreatedAt.Format(time.DateTime))
	return b.String()
}

// WriteExport renders runs and writes them to path atomically.
func WriteExport(runs []*models.Run, format Format, path string) error {
	data, err := Export(runs, format)
	if err != nil {
		return err
	}
	if err := shared.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
