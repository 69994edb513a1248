package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spyt/internal/models"
	"github.com/desertthunder/spyt/internal/shared"
	th "github.com/desertthunder/spyt/internal/testing"
)

func sampleRuns() []*models.Run {
	done := models.NewRun(1, "https://open.spotify.com/playlist/ABC", "Road Trip")
	done.SetID("run-1")
	done.SetStatus(models.RunCompleted)
	done.SetPlaylistID("PL1")
	done.SetTrackCount(10)
	done.SetMatchedCount(8)
	done.SetAddedCount(7)
	done.SetFailedIDs([]string{"vidX"})
	done.SetCreatedAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	failed := models.NewRun(2, "https://open.spotify.com/playlist/DEF", "Focus")
	failed.SetID("run-2")
	failed.Fail(errors.New("no tracks could be matched"))
	failed.SetTrackCount(4)

	return []*models.Run{done, failed}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleRuns())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Sequence,ID,Status,Title,Source,Playlist,Tracks,Matched,Added,Deferred,Failed,Created") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,run-1,completed,Road Trip,https://open.spotify.com/playlist/ABC,https://www.youtube.com/playlist?list=PL1,10,8,7,0,vidX,2025-03-01T12:00:00Z") {
			t.Errorf("CSV missing completed run row, got: %s", output)
		}
		if !strings.Contains(output, "2,run-2,failed,Focus") {
			t.Errorf("CSV missing failed run row")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleRuns())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "# Conversion Runs") {
			t.Errorf("Markdown missing title")
		}
		if !strings.Contains(output, "| 1 | completed | [Road Trip](https://www.youtube.com/playlist?list=PL1) | 10 | 8 | 7 | 0 | 1 |") {
			t.Errorf("Markdown missing linked row, got: %s", output)
		}
		if !strings.Contains(output, "| 2 | failed | Focus | 4 | 0 | 0 | 0 | 0 |") {
			t.Errorf("Markdown missing plain row, got: %s", output)
		}
		if !strings.Contains(output, "## Run 1: failed videos") || !strings.Contains(output, "watch?v=vidX") {
			t.Errorf("Markdown missing failed videos section")
		}
		if strings.Contains(output, "## Run 2") {
			t.Errorf("runs without failures should not get a section")
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleRuns())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var summaries []RunSummary
		if err := json.Unmarshal(data, &summaries); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(summaries) != 2 || summaries[1].Error != "no tracks could be matched" {
			t.Errorf("unexpected summaries %+v", summaries)
		}
		if strings.Contains(string(data), `"playlist_url": ""`) {
			t.Errorf("empty playlist url should be omitted")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleRuns())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Run #1 (completed): Road Trip") {
			t.Errorf("Text missing run header")
		}
		if !strings.Contains(output, "matched 8 (80.0%)") {
			t.Errorf("Text missing match rate, got: %s", output)
		}
		if !strings.Contains(output, "Error: no tracks could be matched") {
			t.Errorf("Text missing error line")
		}
	})

	t.Run("empty history", func(t *testing.T) {
		data, err := ExportToCSV(nil)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		if lines := strings.Count(string(data), "\n"); lines != 1 {
			t.Errorf("expected header only, got %d lines", lines)
		}
		if s := Summarize(models.NewRun(1, "", "")); s.MatchRate() != 0 {
			t.Errorf("expected zero match rate without tracks")
		}
	})
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in       string
		want     Format
		wantsErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: ".md", want: FormatMarkdown},
		{in: "Markdown", want: FormatMarkdown},
		{in: "json", want: FormatJSON},
		{in: "", want: FormatText},
		{in: "xml", wantsErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantsErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestWriteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.md")

	if err := WriteExport(sampleRuns(), FormatMarkdown, path); err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}
	th.AssertFileExists(t, path)
	if content := th.MustReadFile(t, path); !strings.Contains(content, "Road Trip") {
		t.Errorf("export file missing content")
	}

	if err := WriteExport(sampleRuns(), Format("xml"), path); err == nil {
		t.Error("expected error for unknown format")
	}
}
