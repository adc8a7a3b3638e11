// package formatter exports pipeline results to playlist files (plain text,
// JSON) and the run analysis report (Markdown)
package formatter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/pipeline"
	"github.com/avelara/setlist/internal/shared"
)

// PlaylistMetadata heads the JSON export.
type PlaylistMetadata struct {
	RunID       string  `json:"run_id"`
	Name        string  `json:"name"`
	GeneratedOn string  `json:"generated_on"`
	TotalTracks int     `json:"total_tracks"`
	MeanScore   float64 `json:"mean_score"`
	MinScore    float64 `json:"min_score"`
}

// PlaylistDocument is the JSON export payload: run metadata plus the
// selected tracks in playlist order.
type PlaylistDocument struct {
	Metadata PlaylistMetadata    `json:"metadata"`
	Clusters []string            `json:"clusters,omitempty"`
	Tracks   []*models.Track     `json:"tracks"`
	Genres   []pipeline.TagCount `json:"genres,omitempty"`
}

// ExportToText converts a run result to a plain text playlist.
func ExportToText(result *pipeline.RunResult, name string) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", name))
	buf.WriteString(fmt.Sprintf("Generated: %s\n", time.Now().Format("2006-01-02 15:04")))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(result.Selected)))

	for i, track := range result.Selected {
		duration := shared.FormatDuration(track.DurationMS)
		line := fmt.Sprintf("%d. %s - %s [%s]", i+1, track.Artist(), track.Name, duration)
		if track.Scored() {
			line += fmt.Sprintf(" (score %.1f, %s)", *track.AIScore, track.AIRecommendation)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes()
}

// ExportToJSON converts a run result to the JSON playlist document.
func ExportToJSON(result *pipeline.RunResult, name string, minScore float64) ([]byte, error) {
	doc := PlaylistDocument{
		Metadata: PlaylistMetadata{
			RunID:       shared.GenerateID(),
			Name:        name,
			GeneratedOn: time.Now().Format(time.RFC3339),
			TotalTracks: len(result.Selected),
			MinScore:    minScore,
		},
		Tracks: result.Selected,
		Genres: result.GenreSummary,
	}
	if result.Stats != nil {
		doc.Metadata.MeanScore = result.Stats.MeanScore
	}
	if result.Report != nil {
		for _, c := range result.Report.Clusters {
			doc.Clusters = append(doc.Clusters, c.Descriptor)
		}
	}

	return shared.MarshalJSON(doc, true)
}

// ExportAnalysisReport renders the Markdown run report. Always complete,
// including for partial runs: dropped records, failed batches, and unscored
// tracks are reported rather than hidden.
func ExportAnalysisReport(result *pipeline.RunResult, name string) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Analysis Report: %s\n\n", name))
	buf.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04")))

	buf.WriteString("## Corpus\n\n")
	buf.WriteString(fmt.Sprintf("- Tracks in working set: %d\n", len(result.Tracks)))
	buf.WriteString(fmt.Sprintf("- Records dropped (no identity): %d\n", result.DroppedRecords))
	if result.Stats != nil {
		buf.WriteString(fmt.Sprintf("- Scored: %d\n", result.Stats.Scored))
		buf.WriteString(fmt.Sprintf("- Unscored: %d\n", result.Stats.Unscored))
		buf.WriteString(fmt.Sprintf("- Selected: %d\n", result.Stats.Selected))
	}
	buf.WriteString("\n")

	if len(result.GenreSummary) > 0 {
		buf.WriteString("## Genres\n\n")
		for _, tc := range result.GenreSummary {
			buf.WriteString(fmt.Sprintf("- %s (%d)\n", tc.Tag, tc.Count))
		}
		buf.WriteString("\n")
	}

	if result.Report != nil {
		buf.WriteString("## Style Clusters\n\n")
		for _, cluster := range result.Report.Clusters {
			buf.WriteString(fmt.Sprintf("### Cluster %d: %s\n\n", cluster.ID, cluster.Descriptor))
			buf.WriteString(fmt.Sprintf("- Tracks: %d\n", cluster.Size))
			if cluster.Size > 0 {
				buf.WriteString(fmt.Sprintf("- Avg popularity: %.0f/100\n", cluster.AvgPopularity))
				buf.WriteString(fmt.Sprintf("- Total duration: %.1f min\n", cluster.TotalDurationMin))
				if len(cluster.SampleTracks) > 0 {
					buf.WriteString("- Samples:\n")
					for _, sample := range cluster.SampleTracks {
						buf.WriteString(fmt.Sprintf("  - %s\n", sample))
					}
				}
			}
			buf.WriteString("\n")
		}
	}

	if result.Validation != nil {
		buf.WriteString("## Validation\n\n")
		buf.WriteString(fmt.Sprintf("- Batches: %d\n", result.Validation.Batches))
		buf.WriteString(fmt.Sprintf("- Failed batches: %d\n", result.Validation.FailedBatches))
		buf.WriteString(fmt.Sprintf("- Malformed entries: %d\n", result.Validation.MalformedEntries))
		buf.WriteString("\n")

		if result.Stats != nil && len(result.Stats.ScoreDistribution) > 0 {
			buf.WriteString("### Score distribution\n\n")
			scores := make([]int, 0, len(result.Stats.ScoreDistribution))
			for score := range result.Stats.ScoreDistribution {
				scores = append(scores, score)
			}
			sort.Sort(sort.Reverse(sort.IntSlice(scores)))
			for _, score := range scores {
				buf.WriteString(fmt.Sprintf("- %d: %d tracks\n", score, result.Stats.ScoreDistribution[score]))
			}
			buf.WriteString("\n")
		}
	}

	if len(result.Selected) > 0 {
		buf.WriteString("## Top Tracks\n\n")
		for i, track := range result.Selected[:min(10, len(result.Selected))] {
			buf.WriteString(fmt.Sprintf("%d. %s - %s (%.1f, %s)\n",
				i+1, track.Artist(), track.Name, *track.AIScore, track.AIRecommendation))
			if track.AIReasoning != "" {
				buf.WriteString(fmt.Sprintf("   %s\n", track.AIReasoning))
			}
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// ExportResult contains the paths of files created by WriteExports.
type ExportResult struct {
	TextFile   string
	JSONFile   string
	ReportFile string
}

// WriteExports writes the playlist text/JSON files and the analysis report
// into outputDir, creating it as needed. Base filenames derive from the
// playlist name.
func WriteExports(result *pipeline.RunResult, name, outputDir string, minScore float64) (*ExportResult, error) {
	if outputDir == "" {
		outputDir = "."
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := shared.Slugify(name)
	exports := &ExportResult{}

	textFile := filepath.Join(outputDir, base+"_playlist.txt")
	if err := os.WriteFile(textFile, ExportToText(result, name), 0644); err != nil {
		return nil, fmt.Errorf("failed to write playlist text: %w", err)
	}
	exports.TextFile = textFile

	jsonData, err := ExportToJSON(result, name, minScore)
	if err != nil {
		return nil, fmt.Errorf("failed to generate playlist JSON: %w", err)
	}
	jsonFile := filepath.Join(outputDir, base+"_playlist.json")
	if err := os.WriteFile(jsonFile, jsonData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write playlist JSON: %w", err)
	}
	exports.JSONFile = jsonFile

	reportFile := filepath.Join(outputDir, base+"_report.md")
	if err := os.WriteFile(reportFile, ExportAnalysisReport(result, name), 0644); err != nil {
		return nil, fmt.Errorf("failed to write analysis report: %w", err)
	}
	exports.ReportFile = reportFile

	return exports, nil
}
