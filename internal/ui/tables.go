package ui

import (
	"fmt"
	"strings"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/pipeline"
)

// RenderClusterOverview renders the style-cluster table for terminal display.
func RenderClusterOverview(report *pipeline.ClusterReport) string {
	if report == nil || len(report.Clusters) == 0 {
		return styles.warn.Render("No clusters to display")
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Style Clusters (k=%d)", report.K)))
	b.WriteString("\n")
	b.WriteString(styles.header.Render(fmt.Sprintf("%-4s %-28s %6s %8s %10s", "ID", "Descriptor", "Size", "Pop", "Duration")))
	b.WriteString("\n")

	for _, cluster := range report.Clusters {
		row := fmt.Sprintf("%-4d %-28s %6d %8.0f %9.1fm",
			cluster.ID, truncate(cluster.Descriptor, 28), cluster.Size,
			cluster.AvgPopularity, cluster.TotalDurationMin)
		if cluster.Size == 0 {
			b.WriteString(styles.warn.Render(row))
		} else {
			b.WriteString(row)
		}
		b.WriteString("\n")
		for _, sample := range cluster.SampleTracks {
			b.WriteString(styles.help.Render("     " + truncate(sample, 52)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderValidationSummary renders the scored-track table, highest first.
func RenderValidationSummary(selected []*models.Track, stats *pipeline.Stats) string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Validation Summary"))
	b.WriteString("\n")

	if stats != nil {
		b.WriteString(fmt.Sprintf("Scored %d of %d tracks, %d selected (mean %.1f)\n",
			stats.Scored, stats.Total, stats.Selected, stats.MeanScore))
		if stats.Unscored > 0 {
			b.WriteString(styles.warn.Render(fmt.Sprintf("%d tracks left unscored", stats.Unscored)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(selected) == 0 {
		b.WriteString(styles.err.Render("No tracks met the score threshold"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(styles.header.Render(fmt.Sprintf("%-40s %6s  %-6s", "Track", "Score", "Rec")))
	b.WriteString("\n")
	for _, track := range selected[:min(15, len(selected))] {
		label := fmt.Sprintf("%s - %s", track.Artist(), track.Name)
		row := fmt.Sprintf("%-40s %6.1f  ", truncate(label, 40), *track.AIScore)
		switch track.AIRecommendation {
		case models.RecommendYes:
			row += styles.ok.Render(string(track.AIRecommendation))
		case models.RecommendNo:
			row += styles.err.Render(string(track.AIRecommendation))
		default:
			row += styles.warn.Render(string(track.AIRecommendation))
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
