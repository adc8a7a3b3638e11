package pipeline

import (
	"sort"

	"github.com/avelara/setlist/internal/models"
)

// Stats summarizes a completed run for the analysis report.
//
// MeanScore, ScoreDistribution, and Recommendations cover every scored
// track; ClusterCounts covers only the selected tracks.
type Stats struct {
	Total             int                           `json:"total"`
	Scored            int                           `json:"scored"`
	Unscored          int                           `json:"unscored"`
	Selected          int                           `json:"selected"`
	MeanScore         float64                       `json:"mean_score"`
	ScoreDistribution map[int]int                   `json:"score_distribution"`
	ClusterCounts     map[int]int                   `json:"cluster_counts"`
	Recommendations   map[models.Recommendation]int `json:"recommendations"`
}

// Assemble selects the playlist from a validated working set.
//
// Selection is score-only: a track is in when it carries a score and the
// score is at least minScore. Unscored tracks never pass. The result is
// ordered by score descending; ties keep working-set order.
func Assemble(tracks []*models.Track, minScore float64) ([]*models.Track, *Stats) {
	stats := &Stats{
		Total:             len(tracks),
		ScoreDistribution: make(map[int]int),
		ClusterCounts:     make(map[int]int),
		Recommendations:   make(map[models.Recommendation]int),
	}

	var selected []*models.Track
	scoreSum := 0.0
	for _, t := range tracks {
		if !t.Scored() {
			stats.Unscored++
			continue
		}
		stats.Scored++
		scoreSum += *t.AIScore
		stats.ScoreDistribution[int(*t.AIScore)]++
		stats.Recommendations[t.AIRecommendation]++
		if *t.AIScore >= minScore {
			selected = append(selected, t)
			stats.ClusterCounts[t.ClusterID]++
		}
	}
	if stats.Scored > 0 {
		stats.MeanScore = scoreSum / float64(stats.Scored)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return *selected[i].AIScore > *selected[j].AIScore
	})
	stats.Selected = len(selected)

	return selected, stats
}
