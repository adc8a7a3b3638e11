package pipeline

import (
	"testing"

	"github.com/avelara/setlist/internal/models"
)

func scoredTrack(id string, score float64, rec models.Recommendation) *models.Track {
	return &models.Track{ID: id, Name: id, AIScore: &score, AIRecommendation: rec}
}

func TestAssemble(t *testing.T) {
	t.Run("Threshold Is Inclusive", func(t *testing.T) {
		tracks := []*models.Track{
			scoredTrack("low", 5.9, models.RecommendMaybe),
			scoredTrack("edge", 6.0, models.RecommendMaybe),
			scoredTrack("high", 8.0, models.RecommendYes),
		}

		selected, _ := Assemble(tracks, 6.0)
		if len(selected) != 2 {
			t.Fatalf("expected 2 selected, got %d", len(selected))
		}
		for _, track := range selected {
			if track.ID == "low" {
				t.Error("5.9 must not pass a 6.0 threshold")
			}
		}
	})

	t.Run("Unscored Tracks Never Pass", func(t *testing.T) {
		tracks := []*models.Track{
			{ID: "unscored", Name: "unscored"},
			scoredTrack("scored", 9.0, models.RecommendYes),
		}

		selected, stats := Assemble(tracks, 6.0)
		if len(selected) != 1 || selected[0].ID != "scored" {
			t.Fatalf("expected only the scored track, got %v", selected)
		}
		if stats.Unscored != 1 || stats.Scored != 1 {
			t.Errorf("expected 1 scored / 1 unscored, got %d / %d", stats.Scored, stats.Unscored)
		}
	})

	t.Run("Ordered By Score With Stable Ties", func(t *testing.T) {
		tracks := []*models.Track{
			scoredTrack("first-seven", 7.0, models.RecommendYes),
			scoredTrack("nine", 9.0, models.RecommendYes),
			scoredTrack("second-seven", 7.0, models.RecommendYes),
		}

		selected, _ := Assemble(tracks, 6.0)
		want := []string{"nine", "first-seven", "second-seven"}
		for i, id := range want {
			if selected[i].ID != id {
				t.Fatalf("expected order %v, got position %d = %s", want, i, selected[i].ID)
			}
		}
	})

	t.Run("Statistics", func(t *testing.T) {
		tracks := []*models.Track{
			scoredTrack("a", 8.0, models.RecommendYes),
			scoredTrack("b", 8.0, models.RecommendYes),
			scoredTrack("c", 4.0, models.RecommendNo),
			{ID: "d", Name: "d"},
		}
		tracks[0].ClusterID = 0
		tracks[1].ClusterID = 1
		tracks[2].ClusterID = 1

		selected, stats := Assemble(tracks, 6.0)
		if stats.Total != 4 || stats.Scored != 3 || stats.Selected != len(selected) {
			t.Errorf("unexpected totals: %+v", stats)
		}
		if got := stats.MeanScore; got < 6.66 || got > 6.67 {
			t.Errorf("expected mean near 6.67, got %v", got)
		}
		if stats.ScoreDistribution[8] != 2 || stats.ScoreDistribution[4] != 1 {
			t.Errorf("unexpected distribution: %v", stats.ScoreDistribution)
		}
		if stats.Recommendations[models.RecommendYes] != 2 || stats.Recommendations[models.RecommendNo] != 1 {
			t.Errorf("unexpected recommendation counts: %v", stats.Recommendations)
		}
		if stats.ClusterCounts[0] != 1 || stats.ClusterCounts[1] != 1 {
			t.Errorf("unexpected cluster counts: %v", stats.ClusterCounts)
		}
	})

	t.Run("Cluster Counts Cover Selected Tracks Only", func(t *testing.T) {
		rejected := scoredTrack("rejected", 4.0, models.RecommendNo)
		rejected.ClusterID = 1
		unscored := &models.Track{ID: "unscored", Name: "unscored", ClusterID: 1}
		picked := scoredTrack("picked", 8.0, models.RecommendYes)
		picked.ClusterID = 0

		_, stats := Assemble([]*models.Track{picked, rejected, unscored}, 6.0)
		if stats.ClusterCounts[0] != 1 {
			t.Errorf("expected one selected track in cluster 0, got %v", stats.ClusterCounts)
		}
		if _, ok := stats.ClusterCounts[1]; ok {
			t.Errorf("cluster with no selected tracks must not be counted: %v", stats.ClusterCounts)
		}
	})

	t.Run("Empty Selection", func(t *testing.T) {
		selected, stats := Assemble([]*models.Track{scoredTrack("a", 2.0, models.RecommendNo)}, 6.0)
		if len(selected) != 0 || stats.Selected != 0 {
			t.Errorf("expected empty selection, got %v", selected)
		}
	})
}
