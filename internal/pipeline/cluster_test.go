package pipeline

import (
	"errors"
	"testing"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/shared"
)

func TestValidateClusterCount(t *testing.T) {
	tc := []struct {
		name       string
		k          int
		trackCount int
		wantErr    error
	}{
		{name: "valid", k: 3, trackCount: 10, wantErr: nil},
		{name: "k equals track count", k: 10, trackCount: 10, wantErr: nil},
		{name: "k exceeds track count", k: 12, trackCount: 10, wantErr: shared.ErrClusterCount},
		{name: "k zero", k: 0, trackCount: 10, wantErr: shared.ErrClusterCount},
		{name: "k negative", k: -1, trackCount: 10, wantErr: shared.ErrClusterCount},
		{name: "empty corpus", k: 3, trackCount: 0, wantErr: shared.ErrEmptyCorpus},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateClusterCount(tt.k, tt.trackCount)
			if tt.wantErr == nil && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// clusterCorpus builds two well-separated groups of tracks with extracted features.
func clusterCorpus(t *testing.T) []*models.Track {
	t.Helper()

	tracks := []*models.Track{}
	for i := 0; i < 6; i++ {
		attrs := fullAttributes(1)
		attrs["energy"] = 0.9 - float64(i)*0.01
		attrs["danceability"] = 0.85
		attrs["tempo"] = 150
		tracks = append(tracks, featureTrack("dance-"+string(rune('a'+i)), attrs))
	}
	for i := 0; i < 6; i++ {
		attrs := fullAttributes(1)
		attrs["energy"] = 0.2 + float64(i)*0.01
		attrs["danceability"] = 0.2
		attrs["tempo"] = 80
		tracks = append(tracks, featureTrack("calm-"+string(rune('a'+i)), attrs))
	}

	if _, err := ExtractFeatures(tracks); err != nil {
		t.Fatalf("feature extraction failed: %v", err)
	}
	return tracks
}

func TestClusterTracks(t *testing.T) {
	t.Run("Rejects Invalid K Before Clustering", func(t *testing.T) {
		tracks := clusterCorpus(t)
		if _, _, err := ClusterTracks(tracks, ClusterConfig{K: len(tracks) + 2, Seed: 42}); !errors.Is(err, shared.ErrClusterCount) {
			t.Errorf("expected ErrClusterCount, got %v", err)
		}
	})

	t.Run("Requires Feature Vectors", func(t *testing.T) {
		tracks := []*models.Track{{ID: "a"}, {ID: "b"}}
		if _, _, err := ClusterTracks(tracks, ClusterConfig{K: 1, Seed: 42}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Assignments Are In Range And Complete", func(t *testing.T) {
		tracks := clusterCorpus(t)
		k := 2

		mapping, report, err := ClusterTracks(tracks, ClusterConfig{K: k, PCAComponents: 5, Seed: 42})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(mapping) != len(tracks) {
			t.Errorf("expected %d assignments, got %d", len(tracks), len(mapping))
		}
		for _, track := range tracks {
			if track.ClusterID < 0 || track.ClusterID >= k {
				t.Errorf("track %s assigned out-of-range cluster %d", track.ID, track.ClusterID)
			}
			if mapping[track.ID] != track.ClusterID {
				t.Errorf("mapping and track disagree for %s", track.ID)
			}
		}
		if report.K != k || len(report.Clusters) != k {
			t.Errorf("expected report with %d clusters, got %+v", k, report)
		}
	})

	t.Run("Deterministic For Fixed Seed", func(t *testing.T) {
		first := clusterCorpus(t)
		second := clusterCorpus(t)

		mapping1, _, err := ClusterTracks(first, ClusterConfig{K: 3, PCAComponents: 5, Seed: 42})
		if err != nil {
			t.Fatal(err)
		}
		mapping2, _, err := ClusterTracks(second, ClusterConfig{K: 3, PCAComponents: 5, Seed: 42})
		if err != nil {
			t.Fatal(err)
		}

		for id, cluster := range mapping1 {
			if mapping2[id] != cluster {
				t.Fatalf("assignments differ for %s: %d vs %d", id, cluster, mapping2[id])
			}
		}
	})

	t.Run("Separates Obvious Groups", func(t *testing.T) {
		tracks := clusterCorpus(t)
		mapping, _, err := ClusterTracks(tracks, ClusterConfig{K: 2, Seed: 42})
		if err != nil {
			t.Fatal(err)
		}

		danceCluster := mapping["dance-a"]
		for id, cluster := range mapping {
			isDance := cluster == danceCluster
			wantDance := id[0] == 'd'
			if isDance != wantDance {
				t.Errorf("track %s landed in the wrong group", id)
			}
		}
	})
}

func TestDescribeStyle(t *testing.T) {
	tc := []struct {
		name  string
		attrs map[string]float64
		want  string
	}{
		{
			name:  "high energy dance",
			attrs: map[string]float64{"energy": 0.8, "danceability": 0.8, "valence": 0.5, "tempo": 120},
			want:  "High-energy dance",
		},
		{
			name:  "energetic upbeat",
			attrs: map[string]float64{"energy": 0.65, "danceability": 0.5, "valence": 0.8, "tempo": 120},
			want:  "Energetic upbeat",
		},
		{
			name:  "mellow melancholic acoustic",
			attrs: map[string]float64{"energy": 0.3, "valence": 0.3, "acousticness": 0.7, "tempo": 100},
			want:  "Mellow melancholic acoustic",
		},
		{
			name:  "instrumental fast paced",
			attrs: map[string]float64{"energy": 0.5, "valence": 0.5, "instrumentalness": 0.6, "tempo": 150},
			want:  "instrumental fast-paced",
		},
		{
			name:  "slow tempo",
			attrs: map[string]float64{"energy": 0.5, "valence": 0.5, "tempo": 80},
			want:  "slow-tempo",
		},
		{
			name:  "nothing distinctive",
			attrs: map[string]float64{"energy": 0.5, "valence": 0.5, "tempo": 120},
			want:  "Mixed style",
		},
		{
			name:  "missing attributes never trigger thresholds",
			attrs: map[string]float64{},
			want:  "Mixed style",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeStyle(tt.attrs); got != tt.want {
				t.Errorf("describeStyle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildReportEmptyCluster(t *testing.T) {
	// Assignments skip cluster 1, leaving it with zero members.
	tracks := []*models.Track{
		featureTrack("a", fullAttributes(1)),
		featureTrack("b", fullAttributes(1)),
		featureTrack("c", fullAttributes(1)),
	}
	tracks[0].ClusterID = 0
	tracks[1].ClusterID = 0
	tracks[2].ClusterID = 2

	report := buildReport(tracks, 3)
	if len(report.Clusters) != 3 {
		t.Fatalf("expected 3 clusters in report, got %d", len(report.Clusters))
	}

	empty := report.Clusters[1]
	if empty.Size != 0 {
		t.Errorf("expected empty cluster, got size %d", empty.Size)
	}
	if empty.Descriptor != DescriptorMiscellaneous {
		t.Errorf("empty cluster must be labeled miscellaneous, got %q", empty.Descriptor)
	}
	if empty.AvgAttributes != nil || empty.SampleTracks != nil || empty.AvgPopularity != 0 || empty.TotalDurationMin != 0 {
		t.Errorf("empty cluster must carry no centroid stats: %+v", empty)
	}

	if report.Clusters[0].Size != 2 || report.Clusters[2].Size != 1 {
		t.Errorf("populated clusters miscounted: %+v", report.Clusters)
	}
	if report.Clusters[0].Descriptor == DescriptorMiscellaneous {
		t.Errorf("populated cluster must get a centroid descriptor, got %q", report.Clusters[0].Descriptor)
	}
}

func TestClusterTracksEmptyClusterSurvives(t *testing.T) {
	// Three identical points with k=3: k-means++ reuses the same point for
	// every centroid, so at least one cluster ends up empty. The run must
	// still produce a full report.
	tracks := []*models.Track{
		featureTrack("a", fullAttributes(1)),
		featureTrack("b", fullAttributes(1)),
		featureTrack("c", fullAttributes(1)),
	}
	if _, err := ExtractFeatures(tracks); err != nil {
		t.Fatal(err)
	}

	_, report, err := ClusterTracks(tracks, ClusterConfig{K: 3, Seed: 42})
	if err != nil {
		t.Fatalf("empty cluster must not fail the run: %v", err)
	}
	if len(report.Clusters) != 3 {
		t.Fatalf("expected 3 clusters in report, got %d", len(report.Clusters))
	}

	emptyClusters := 0
	for _, cluster := range report.Clusters {
		if cluster.Size == 0 {
			emptyClusters++
			if cluster.Descriptor != DescriptorMiscellaneous {
				t.Errorf("empty cluster %d labeled %q", cluster.ID, cluster.Descriptor)
			}
		}
	}
	if emptyClusters == 0 {
		t.Error("expected at least one empty cluster with identical points")
	}
}

func TestClusterReportDescriptor(t *testing.T) {
	report := &ClusterReport{K: 1, Clusters: []ClusterInfo{{ID: 0, Descriptor: "Energetic"}}}

	if got := report.Descriptor(0); got != "Energetic" {
		t.Errorf("expected Energetic, got %q", got)
	}
	if got := report.Descriptor(7); got != DescriptorMiscellaneous {
		t.Errorf("expected miscellaneous fallback, got %q", got)
	}
}
