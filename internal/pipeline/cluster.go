package pipeline

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/shared"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DescriptorMiscellaneous labels clusters that ended up empty and were
// excluded from centroid-based labeling.
const DescriptorMiscellaneous = "miscellaneous"

const defaultMaxIterations = 100

// ClusterConfig holds the clustering parameters for one run.
type ClusterConfig struct {
	K             int   // target cluster count, must be in [1, number of tracks]
	PCAComponents int   // principal components to retain before partitioning; <=0 skips projection
	Seed          int64 // RNG seed; identical input and seed reproduce assignments
	MaxIterations int   // Lloyd iteration cap, defaults to 100
}

// ClusterInfo summarizes one style group.
type ClusterInfo struct {
	ID               int                `json:"id"`
	Descriptor       string             `json:"descriptor"`
	Size             int                `json:"size"`
	AvgAttributes    map[string]float64 `json:"avg_attributes"`
	SampleTracks     []string           `json:"sample_tracks"`
	AvgPopularity    float64            `json:"avg_popularity"`
	TotalDurationMin float64            `json:"total_duration_min"`
}

// ClusterReport is the cluster → descriptor mapping plus per-cluster stats.
type ClusterReport struct {
	K        int           `json:"k"`
	Clusters []ClusterInfo `json:"clusters"`
}

// Descriptor returns the descriptor for a cluster id, or the miscellaneous
// label for ids the report does not know.
func (r *ClusterReport) Descriptor(id int) string {
	for _, c := range r.Clusters {
		if c.ID == id {
			return c.Descriptor
		}
	}
	return DescriptorMiscellaneous
}

// ValidateClusterCount rejects cluster counts outside [1, trackCount].
// Called before feature extraction so an invalid run spends no quota and
// causes no side effects.
func ValidateClusterCount(k, trackCount int) error {
	if trackCount == 0 {
		return fmt.Errorf("%w: nothing to cluster", shared.ErrEmptyCorpus)
	}
	if k < 1 || k > trackCount {
		return fmt.Errorf("%w: k=%d with %d tracks (want 1..%d)", shared.ErrClusterCount, k, trackCount, trackCount)
	}
	return nil
}

// ClusterTracks partitions the corpus into cfg.K style groups and writes
// ClusterID onto every track. Returns the identity → cluster mapping and
// the cluster report with descriptors.
//
// The standardized feature matrix is optionally projected onto its leading
// principal components for clustering stability; the projection is never
// stored on the track. Assignments are deterministic for a fixed seed, but
// cluster ids are not semantically stable across different k or seed values.
func ClusterTracks(tracks []*models.Track, cfg ClusterConfig) (map[string]int, *ClusterReport, error) {
	if err := ValidateClusterCount(cfg.K, len(tracks)); err != nil {
		return nil, nil, err
	}

	points := make([][]float64, len(tracks))
	for i, t := range tracks {
		if len(t.FeatureVector) == 0 {
			return nil, nil, fmt.Errorf("%w: track %s has no feature vector", shared.ErrInvalidInput, t.ID)
		}
		points[i] = t.FeatureVector
	}

	points = projectPCA(points, cfg.PCAComponents)

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	assignments := partition(points, cfg.K, cfg.Seed, maxIter)

	mapping := make(map[string]int, len(tracks))
	for i, t := range tracks {
		t.ClusterID = assignments[i]
		mapping[t.ID] = assignments[i]
	}

	report := buildReport(tracks, cfg.K)
	return mapping, report, nil
}

// projectPCA projects the row vectors onto their leading principal
// components via thin SVD. Input rows are already standardized, so no
// additional centering is required. Returns the input unchanged when the
// requested component count does not reduce dimensionality.
func projectPCA(points [][]float64, components int) [][]float64 {
	n := len(points)
	d := len(points[0])
	if components <= 0 || components >= d {
		return points
	}
	if components > n {
		components = n
	}

	flat := make([]float64, 0, n*d)
	for _, row := range points {
		flat = append(flat, row...)
	}
	m := mat.NewDense(n, d, flat)

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		// Factorization failure leaves the original space; clustering
		// still proceeds on the full vectors.
		return points
	}

	var v mat.Dense
	svd.VTo(&v)

	var projected mat.Dense
	projected.Mul(m, v.Slice(0, d, 0, components))

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &projected)
	}
	return out
}

// partition runs seeded k-means++ followed by Lloyd iterations. The loop
// owns its rand.Rand so a fixed seed reproduces assignments exactly.
func partition(points [][]float64, k int, seed int64, maxIter int) []int {
	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(points, k, rng)
	assignments := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		dims := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			c := assignments[i]
			counts[c]++
			for d, v := range p {
				sums[c][d] += v
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Empty cluster keeps its centroid; labeling marks it
				// miscellaneous later instead of failing the run.
				continue
			}
			for d := range centroids[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	return assignments
}

// seedCentroids picks initial centroids with the k-means++ weighting.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, append([]float64(nil), first...))

	for len(centroids) < k {
		weights := make([]float64, len(points))
		total := 0.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if dist := squaredDistance(p, c); dist < d {
					d = dist
				}
			}
			weights[i] = d
			total += d
		}

		var next []float64
		if total == 0 {
			next = points[rng.Intn(len(points))]
		} else {
			target := rng.Float64() * total
			acc := 0.0
			next = points[len(points)-1]
			for i, w := range weights {
				acc += w
				if acc >= target {
					next = points[i]
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), next...))
	}

	return centroids
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(p, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

// buildReport derives per-cluster statistics and descriptors from the raw
// acoustic attributes of each cluster's members.
func buildReport(tracks []*models.Track, k int) *ClusterReport {
	report := &ClusterReport{K: k, Clusters: make([]ClusterInfo, 0, k)}

	for id := 0; id < k; id++ {
		var members []*models.Track
		for _, t := range tracks {
			if t.ClusterID == id {
				members = append(members, t)
			}
		}

		info := ClusterInfo{ID: id, Size: len(members)}
		if len(members) == 0 {
			info.Descriptor = DescriptorMiscellaneous
			report.Clusters = append(report.Clusters, info)
			continue
		}

		info.AvgAttributes = averageAttributes(members)
		info.Descriptor = describeStyle(info.AvgAttributes)

		popularity := make([]float64, 0, len(members))
		totalMS := 0
		for _, t := range members {
			popularity = append(popularity, float64(t.Popularity))
			totalMS += t.DurationMS
		}
		info.AvgPopularity = stat.Mean(popularity, nil)
		info.TotalDurationMin = float64(totalMS) / (1000 * 60)

		for _, t := range members[:min(3, len(members))] {
			info.SampleTracks = append(info.SampleTracks, fmt.Sprintf("%s - %s", t.Name, t.Artist()))
		}

		report.Clusters = append(report.Clusters, info)
	}

	return report
}

// averageAttributes means each schema attribute over the members that carry
// it; attributes no member carries are omitted.
func averageAttributes(members []*models.Track) map[string]float64 {
	avg := make(map[string]float64, len(FeatureSchema))
	for _, name := range FeatureSchema {
		sum := 0.0
		count := 0
		for _, t := range members {
			if v, ok := t.Attributes[name]; ok {
				sum += v
				count++
			}
		}
		if count > 0 {
			avg[name] = sum / float64(count)
		}
	}
	return avg
}

// describeStyle derives a human-readable style descriptor from a cluster's
// average attributes. Pure function of the centroid, no external call.
func describeStyle(attrs map[string]float64) string {
	var elements []string

	if energy, ok := attrs["energy"]; ok {
		switch {
		case energy > 0.7 && attrs["danceability"] > 0.7:
			elements = append(elements, "High-energy dance")
		case energy > 0.6:
			elements = append(elements, "Energetic")
		case energy < 0.4:
			elements = append(elements, "Mellow")
		}
	}

	if v, ok := attrs["valence"]; ok {
		if v > 0.7 {
			elements = append(elements, "upbeat")
		} else if v < 0.4 {
			elements = append(elements, "melancholic")
		}
	}

	if attrs["acousticness"] > 0.6 {
		elements = append(elements, "acoustic")
	}
	if attrs["instrumentalness"] > 0.5 {
		elements = append(elements, "instrumental")
	}

	if t, ok := attrs["tempo"]; ok {
		if t > 140 {
			elements = append(elements, "fast-paced")
		} else if t < 90 {
			elements = append(elements, "slow-tempo")
		}
	}

	if len(elements) == 0 {
		return "Mixed style"
	}
	return strings.Join(elements, " ")
}
