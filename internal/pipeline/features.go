package pipeline

import (
	"fmt"
	"math"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/shared"
	"gonum.org/v1/gonum/stat"
)

// FeatureSchema is the fixed ordered list of acoustic attributes encoded
// into every feature vector. The order is stable across a run so cluster
// centroids stay interpretable.
var FeatureSchema = []string{
	"danceability",
	"energy",
	"loudness",
	"speechiness",
	"acousticness",
	"instrumentalness",
	"liveness",
	"valence",
	"tempo",
}

// ExtractFeatures writes a standardized feature vector onto every track and
// returns the vectors keyed by track identity.
//
// Missing attributes are imputed with the corpus mean for that attribute,
// computed over tracks that have it; an attribute absent from the whole
// corpus is imputed as zero. After imputation each dimension is standardized
// to zero mean and unit variance across the corpus; a zero-variance
// dimension is left at zero after centering. Every vector has length
// len(FeatureSchema) and contains no NaN.
func ExtractFeatures(tracks []*models.Track) (map[string][]float64, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: cannot extract features", shared.ErrEmptyCorpus)
	}

	n := len(tracks)
	dims := len(FeatureSchema)

	// Column-major working copy: one slice per feature dimension.
	columns := make([][]float64, dims)
	for d, name := range FeatureSchema {
		column := make([]float64, n)

		var present []float64
		for _, t := range tracks {
			if v, ok := t.Attributes[name]; ok {
				present = append(present, v)
			}
		}
		fill := 0.0
		if len(present) > 0 {
			fill = stat.Mean(present, nil)
		}

		for i, t := range tracks {
			if v, ok := t.Attributes[name]; ok {
				column[i] = v
			} else {
				column[i] = fill
			}
		}
		columns[d] = column
	}

	for _, column := range columns {
		mean, std := stat.MeanStdDev(column, nil)
		for i := range column {
			column[i] -= mean
		}
		if n < 2 || std == 0 || math.IsNaN(std) {
			// Zero variance: centering already zeroed the column, but
			// floating point can leave residue worth clearing.
			for i := range column {
				column[i] = 0
			}
			continue
		}
		for i := range column {
			column[i] /= std
		}
	}

	vectors := make(map[string][]float64, n)
	for i, t := range tracks {
		vector := make([]float64, dims)
		for d := range columns {
			vector[d] = columns[d][i]
		}
		t.FeatureVector = vector
		vectors[t.ID] = vector
	}

	return vectors, nil
}
