package pipeline

import "github.com/avelara/setlist/internal/models"

// Normalize folds raw provider records into canonical tracks.
//
// Records lacking a provider-stable identity are dropped and counted, never
// fatal. Later records with an identity already seen merge field-by-field
// onto the existing track, so a top-tracks source and a saved-tracks source
// can each contribute the fields they carry. Output preserves insertion
// order of first occurrence; downstream stages treat that order as
// display-only.
func Normalize(records []models.RawRecord) ([]*models.Track, int) {
	byID := make(map[string]*models.Track, len(records))
	order := make([]*models.Track, 0, len(records))
	dropped := 0

	for _, record := range records {
		id := record.Identity()
		if id == "" {
			dropped++
			continue
		}

		track, ok := byID[id]
		if !ok {
			track = &models.Track{ID: id, ClusterID: models.ClusterUnassigned}
			byID[id] = track
			order = append(order, track)
		}
		record.Apply(track)
	}

	return order, dropped
}
