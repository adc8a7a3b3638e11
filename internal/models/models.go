package models

import "strings"

// Recommendation is the AI's categorical judgment for a track.
type Recommendation string

const (
	RecommendYes   Recommendation = "yes"
	RecommendMaybe Recommendation = "maybe"
	RecommendNo    Recommendation = "no"
)

// ParseRecommendation normalizes free-form recommendation text from the
// scoring service. Returns false for anything outside yes/maybe/no.
func ParseRecommendation(s string) (Recommendation, bool) {
	switch Recommendation(strings.ToLower(strings.TrimSpace(s))) {
	case RecommendYes:
		return RecommendYes, true
	case RecommendMaybe:
		return RecommendMaybe, true
	case RecommendNo:
		return RecommendNo, true
	default:
		return "", false
	}
}

// ClusterUnassigned is the ClusterID value of a track before clustering runs.
const ClusterUnassigned = -1

// Track is the canonical in-memory record for one song, merged from one or
// more provider records. The pipeline stages mutate it in place: the
// extractor writes FeatureVector, the clusterer writes ClusterID, the
// validator writes the AI fields. A track that fails AI validation keeps
// AIScore nil, distinguishable from a legitimately low score.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Popularity int      `json:"popularity"`

	// Acoustic attributes keyed by feature name (danceability, energy, ...).
	// Keys may be absent for a given track.
	Attributes map[string]float64 `json:"attributes,omitempty"`

	// Enrichment attributes, added by optional metadata sources.
	Tags          []string `json:"tags,omitempty"`
	SimilarTracks []string `json:"similar_tracks,omitempty"`
	ListenerCount int      `json:"listener_count,omitempty"`

	// Derived attributes, written by the pipeline and never by providers.
	FeatureVector    []float64      `json:"feature_vector,omitempty"`
	ClusterID        int            `json:"cluster_id"`
	AIScore          *float64       `json:"ai_score,omitempty"`
	AIRecommendation Recommendation `json:"ai_recommendation,omitempty"`
	AIReasoning      string         `json:"ai_reasoning,omitempty"`
}

// Artist returns the display form of the track's artist sequence.
func (t *Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Scored reports whether the AI validator assigned this track a score.
func (t *Track) Scored() bool {
	return t.AIScore != nil
}

// Verdict is one track's parsed result from a scoring response.
type Verdict struct {
	Score          float64
	Recommendation Recommendation
	Reasoning      string
}

// Enrichment holds optional metadata contributed by an external source such
// as Last.fm. A nil Enrichment means the source had nothing for the track.
type Enrichment struct {
	Tags          []string `json:"tags,omitempty"`
	SimilarTracks []string `json:"similar_tracks,omitempty"`
	Listeners     int      `json:"listeners,omitempty"`
	Playcount     int      `json:"playcount,omitempty"`
}

// ApplyTo copies the enrichment onto a track.
func (e *Enrichment) ApplyTo(t *Track) {
	if e == nil {
		return
	}
	if len(e.Tags) > 0 {
		t.Tags = e.Tags
	}
	if len(e.SimilarTracks) > 0 {
		t.SimilarTracks = e.SimilarTracks
	}
	if e.Listeners > 0 {
		t.ListenerCount = e.Listeners
	}
}

// RawRecord is a provider-specific track record. Each catalog source
// produces its own variant; the normalizer folds them into canonical Tracks
// with a field-level merge so complementary sources can each contribute the
// fields they carry.
type RawRecord interface {
	// Identity returns the provider-stable track identity, or "" when the
	// record lacks one and must be dropped.
	Identity() string

	// Apply merges the record's present fields onto the canonical track.
	Apply(t *Track)
}

// TopTrackRecord is a raw record from the listener's top-tracks ranking.
type TopTrackRecord struct {
	ID         string
	Name       string
	Artists    []string
	Album      string
	DurationMS int
	Popularity int
	Attributes map[string]float64
}

func (r TopTrackRecord) Identity() string { return r.ID }

func (r TopTrackRecord) Apply(t *Track) {
	applyCommon(t, r.Name, r.Artists, r.Album, r.DurationMS, r.Popularity, r.Attributes)
}

// SavedTrackRecord is a raw record from the listener's saved library.
type SavedTrackRecord struct {
	ID         string
	AddedAt    string
	Name       string
	Artists    []string
	Album      string
	DurationMS int
	Popularity int
	Attributes map[string]float64
}

func (r SavedTrackRecord) Identity() string { return r.ID }

func (r SavedTrackRecord) Apply(t *Track) {
	applyCommon(t, r.Name, r.Artists, r.Album, r.DurationMS, r.Popularity, r.Attributes)
}

// applyCommon merges the fields shared by all record variants. Later records
// win only for fields they actually carry; zero values leave the earlier
// contribution intact. Attributes merge per key.
func applyCommon(t *Track, name string, artists []string, album string, durationMS, popularity int, attrs map[string]float64) {
	if name != "" {
		t.Name = name
	}
	if len(artists) > 0 {
		t.Artists = artists
	}
	if album != "" {
		t.Album = album
	}
	if durationMS > 0 {
		t.DurationMS = durationMS
	}
	if popularity > 0 {
		t.Popularity = popularity
	}
	if len(attrs) > 0 {
		if t.Attributes == nil {
			t.Attributes = make(map[string]float64, len(attrs))
		}
		for k, v := range attrs {
			t.Attributes[k] = v
		}
	}
}

// Playlist represents a playlist created on the sink service.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
}
