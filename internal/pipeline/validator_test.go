package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/shared"
	mocks "github.com/avelara/setlist/internal/testing"
)

func validatorTracks(n int) []*models.Track {
	tracks := make([]*models.Track, n)
	for i := range tracks {
		tracks[i] = &models.Track{
			ID:      fmt.Sprintf("track-%d", i),
			Name:    fmt.Sprintf("Track %d", i),
			Artists: []string{"Artist"},
			Attributes: map[string]float64{
				"danceability": 0.7, "energy": 0.8, "valence": 0.6, "tempo": 120,
			},
		}
	}
	return tracks
}

func scoreJSON(tracks []*models.Track, scores map[string]float64) string {
	var b strings.Builder
	b.WriteString("Here are the results:\n[")
	first := true
	for i, track := range tracks {
		score, ok := scores[track.ID]
		if !ok {
			continue
		}
		if !first {
			b.WriteString(",")
		}
		first = false
		fmt.Fprintf(&b, `{"track_number": %d, "id": %q, "party_score": %v, "reasoning": "fits", "recommendation": "yes"}`,
			i+1, track.ID, score)
	}
	b.WriteString("]")
	return b.String()
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func newTestValidator(scorer *mocks.MockScorer, attempts int) *Validator {
	return NewValidator(scorer, ValidatorOpts{
		Policy:      fastPolicy(attempts),
		MinInterval: time.Millisecond,
	})
}

func TestValidator(t *testing.T) {
	t.Run("Scores Full Batch", func(t *testing.T) {
		tracks := validatorTracks(3)
		scorer := &mocks.MockScorer{Responses: []string{scoreJSON(tracks, map[string]float64{
			"track-0": 8, "track-1": 5.5, "track-2": 3,
		})}}

		result, err := newTestValidator(scorer, 3).Validate(context.Background(), tracks, nil, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ScoredTracks != 3 || result.UnscoredTracks != 0 {
			t.Errorf("expected 3 scored, got %+v", result)
		}
		if !tracks[1].Scored() || *tracks[1].AIScore != 5.5 {
			t.Errorf("expected track-1 scored 5.5, got %v", tracks[1].AIScore)
		}
		if tracks[0].AIRecommendation != models.RecommendYes {
			t.Errorf("expected yes recommendation, got %q", tracks[0].AIRecommendation)
		}
	})

	t.Run("Partial Response Leaves Missing Tracks Unscored", func(t *testing.T) {
		tracks := validatorTracks(5)
		scorer := &mocks.MockScorer{Responses: []string{scoreJSON(tracks, map[string]float64{
			"track-0": 8, "track-1": 7, "track-2": 6, "track-3": 5,
		})}}

		result, err := newTestValidator(scorer, 3).Validate(context.Background(), tracks, nil, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ScoredTracks != 4 || result.UnscoredTracks != 1 {
			t.Errorf("expected 4 scored / 1 unscored, got %+v", result)
		}
		if tracks[4].Scored() {
			t.Error("expected track-4 to stay unscored")
		}
		if result.FailedBatches != 0 {
			t.Error("partial parse must not fail the batch")
		}
	})

	t.Run("Retries Transient Failure Then Succeeds", func(t *testing.T) {
		tracks := validatorTracks(2)
		good := scoreJSON(tracks, map[string]float64{"track-0": 9, "track-1": 7})
		scorer := &mocks.MockScorer{
			Errs:      []error{errors.New("connection reset"), nil},
			Responses: []string{"", good},
		}

		result, err := newTestValidator(scorer, 3).Validate(context.Background(), tracks, nil, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if scorer.Calls != 2 {
			t.Errorf("expected 2 attempts, got %d", scorer.Calls)
		}
		if result.ScoredTracks != 2 {
			t.Errorf("expected both tracks scored after retry, got %+v", result)
		}
	})

	t.Run("Exhausted Retries Leave Batch Unscored And Continue", func(t *testing.T) {
		tracks := validatorTracks(4)
		boom := errors.New("boom")
		good := scoreJSON(tracks[2:], map[string]float64{"track-2": 8, "track-3": 7})
		scorer := &mocks.MockScorer{
			Errs:      []error{boom, boom, boom, nil},
			Responses: []string{"", "", "", good},
		}

		validator := newTestValidator(scorer, 3)
		result, err := validator.Validate(context.Background(), tracks, nil, 2)
		if err != nil {
			t.Fatalf("terminal batch failure must not abort the run: %v", err)
		}
		if result.FailedBatches != 1 {
			t.Errorf("expected 1 failed batch, got %d", result.FailedBatches)
		}
		if tracks[0].Scored() || tracks[1].Scored() {
			t.Error("failed batch tracks must stay unscored")
		}
		if !tracks[2].Scored() || !tracks[3].Scored() {
			t.Error("second batch should still run after the first fails")
		}
	})

	t.Run("Auth Failure Aborts The Pass", func(t *testing.T) {
		tracks := validatorTracks(4)
		scorer := &mocks.MockScorer{Errs: []error{shared.ErrAuthFailed}, Responses: []string{""}}

		_, err := newTestValidator(scorer, 3).Validate(context.Background(), tracks, nil, 2)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if scorer.Calls != 1 {
			t.Errorf("permanent failure must not retry, got %d calls", scorer.Calls)
		}
	})

	t.Run("Invalid Batch Size", func(t *testing.T) {
		scorer := &mocks.MockScorer{Responses: []string{"[]"}}
		if _, err := newTestValidator(scorer, 3).Validate(context.Background(), validatorTracks(2), nil, 0); !errors.Is(err, shared.ErrBatchSize) {
			t.Errorf("expected ErrBatchSize, got %v", err)
		}
	})

	t.Run("Retains Audit For Every Batch", func(t *testing.T) {
		tracks := validatorTracks(4)
		boom := errors.New("boom")
		good := scoreJSON(tracks[:2], map[string]float64{"track-0": 8, "track-1": 7})
		scorer := &mocks.MockScorer{
			Errs:      []error{nil, boom, boom},
			Responses: []string{good, "", ""},
		}

		validator := newTestValidator(scorer, 2)
		if _, err := validator.Validate(context.Background(), tracks, nil, 2); err != nil {
			t.Fatal(err)
		}

		audits := validator.Audits()
		if len(audits) != 2 {
			t.Fatalf("expected 2 audits, got %d", len(audits))
		}
		if audits[0].Seq != 0 || audits[0].State != BatchScored || audits[0].Response == "" {
			t.Errorf("unexpected first audit: %+v", audits[0])
		}
		if audits[1].State != BatchFailed || audits[1].Attempts != 2 || audits[1].Error == "" {
			t.Errorf("unexpected second audit: %+v", audits[1])
		}
		if audits[1].Request == "" {
			t.Error("failed batch must retain its outbound request")
		}
	})
}

func TestBuildBatchPrompt(t *testing.T) {
	tracks := validatorTracks(2)
	tracks[0].ClusterID = 0
	report := &ClusterReport{K: 1, Clusters: []ClusterInfo{{ID: 0, Descriptor: "High-energy dance"}}}

	prompt := BuildBatchPrompt(tracks, report)

	for _, want := range []string{"Track 0", "track-0", "High-energy dance", "party_score", "recommendation"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestParseScoreResponse(t *testing.T) {
	ids := []string{"a", "b", "c"}

	t.Run("Prose Wrapped Array", func(t *testing.T) {
		response := `Sure! Here is my analysis:
[{"track_number": 1, "id": "a", "party_score": 8, "reasoning": "great", "recommendation": "yes"}]
Let me know if you need more.`

		verdicts, err := ParseScoreResponse(response, ids)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if verdicts["a"].Score != 8 || verdicts["a"].Recommendation != models.RecommendYes {
			t.Errorf("unexpected verdict: %+v", verdicts["a"])
		}
	})

	t.Run("Track Number Fallback", func(t *testing.T) {
		response := `[{"track_number": 2, "party_score": 6, "reasoning": "ok", "recommendation": "maybe"}]`

		verdicts, err := ParseScoreResponse(response, ids)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := verdicts["b"]; !ok {
			t.Errorf("expected track_number 2 to resolve to id b, got %v", verdicts)
		}
	})

	t.Run("Invalid Entries Are Dropped", func(t *testing.T) {
		response := `[
			{"id": "a", "party_score": 11, "reasoning": "too high", "recommendation": "yes"},
			{"id": "b", "party_score": 7, "reasoning": "fine", "recommendation": "definitely"},
			{"track_number": 9, "party_score": 5, "reasoning": "unknown track", "recommendation": "no"},
			{"id": "c", "party_score": 5, "reasoning": "", "recommendation": "no"}
		]`

		verdicts, err := ParseScoreResponse(response, ids)
		if err != nil {
			t.Fatal(err)
		}
		if len(verdicts) != 1 {
			t.Fatalf("expected only c to survive, got %v", verdicts)
		}
		if verdicts["c"].Reasoning != "No reasoning provided" {
			t.Errorf("expected default reasoning, got %q", verdicts["c"].Reasoning)
		}
	})

	t.Run("No Array", func(t *testing.T) {
		if _, err := ParseScoreResponse("I cannot help with that.", ids); err == nil {
			t.Error("expected error for response without JSON array")
		}
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		if _, err := ParseScoreResponse(`[{"id": "a", "party_score": }]`, ids); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}
