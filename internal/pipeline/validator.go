package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/avelara/setlist/internal/models"
	"github.com/avelara/setlist/internal/services"
	"github.com/avelara/setlist/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// systemPrompt frames the scoring service as a party-music expert.
const systemPrompt = "You are a music expert specializing in party and wedding playlists. " +
	"Analyze tracks for their suitability in creating an energetic, fun party atmosphere."

// BatchState tracks one batch through the validator's state machine.
type BatchState int

const (
	BatchPending BatchState = iota
	BatchSent
	BatchScored
	BatchFailed
)

func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchSent:
		return "sent"
	case BatchScored:
		return "scored"
	case BatchFailed:
		return "failed"
	default:
		return ""
	}
}

// RetryPolicy controls per-batch retries against the scoring service.
type RetryPolicy struct {
	MaxAttempts int           // attempts per batch before terminal failure
	BaseDelay   time.Duration // first backoff delay, doubled per attempt
	Jitter      float64       // random extra fraction of the delay, 0 disables
}

// DefaultRetryPolicy matches the scoring service's documented limits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, Jitter: 0.25}
}

// delay computes the backoff before retrying the given 1-based attempt.
func (p RetryPolicy) delay(attempt int, rng *rand.Rand) time.Duration {
	d := p.BaseDelay * time.Duration(1<<(attempt-1))
	if p.Jitter > 0 && rng != nil {
		d += time.Duration(float64(d) * p.Jitter * rng.Float64())
	}
	return d
}

// BatchAudit retains one batch's full outbound request and inbound response
// for the run report, regardless of per-track parse success.
type BatchAudit struct {
	Seq      int        `json:"seq"`
	TrackIDs []string   `json:"track_ids"`
	Request  string     `json:"request"`
	Response string     `json:"response,omitempty"`
	State    BatchState `json:"-"`
	StateStr string     `json:"state"`
	Attempts int        `json:"attempts"`
	Error    string     `json:"error,omitempty"`
}

// ValidationResult summarizes a validation pass over the working set.
type ValidationResult struct {
	Batches          int
	ScoredTracks     int
	UnscoredTracks   int
	FailedBatches    int
	MalformedEntries int
}

// ValidatorOpts configures a [Validator].
type ValidatorOpts struct {
	Policy      RetryPolicy
	MinInterval time.Duration // minimum spacing between batch requests
	Logger      *log.Logger
}

// Validator batches tracks to the AI scoring service and writes the parsed
// verdicts back onto them. Batches are processed sequentially: the service
// imposes a shared rate limit, and serializing is what keeps the run inside
// it without a token bucket shared across goroutines.
type Validator struct {
	scorer  services.Scorer
	policy  RetryPolicy
	limiter *rate.Limiter
	logger  *log.Logger
	rng     *rand.Rand
	audits  []BatchAudit
}

// NewValidator creates a Validator for the given scoring service.
func NewValidator(scorer services.Scorer, opts ValidatorOpts) *Validator {
	policy := opts.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	interval := opts.MinInterval
	if interval <= 0 {
		interval = time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "stage", "validate")

	return &Validator{
		scorer:  scorer,
		policy:  policy,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Audits returns every batch's retained request/response audit, in batch
// sequence order.
func (v *Validator) Audits() []BatchAudit {
	return v.audits
}

// Validate scores the working set in batches of at most batchSize.
//
// Each batch moves PENDING → SENT → SCORED or FAILED. A failed send is
// retried with exponential backoff up to the policy ceiling; a terminally
// failed batch leaves its tracks unscored and the run moves on to the next
// batch. A response entry that cannot be parsed for one track is an
// individual failure inside an otherwise successful batch. Only permanent
// errors (authentication) or context cancellation abort the pass.
func (v *Validator) Validate(ctx context.Context, tracks []*models.Track, report *ClusterReport, batchSize int) (*ValidationResult, error) {
	if v.scorer == nil {
		return nil, fmt.Errorf("%w: scoring service not initialized", shared.ErrServiceUnavailable)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", shared.ErrBatchSize, batchSize)
	}

	result := &ValidationResult{}

	for start := 0; start < len(tracks); start += batchSize {
		end := start + batchSize
		if end > len(tracks) {
			end = len(tracks)
		}
		batch := tracks[start:end]
		seq := result.Batches
		result.Batches++

		scored, malformed, err := v.runBatch(ctx, seq, batch, report)
		result.ScoredTracks += scored
		result.UnscoredTracks += len(batch) - scored
		result.MalformedEntries += malformed
		if err != nil {
			if errors.Is(err, shared.ErrAuthFailed) || ctx.Err() != nil {
				return result, err
			}
			result.FailedBatches++
			v.logger.Warn("batch failed, continuing", "batch", seq, "tracks", len(batch), "err", err)
		}
	}

	return result, nil
}

// runBatch drives one batch through the state machine. Returns the number
// of tracks scored and malformed response entries; err is non-nil when the
// batch terminated FAILED.
func (v *Validator) runBatch(ctx context.Context, seq int, batch []*models.Track, report *ClusterReport) (int, int, error) {
	ids := make([]string, len(batch))
	for i, t := range batch {
		ids[i] = t.ID
	}

	request := BuildBatchPrompt(batch, report)
	audit := BatchAudit{Seq: seq, TrackIDs: ids, Request: request, State: BatchPending}

	var lastErr error
	for attempt := 1; attempt <= v.policy.MaxAttempts; attempt++ {
		if err := v.limiter.Wait(ctx); err != nil {
			audit.State = BatchFailed
			audit.Error = err.Error()
			v.retain(audit)
			return 0, 0, err
		}

		audit.State = BatchSent
		audit.Attempts = attempt

		response, err := v.scorer.Score(ctx, systemPrompt, request)
		if err != nil {
			lastErr = err
			audit.Error = err.Error()
			if errors.Is(err, shared.ErrAuthFailed) {
				audit.State = BatchFailed
				v.retain(audit)
				return 0, 0, err
			}
			if attempt < v.policy.MaxAttempts {
				v.logger.Warn("scoring attempt failed, retrying",
					"batch", seq, "attempt", attempt, "max", v.policy.MaxAttempts, "err", err)
				if err := sleepWithContext(ctx, v.policy.delay(attempt, v.rng)); err != nil {
					audit.State = BatchFailed
					v.retain(audit)
					return 0, 0, err
				}
			}
			continue
		}

		audit.Response = response

		verdicts, perr := ParseScoreResponse(response, ids)
		if perr != nil {
			// A wholly unusable response gets the same retry treatment as
			// a transport failure; a fresh completion often parses fine.
			lastErr = perr
			audit.Error = perr.Error()
			if attempt < v.policy.MaxAttempts {
				v.logger.Warn("unparsable scoring response, retrying", "batch", seq, "attempt", attempt, "err", perr)
				if err := sleepWithContext(ctx, v.policy.delay(attempt, v.rng)); err != nil {
					audit.State = BatchFailed
					v.retain(audit)
					return 0, 0, err
				}
			}
			continue
		}

		scored := 0
		for _, t := range batch {
			verdict, ok := verdicts[t.ID]
			if !ok {
				continue
			}
			score := verdict.Score
			t.AIScore = &score
			t.AIRecommendation = verdict.Recommendation
			t.AIReasoning = verdict.Reasoning
			scored++
		}

		audit.State = BatchScored
		audit.Error = ""
		v.retain(audit)
		return scored, len(batch) - scored, nil
	}

	audit.State = BatchFailed
	v.retain(audit)
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: batch %d exhausted retries", shared.ErrAPIRequest, seq)
	}
	return 0, 0, lastErr
}

func (v *Validator) retain(audit BatchAudit) {
	audit.StateStr = audit.State.String()
	v.audits = append(v.audits, audit)
}

// BuildBatchPrompt renders one batch into the structured request sent to
// the scoring service: per-track acoustic attributes, cluster descriptor,
// and basic metadata, plus the JSON response contract.
func BuildBatchPrompt(batch []*models.Track, report *ClusterReport) string {
	var b strings.Builder

	b.WriteString("Analyze the following tracks for their suitability in a wedding/party playlist.\n")
	b.WriteString("Consider factors like danceability, energy, mood, and overall party atmosphere.\n\n")
	b.WriteString("For each track, provide:\n")
	b.WriteString("1. party_score (1-10): How suitable is this track for a party? (1=terrible, 10=perfect)\n")
	b.WriteString("2. reasoning: Brief explanation of why it fits or doesn't fit\n")
	b.WriteString("3. recommendation: \"yes\", \"no\", or \"maybe\"\n\n")
	b.WriteString("Tracks to analyze:\n")

	for i, t := range batch {
		fmt.Fprintf(&b, "\n%d. %q by %s (id: %s)\n", i+1, t.Name, t.Artist(), t.ID)
		if report != nil {
			fmt.Fprintf(&b, "   - Style group: %s\n", report.Descriptor(t.ClusterID))
		}
		fmt.Fprintf(&b, "   - Danceability: %.2f\n", t.Attributes["danceability"])
		fmt.Fprintf(&b, "   - Energy: %.2f\n", t.Attributes["energy"])
		fmt.Fprintf(&b, "   - Valence (positivity): %.2f\n", t.Attributes["valence"])
		fmt.Fprintf(&b, "   - Tempo: %.0f BPM\n", t.Attributes["tempo"])
		fmt.Fprintf(&b, "   - Popularity: %d/100\n", t.Popularity)
		if len(t.Tags) > 0 {
			fmt.Fprintf(&b, "   - Genres: %s\n", strings.Join(t.Tags[:min(3, len(t.Tags))], ", "))
		}
		if t.ListenerCount > 0 {
			fmt.Fprintf(&b, "   - Listeners: %d\n", t.ListenerCount)
		}
	}

	b.WriteString("\nPlease respond in JSON format:\n")
	b.WriteString(`[
  {
    "track_number": 1,
    "id": "<track id>",
    "party_score": 8,
    "reasoning": "High energy and danceability make this perfect for dancing",
    "recommendation": "yes"
  },
  ...
]`)

	return b.String()
}

// scoreEntry is one track's row in the scoring service's JSON response.
type scoreEntry struct {
	TrackNumber    int     `json:"track_number"`
	ID             string  `json:"id"`
	PartyScore     float64 `json:"party_score"`
	Reasoning      string  `json:"reasoning"`
	Recommendation string  `json:"recommendation"`
}

// ParseScoreResponse extracts per-track verdicts from the scoring service's
// response text. Pure function: no network, no mutation.
//
// The response may wrap the JSON array in prose; the first '[' through the
// last ']' is taken as the payload. Entries resolve to a track by id, or by
// 1-based track_number when the id is absent or unknown. An entry with an
// out-of-range score, an unknown recommendation, or no resolvable track is
// dropped; its track simply stays unscored. An error is returned only when
// no JSON array can be decoded at all.
func ParseScoreResponse(response string, ids []string) (map[string]models.Verdict, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in scoring response", shared.ErrInvalidInput)
	}

	var entries []scoreEntry
	if err := json.Unmarshal([]byte(response[start:end+1]), &entries); err != nil {
		return nil, fmt.Errorf("%w: decode scoring response: %v", shared.ErrInvalidInput, err)
	}

	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	verdicts := make(map[string]models.Verdict, len(entries))
	for _, entry := range entries {
		id := entry.ID
		if !known[id] {
			if entry.TrackNumber < 1 || entry.TrackNumber > len(ids) {
				continue
			}
			id = ids[entry.TrackNumber-1]
		}
		if _, dup := verdicts[id]; dup {
			continue
		}

		if entry.PartyScore < 1 || entry.PartyScore > 10 {
			continue
		}
		recommendation, ok := models.ParseRecommendation(entry.Recommendation)
		if !ok {
			continue
		}
		reasoning := strings.TrimSpace(entry.Reasoning)
		if reasoning == "" {
			reasoning = "No reasoning provided"
		}

		verdicts[id] = models.Verdict{
			Score:          entry.PartyScore,
			Recommendation: recommendation,
			Reasoning:      reasoning,
		}
	}

	return verdicts, nil
}

// sleepWithContext blocks for the given delay or until the context is done.
func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
