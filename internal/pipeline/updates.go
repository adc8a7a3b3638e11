package pipeline

import "fmt"

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced consumers
}

// Pipeline phase enumeration
type Phase int

const (
	Collect Phase = iota
	NormalizePhase
	EnrichPhase
	ExtractPhase
	ClusterPhase
	ValidatePhase
	AssemblePhase
)

func (p Phase) String() string {
	switch p {
	case Collect:
		return "collect"
	case NormalizePhase:
		return "normalize"
	case EnrichPhase:
		return "enrich"
	case ExtractPhase:
		return "extract"
	case ClusterPhase:
		return "cluster"
	case ValidatePhase:
		return "validate"
	case AssemblePhase:
		return "assemble"
	default:
		return ""
	}
}

func normalizeUpdate(total, dropped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   NormalizePhase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Normalized %d tracks (%d records dropped)", total, dropped),
	}
}

func enrichUpdate(step, total int, name, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Enriching: %s - %s", step, total, artist, name),
	}
}

func enrichSkippedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Not found, skipping: %s", step, total, name),
	}
}

func extractUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExtractPhase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Extracted feature vectors for %d tracks", total),
	}
}

func clusterUpdate(k int, report *ClusterReport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClusterPhase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Grouped tracks into %d style clusters", k),
		Data:    report,
	}
}

func validateUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValidatePhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Scoring batch...", step, total),
	}
}

func assembleUpdate(selected, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AssemblePhase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Selected %d of %d tracks", selected, total),
	}
}

// sendProgress delivers an update without blocking when the consumer has
// fallen behind or no channel was supplied.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
