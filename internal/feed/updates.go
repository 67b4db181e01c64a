package feed

import (
	"fmt"
)

// ProgressUpdate represents a progress event while a feed is composed.
//
// Used to send real-time updates to the CLI or TUI for display.
type ProgressUpdate struct {
	Phase   Phase  // Composition phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Composition phase enumeration
type Phase int

const (
	FromCache Phase = iota
	FetchSubscriptions
	FetchUploads
	FilterVideos
	FilterShorts
	FetchDurations
	MarkSaved
	Done
)

func (p Phase) String() string {
	switch p {
	case FromCache:
		return "from_cache"
	case FetchSubscriptions:
		return "fetch_subscriptions"
	case FetchUploads:
		return "fetch_uploads"
	case FilterVideos:
		return "filter_videos"
	case FilterShorts:
		return "filter_shorts"
	case FetchDurations:
		return "fetch_durations"
	case MarkSaved:
		return "mark_saved"
	case Done:
		return "done"
	default:
		return ""
	}
}

const totalSteps = 6

func cacheHitUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FromCache,
		Step:    totalSteps,
		Total:   totalSteps,
		Message: fmt.Sprintf("Serving %d videos from cache", n),
	}
}

func subscriptionsUpdate(n int) ProgressUpdate {
	msg := "Fetching subscriptions..."
	if n > 0 {
		msg = fmt.Sprintf("Found %d subscriptions", n)
	}
	return ProgressUpdate{Phase: FetchSubscriptions, Step: 1, Total: totalSteps, Message: msg}
}

func uploadsUpdate(playlists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchUploads,
		Step:    2,
		Total:   totalSteps,
		Message: fmt.Sprintf("Reading recent uploads from %d channels...", playlists),
	}
}

func filterUpdate(kept, dropped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FilterVideos,
		Step:    3,
		Total:   totalSteps,
		Message: fmt.Sprintf("Kept %d videos (%d muted or too old)", kept, dropped),
	}
}

func shortsUpdate(checked, shorts int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FilterShorts,
		Step:    4,
		Total:   totalSteps,
		Message: fmt.Sprintf("Removed %d Shorts out of %d videos", shorts, checked),
	}
}

func durationsUpdate(n int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDurations,
		Step:    5,
		Total:   totalSteps,
		Message: fmt.Sprintf("Fetching durations for %d videos...", n),
	}
}

func markSavedUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MarkSaved,
		Step:    6,
		Total:   totalSteps,
		Message: fmt.Sprintf("[%d/%d] Checking playlist %s...", step, total, title),
	}
}

func doneUpdate(cards int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    totalSteps,
		Total:   totalSteps,
		Message: fmt.Sprintf("Feed ready: %d videos", cards),
		Data:    cards,
	}
}
