package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchArtists Phase = iota
	FetchAlbums
	FetchRegionals
	WriteFiles
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchArtists:
		return "fetch_artists"
	case FetchAlbums:
		return "fetch_albums"
	case FetchRegionals:
		return "fetch_regionals"
	case WriteFiles:
		return "write_files"
	case Done:
		return "done"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchStartedUpdate(job fetchJob, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   job.phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s page %d...", job.listing, job.page+1),
	}
}

func fetchFinishedUpdate(job fetchJob, step, total int, err error) ProgressUpdate {
	msg := fmt.Sprintf("Fetched %s page %d", job.listing, job.page+1)
	if err != nil {
		msg = fmt.Sprintf("Failed to fetch %s page %d: %v", job.listing, job.page+1, err)
	}
	return ProgressUpdate{
		Phase:   job.phase,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    err,
	}
}

func writeFileUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Wrote %s", path),
		Data:    path,
	}
}

func doneUpdate(listings, failures int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Snapshot complete: %d listings, %d failures", listings, failures),
	}
}
