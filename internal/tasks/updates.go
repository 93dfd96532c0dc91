package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase identifies the stage of a bulk export.
type Phase int

const (
	FetchPosts Phase = iota
	ExportAuthor
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchPosts:
		return "fetch_posts"
	case ExportAuthor:
		return "export_author"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchingPostsUpdate(step, total int, author string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPosts,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching posts by %s...", author),
	}
}

func exportCompletedUpdate(step, total int, author string, files int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAuthor,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✓ Exported %s (%d files)", author, files),
		Data:    files,
	}
}

func exportFailedUpdate(step, total int, author string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportAuthor,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("✗ Failed to export %s: %v", author, err),
		Data:    err,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest %s", path),
	}
}
