package watcher

import "context"

// FileWatcher monitors project files for changes with debouncing.
type FileWatcher interface {
	// Start begins watching project directories, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error
}

// Analyzer is the minimal analysis interface the coordinator drives.
type Analyzer interface {
	// Analyze returns the conforming classes of the file at path.
	Analyze(ctx context.Context, path string) ([]string, error)

	// Invalidate drops any cached parse of path.
	Invalidate(path string)
}
