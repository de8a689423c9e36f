package watcher

import (
	"context"
	"log"
	"slices"
)

// Result is one analysis outcome reported by the coordinator.
type Result struct {
	Classes []string
	Err     error
}

// WatchCoordinator re-runs analysis of one entry file whenever the file
// watcher reports project changes, reporting results that differ from the
// previous run.
type WatchCoordinator struct {
	files    FileWatcher
	analyzer Analyzer
	entry    string
	report   func(Result)

	ctx      context.Context
	last     []string
	reported bool
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(
	files FileWatcher,
	analyzer Analyzer,
	entry string,
	report func(Result),
) *WatchCoordinator {
	return &WatchCoordinator{
		files:    files,
		analyzer: analyzer,
		entry:    entry,
		report:   report,
	}
}

// Start analyses the entry file once, then follows file changes.
// Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx
	c.run()

	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

// cleanup stops the file watcher.
func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// handleFileChange processes file change events from the file watcher.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	log.Printf("Processing %d file change(s)...", len(files))
	for _, file := range files {
		c.analyzer.Invalidate(file)
	}
	c.run()
}

// run analyses the entry and reports errors always, classes only on change.
func (c *WatchCoordinator) run() {
	classes, err := c.analyzer.Analyze(c.ctx, c.entry)
	if err != nil {
		if c.ctx.Err() != nil {
			return
		}
		log.Printf("Error: analysis failed: %v", err)
		c.report(Result{Err: err})
		c.reported = false
		return
	}

	if c.reported && slices.Equal(c.last, classes) {
		log.Printf("Result unchanged (%d classes)", len(classes))
		return
	}

	c.last = classes
	c.reported = true
	c.report(Result{Classes: classes})
}
