package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// skippedDirs are never watched. Installed packages change rarely and are
// large enough to exhaust inotify watches.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// relevantOps are the operations that can change analysis input. A rename
// arrives as Rename on the old name and Create on the new one.
const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// changeSet collects distinct changed paths between two debounce flushes.
type changeSet map[string]struct{}

func (c changeSet) drain() []string {
	files := make([]string, 0, len(c))
	for file := range c {
		files = append(files, file)
		delete(c, file)
	}
	sort.Strings(files)
	return files
}

// fileWatcher implements FileWatcher over a recursive set of fsnotify
// directory watches. All debounce state is owned by the loop goroutine.
type fileWatcher struct {
	fsw          *fsnotify.Watcher
	suffixes     []string
	debounceTime time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewFileWatcher watches every directory below dirs, except node_modules
// and .git, for changes to files whose names end in one of suffixes
// (".ts", "tsconfig.json", ...). A debounce of zero or less uses
// DefaultDebounce.
func NewFileWatcher(dirs []string, suffixes []string, debounce time.Duration) (FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw := &fileWatcher{
		fsw:          fsw,
		suffixes:     suffixes,
		debounceTime: debounce,
		done:         make(chan struct{}),
	}

	for _, dir := range dirs {
		if err := fw.watchTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start runs the event loop until ctx is cancelled or Stop is called.
// callback receives the sorted, de-duplicated paths changed during one
// quiet period.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	fw.cancel = cancel

	go fw.loop(loopCtx, callback)
	return nil
}

// Stop ends the event loop and releases the watches. It is safe to call
// more than once.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.done
		} else {
			close(fw.done)
		}
		err = fw.fsw.Close()
	})
	return err
}

func (fw *fileWatcher) loop(ctx context.Context, callback func(files []string)) {
	defer close(fw.done)

	pending := make(changeSet)
	timer := time.NewTimer(fw.debounceTime)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			fw.followNewDirectory(event)
			if !fw.relevant(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(fw.debounceTime)

		case <-timer.C:
			if len(pending) > 0 {
				callback(pending.drain())
			}

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)
		}
	}
}

// followNewDirectory adds watches for a directory created under a watched
// tree, so files added inside it later are seen.
func (fw *fileWatcher) followNewDirectory(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := fw.watchTree(event.Name); err != nil {
		log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
	}
}

func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	for _, suffix := range fw.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// watchTree adds root and its subdirectories. Only a failure on root
// itself is returned.
func (fw *fileWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skippedDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fw.fsw.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
