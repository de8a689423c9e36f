package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/infer-dos/internal/analyzer"
	"github.com/mvp-joe/infer-dos/internal/tsconfig"
	"github.com/mvp-joe/infer-dos/internal/watcher"
	"github.com/spf13/cobra"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-run analysis whenever the project changes",
	Long: `Watch analyses the file, prints the result, then keeps watching the project
directory (excluding node_modules) and prints a new JSON line every time the
set of Durable Object classes changes. Errors are printed to stderr and
watching continues.

Example:
  infer-dos watch src/index.ts`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}

	entry, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	if _, err := os.Stat(entry); err != nil {
		return fmt.Errorf("%w: %s", analyzer.ErrSourceNotFound, args[0])
	}

	a, err := analyzer.New(opts.analyzerConfig())
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	defer a.Close()

	dirs, err := watchDirs(entry, opts)
	if err != nil {
		return err
	}

	suffixes := append([]string{opts.config.Project.TSConfigName, "package.json"}, opts.config.Project.Extensions...)
	debounce := time.Duration(opts.config.Watch.DebounceMS) * time.Millisecond

	files, err := watcher.NewFileWatcher(dirs, suffixes, debounce)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", strings.Join(dirs, ", "))

	indent := opts.config.IndentString()
	report := reportTo(cmd.OutOrStdout(), cmd.ErrOrStderr(), indent)
	coordinator := watcher.NewWatchCoordinator(files, a, entry, report)

	if err := coordinator.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchDirs returns the project directory, plus the entry's directory when
// it lies outside the project.
func watchDirs(entry string, opts *options) ([]string, error) {
	configPath := opts.tsconfigPath
	if configPath == "" {
		found, err := tsconfig.Find(filepath.Dir(entry), opts.config.Project.TSConfigName)
		if err != nil {
			return nil, err
		}
		configPath = found
	}

	projectDir := filepath.Dir(configPath)
	dirs := []string{projectDir}
	if rel, err := filepath.Rel(projectDir, entry); err != nil || strings.HasPrefix(rel, "..") {
		dirs = append(dirs, filepath.Dir(entry))
	}
	return dirs, nil
}

// reportTo prints each watch result as one JSON document on out, and
// failures on errOut.
func reportTo(out, errOut io.Writer, indent string) func(watcher.Result) {
	return func(res watcher.Result) {
		if res.Err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", res.Err)
			return
		}
		if err := writeJSON(out, res.Classes, indent); err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}
}
