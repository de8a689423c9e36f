package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mvp-joe/infer-dos/internal/analyzer"
	"github.com/mvp-joe/infer-dos/internal/tsconfig"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	scanQuiet bool
	scanAll   bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Find Durable Object classes in every file of a project",
	Long: `Scan loads the TypeScript project whose tsconfig.json is nearest to dir
(default: the current directory) once, then reports the Durable Object
classes of every root file as a JSON object keyed by path relative to the
project. Files without Durable Objects are omitted unless --all is given.

Example:
  infer-dos scan
  infer-dos scan packages/worker --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "suppress the progress bar")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "include files without Durable Objects")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	opts, err := loadOptions()
	if err != nil {
		return err
	}

	if opts.tsconfigPath == "" {
		found, err := tsconfig.Find(dir, opts.config.Project.TSConfigName)
		if err != nil {
			return err
		}
		opts.tsconfigPath = found
	}

	cfg, err := tsconfig.Load(opts.tsconfigPath)
	if err != nil {
		return err
	}
	roots, err := cfg.RootFiles(opts.config.Project.Extensions, opts.config.Project.Ignore)
	if err != nil {
		return err
	}

	results := make(map[string][]string)
	if len(roots) == 0 {
		return writeJSON(cmd.OutOrStdout(), results, opts.config.IndentString())
	}

	a, err := analyzer.New(opts.analyzerConfig())
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	defer a.Close()

	// Every root file belongs to the program, so one load serves them all.
	session, err := a.Load(cmd.Context(), roots[0])
	if err != nil {
		return err
	}

	bar := newScanProgress(len(roots), scanQuiet)
	for _, root := range roots {
		classes, ok := session.ClassesIn(root)
		bar.Add(1)
		if !ok || (len(classes) == 0 && !scanAll) {
			continue
		}

		rel, err := filepath.Rel(cfg.Dir, root)
		if err != nil {
			rel = root
		}
		results[filepath.ToSlash(rel)] = classes
	}
	bar.Finish()

	return writeJSON(cmd.OutOrStdout(), results, opts.config.IndentString())
}

// newScanProgress renders scan progress on stderr, or nowhere when quiet.
func newScanProgress(total int, quiet bool) *progressbar.ProgressBar {
	if quiet || !verbose && !isTerminal(os.Stderr) {
		return progressbar.DefaultSilent(int64(total))
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Scanning files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
