package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/infer-dos/internal/analyzer"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	verbose      bool
	markerFlag   string
	tsconfigFlag string
)

// rootCmd analyses a single file when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "infer-dos <file>",
	Short: "Find the Durable Object classes exported by a TypeScript file",
	Long: `infer-dos statically analyses a TypeScript source file and prints, as a JSON
array, the names of its exported classes that are Durable Objects: classes
that extend or implement DurableObject directly or through any chain of base
classes, interfaces, type aliases, namespaces and imported packages.

The nearest tsconfig.json above the file drives module resolution
(paths, baseUrl, types) and packages are resolved through node_modules.

Example:
  infer-dos src/index.ts
  infer-dos --marker WorkerEntrypoint src/index.ts`,
	Args:              cobra.ExactArgs(1),
	PersistentPreRunE: setupLogging,
	RunE:              runAnalyze,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .infer-dos/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&markerFlag, "marker", "", "marker type name (default DurableObject)")
	rootCmd.PersistentFlags().StringVar(&tsconfigFlag, "tsconfig", "", "explicit tsconfig path, bypassing discovery")
}

// setupLogging routes diagnostics to stderr only when --verbose is set, so
// stdout carries nothing but results.
func setupLogging(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetOutput(cmd.ErrOrStderr())
	} else {
		log.SetOutput(io.Discard)
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}

	a, err := analyzer.New(opts.analyzerConfig())
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	defer a.Close()

	classes, err := a.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), classes, opts.config.IndentString())
}
