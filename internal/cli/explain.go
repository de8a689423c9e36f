package cli

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/mvp-joe/infer-dos/internal/analyzer"
	"github.com/spf13/cobra"
)

var explainDOT bool

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain <file> [class]",
	Short: "Show why exported classes are or are not Durable Objects",
	Long: `Explain prints, for every exported class of the file (or only the named
class), whether it conforms to the marker type and the shortest chain of
extends/implements relations that leads to it.

With --dot the full heritage graph of the named class is written in
Graphviz DOT format instead.

Example:
  infer-dos explain src/index.ts
  infer-dos explain src/index.ts MyAgent --dot | dot -Tsvg > agent.svg`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().BoolVar(&explainDOT, "dot", false, "write the heritage graph of the class in Graphviz DOT format")
	rootCmd.AddCommand(explainCmd)
}

// explainOutput is the JSON shape of one explained class.
type explainOutput struct {
	Class    string   `json:"class"`
	Conforms bool     `json:"conforms"`
	Path     []string `json:"path,omitempty"`
}

func runExplain(cmd *cobra.Command, args []string) error {
	if explainDOT && len(args) < 2 {
		return fmt.Errorf("--dot requires a class name")
	}

	opts, err := loadOptions()
	if err != nil {
		return err
	}

	a, err := analyzer.New(opts.analyzerConfig())
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}
	defer a.Close()

	session, err := a.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var explanations []*analyzer.Explanation
	if len(args) == 2 {
		e, err := session.Explain(args[1])
		if err != nil {
			return err
		}
		explanations = append(explanations, e)
	} else {
		explanations, err = session.ExplainAll()
		if err != nil {
			return err
		}
	}

	for _, e := range explanations {
		if e.Conforms && len(e.Path) > 0 {
			log.Printf("%s conforms via %s", e.Class, formatPath(e))
		}
	}

	if explainDOT {
		return explanations[0].Hierarchy.WriteDOT(cmd.OutOrStdout())
	}
	return writeExplanations(cmd.OutOrStdout(), explanations, opts.config.IndentString())
}

func writeExplanations(w io.Writer, explanations []*analyzer.Explanation, indent string) error {
	out := make([]explainOutput, 0, len(explanations))
	for _, e := range explanations {
		entry := explainOutput{Class: e.Class, Conforms: e.Conforms}
		for _, n := range e.Path {
			entry.Path = append(entry.Path, n.Label())
		}
		out = append(out, entry)
	}
	return writeJSON(w, out, indent)
}

// formatPath renders a conformance path as "A -> B -> C".
func formatPath(e *analyzer.Explanation) string {
	labels := make([]string, 0, len(e.Path))
	for _, n := range e.Path {
		labels = append(labels, n.Label())
	}
	return strings.Join(labels, " -> ")
}
