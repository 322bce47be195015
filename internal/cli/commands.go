package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/app"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/mining"

	"github.com/spf13/cobra"
)

type canonicalForms [][2]string

func (c canonicalForms) String() string {
	var b strings.Builder
	for i, f := range c {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\t%s", f[0], f[1])
	}
	return b.String()
}

func newCanonicalizeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "canonicalize <label>...",
		Short: "Print the canonical form of each label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json {
				out := make(map[string]string, len(args))
				for _, label := range args {
					out[label] = canon.Canonicalize(label)
				}
				return printResult(cmd.OutOrStdout(), out, true)
			}
			forms := make(canonicalForms, len(args))
			for i, label := range args {
				forms[i] = [2]string{label, canon.Canonicalize(label)}
			}
			return printResult(cmd.OutOrStdout(), forms, false)
		},
	}
}

type depthResult struct {
	Label     string `json:"label"`
	Canonical string `json:"canonical"`
	Depth     int    `json:"depth"`
}

func (d depthResult) String() string {
	return fmt.Sprintf("%s\t%d", d.Canonical, d.Depth)
}

func newDepthCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "depth <label>",
		Short: "Resolve the depth of a topic in the stored hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				form, depth, err := a.TopicDepth(ctx, args[0])
				return depthResult{Label: args[0], Canonical: form, Depth: depth}, err
			})
		},
	}
}

func newImportCmd(run runner) *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "import-ontology <path|s3://bucket/key>",
		Short: "Import an ontology snapshot (.json or CSO .csv)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.ImportOntology(ctx, args[0], maxDepth)
			})
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Deepest topic level to import (0 uses MAX_DEPTH, negative imports all)")
	return cmd
}

func newMergeCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "merge-duplicates",
		Short: "Merge topics whose labels share a canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.MergeDuplicates(ctx)
			})
		},
	}
}

// readLines returns the non-empty lines of file, or of stdin for "-".
func readLines(file string) ([]string, error) {
	f := os.Stdin
	if file != "-" {
		var err error
		f, err = os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func newValidateCmd(run runner) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate-labels [label]...",
		Short: "Expand labels with the model; without labels every stored topic is validated",
		RunE: func(cmd *cobra.Command, args []string) error {
			labels := args
			if file != "" {
				lines, err := readLines(file)
				if err != nil {
					return err
				}
				labels = append(labels, lines...)
			}
			return run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.ValidateLabels(ctx, labels)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read labels from a file, one per line (- for stdin)")
	return cmd
}

func newMineCmd(run runner) *cobra.Command {
	var params mining.Params
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Mine frequent topic sets and rules from paper topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Mine(ctx, params)
			})
		},
	}
	cmd.Flags().IntVar(&params.MinSupportCount, "min-support-count", 0, "Minimum number of papers per frequent set")
	cmd.Flags().Float64Var(&params.MinConfidence, "min-confidence", 0, "Minimum rule confidence")
	cmd.Flags().IntVar(&params.MaxItemsetSize, "max-itemset-size", 0, "Largest frequent set size")
	return cmd
}

func newCombinationsCmd(run runner) *cobra.Command {
	var (
		maxK   int
		repair bool
	)
	cmd := &cobra.Command{
		Use:   "combinations <paper-id>...",
		Short: "Compute topic combinations for papers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var override *bool
			if cmd.Flags().Changed("repair") {
				override = &repair
			}
			return run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.Combinations(ctx, args, maxK, override)
			})
		},
	}
	cmd.Flags().IntVar(&maxK, "max-k", 0, "Largest combination size (0 uses COMBINATION_MAX_K)")
	cmd.Flags().BoolVar(&repair, "repair", true, "Complete the proposals with exhaustive enumeration")
	return cmd
}

func newMatchCmd(run runner) *cobra.Command {
	var (
		terms      []string
		docContext string
	)
	cmd := &cobra.Command{
		Use:   "match <paper-id>",
		Short: "Link a paper to the topics its terms match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(terms) == 0 {
				return fmt.Errorf("at least one --term is required")
			}
			return run(cmd, func(ctx context.Context, a *app.App) (any, error) {
				return a.MapPaper(ctx, args[0], terms, docContext)
			})
		},
	}
	cmd.Flags().StringArrayVarP(&terms, "term", "t", nil, "Term to match (repeatable)")
	cmd.Flags().StringVar(&docContext, "context", "", "Title and abstract of the paper")
	return cmd
}
