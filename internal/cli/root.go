// Package cli implements the scholargraph command line tool. Every command
// runs its operation in-process against the configured graph store.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/app"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/config"

	"github.com/spf13/cobra"
)

type options struct {
	backend string
	json    bool
}

// appLoader opens the App a command runs against.
type appLoader func(ctx context.Context, opts options) (*app.App, error)

func loadApp(ctx context.Context, opts options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.backend != "" {
		cfg.GraphBackend = opts.backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	app.InitLogger(cfg, "cli")
	return app.New(ctx, cfg)
}

// newRootCmd builds the command tree. load opens the App for commands that
// need one.
func newRootCmd(load appLoader) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "scholargraph",
		Short:         "Paper knowledge graph maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "Graph backend (neo4j, postgres, memory); overrides GRAPH_BACKEND")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print results as JSON")

	withApp := func(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error {
		ctx := cmd.Context()
		a, err := load(ctx, *opts)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		result, err := fn(ctx, a)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result, opts.json)
	}

	root.AddCommand(
		newCanonicalizeCmd(opts),
		newDepthCmd(withApp),
		newImportCmd(withApp),
		newMergeCmd(withApp),
		newValidateCmd(withApp),
		newMineCmd(withApp),
		newCombinationsCmd(withApp),
		newMatchCmd(withApp),
	)
	return root
}

type runner func(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) (any, error)) error

func Execute() {
	ctx := context.Background()
	if err := newRootCmd(loadApp).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printResult writes result as indented JSON, or as text when it implements
// fmt.Stringer and asJSON is false.
func printResult(w io.Writer, result any, asJSON bool) error {
	if s, ok := result.(fmt.Stringer); ok && !asJSON {
		_, err := fmt.Fprintln(w, s.String())
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
