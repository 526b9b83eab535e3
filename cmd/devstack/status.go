// File: cmd/devstack/status.go
// Brief: `devstack status` and `devstack runs` commands.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/devstack/internal/config"
	"github.com/example/devstack/internal/history"
	"github.com/example/devstack/pkg/devstack"
)

type statusView struct {
	Stack  string          `json:"stack"`
	Path   string          `json:"path"`
	Saved  bool            `json:"saved"`
	Layers map[string]bool `json:"layers"`
	Modes  map[string]bool `json:"modes"`

	layerOrder []string
	modeOrder  []string
}

func newStatusCommand(opts *config.Options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the persisted layer and mode selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			store := devstack.NewPreferenceStore(opts.StateDir)
			prefs, found, err := store.Load(s.file.Name)
			if err != nil {
				return err
			}
			view := statusView{
				Stack:     s.file.Name,
				Path:      store.Path(s.file.Name),
				Saved:     found,
				Layers:    map[string]bool{},
				Modes:     s.reg.ModeDefaults(),
				modeOrder: s.reg.ModeNames(),
			}
			order := s.reg.LayerNames()
			if p, err := devstack.ResolvePlan(s.reg.Graph(), devstack.ResolveOptions{AllowMissing: opts.AllowMissing}); err == nil {
				order = p.Order
			}
			view.layerOrder = order
			for _, name := range order {
				view.Layers[name] = prefs.Toggles[name]
			}
			for name, on := range prefs.Modes {
				if _, ok := view.Modes[name]; ok {
					view.Modes[name] = on
				}
			}
			switch strings.ToLower(strings.TrimSpace(output)) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(view)
			case "", "table":
				return printStatusTable(cmd.OutOrStdout(), view)
			default:
				return fmt.Errorf("unknown --output %q (expected table|json)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

func printStatusTable(w io.Writer, view statusView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	source := view.Path
	if !view.Saved {
		source += " (not saved yet, showing defaults)"
	}
	fmt.Fprintf(tw, "STACK: %s\nFILE: %s\n", view.Stack, source)
	fmt.Fprintln(tw, "KIND\tNAME\tENABLED")
	for _, name := range view.layerOrder {
		fmt.Fprintf(tw, "layer\t%s\t%t\n", name, view.Layers[name])
	}
	for _, name := range view.modeOrder {
		fmt.Fprintf(tw, "mode\t%s\t%t\n", name, view.Modes[name])
	}
	return nil
}

func newRunsCommand(opts *config.Options) *cobra.Command {
	var limit int
	var output string
	var all bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded deploy and destroy runs (requires --history on those runs)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			store, err := history.Open(opts.StateDir, true)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded. Pass --history to deploy or destroy to record them.")
				return nil
			}
			if err != nil {
				return err
			}
			defer store.Close()
			stack := s.file.Name
			if all {
				stack = ""
			}
			runs, err := store.ListRuns(cmd.Context(), stack, limit)
			if err != nil {
				return err
			}
			switch strings.ToLower(strings.TrimSpace(output)) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			case "", "table":
				return history.PrintRunsTable(cmd.OutOrStdout(), runs)
			default:
				return fmt.Errorf("unknown --output %q (expected table|json)", output)
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&all, "all", false, "List runs of every stack sharing the state directory")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}
