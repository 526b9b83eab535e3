// File: cmd/devstack/plan.go
// Brief: `devstack plan` and `devstack graph` commands.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/example/devstack/internal/config"
	"github.com/example/devstack/pkg/devstack"
)

// planView is the printable form of a resolved plan.
type planView struct {
	Stack       string              `json:"stack"`
	Description string              `json:"description,omitempty"`
	Order       []string            `json:"order"`
	Waves       [][]string          `json:"waves"`
	Needs       map[string][]string `json:"needs,omitempty"`
	Modes       []devstack.ModeDef  `json:"modes,omitempty"`
	Props       []string            `json:"props,omitempty"`
}

func newPlanCommand(opts *config.Options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved layer order without deploying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			p, err := devstack.ResolvePlan(s.reg.Graph(), devstack.ResolveOptions{AllowMissing: opts.AllowMissing})
			if err != nil {
				return err
			}
			view := planView{
				Stack:       s.file.Name,
				Description: s.file.Description,
				Order:       p.Order,
				Waves:       p.Waves,
				Needs:       p.Needs,
				Props:       s.reg.Shared().Keys(),
			}
			for _, name := range s.reg.ModeNames() {
				if m, ok := s.reg.Mode(name); ok {
					view.Modes = append(view.Modes, devstack.ModeDef{ModeName: m.Name(), DefaultOn: m.Default()})
				}
			}
			return printPlan(cmd.OutOrStdout(), view, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json|yaml")
	return cmd
}

func printPlan(w io.Writer, view planView, output string) error {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "yaml":
		raw, err := yaml.Marshal(view)
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	case "", "table":
		return printPlanTable(w, view)
	default:
		return fmt.Errorf("unknown --output %q (expected table|json|yaml)", output)
	}
}

func printPlanTable(w io.Writer, view planView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	wave := map[string]int{}
	for i, names := range view.Waves {
		for _, name := range names {
			wave[name] = i + 1
		}
	}
	fmt.Fprintf(tw, "STACK: %s\n", view.Stack)
	if len(view.Props) > 0 {
		fmt.Fprintf(tw, "PROPS: %s\n", strings.Join(view.Props, ", "))
	}
	fmt.Fprintln(tw, "#\tLAYER\tWAVE\tNEEDS")
	for i, name := range view.Order {
		needs := "-"
		if deps := view.Needs[name]; len(deps) > 0 {
			needs = strings.Join(deps, ",")
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", i+1, name, wave[name], needs)
	}
	if len(view.Modes) > 0 {
		fmt.Fprintln(tw, "\nMODE\tDEFAULT\t\t")
		for _, m := range view.Modes {
			fmt.Fprintf(tw, "%s\t%t\t\t\n", m.ModeName, m.DefaultOn)
		}
	}
	return nil
}

func newGraphCommand(opts *config.Options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the layer dependency graph (dot or mermaid)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			g := devstack.BuildGraph(s.reg.Graph())
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "dot":
				return g.WriteDOT(cmd.OutOrStdout(), s.file.Name)
			case "mermaid":
				return g.WriteMermaid(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown --format %q (expected dot|mermaid)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "dot", "Graph format: dot|mermaid")
	return cmd
}
