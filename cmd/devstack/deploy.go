// File: cmd/devstack/deploy.go
// Brief: `devstack deploy` and `devstack destroy` commands.

package main

import (
	"github.com/spf13/cobra"

	"github.com/example/devstack/internal/config"
	"github.com/example/devstack/pkg/devstack"
)

func newDeployCommand(opts *config.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Select layers and modes, then deploy the enabled layers in dependency order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			o := s.orchestrator()
			closeHistory, err := s.withHistory(o)
			if err != nil {
				return err
			}
			defer closeHistory()
			res, err := o.Deploy(cmd.Context())
			s.report(res)
			return err
		},
	}
	opts.BindSelectionFlags(cmd.Flags())
	return cmd
}

func newDestroyCommand(opts *config.Options) *cobra.Command {
	var selectLayers bool
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down the enabled layers in reverse dependency order",
		Long:  "destroy tears down the layers enabled by the last deploy. Pass --select, --enable or --mode to choose again first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			o := s.orchestrator()
			closeHistory, err := s.withHistory(o)
			if err != nil {
				return err
			}
			defer closeHistory()
			res, err := o.Destroy(cmd.Context(), devstack.DestroyOptions{
				Select: selectLayers || !s.overrides().Empty(),
			})
			s.report(res)
			return err
		},
	}
	cmd.Flags().BoolVar(&selectLayers, "select", false, "Choose layers and modes before tearing down")
	opts.BindSelectionFlags(cmd.Flags())
	return cmd
}
