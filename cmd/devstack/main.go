// main.go bootstraps devstack: it builds the root Cobra command and executes
// it with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/example/devstack/internal/config"
	"github.com/example/devstack/internal/modeflags"
	"github.com/example/devstack/internal/stackfile"
	"github.com/example/devstack/pkg/devstack"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	handleError(os.Stderr, err)
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	opts := config.NewOptions()
	cmd := &cobra.Command{
		Use:           "devstack",
		Short:         "Deploy and tear down layered local development stacks",
		Long:          "devstack resolves the layers of a stack in dependency order, lets you pick which layers and modes to enable, and deploys them one after another while keeping a live status table.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applySettings(cmd); err != nil {
				return err
			}
			return opts.Validate()
		},
	}
	opts.AddFlags(cmd)

	cmd.AddCommand(
		newDeployCommand(opts),
		newDestroyCommand(opts),
		newPlanCommand(opts),
		newGraphCommand(opts),
		newStatusCommand(opts),
		newRunsCommand(opts),
		newVersionCommand(),
	)
	cmd.Example = `  # Pick layers and modes interactively, then deploy
  devstack deploy

  # Deploy the persisted selection plus the db layer without prompting
  devstack deploy --yes --enable db

  # Tear down what the last deploy enabled
  devstack destroy

  # Show the resolved order as YAML
  devstack plan -o yaml`
	return cmd
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return devstack.ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return devstack.ExitAborted
	}
	return devstack.ExitCode(err)
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	var loadErr *stackfile.LoadError
	var depErr *devstack.DependencyResolutionError
	switch {
	case errors.Is(err, devstack.ErrSelectionAborted), errors.Is(err, context.Canceled):
		message = "aborted"
	case errors.As(err, &loadErr) && errors.Is(err, os.ErrNotExist):
		message = fmt.Sprintf("%s\nHint: run devstack from the stack directory or pass --file.", err)
	case errors.As(err, &depErr) && len(depErr.Missing) > 0:
		message = fmt.Sprintf("%s\nHint: register the missing layers or pass --allow-missing.", err)
	case errors.Is(err, modeflags.ErrUnknownName):
		message = fmt.Sprintf("%s\nHint: run 'devstack plan' to list layer names.", err)
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}
