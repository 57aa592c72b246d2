// Package cli builds the cobra command surface of the pipe.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reviewpipe/reviewpipe/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Runner defines the dependency required to execute a review run.
type Runner interface {
	Run(ctx context.Context) (review.Result, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Runner  Runner
	Args    Arguments
	Version string
}

// NewRootCommand constructs the root cobra command. Running it without a
// subcommand executes the pipe once; the process exits after one pass.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "reviewpipe",
		Short: "AI code review for Bitbucket pull requests",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}

		result, err := deps.Runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reviewed %d files, posted %d comments in %s\n",
			result.FilesDiffed, result.SuggestionsPosted, result.Elapsed.Round(time.Millisecond))
		return nil
	}

	return root
}
