package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/navid-fn/skywatch/configs"
	"github.com/navid-fn/skywatch/internal/app"
	"github.com/navid-fn/skywatch/internal/ingester"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one ingestion run",
		Long: `Reads the recent event store tail, polls the flight feed once and
appends every new movement. Exits 3 when another run is in progress.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runRun(ctx context.Context, rootOpts *RootOptions, cmd *cobra.Command) error {
	out := formatter(rootOpts, cmd)

	a, err := buildApp(ctx, rootOpts, cmd)
	if err != nil {
		_ = out.Error("E_CONFIG", err.Error())
		return WrapExitError(ExitCommandError, "configuration", err)
	}
	defer a.Close()

	res, err := a.Ingester.RunOnce(ctx)
	switch {
	case errors.Is(err, ingester.ErrRunInProgress):
		_ = out.Error("E_BUSY", err.Error())
		return WrapExitError(ExitBusy, "run skipped", err)
	case err != nil:
		_ = out.Error("E_RUN", err.Error())
		return WrapExitError(ExitFailure, "run failed", err)
	}
	return out.Success(res, formatResult(res))
}

func formatResult(res ingester.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s\n", res.RunID)
	fmt.Fprintf(&sb, "  candidates: %d\n", res.Candidates)
	fmt.Fprintf(&sb, "  accepted:   %d\n", res.Accepted)
	if reasons := res.ReasonCounts(); len(reasons) > 0 {
		fmt.Fprintf(&sb, "  rejected:   %s\n", strings.Join(reasons, " "))
	}
	fmt.Fprintf(&sb, "  index:      %d", res.IndexSize)
	if res.IndexDegraded {
		sb.WriteString(" (degraded)")
	}
	fmt.Fprintf(&sb, "\n  duration:   %s\n", res.Duration)
	return sb.String()
}

func formatter(rootOpts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}
}

// buildApp loads configuration from the environment. Logs go to stderr so
// JSON output stays parseable.
func buildApp(ctx context.Context, rootOpts *RootOptions, cmd *cobra.Command) (*app.App, error) {
	cfg := configs.AppLoad()
	logger := app.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.SetOutput(cmd.ErrOrStderr())
	if rootOpts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return app.New(ctx, cfg, logger)
}
