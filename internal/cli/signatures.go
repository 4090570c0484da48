package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/navid-fn/skywatch/internal/models"
	"github.com/navid-fn/skywatch/internal/signature"
	"github.com/navid-fn/skywatch/internal/storage"
)

// SignaturesOptions holds flags for the signatures command.
type SignaturesOptions struct {
	*RootOptions
	List bool
}

type signaturesReport struct {
	Size       int      `json:"size"`
	Degraded   bool     `json:"degraded"`
	Signatures []string `json:"signatures,omitempty"`
}

// NewSignaturesCommand creates the signatures command.
func NewSignaturesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignaturesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "signatures",
		Short:         "Show the signature index the next run would start from",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignatures(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "print every signature")
	return cmd
}

func runSignatures(ctx context.Context, opts *SignaturesOptions, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)

	a, err := buildApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		_ = out.Error("E_CONFIG", err.Error())
		return WrapExitError(ExitCommandError, "configuration", err)
	}
	defer a.Close()

	store, err := a.Connector.Connect(ctx)
	if err != nil {
		_ = out.Error("E_STORE", err.Error())
		return WrapExitError(ExitFailure, "store unavailable", err)
	}

	window := storage.Window{Rows: a.Config.Index.Rows, Since: time.Now().Add(-a.Config.Index.Horizon)}
	idx := signature.Load(ctx, func(ctx context.Context) ([]models.Row, error) {
		return store.ReadRecent(ctx, window)
	}, a.Logger)

	report := signaturesReport{Size: idx.Len(), Degraded: idx.Degraded()}
	if opts.List {
		for _, s := range idx.Signatures() {
			report.Signatures = append(report.Signatures, string(s))
		}
	}
	return out.Success(report, formatSignatures(report))
}

func formatSignatures(r signaturesReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d signatures", r.Size)
	if r.Degraded {
		sb.WriteString(" (degraded: store read failed)")
	}
	sb.WriteString("\n")
	for _, s := range r.Signatures {
		sb.WriteString(s + "\n")
	}
	return sb.String()
}
