package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/navid-fn/skywatch/configs"
	"github.com/navid-fn/skywatch/internal/drivers/flightradar"
)

// BoundsOptions holds flags for the bounds command.
type BoundsOptions struct {
	*RootOptions
	Latitude  float64
	Longitude float64
	Radius    float64
}

// NewBoundsCommand creates the bounds command.
func NewBoundsCommand(rootOpts *RootOptions) *cobra.Command {
	cfg := configs.AppLoad()
	opts := &BoundsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "bounds",
		Short:         "Print the feed bounding box around the airport",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBounds(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Latitude, "lat", cfg.Airport.Latitude, "airport latitude")
	cmd.Flags().Float64Var(&opts.Longitude, "lon", cfg.Airport.Longitude, "airport longitude")
	cmd.Flags().Float64Var(&opts.Radius, "radius", cfg.Airport.RadiusMeters, "radius in meters")
	return cmd
}

func runBounds(opts *BoundsOptions, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)
	if opts.Radius <= 0 {
		_ = out.Error("E_ARGS", "radius must be positive")
		return NewExitError(ExitCommandError, "radius must be positive")
	}
	region := flightradar.BoundsAround(opts.Latitude, opts.Longitude, opts.Radius)
	return out.Success(region, fmt.Sprintln(region.String()))
}
