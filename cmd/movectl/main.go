package main

import (
	"fmt"
	"os"

	"github.com/navid-fn/skywatch/internal/app"
	"github.com/navid-fn/skywatch/internal/cli"
)

func main() {
	ctx, stop := app.SignalContext(app.NewLogger("error", "text"))
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
