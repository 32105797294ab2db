package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/fx"
)

// run starts app, blocks until signal or fx shutdown and returns process exit code.
func run(ctx context.Context, app *fx.App) int {
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "paygate: invalid dependency graph: %v\n", err)
		return 1
	}

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "paygate: start: %v\n", err)
		return 1
	}

	code := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		code = sig.ExitCode
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "paygate: stop: %v\n", err)
		return 1
	}
	return code
}
