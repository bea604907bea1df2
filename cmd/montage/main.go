package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"montage/internal/services"
)

// Exit codes. Scripts can tell a rejected edit list apart from a failed run.
const (
	exitFailure  = 1
	exitInvalid  = 2
	exitCanceled = 130
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitCanceled
	case errors.Is(err, services.ErrValidation):
		return exitInvalid
	default:
		return exitFailure
	}
}
