package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/lehigh-university-libraries/cardscanner/cmd"
)

const version = "0.1.0"

func main() {
	// fang adds completions, manpages and --version; Ctrl+C cancels the
	// command context so serve can shut down gracefully
	if err := fang.Execute(
		context.Background(),
		cmd.NewRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
