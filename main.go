package main

import (
	"context"
	"os"

	"voicepipe/internal/cli"
	"voicepipe/internal/output"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}
