package main

import (
	"os"

	"github.com/microcaplab/tradegate/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		cli.DisplayError(err)
		os.Exit(1)
	}
}
