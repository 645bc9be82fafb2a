package main

import (
	"os"

	"github.com/BenjaminSRussell/vidgrab/internal/cli"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
)

func main() {
	logx.Init()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
