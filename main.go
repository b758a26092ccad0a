package main

import (
	"os"

	"github.com/rsionnach/nthlayer/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
