package main

import (
	"os"

	"github.com/cychuang/campusbot/cmd/campusbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
