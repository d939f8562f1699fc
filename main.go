/*
rompatch - a toolkit for applying and building binary ROM patches.

Copyright © 2025 Hans Bonini
*/
package main

import (
	"fmt"
	"os"

	"github.com/hansbonini/rompatch/cmd"
)

// Version information (injected at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("rompatch %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	cmd.Execute()
}
