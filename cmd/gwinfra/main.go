package main

import (
	"fmt"
	"os"

	"github.com/tindevelopers/gwinfra/internal/cli"
	"github.com/tindevelopers/gwinfra/internal/cloud"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if cloud.IsConfigError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
