// Command gridctl bootstraps a grid from a configuration file and inspects its pipelines.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
