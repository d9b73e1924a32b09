// main is the entry point for the grimoire CLI.
package main

import (
	"fmt"
	"os"

	"github.com/VizGrimoire/GrimoireLib-sub002/cmd"
	"github.com/VizGrimoire/GrimoireLib-sub002/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute()
	iocache.CloseCaching()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
