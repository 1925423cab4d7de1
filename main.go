// main is the entry point of the repostats CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/repostats/cmd"
	"github.com/huangsam/repostats/internal/iocache"
)

func main() {
	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		fmt.Fprintln(os.Stderr, "⚠️ ", stopErr)
	}
	iocache.CloseStores()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
