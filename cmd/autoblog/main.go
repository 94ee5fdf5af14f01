// autoblog collects topics, researches them, generates posts with an LLM and
// commits them into a Jekyll site repository.
//
// Usage:
//
//	autoblog run --mode=once|seed|dynamic [--dry-run] [--count=N]
//	autoblog schedule [--mode=dynamic] [--interval=24h]
//	autoblog check "<title>"
//	autoblog stats
//	autoblog history [--limit=10]
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNoPosts) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
