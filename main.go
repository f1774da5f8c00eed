package main

import "os"

// exit is swapped out by tests.
var exit = os.Exit

func main() {
	Execute()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		exit(1)
	}
}
