package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The user was already told through the notifier.
		if !errors.Is(err, errNotified) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
