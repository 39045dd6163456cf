package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// showProgress reports whether the transfer subprocess should forward its
// progress meter: only on a terminal, and never in quiet mode.
func showProgress() bool {
	return !flagQuiet && isatty.IsTerminal(os.Stderr.Fd())
}
