//go:build !windows

package main

import (
	"fmt"
	"os"
)

func showError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
}

func showWarning(msg string) {
	fmt.Fprintf(os.Stderr, "%s: warning: %s\n", appName, msg)
}
