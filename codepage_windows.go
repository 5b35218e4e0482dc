//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

const codePageUTF8 = 65001

// setConsoleUTF8 lets -check print non-ASCII config paths correctly.
func setConsoleUTF8() {
	if err := windows.SetConsoleOutputCP(codePageUTF8); err != nil {
		slog.Debug("[DEBUG-APP] SetConsoleOutputCP failed", "error", err)
	}
}
