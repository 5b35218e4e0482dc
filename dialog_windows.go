//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

func showError(err error) {
	messageBox(err.Error(), windows.MB_OK|windows.MB_ICONERROR)
}

func showWarning(msg string) {
	messageBox(msg, windows.MB_OK|windows.MB_ICONWARNING)
}

func messageBox(text string, style uint32) {
	textPtr, err := windows.UTF16PtrFromString(text)
	if err != nil {
		slog.Warn("[DEBUG-APP] message box text rejected", "error", err)
		return
	}
	titlePtr, err := windows.UTF16PtrFromString(appName)
	if err != nil {
		return
	}
	if _, err := windows.MessageBox(0, textPtr, titlePtr, style); err != nil {
		slog.Warn("[DEBUG-APP] message box failed", "error", err)
	}
}
