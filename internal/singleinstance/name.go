package singleinstance

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

// mutexPrefix scopes the lock to the login session; each desktop session
// gets its own magnifier.
const mutexPrefix = `Local\windows-magnifier-`

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeUsername normalizes username-like values used in mutex names.
func sanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

func mutexName(username string) string {
	return mutexPrefix + sanitizeUsername(username)
}

func currentUsername() string {
	username := strings.TrimSpace(os.Getenv("USERNAME"))
	if username == "" {
		if current, err := user.Current(); err == nil {
			username = current.Username
		}
	}
	return username
}
