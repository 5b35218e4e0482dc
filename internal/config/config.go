package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/waneon/windows-magnifier/internal/shortcut"

	"go.yaml.in/yaml/v3"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond

	// maxCooltime is the largest cooltime in milliseconds that fits a
	// time.Duration.
	maxCooltime = math.MaxInt64 / int64(time.Millisecond)

	appDirName     = "windows-magnifier"
	configFileName = "config.yaml"
)

// ErrConfigParse wraps every structural problem in the configuration file.
var ErrConfigParse = errors.New("invalid config")

//go:embed default-config.yaml
var defaultConfigYAML []byte

var userHomeDirFn = os.UserHomeDir

// Config is the on-disk configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `yaml:"log_level,omitempty"`
	// InputTransform remaps pointer input to the magnified view. It needs
	// uiAccess; without it the magnifier keeps working with a warning.
	// Nil means enabled.
	InputTransform *bool                     `yaml:"input_transform,omitempty"`
	Shortcuts      map[string]ShortcutConfig `yaml:"shortcut"`
}

// ShortcutConfig is one entry of the shortcut mapping, keyed by combination.
type ShortcutConfig struct {
	Action string   `yaml:"action"`
	Factor *float32 `yaml:"factor,omitempty"`
	// Cooltime is in milliseconds.
	Cooltime *int `yaml:"cooltime,omitempty"`
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, configFileName)
}

// DefaultYAML returns the configuration written by EnsureFile.
func DefaultYAML() []byte {
	return bytes.Clone(defaultConfigYAML)
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// EnsureFile writes the default config if path does not exist and returns
// the loaded config.
func EnsureFile(path string) (Config, error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if err := atomicWrite(path, defaultConfigYAML); err != nil {
			return Config{}, err
		}
		slog.Info("[DEBUG-CONFIG] default config written", "path", path)
	}
	return Load(path)
}

// Parse decodes raw YAML strictly: unknown fields are rejected.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: file is empty", ErrConfigParse)
		}
		return Config{}, fmt.Errorf("%w: %w", ErrConfigParse, err)
	}
	if cfg.Shortcuts == nil {
		return Config{}, fmt.Errorf("%w: missing field `shortcut`", ErrConfigParse)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level returns the configured slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrConfigParse, c.LogLevel)
	}
	return level, nil
}

// InputTransformEnabled reports whether pointer remapping is requested.
func (c Config) InputTransformEnabled() bool {
	return c.InputTransform == nil || *c.InputTransform
}

// Entries converts the raw mapping into uncompiled shortcut entries. Specs
// are visited in lexicographic order so the first reported error is stable.
func (c Config) Entries() (map[string]shortcut.Entry, error) {
	entries := make(map[string]shortcut.Entry, len(c.Shortcuts))
	for _, spec := range slices.Sorted(maps.Keys(c.Shortcuts)) {
		entry, err := c.Shortcuts[spec].entry(spec)
		if err != nil {
			return nil, err
		}
		entries[spec] = entry
	}
	return entries, nil
}

// Compile builds the shortcut table. now seeds every shortcut's last run.
func (c Config) Compile(now time.Time) (*shortcut.Table, error) {
	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	return shortcut.Compile(entries, now)
}

func (sc ShortcutConfig) entry(spec string) (shortcut.Entry, error) {
	kind, ok := shortcut.ParseActionKind(sc.Action)
	if !ok {
		return shortcut.Entry{}, fmt.Errorf("%w: unknown action %q: %s", ErrConfigParse, sc.Action, spec)
	}

	var entry shortcut.Entry
	if sc.Cooltime != nil {
		if *sc.Cooltime < 0 {
			return shortcut.Entry{}, fmt.Errorf("%w: cooltime must not be negative: %s", ErrConfigParse, spec)
		}
		if int64(*sc.Cooltime) > maxCooltime {
			return shortcut.Entry{}, fmt.Errorf("%w: cooltime must not exceed %d: %s", ErrConfigParse, maxCooltime, spec)
		}
		entry.Cooldown = time.Duration(*sc.Cooltime) * time.Millisecond
	}

	if kind == shortcut.ActionExit {
		if sc.Factor != nil {
			slog.Warn("[WARN-CONFIG] factor ignored for exit action", "spec", spec)
		}
		entry.Action = shortcut.Exit()
		return entry, nil
	}

	if sc.Factor == nil {
		return shortcut.Entry{}, fmt.Errorf("%w: missing field `factor` for %s action: %s", ErrConfigParse, sc.Action, spec)
	}
	switch kind {
	case shortcut.ActionSet:
		entry.Action = shortcut.Set(*sc.Factor)
	case shortcut.ActionAdd:
		entry.Action = shortcut.Add(*sc.Factor)
	case shortcut.ActionToggle:
		entry.Action = shortcut.Toggle(*sc.Factor)
	}
	return entry, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("write config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("write config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("write config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("write config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("write config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
