package config

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/waneon/windows-magnifier/internal/combo"
	"github.com/waneon/windows-magnifier/internal/shortcut"
	"github.com/waneon/windows-magnifier/internal/testutil"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestDefaultPath(t *testing.T) {
	t.Run("LOCALAPPDATA preferred", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", filepath.Join("base", "local"))
		t.Setenv("APPDATA", filepath.Join("base", "roaming"))
		want := filepath.Join("base", "local", "windows-magnifier", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("APPDATA fallback", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "  ")
		t.Setenv("APPDATA", filepath.Join("base", "roaming"))
		want := filepath.Join("base", "roaming", "windows-magnifier", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "")
		t.Setenv("APPDATA", "")
		orig := userHomeDirFn
		t.Cleanup(func() { userHomeDirFn = orig })
		userHomeDirFn = func() (string, error) { return "home", nil }
		want := filepath.Join("home", ".config", "windows-magnifier", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})

	t.Run("temp fallback", func(t *testing.T) {
		t.Setenv("LOCALAPPDATA", "")
		t.Setenv("APPDATA", "")
		orig := userHomeDirFn
		t.Cleanup(func() { userHomeDirFn = orig })
		userHomeDirFn = func() (string, error) { return "", errors.New("no home") }
		want := filepath.Join(os.TempDir(), "windows-magnifier", "config.yaml")
		if got := DefaultPath(); got != want {
			t.Fatalf("DefaultPath() = %q, want %q", got, want)
		}
	})
}

func TestParseAndCompile(t *testing.T) {
	raw := []byte(`
log_level: debug
input_transform: false
shortcut:
  C-M-1: {action: set, factor: 1.0}
  C-M-WheelUp: {action: add, factor: 0.25, cooltime: 50}
  C-M-WheelDown: {action: add, factor: -0.25}
  C-M-Middle: {action: toggle, factor: 2.5}
  C-M-F12: {action: exit}
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if level, _ := cfg.Level(); level != slog.LevelDebug {
		t.Errorf("Level() = %v, want DEBUG", level)
	}
	if cfg.InputTransformEnabled() {
		t.Error("InputTransformEnabled() = true, want false")
	}

	table, err := cfg.Compile(epoch)
	if err != nil {
		t.Fatalf("Compile returned unexpected error: %v", err)
	}

	want := []struct {
		spec     string
		action   shortcut.Action
		cooldown time.Duration
	}{
		{"C-M-1", shortcut.Set(1), 0},
		{"C-M-F12", shortcut.Exit(), 0},
		{"C-M-Middle", shortcut.Toggle(2.5), 0},
		{"C-M-WheelDown", shortcut.Add(-0.25), 0},
		{"C-M-WheelUp", shortcut.Add(0.25), 50 * time.Millisecond},
	}
	if table.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", table.Len(), len(want))
	}
	for i, w := range want {
		s := table.At(i)
		if s.Spec != w.spec || s.Action != w.action || s.Cooldown != w.cooldown {
			t.Errorf("At(%d) = {%s %v %v}, want {%s %v %v}", i, s.Spec, s.Action, s.Cooldown, w.spec, w.action, w.cooldown)
		}
	}
	if got := table.At(1).Combination; got != combo.KeyCombination(combo.ModControl|combo.ModAlt, 0x7B) {
		t.Errorf("C-M-F12 combination = %+v", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantSub string
	}{
		{name: "empty file", raw: "", wantSub: "empty"},
		{name: "not a mapping", raw: "- a\n- b\n", wantSub: "invalid config"},
		{name: "missing shortcut", raw: "log_level: info\n", wantSub: "missing field `shortcut`"},
		{name: "unknown top-level field", raw: "shortcut: {}\nzoom: 2\n", wantSub: "zoom"},
		{name: "unknown entry field", raw: "shortcut:\n  C-1: {action: set, factor: 2, speed: 1}\n", wantSub: "speed"},
		{name: "bad log level", raw: "log_level: loud\nshortcut: {}\n", wantSub: "log_level"},
		{name: "factor not a number", raw: "shortcut:\n  C-1: {action: set, factor: big}\n", wantSub: "invalid config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			if !errors.Is(err, ErrConfigParse) {
				t.Fatalf("Parse error = %v, want ErrConfigParse", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestEntriesErrors(t *testing.T) {
	tests := []struct {
		name    string
		sc      ShortcutConfig
		wantSub string
	}{
		{name: "unknown action", sc: ShortcutConfig{Action: "zoom"}, wantSub: `unknown action "zoom"`},
		{name: "missing factor", sc: ShortcutConfig{Action: "set"}, wantSub: "missing field `factor`"},
		{name: "negative cooltime", sc: ShortcutConfig{Action: "exit", Cooltime: testutil.Ptr(-1)}, wantSub: "cooltime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Shortcuts: map[string]ShortcutConfig{"C-1": tt.sc}}
			_, err := cfg.Compile(epoch)
			if !errors.Is(err, ErrConfigParse) {
				t.Fatalf("Compile error = %v, want ErrConfigParse", err)
			}
			if !strings.Contains(err.Error(), tt.wantSub) || !strings.Contains(err.Error(), "C-1") {
				t.Errorf("error = %q, want substring %q naming C-1", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestCompilePropagatesShortcutErrors(t *testing.T) {
	cfg := Config{Shortcuts: map[string]ShortcutConfig{
		"C-1": {Action: "toggle", Factor: testutil.Ptr(float32(0.5))},
	}}
	if _, err := cfg.Compile(epoch); !errors.Is(err, shortcut.ErrInvalidFactor) {
		t.Fatalf("Compile error = %v, want ErrInvalidFactor", err)
	}

	cfg = Config{Shortcuts: map[string]ShortcutConfig{
		"Q-1": {Action: "exit"},
	}}
	if _, err := cfg.Compile(epoch); !errors.Is(err, combo.ErrInvalidModifier) {
		t.Fatalf("Compile error = %v, want ErrInvalidModifier", err)
	}
}

func TestCooltimeBoundedByDuration(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("int cannot exceed the bound on this platform")
	}
	bound := maxCooltime
	tests := []struct {
		name     string
		cooltime int
		wantErr  bool
	}{
		{name: "largest representable", cooltime: int(bound)},
		{name: "one past the bound", cooltime: int(bound) + 1, wantErr: true},
		{name: "max int", cooltime: math.MaxInt, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Shortcuts: map[string]ShortcutConfig{
				"C-1": {Action: "exit", Cooltime: testutil.Ptr(tt.cooltime)},
			}}
			table, err := cfg.Compile(epoch)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Compile returned unexpected error: %v", err)
				}
				if got := table.At(0).Cooldown; got <= 0 {
					t.Fatalf("Cooldown = %v, want positive", got)
				}
				return
			}
			if !errors.Is(err, ErrConfigParse) || !strings.Contains(err.Error(), "cooltime must not exceed") {
				t.Fatalf("Compile error = %v, want cooltime bound error", err)
			}
		})
	}
}

func TestEntriesReportsFirstInvalidSpec(t *testing.T) {
	cfg := Config{Shortcuts: map[string]ShortcutConfig{
		"D": {Action: "zoom"},
		"B": {Action: "zoom"},
		"C": {Action: "zoom"},
		"A": {Action: "zoom"},
	}}
	for range 20 {
		_, err := cfg.Entries()
		if err == nil {
			t.Fatal("Entries returned nil error")
		}
		if !strings.HasSuffix(err.Error(), ": A") {
			t.Fatalf("error = %q, want it to name A", err.Error())
		}
	}
}

func TestNonFiniteFactorsRejected(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
		wantSub string
	}{
		{name: "set NaN", raw: "shortcut:\n  C-1: {action: set, factor: .nan}\n", wantErr: shortcut.ErrInvalidFactor, wantSub: "C-1"},
		{name: "toggle infinity", raw: "shortcut:\n  C-2: {action: toggle, factor: .inf}\n", wantErr: shortcut.ErrInvalidFactor, wantSub: "C-2"},
		{name: "add NaN", raw: "shortcut:\n  C-3: {action: add, factor: .nan}\n", wantErr: shortcut.ErrInvalidDelta, wantSub: "C-3"},
		{name: "add negative infinity", raw: "shortcut:\n  C-4: {action: add, factor: -.inf}\n", wantErr: shortcut.ErrInvalidDelta, wantSub: "C-4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Parse returned unexpected error: %v", err)
			}
			_, err = cfg.Compile(epoch)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Compile error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestExitFactorIgnoredWithWarning(t *testing.T) {
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	cfg := Config{Shortcuts: map[string]ShortcutConfig{
		"C-Q": {Action: "exit", Factor: testutil.Ptr(float32(2))},
	}}
	table, err := cfg.Compile(epoch)
	if err != nil {
		t.Fatalf("Compile returned unexpected error: %v", err)
	}
	if table.At(0).Action != shortcut.Exit() {
		t.Errorf("action = %v, want exit", table.At(0).Action)
	}
	if !strings.Contains(logBuf.String(), "factor ignored") {
		t.Errorf("expected warning, got %q", logBuf.String())
	}
}

func TestEnsureFileWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "windows-magnifier", "config.yaml")

	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile returned unexpected error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if string(raw) != string(DefaultYAML()) {
		t.Error("written file differs from embedded default")
	}
	if _, err := cfg.Compile(epoch); err != nil {
		t.Fatalf("default config does not compile: %v", err)
	}
	if !cfg.InputTransformEnabled() {
		t.Error("default config disables input transform")
	}
}

func TestEnsureFileKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	custom := "shortcut:\n  C-Q: {action: exit}\n"
	if err := os.WriteFile(path, []byte(custom), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile returned unexpected error: %v", err)
	}
	if len(cfg.Shortcuts) != 1 {
		t.Fatalf("loaded %d shortcuts, want 1", len(cfg.Shortcuts))
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != custom {
		t.Fatal("EnsureFile overwrote an existing config")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") expected error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want ErrNotExist", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("shortcut: [1, 2]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, ErrConfigParse) || !strings.Contains(err.Error(), path) {
		t.Errorf("Load error = %v, want ErrConfigParse naming the path", err)
	}
}

func TestReadLimitedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	if err := os.WriteFile(path, make([]byte, 65), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := readLimitedFile(path, 64); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("readLimitedFile error = %v, want size limit error", err)
	}
	if raw, err := readLimitedFile(path, 65); err != nil || len(raw) != 65 {
		t.Fatalf("readLimitedFile = (%d bytes, %v), want 65 bytes", len(raw), err)
	}
}

func TestWatchReportsChanges(t *testing.T) {
	orig := watchDebounce
	t.Cleanup(func() { watchDebounce = orig })
	watchDebounce = 20 * time.Millisecond

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shortcut: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() { changed <- struct{}{} })
	}()

	// Writes to siblings are ignored; the target write must be reported.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for seen := false; !seen; {
		select {
		case <-changed:
			seen = true
		case <-tick.C:
			_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600)
			_ = os.WriteFile(path, []byte("shortcut: {}\n"), 0o600)
		case <-deadline:
			cancel()
			t.Fatal("Watch did not report the config change")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}
