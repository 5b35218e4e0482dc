package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/waneon/windows-magnifier/internal/applog"
	"github.com/waneon/windows-magnifier/internal/config"
	"github.com/waneon/windows-magnifier/internal/dispatch"
	"github.com/waneon/windows-magnifier/internal/hotkeys"
	"github.com/waneon/windows-magnifier/internal/magnification"
	"github.com/waneon/windows-magnifier/internal/singleinstance"
	"github.com/waneon/windows-magnifier/internal/workerutil"
)

const logFileName = "magnifier.log"

// runApp starts the magnifier and blocks until an exit shortcut runs, ctx is
// cancelled or a fatal error occurs. The screen is back at 1x when it returns.
func runApp(ctx context.Context, configPath string) error {
	cfg, err := config.EnsureFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Parse already validated the level.
	level, _ := cfg.Level()

	collector := &applog.Collector{}
	logger, logFile, err := applog.Open(logPath(configPath), level, collector)
	if err != nil {
		return err
	}
	defer logFile.Close()
	previous := slog.Default()
	slog.SetDefault(logger)
	defer slog.SetDefault(previous)

	lock, err := singleinstance.TryLock(singleinstance.DefaultMutexName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		return err
	}
	if err != nil {
		slog.Warn("[DEBUG-SINGLE] mutex creation failed, proceeding without single-instance guard", "error", err)
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] mutex release failed", "error", releaseErr)
			}
		}()
	}

	table, err := cfg.Compile(time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", configPath, err)
	}
	if warnings := takeStartupWarnings(collector); warnings != "" {
		// The message box blocks until dismissed; startup must not wait for it.
		go showWarning(warnings)
	}

	var workers sync.WaitGroup
	defer workers.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	host := hotkeys.NewHost()
	workerutil.RunWithRecovery(ctx, "config-watcher", &workers, func(ctx context.Context) error {
		return config.Watch(ctx, configPath, func() { reloadConfig(configPath, host) })
	}, workerutil.RecoveryOptions{
		OnFatal: func(worker string, lastErr error) {
			slog.Error("[DEBUG-APP] config hot reload disabled", "worker", worker, "error", lastErr)
		},
	})

	return host.Run(ctx, func() (hotkeys.Handler, func(), error) {
		mag, err := magnification.Open()
		if err != nil {
			return nil, nil, err
		}
		engine, err := dispatch.New(dispatch.Options{
			Table:          table,
			Queue:          host,
			Magnifier:      mag,
			Screen:         mag,
			Registrar:      host,
			InputTransform: cfg.InputTransformEnabled(),
		})
		if err == nil {
			err = engine.Start()
		}
		if err != nil {
			if closeErr := mag.Close(); closeErr != nil {
				slog.Warn("[DEBUG-APP] failed to restore magnification", "error", closeErr)
			}
			return nil, nil, err
		}
		slog.Info("[DEBUG-APP] magnifier started", "shortcuts", table.Len(), "config", configPath)

		cleanup := func() {
			if err := mag.Close(); err != nil {
				slog.Warn("[DEBUG-APP] failed to restore magnification", "error", err)
			}
		}
		return engine, cleanup, nil
	})
}

// reloadConfig recompiles the config and hands the new table to the
// dispatcher. Invalid configs are logged and the current table stays active.
func reloadConfig(path string, queue dispatch.Queue) {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload rejected, keeping current shortcuts", "error", err)
		return
	}
	table, err := cfg.Compile(time.Now())
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload rejected, keeping current shortcuts", "error", err)
		return
	}
	if err := queue.Post(dispatch.ReloadEvent{Table: table}); err != nil {
		slog.Warn("[WARN-CONFIG] failed to queue config reload", "error", err)
		return
	}
	slog.Info("[DEBUG-CONFIG] config reloaded", "path", path, "shortcuts", table.Len())
}

// takeStartupWarnings returns the warnings collected so far and stops the
// collector; later warnings only reach the log file.
func takeStartupWarnings(collector *applog.Collector) string {
	warnings := collector.Consume()
	collector.Stop()
	return strings.Join(warnings, "\n")
}

func logPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), logFileName)
}
