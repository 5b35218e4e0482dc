package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/waneon/windows-magnifier/internal/config"
)

const appName = "windows-magnifier"

type options struct {
	configPath string
	check      bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", `config file (default: %LOCALAPPDATA%\windows-magnifier\config.yaml)`)
	fs.BoolVar(&opts.check, "check", false, "validate the config, print the compiled shortcuts and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if opts.configPath == "" {
		opts.configPath = config.DefaultPath()
	}

	if opts.check {
		setConsoleUTF8()
		if err := runCheck(opts.configPath, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := runApp(ctx, opts.configPath); err != nil {
		slog.Error("[DEBUG-APP] fatal error", "error", err)
		showError(err)
		return 1
	}
	return 0
}
