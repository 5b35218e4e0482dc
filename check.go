package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/waneon/windows-magnifier/internal/config"
	"github.com/waneon/windows-magnifier/internal/shortcut"
)

// runCheck loads and compiles the config at path and prints the resulting
// shortcut table without touching the screen.
func runCheck(path string, w io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	table, err := cfg.Compile(time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return printTable(w, table)
}

func printTable(w io.Writer, table *shortcut.Table) error {
	shadowed := make(map[int]int)
	for _, d := range table.Duplicates() {
		shadowed[d.Index] = d.ShadowOf
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "IDX\tSHORTCUT\tCOMBINATION\tACTION\tCOOLTIME\tNOTE\n")
	for i := range table.Len() {
		s := table.At(i)
		cooltime := "-"
		if s.Cooldown > 0 {
			cooltime = s.Cooldown.String()
		}
		note := ""
		if first, ok := shadowed[i]; ok {
			note = "shadowed by " + strconv.Itoa(first)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, s.Spec, s.Combination, s.Action, cooltime, note)
	}
	return tw.Flush()
}
