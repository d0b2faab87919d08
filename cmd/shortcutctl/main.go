// Command shortcutctl inspects and validates quickprompt shortcuts offline.
//
// Usage:
//
//	shortcutctl normalize <shortcut>
//	shortcutctl check [-mode system|prompt] <shortcut>
//	shortcutctl reserved
//	shortcutctl list [-config path] [-json]
//	shortcutctl history [-db path] [-limit n]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"quickprompt/internal/config"
	"quickprompt/internal/history"
	"quickprompt/internal/hotkeys"
	"quickprompt/internal/keys"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	var err error
	switch args[0] {
	case "normalize":
		err = cmdNormalize(args[1:], stdout)
	case "check":
		err = cmdCheck(args[1:], stdout)
	case "reserved":
		err = cmdReserved(stdout)
	case "list":
		err = cmdList(args[1:], stdout)
	case "history":
		err = cmdHistory(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage(stderr)
		return exitUsage
	}
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFail
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: shortcutctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  normalize <shortcut>                     print the canonical form")
	fmt.Fprintln(w, "  check [-mode system|prompt] <shortcut>   validate a shortcut")
	fmt.Fprintln(w, "  reserved                                 list reserved shortcuts")
	fmt.Fprintln(w, "  list [-config path] [-json]              list configured shortcuts")
	fmt.Fprintln(w, "  history [-db path] [-limit n]            list recent prompt runs")
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func singleArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s takes exactly one %s", errUsage, fs.Name(), what)
	}
	return fs.Arg(0), nil
}

func cmdNormalize(args []string, stdout io.Writer) error {
	fs := newFlagSet("normalize")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	wire, err := singleArg(fs, "shortcut")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hotkeys.Canonical(wire))
	return nil
}

func cmdCheck(args []string, stdout io.Writer) error {
	fs := newFlagSet("check")
	modeFlag := fs.String("mode", "system", "validation mode: system or prompt")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	wire, err := singleArg(fs, "shortcut")
	if err != nil {
		return err
	}
	mode, err := hotkeys.ParseMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	names := hotkeys.Decode(wire)
	if err := hotkeys.CheckKeys(names, mode, false); err != nil {
		return fmt.Errorf("shortcut %q: %w", wire, err)
	}
	// Reserved entries are positional, so the typed order and the
	// canonical order are both checked.
	sorted := keys.Sort(names)
	if hotkeys.IsReserved(names) || hotkeys.IsReserved(sorted) {
		return fmt.Errorf("shortcut %q: %w", wire, hotkeys.ErrReservedShortcut)
	}

	canonical := hotkeys.Encode(sorted)
	fmt.Fprintf(stdout, "ok %s\n", canonical)
	if mode == hotkeys.ModeSystem {
		if err := hotkeys.CheckGlobal(sorted); err != nil {
			fmt.Fprintf(stdout, "warning: %v\n", err)
		}
	}
	return nil
}

func cmdReserved(stdout io.Writer) error {
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHORTCUT\tDESCRIPTION")
	for _, r := range hotkeys.ReservedShortcuts() {
		fmt.Fprintf(tw, "%s\t%s\n", hotkeys.Encode(r.Keys), r.Description)
	}
	return tw.Flush()
}

func cmdList(args []string, stdout io.Writer) error {
	fs := newFlagSet("list")
	path := fs.String("config", "", "config file (default: the app's config path)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *path == "" {
		*path = config.DefaultPath()
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return fmt.Errorf("load %s: %w", *path, err)
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg.Shortcuts)
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSHORTCUT\tCOMMAND\tDETAIL")
	for _, b := range cfg.Shortcuts {
		shortcut := b.Shortcut
		if shortcut == "" {
			shortcut = "-"
		}
		kind := "-"
		if b.Command != nil {
			kind = string(b.Command.Kind())
		}
		detail := ""
		if p, ok := b.AsPrompt(); ok {
			detail = p.ProviderName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Name, shortcut, kind, detail)
	}
	return tw.Flush()
}

func cmdHistory(args []string, stdout io.Writer) error {
	fs := newFlagSet("history")
	path := fs.String("db", "", "history database (default: history.db next to the config)")
	limit := fs.Int("limit", history.DefaultLimit, "maximum runs to print")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *path == "" {
		*path = filepath.Join(filepath.Dir(config.DefaultPath()), "history.db")
	}
	if _, err := os.Stat(*path); err != nil {
		return fmt.Errorf("history database: %w", err)
	}

	ctx := context.Background()
	store, err := history.Open(ctx, *path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPROMPT\tPROVIDER\tSTATUS\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.PromptName, r.ProviderName, r.Status,
			strings.ReplaceAll(r.Error, "\n", " "))
	}
	return tw.Flush()
}
