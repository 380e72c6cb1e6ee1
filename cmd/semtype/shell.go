package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/semtype/config"
)

// RunREPL reads commands from in until EOF, quit or exit. The skipped
// classes follow the config file at configPath when it is set.
func (a *App) RunREPL(ctx context.Context, in io.Reader, out io.Writer, configPath string) error {
	if configPath != "" {
		watcher, err := config.NewWatcher(config.WatcherConfig{
			Path:    configPath,
			Skipped: a.skipped,
			Logger:  a.logger,
		})
		if err != nil {
			return fmt.Errorf("create config watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
		go drainReloads(ctx, watcher)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "semtype> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			return nil
		}

		if err := a.handleCommand(ctx, out, strings.Fields(input)); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

// drainReloads keeps the watcher's event channel from filling up.
func drainReloads(ctx context.Context, w *config.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-w.Events():
			if !ok {
				return
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, out io.Writer, parts []string) error {
	cmd, args := parts[0], parts[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(out, "Available commands:")
		fmt.Fprintln(out, "  preview <instance> <definition>  - Convert an instance to another definition")
		fmt.Fprintln(out, "  affected <instance> <type>       - List referrers kept by a type change")
		fmt.Fprintln(out, "  count <instance> <type>          - Count referrers kept by a type change")
		fmt.Fprintln(out, "  supertypes <class>               - Show the allowed super types of a class")
		fmt.Fprintln(out, "  skipped                          - Show the skipped classes")
		fmt.Fprintln(out, "  quit/exit                        - Exit the shell")
		return nil

	case "preview":
		if len(args) != 2 {
			return fmt.Errorf("usage: preview <instance> <definition>")
		}
		result, err := a.Preview(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return writeJSON(out, result)

	case "affected", "count":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s <instance> <type>", cmd)
		}
		result, err := a.Affected(ctx, args[0], args[1], cmd == "count")
		if err != nil {
			return err
		}
		return writeJSON(out, result)

	case "supertypes":
		if len(args) != 1 {
			return fmt.Errorf("usage: supertypes <class>")
		}
		supers, err := a.SuperTypes(ctx, args[0])
		if err != nil {
			return err
		}
		for _, s := range supers {
			fmt.Fprintln(out, s)
		}
		return nil

	case "skipped":
		for _, s := range a.skipped.Snapshot() {
			fmt.Fprintln(out, s)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q, type help for available commands", cmd)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
