// Package main provides the semtype binary entry point.
// Semtype previews type changes of instances: it converts an instance to
// another definition, reports the fields the change drops and the
// referrers whose relations stay valid.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/semtype/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semtype"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	fixtures   string
	natsURL    string
	logLevel   string
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Instance type change previews",
		Long: `Semtype converts instances to other definitions the way a type change
would, without storing the result.

It provides:
- Previews of an instance converted to another definition
- The referrers whose relations stay valid after a type change
- The allowed super types of a class

Instances are read from YAML fixtures or from a NATS KV bucket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.fixtures, "fixtures", "", "Fixture directory (overrides fixtures.path)")
	cmd.PersistentFlags().StringVar(&opts.natsURL, "nats-url", "", "NATS server URL (overrides nats.url)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		previewCmd(opts),
		affectedCmd(opts),
		supertypesCmd(opts),
		importCmd(opts),
		serveCmd(opts),
		shellCmd(opts),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func previewCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <instance> <definition>",
		Short: "Convert an instance to another definition without storing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				result, err := app.Preview(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func affectedCmd(opts *globalOptions) *cobra.Command {
	var countOnly bool

	cmd := &cobra.Command{
		Use:   "affected <instance> <type>",
		Short: "List the referrers whose relations stay valid after a type change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				result, err := app.Affected(ctx, args[0], args[1], countOnly)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().BoolVar(&countOnly, "count", false, "Only count the affected instances")
	return cmd
}

func supertypesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "supertypes <class>",
		Short: "Show the allowed super types of a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				supers, err := app.SuperTypes(ctx, args[0])
				if err != nil {
					return err
				}
				for _, s := range supers {
					fmt.Fprintln(cmd.OutOrStdout(), s)
				}
				return nil
			})
		},
	}
}

func importCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Copy the fixture instances into the NATS KV bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				n, err := app.Import(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d instances\n", n)
				return nil
			})
		},
	}
}

func serveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer type change requests published to JetStream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				return app.Serve(ctx)
			})
		},
	}
}

func shellCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run an interactive shell that follows config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *App) error {
				return app.RunREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), app.configPath)
			})
		},
	}
}

// withApp configures logging, loads the config, starts an App and runs fn.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, app *App) error) error {
	logger := newLogger(opts.logLevel, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	cfg, configPath, err := opts.load(logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	app.configPath = configPath

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer app.Shutdown(shutdownTimeout)

	return fn(ctx, app)
}

// load returns the effective config and the file it came from, if any.
// An explicit --config file replaces the layered lookup.
func (o *globalOptions) load(logger *slog.Logger) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
		if err != nil {
			return nil, "", err
		}
		if url := os.Getenv(config.EnvNATSURL); url != "" {
			cfg.NATS.URL = url
		}
		path = o.configPath
	} else {
		loader := config.NewLoader(logger)
		cfg, err = loader.Load()
		if err != nil {
			return nil, "", err
		}
		path = loader.ProjectConfigPath()
	}

	if o.fixtures != "" {
		cfg.Fixtures.Path = o.fixtures
	}
	if o.natsURL != "" {
		cfg.NATS.URL = o.natsURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
