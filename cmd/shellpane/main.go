package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/odvcencio/shellpane/pkg/command"
	"github.com/odvcencio/shellpane/pkg/command/builtin"
	"github.com/odvcencio/shellpane/pkg/command/plugin"
	"github.com/odvcencio/shellpane/pkg/config"
	"github.com/odvcencio/shellpane/pkg/console"
	"github.com/odvcencio/shellpane/pkg/host"
	"github.com/odvcencio/shellpane/pkg/logging"
	tcellbackend "github.com/odvcencio/shellpane/pkg/ui/backend/tcell"
)

// Version information - set via ldflags during build
var (
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

type startupOptions struct {
	configPath   string
	pluginPath   string
	plainModeSet bool
	plainMode    bool
	showVersion  bool
	showHelp     bool
}

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if err != nil && err.Error() != "" {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCodeForError(err))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseStartupOptions(args)
	if err != nil {
		return withExitCode(err, exitUsage)
	}
	if opts.showHelp {
		printHelp(stdout)
		return nil
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "shellpane %s (commit %s, built %s)\n", version, commit, buildDate)
		return nil
	}

	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return withExitCode(fmt.Errorf("loading config: %w", err), exitUsage)
	}
	if opts.pluginPath != "" {
		cfg.Commands.PluginPath = opts.pluginPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := openLogger(cfg, stderr)
	defer logger.Close()

	builtin.Version = version

	catalogs, closeCatalogs := buildCatalogs(cfg, logger)
	defer closeCatalogs()

	discoverer := &command.Discoverer{Catalogs: catalogs, Logger: logger}
	registry, report := discoverer.Run(ctx, cfg.Commands.Namespace)

	dispatcher := command.NewDispatcher(registry,
		command.WithLogger(logger),
		command.WithTimeout(cfg.Commands.Timeout),
		command.WithSuggestions(cfg.Commands.Suggest),
	)

	plain := !isInteractiveTerminal(stdin, stdout)
	if opts.plainModeSet {
		plain = opts.plainMode
	}
	logViewport(cfg, stdout, logger)

	consoleOpts := []console.Option{
		console.WithDelimiter(cfg.Console.Delimiter),
		console.WithLogger(logger),
	}
	if plain {
		consoleOpts = append(consoleOpts, console.WithMirror(stdout))
	}
	c := console.New(dispatcher, consoleOpts...)
	c.Reset()
	c.PrintLines(report.Lines())

	if plain {
		err = host.RunLines(ctx, stdin, stdout, c,
			host.WithLogger(logger),
			host.WithEcho(!isTerminal(stdin)),
		)
	} else {
		b, berr := tcellbackend.New()
		if berr != nil {
			return fmt.Errorf("opening terminal: %w", berr)
		}
		err = host.Run(ctx, b, c, host.WithLogger(logger))
	}

	switch {
	case errors.Is(err, context.Canceled):
		return quietExit(command.ExitCanceled)
	case err != nil:
		return err
	}
	return quietExit(c.ExitCode())
}

func parseStartupOptions(raw []string) (*startupOptions, error) {
	opts := &startupOptions{}
	var nextConfig, nextPlugins bool

	for _, arg := range raw {
		if nextConfig {
			opts.configPath = arg
			nextConfig = false
			continue
		}
		if nextPlugins {
			opts.pluginPath = arg
			nextPlugins = false
			continue
		}

		switch arg {
		case "--plain", "--no-tui":
			opts.plainModeSet = true
			opts.plainMode = true
		case "--tui":
			opts.plainModeSet = true
			opts.plainMode = false
		case "--version", "-v":
			opts.showVersion = true
		case "--help", "-h":
			opts.showHelp = true
		case "--config", "-c":
			nextConfig = true
		case "--plugins":
			nextPlugins = true
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				opts.configPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--plugins="):
				opts.pluginPath = strings.TrimPrefix(arg, "--plugins=")
			default:
				return nil, fmt.Errorf("unknown argument %q (see --help)", arg)
			}
		}
	}

	if nextConfig {
		return nil, fmt.Errorf("--config requires a path argument")
	}
	if nextPlugins {
		return nil, fmt.Errorf("--plugins requires a path argument")
	}
	return opts, nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "shellpane - embeddable command console")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  shellpane [FLAGS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "FLAGS:")
	fmt.Fprintln(w, "  -c, --config PATH     Load configuration from PATH only")
	fmt.Fprintln(w, "  --plugins PATH        Plugin directory or .zip archive")
	fmt.Fprintln(w, "  --plain               Line mode, no full-screen UI")
	fmt.Fprintln(w, "  --tui                 Full-screen UI even when not on a terminal")
	fmt.Fprintln(w, "  -v, --version         Print version and exit")
	fmt.Fprintln(w, "  -h, --help            Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "KEYS:")
	fmt.Fprintln(w, "  Enter                 Run the current line")
	fmt.Fprintln(w, "  Backspace             Delete the last character")
	fmt.Fprintln(w, "  Ctrl+C                Interrupt the running command, or quit")
	fmt.Fprintln(w, "  Ctrl+D                Quit")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Type 'help' inside the console for the command list.")
}

func openLogger(cfg *config.Config, stderr io.Writer) *logging.Logger {
	if !cfg.Logging.Enabled {
		return nil
	}
	logger, err := logging.NewLogger(cfg.LogDir(), logging.NewSessionID())
	if err != nil {
		fmt.Fprintf(stderr, "Warning: logging disabled: %v\n", err)
		return nil
	}
	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetMinLevel(level)
	}
	return logger
}

// buildCatalogs returns the discovery sources in priority order: built-ins,
// then plugins. A plugin location next to the executable is used only when
// it exists; an explicitly configured one is always tried.
func buildCatalogs(cfg *config.Config, logger *logging.Logger) ([]command.Catalog, func()) {
	var catalogs []command.Catalog
	if cfg.Commands.Builtins {
		catalogs = append(catalogs, command.Builtins())
	}

	var plugins command.Catalog
	if path := cfg.PluginPath(); path != "" {
		plugins = plugin.Select(path)
	} else {
		cat, err := plugin.ForExecutable()
		if err != nil {
			logger.Warn(logging.CategoryDiscovery, "plugin_location", err.Error(), nil)
		} else if dir, ok := cat.(*plugin.Dir); ok && !exists(dir.Root()) {
			logger.Debug(logging.CategoryDiscovery, "plugin_location", "no plugin directory", map[string]any{"path": dir.Root()})
		} else {
			plugins = cat
		}
	}
	if plugins != nil {
		catalogs = append(catalogs, plugins)
	}

	return catalogs, func() {
		if closer, ok := plugins.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Warn(logging.CategoryDiscovery, "plugin_close", err.Error(), nil)
			}
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func isInteractiveTerminal(stdin io.Reader, stdout io.Writer) bool {
	return isTerminal(stdin) && isTerminal(stdout)
}

// logViewport records the initial viewport: the terminal's when stdout is
// one, the configured fallback otherwise.
func logViewport(cfg *config.Config, stdout io.Writer, logger *logging.Logger) {
	cols, rows := cfg.Console.Columns, cfg.Console.Rows
	source := "config"
	if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, h, err := term.GetSize(int(f.Fd())); err == nil {
			cols, rows, source = w, h, "terminal"
		}
	}
	logger.Info(logging.CategoryHost, "viewport", source, map[string]any{"columns": cols, "rows": rows})
}
