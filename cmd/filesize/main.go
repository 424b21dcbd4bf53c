package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timfallmk/filesize/internal/config"
	"github.com/timfallmk/filesize/internal/logging"
	"github.com/timfallmk/filesize/internal/report"
	"github.com/timfallmk/filesize/internal/watch"
)

const (
	name = "filesize"
)

var (
	// These are set by the build system via -ldflags.
	version   = "dev"     // Set via -X main.version=...
	buildTime = "unknown" // Set via -X main.buildTime=...
)

// notifyContext is replaced in tests to stop watch mode without a signal.
var notifyContext = signal.NotifyContext

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type options struct {
	configPath  string
	format      string
	units       string
	logLevel    string
	debounce    time.Duration
	volume      bool
	keepGoing   bool
	showVersion bool
	showHelp    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { showUsage(stderr) }

	opts := &options{}
	flags.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flags.StringVar(&opts.format, "format", "", "Output format (text, json, table)")
	flags.StringVar(&opts.units, "units", "", "Size units (bytes, iec, si)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Set log level (debug, info, warn, error)")
	flags.DurationVar(&opts.debounce, "debounce", 0, "Quiet period before re-measuring in watch mode")
	flags.BoolVar(&opts.volume, "volume", false, "Show filesystem type and allocation unit")
	flags.BoolVar(&opts.keepGoing, "keep-going", false, "Continue after a path fails")
	flags.BoolVar(&opts.showVersion, "version", false, "Show version information")
	flags.BoolVar(&opts.showHelp, "help", false, "Show help information")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	// Options may also follow the command word.
	command, paths := splitCommand(args, flags.Args())
	if command != "" {
		rest := paths
		if err := flags.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return exitOK
			}
			return exitUsage
		}
		paths = stripTerminator(rest, flags.Args())
	} else {
		paths = stripTerminator(args, paths)
	}

	if opts.showHelp {
		showUsage(stdout)
		return exitOK
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "%s version %s\n", name, version)
		fmt.Fprintf(stdout, "Build time: %s\n", buildTime)
		return exitOK
	}

	cfg, err := loadConfiguration(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to load configuration: %v\n", name, err)
		return exitUsage
	}

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if err := applyCommandLineOverrides(cfg, opts, set); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitUsage
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: invalid configuration: %v\n", name, err)
		return exitUsage
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitUsage
	}
	defer logger.Close()
	logging.SetGlobalLogger(logger)
	logging.Debug("configuration resolved",
		"command", command,
		"format", cfg.Output.Format,
		"units", cfg.Output.Units,
		"paths", len(paths))

	switch command {
	case "config":
		showConfiguration(stdout, cfg)
		return exitOK
	case "watch":
		if len(paths) == 0 {
			showUsage(stderr)
			return exitUsage
		}
		return runWatch(cfg, logger, paths, stdout, stderr)
	default:
		if len(paths) == 0 {
			showUsage(stderr)
			return exitUsage
		}
		return runMeasure(cfg, logger, paths, stdout, stderr)
	}
}

// splitCommand separates a leading command word from the paths. A "--"
// before the first positional argument means there is no command, so files
// named "watch" or "config" can still be measured.
func splitCommand(args, positional []string) (string, []string) {
	if len(positional) == 0 {
		return "", nil
	}

	if idx := len(args) - len(positional); idx > 0 && args[idx-1] == "--" {
		return "", positional
	}

	switch positional[0] {
	case "watch", "config":
		return positional[0], positional[1:]
	default:
		return "", positional
	}
}

// stripTerminator drops the first "--" among the positional arguments, so
// "a -- b" measures a and b. A "--" that already ended option parsing just
// before them was consumed by the flag package and is not looked for again.
func stripTerminator(args, positional []string) []string {
	if idx := len(args) - len(positional); idx > 0 && args[idx-1] == "--" {
		return positional
	}

	for i, p := range positional {
		if p == "--" {
			out := make([]string, 0, len(positional)-1)
			out = append(out, positional[:i]...)
			return append(out, positional[i+1:]...)
		}
	}

	return positional
}

func runMeasure(cfg *config.Config, logger *logging.Logger, paths []string, stdout, stderr io.Writer) int {
	out, err := report.NewFormatter(stdout, cfg.Output.Format, cfg.Output.Units, cfg.Output.Volume)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitUsage
	}

	measurer := report.NewMeasurer(logger, cfg.Output.Volume)
	status := exitOK

	for _, path := range paths {
		u, err := measurer.Measure(path)
		if err != nil {
			logger.Debug("measure failed", "path", path, "error", err)
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			status = exitFailure

			if !cfg.Output.KeepGoing {
				break
			}
			continue
		}

		if err := out.Write(u); err != nil {
			fmt.Fprintf(stderr, "%s: write: %v\n", name, err)
			return exitFailure
		}
	}

	if err := out.Flush(); err != nil {
		fmt.Fprintf(stderr, "%s: write: %v\n", name, err)
		return exitFailure
	}

	return status
}

func runWatch(cfg *config.Config, logger *logging.Logger, paths []string, stdout, stderr io.Writer) int {
	out, err := report.NewFormatter(stdout, cfg.Output.Format, cfg.Output.Units, cfg.Output.Volume)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitUsage
	}

	measurer := report.NewMeasurer(logger, cfg.Output.Volume)

	w, err := watch.New(cfg.Watch, logger, measurer.Measure)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitFailure
	}
	defer w.Close()

	for _, path := range paths {
		if err := w.Add(path); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return exitFailure
		}
	}

	ctx, stop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(map[string]interface{}{
		"count":    len(paths),
		"debounce": cfg.Watch.Debounce.String(),
		"initial":  cfg.Watch.Initial,
	}).Info("watching files")

	err = w.Run(ctx, func(u report.Usage) {
		if err := out.Write(u); err != nil {
			logger.Warn("write failed", "path", u.Path, "error", err)
			return
		}
		if err := out.Flush(); err != nil {
			logger.Warn("flush failed", "error", err)
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitFailure
	}

	logger.Info("watch stopped")
	return exitOK
}

func loadConfiguration(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}

	configFile, err := config.FindConfig()
	if err != nil {
		return config.DefaultConfig(), nil //nolint:nilerr
	}

	return config.LoadConfig(configFile)
}

func applyCommandLineOverrides(cfg *config.Config, opts *options, set map[string]bool) error {
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}

	if opts.units != "" {
		cfg.Output.Units = opts.units
	}

	if set["volume"] {
		cfg.Output.Volume = opts.volume
	}

	if set["keep-going"] {
		cfg.Output.KeepGoing = opts.keepGoing
	}

	if set["debounce"] {
		cfg.Watch.Debounce = opts.debounce
	}

	if opts.logLevel != "" {
		level, err := logging.ParseLevel(opts.logLevel)
		if err != nil {
			return err
		}
		cfg.Logging.Level = level
	}

	return nil
}

func showUsage(w io.Writer) {
	fmt.Fprintf(w, `%s - report the disk space a file actually occupies

USAGE:
    %s [OPTIONS] <path>...
    %s [OPTIONS] watch <path>...
    %s [OPTIONS] config

COMMANDS:
    (none)              Print logical and on-disk size of each path
    watch               Re-print sizes whenever the files change
    config              Show current configuration

OPTIONS:
    -config string      Path to configuration file
    -format string      Output format (text, json, table)
    -units string       Size units (bytes, iec, si)
    -volume             Show filesystem type and allocation unit
    -keep-going         Continue after a path fails
    -debounce duration  Quiet period before re-measuring in watch mode
    -log-level string   Set log level (debug, info, warn, error)
    -version            Show version information
    -help               Show this help message

    Use -- before the paths to measure files named "watch" or "config".
    The first -- is a separator wherever it appears. Name a file "--" as ./--.

EXAMPLES:
    %s disk.img                         # Logical and on-disk size
    %s -units iec -volume *.qcow2       # Human units with filesystem info
    %s -format json a b c               # One JSON object per line
    %s watch -debounce 1s sparse.img    # Follow a file as it fills in

CONFIGURATION:
    Configuration files are searched in the following order:
    1. Path specified by -config flag
    2. $XDG_CONFIG_HOME/filesize/config.yaml
    3. $HOME/.config/filesize/config.yaml
    4. /etc/filesize/config.yaml
    5. /usr/local/etc/filesize/config.yaml
    6. ./configs/config.yaml

`, name, name, name, name, name, name, name, name)
}

func showConfiguration(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Current Configuration:\n")
	fmt.Fprintf(w, "  Output:\n")
	fmt.Fprintf(w, "    Format: %s\n", cfg.Output.Format)
	fmt.Fprintf(w, "    Units: %s\n", cfg.Output.Units)
	fmt.Fprintf(w, "    Volume: %t\n", cfg.Output.Volume)
	fmt.Fprintf(w, "    Keep Going: %t\n", cfg.Output.KeepGoing)
	fmt.Fprintf(w, "  Watch:\n")
	fmt.Fprintf(w, "    Debounce: %s\n", cfg.Watch.Debounce)
	fmt.Fprintf(w, "    Initial Report: %t\n", cfg.Watch.Initial)
	fmt.Fprintf(w, "  Logging:\n")
	fmt.Fprintf(w, "    Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "    Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "    Output: %s\n", cfg.Logging.Output)
}
