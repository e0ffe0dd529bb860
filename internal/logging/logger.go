package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"packline/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
	// NoColor disables ANSI level colouring even when writing to a terminal.
	NoColor bool
}

// New constructs a slog logger using the provided options. Each output path
// receives its own handler so terminal outputs can be coloured while log files
// stay plain.
func New(opts Options) (*slog.Logger, error) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(opts.Level))
	addSource := opts.Development || levelVar.Level() <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	outputs, err := openOutputs(opts.OutputPaths)
	if err != nil {
		return nil, err
	}

	handlers := make([]slog.Handler, 0, len(outputs))
	for _, out := range outputs {
		if format == "json" {
			handlers = append(handlers, newJSONHandler(out.writer, levelVar, addSource))
			continue
		}
		color := out.terminal && !opts.NoColor
		handlers = append(handlers, newPrettyHandler(out.writer, levelVar, addSource, color))
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

// NewFromConfig creates a logger writing to stdout and the configured log file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}

	outputPaths := []string{"stdout"}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		outputPaths = append(outputPaths, cfg.LogPath())
	}

	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputPaths,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type output struct {
	writer   io.Writer
	terminal bool
}

func openOutputs(paths []string) ([]output, error) {
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	seen := map[string]struct{}{}
	var outputs []output
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			outputs = append(outputs, output{writer: os.Stdout, terminal: isTerminal(os.Stdout)})
		case "stderr":
			outputs = append(outputs, output{writer: os.Stderr, terminal: isTerminal(os.Stderr)})
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("ensure log directory: %w", err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			outputs = append(outputs, output{writer: file})
		}
	}
	if len(outputs) == 0 {
		outputs = append(outputs, output{writer: os.Stdout, terminal: isTerminal(os.Stdout)})
	}
	return outputs, nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
