// Package debug wires the logging flags shared by every command.
package debug

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bnb-chain/dexdce/log"
)

const loggingCategory = "LOGGING AND DEBUGGING"

var (
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: loggingCategory,
	}
	LogFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file instead of stderr",
		Category: loggingCategory,
	}
	LogMaxSizeFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Maximum size in megabytes of the log file before it gets rotated",
		Value:    100,
		Category: loggingCategory,
	}
	LogJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs with JSON",
		Category: loggingCategory,
	}
)

// Flags holds all command-line flags required for debugging.
var Flags = []cli.Flag{
	VerbosityFlag,
	LogFileFlag,
	LogMaxSizeFlag,
	LogJSONFlag,
}

// LogConfig is the logging part of the tool configuration.
type LogConfig struct {
	Verbosity int
	File      string `toml:",omitempty"`
	MaxSize   int
	JSON      bool
}

// DefaultLogConfig matches the flag defaults.
var DefaultLogConfig = LogConfig{Verbosity: 3, MaxSize: 100}

// ApplyFlags overrides cfg with every logging flag set on the command line.
func ApplyFlags(ctx *cli.Context, cfg *LogConfig) {
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(VerbosityFlag.Name)
	}
	if ctx.IsSet(LogFileFlag.Name) {
		cfg.File = ctx.String(LogFileFlag.Name)
	}
	if ctx.IsSet(LogMaxSizeFlag.Name) {
		cfg.MaxSize = ctx.Int(LogMaxSizeFlag.Name)
	}
	if ctx.IsSet(LogJSONFlag.Name) {
		cfg.JSON = ctx.Bool(LogJSONFlag.Name)
	}
}

// Setup initializes the root logger from the command line.
func Setup(ctx *cli.Context) error {
	cfg := DefaultLogConfig
	ApplyFlags(ctx, &cfg)
	return SetupLogger(cfg, os.Stderr)
}

// SetupLogger installs a root logger for cfg. Without a log file, records go
// to stderr, colored when stderr is a terminal.
func SetupLogger(cfg LogConfig, stderr io.Writer) error {
	var (
		output   = stderr
		useColor = false
		level    = log.FromLegacyLevel(cfg.Verbosity)
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return errors.Wrap(err, "create log directory")
		}
		output = &lumberjack.Logger{
			Filename: cfg.File,
			MaxSize:  cfg.MaxSize,
		}
	} else if f, ok := stderr.(*os.File); ok {
		useColor = (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
		if useColor {
			output = colorable.NewColorable(f)
		}
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = log.JSONHandlerWithLevel(output, level)
	} else {
		handler = log.NewTerminalHandlerWithLevel(output, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}
