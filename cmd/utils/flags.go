// Package utils contains internal helper functions for dexdce commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	dceCategory    = "OPTIMIZER"
	inputCategory  = "INPUTS"
	outputCategory = "OUTPUT"
)

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.

var (
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}

	// Inputs
	PureMethodsFlag = &cli.StringFlag{
		Name:     "pure",
		Usage:    "Comma separated files listing side-effect free methods, one reference per line",
		Category: inputCategory,
	}
	OverridesFlag = &cli.StringFlag{
		Name:     "overrides",
		Usage:    "File describing the method override graph",
		Category: inputCategory,
	}
	OverrideCacheFlag = &cli.IntFlag{
		Name:     "overrides.cache",
		Usage:    "Number of override closures kept in memory",
		Category: inputCategory,
	}

	// Optimizer settings
	AllocateRegistersFlag = &cli.BoolFlag{
		Name:     "allocate-registers",
		Usage:    "Allow widening the register frame when merging constructions",
		Category: dceCategory,
	}
	WorkersFlag = &cli.IntFlag{
		Name:     "workers",
		Usage:    "Number of methods optimized concurrently (0 = derived from the method count)",
		Category: dceCategory,
	}
	NoNullChecksFlag = &cli.BoolFlag{
		Name:     "no-null-checks",
		Usage:    "Delete dead calls on possibly-null receivers instead of keeping a null-check",
		Category: dceCategory,
	}

	// Output
	OutputDirFlag = &cli.StringFlag{
		Name:     "output",
		Aliases:  []string{"o"},
		Usage:    "Directory receiving the optimized listings (default = stdout)",
		Category: outputCategory,
	}
	MetricsFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Print the collected metrics after the run",
		Category: outputCategory,
	}
	DotFormatFlag = &cli.StringFlag{
		Name:     "format",
		Usage:    "Graph output format: dot or svg",
		Value:    "dot",
		Category: outputCategory,
	}
)

// InputFlags are accepted by every command that reads method bodies.
var InputFlags = []cli.Flag{
	ConfigFileFlag,
	PureMethodsFlag,
	OverridesFlag,
	OverrideCacheFlag,
	AllocateRegistersFlag,
	WorkersFlag,
	NoNullChecksFlag,
}

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// SplitAndTrim splits input separated by a comma
// and trims excessive white space from the substrings.
func SplitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}

// CheckExclusive returns an error when more than one of the given flags is
// set. A flag may be followed by a string, in which case it only counts when
// set to that value.
func CheckExclusive(ctx *cli.Context, args ...interface{}) error {
	set := make([]string, 0, 1)
	for i := 0; i < len(args); i++ {
		flag, ok := args[i].(cli.Flag)
		if !ok {
			panic(fmt.Sprintf("invalid argument, not cli.Flag type: %T", args[i]))
		}
		name := flag.Names()[0]

		if i+1 < len(args) {
			switch option := args[i+1].(type) {
			case string:
				if ctx.String(flag.Names()[0]) == option {
					name += "=" + option
					set = append(set, "--"+name)
				}
				i++
				continue

			case cli.Flag:
			default:
				panic(fmt.Sprintf("invalid argument, not cli.Flag or string extension: %T", args[i+1]))
			}
		}
		if ctx.IsSet(flag.Names()[0]) {
			set = append(set, "--"+name)
		}
	}
	if len(set) > 1 {
		return errors.Errorf("flags %v can't be used at the same time", strings.Join(set, ", "))
	}
	return nil
}
