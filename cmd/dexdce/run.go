package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bnb-chain/dexdce/cmd/utils"
	"github.com/bnb-chain/dexdce/core/asm"
	"github.com/bnb-chain/dexdce/core/localdce"
	"github.com/bnb-chain/dexdce/log"
	"github.com/bnb-chain/dexdce/metrics"
)

var runCommand = &cli.Command{
	Action:    runDce,
	Name:      "run",
	Usage:     "Remove dead code from method listings",
	ArgsUsage: "<file> [file...]",
	Flags:     mergeFlags(utils.InputFlags, []cli.Flag{utils.OutputDirFlag, utils.MetricsFlag}),
	Description: `
The run command optimizes every method of the given listings. Optimized
listings are written to the --output directory under their input file names,
or to stdout. A per-file summary table follows.`,
}

func runDce(ctx *cli.Context) error {
	config, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	in, err := loadInputs(config, ctx.Args().Slice())
	if err != nil {
		return err
	}
	res, err := localdce.RunBatch(in.methods(), in.newDce, localdce.BatchConfig{
		Workers:  config.Dce.Workers,
		LogEvery: 1000,
	})
	if err != nil {
		return err
	}
	log.InfoIf(res.Total.NpeInstructions > 0, "Narrowed dead calls to null-checks", "count", res.Total.NpeInstructions)

	out := ctx.App.Writer
	if dir := ctx.String(utils.OutputDirFlag.Name); dir != "" {
		if err := writeListings(dir, in.files); err != nil {
			return err
		}
	} else {
		for _, f := range in.files {
			if err := asm.Print(out, f.methods...); err != nil {
				return err
			}
		}
	}
	printStats(out, in.files, res.PerMethod)
	if ctx.Bool(utils.MetricsFlag.Name) {
		printMetrics(out, metrics.Collect(nil))
	}
	return nil
}

func writeListings(dir string, files []methodFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	for _, f := range files {
		path := filepath.Join(dir, filepath.Base(f.path))
		out, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "create listing")
		}
		err = asm.Print(out, f.methods...)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return errors.Wrapf(err, "write %s", path)
		}
		log.Debug("Wrote listing", "path", path, "methods", len(f.methods))
	}
	return nil
}

// printStats renders one row per input file, with per-method stats laid out
// in input order, and a total.
func printStats(w io.Writer, files []methodFile, perMethod []localdce.Stats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Methods", "Dead", "Unreachable", "Npe", "Aliased", "Normalized"})

	var (
		total localdce.Stats
		next  int
	)
	for _, f := range files {
		var st localdce.Stats
		for range f.methods {
			st.Add(perMethod[next])
			next++
		}
		total.Add(st)
		table.Append(statsRow(f.path, len(f.methods), st))
	}
	table.SetFooter(statsRow("Total", next, total))
	table.Render()
}

func statsRow(name string, methods int, st localdce.Stats) []string {
	return []string{
		name,
		strconv.Itoa(methods),
		strconv.Itoa(st.DeadInstructions),
		strconv.Itoa(st.UnreachableInstructions),
		strconv.Itoa(st.NpeInstructions),
		strconv.Itoa(st.AliasedNewInstances),
		strconv.Itoa(st.NormalizedNewInstances),
	}
}

func printMetrics(w io.Writer, samples []metrics.Sample) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Kind", "Value"})
	for _, s := range samples {
		table.Append([]string{s.Name, s.Kind, fmt.Sprint(s.Value)})
	}
	table.Render()
}
