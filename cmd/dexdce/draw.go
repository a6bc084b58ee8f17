package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bnb-chain/dexdce/cmd/utils"
	"github.com/bnb-chain/dexdce/core/asm"
	"github.com/bnb-chain/dexdce/core/cfg"
)

var (
	drawOutFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Output file path (.dot or .svg). If empty, write to stdout",
	}
	drawTitleFlag = &cli.StringFlag{
		Name:  "title",
		Usage: "Graph title (optional)",
	}

	drawCommand = &cli.Command{
		Action:    draw,
		Name:      "draw",
		Usage:     "Render the control-flow graphs of a listing as DOT or SVG",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{utils.DotFormatFlag, drawOutFlag, drawTitleFlag},
	}
)

func draw(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	methods, err := asm.ParseFile(ctx.Args().First())
	if err != nil {
		return err
	}
	dot := buildDOT(methods, ctx.String(drawTitleFlag.Name))

	outArg := ctx.String(drawOutFlag.Name)
	format := ctx.String(utils.DotFormatFlag.Name)
	if !ctx.IsSet(utils.DotFormatFlag.Name) && outArg != "" {
		if strings.ToLower(filepath.Ext(outArg)) == ".svg" {
			format = "svg"
		}
	}

	switch format {
	case "dot":
	case "svg":
		// Attempt to use graphviz dot
		if _, err := exec.LookPath("dot"); err != nil {
			return errors.New("dot not found in PATH; install graphviz or choose --format=dot")
		}
		var svgOut bytes.Buffer
		cmd := exec.Command("dot", "-Tsvg")
		cmd.Stdin = bytes.NewReader(dot)
		cmd.Stdout = &svgOut
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return errors.Wrap(err, "dot render")
		}
		dot = svgOut.Bytes()
	default:
		return errors.Errorf("unknown format %q (use dot or svg)", format)
	}

	if outArg == "" {
		_, err = ctx.App.Writer.Write(dot)
		return err
	}
	return os.WriteFile(outArg, dot, 0o644)
}

// buildDOT draws every method as a cluster. Throw edges are dashed and
// ghost edges dotted.
func buildDOT(methods []*cfg.Method, title string) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintln(w, "digraph CFG {")
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	if title != "" {
		fmt.Fprintf(w, "  labelloc=\"t\";\n  label=\"%s\";\n", escapeDOT(title))
	}
	for i, m := range methods {
		fmt.Fprintf(w, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(w, "    label=\"%s\";\n", escapeDOT(m.Ref.String()))
		for _, b := range m.Graph.Blocks() {
			var label strings.Builder
			label.WriteString(b.ID().String())
			if b == m.Graph.Entry() {
				label.WriteString(" (entry)")
			}
			for _, insn := range b.Instructions() {
				label.WriteString("\\l")
				label.WriteString(escapeDOT(insn.String()))
			}
			label.WriteString("\\l")
			fmt.Fprintf(w, "    m%d_%s [label=\"%s\"];\n", i, b.ID(), label.String())
		}
		for _, b := range m.Graph.Blocks() {
			for _, e := range b.Succs() {
				fmt.Fprintf(w, "    m%d_%s -> m%d_%s [label=\"%s\"%s];\n", i, b.ID(), i, e.Target.ID(), e.Type, edgeStyle(e))
			}
		}
		fmt.Fprintln(w, "  }")
	}
	fmt.Fprintln(w, "}")
	w.Flush()
	return buf.Bytes()
}

func edgeStyle(e *cfg.Edge) string {
	switch e.Type {
	case cfg.EdgeThrow:
		return ", style=dashed"
	case cfg.EdgeGhost:
		return ", style=dotted"
	}
	return ""
}

func escapeDOT(s string) string {
	// Only escape double-quotes and convert literal newlines to \n.
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
