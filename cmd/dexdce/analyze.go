package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/bnb-chain/dexdce/cmd/utils"
)

var analyzeCommand = &cli.Command{
	Action:    analyze,
	Name:      "analyze",
	Usage:     "List dead instructions without changing anything",
	ArgsUsage: "<file> [file...]",
	Flags:     mergeFlags(utils.InputFlags),
	Description: `
The analyze command solves liveness for every method and prints the
instructions the optimizer would remove, last position first within a block.
Calls that run would narrow to a null-check on their receiver are listed
with that action. Unreachable blocks are not listed.`,
}

func analyze(ctx *cli.Context) error {
	config, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	in, err := loadInputs(config, ctx.Args().Slice())
	if err != nil {
		return err
	}
	printDead(ctx.App.Writer, in)
	return nil
}

func printDead(w io.Writer, in *inputs) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Method", "Block", "Index", "Instruction", "Action"})

	d := in.newDce()
	count := 0
	for _, m := range in.methods() {
		for _, dead := range d.Analyze(m.Graph) {
			action := "remove"
			if dead.NullCheck {
				action = "null-check"
			}
			table.Append([]string{m.Ref.String(), dead.Block.ID().String(), strconv.Itoa(dead.Index), dead.Insn.String(), action})
			count++
		}
	}
	table.SetFooter([]string{"", "", "", "Dead", strconv.Itoa(count)})
	table.Render()
}
