// dexdce is the command-line front end of the local dead-code eliminator.
package main

import (
	"os"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"

	"github.com/bnb-chain/dexdce/cmd/utils"
	"github.com/bnb-chain/dexdce/internal/debug"
)

var app = newApp()

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "dexdce"
	app.Usage = "dead-code elimination for register byte-code listings"
	app.Commands = []*cli.Command{
		runCommand,
		analyzeCommand,
		drawCommand,
		dumpConfigCommand,
	}
	app.Flags = debug.Flags
	app.Before = func(ctx *cli.Context) error {
		return debug.Setup(ctx)
	}
	return app
}

func main() {
	if err := app.Run(os.Args); err != nil {
		utils.Fatalf("%v", err)
	}
}

// mergeFlags concatenates flag groups into a fresh slice.
func mergeFlags(groups ...[]cli.Flag) []cli.Flag {
	var ret []cli.Flag
	for _, group := range groups {
		ret = append(ret, group...)
	}
	return ret
}
