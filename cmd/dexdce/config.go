package main

import (
	"bufio"
	"os"
	"reflect"

	"github.com/naoina/toml"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/bnb-chain/dexdce/cmd/utils"
	"github.com/bnb-chain/dexdce/internal/debug"
	"github.com/bnb-chain/dexdce/log"
	"github.com/bnb-chain/dexdce/metrics"
)

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Export configuration values in a TOML format",
	ArgsUsage:   "<dumpfile (optional)>",
	Flags:       mergeFlags(utils.InputFlags),
	Description: `Export configuration values in TOML format (to stdout by default).`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return errors.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

type dceConfig struct {
	MayAllocateRegisters bool
	Workers              int
	PreserveNullChecks   bool
	OverrideCacheSize    int
}

type inputsConfig struct {
	PureMethods []string
	Overrides   string `toml:",omitempty"`
}

type dexdceConfig struct {
	Dce    dceConfig
	Inputs inputsConfig
	Log    debug.LogConfig
}

func defaultConfig() dexdceConfig {
	return dexdceConfig{
		Dce: dceConfig{
			PreserveNullChecks: true,
			OverrideCacheSize:  4096,
		},
		Log: debug.DefaultLogConfig,
	}
}

func loadConfig(file string, cfg *dexdceConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig layers the config file and then the command line over the
// defaults, and re-installs the logger for the result.
func makeConfig(ctx *cli.Context) (dexdceConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, errors.Wrap(err, "load config")
		}
	}
	applyFlags(ctx, &cfg)
	if err := debug.SetupLogger(cfg.Log, os.Stderr); err != nil {
		return cfg, err
	}
	metrics.GetOrRegisterLabel("dce/config", nil).Mark(map[string]interface{}{
		"allocate-registers": cfg.Dce.MayAllocateRegisters,
		"workers":            cfg.Dce.Workers,
		"null-checks":        cfg.Dce.PreserveNullChecks,
		"pure-files":         len(cfg.Inputs.PureMethods),
	})
	log.Debug("Loaded configuration", "workers", cfg.Dce.Workers,
		"allocate", cfg.Dce.MayAllocateRegisters, "nullchecks", cfg.Dce.PreserveNullChecks)
	return cfg, nil
}

func applyFlags(ctx *cli.Context, cfg *dexdceConfig) {
	if ctx.IsSet(utils.PureMethodsFlag.Name) {
		cfg.Inputs.PureMethods = utils.SplitAndTrim(ctx.String(utils.PureMethodsFlag.Name))
	}
	if ctx.IsSet(utils.OverridesFlag.Name) {
		cfg.Inputs.Overrides = ctx.String(utils.OverridesFlag.Name)
	}
	if ctx.IsSet(utils.OverrideCacheFlag.Name) {
		cfg.Dce.OverrideCacheSize = ctx.Int(utils.OverrideCacheFlag.Name)
	}
	if ctx.IsSet(utils.AllocateRegistersFlag.Name) {
		cfg.Dce.MayAllocateRegisters = ctx.Bool(utils.AllocateRegistersFlag.Name)
	}
	if ctx.IsSet(utils.WorkersFlag.Name) {
		cfg.Dce.Workers = ctx.Int(utils.WorkersFlag.Name)
	}
	if ctx.IsSet(utils.NoNullChecksFlag.Name) {
		cfg.Dce.PreserveNullChecks = !ctx.Bool(utils.NoNullChecksFlag.Name)
	}
	debug.ApplyFlags(ctx, &cfg.Log)
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	_, err = dump.Write(out)
	return err
}
