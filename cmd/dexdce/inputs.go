package main

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bnb-chain/dexdce/core/asm"
	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/localdce"
	"github.com/bnb-chain/dexdce/core/overrides"
	"github.com/bnb-chain/dexdce/core/purity"
	"github.com/bnb-chain/dexdce/log"
)

// methodFile is one parsed input listing.
type methodFile struct {
	path    string
	methods []*cfg.Method
}

// inputs is everything a command reads before optimizing.
type inputs struct {
	config    dexdceConfig
	pure      *purity.Oracle
	overrides *overrides.Graph
	files     []methodFile
}

// loadInputs reads the oracles and every method file concurrently.
func loadInputs(config dexdceConfig, paths []string) (*inputs, error) {
	if len(paths) == 0 {
		return nil, errors.New("no method files given")
	}
	var (
		in     = &inputs{config: config, files: make([]methodFile, len(paths))}
		oracle = make([]*purity.Oracle, len(config.Inputs.PureMethods))
		group  errgroup.Group
	)
	for i, path := range config.Inputs.PureMethods {
		i, path := i, path
		group.Go(func() error {
			o, err := purity.LoadFile(path)
			if err != nil {
				return errors.Wrapf(err, "pure methods %s", path)
			}
			oracle[i] = o
			return nil
		})
	}
	if path := config.Inputs.Overrides; path != "" {
		group.Go(func() error {
			g, err := overrides.LoadFile(path, config.Dce.OverrideCacheSize)
			if err != nil {
				return errors.Wrapf(err, "overrides %s", path)
			}
			in.overrides = g
			return nil
		})
	}
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			methods, err := asm.ParseFile(path)
			if err != nil {
				return err
			}
			in.files[i] = methodFile{path: path, methods: methods}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	in.pure = purity.New()
	for _, o := range oracle {
		in.pure.Add(o.Methods()...)
	}
	if in.overrides == nil {
		log.Warn("No override graph given, virtual calls are kept")
	}
	log.Info("Loaded inputs", "files", len(in.files), "methods", len(in.methods()),
		"pure", in.pure.Len(), "overrides", in.overrides.Len())
	return in, nil
}

// methods lists every method of every file, in input order.
func (in *inputs) methods() []*cfg.Method {
	var out []*cfg.Method
	for _, f := range in.files {
		out = append(out, f.methods...)
	}
	return out
}

// newDce builds a pass for one method. Passes share the read-only oracles.
func (in *inputs) newDce() *localdce.LocalDce {
	return localdce.New(in.pure, in.overrides, in.config.Dce.MayAllocateRegisters,
		localdce.WithNullChecks(in.config.Dce.PreserveNullChecks))
}
