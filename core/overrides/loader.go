package overrides

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/bnb-chain/dexdce/core/ir"
)

// Load reads a graph description:
//
//	method LBase;.run:()V
//	LBase;.run:()V -> LImpl;.run:()V
//
// A "method" line declares a method with no further overriders; an arrow
// line records an override edge.
func Load(r io.Reader, cacheSize int) (*Graph, error) {
	g := New(cacheSize)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if rest, ok := strings.CutPrefix(text, "method "); ok {
			ref, err := ir.ParseMethodRef(strings.TrimSpace(rest))
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			g.AddMethod(ref)
			continue
		}
		base, override, ok := strings.Cut(text, "->")
		if !ok {
			return nil, errors.Errorf("line %d: expected \"method <ref>\" or \"<base> -> <override>\"", line)
		}
		b, err := ir.ParseMethodRef(strings.TrimSpace(base))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		o, err := ir.ParseMethodRef(strings.TrimSpace(override))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		g.AddOverride(b, o)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read override graph")
	}
	return g, nil
}

func LoadFile(path string, cacheSize int) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open override graph")
	}
	defer f.Close()
	g, err := Load(f, cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return g, nil
}
