// Package purity holds the set of methods known to be free of observable
// side effects.
package purity

import (
	"bufio"
	"io"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/bnb-chain/dexdce/core/ir"
)

// Oracle answers whether a method is side-effect free. It is safe for
// concurrent readers. A nil Oracle knows no pure methods.
type Oracle struct {
	methods mapset.Set[ir.MethodRef]
}

func New(refs ...ir.MethodRef) *Oracle {
	return &Oracle{methods: mapset.NewSet[ir.MethodRef](refs...)}
}

func (o *Oracle) Add(refs ...ir.MethodRef) {
	for _, ref := range refs {
		o.methods.Add(ref)
	}
}

// IsPure reports whether ref is in the oracle.
func (o *Oracle) IsPure(ref ir.MethodRef) bool {
	if o == nil {
		return false
	}
	return o.methods.Contains(ref)
}

func (o *Oracle) Len() int {
	if o == nil {
		return 0
	}
	return o.methods.Cardinality()
}

// Methods lists the pure methods in string order.
func (o *Oracle) Methods() []ir.MethodRef {
	if o == nil {
		return nil
	}
	out := o.methods.ToSlice()
	slices.SortFunc(out, func(a, b ir.MethodRef) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Load reads one method reference per line. Blank lines and lines starting
// with '#' are ignored.
func Load(r io.Reader) (*Oracle, error) {
	o := New()
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ref, err := ir.ParseMethodRef(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		o.Add(ref)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read pure methods")
	}
	return o, nil
}

func LoadFile(path string) (*Oracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open pure methods")
	}
	defer f.Close()
	o, err := Load(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return o, nil
}
