// Package overrides records which methods may override a virtual method at
// runtime.
package overrides

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/exp/slices"

	"github.com/bnb-chain/dexdce/core/ir"
)

const DefaultCacheSize = 4096

// Graph maps a method to its direct overriders. Overriders memoizes the
// transitive closure, so the graph must be fully built before it is shared
// between goroutines.
type Graph struct {
	known    mapset.Set[ir.MethodRef]
	children map[ir.MethodRef]mapset.Set[ir.MethodRef]
	closure  *lru.Cache
}

// New returns an empty graph whose closure cache holds up to cacheSize
// methods.
func New(cacheSize int) *Graph {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New(cacheSize)
	return &Graph{
		known:    mapset.NewThreadUnsafeSet[ir.MethodRef](),
		children: make(map[ir.MethodRef]mapset.Set[ir.MethodRef]),
		closure:  cache,
	}
}

// AddMethod declares ref as a method with a fully known override set.
func (g *Graph) AddMethod(ref ir.MethodRef) {
	g.known.Add(ref)
}

// AddOverride records that override may be dispatched to for base.
func (g *Graph) AddOverride(base, override ir.MethodRef) {
	g.known.Add(base)
	g.known.Add(override)
	set, ok := g.children[base]
	if !ok {
		set = mapset.NewThreadUnsafeSet[ir.MethodRef]()
		g.children[base] = set
	}
	set.Add(override)
	g.closure.Purge()
}

// Known reports whether ref was declared. Overrides of unknown methods
// cannot be enumerated.
func (g *Graph) Known(ref ir.MethodRef) bool {
	return g != nil && g.known.Contains(ref)
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return g.known.Cardinality()
}

// Overriders returns every method that transitively overrides ref, sorted,
// and whether ref is known at all. The returned slice is shared and must not
// be modified.
func (g *Graph) Overriders(ref ir.MethodRef) ([]ir.MethodRef, bool) {
	if !g.Known(ref) {
		return nil, false
	}
	if cached, ok := g.closure.Get(ref); ok {
		return cached.([]ir.MethodRef), true
	}
	var (
		seen  = mapset.NewThreadUnsafeSet[ir.MethodRef](ref)
		queue = []ir.MethodRef{ref}
		out   []ir.MethodRef
	)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, ok := g.children[cur]
		if !ok {
			continue
		}
		children.Each(func(child ir.MethodRef) bool {
			if seen.Add(child) {
				out = append(out, child)
				queue = append(queue, child)
			}
			return false
		})
	}
	slices.SortFunc(out, func(a, b ir.MethodRef) int {
		return strings.Compare(a.String(), b.String())
	})
	g.closure.Add(ref, out)
	return out, true
}
