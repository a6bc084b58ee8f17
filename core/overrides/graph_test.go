package overrides

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/dexdce/core/ir"
)

var (
	base  = ir.MustParseMethodRef("LBase;.run:()V")
	mid   = ir.MustParseMethodRef("LMid;.run:()V")
	leafA = ir.MustParseMethodRef("LLeafA;.run:()V")
	leafB = ir.MustParseMethodRef("LLeafB;.run:()V")
)

func TestOverridersTransitive(t *testing.T) {
	g := New(0)
	g.AddOverride(base, mid)
	g.AddOverride(mid, leafB)
	g.AddOverride(mid, leafA)

	got, ok := g.Overriders(base)
	require.True(t, ok)
	assert.Equal(t, []ir.MethodRef{leafA, leafB, mid}, got)

	got, ok = g.Overriders(leafA)
	assert.True(t, ok)
	assert.Empty(t, got)

	_, ok = g.Overriders(ir.MustParseMethodRef("LOther;.run:()V"))
	assert.False(t, ok)
}

func TestOverridersCacheInvalidation(t *testing.T) {
	g := New(2)
	g.AddOverride(base, mid)
	got, _ := g.Overriders(base)
	assert.Len(t, got, 1)

	g.AddOverride(mid, leafA)
	got, _ = g.Overriders(base)
	assert.Equal(t, []ir.MethodRef{leafA, mid}, got)
}

func TestOverridersCycle(t *testing.T) {
	g := New(0)
	g.AddOverride(base, mid)
	g.AddOverride(mid, base)
	got, ok := g.Overriders(base)
	require.True(t, ok)
	assert.Equal(t, []ir.MethodRef{mid}, got)
}

func TestNilGraph(t *testing.T) {
	var g *Graph
	assert.False(t, g.Known(base))
	assert.Zero(t, g.Len())
	_, ok := g.Overriders(base)
	assert.False(t, ok)
}

func TestLoad(t *testing.T) {
	src := `# hierarchy
method LSolo;.run:()V
LBase;.run:()V -> LMid;.run:()V
LMid;.run:()V->LLeafA;.run:()V
`
	g, err := Load(strings.NewReader(src), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())
	assert.True(t, g.Known(ir.MustParseMethodRef("LSolo;.run:()V")))
	got, ok := g.Overriders(base)
	require.True(t, ok)
	assert.Equal(t, []ir.MethodRef{leafA, mid}, got)

	for _, bad := range []string{"LBase;.run:()V\n", "LBase;.run:()V -> nope\n", "method nope\n"} {
		_, err := Load(strings.NewReader(bad), 0)
		require.Error(t, err, bad)
		assert.Contains(t, err.Error(), "line 1")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.txt")
	require.NoError(t, os.WriteFile(path, []byte("LBase;.run:()V -> LMid;.run:()V\n"), 0o644))
	g, err := LoadFile(path, 16)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	_, err = LoadFile(path+".missing", 16)
	assert.Error(t, err)
}
