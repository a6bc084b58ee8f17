package localdce

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/dexdce/core/asm"
	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
	"github.com/bnb-chain/dexdce/core/overrides"
	"github.com/bnb-chain/dexdce/core/purity"
)

func mustParse(t *testing.T, src string) *cfg.Method {
	t.Helper()
	methods, err := asm.ParseString(src)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	return methods[0]
}

// assertBody checks that m now reads as the listing in want.
func assertBody(t *testing.T, want string, m *cfg.Method) {
	t.Helper()
	assert.Equal(t, asm.Format(mustParse(t, want)), asm.Format(m))
}

func method(registers int, body string) string {
	return fmt.Sprintf(".method LTest;.run:()V\n.registers %d\n%s.end method\n", registers, body)
}

func refs(names ...string) []ir.MethodRef {
	out := make([]ir.MethodRef, len(names))
	for i, n := range names {
		out[i] = ir.MustParseMethodRef(n)
	}
	return out
}

func newDce(pure ...string) *LocalDce {
	return New(purity.New(refs(pure...)...), nil, false)
}

func TestEndToEnd(t *testing.T) {
	m := mustParse(t, method(2, `
B0:
  const v0, 5
  add-int v1, v0, v0
  return-void
`))
	st := newDce().DceMethod(m)
	assert.Equal(t, Stats{DeadInstructions: 2}, st)
	assertBody(t, method(2, "B0:\n  return-void\n"), m)

	kept := method(2, `
B0:
  const v0, 5
  add-int v1, v0, v0
  return v1
`)
	m = mustParse(t, kept)
	st = newDce().DceMethod(m)
	assert.Equal(t, Stats{}, st)
	assertBody(t, kept, m)
}

func TestAcrossBlocks(t *testing.T) {
	m := mustParse(t, method(3, `
B0:
  const v0, 1
  const v1, 2
  const v2, 3
  if-eqz v0
  -> true B1
  -> false B2
B1:
  return v1
B2:
  add-int v2, v1, v1
  return-void
`))
	st := newDce().Dce(m.Graph)
	assert.Equal(t, 2, st.DeadInstructions)
	assertBody(t, method(3, `
B0:
  const v0, 1
  const v1, 2
  if-eqz v0
  -> true B1
  -> false B2
B1:
  return v1
B2:
  return-void
`), m)
}

func TestCatchConservatism(t *testing.T) {
	const protected = `
B0:
  const v0, 1
  invoke-static {}, LUtil;.work:()V
  const v0, 2
  invoke-static {v0}, LUtil;.use:(I)V
  return-void
  -> catch B1 Ljava/lang/Exception;
B1:
  return v0
`
	m := mustParse(t, method(1, protected))
	st := newDce().Dce(m.Graph)
	assert.Equal(t, Stats{}, st, "the handler reads v0, so both writes stay")
	assertBody(t, method(1, protected), m)

	m = mustParse(t, method(1, `
B0:
  const v0, 1
  invoke-static {}, LUtil;.work:()V
  const v0, 2
  invoke-static {v0}, LUtil;.use:(I)V
  return-void
`))
	st = newDce().Dce(m.Graph)
	assert.Equal(t, Stats{DeadInstructions: 1}, st)
}

func TestMoveResult(t *testing.T) {
	m := mustParse(t, method(2, `
B0:
  invoke-static {}, LUtil;.pure:()I
  move-result v0
  filled-new-array {v0, v0}, [I
  move-result-object v1
  return-void
`))
	st := newDce("LUtil;.pure:()I").Dce(m.Graph)
	assert.Equal(t, 4, st.DeadInstructions)

	kept := method(1, `
B0:
  invoke-static {}, LUtil;.pure:()I
  move-result v0
  return v0
`)
	m = mustParse(t, kept)
	assert.Equal(t, Stats{}, newDce("LUtil;.pure:()I").Dce(m.Graph))

	// an impure call stays even though its result is dropped
	m = mustParse(t, method(1, `
B0:
  invoke-static {}, LUtil;.next:()I
  move-result v0
  return-void
`))
	st = newDce().Dce(m.Graph)
	assert.Equal(t, 1, st.DeadInstructions)
	assertBody(t, method(1, "B0:\n  invoke-static {}, LUtil;.next:()I\n  return-void\n"), m)
}

const virtualCall = `
B0:
  new-instance v0, LFoo;
  invoke-direct {v0}, LFoo;.<init>:()V
  invoke-virtual {v0}, LFoo;.hash:()I
  return-void
`

func hierarchy(t *testing.T) *overrides.Graph {
	t.Helper()
	g, err := overrides.Load(strings.NewReader(`
LFoo;.hash:()I -> LSub;.hash:()I
LSub;.hash:()I -> LSub2;.hash:()I
`), 0)
	require.NoError(t, err)
	return g
}

func TestPurityPropagation(t *testing.T) {
	all := []string{"LFoo;.<init>:()V", "LFoo;.hash:()I", "LSub;.hash:()I", "LSub2;.hash:()I"}
	tests := []struct {
		name      string
		pure      []string
		overrides *overrides.Graph
		dead      int
	}{
		{"every override pure", all, hierarchy(t), 3},
		{"transitive override impure", all[:3], hierarchy(t), 0},
		{"direct override impure", []string{all[0], all[1], all[3]}, hierarchy(t), 0},
		{"callee impure", []string{all[0], all[2], all[3]}, hierarchy(t), 0},
		{"no override graph", all, nil, 0},
		{"callee unknown to the graph", all, overrides.New(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, method(1, virtualCall))
			d := New(purity.New(refs(tt.pure...)...), tt.overrides, false)
			st := d.Dce(m.Graph)
			assert.Equal(t, tt.dead, st.DeadInstructions)
			assert.Zero(t, st.NpeInstructions)
		})
	}
}

func TestStaticAndDirectCallsSkipOverrides(t *testing.T) {
	m := mustParse(t, method(1, `
B0:
  const v0, 1
  invoke-static {v0}, LUtil;.pure:(I)V
  return-void
`))
	st := New(purity.New(refs("LUtil;.pure:(I)V")...), nil, false).Dce(m.Graph)
	assert.Equal(t, 2, st.DeadInstructions)
}

func TestNullCheckPreservation(t *testing.T) {
	pure := purity.New(refs("LFoo;.hash:()I", "LSub;.hash:()I", "LSub2;.hash:()I")...)
	src := method(2, `
B0:
  invoke-virtual {v1}, LFoo;.hash:()I
  move-result v0
  return-void
`)

	m := mustParse(t, src)
	st := New(pure, hierarchy(t), false).Dce(m.Graph)
	assert.Equal(t, Stats{NpeInstructions: 1, DeadInstructions: 1}, st)
	assertBody(t, method(2, "B0:\n  null-check v1\n  return-void\n"), m)

	m = mustParse(t, src)
	st = New(pure, hierarchy(t), false, WithNullChecks(false)).Dce(m.Graph)
	assert.Equal(t, Stats{DeadInstructions: 2}, st)

	// v1 was dereferenced by the store, so the call cannot throw NPE
	m = mustParse(t, method(2, `
B0:
  iput v0, v1, LFoo;.x:I
  invoke-virtual {v1}, LFoo;.hash:()I
  return-void
`))
	st = New(pure, hierarchy(t), false).Dce(m.Graph)
	assert.Equal(t, Stats{DeadInstructions: 1}, st)

	// the first narrowed call proves v1 non-null for the second
	m = mustParse(t, method(2, `
B0:
  invoke-virtual {v1}, LFoo;.hash:()I
  invoke-virtual {v1}, LFoo;.hash:()I
  return-void
`))
	st = New(pure, hierarchy(t), false).Dce(m.Graph)
	assert.Equal(t, Stats{NpeInstructions: 1, DeadInstructions: 1}, st)
	assertBody(t, method(2, "B0:\n  null-check v1\n  return-void\n"), m)
}

func TestUnreachableVersusDead(t *testing.T) {
	m := mustParse(t, method(2, `
B0:
  const v0, 5
  return-void
B1:
  const v1, 1
  const v0, 2
  return v0
  -> goto B2
B2:
  return-void
`))
	st := newDce().Dce(m.Graph)
	assert.Equal(t, Stats{DeadInstructions: 1, UnreachableInstructions: 4}, st)
	assert.Len(t, m.Graph.Blocks(), 1)
}

func TestGhostEdgesDoNotReach(t *testing.T) {
	m := mustParse(t, method(1, `
B0:
  return-void
  -> ghost B1
B1:
  const v0, 1
  return v0
`))
	st := newDce().Dce(m.Graph)
	assert.Equal(t, 2, st.UnreachableInstructions)
}

func TestIdempotence(t *testing.T) {
	src := method(4, `
B0:
  const v0, 1
  const v1, 2
  add-int v2, v0, v1
  invoke-static {v2}, LUtil;.log:(I)V
  new-instance v3, LFoo;
  invoke-direct {v3}, LFoo;.<init>:()V
  invoke-virtual {v3}, LFoo;.hash:()I
  if-eqz v0
  -> true B1
  -> false B2
B1:
  const v1, 9
  return v2
B2:
  mul-int v1, v0, v0
  return-void
B3:
  return-void
`)
	d := New(purity.New(refs("LFoo;.<init>:()V")...), hierarchy(t), true)
	m := mustParse(t, src)
	first := d.Dce(m.Graph)
	assert.NotZero(t, first.Removed())
	once := asm.Format(m)

	second := d.Dce(m.Graph)
	assert.Equal(t, Stats{}, second)
	assert.Equal(t, once, asm.Format(m))
	assert.Equal(t, first, d.Stats())
}

func TestMonotoneLiveness(t *testing.T) {
	m := mustParse(t, method(3, `
B0:
  const v0, 0
  const v1, 10
  const v2, 1
  -> goto B1
B1:
  if-lt v0, v1
  -> true B2
  -> false B3
B2:
  add-int v0, v0, v2
  -> goto B1
B3:
  return v0
`))
	g := m.Graph
	d := newDce()
	blocks := postOrder(g, cfg.NormalSuccs)
	s := newSolution(g, blocks, cfg.NormalSuccs, d.IsRequired, nil)

	prev := make(map[*cfg.Block][2]*Liveness)
	s.observe = func(pass int) {
		for _, b := range blocks {
			if p, ok := prev[b]; ok {
				assert.True(t, s.LiveIn(b).Contains(p[0]), "pass %d: live-in of %s shrank", pass, b.ID())
				assert.True(t, s.LiveOut(b).Contains(p[1]), "pass %d: live-out of %s shrank", pass, b.ID())
			}
			prev[b] = [2]*Liveness{s.LiveIn(b).Clone(), s.LiveOut(b).Clone()}
		}
	}
	s.solve()
	assert.Greater(t, s.Passes(), 1)

	loop := g.Blocks()[1]
	assert.Equal(t, []ir.Reg{0, 1, 2}, s.LiveIn(loop).Registers())
	assert.Empty(t, s.Dead())
}

func TestDeadInstructionsIsReadOnly(t *testing.T) {
	src := method(3, `
B0:
  const v0, 1
  const v1, 2
  -> goto B1
B1:
  const v2, 3
  add-int v2, v2, v2
  return-void
`)
	m := mustParse(t, src)
	g := m.Graph
	b0, b1 := g.Blocks()[0], g.Blocks()[1]
	d := newDce()

	dead := d.DeadInstructions(g, []*cfg.Block{b0, b1}, nil, nil)
	require.Len(t, dead, 4)
	assert.Equal(t, []DeadInstruction{
		{Block: b0, Index: 1, Insn: b0.Instruction(1)},
		{Block: b0, Index: 0, Insn: b0.Instruction(0)},
		{Block: b1, Index: 1, Insn: b1.Instruction(1)},
		{Block: b1, Index: 0, Insn: b1.Instruction(0)},
	}, dead)
	assertBody(t, src, m)

	// an extra rule layered over the default policy
	keepConsts := func(g *cfg.Graph, b *cfg.Block, insn *ir.Instruction, live *Liveness) bool {
		return insn.Op == ir.OpConst || d.IsRequired(g, b, insn, live)
	}
	dead = d.DeadInstructions(g, nil, nil, keepConsts)
	require.Len(t, dead, 1)
	assert.Equal(t, ir.OpAddInt, dead[0].Insn.Op)

	// successors outside the analyzed blocks are assumed to read everything
	dead = d.DeadInstructions(g, []*cfg.Block{b0}, nil, nil)
	assert.Empty(t, dead)
}

func TestCustomPolicyDrivesDce(t *testing.T) {
	m := mustParse(t, method(1, `
B0:
  const v0, 1
  return-void
`))
	d := New(purity.New(), nil, false, WithRequired(func(g *cfg.Graph, b *cfg.Block, insn *ir.Instruction, live *Liveness) bool {
		return true
	}))
	assert.Equal(t, Stats{}, d.Dce(m.Graph))
}

func TestMalformedGraphPanics(t *testing.T) {
	g := cfg.New(1)
	g.NewBlock().Append(ir.NewDefInstruction(ir.OpConst, 3), ir.NewInstruction(ir.OpReturnVoid))
	assert.Panics(t, func() { newDce().Dce(g) })
}

func TestStatsAdd(t *testing.T) {
	s := Stats{NpeInstructions: 1, DeadInstructions: 2}
	s.Add(Stats{DeadInstructions: 3, UnreachableInstructions: 4, AliasedNewInstances: 2, NormalizedNewInstances: 1})
	assert.Equal(t, Stats{1, 5, 4, 2, 1}, s)
	assert.Equal(t, 9, s.Removed())
}

func TestAnalyzeMatchesDce(t *testing.T) {
	pure := purity.New(refs("LFoo;.hash:()I", "LSub;.hash:()I", "LSub2;.hash:()I")...)
	src := method(2, `
B0:
  invoke-virtual {v1}, LFoo;.hash:()I
  move-result v0
  return-void
`)
	m := mustParse(t, src)
	d := New(pure, hierarchy(t), false)
	dead := d.Analyze(m.Graph)
	require.Len(t, dead, 2)
	assert.Equal(t, 1, dead[0].Index)
	assert.False(t, dead[0].NullCheck)
	assert.Equal(t, 0, dead[1].Index)
	assert.True(t, dead[1].NullCheck)
	assertBody(t, src, m)

	st := d.Dce(m.Graph)
	assert.Equal(t, Stats{NpeInstructions: 1, DeadInstructions: 1}, st)

	// without narrowing nothing is marked
	m = mustParse(t, src)
	for _, dead := range New(pure, hierarchy(t), false, WithNullChecks(false)).Analyze(m.Graph) {
		assert.False(t, dead.NullCheck)
	}
}
