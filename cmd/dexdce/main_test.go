package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/dexdce/core/asm"
	"github.com/bnb-chain/dexdce/log"
)

const listing = `.method LApp;.sum:(I)I
.registers 3
B0:
  const v0, 5
  add-int v1, v2, v2
  invoke-static {v1}, LMath;.abs:(I)I
  move-result v1
  return v2
  -> catch B1 Ljava/lang/Exception;
B1:
  return v2
.end method

.method LApp;.call:()V
.registers 2
B0:
  invoke-virtual {v1}, LApp;.size:()I
  move-result v0
  return-void
.end method
`

// writeTemp is a helper function to create a temp file with the provided content.
func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Unable to write temporary file: %v", err)
	}
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := log.Root()
	defer log.SetDefault(prev)

	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	err := a.Run(append([]string{"dexdce", "--verbosity", "0"}, args...))
	return out.String(), err
}

func fixtures(t *testing.T) (dir, methods, pure, ovr string) {
	t.Helper()
	dir = t.TempDir()
	methods = writeTemp(t, dir, "app.dasm", listing)
	pure = writeTemp(t, dir, "pure.txt", "# math\nLMath;.abs:(I)I\nLApp;.size:()I\n")
	ovr = writeTemp(t, dir, "overrides.txt", "method LApp;.size:()I\n")
	return dir, methods, pure, ovr
}

func TestRunCommand(t *testing.T) {
	_, methods, pure, ovr := fixtures(t)
	out, err := runApp(t, "run", "--pure", pure, "--overrides", ovr, "--metrics", methods)
	require.NoError(t, err)

	assert.Contains(t, out, ".method LApp;.sum:(I)I\n.registers 3\nB0:\n  return v2\n")
	assert.Contains(t, out, "null-check v1")
	assert.NotContains(t, out, "LMath;.abs")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "dce/instructions/dead")
	assert.Contains(t, out, "dce/config")
}

func TestRunCommandOutputDir(t *testing.T) {
	dir, methods, pure, _ := fixtures(t)
	outDir := filepath.Join(dir, "out")
	out, err := runApp(t, "run", "--pure", pure, "--no-null-checks", "--output", outDir, methods)
	require.NoError(t, err)
	assert.NotContains(t, out, ".method")

	parsed, err := asm.ParseFile(filepath.Join(outDir, "app.dasm"))
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	// without an override graph the virtual call stays
	assert.Equal(t, 2, parsed[1].Graph.InstructionCount())
	assert.Equal(t, 1, parsed[0].Graph.InstructionCount())
}

func TestRunCommandErrors(t *testing.T) {
	dir, _, _, _ := fixtures(t)
	_, err := runApp(t, "run")
	assert.ErrorContains(t, err, "no method files given")

	bad := writeTemp(t, dir, "bad.dasm", ".method LApp;.x:()V\n.registers 1\nB0:\n  frobnicate v0\n.end method\n")
	_, err = runApp(t, "run", bad)
	assert.ErrorContains(t, err, "bad.dasm:4")
}

func TestAnalyzeCommand(t *testing.T) {
	_, methods, pure, ovr := fixtures(t)
	before, err := os.ReadFile(methods)
	require.NoError(t, err)

	out, err := runApp(t, "analyze", "--pure", pure, "--overrides", ovr, methods)
	require.NoError(t, err)
	assert.Contains(t, out, "const v0, 5")
	assert.Contains(t, out, "move-result v0")
	assert.Contains(t, out, "LApp;.call:()V")
	assert.Contains(t, out, "null-check")
	assert.Contains(t, out, "remove")

	after, err := os.ReadFile(methods)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDumpConfig(t *testing.T) {
	dir, _, _, _ := fixtures(t)
	config := writeTemp(t, dir, "config.toml", `[Dce]
MayAllocateRegisters = true
Workers = 2

[Inputs]
PureMethods = ["a.txt", "b.txt"]
`)
	out, err := runApp(t, "dumpconfig", "--config", config, "--workers", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "MayAllocateRegisters = true")
	assert.Contains(t, out, "Workers = 8")
	assert.Contains(t, out, "PreserveNullChecks = true")
	assert.Contains(t, out, `"b.txt"`)
}

func TestLoadConfigUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "config.toml", "[Dce]\nBogus = 1\n")
	cfg := defaultConfig()
	err := loadConfig(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'Bogus' is not defined")
	assert.True(t, strings.HasPrefix(err.Error(), path), err.Error())
}

func TestBuildDOT(t *testing.T) {
	methods, err := asm.ParseString(listing)
	require.NoError(t, err)
	dot := string(buildDOT(methods, `say "hi"`))

	assert.True(t, strings.HasPrefix(dot, "digraph CFG {\n"))
	assert.Contains(t, dot, `label="say \"hi\""`)
	assert.Contains(t, dot, "subgraph cluster_1")
	assert.Contains(t, dot, `m0_B0 -> m0_B1 [label="catch", style=dashed];`)
	assert.Contains(t, dot, "B0 (entry)")
}

func TestDrawCommand(t *testing.T) {
	dir, methods, _, _ := fixtures(t)
	out, err := runApp(t, "draw", methods)
	require.NoError(t, err)
	assert.Contains(t, out, "digraph CFG")

	path := filepath.Join(dir, "graph.dot")
	_, err = runApp(t, "draw", "--out", path, methods)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cluster_0")

	_, err = runApp(t, "draw", "--format", "png", methods)
	assert.ErrorContains(t, err, "unknown format")
}
