// Package asm reads and writes method bodies in a line-oriented text form:
//
//	.method LFoo;.bar:(I)I
//	.registers 3
//	B0:
//	  const v0, 5
//	  add-int v1, v0, v2
//	  if-eqz v1
//	  -> true B1
//	  -> false B2
//	  -> catch B3 Ljava/lang/Exception;
//	...
//	.end method
//
// The first block label of a method names its entry block. '#' starts a
// comment.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/bnb-chain/dexdce/core/cfg"
	"github.com/bnb-chain/dexdce/core/ir"
)

type pendingEdge struct {
	line      int
	src       *cfg.Block
	typ       cfg.EdgeType
	label     string
	catchType ir.TypeRef
}

type parser struct {
	name    string
	line    int
	methods []*cfg.Method

	// current method
	method  *cfg.Method
	regs    bool
	blocks  map[string]*cfg.Block
	current *cfg.Block
	edges   []pendingEdge
}

// Parse reads every method in r.
func Parse(r io.Reader) ([]*cfg.Method, error) {
	return parse("<input>", r)
}

// ParseString is Parse over a string.
func ParseString(src string) ([]*cfg.Method, error) {
	return parse("<input>", strings.NewReader(src))
}

// ParseFile reads every method in the named file.
func ParseFile(path string) ([]*cfg.Method, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open method file")
	}
	defer f.Close()
	return parse(path, f)
}

func parse(name string, r io.Reader) ([]*cfg.Method, error) {
	p := &parser{name: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	if p.method != nil {
		return nil, p.errorf("missing .end method for %s", p.method.Ref)
	}
	return p.methods, nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return errors.Errorf("%s:%d: %s", p.name, p.line, fmt.Sprintf(format, args...))
}

func (p *parser) parseLine(text string) error {
	if i := commentStart(text); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if p.method == nil {
		if !strings.HasPrefix(text, ".method") {
			return p.errorf("expected .method, got %q", text)
		}
		return p.beginMethod(strings.TrimSpace(strings.TrimPrefix(text, ".method")))
	}
	switch {
	case text == ".end method":
		return p.endMethod()
	case strings.HasPrefix(text, ".registers"):
		return p.registers(strings.TrimSpace(strings.TrimPrefix(text, ".registers")))
	case strings.HasPrefix(text, ".method"):
		return p.errorf("nested .method")
	case strings.HasPrefix(text, "->"):
		return p.edge(strings.Fields(strings.TrimPrefix(text, "->")))
	case strings.HasSuffix(text, ":") && !strings.ContainsAny(text, " \t"):
		return p.label(strings.TrimSuffix(text, ":"))
	}
	if p.current == nil {
		return p.errorf("instruction outside of a block")
	}
	insn, err := parseInstruction(text)
	if err != nil {
		return p.errorf("%v", err)
	}
	p.current.Append(insn)
	return nil
}

// commentStart finds a '#' that is not inside a string literal.
func commentStart(s string) int {
	inStr := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case inStr && c == '\\':
			i++
		case c == '"':
			inStr = !inStr
		case !inStr && c == '#':
			return i
		}
	}
	return -1
}

func (p *parser) beginMethod(ref string) error {
	m, err := ir.ParseMethodRef(ref)
	if err != nil {
		return p.errorf("%v", err)
	}
	p.method = &cfg.Method{Ref: m}
	p.regs = false
	p.blocks = make(map[string]*cfg.Block)
	p.current = nil
	p.edges = p.edges[:0]
	return nil
}

func (p *parser) registers(arg string) error {
	if p.regs {
		return p.errorf("duplicate .registers")
	}
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return p.errorf("bad register count %q", arg)
	}
	p.method.Graph = cfg.New(uint32(n))
	p.regs = true
	return nil
}

func (p *parser) label(name string) error {
	if !p.regs {
		return p.errorf(".registers must precede the first block")
	}
	if _, ok := p.blocks[name]; ok {
		return p.errorf("duplicate block label %s", name)
	}
	p.current = p.method.Graph.NewBlock()
	p.blocks[name] = p.current
	return nil
}

func (p *parser) edge(fields []string) error {
	if p.current == nil {
		return p.errorf("edge outside of a block")
	}
	if len(fields) < 2 {
		return p.errorf("edge needs a type and a target")
	}
	typ, ok := cfg.ParseEdgeType(fields[0])
	if !ok {
		return p.errorf("unknown edge type %q", fields[0])
	}
	e := pendingEdge{line: p.line, src: p.current, typ: typ, label: fields[1]}
	switch {
	case typ == cfg.EdgeThrow && len(fields) == 3:
		e.catchType = ir.TypeRef(fields[2])
	case len(fields) != 2:
		return p.errorf("unexpected operands after edge target")
	}
	p.edges = append(p.edges, e)
	return nil
}

func (p *parser) endMethod() error {
	if p.method.Graph == nil {
		return p.errorf("method %s has no .registers", p.method.Ref)
	}
	g := p.method.Graph
	if g.Entry() == nil {
		return p.errorf("method %s has no blocks", p.method.Ref)
	}
	for _, e := range p.edges {
		dst, ok := p.blocks[e.label]
		if !ok {
			return errors.Errorf("%s:%d: unknown block %s", p.name, e.line, e.label)
		}
		if e.typ == cfg.EdgeThrow {
			g.AddThrowEdge(e.src, dst, e.catchType)
		} else {
			g.AddEdge(e.src, dst, e.typ)
		}
	}
	if err := g.Validate(); err != nil {
		return p.errorf("method %s: %v", p.method.Ref, err)
	}
	p.methods = append(p.methods, p.method)
	p.method = nil
	return nil
}
