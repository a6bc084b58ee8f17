package ir

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// TypeRef is a type descriptor such as "Ljava/lang/Object;" or "[I".
type TypeRef string

// MethodRef identifies a method by its declaring class, name and prototype.
type MethodRef struct {
	Class TypeRef
	Name  string
	Proto string // e.g. "(ILjava/lang/String;)V"
}

const ctorName = "<init>"

// ParseMethodRef parses a reference in "LClass;.name:(args)ret" form.
func ParseMethodRef(s string) (MethodRef, error) {
	dot := strings.Index(s, ";.")
	if dot < 0 {
		return MethodRef{}, errors.Errorf("method ref %q: missing class", s)
	}
	rest := s[dot+2:]
	colon := strings.IndexByte(rest, ':')
	if colon <= 0 {
		return MethodRef{}, errors.Errorf("method ref %q: missing name or prototype", s)
	}
	proto := rest[colon+1:]
	if !strings.HasPrefix(proto, "(") || !strings.Contains(proto, ")") {
		return MethodRef{}, errors.Errorf("method ref %q: bad prototype", s)
	}
	return MethodRef{
		Class: TypeRef(s[:dot+1]),
		Name:  rest[:colon],
		Proto: proto,
	}, nil
}

// MustParseMethodRef is like ParseMethodRef but panics on error.
func MustParseMethodRef(s string) MethodRef {
	ref, err := ParseMethodRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

func (m MethodRef) String() string {
	return fmt.Sprintf("%s.%s:%s", m.Class, m.Name, m.Proto)
}

func (m MethodRef) IsZero() bool { return m == MethodRef{} }

// IsConstructor reports whether m names an instance initializer.
func (m MethodRef) IsConstructor() bool { return m.Name == ctorName }

// IsNoArgConstructor reports whether m is "<init>:()V".
func (m MethodRef) IsNoArgConstructor() bool {
	return m.IsConstructor() && m.Proto == "()V"
}

// FieldRef identifies a field as "LClass;.name:Type".
type FieldRef struct {
	Class TypeRef
	Name  string
	Type  TypeRef
}

func ParseFieldRef(s string) (FieldRef, error) {
	dot := strings.Index(s, ";.")
	if dot < 0 {
		return FieldRef{}, errors.Errorf("field ref %q: missing class", s)
	}
	rest := s[dot+2:]
	colon := strings.IndexByte(rest, ':')
	if colon <= 0 || colon == len(rest)-1 {
		return FieldRef{}, errors.Errorf("field ref %q: missing name or type", s)
	}
	return FieldRef{
		Class: TypeRef(s[:dot+1]),
		Name:  rest[:colon],
		Type:  TypeRef(rest[colon+1:]),
	}, nil
}

func (f FieldRef) String() string {
	return fmt.Sprintf("%s.%s:%s", f.Class, f.Name, f.Type)
}
