package asm

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/bnb-chain/dexdce/core/cfg"
)

// Print writes methods in the form Parse accepts.
func Print(w io.Writer, methods ...*cfg.Method) error {
	for i, m := range methods {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return errors.Wrap(err, "write listing")
			}
		}
		if _, err := io.WriteString(w, Format(m)); err != nil {
			return errors.Wrapf(err, "write %s", m.Ref)
		}
	}
	return nil
}

// Format renders one method.
func Format(m *cfg.Method) string {
	var sb strings.Builder
	sb.WriteString(".method ")
	sb.WriteString(m.Ref.String())
	sb.WriteByte('\n')
	sb.WriteString(m.Graph.String())
	sb.WriteString(".end method\n")
	return sb.String()
}
