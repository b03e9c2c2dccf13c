// Package query resolves element targets to DOM nodes and reads their
// attributes, geometry and computed styles.
package query

import (
	"fmt"
	"strings"

	"github.com/entrhq/domscope/pkg/errs"
)

// Kind selects how a Target's value is interpreted.
type Kind string

const (
	KindID       Kind = "id"
	KindSelector Kind = "selector"
)

// Result limits.
const (
	DefaultMaxResults = 10
	MaxResultsCeiling = 50
)

// Target locates elements by id or CSS selector.
type Target struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Selector returns the CSS selector for t. Ids are escaped; selectors are
// used verbatim.
func (t Target) Selector() (string, error) {
	if strings.TrimSpace(t.Value) == "" {
		return "", errs.New(errs.CodeInvalidArgument, "target value is required")
	}
	switch t.Kind {
	case KindID:
		return "#" + EscapeIdent(t.Value), nil
	case KindSelector:
		return t.Value, nil
	default:
		return "", errs.New(errs.CodeInvalidArgument, "target kind must be %q or %q, got %q", KindID, KindSelector, t.Kind)
	}
}

func (t Target) String() string {
	return fmt.Sprintf("%s=%s", t.Kind, t.Value)
}

// ClampMaxResults applies the default and the [0, MaxResultsCeiling] bounds.
func ClampMaxResults(n *int) int {
	if n == nil {
		return DefaultMaxResults
	}
	switch {
	case *n < 0:
		return 0
	case *n > MaxResultsCeiling:
		return MaxResultsCeiling
	default:
		return *n
	}
}

// EscapeIdent escapes s for use as a CSS identifier, following the
// CSS.escape() algorithm.
func EscapeIdent(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune('�')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString(`\-`)
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
