package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/domscope/pkg/errs"
)

// Set is an ordered collection of tools with unique names.
type Set struct {
	order  []Tool
	byName map[string]Tool
}

// NewSet builds a set, rejecting duplicate names.
func NewSet(tools ...Tool) (*Set, error) {
	s := &Set{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, dup := s.byName[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name())
		}
		s.byName[t.Name()] = t
		s.order = append(s.order, t)
	}
	return s, nil
}

// All returns the tools in registration order.
func (s *Set) All() []Tool {
	return append([]Tool(nil), s.order...)
}

// Get returns the tool called name.
func (s *Set) Get(name string) (Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Call runs the named tool and returns its JSON-encoded result. When the
// tool fails, the returned bytes hold the structured error payload and
// the error is non-nil.
func (s *Set) Call(ctx context.Context, name string, arguments json.RawMessage) ([]byte, error) {
	t, ok := s.Get(name)
	if !ok {
		err := errs.New(errs.CodeInvalidArgument, "unknown tool %q", name)
		return encodeError(err), err
	}

	result, err := t.Execute(ctx, arguments)
	if err != nil {
		return encodeError(err), err
	}

	out, mErr := json.Marshal(result)
	if mErr != nil {
		err := errs.Wrap(errs.CodeUnexpected, mErr, "failed to encode %s result", name)
		return encodeError(err), err
	}
	return out, nil
}

func encodeError(err error) []byte {
	out, mErr := json.Marshal(errs.ToPayload(err))
	if mErr != nil {
		return []byte(`{"error":{"code":"UNEXPECTED_ERROR","message":"unencodable error"}}`)
	}
	return out
}
