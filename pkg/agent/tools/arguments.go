package tools

import (
	"bytes"
	"encoding/json"

	"github.com/entrhq/domscope/pkg/errs"
)

// DecodeArguments unmarshals a tool's JSON arguments into v. Missing or
// null arguments leave v untouched. Unknown fields are rejected so that
// misspelled options do not pass silently.
func DecodeArguments(raw json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.CodeInvalidArgument, err, "invalid arguments")
	}
	if dec.More() {
		return errs.New(errs.CodeInvalidArgument, "invalid arguments: trailing data after JSON object")
	}
	return nil
}
