// Package tools defines the contract between tool implementations and the
// protocol layer that exposes them to an agent.
package tools

import (
	"context"
	"encoding/json"
)

// Tool represents a capability that an agent can invoke.
//
// Tools receive their arguments as a JSON object and return a value that
// is marshaled to JSON as the call's result. A returned error is rendered
// as a structured error payload by the caller.
//
// Example call arguments for browser_navigate:
//
//	{"url": "https://example.com", "wait": "load"}
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "browser_navigate")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for this tool's input parameters
	Schema() map[string]interface{}

	// Execute runs the tool with the given JSON arguments
	Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error)
}

// ReadOnly is an optional interface for tools that never change page or
// session state.
type ReadOnly interface {
	IsReadOnly() bool
}

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
