package browser

import (
	"context"
	"encoding/json"

	"github.com/entrhq/domscope/pkg/agent/tools"
	"github.com/entrhq/domscope/pkg/query"
)

// GetElementTool describes DOM elements.
type GetElementTool struct {
	manager *SessionManager
}

// NewGetElementTool creates a new element inspection tool.
func NewGetElementTool(manager *SessionManager) *GetElementTool {
	return &GetElementTool{manager: manager}
}

// Name returns the tool name.
func (t *GetElementTool) Name() string {
	return "browser_get_element"
}

// Description returns the tool description.
func (t *GetElementTool) Description() string {
	return "Inspect elements matching an id or CSS selector: node name, attributes, inferred ARIA role, box model and computed styles. Reports the total match count and up to maxResults elements."
}

// Schema returns the tool's JSON schema.
func (t *GetElementTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"target": targetSchema(),
			"include": map[string]interface{}{
				"type":        "array",
				"items":       enumSchema("", []string{"attributes", "role", "boxModel", "computed"}),
				"description": "Facets to report. Default: all",
			},
			"properties": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Computed properties to report. Default: a layout-oriented set; [\"*\"] also selects it",
			},
			"maxResults": maxResultsSchema(),
			"timeoutMs":  timeoutSchema("query"),
		},
		[]string{"target"},
	)
}

// IsReadOnly reports that inspection never changes the page.
func (t *GetElementTool) IsReadOnly() bool {
	return true
}

// GetElementInput represents the parameters for element inspection.
type GetElementInput struct {
	Target     query.Target `json:"target"`
	Include    []string     `json:"include"`
	Properties []string     `json:"properties"`
	MaxResults *int         `json:"maxResults"`
	TimeoutMs  *int         `json:"timeoutMs"`
}

// Execute inspects the target.
func (t *GetElementTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input GetElementInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if _, err := input.Target.Selector(); err != nil {
		return nil, err
	}
	inc, err := query.ParseInclude(input.Include)
	if err != nil {
		return nil, err
	}
	timeout, err := timeoutArg(input.TimeoutMs)
	if err != nil {
		return nil, err
	}
	maxResults := query.ClampMaxResults(input.MaxResults)

	var result *QueryResult[query.Element]
	err = t.manager.WithSession(ctx, func(s *Session) error {
		var err error
		result, err = s.GetElement(ctx, input.Target, inc, input.Properties, maxResults, timeout)
		return err
	})
	return result, err
}

func targetSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"kind":  enumSchema("'id' matches the id attribute exactly; 'selector' is a CSS selector", []string{string(query.KindID), string(query.KindSelector)}),
			"value": map[string]interface{}{"type": "string"},
		},
		"required":             []string{"kind", "value"},
		"additionalProperties": false,
	}
}

func maxResultsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     0,
		"maximum":     query.MaxResultsCeiling,
		"description": "Maximum number of elements to report. Default: 10",
	}
}
