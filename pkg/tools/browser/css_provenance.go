package browser

import (
	"context"
	"encoding/json"

	"github.com/entrhq/domscope/pkg/agent/tools"
	"github.com/entrhq/domscope/pkg/cascade"
	"github.com/entrhq/domscope/pkg/query"
)

// CSSProvenanceTool explains where a CSS property's value comes from.
type CSSProvenanceTool struct {
	manager *SessionManager
}

// NewCSSProvenanceTool creates a new CSS provenance tool.
func NewCSSProvenanceTool(manager *SessionManager) *CSSProvenanceTool {
	return &CSSProvenanceTool{manager: manager}
}

// Name returns the tool name.
func (t *CSSProvenanceTool) Name() string {
	return "browser_get_css_provenance"
}

// Description returns the tool description.
func (t *CSSProvenanceTool) Description() string {
	return "For each element matching the target, report the computed value of a longhand CSS property and the declaration that wins the cascade: inline, stylesheet rule or presentational attribute, with selector, stylesheet URL, line, column and source snippet. Shorthands such as margin are rejected; ask for margin-top instead."
}

// Schema returns the tool's JSON schema.
func (t *CSSProvenanceTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"target": targetSchema(),
			"property": map[string]interface{}{
				"type":        "string",
				"description": "Longhand property name (e.g., 'color', 'margin-top')",
			},
			"includeContributors": map[string]interface{}{
				"type":        "boolean",
				"description": "Also report the declarations that lost the cascade",
			},
			"maxResults": maxResultsSchema(),
			"timeoutMs":  timeoutSchema("query"),
		},
		[]string{"target", "property"},
	)
}

// IsReadOnly reports that provenance queries never change the page.
func (t *CSSProvenanceTool) IsReadOnly() bool {
	return true
}

// CSSProvenanceInput represents the parameters for a provenance query.
type CSSProvenanceInput struct {
	Target              query.Target `json:"target"`
	Property            string       `json:"property"`
	IncludeContributors bool         `json:"includeContributors"`
	MaxResults          *int         `json:"maxResults"`
	TimeoutMs           *int         `json:"timeoutMs"`
}

// Execute runs the provenance query.
func (t *CSSProvenanceTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input CSSProvenanceInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := cascade.CheckProperty(input.Property); err != nil {
		return nil, err
	}
	if _, err := input.Target.Selector(); err != nil {
		return nil, err
	}
	timeout, err := timeoutArg(input.TimeoutMs)
	if err != nil {
		return nil, err
	}
	maxResults := query.ClampMaxResults(input.MaxResults)

	var result *QueryResult[cascade.Record]
	err = t.manager.WithSession(ctx, func(s *Session) error {
		var err error
		result, err = s.GetCSSProvenance(ctx, input.Target, input.Property, input.IncludeContributors, maxResults, timeout)
		return err
	})
	return result, err
}
