package browser

import (
	"context"
	"encoding/json"

	"github.com/entrhq/domscope/pkg/agent/tools"
)

// NavigateTool navigates the session's page.
type NavigateTool struct {
	manager *SessionManager
}

// NewNavigateTool creates a new navigate tool.
func NewNavigateTool(manager *SessionManager) *NavigateTool {
	return &NavigateTool{
		manager: manager,
	}
}

// Name returns the tool name.
func (t *NavigateTool) Name() string {
	return "browser_navigate"
}

// Description returns the tool description.
func (t *NavigateTool) Description() string {
	return "Navigate the browser session to a URL. Relative URLs resolve against the configured base URL. Origins outside the allowlist are refused."
}

// Schema returns the tool's JSON schema.
func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Absolute URL, or a path relative to the base URL",
			},
			"wait":      enumSchema("When navigation counts as complete. Default: load", waitUntilStates),
			"timeoutMs": timeoutSchema("navigation"),
		},
		[]string{"url"},
	)
}

// NavigateInput represents the parameters for navigation.
type NavigateInput struct {
	URL       string `json:"url"`
	Wait      string `json:"wait"`
	TimeoutMs *int   `json:"timeoutMs"`
}

// Execute navigates.
func (t *NavigateTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input NavigateInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := required("url", input.URL); err != nil {
		return nil, err
	}
	if err := oneOf("wait", input.Wait, waitUntilStates); err != nil {
		return nil, err
	}
	timeout, err := timeoutArg(input.TimeoutMs)
	if err != nil {
		return nil, err
	}

	var result *NavigateResult
	err = t.manager.WithSession(ctx, func(s *Session) error {
		var err error
		result, err = s.Navigate(ctx, input.URL, NavigateOptions{WaitUntil: input.Wait, Timeout: timeout})
		return err
	})
	return result, err
}
