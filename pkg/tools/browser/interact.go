package browser

import (
	"context"
	"encoding/json"

	"github.com/entrhq/domscope/pkg/agent/tools"
)

// ClickTool clicks an element.
type ClickTool struct {
	manager *SessionManager
}

// NewClickTool creates a new click tool.
func NewClickTool(manager *SessionManager) *ClickTool {
	return &ClickTool{manager: manager}
}

// Name returns the tool name.
func (t *ClickTool) Name() string {
	return "browser_click"
}

// Description returns the tool description.
func (t *ClickTool) Description() string {
	return "Click the first element matching a CSS selector. Waits for the element to become actionable."
}

// Schema returns the tool's JSON schema.
func (t *ClickTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector of the element to click",
			},
			"button": enumSchema("Mouse button. Default: left", mouseButtons),
			"clickCount": map[string]interface{}{
				"type":        "integer",
				"minimum":     1,
				"description": "Number of clicks (2 for a double click). Default: 1",
			},
			"timeoutMs": timeoutSchema("query"),
		},
		[]string{"selector"},
	)
}

// ClickInput represents the parameters for clicking.
type ClickInput struct {
	Selector   string `json:"selector"`
	Button     string `json:"button"`
	ClickCount int    `json:"clickCount"`
	TimeoutMs  *int   `json:"timeoutMs"`
}

// ClickResult is the click tool's payload.
type ClickResult struct {
	OK  bool   `json:"ok"`
	URL string `json:"url"`
}

// Execute clicks.
func (t *ClickTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input ClickInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := required("selector", input.Selector); err != nil {
		return nil, err
	}
	if err := oneOf("button", input.Button, mouseButtons); err != nil {
		return nil, err
	}
	timeout, err := timeoutArg(input.TimeoutMs)
	if err != nil {
		return nil, err
	}

	var result ClickResult
	err = t.manager.WithSession(ctx, func(s *Session) error {
		if err := s.Click(input.Selector, ClickOptions{Button: input.Button, ClickCount: input.ClickCount, Timeout: timeout}); err != nil {
			return err
		}
		result = ClickResult{OK: true, URL: s.Page.URL()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// FillTool types into a form field.
type FillTool struct {
	manager *SessionManager
}

// NewFillTool creates a new fill tool.
func NewFillTool(manager *SessionManager) *FillTool {
	return &FillTool{manager: manager}
}

// Name returns the tool name.
func (t *FillTool) Name() string {
	return "browser_fill"
}

// Description returns the tool description.
func (t *FillTool) Description() string {
	return "Replace the value of the first input, textarea or contenteditable element matching a CSS selector."
}

// Schema returns the tool's JSON schema.
func (t *FillTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector of the field",
			},
			"value": map[string]interface{}{
				"type":        "string",
				"description": "Value to fill in",
			},
			"timeoutMs": timeoutSchema("query"),
		},
		[]string{"selector", "value"},
	)
}

// FillInput represents the parameters for filling.
type FillInput struct {
	Selector  string `json:"selector"`
	Value     string `json:"value"`
	TimeoutMs *int   `json:"timeoutMs"`
}

// OKResult is the payload of tools that only acknowledge.
type OKResult struct {
	OK bool `json:"ok"`
}

// Execute fills the field.
func (t *FillTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input FillInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := required("selector", input.Selector); err != nil {
		return nil, err
	}
	timeout, err := timeoutArg(input.TimeoutMs)
	if err != nil {
		return nil, err
	}

	err = t.manager.WithSession(ctx, func(s *Session) error {
		return s.Fill(input.Selector, input.Value, timeout)
	})
	if err != nil {
		return nil, err
	}
	return OKResult{OK: true}, nil
}

// WaitTool waits for an element state.
type WaitTool struct {
	manager *SessionManager
}

// NewWaitTool creates a new wait tool.
func NewWaitTool(manager *SessionManager) *WaitTool {
	return &WaitTool{manager: manager}
}

// Name returns the tool name.
func (t *WaitTool) Name() string {
	return "browser_wait_for"
}

// Description returns the tool description.
func (t *WaitTool) Description() string {
	return "Wait until an element matching a CSS selector is attached, detached, visible or hidden."
}

// Schema returns the tool's JSON schema.
func (t *WaitTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector to wait for",
			},
			"state":     enumSchema("State to wait for. Default: visible", selectorStates),
			"timeoutMs": timeoutSchema("query"),
		},
		[]string{"selector"},
	)
}

// WaitInput represents the parameters for waiting.
type WaitInput struct {
	Selector  string `json:"selector"`
	State     string `json:"state"`
	TimeoutMs *int   `json:"timeoutMs"`
}

// Execute waits.
func (t *WaitTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input WaitInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := required("selector", input.Selector); err != nil {
		return nil, err
	}
	if err := oneOf("state", input.State, selectorStates); err != nil {
		return nil, err
	}
	timeout, err := timeoutArg(input.TimeoutMs)
	if err != nil {
		return nil, err
	}

	err = t.manager.WithSession(ctx, func(s *Session) error {
		return s.Wait(input.Selector, WaitOptions{State: input.State, Timeout: timeout})
	})
	if err != nil {
		return nil, err
	}
	return OKResult{OK: true}, nil
}

// EvaluateTool executes JavaScript code in the browser session.
type EvaluateTool struct {
	manager *SessionManager
}

// NewEvaluateTool creates a new evaluate tool.
func NewEvaluateTool(manager *SessionManager) *EvaluateTool {
	return &EvaluateTool{manager: manager}
}

// Name returns the tool name.
func (t *EvaluateTool) Name() string {
	return "browser_evaluate"
}

// Description returns the tool description.
func (t *EvaluateTool) Description() string {
	return "Execute JavaScript in the page and return the JSON-serializable result. Wrap statements in an IIFE: (() => { /* code */ return value; })()"
}

// Schema returns the tool's JSON schema.
func (t *EvaluateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"script": map[string]interface{}{
				"type":        "string",
				"description": "JavaScript expression to evaluate",
			},
			"timeoutMs": timeoutSchema("query"),
		},
		[]string{"script"},
	)
}

// EvaluateInput defines the input parameters.
type EvaluateInput struct {
	Script    string `json:"script"`
	TimeoutMs *int   `json:"timeoutMs"`
}

// EvaluateResult is the evaluate tool's payload.
type EvaluateResult struct {
	Result interface{} `json:"result"`
}

// Execute executes JavaScript in the browser session.
func (t *EvaluateTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input EvaluateInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := required("script", input.Script); err != nil {
		return nil, err
	}
	timeout, err := timeoutArg(input.TimeoutMs)
	if err != nil {
		return nil, err
	}

	var result interface{}
	err = t.manager.WithSession(ctx, func(s *Session) error {
		var err error
		result, err = s.Evaluate(ctx, input.Script, timeout)
		return err
	})
	if err != nil {
		return nil, err
	}
	return EvaluateResult{Result: result}, nil
}
