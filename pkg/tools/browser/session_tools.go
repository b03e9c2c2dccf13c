package browser

import (
	"context"
	"encoding/json"

	"github.com/entrhq/domscope/pkg/agent/tools"
)

// StartSessionTool launches the browser session.
type StartSessionTool struct {
	manager *SessionManager
}

// NewStartSessionTool creates a new start session tool.
func NewStartSessionTool(manager *SessionManager) *StartSessionTool {
	return &StartSessionTool{manager: manager}
}

// Name returns the tool name.
func (t *StartSessionTool) Name() string {
	return "browser_start_session"
}

// Description returns the tool description.
func (t *StartSessionTool) Description() string {
	return "Start the browser session. Only one session exists at a time. A scenario name applies its device profile, base URL and storage state and runs its setup hook. Set interactive to open a visible window. An optional url is opened right after start."
}

// Schema returns the tool's JSON schema.
func (t *StartSessionTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"scenario": map[string]interface{}{
				"type":        "string",
				"description": "Scenario to prepare the session with (e.g., 'admin-login')",
			},
			"interactive": map[string]interface{}{
				"type":        "boolean",
				"description": "Open a visible browser window instead of running headless",
			},
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to open once the session is ready",
			},
		},
		nil,
	)
}

// Execute starts the session.
func (t *StartSessionTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input StartOptions
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	return t.manager.Start(ctx, input)
}

// StopSessionTool tears the browser session down.
type StopSessionTool struct {
	manager *SessionManager
}

// NewStopSessionTool creates a new stop session tool.
func NewStopSessionTool(manager *SessionManager) *StopSessionTool {
	return &StopSessionTool{manager: manager}
}

// Name returns the tool name.
func (t *StopSessionTool) Name() string {
	return "browser_stop_session"
}

// Description returns the tool description.
func (t *StopSessionTool) Description() string {
	return "Stop the browser session and release the browser. Succeeds with stopped=false when no session is running."
}

// Schema returns the tool's JSON schema.
func (t *StopSessionTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// StopResult is the stop tool's payload.
type StopResult struct {
	OK      bool `json:"ok"`
	Stopped bool `json:"stopped"`
}

// Execute stops the session.
func (t *StopSessionTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	if err := tools.DecodeArguments(arguments, &struct{}{}); err != nil {
		return nil, err
	}
	stopped, err := t.manager.Stop(ctx)
	if err != nil {
		return nil, err
	}
	return StopResult{OK: true, Stopped: stopped}, nil
}

// SessionStatusTool reports the session state.
type SessionStatusTool struct {
	manager *SessionManager
}

// NewSessionStatusTool creates a new session status tool.
func NewSessionStatusTool(manager *SessionManager) *SessionStatusTool {
	return &SessionStatusTool{manager: manager}
}

// Name returns the tool name.
func (t *SessionStatusTool) Name() string {
	return "browser_session_status"
}

// Description returns the tool description.
func (t *SessionStatusTool) Description() string {
	return "Report whether a browser session is absent, starting or active, with its current URL and remaining idle time. Does not count as activity."
}

// Schema returns the tool's JSON schema.
func (t *SessionStatusTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// IsReadOnly reports that status never changes state.
func (t *SessionStatusTool) IsReadOnly() bool {
	return true
}

// Execute returns the status.
func (t *SessionStatusTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	if err := tools.DecodeArguments(arguments, &struct{}{}); err != nil {
		return nil, err
	}
	return t.manager.Status(), nil
}
