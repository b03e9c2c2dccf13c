package browser

import (
	"github.com/entrhq/domscope/pkg/agent/tools"
)

// Tools returns every browser tool bound to manager, session management
// first.
func Tools(manager *SessionManager) []tools.Tool {
	return []tools.Tool{
		NewStartSessionTool(manager),
		NewStopSessionTool(manager),
		NewSessionStatusTool(manager),
		NewNavigateTool(manager),
		NewGetElementTool(manager),
		NewCSSProvenanceTool(manager),
		NewClickTool(manager),
		NewFillTool(manager),
		NewWaitTool(manager),
		NewEvaluateTool(manager),
		NewReadContentTool(manager),
		NewSearchTool(manager),
		NewScreenshotTool(manager),
	}
}
