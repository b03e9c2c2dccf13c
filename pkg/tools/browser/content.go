package browser

import (
	"context"
	"encoding/json"

	"github.com/entrhq/domscope/pkg/agent/tools"
)

// ReadContentTool extracts page content.
type ReadContentTool struct {
	manager *SessionManager
}

// NewReadContentTool creates a new content reading tool.
func NewReadContentTool(manager *SessionManager) *ReadContentTool {
	return &ReadContentTool{manager: manager}
}

// Name returns the tool name.
func (t *ReadContentTool) Name() string {
	return "browser_read_content"
}

// Description returns the tool description.
func (t *ReadContentTool) Description() string {
	return "Read the page, or one element, as plain text, Markdown or cleaned HTML. Scripts, styles and embedded frames are dropped."
}

// Schema returns the tool's JSON schema.
func (t *ReadContentTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"format": enumSchema("Output format. Default: markdown", []string{string(FormatText), string(FormatMarkdown), string(FormatHTML)}),
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector to read instead of the whole page",
			},
			"maxLength": map[string]interface{}{
				"type":        "integer",
				"minimum":     1,
				"description": "Maximum content length in bytes. Default: 10000",
			},
		},
		nil,
	)
}

// IsReadOnly reports that reading never changes the page.
func (t *ReadContentTool) IsReadOnly() bool {
	return true
}

// ReadContentInput represents the parameters for content reads.
type ReadContentInput struct {
	Format    string `json:"format"`
	Selector  string `json:"selector"`
	MaxLength int    `json:"maxLength"`
}

// Execute reads content.
func (t *ReadContentTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input ReadContentInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := oneOf("format", input.Format, []string{string(FormatText), string(FormatMarkdown), string(FormatHTML)}); err != nil {
		return nil, err
	}

	var result *Content
	err := t.manager.WithSession(ctx, func(s *Session) error {
		var err error
		result, err = s.ReadContent(ctx, ReadOptions{
			Format:    ContentFormat(input.Format),
			Selector:  input.Selector,
			MaxLength: input.MaxLength,
		})
		return err
	})
	return result, err
}

// SearchTool searches the page text.
type SearchTool struct {
	manager *SessionManager
}

// NewSearchTool creates a new search tool.
func NewSearchTool(manager *SessionManager) *SearchTool {
	return &SearchTool{manager: manager}
}

// Name returns the tool name.
func (t *SearchTool) Name() string {
	return "browser_search_text"
}

// Description returns the tool description.
func (t *SearchTool) Description() string {
	return "Search the page's visible text for a substring or regular expression and return each match with surrounding context."
}

// Schema returns the tool's JSON schema.
func (t *SearchTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Text or regular expression to find",
			},
			"caseSensitive": map[string]interface{}{
				"type":        "boolean",
				"description": "Match case. Default: false",
			},
			"regex": map[string]interface{}{
				"type":        "boolean",
				"description": "Treat pattern as a regular expression (RE2 syntax). Default: false",
			},
			"maxResults": map[string]interface{}{
				"type":        "integer",
				"minimum":     1,
				"maximum":     MaxSearchResults,
				"description": "Maximum matches to return. Default: 20",
			},
		},
		[]string{"pattern"},
	)
}

// IsReadOnly reports that searching never changes the page.
func (t *SearchTool) IsReadOnly() bool {
	return true
}

// SearchInput represents the parameters for searching.
type SearchInput struct {
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"caseSensitive"`
	Regex         bool   `json:"regex"`
	MaxResults    int    `json:"maxResults"`
}

// SearchResult is the search tool's payload.
type SearchResult struct {
	Matches []SearchMatch `json:"matches"`
}

// Execute searches.
func (t *SearchTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input SearchInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}
	if err := required("pattern", input.Pattern); err != nil {
		return nil, err
	}

	var matches []SearchMatch
	err := t.manager.WithSession(ctx, func(s *Session) error {
		var err error
		matches, err = s.Search(ctx, SearchOptions{
			Pattern:       input.Pattern,
			CaseSensitive: input.CaseSensitive,
			Regex:         input.Regex,
			MaxResults:    input.MaxResults,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return SearchResult{Matches: matches}, nil
}

// ScreenshotTool captures the page.
type ScreenshotTool struct {
	manager *SessionManager
}

// NewScreenshotTool creates a new screenshot tool.
func NewScreenshotTool(manager *SessionManager) *ScreenshotTool {
	return &ScreenshotTool{manager: manager}
}

// Name returns the tool name.
func (t *ScreenshotTool) Name() string {
	return "browser_screenshot"
}

// Description returns the tool description.
func (t *ScreenshotTool) Description() string {
	return "Capture a PNG of the viewport, the full page or one element. Writes to path when given, otherwise returns the image base64 encoded."
}

// Schema returns the tool's JSON schema.
func (t *ScreenshotTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"fullPage": map[string]interface{}{
				"type":        "boolean",
				"description": "Capture the full scrollable page",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "File to write the PNG to",
			},
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "CSS selector of an element to capture",
			},
		},
		nil,
	)
}

// IsReadOnly reports that screenshots never change the page.
func (t *ScreenshotTool) IsReadOnly() bool {
	return true
}

// ScreenshotInput represents the parameters for screenshots.
type ScreenshotInput struct {
	FullPage bool   `json:"fullPage"`
	Path     string `json:"path"`
	Selector string `json:"selector"`
}

// Execute captures the screenshot.
func (t *ScreenshotTool) Execute(ctx context.Context, arguments json.RawMessage) (interface{}, error) {
	var input ScreenshotInput
	if err := tools.DecodeArguments(arguments, &input); err != nil {
		return nil, err
	}

	var shot *Screenshot
	err := t.manager.WithSession(ctx, func(s *Session) error {
		var err error
		shot, err = s.Screenshot(ctx, ScreenshotOptions(input))
		return err
	})
	return shot, err
}
