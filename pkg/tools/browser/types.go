package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/domscope/pkg/cascade"
	"github.com/entrhq/domscope/pkg/cdp"
	"github.com/entrhq/domscope/pkg/config"
	"github.com/entrhq/domscope/pkg/query"
)

// State is the lifecycle state of the session slot.
type State string

const (
	StateAbsent   State = "absent"
	StateStarting State = "starting"
	StateActive   State = "active"
)

// Default values for browser operations
const (
	DefaultHookTimeout   = 60 * time.Second
	DefaultMaxLength     = 10000
	DefaultSearchResults = 20
	MaxSearchResults     = 200
	searchContextChars   = 50
)

// Session represents the live browser session with its associated resources.
type Session struct {
	// ID is a per-start identifier reported to callers
	ID string

	// Scenario is the scenario name the session was started with, if any
	Scenario string

	// Headless indicates whether the browser runs without a window
	Headless bool

	// BaseURL resolves relative navigation targets
	BaseURL string

	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page
	CDP     playwright.CDPSession

	CreatedAt time.Time

	settings  config.BrowserSettings
	allowlist *config.OriginAllowlist
	client    *cdp.Client
	queries   *query.Layer
	cascade   *cascade.Engine
	stop      func() error

	// guarded by SessionManager.mu
	lastUsedAt time.Time
}

// StartOptions are the caller-supplied start parameters.
type StartOptions struct {
	Scenario    string `json:"scenario,omitempty"`
	Interactive bool   `json:"interactive,omitempty"`
	URL         string `json:"url,omitempty"`
}

// StartResult describes a freshly started session.
type StartResult struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"sessionId"`
	Headless  bool   `json:"headless"`
	Scenario  string `json:"scenario,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Status is a point-in-time view of the session slot.
type Status struct {
	State           State      `json:"state"`
	SessionID       string     `json:"sessionId,omitempty"`
	URL             string     `json:"url,omitempty"`
	Scenario        string     `json:"scenario,omitempty"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	LastUsedAt      *time.Time `json:"lastUsedAt,omitempty"`
	IdleRemainingMs *int64     `json:"idleRemainingMs,omitempty"`
}

// NavigateOptions contains options for page navigation.
type NavigateOptions struct {
	// WaitUntil specifies when navigation is considered complete
	// Options: "load", "domcontentloaded", "networkidle", "commit"
	WaitUntil string

	// Timeout overrides the configured navigation timeout
	Timeout time.Duration
}

// NavigateResult is the outcome of a navigation.
type NavigateResult struct {
	FinalURL string `json:"finalUrl"`
	Title    string `json:"title,omitempty"`
}

// ClickOptions contains options for clicking elements.
type ClickOptions struct {
	// Button specifies which mouse button to use
	// Options: "left", "right", "middle"
	Button string

	// ClickCount specifies number of clicks (1 for single, 2 for double)
	ClickCount int

	Timeout time.Duration
}

// WaitOptions contains options for waiting on a selector.
type WaitOptions struct {
	// State is one of "attached", "detached", "visible", "hidden"
	State string

	Timeout time.Duration
}

// ContentFormat specifies the output format for content reads.
type ContentFormat string

const (
	FormatText     ContentFormat = "text"
	FormatMarkdown ContentFormat = "markdown"
	FormatHTML     ContentFormat = "html"
)

// ReadOptions contains options for reading page content.
type ReadOptions struct {
	Format    ContentFormat
	Selector  string
	MaxLength int
}

// Content is the result of a content read.
type Content struct {
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Format    ContentFormat `json:"format"`
	Content   string        `json:"content"`
	Truncated bool          `json:"truncated"`
}

// SearchOptions contains options for searching page text.
type SearchOptions struct {
	Pattern       string
	CaseSensitive bool
	Regex         bool
	MaxResults    int
}

// SearchMatch represents a single search match.
type SearchMatch struct {
	Text    string `json:"text"`
	Context string `json:"context"`
	Offset  int    `json:"offset"`
}

// ScreenshotOptions contains options for screenshots.
type ScreenshotOptions struct {
	FullPage bool
	Path     string
	Selector string
}

// Screenshot is the result of a screenshot capture.
type Screenshot struct {
	Path   string `json:"path,omitempty"`
	Bytes  int    `json:"bytes"`
	Base64 string `json:"base64,omitempty"`
}

// QueryResult is the shape shared by element and provenance queries.
type QueryResult[T any] struct {
	MatchCount int `json:"matchCount"`
	Results    []T `json:"results"`
}
