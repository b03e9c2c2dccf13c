package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/domscope/pkg/cascade"
	"github.com/entrhq/domscope/pkg/config"
	"github.com/entrhq/domscope/pkg/errs"
	"github.com/entrhq/domscope/pkg/query"
)

// ResolveURL makes target absolute against the session's base URL and
// checks it against the origin allowlist.
func (s *Session) ResolveURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errs.New(errs.CodeInvalidArgument, "url is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", errs.Wrap(errs.CodeInvalidArgument, err, "invalid url %q", target)
	}
	if !u.IsAbs() {
		if s.BaseURL == "" {
			return "", errs.New(errs.CodeInvalidArgument, "url %q is relative and no base URL is configured", target)
		}
		base, err := url.Parse(s.BaseURL)
		if err != nil {
			return "", errs.Wrap(errs.CodeInvalidArgument, err, "invalid base url %q", s.BaseURL)
		}
		u = base.ResolveReference(u)
	}

	resolved := u.String()
	if !s.allowlist.Allowed(resolved) {
		return "", blocked(resolved, s.allowlist)
	}
	return resolved, nil
}

func blocked(target string, allow *config.OriginAllowlist) error {
	return errs.New(errs.CodeNavigationBlocked, "origin %s is not in the allowed origins", config.Origin(target)).
		With("url", target).
		With("allowedOrigins", allow.Patterns())
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(ctx context.Context, target string, opts NavigateOptions) (*NavigateResult, error) {
	resolved, err := s.ResolveURL(target)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.settings.NavigationTimeout
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = max(time.Until(dl), time.Millisecond)
	}

	// Build Playwright navigation options
	playwrightOpts := playwright.PageGotoOptions{
		Timeout: playwright.Float(millis(timeout)),
	}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if _, err := s.Page.Goto(resolved, playwrightOpts); err != nil {
		return nil, errs.Classify(err, errs.CodeNavigationTimeout, "navigation")
	}

	final := s.Page.URL()
	if !s.allowlist.Allowed(final) {
		_, _ = s.Page.Goto("about:blank")
		return nil, blocked(final, s.allowlist)
	}

	title, _ := s.Page.Title()
	return &NavigateResult{FinalURL: final, Title: title}, nil
}

// queryContext bounds an element or style query.
func (s *Session) queryContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = s.settings.QueryTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Session) resolve(ctx context.Context, target query.Target, maxResults int) (*query.Resolution, error) {
	res, err := s.queries.ResolveTargets(ctx, target, maxResults)
	if err != nil {
		return nil, err
	}
	if len(res.Nodes) == 0 {
		return nil, errs.New(errs.CodeElementNotFound, "no element matches %s", target).
			With("target", target).
			With("matchCount", res.Total)
	}
	return res, nil
}

// GetElement describes up to maxResults nodes matching target.
func (s *Session) GetElement(ctx context.Context, target query.Target, inc query.Include, properties []string, maxResults int, timeout time.Duration) (*QueryResult[query.Element], error) {
	ctx, cancel := s.queryContext(ctx, timeout)
	defer cancel()

	res, err := s.resolve(ctx, target, maxResults)
	if err != nil {
		return nil, err
	}

	out := &QueryResult[query.Element]{MatchCount: res.Total, Results: make([]query.Element, 0, len(res.Nodes))}
	for _, id := range res.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.CodeQueryTimeout, err, "element query timed out")
		}
		out.Results = append(out.Results, s.queries.Describe(ctx, id, inc, properties))
	}
	return out, nil
}

// GetCSSProvenance reports, for each node matching target, the computed
// value of property and the declaration that produced it. Shorthand
// properties are rejected before the page is queried.
func (s *Session) GetCSSProvenance(ctx context.Context, target query.Target, property string, includeContributors bool, maxResults int, timeout time.Duration) (*QueryResult[cascade.Record], error) {
	if err := cascade.CheckProperty(property); err != nil {
		return nil, err
	}
	property = cascade.NormalizeProperty(property)

	ctx, cancel := s.queryContext(ctx, timeout)
	defer cancel()

	res, err := s.resolve(ctx, target, maxResults)
	if err != nil {
		return nil, err
	}

	opts := cascade.Options{IncludeContributors: includeContributors, PageURL: s.Page.URL()}
	out := &QueryResult[cascade.Record]{MatchCount: res.Total, Results: make([]cascade.Record, 0, len(res.Nodes))}
	for _, id := range res.Nodes {
		rec := cascade.Record{Property: property}
		if v, ok := s.queries.ComputedValue(ctx, id, property); ok {
			rec.ComputedValue = &v
		}
		r, err := s.cascade.Resolve(ctx, id, property, opts)
		if err != nil {
			return nil, err
		}
		rec.Winner = r.Winner
		rec.Contributors = r.Contributors
		out.Results = append(out.Results, rec)
	}
	return out, nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(selector string, opts ClickOptions) error {
	clickOpts := playwright.LocatorClickOptions{}
	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		clickOpts.Button = &button
	}
	if opts.ClickCount > 0 {
		clickOpts.ClickCount = playwright.Int(opts.ClickCount)
	}
	if opts.Timeout > 0 {
		clickOpts.Timeout = playwright.Float(millis(opts.Timeout))
	}

	if err := s.Page.Locator(selector).First().Click(clickOpts); err != nil {
		return errs.Classify(err, errs.CodeQueryTimeout, "click")
	}
	return nil
}

// Fill fills the first input matching selector with value.
func (s *Session) Fill(selector, value string, timeout time.Duration) error {
	fillOpts := playwright.LocatorFillOptions{}
	if timeout > 0 {
		fillOpts.Timeout = playwright.Float(millis(timeout))
	}

	if err := s.Page.Locator(selector).First().Fill(value, fillOpts); err != nil {
		return errs.Classify(err, errs.CodeQueryTimeout, "fill")
	}
	return nil
}

// Wait waits for selector to reach the requested state.
func (s *Session) Wait(selector string, opts WaitOptions) error {
	waitOpts := playwright.PageWaitForSelectorOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		waitOpts.State = &state
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = playwright.Float(millis(opts.Timeout))
	}

	if _, err := s.Page.WaitForSelector(selector, waitOpts); err != nil {
		return errs.Classify(err, errs.CodeQueryTimeout, "wait")
	}
	return nil
}

// Evaluate runs script in the page and returns its JSON-compatible result.
func (s *Session) Evaluate(ctx context.Context, script string, timeout time.Duration) (interface{}, error) {
	ctx, cancel := s.queryContext(ctx, timeout)
	defer cancel()

	var result interface{}
	err := await(ctx, func() error {
		var err error
		result, err = s.Page.Evaluate(script)
		return err
	})
	if err != nil {
		return nil, errs.Classify(err, errs.CodeQueryTimeout, "script evaluation")
	}
	return result, nil
}

// ReadContent extracts page content in the requested format.
func (s *Session) ReadContent(ctx context.Context, opts ReadOptions) (*Content, error) {
	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}

	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()

	var rawHTML string
	err := await(ctx, func() error {
		var err error
		if opts.Selector != "" {
			rawHTML, err = s.Page.Locator(opts.Selector).First().InnerHTML()
		} else {
			rawHTML, err = s.Page.Content()
		}
		return err
	})
	if err != nil {
		return nil, errs.Classify(err, errs.CodeQueryTimeout, "content read")
	}

	out := &Content{URL: s.Page.URL(), Format: opts.Format}
	out.Title, _ = s.Page.Title()

	var text string
	switch opts.Format {
	case FormatHTML:
		cleaned, err := cleanHTML(rawHTML, opts.MaxLength)
		if err != nil {
			return nil, errs.Wrap(errs.CodeUnexpected, err, "failed to clean html")
		}
		if out.Title == "" {
			out.Title = cleaned.Title
		}
		out.Content, out.Truncated = cleaned.HTML, cleaned.Truncated
		return out, nil
	case FormatMarkdown:
		text, err = htmlToMarkdown(rawHTML)
	case FormatText:
		text, err = htmlToText(rawHTML)
	default:
		return nil, errs.New(errs.CodeInvalidArgument, "unsupported format %q (use text, markdown or html)", opts.Format)
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeUnexpected, err, "failed to convert content")
	}
	out.Content, out.Truncated = truncateString(text, opts.MaxLength)
	return out, nil
}

// Search searches the page's visible text for a substring or regular
// expression.
func (s *Session) Search(ctx context.Context, opts SearchOptions) ([]SearchMatch, error) {
	if opts.Pattern == "" {
		return nil, errs.New(errs.CodeInvalidArgument, "pattern is required")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultSearchResults
	}
	if opts.MaxResults > MaxSearchResults {
		opts.MaxResults = MaxSearchResults
	}

	expr := opts.Pattern
	if !opts.Regex {
		expr = regexp.QuoteMeta(expr)
	}
	if !opts.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidArgument, err, "invalid pattern %q", opts.Pattern)
	}

	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()

	var body string
	err = await(ctx, func() error {
		var err error
		body, err = s.Page.Locator("body").InnerText()
		return err
	})
	if err != nil {
		return nil, errs.Classify(err, errs.CodeQueryTimeout, "text search")
	}

	return searchText(body, re, opts.MaxResults), nil
}

func searchText(body string, re *regexp.Regexp, limit int) []SearchMatch {
	matches := []SearchMatch{}
	for _, loc := range re.FindAllStringIndex(body, limit) {
		if loc[0] == loc[1] {
			continue
		}
		start := max(0, loc[0]-searchContextChars)
		end := min(len(body), loc[1]+searchContextChars)
		matches = append(matches, SearchMatch{
			Text:    body[loc[0]:loc[1]],
			Context: strings.TrimSpace(body[start:end]),
			Offset:  loc[0],
		})
	}
	return matches
}

// Screenshot captures the page, or one element, as PNG. When no path is
// given the image is returned base64 encoded.
func (s *Session) Screenshot(ctx context.Context, opts ScreenshotOptions) (*Screenshot, error) {
	ctx, cancel := s.queryContext(ctx, 0)
	defer cancel()

	var data []byte
	err := await(ctx, func() error {
		var err error
		if opts.Selector != "" {
			shotOpts := playwright.LocatorScreenshotOptions{}
			if opts.Path != "" {
				shotOpts.Path = playwright.String(opts.Path)
			}
			data, err = s.Page.Locator(opts.Selector).First().Screenshot(shotOpts)
			return err
		}
		shotOpts := playwright.PageScreenshotOptions{FullPage: playwright.Bool(opts.FullPage)}
		if opts.Path != "" {
			shotOpts.Path = playwright.String(opts.Path)
		}
		data, err = s.Page.Screenshot(shotOpts)
		return err
	})
	if err != nil {
		return nil, errs.Classify(err, errs.CodeQueryTimeout, "screenshot")
	}

	out := &Screenshot{Path: opts.Path, Bytes: len(data)}
	if opts.Path == "" {
		out.Base64 = base64.StdEncoding.EncodeToString(data)
	}
	return out, nil
}

// await runs fn and waits for it or for ctx. The playwright calls it wraps
// take no context; a call that outlives ctx finishes in the background.
func await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("operation aborted: %w", ctx.Err())
	}
}

// truncateString cuts s to maxLen bytes without splitting a rune.
func truncateString(s string, maxLen int) (string, bool) {
	if len(s) <= maxLen {
		return s, false
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...", true
}
