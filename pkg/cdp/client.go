// Package cdp is a typed boundary over a Chrome DevTools Protocol session.
// Raw protocol results are narrowed into Go structs as soon as they are
// received so that callers never handle untyped payloads.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/dom"

	"github.com/entrhq/domscope/pkg/errs"
)

// Conn sends a protocol command and returns its decoded JSON result.
// playwright.CDPSession satisfies it.
type Conn interface {
	Send(method string, params map[string]interface{}) (interface{}, error)
}

// EventSource registers protocol event listeners. playwright.CDPSession
// satisfies it.
type EventSource interface {
	On(name string, handler interface{})
}

// Client issues typed protocol calls over a Conn and remembers the
// stylesheet headers announced on it.
type Client struct {
	conn Conn

	mu     sync.RWMutex
	sheets map[css.StyleSheetID]StyleSheetHeader
}

// NewClient creates a client over conn.
func NewClient(conn Conn) *Client {
	return &Client{
		conn:   conn,
		sheets: make(map[css.StyleSheetID]StyleSheetHeader),
	}
}

// Watch subscribes to stylesheet lifecycle events on src. It must be called
// before Enable so that sheets reported during enabling are seen.
func (c *Client) Watch(src EventSource) {
	src.On(string(cdproto.EventCSSStyleSheetAdded), func(params map[string]interface{}) {
		var ev struct {
			Header StyleSheetHeader `json:"header"`
		}
		if err := remarshal(params, &ev); err != nil || ev.Header.StyleSheetID == "" {
			return
		}
		c.TrackStyleSheet(ev.Header)
	})
	src.On(string(cdproto.EventCSSStyleSheetRemoved), func(params map[string]interface{}) {
		id, _ := params["styleSheetId"].(string)
		c.mu.Lock()
		delete(c.sheets, css.StyleSheetID(id))
		c.mu.Unlock()
	})
}

// TrackStyleSheet records a stylesheet header.
func (c *Client) TrackStyleSheet(h StyleSheetHeader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheets[h.StyleSheetID] = h
}

// StyleSheet returns the recorded header for id.
func (c *Client) StyleSheet(id css.StyleSheetID) (StyleSheetHeader, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.sheets[id]
	return h, ok
}

// Enable turns on the DOM and CSS domains. A CSS failure is reported as
// STYLE_DOMAIN_UNAVAILABLE.
func (c *Client) Enable(ctx context.Context) error {
	if err := c.call(ctx, dom.CommandEnable, nil, nil); err != nil {
		return err
	}
	if err := c.call(ctx, css.CommandEnable, nil, nil); err != nil {
		return styleErr(err, css.CommandEnable)
	}
	return nil
}

// Document returns the root node of the current document.
func (c *Client) Document(ctx context.Context) (cdp.NodeID, error) {
	var res struct {
		Root struct {
			NodeID cdp.NodeID `json:"nodeId"`
		} `json:"root"`
	}
	if err := c.call(ctx, dom.CommandGetDocument, map[string]interface{}{"depth": 0}, &res); err != nil {
		return 0, err
	}
	return res.Root.NodeID, nil
}

// QuerySelectorAll runs selector against the subtree rooted at root.
func (c *Client) QuerySelectorAll(ctx context.Context, root cdp.NodeID, selector string) ([]cdp.NodeID, error) {
	var res struct {
		NodeIDs []cdp.NodeID `json:"nodeIds"`
	}
	params := map[string]interface{}{"nodeId": root, "selector": selector}
	if err := c.call(ctx, dom.CommandQuerySelectorAll, params, &res); err != nil {
		return nil, err
	}
	return res.NodeIDs, nil
}

// Attributes returns the node's attributes as a flat name/value list.
func (c *Client) Attributes(ctx context.Context, id cdp.NodeID) ([]string, error) {
	var res struct {
		Attributes []string `json:"attributes"`
	}
	if err := c.call(ctx, dom.CommandGetAttributes, map[string]interface{}{"nodeId": id}, &res); err != nil {
		return nil, err
	}
	return res.Attributes, nil
}

// BoxModel returns the node's box quads. Nodes that are not rendered fail.
func (c *Client) BoxModel(ctx context.Context, id cdp.NodeID) (*dom.BoxModel, error) {
	var res struct {
		Model *dom.BoxModel `json:"model"`
	}
	if err := c.call(ctx, dom.CommandGetBoxModel, map[string]interface{}{"nodeId": id}, &res); err != nil {
		return nil, err
	}
	if res.Model == nil {
		return nil, fmt.Errorf("%s: empty model", dom.CommandGetBoxModel)
	}
	return res.Model, nil
}

// DescribeNode returns the node's description.
func (c *Client) DescribeNode(ctx context.Context, id cdp.NodeID) (*Node, error) {
	var res struct {
		Node Node `json:"node"`
	}
	if err := c.call(ctx, dom.CommandDescribeNode, map[string]interface{}{"nodeId": id}, &res); err != nil {
		return nil, err
	}
	return &res.Node, nil
}

// ComputedStyle returns every computed property of the node.
func (c *Client) ComputedStyle(ctx context.Context, id cdp.NodeID) ([]*css.ComputedStyleProperty, error) {
	var res struct {
		ComputedStyle []*css.ComputedStyleProperty `json:"computedStyle"`
	}
	if err := c.call(ctx, css.CommandGetComputedStyleForNode, map[string]interface{}{"nodeId": id}, &res); err != nil {
		return nil, styleErr(err, css.CommandGetComputedStyleForNode)
	}
	return res.ComputedStyle, nil
}

// MatchedStyles returns the node's inline style, attribute style and
// matched rules.
func (c *Client) MatchedStyles(ctx context.Context, id cdp.NodeID) (*MatchedStyles, error) {
	var res MatchedStyles
	if err := c.call(ctx, css.CommandGetMatchedStylesForNode, map[string]interface{}{"nodeId": id}, &res); err != nil {
		return nil, styleErr(err, css.CommandGetMatchedStylesForNode)
	}
	return &res, nil
}

// StyleSheetText returns the full source text of a stylesheet.
func (c *Client) StyleSheetText(ctx context.Context, id css.StyleSheetID) (string, error) {
	var res struct {
		Text string `json:"text"`
	}
	if err := c.call(ctx, css.CommandGetStyleSheetText, map[string]interface{}{"styleSheetId": id}, &res); err != nil {
		return "", err
	}
	return res.Text, nil
}

type sendResult struct {
	value interface{}
	err   error
}

// call sends method and decodes the result into out. The connection has no
// deadline of its own, so ctx is enforced here; a late reply is dropped.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return errs.Classify(err, errs.CodeQueryTimeout, method)
	}

	done := make(chan sendResult, 1)
	go func() {
		v, err := c.conn.Send(method, params)
		done <- sendResult{value: v, err: err}
	}()

	var res sendResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return errs.Classify(ctx.Err(), errs.CodeQueryTimeout, method)
	}

	if res.err != nil {
		if errs.IsTimeout(res.err) {
			return errs.Classify(res.err, errs.CodeQueryTimeout, method)
		}
		return fmt.Errorf("%s: %w", method, res.err)
	}
	if out == nil {
		return nil
	}
	if err := remarshal(res.value, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// styleErr marks a CSS domain failure as STYLE_DOMAIN_UNAVAILABLE unless it
// is already classified (a timeout, for instance).
func styleErr(err error, method string) error {
	if errs.CodeOf(err) != errs.CodeUnexpected {
		return err
	}
	return errs.Wrap(errs.CodeStyleDomainUnavailable, err, "%s failed", method)
}

func remarshal(in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
