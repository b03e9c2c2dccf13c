package query

import (
	"context"
	"math"
	"strings"

	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/dom"

	"github.com/entrhq/domscope/pkg/cdp"
	"github.com/entrhq/domscope/pkg/errs"
)

// DOM is the protocol surface the query layer reads from. *cdp.Client
// satisfies it.
type DOM interface {
	Document(ctx context.Context) (cdp.NodeID, error)
	QuerySelectorAll(ctx context.Context, root cdp.NodeID, selector string) ([]cdp.NodeID, error)
	Attributes(ctx context.Context, id cdp.NodeID) ([]string, error)
	BoxModel(ctx context.Context, id cdp.NodeID) (*dom.BoxModel, error)
	DescribeNode(ctx context.Context, id cdp.NodeID) (*cdp.Node, error)
	ComputedStyle(ctx context.Context, id cdp.NodeID) ([]*css.ComputedStyleProperty, error)
}

// Resolution is the outcome of resolving a target.
type Resolution struct {
	// Nodes holds at most the requested number of matches, in document order.
	Nodes []cdp.NodeID
	// Total is the number of matches before truncation.
	Total int
}

// Layer answers element and style queries.
type Layer struct {
	dom DOM
}

// New creates a query layer over d.
func New(d DOM) *Layer {
	return &Layer{dom: d}
}

// ResolveTargets finds the nodes matching t, truncated to maxResults.
// An empty match is not an error.
func (l *Layer) ResolveTargets(ctx context.Context, t Target, maxResults int) (*Resolution, error) {
	selector, err := t.Selector()
	if err != nil {
		return nil, err
	}
	if maxResults < 0 {
		maxResults = 0
	}
	if maxResults > MaxResultsCeiling {
		maxResults = MaxResultsCeiling
	}

	root, err := l.dom.Document(ctx)
	if err != nil {
		return nil, errs.Classify(err, errs.CodeQueryTimeout, "document lookup")
	}
	ids, err := l.dom.QuerySelectorAll(ctx, root, selector)
	if err != nil {
		if errs.CodeOf(err) != errs.CodeUnexpected {
			return nil, err
		}
		return nil, errs.Wrap(errs.CodeInvalidArgument, err, "selector %q could not be evaluated", selector)
	}

	res := &Resolution{Total: len(ids)}
	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	res.Nodes = ids
	return res, nil
}

// Attributes returns the node's attributes.
func (l *Layer) Attributes(ctx context.Context, id cdp.NodeID) (map[string]string, bool) {
	flat, err := l.dom.Attributes(ctx, id)
	if err != nil {
		return nil, false
	}
	attrs := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		attrs[flat[i]] = flat[i+1]
	}
	return attrs, true
}

// NodeName returns the node's upper-cased tag name.
func (l *Layer) NodeName(ctx context.Context, id cdp.NodeID) (string, bool) {
	n, err := l.dom.DescribeNode(ctx, id)
	if err != nil || n.NodeName == "" {
		return "", false
	}
	return strings.ToUpper(n.NodeName), true
}

// Rect is an axis-aligned rectangle in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoxModel holds the four boxes of a rendered node. The embedded rect
// summarizes the content box.
type BoxModel struct {
	Rect
	Content Rect `json:"content"`
	Padding Rect `json:"padding"`
	Border  Rect `json:"border"`
	Margin  Rect `json:"margin"`
}

// BoxModel returns the node's geometry. Nodes that are not rendered have
// none.
func (l *Layer) BoxModel(ctx context.Context, id cdp.NodeID) (*BoxModel, bool) {
	m, err := l.dom.BoxModel(ctx, id)
	if err != nil {
		return nil, false
	}
	content := quadRect(m.Content)
	return &BoxModel{
		Rect:    content,
		Content: content,
		Padding: quadRect(m.Padding),
		Border:  quadRect(m.Border),
		Margin:  quadRect(m.Margin),
	}, true
}

func quadRect(q dom.Quad) Rect {
	if len(q) < 8 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(q); i += 2 {
		minX = math.Min(minX, q[i])
		maxX = math.Max(maxX, q[i])
		minY = math.Min(minY, q[i+1])
		maxY = math.Max(maxY, q[i+1])
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Computed returns the requested computed properties. An empty list or a
// "*" entry selects DefaultComputedProperties.
func (l *Layer) Computed(ctx context.Context, id cdp.NodeID, properties []string) (map[string]string, bool) {
	all, err := l.dom.ComputedStyle(ctx, id)
	if err != nil {
		return nil, false
	}
	want := ExpandProperties(properties)
	out := make(map[string]string, len(want))
	for _, p := range all {
		if p == nil {
			continue
		}
		if _, ok := want[p.Name]; ok {
			out[p.Name] = p.Value
		}
	}
	return out, true
}

// ComputedValue returns a single computed property.
func (l *Layer) ComputedValue(ctx context.Context, id cdp.NodeID, property string) (string, bool) {
	all, err := l.dom.ComputedStyle(ctx, id)
	if err != nil {
		return "", false
	}
	for _, p := range all {
		if p != nil && p.Name == property {
			return p.Value, true
		}
	}
	return "", false
}
