// Package cascade decides which declaration governs a CSS property on a
// node and reports where that declaration was authored.
//
// The ranking uses importance and origin, then match order. Selector
// specificity is not computed: two rules of different specificity in the
// same bucket are ranked by the order the style engine reports them.
package cascade

import (
	"context"

	"github.com/entrhq/domscope/pkg/cdp"
)

// Record is the provenance answer for one node and property.
type Record struct {
	Property      string       `json:"property"`
	ComputedValue *string      `json:"computedValue"`
	Winner        *Provenance  `json:"winner,omitempty"`
	Contributors  []Provenance `json:"contributors,omitempty"`
}

// Options controls a resolution.
type Options struct {
	// IncludeContributors reports the non-winning declarations as well.
	IncludeContributors bool
	// PageURL is used as the URL of stylesheets embedded in the document.
	PageURL string
}

// Result is the outcome of the cascade for one node and property.
type Result struct {
	Winner       *Provenance
	Contributors []Provenance
}

// Engine resolves cascades against a live style engine.
type Engine struct {
	styles Styles
}

// NewEngine creates an engine reading from styles.
func NewEngine(styles Styles) *Engine {
	return &Engine{styles: styles}
}

// Resolve collects every declaration of property on node and picks the
// winner. Shorthands are rejected before the style engine is contacted.
// A property with no declarations yields an empty Result, not an error.
func (e *Engine) Resolve(ctx context.Context, node cdp.NodeID, property string, opts Options) (*Result, error) {
	if err := CheckProperty(property); err != nil {
		return nil, err
	}
	property = NormalizeProperty(property)

	matched, err := e.styles.MatchedStyles(ctx, node)
	if err != nil {
		return nil, err
	}

	decls := Collect(matched, property)
	if len(decls) == 0 {
		return &Result{}, nil
	}

	win := Winner(decls)
	sources := newSourceResolver(e.styles, opts.PageURL)

	w := sources.resolve(ctx, decls[win])
	res := &Result{Winner: &w}
	if !opts.IncludeContributors {
		return res, nil
	}
	for i, d := range decls {
		if i == win {
			continue
		}
		res.Contributors = append(res.Contributors, sources.resolve(ctx, d))
	}
	return res, nil
}

// Collect gathers the valid declarations of property in ascending
// precedence of origin: attribute style, matched rules in match order, then
// the inline style.
func Collect(ms *cdp.MatchedStyles, property string) []Declaration {
	if ms == nil {
		return nil
	}
	var out []Declaration
	pick := func(style *cdp.Style, src Source, rule *cdp.Rule) {
		if style == nil {
			return
		}
		for _, p := range style.Properties {
			if p.Name == property && p.Valid() {
				out = append(out, Declaration{Property: p, Source: src, Rule: rule, Style: style})
			}
		}
	}

	pick(ms.AttributesStyle, SourceAttribute, nil)
	for i := range ms.MatchedRules {
		rule := &ms.MatchedRules[i].Rule
		pick(&rule.Style, SourceStylesheet, rule)
	}
	pick(ms.InlineStyle, SourceInline, nil)
	return out
}

// rank orders the cascade buckets, highest wins.
func rank(d Declaration) int {
	switch {
	case d.Source == SourceInline && d.Property.Important:
		return 4
	case d.Source == SourceStylesheet && d.Property.Important:
		return 3
	case d.Source == SourceInline:
		return 2
	case d.Source == SourceStylesheet:
		return 1
	default:
		return 0
	}
}

// Winner returns the index of the governing declaration: the last one in
// the highest ranked bucket. decls must not be empty.
func Winner(decls []Declaration) int {
	best, bestRank := -1, -1
	for i, d := range decls {
		if r := rank(d); r >= bestRank {
			best, bestRank = i, r
		}
	}
	return best
}
