package cdp

import (
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/css"
)

// NodeID identifies a DOM node within the current document.
type NodeID = cdp.NodeID

// Property is a single declaration inside a CSS style as reported by the
// CSS domain. ParsedOk is a pointer because the protocol omits the field
// when the declaration parsed successfully.
type Property struct {
	Name      string           `json:"name"`
	Value     string           `json:"value"`
	Important bool             `json:"important,omitempty"`
	Implicit  bool             `json:"implicit,omitempty"`
	Text      string           `json:"text,omitempty"`
	ParsedOk  *bool            `json:"parsedOk,omitempty"`
	Disabled  bool             `json:"disabled,omitempty"`
	Range     *css.SourceRange `json:"range,omitempty"`
}

// Valid reports whether the declaration takes part in the cascade.
func (p Property) Valid() bool {
	if p.Disabled {
		return false
	}
	return p.ParsedOk == nil || *p.ParsedOk
}

// Style is a declaration block: an inline style attribute, the
// presentational attribute style, or the body of a rule.
type Style struct {
	StyleSheetID css.StyleSheetID `json:"styleSheetId,omitempty"`
	Properties   []Property       `json:"cssProperties"`
	CSSText      string           `json:"cssText,omitempty"`
	Range        *css.SourceRange `json:"range,omitempty"`
}

// SelectorList is the selector group of a rule.
type SelectorList struct {
	Text      string `json:"text"`
	Selectors []struct {
		Text string `json:"text"`
	} `json:"selectors"`
}

// Rule is a matched stylesheet rule.
type Rule struct {
	StyleSheetID css.StyleSheetID     `json:"styleSheetId,omitempty"`
	SelectorList SelectorList         `json:"selectorList"`
	Origin       css.StyleSheetOrigin `json:"origin"`
	Style        Style                `json:"style"`
}

// RuleMatch pairs a rule with the indices of the selectors that matched.
type RuleMatch struct {
	Rule              Rule    `json:"rule"`
	MatchingSelectors []int64 `json:"matchingSelectors"`
}

// MatchedStyles is the result of CSS.getMatchedStylesForNode, narrowed to
// the parts the cascade needs. Rules are in the engine's match order.
type MatchedStyles struct {
	InlineStyle     *Style      `json:"inlineStyle,omitempty"`
	AttributesStyle *Style      `json:"attributesStyle,omitempty"`
	MatchedRules    []RuleMatch `json:"matchedCSSRules"`
}

// StyleSheetHeader describes a stylesheet announced by CSS.styleSheetAdded.
type StyleSheetHeader struct {
	StyleSheetID css.StyleSheetID     `json:"styleSheetId"`
	SourceURL    string               `json:"sourceURL"`
	Origin       css.StyleSheetOrigin `json:"origin"`
	Title        string               `json:"title,omitempty"`
	IsInline     bool                 `json:"isInline"`
	StartLine    float64              `json:"startLine"`
	StartColumn  float64              `json:"startColumn"`
}

// Node is the subset of DOM.describeNode we read.
type Node struct {
	NodeID        cdp.NodeID        `json:"nodeId"`
	BackendNodeID cdp.BackendNodeID `json:"backendNodeId"`
	NodeType      int64             `json:"nodeType"`
	NodeName      string            `json:"nodeName"`
	LocalName     string            `json:"localName"`
	Attributes    []string          `json:"attributes,omitempty"`
}
