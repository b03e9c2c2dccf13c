package cascade

import (
	"context"
	"strings"

	"github.com/chromedp/cdproto/css"

	"github.com/entrhq/domscope/pkg/cdp"
)

// Source classifies where a declaration came from.
type Source string

const (
	SourceInline     Source = "inline"
	SourceStylesheet Source = "stylesheet"
	SourceAttribute  Source = "attribute"
)

// Declaration is one assignment of the queried property found on a node.
// Rule is nil for inline and attribute declarations.
type Declaration struct {
	Property cdp.Property
	Source   Source
	Rule     *cdp.Rule
	Style    *cdp.Style
}

// Provenance is the reported origin of a declaration.
type Provenance struct {
	Source        Source `json:"source"`
	Selector      string `json:"selector,omitempty"`
	StyleSheetURL string `json:"stylesheetUrl,omitempty"`
	Line          int    `json:"line,omitempty"`
	Column        int    `json:"column,omitempty"`
	Important     bool   `json:"important"`
	Snippet       string `json:"snippet,omitempty"`
	Value         string `json:"value"`
}

// Styles is the style-engine surface the cascade reads from.
type Styles interface {
	MatchedStyles(ctx context.Context, id cdp.NodeID) (*cdp.MatchedStyles, error)
	StyleSheetText(ctx context.Context, id css.StyleSheetID) (string, error)
	StyleSheet(id css.StyleSheetID) (cdp.StyleSheetHeader, bool)
}

type sheetText struct {
	text string
	ok   bool
}

// sourceResolver maps declarations to provenance. Stylesheet text is
// memoized for the lifetime of one resolver, which is one query.
type sourceResolver struct {
	styles  Styles
	pageURL string
	texts   map[css.StyleSheetID]sheetText
}

func newSourceResolver(styles Styles, pageURL string) *sourceResolver {
	return &sourceResolver{
		styles:  styles,
		pageURL: pageURL,
		texts:   make(map[css.StyleSheetID]sheetText),
	}
}

func (r *sourceResolver) resolve(ctx context.Context, d Declaration) Provenance {
	p := Provenance{
		Source:    d.Source,
		Important: d.Property.Important,
		Value:     d.Property.Value,
	}

	switch d.Source {
	case SourceInline:
		if text := strings.TrimSpace(d.Property.Text); text != "" {
			p.Snippet = text
		} else {
			p.Snippet = d.Property.Name + ": " + d.Property.Value + ";"
		}
		return p
	case SourceAttribute:
		return p
	}

	if d.Rule == nil {
		return p
	}
	p.Selector = selectorText(d.Rule.SelectorList)

	sheet := d.Rule.StyleSheetID
	if sheet == "" {
		return p
	}
	header, hasHeader := r.styles.StyleSheet(sheet)
	if u, ok := r.url(header, hasHeader, d.Rule.Origin); ok {
		p.StyleSheetURL = u
	}

	rng, ok := declarationRange(d)
	if !ok {
		return p
	}
	p.Line = int(rng.StartLine) + 1
	p.Column = int(rng.StartColumn) + 1
	if hasHeader {
		p.Line += int(header.StartLine)
		if rng.StartLine == 0 {
			p.Column += int(header.StartColumn)
		}
	}

	if text, ok := r.text(ctx, sheet); ok {
		if snippet, ok := lineAt(text, int(rng.StartLine)); ok {
			p.Snippet = snippet
		}
	}
	return p
}

// url resolves the stylesheet's origin URL. Sheets without a source URL
// are embedded in the document and take the page URL.
func (r *sourceResolver) url(h cdp.StyleSheetHeader, ok bool, origin css.StyleSheetOrigin) (string, bool) {
	if ok && h.SourceURL != "" {
		return h.SourceURL, true
	}
	if origin == css.StyleSheetOriginUserAgent || r.pageURL == "" {
		return "", false
	}
	return r.pageURL, true
}

func (r *sourceResolver) text(ctx context.Context, id css.StyleSheetID) (string, bool) {
	if t, seen := r.texts[id]; seen {
		return t.text, t.ok
	}
	text, err := r.styles.StyleSheetText(ctx, id)
	t := sheetText{text: text, ok: err == nil}
	r.texts[id] = t
	return t.text, t.ok
}

// declarationRange returns the source range of d. Longhands expanded from
// a shorthand carry no range; they borrow the range of the last valid
// shorthand in the same style that covers them.
func declarationRange(d Declaration) (*css.SourceRange, bool) {
	if d.Property.Range != nil {
		return d.Property.Range, true
	}
	if d.Style == nil {
		return nil, false
	}
	covering := ShorthandsOf(d.Property.Name)
	var found *css.SourceRange
	for _, p := range d.Style.Properties {
		if p.Range == nil || !p.Valid() {
			continue
		}
		for _, s := range covering {
			if p.Name == s {
				found = p.Range
			}
		}
	}
	return found, found != nil
}

func selectorText(sl cdp.SelectorList) string {
	if sl.Text != "" {
		return sl.Text
	}
	parts := make([]string, 0, len(sl.Selectors))
	for _, s := range sl.Selectors {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, ", ")
}

// lineAt returns the trimmed zero-based line n of text.
func lineAt(text string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	lines := strings.Split(text, "\n")
	if n >= len(lines) {
		return "", false
	}
	line := strings.TrimSpace(strings.TrimSuffix(lines[n], "\r"))
	if line == "" {
		return "", false
	}
	return line, true
}
