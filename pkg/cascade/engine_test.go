package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/cdproto/css"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/domscope/pkg/cdp"
	"github.com/entrhq/domscope/pkg/errs"
)

type fakeStyles struct {
	matched *cdp.MatchedStyles
	err     error
	texts   map[css.StyleSheetID]string
	headers map[css.StyleSheetID]cdp.StyleSheetHeader

	matchedCalls int
	textCalls    int
}

func (f *fakeStyles) MatchedStyles(ctx context.Context, id cdp.NodeID) (*cdp.MatchedStyles, error) {
	f.matchedCalls++
	return f.matched, f.err
}

func (f *fakeStyles) StyleSheetText(ctx context.Context, id css.StyleSheetID) (string, error) {
	f.textCalls++
	text, ok := f.texts[id]
	if !ok {
		return "", errors.New("no stylesheet for given id")
	}
	return text, nil
}

func (f *fakeStyles) StyleSheet(id css.StyleSheetID) (cdp.StyleSheetHeader, bool) {
	h, ok := f.headers[id]
	return h, ok
}

func prop(name, value string, important bool) cdp.Property {
	return cdp.Property{Name: name, Value: value, Important: important}
}

func at(p cdp.Property, line, col int64) cdp.Property {
	p.Range = &css.SourceRange{StartLine: line, StartColumn: col, EndLine: line, EndColumn: col + 10}
	return p
}

func rule(sheet, selector string, props ...cdp.Property) cdp.RuleMatch {
	return cdp.RuleMatch{Rule: cdp.Rule{
		StyleSheetID: css.StyleSheetID(sheet),
		SelectorList: cdp.SelectorList{Text: selector},
		Origin:       css.StyleSheetOriginRegular,
		Style:        cdp.Style{StyleSheetID: css.StyleSheetID(sheet), Properties: props},
	}}
}

func inline(props ...cdp.Property) *cdp.Style {
	return &cdp.Style{Properties: props}
}

func resolve(t *testing.T, f *fakeStyles, property string, opts Options) *Result {
	t.Helper()
	res, err := NewEngine(f).Resolve(context.Background(), 1, property, opts)
	require.NoError(t, err)
	return res
}

func TestResolve_RejectsShorthandsBeforeQuerying(t *testing.T) {
	for _, name := range Shorthands() {
		t.Run(name, func(t *testing.T) {
			f := &fakeStyles{matched: &cdp.MatchedStyles{}}
			_, err := NewEngine(f).Resolve(context.Background(), 1, name, Options{})
			require.Error(t, err)
			assert.Equal(t, errs.CodeShorthandUnsupported, errs.CodeOf(err))
			assert.Zero(t, f.matchedCalls)
		})
	}
}

func TestResolve_Priority(t *testing.T) {
	tests := []struct {
		name       string
		property   string
		matched    *cdp.MatchedStyles
		wantSource Source
		wantValue  string
	}{
		{
			name:     "inline beats stylesheet",
			property: "color",
			matched: &cdp.MatchedStyles{
				MatchedRules: []cdp.RuleMatch{rule("s1", ".a", prop("color", "red", false))},
				InlineStyle:  inline(prop("color", "green", false)),
			},
			wantSource: SourceInline,
			wantValue:  "green",
		},
		{
			name:     "stylesheet important beats inline normal",
			property: "color",
			matched: &cdp.MatchedStyles{
				MatchedRules: []cdp.RuleMatch{rule("s1", ".a", prop("color", "red", true))},
				InlineStyle:  inline(prop("color", "green", false)),
			},
			wantSource: SourceStylesheet,
			wantValue:  "red",
		},
		{
			name:     "inline important beats stylesheet important",
			property: "color",
			matched: &cdp.MatchedStyles{
				MatchedRules: []cdp.RuleMatch{rule("s1", ".a", prop("color", "red", true))},
				InlineStyle:  inline(prop("color", "green", true)),
			},
			wantSource: SourceInline,
			wantValue:  "green",
		},
		{
			name:     "attribute style loses to stylesheet",
			property: "width",
			matched: &cdp.MatchedStyles{
				AttributesStyle: inline(prop("width", "100px", false)),
				MatchedRules:    []cdp.RuleMatch{rule("s1", "img", prop("width", "50%", false))},
			},
			wantSource: SourceStylesheet,
			wantValue:  "50%",
		},
		{
			name:     "attribute style alone wins",
			property: "width",
			matched: &cdp.MatchedStyles{
				AttributesStyle: inline(prop("width", "100px", false)),
			},
			wantSource: SourceAttribute,
			wantValue:  "100px",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolve(t, &fakeStyles{matched: tt.matched}, tt.property, Options{})
			require.NotNil(t, res.Winner)
			assert.Equal(t, tt.wantSource, res.Winner.Source)
			assert.Equal(t, tt.wantValue, res.Winner.Value)
		})
	}
}

func TestResolve_LaterRuleWinsWithinBucket(t *testing.T) {
	f := &fakeStyles{matched: &cdp.MatchedStyles{
		MatchedRules: []cdp.RuleMatch{
			rule("s1", "#main .item", prop("color", "red", false)),
			rule("s1", ".item", prop("color", "blue", false)),
		},
	}}
	res := resolve(t, f, "color", Options{})
	require.NotNil(t, res.Winner)
	assert.Equal(t, ".item", res.Winner.Selector)
	assert.Equal(t, "blue", res.Winner.Value)
}

func TestResolve_SkipsInvalidDeclarations(t *testing.T) {
	bad := false
	broken := prop("color", "nope", false)
	broken.ParsedOk = &bad
	disabled := prop("color", "purple", false)
	disabled.Disabled = true

	f := &fakeStyles{matched: &cdp.MatchedStyles{
		MatchedRules: []cdp.RuleMatch{
			rule("s1", ".a", prop("color", "red", false)),
			rule("s1", ".b", broken, disabled),
		},
	}}
	res := resolve(t, f, "color", Options{IncludeContributors: true})
	require.NotNil(t, res.Winner)
	assert.Equal(t, "red", res.Winner.Value)
	assert.Empty(t, res.Contributors)
}

func TestResolve_NoDeclarations(t *testing.T) {
	f := &fakeStyles{matched: &cdp.MatchedStyles{
		MatchedRules: []cdp.RuleMatch{rule("s1", "body", prop("color", "red", false))},
	}}
	res := resolve(t, f, "text-align", Options{IncludeContributors: true})
	assert.Nil(t, res.Winner)
	assert.Nil(t, res.Contributors)
}

func TestResolve_Contributors(t *testing.T) {
	matched := &cdp.MatchedStyles{
		MatchedRules: []cdp.RuleMatch{
			rule("s1", ".a", prop("color", "red", false)),
			rule("s1", ".b", prop("color", "blue", true)),
		},
		InlineStyle: inline(prop("color", "green", false)),
	}

	res := resolve(t, &fakeStyles{matched: matched}, "color", Options{})
	assert.Nil(t, res.Contributors, "not requested")

	res = resolve(t, &fakeStyles{matched: matched}, "color", Options{IncludeContributors: true})
	require.NotNil(t, res.Winner)
	assert.Equal(t, ".b", res.Winner.Selector)
	require.Len(t, res.Contributors, 2)
	assert.Equal(t, "red", res.Contributors[0].Value)
	assert.Equal(t, SourceInline, res.Contributors[1].Source)
}

func TestResolve_SourceLocation(t *testing.T) {
	sheet := "body { margin: 0 }\n.box {\n  margin: 10px 15px 20px 25px;\n}\n"
	margin := at(prop("margin", "10px 15px 20px 25px", false), 2, 2)
	f := &fakeStyles{
		matched: &cdp.MatchedStyles{MatchedRules: []cdp.RuleMatch{
			rule("s1", ".box",
				margin,
				prop("margin-top", "10px", false),
				prop("margin-right", "15px", false),
			),
		}},
		texts: map[css.StyleSheetID]string{"s1": sheet},
		headers: map[css.StyleSheetID]cdp.StyleSheetHeader{
			"s1": {StyleSheetID: "s1", SourceURL: "https://example.test/site.css"},
		},
	}

	res := resolve(t, f, "margin-top", Options{PageURL: "https://example.test/"})
	require.NotNil(t, res.Winner)
	assert.Equal(t, Provenance{
		Source:        SourceStylesheet,
		Selector:      ".box",
		StyleSheetURL: "https://example.test/site.css",
		Line:          3,
		Column:        3,
		Snippet:       "margin: 10px 15px 20px 25px;",
		Value:         "10px",
	}, *res.Winner)
}

func TestResolve_EmbeddedSheetUsesPageURLAndOffset(t *testing.T) {
	f := &fakeStyles{
		matched: &cdp.MatchedStyles{MatchedRules: []cdp.RuleMatch{
			rule("s2", "p", at(prop("color", "red", false), 0, 4)),
		}},
		texts: map[css.StyleSheetID]string{"s2": "p { color: red; }"},
		headers: map[css.StyleSheetID]cdp.StyleSheetHeader{
			"s2": {StyleSheetID: "s2", IsInline: true, StartLine: 9, StartColumn: 11},
		},
	}

	res := resolve(t, f, "color", Options{PageURL: "https://example.test/page"})
	require.NotNil(t, res.Winner)
	assert.Equal(t, "https://example.test/page", res.Winner.StyleSheetURL)
	assert.Equal(t, 10, res.Winner.Line)
	assert.Equal(t, 16, res.Winner.Column)
	assert.Equal(t, "p { color: red; }", res.Winner.Snippet)
}

func TestResolve_BestEffortMetadata(t *testing.T) {
	f := &fakeStyles{
		matched: &cdp.MatchedStyles{MatchedRules: []cdp.RuleMatch{
			rule("gone", ".a", at(prop("color", "red", false), 4, 0)),
			rule("gone", ".b", at(prop("color", "blue", false), 7, 0)),
		}},
	}

	res := resolve(t, f, "color", Options{IncludeContributors: true})
	require.NotNil(t, res.Winner)
	assert.Equal(t, "blue", res.Winner.Value)
	assert.Equal(t, 8, res.Winner.Line)
	assert.Empty(t, res.Winner.Snippet)
	assert.Empty(t, res.Winner.StyleSheetURL)
	assert.Equal(t, 1, f.textCalls, "stylesheet text is fetched once per query")
}

func TestResolve_InlineSnippet(t *testing.T) {
	p := prop("color", "green", false)
	p.Text = " color: green; "
	f := &fakeStyles{matched: &cdp.MatchedStyles{InlineStyle: inline(p)}}

	res := resolve(t, f, "color", Options{})
	require.NotNil(t, res.Winner)
	assert.Equal(t, "color: green;", res.Winner.Snippet)
	assert.Zero(t, res.Winner.Line)
	assert.Empty(t, res.Winner.Selector)
}

func TestResolve_StyleEngineFailure(t *testing.T) {
	f := &fakeStyles{err: errs.New(errs.CodeStyleDomainUnavailable, "css disabled")}
	_, err := NewEngine(f).Resolve(context.Background(), 1, "color", Options{})
	assert.Equal(t, errs.CodeStyleDomainUnavailable, errs.CodeOf(err))
}

func TestWinner(t *testing.T) {
	decls := []Declaration{
		{Property: prop("color", "a", false), Source: SourceStylesheet},
		{Property: prop("color", "b", true), Source: SourceStylesheet},
		{Property: prop("color", "c", true), Source: SourceStylesheet},
		{Property: prop("color", "d", false), Source: SourceInline},
	}
	assert.Equal(t, 2, Winner(decls))
}
