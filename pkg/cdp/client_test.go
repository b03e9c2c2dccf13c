package cdp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/css"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/domscope/pkg/cdp/cdptest"
	"github.com/entrhq/domscope/pkg/errs"
)

func TestClient_QueryAndDescribe(t *testing.T) {
	conn := cdptest.New()
	conn.Respond("DOM.getDocument", map[string]interface{}{
		"root": map[string]interface{}{"nodeId": 1, "nodeName": "#document"},
	})
	conn.Handle("DOM.querySelectorAll", func(params map[string]interface{}) (interface{}, error) {
		assert.Equal(t, ".box", params["selector"])
		return map[string]interface{}{"nodeIds": []int{5, 7}}, nil
	})
	conn.Respond("DOM.describeNode", map[string]interface{}{
		"node": map[string]interface{}{"nodeId": 5, "backendNodeId": 12, "nodeType": 1, "nodeName": "DIV", "localName": "div"},
	})

	c := NewClient(conn)
	ctx := context.Background()

	root, err := c.Document(ctx)
	require.NoError(t, err)
	assert.Equal(t, cdp.NodeID(1), root)

	ids, err := c.QuerySelectorAll(ctx, root, ".box")
	require.NoError(t, err)
	assert.Equal(t, []cdp.NodeID{5, 7}, ids)

	node, err := c.DescribeNode(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "DIV", node.NodeName)
	assert.Equal(t, int64(1), node.NodeType)
}

func TestClient_MatchedStylesDecoding(t *testing.T) {
	conn := cdptest.New()
	conn.Respond("CSS.getMatchedStylesForNode", map[string]interface{}{
		"inlineStyle": map[string]interface{}{
			"cssProperties": []interface{}{
				map[string]interface{}{"name": "color", "value": "green", "text": "color: green;"},
			},
		},
		"matchedCSSRules": []interface{}{
			map[string]interface{}{
				"rule": map[string]interface{}{
					"styleSheetId": "sheet-1",
					"selectorList": map[string]interface{}{"text": ".a, .b"},
					"origin":       "regular",
					"style": map[string]interface{}{
						"styleSheetId": "sheet-1",
						"cssProperties": []interface{}{
							map[string]interface{}{"name": "color", "value": "red", "parsedOk": false},
							map[string]interface{}{"name": "color", "value": "blue", "disabled": true},
							map[string]interface{}{"name": "color", "value": "teal",
								"range": map[string]interface{}{"startLine": 3, "startColumn": 2, "endLine": 3, "endColumn": 14}},
						},
					},
				},
				"matchingSelectors": []int{1},
			},
		},
	})

	ms, err := NewClient(conn).MatchedStyles(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, ms.InlineStyle)
	assert.Nil(t, ms.AttributesStyle)
	require.Len(t, ms.MatchedRules, 1)

	rule := ms.MatchedRules[0].Rule
	assert.Equal(t, ".a, .b", rule.SelectorList.Text)
	assert.Equal(t, css.StyleSheetOriginRegular, rule.Origin)
	require.Len(t, rule.Style.Properties, 3)
	assert.False(t, rule.Style.Properties[0].Valid(), "parsedOk=false")
	assert.False(t, rule.Style.Properties[1].Valid(), "disabled")
	assert.True(t, rule.Style.Properties[2].Valid(), "parsedOk omitted")
	require.NotNil(t, rule.Style.Properties[2].Range)
	assert.Equal(t, int64(3), rule.Style.Properties[2].Range.StartLine)
}

func TestClient_StyleErrorsAreClassified(t *testing.T) {
	conn := cdptest.New()
	conn.Fail("CSS.getMatchedStylesForNode", errors.New("CSS agent was not enabled"))
	conn.Fail("CSS.getComputedStyleForNode", errors.New("Timeout 8000ms exceeded"))

	c := NewClient(conn)
	_, err := c.MatchedStyles(context.Background(), 1)
	assert.Equal(t, errs.CodeStyleDomainUnavailable, errs.CodeOf(err))

	_, err = c.ComputedStyle(context.Background(), 1)
	assert.Equal(t, errs.CodeQueryTimeout, errs.CodeOf(err))
}

func TestClient_EnableFailsWithoutCSS(t *testing.T) {
	conn := cdptest.New()
	conn.Respond("DOM.enable", map[string]interface{}{})

	err := NewClient(conn).Enable(context.Background())
	assert.Equal(t, errs.CodeStyleDomainUnavailable, errs.CodeOf(err))
}

func TestClient_CallHonoursDeadline(t *testing.T) {
	conn := cdptest.New()
	release := make(chan struct{})
	conn.Handle("DOM.getDocument", func(map[string]interface{}) (interface{}, error) {
		<-release
		return map[string]interface{}{}, nil
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient(conn).Document(ctx)
	assert.Equal(t, errs.CodeQueryTimeout, errs.CodeOf(err))
}

func TestClient_WatchTracksStyleSheets(t *testing.T) {
	conn := cdptest.New()
	c := NewClient(conn)
	c.Watch(conn)

	conn.Emit("CSS.styleSheetAdded", map[string]interface{}{
		"header": map[string]interface{}{
			"styleSheetId": "s1",
			"sourceURL":    "https://example.test/site.css",
			"origin":       "regular",
			"startLine":    0,
			"startColumn":  0,
		},
	})

	h, ok := c.StyleSheet("s1")
	require.True(t, ok)
	assert.Equal(t, "https://example.test/site.css", h.SourceURL)

	conn.Emit("CSS.styleSheetRemoved", map[string]interface{}{"styleSheetId": "s1"})
	_, ok = c.StyleSheet("s1")
	assert.False(t, ok)
}
