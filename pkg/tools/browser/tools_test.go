package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/domscope/pkg/agent/tools"
	"github.com/entrhq/domscope/pkg/cdp/cdptest"
	"github.com/entrhq/domscope/pkg/errs"
)

// pageFixture scripts a document with two ".card" divs. Node 5 carries a
// stylesheet rule and an inline style for color.
func pageFixture() *cdptest.Conn {
	conn := cdptest.New()
	enableDomains(conn)
	conn.Respond("DOM.getDocument", map[string]interface{}{
		"root": map[string]interface{}{"nodeId": 1, "nodeName": "#document"},
	})
	conn.Handle("DOM.querySelectorAll", func(params map[string]interface{}) (interface{}, error) {
		switch params["selector"] {
		case ".card":
			return map[string]interface{}{"nodeIds": []int{5, 6}}, nil
		case "#main":
			return map[string]interface{}{"nodeIds": []int{5}}, nil
		case "div[":
			return nil, errors.New("DOM Error while querying")
		default:
			return map[string]interface{}{"nodeIds": []int{}}, nil
		}
	})
	conn.Respond("DOM.describeNode", map[string]interface{}{
		"node": map[string]interface{}{"nodeId": 5, "nodeType": 1, "nodeName": "BUTTON", "localName": "button"},
	})
	conn.Respond("DOM.getAttributes", map[string]interface{}{
		"attributes": []string{"id", "main", "class", "card"},
	})
	conn.Fail("DOM.getBoxModel", errors.New("Could not compute box model."))
	conn.Respond("CSS.getComputedStyleForNode", map[string]interface{}{
		"computedStyle": []interface{}{
			map[string]interface{}{"name": "color", "value": "rgb(0, 128, 0)"},
			map[string]interface{}{"name": "display", "value": "block"},
		},
	})
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
					"origin":       "regular",
					"selectorList": map[string]interface{}{"text": ".card"},
					"style": map[string]interface{}{
						"styleSheetId": "sheet-1",
						"cssProperties": []interface{}{
							map[string]interface{}{
								"name": "color", "value": "red", "text": "color: red;",
								"range": map[string]interface{}{"startLine": 0, "startColumn": 8, "endLine": 0, "endColumn": 19},
							},
						},
					},
				},
				"matchingSelectors": []int{0},
			},
		},
	})
	conn.Respond("CSS.getStyleSheetText", map[string]interface{}{"text": ".card { color: red; }"})
	return conn
}

// activeManager starts a session over a scripted page and returns the
// manager, its page and connection.
func activeManager(t *testing.T, configure func(*fakePage)) (*SessionManager, *fakePage, *cdptest.Conn) {
	t.Helper()
	conn := pageFixture()
	driver := &fakeDriver{
		rec:     &recorder{},
		newConn: func() *cdptest.Conn { return conn },
		page:    configure,
	}
	settings := testSettings()
	settings.BaseURL = "https://app.example.com"
	settings.AllowedOrigins = []string{"https://*.example.com"}
	m := newTestManager(t, settings, driver)

	_, err := m.Start(context.Background(), StartOptions{})
	require.NoError(t, err)

	page := driver.browsers()[0].context.page
	return m, page, conn
}

func callTool(t *testing.T, tool tools.Tool, args string) (map[string]interface{}, error) {
	t.Helper()
	set, err := tools.NewSet(tool)
	require.NoError(t, err)

	out, callErr := set.Call(context.Background(), tool.Name(), json.RawMessage(args))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	return decoded, callErr
}

func TestTools_Registry(t *testing.T) {
	m := newTestManager(t, testSettings(), &fakeDriver{rec: &recorder{}})
	all := Tools(m)

	set, err := tools.NewSet(all...)
	require.NoError(t, err)
	assert.Len(t, set.All(), 13)

	for _, tool := range all {
		schema := tool.Schema()
		assert.Equal(t, "object", schema["type"], tool.Name())
		assert.NotEmpty(t, tool.Description(), tool.Name())
	}
}

func TestTools_RequireActiveSession(t *testing.T) {
	m := newTestManager(t, testSettings(), &fakeDriver{rec: &recorder{}})

	tests := []struct {
		tool tools.Tool
		args string
	}{
		{NewNavigateTool(m), `{"url":"https://example.com"}`},
		{NewGetElementTool(m), `{"target":{"kind":"id","value":"main"}}`},
		{NewCSSProvenanceTool(m), `{"target":{"kind":"id","value":"main"},"property":"color"}`},
		{NewClickTool(m), `{"selector":"button"}`},
		{NewFillTool(m), `{"selector":"input","value":"x"}`},
		{NewWaitTool(m), `{"selector":"button"}`},
		{NewEvaluateTool(m), `{"script":"1+1"}`},
		{NewReadContentTool(m), `{}`},
		{NewSearchTool(m), `{"pattern":"x"}`},
		{NewScreenshotTool(m), `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.tool.Name(), func(t *testing.T) {
			payload, err := callTool(t, tt.tool, tt.args)
			require.Error(t, err)
			assert.Equal(t, string(errs.CodeNoActiveSession), payload["error"].(map[string]interface{})["code"])
		})
	}
}

func TestTools_InvalidArguments(t *testing.T) {
	m := newTestManager(t, testSettings(), &fakeDriver{rec: &recorder{}})

	tests := []struct {
		name string
		tool tools.Tool
		args string
	}{
		{"unknown field", NewStartSessionTool(m), `{"headless":true}`},
		{"missing url", NewNavigateTool(m), `{}`},
		{"bad wait", NewNavigateTool(m), `{"url":"/","wait":"idle"}`},
		{"zero timeout", NewNavigateTool(m), `{"url":"/","timeoutMs":0}`},
		{"bad target kind", NewGetElementTool(m), `{"target":{"kind":"xpath","value":"//div"}}`},
		{"bad include", NewGetElementTool(m), `{"target":{"kind":"id","value":"a"},"include":["style"]}`},
		{"empty property", NewCSSProvenanceTool(m), `{"target":{"kind":"id","value":"a"},"property":""}`},
		{"bad button", NewClickTool(m), `{"selector":"a","button":"back"}`},
		{"bad state", NewWaitTool(m), `{"selector":"a","state":"gone"}`},
		{"bad format", NewReadContentTool(m), `{"format":"pdf"}`},
		{"missing pattern", NewSearchTool(m), `{}`},
		{"missing script", NewEvaluateTool(m), `{"script":"  "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callTool(t, tt.tool, tt.args)
			assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
		})
	}
}

func TestCSSProvenanceTool_ShorthandRejectedFirst(t *testing.T) {
	// No session: the shorthand check must fire before session lookup.
	m := newTestManager(t, testSettings(), &fakeDriver{rec: &recorder{}})

	payload, err := callTool(t, NewCSSProvenanceTool(m), `{"target":{"kind":"id","value":"main"},"property":"margin"}`)
	require.Error(t, err)
	body := payload["error"].(map[string]interface{})
	assert.Equal(t, string(errs.CodeShorthandUnsupported), body["code"])
	details := body["details"].(map[string]interface{})
	assert.Contains(t, details["longhands"], "margin-top")
}

func TestCSSProvenanceTool_ShorthandNeverQueriesPage(t *testing.T) {
	m, _, conn := activeManager(t, nil)

	_, err := callTool(t, NewCSSProvenanceTool(m), `{"target":{"kind":"selector","value":".card"},"property":"padding"}`)
	assert.Equal(t, errs.CodeShorthandUnsupported, errs.CodeOf(err))
	assert.Zero(t, conn.CallCount("DOM.getDocument"))
	assert.Zero(t, conn.CallCount("CSS.getMatchedStylesForNode"))
}

func TestCSSProvenanceTool_Winner(t *testing.T) {
	m, _, _ := activeManager(t, func(p *fakePage) { p.url = "https://app.example.com/" })

	payload, err := callTool(t, NewCSSProvenanceTool(m),
		`{"target":{"kind":"id","value":"main"},"property":"color","includeContributors":true}`)
	require.NoError(t, err)

	assert.Equal(t, float64(1), payload["matchCount"])
	results := payload["results"].([]interface{})
	require.Len(t, results, 1)
	rec := results[0].(map[string]interface{})
	assert.Equal(t, "color", rec["property"])
	assert.Equal(t, "rgb(0, 128, 0)", rec["computedValue"])

	winner := rec["winner"].(map[string]interface{})
	assert.Equal(t, "inline", winner["source"])
	assert.Equal(t, "color: green;", winner["snippet"])

	contributors := rec["contributors"].([]interface{})
	require.Len(t, contributors, 1)
	loser := contributors[0].(map[string]interface{})
	assert.Equal(t, "stylesheet", loser["source"])
	assert.Equal(t, ".card", loser["selector"])
	assert.Equal(t, "https://app.example.com/", loser["stylesheetUrl"])
	assert.Equal(t, float64(1), loser["line"])
	assert.Equal(t, float64(9), loser["column"])
}

func TestCSSProvenanceTool_NoDeclarations(t *testing.T) {
	m, _, _ := activeManager(t, nil)

	payload, err := callTool(t, NewCSSProvenanceTool(m), `{"target":{"kind":"id","value":"main"},"property":"display"}`)
	require.NoError(t, err)

	rec := payload["results"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "block", rec["computedValue"])
	assert.NotContains(t, rec, "winner")
}

func TestGetElementTool(t *testing.T) {
	m, _, _ := activeManager(t, nil)

	payload, err := callTool(t, NewGetElementTool(m),
		`{"target":{"kind":"selector","value":".card"},"maxResults":1,"properties":["color"]}`)
	require.NoError(t, err)

	assert.Equal(t, float64(2), payload["matchCount"])
	results := payload["results"].([]interface{})
	require.Len(t, results, 1)

	el := results[0].(map[string]interface{})
	assert.Equal(t, true, el["exists"])
	assert.Equal(t, "BUTTON", el["nodeName"])
	assert.Equal(t, "button", el["role"])
	assert.Equal(t, map[string]interface{}{"id": "main", "class": "card"}, el["attributes"])
	assert.Equal(t, map[string]interface{}{"color": "rgb(0, 128, 0)"}, el["computed"])
	assert.NotContains(t, el, "boxModel")
}

func TestGetElementTool_NotFound(t *testing.T) {
	m, _, _ := activeManager(t, nil)

	tests := []struct {
		name       string
		args       string
		wantCode   errs.Code
		matchCount float64
	}{
		{"no match", `{"target":{"kind":"id","value":"missing"}}`, errs.CodeElementNotFound, 0},
		{"zero max results", `{"target":{"kind":"selector","value":".card"},"maxResults":0}`, errs.CodeElementNotFound, 2},
		{"invalid selector", `{"target":{"kind":"selector","value":"div["}}`, errs.CodeInvalidArgument, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := callTool(t, NewGetElementTool(m), tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errs.CodeOf(err))
			if tt.matchCount >= 0 {
				details := payload["error"].(map[string]interface{})["details"].(map[string]interface{})
				assert.Equal(t, tt.matchCount, details["matchCount"])
			}
		})
	}
}

func TestNavigateTool(t *testing.T) {
	m, page, _ := activeManager(t, func(p *fakePage) { p.title = "Dashboard" })

	payload, err := callTool(t, NewNavigateTool(m), `{"url":"/dashboard","wait":"domcontentloaded"}`)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/dashboard", payload["finalUrl"])
	assert.Equal(t, "Dashboard", payload["title"])

	_, err = callTool(t, NewNavigateTool(m), `{"url":"https://evil.test/"}`)
	assert.Equal(t, errs.CodeNavigationBlocked, errs.CodeOf(err))
	assert.Equal(t, []string{"https://app.example.com/dashboard"}, page.gotos)
}

func TestNavigateTool_BlockedRedirect(t *testing.T) {
	m, page, _ := activeManager(t, func(p *fakePage) { p.redirect = "https://sso.other.test/login" })

	_, err := callTool(t, NewNavigateTool(m), `{"url":"https://app.example.com/"}`)
	assert.Equal(t, errs.CodeNavigationBlocked, errs.CodeOf(err))
	assert.Equal(t, "about:blank", page.URL())
}

func TestNavigateTool_Timeout(t *testing.T) {
	m, _, _ := activeManager(t, func(p *fakePage) {
		p.gotoErr = fmt.Errorf("%w: Timeout 15000ms exceeded.", playwright.ErrTimeout)
	})

	payload, err := callTool(t, NewNavigateTool(m), `{"url":"https://app.example.com/slow"}`)
	require.Error(t, err)
	assert.Equal(t, errs.CodeNavigationTimeout, errs.CodeOf(err))
	assert.Equal(t, string(errs.CodeNavigationTimeout), payload["error"].(map[string]interface{})["code"])
}

func TestPageTools(t *testing.T) {
	m, page, _ := activeManager(t, func(p *fakePage) {
		p.url = "https://app.example.com/form"
		p.text = "Total: 42 items. Another total here."
		p.html = `<html><head><title>Form</title></head><body><h1>Orders</h1><p>Total: <b>42</b></p></body></html>`
		p.evalFn = func(script string) (interface{}, error) {
			return map[string]interface{}{"script": script}, nil
		}
	})

	payload, err := callTool(t, NewClickTool(m), `{"selector":"#save","clickCount":2}`)
	require.NoError(t, err)
	assert.Equal(t, true, payload["ok"])
	assert.Equal(t, "https://app.example.com/form", payload["url"])
	assert.Equal(t, []string{"#save"}, page.clicked)

	_, err = callTool(t, NewFillTool(m), `{"selector":"#q","value":"shoes"}`)
	require.NoError(t, err)
	assert.Equal(t, "shoes", page.filled["#q"])

	_, err = callTool(t, NewWaitTool(m), `{"selector":"#done","state":"visible","timeoutMs":500}`)
	require.NoError(t, err)

	payload, err = callTool(t, NewEvaluateTool(m), `{"script":"document.title"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"script": "document.title"}, payload["result"])

	payload, err = callTool(t, NewReadContentTool(m), `{}`)
	require.NoError(t, err)
	assert.Equal(t, "markdown", payload["format"])
	assert.Equal(t, "# Orders\n\nTotal: **42**", payload["content"])
	assert.Equal(t, false, payload["truncated"])

	payload, err = callTool(t, NewSearchTool(m), `{"pattern":"total"}`)
	require.NoError(t, err)
	assert.Len(t, payload["matches"], 2)

	payload, err = callTool(t, NewScreenshotTool(m), `{"fullPage":true}`)
	require.NoError(t, err)
	assert.Equal(t, float64(len("png-bytes")), payload["bytes"])
	assert.NotEmpty(t, payload["base64"])
}

func TestSessionTools(t *testing.T) {
	m := newTestManager(t, testSettings(), &fakeDriver{rec: &recorder{}})

	payload, err := callTool(t, NewSessionStatusTool(m), `{}`)
	require.NoError(t, err)
	assert.Equal(t, "absent", payload["state"])

	payload, err = callTool(t, NewStartSessionTool(m), `{}`)
	require.NoError(t, err)
	assert.Equal(t, true, payload["ok"])
	id := payload["sessionId"]

	payload, err = callTool(t, NewStartSessionTool(m), `{}`)
	require.Error(t, err)
	assert.Equal(t, string(errs.CodeAlreadyStarted), payload["error"].(map[string]interface{})["code"])

	payload, err = callTool(t, NewSessionStatusTool(m), `null`)
	require.NoError(t, err)
	assert.Equal(t, "active", payload["state"])
	assert.Equal(t, id, payload["sessionId"])

	payload, err = callTool(t, NewStopSessionTool(m), `{}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true, "stopped": true}, payload)

	payload, err = callTool(t, NewStopSessionTool(m), ``)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"ok": true, "stopped": false}, payload)
}
