package query

import "strings"

var tagRoles = map[string]string{
	"a":        "link",
	"area":     "link",
	"article":  "article",
	"aside":    "complementary",
	"button":   "button",
	"dialog":   "dialog",
	"footer":   "contentinfo",
	"form":     "form",
	"h1":       "heading",
	"h2":       "heading",
	"h3":       "heading",
	"h4":       "heading",
	"h5":       "heading",
	"h6":       "heading",
	"header":   "banner",
	"hr":       "separator",
	"img":      "img",
	"li":       "listitem",
	"main":     "main",
	"nav":      "navigation",
	"ol":       "list",
	"ul":       "list",
	"option":   "option",
	"progress": "progressbar",
	"section":  "region",
	"select":   "combobox",
	"table":    "table",
	"tbody":    "rowgroup",
	"thead":    "rowgroup",
	"tfoot":    "rowgroup",
	"td":       "cell",
	"th":       "columnheader",
	"tr":       "row",
	"textarea": "textbox",
}

var inputRoles = map[string]string{
	"":         "textbox",
	"text":     "textbox",
	"email":    "textbox",
	"tel":      "textbox",
	"url":      "textbox",
	"search":   "searchbox",
	"number":   "spinbutton",
	"range":    "slider",
	"checkbox": "checkbox",
	"radio":    "radio",
	"button":   "button",
	"submit":   "button",
	"reset":    "button",
	"image":    "button",
}

// InferRole returns the node's ARIA role: an explicit role attribute, or
// the implicit role of its tag.
func InferRole(nodeName string, attrs map[string]string) (string, bool) {
	if r := strings.TrimSpace(attrs["role"]); r != "" {
		return r, true
	}
	tag := strings.ToLower(nodeName)
	if tag == "input" {
		r, ok := inputRoles[strings.ToLower(strings.TrimSpace(attrs["type"]))]
		return r, ok
	}
	r, ok := tagRoles[tag]
	return r, ok
}
