package query

import (
	"context"
	"strings"

	"github.com/entrhq/domscope/pkg/cdp"
	"github.com/entrhq/domscope/pkg/errs"
)

// DefaultComputedProperties are the layout and typography longhands
// reported when no explicit list is given.
var DefaultComputedProperties = []string{
	"display", "position", "top", "right", "bottom", "left",
	"width", "height", "min-width", "min-height", "max-width", "max-height",
	"margin-top", "margin-right", "margin-bottom", "margin-left",
	"padding-top", "padding-right", "padding-bottom", "padding-left",
	"box-sizing", "overflow-x", "overflow-y", "z-index",
	"flex-direction", "justify-content", "align-items", "row-gap", "column-gap",
	"color", "background-color", "font-family", "font-size", "font-weight",
	"line-height", "text-align", "opacity", "visibility",
}

// ExpandProperties turns a requested property list into a set.
func ExpandProperties(properties []string) map[string]struct{} {
	set := make(map[string]struct{})
	expand := len(properties) == 0
	for _, p := range properties {
		p = strings.ToLower(strings.TrimSpace(p))
		switch p {
		case "":
		case "*":
			expand = true
		default:
			set[p] = struct{}{}
		}
	}
	if expand {
		for _, p := range DefaultComputedProperties {
			set[p] = struct{}{}
		}
	}
	return set
}

// Include selects the optional parts of an element description.
type Include struct {
	Attributes bool
	Role       bool
	BoxModel   bool
	Computed   bool
}

// IncludeAll is used when the caller does not choose.
var IncludeAll = Include{Attributes: true, Role: true, BoxModel: true, Computed: true}

// ParseInclude reads include names: attributes, role, boxModel, computed.
func ParseInclude(names []string) (Include, error) {
	if len(names) == 0 {
		return IncludeAll, nil
	}
	var inc Include
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "attributes":
			inc.Attributes = true
		case "role":
			inc.Role = true
		case "boxmodel", "box_model", "box-model":
			inc.BoxModel = true
		case "computed":
			inc.Computed = true
		default:
			return Include{}, errs.New(errs.CodeInvalidArgument,
				"unknown include %q (want attributes, role, boxModel or computed)", n)
		}
	}
	return inc, nil
}

// Element describes one matched node. Optional fields are omitted when not
// requested or not available for that node.
type Element struct {
	Exists     bool              `json:"exists"`
	NodeName   string            `json:"nodeName,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Role       string            `json:"role,omitempty"`
	BoxModel   *BoxModel         `json:"boxModel,omitempty"`
	Computed   map[string]string `json:"computed,omitempty"`
}

// Describe gathers the requested parts for id. Each part is fetched
// independently; a part that fails is left out.
func (l *Layer) Describe(ctx context.Context, id cdp.NodeID, inc Include, properties []string) Element {
	el := Element{Exists: true}
	if name, ok := l.NodeName(ctx, id); ok {
		el.NodeName = name
	}

	var attrs map[string]string
	if inc.Attributes || inc.Role {
		attrs, _ = l.Attributes(ctx, id)
	}
	if inc.Attributes {
		el.Attributes = attrs
	}
	if inc.Role {
		if role, ok := InferRole(el.NodeName, attrs); ok {
			el.Role = role
		}
	}
	if inc.BoxModel {
		if bm, ok := l.BoxModel(ctx, id); ok {
			el.BoxModel = bm
		}
	}
	if inc.Computed {
		if computed, ok := l.Computed(ctx, id, properties); ok {
			el.Computed = computed
		}
	}
	return el
}
