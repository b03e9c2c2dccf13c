package cascade

import (
	"sort"
	"strings"

	"github.com/entrhq/domscope/pkg/errs"
)

var edges = []string{"top", "right", "bottom", "left"}

func perEdge(format string) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = strings.Replace(format, "%", e, 1)
	}
	return out
}

// shorthands maps each supported shorthand to the longhands the style
// engine reports in its place.
var shorthands = map[string][]string{
	"margin":  perEdge("margin-%"),
	"padding": perEdge("padding-%"),
	"border": concat(
		perEdge("border-%-width"),
		perEdge("border-%-style"),
		perEdge("border-%-color"),
	),
	"border-top":    {"border-top-width", "border-top-style", "border-top-color"},
	"border-right":  {"border-right-width", "border-right-style", "border-right-color"},
	"border-bottom": {"border-bottom-width", "border-bottom-style", "border-bottom-color"},
	"border-left":   {"border-left-width", "border-left-style", "border-left-color"},
	"border-width":  perEdge("border-%-width"),
	"border-style":  perEdge("border-%-style"),
	"border-color":  perEdge("border-%-color"),
	"border-radius": {
		"border-top-left-radius", "border-top-right-radius",
		"border-bottom-right-radius", "border-bottom-left-radius",
	},
	"background": {
		"background-image", "background-position-x", "background-position-y",
		"background-size", "background-repeat", "background-attachment",
		"background-origin", "background-clip", "background-color",
	},
	"font": {
		"font-style", "font-variant", "font-weight", "font-stretch",
		"font-size", "line-height", "font-family",
	},
	"flex": {"flex-grow", "flex-shrink", "flex-basis"},
}

// owners is the reverse of shorthands: longhand -> shorthands covering it.
var owners = func() map[string][]string {
	m := make(map[string][]string)
	for short, longs := range shorthands {
		for _, l := range longs {
			m[l] = append(m[l], short)
		}
	}
	for l := range m {
		sort.Strings(m[l])
	}
	return m
}()

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// NormalizeProperty lowercases and trims a property name.
func NormalizeProperty(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsShorthand reports whether name is a shorthand this package rejects.
func IsShorthand(name string) bool {
	_, ok := shorthands[NormalizeProperty(name)]
	return ok
}

// Longhands returns the longhands of a shorthand.
func Longhands(name string) ([]string, bool) {
	l, ok := shorthands[NormalizeProperty(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), l...), true
}

// Shorthands returns every known shorthand, sorted.
func Shorthands() []string {
	out := make([]string, 0, len(shorthands))
	for s := range shorthands {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ShorthandsOf returns the shorthands that expand to longhand.
func ShorthandsOf(longhand string) []string {
	return owners[NormalizeProperty(longhand)]
}

// CheckProperty rejects empty names and shorthands. The error for a
// shorthand lists the longhands to query instead.
func CheckProperty(name string) error {
	n := NormalizeProperty(name)
	if n == "" {
		return errs.New(errs.CodeInvalidArgument, "property is required")
	}
	if longs, ok := Longhands(n); ok {
		return errs.New(errs.CodeShorthandUnsupported,
			"%q is a shorthand property; query one of its longhands instead", n).
			With("property", n).
			With("longhands", longs)
	}
	return nil
}
