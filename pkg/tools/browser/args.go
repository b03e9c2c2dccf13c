package browser

import (
	"strings"
	"time"

	"github.com/entrhq/domscope/pkg/errs"
)

var (
	waitUntilStates = []string{"load", "domcontentloaded", "networkidle", "commit"}
	selectorStates  = []string{"attached", "detached", "visible", "hidden"}
	mouseButtons    = []string{"left", "right", "middle"}
)

// timeoutArg converts an optional millisecond argument. Zero means "use
// the configured default".
func timeoutArg(ms *int) (time.Duration, error) {
	if ms == nil {
		return 0, nil
	}
	if *ms <= 0 {
		return 0, errs.New(errs.CodeInvalidArgument, "timeoutMs must be positive, got %d", *ms)
	}
	return time.Duration(*ms) * time.Millisecond, nil
}

// oneOf checks an optional enumerated argument.
func oneOf(name, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errs.New(errs.CodeInvalidArgument, "%s must be one of %s, got %q", name, strings.Join(allowed, ", "), value)
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errs.New(errs.CodeInvalidArgument, "%s is required", name)
	}
	return nil
}

func timeoutSchema(what string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     1,
		"description": "Timeout in milliseconds. Defaults to the configured " + what + " timeout.",
	}
}

func enumSchema(description string, values []string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        values,
		"description": description,
	}
}
