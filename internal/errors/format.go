package errors

import (
	"fmt"
	"strings"
)

// Format renders an error for terminal output. Coded errors get their
// detail and suggestion on separate lines; anything else formats as-is.
func Format(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString(e.Error())

	if e.Detail != "" {
		fmt.Fprintf(&sb, "\n  %s", e.Detail)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&sb, "\n  cause: %s", e.Wrapped)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "\n  hint: %s", e.Suggestion)
	}
	return sb.String()
}
