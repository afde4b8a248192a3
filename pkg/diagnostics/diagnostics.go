// Package diagnostics defines HL diagnostic types for parse/validation/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/hotloop/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex             = "E_LEX"
	EParse           = "E_PARSE"
	EUnbound         = "E_UNBOUND"
	EType            = "E_TYPE"
	EAttr            = "E_ATTR"
	EIndex           = "E_INDEX"
	ECall            = "E_CALL"
	EIO              = "E_IO"
	EForNotIterable  = "E_FOR_NOT_ITERABLE"
	EUnpack          = "E_UNPACK"
	EDivZero         = "E_DIV_ZERO"
	EReloadNotFound  = "E_RELOAD_NOT_FOUND"
	EReloadAmbiguous = "E_RELOAD_AMBIGUOUS"
	EReloadKind      = "E_RELOAD_KIND"
	EReloadNoTarget  = "E_RELOAD_NO_TARGET"
	EMarkerPosition  = "E_MARKER_POSITION"
	EDupMarkedLoop   = "E_DUP_MARKED_LOOP"
	ENestedDecorated = "E_NESTED_DECORATED"
)

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
