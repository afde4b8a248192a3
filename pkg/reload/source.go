package reload

import (
	"context"
	"os"
	"time"

	"github.com/thomasrohde/hotloop/pkg/ast"
	"github.com/thomasrohde/hotloop/pkg/diagnostics"
	"github.com/thomasrohde/hotloop/pkg/interp"
)

// loadSource re-reads path until it is non-empty. Editors briefly truncate
// files mid-save, so an empty read means try again shortly.
func loadSource(ctx context.Context, path string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if len(data) > 0 {
			return string(data) + "\n", nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// DiagError carries parse diagnostics across the failure policy boundary.
type DiagError struct {
	Diags []diagnostics.Diagnostic
}

func (e *DiagError) Error() string {
	return diagnostics.FormatDiagnostics(e.Diags, true)
}

// parseUntilSuccessful re-reads and re-parses path until the source parses,
// consulting the policy on every parse failure. Only Propagate gets out; a
// parse failure cannot be skipped, since there is nothing to run instead.
// The returned program's spans carry origin as their file.
func (e *Engine) parseUntilSuccessful(ctx context.Context, path, origin string) (*ast.Program, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := loadSource(ctx, path)
		if err != nil {
			return nil, &interp.RuntimeError{Code: diagnostics.EIO, Message: err.Error()}
		}
		prog, diags := e.parse(src, origin)
		if prog != nil {
			return prog, nil
		}
		derr := &DiagError{Diags: diags}
		f := Failure{Kind: ParseFailure, Path: path, Origin: origin, Err: derr}
		if e.policy.Decide(f) == Propagate {
			return nil, derr
		}
	}
}
