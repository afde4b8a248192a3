// Package reload implements live reloading of marked HL constructs: a
// running program swaps the body of a marked loop, function, or class for a
// freshly re-read version of its own source file, preserving the enclosing
// scope's state.
package reload

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
)

// FailureKind classifies what went wrong during a reload cycle.
type FailureKind int

const (
	// ParseFailure means the re-read source did not parse.
	ParseFailure FailureKind = iota
	// ConstructNotFound means the marked construct is gone from the source.
	ConstructNotFound
	// AmbiguousConstruct means more than one construct matched.
	AmbiguousConstruct
	// ExecutionFailure means the reloaded code raised while running.
	ExecutionFailure
)

func (k FailureKind) String() string {
	switch k {
	case ParseFailure:
		return "parse failure"
	case ConstructNotFound:
		return "construct not found"
	case AmbiguousConstruct:
		return "ambiguous construct"
	case ExecutionFailure:
		return "execution failure"
	default:
		return "unknown failure"
	}
}

// Failure describes one recoverable reload failure.
type Failure struct {
	Kind   FailureKind
	Path   string // real source path
	Origin string // synthetic origin of the failing unit
	Err    error
}

// Decision is what a policy wants done about a failure.
type Decision int

const (
	// Retry re-reads the source and tries the same step again.
	Retry Decision = iota
	// Skip abandons the current step and moves on.
	Skip
	// Propagate aborts, surfacing the failure to the caller.
	Propagate
)

// Policy decides how to recover from reload failures. The engine blocks on
// Decide, so an interactive policy may take as long as the developer needs.
type Policy interface {
	Decide(f Failure) Decision
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(f Failure) Decision

// Decide calls fn.
func (fn PolicyFunc) Decide(f Failure) Decision { return fn(f) }

// FprintFailure writes the standard failure report: the depth annotation,
// the error with synthetic origins rewritten to the real path, and the
// recovery hint.
func FprintFailure(w io.Writer, f Failure) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Origin != "" {
		msg = strings.ReplaceAll(msg, f.Origin, f.Path)
	}
	fmt.Fprintf(w, "%s in %s (reload depth %d)\n%s\n", f.Kind, f.Path, Depth(f.Origin), msg)
	fmt.Fprintf(w, "Edit %s and press return to retry, 'k' to skip, 'e' to raise.\n", f.Path)
}

func decodeAnswer(line string) Decision {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "k":
		return Skip
	case "e":
		return Propagate
	default:
		return Retry
	}
}

// Console is the plain failure-recovery console: it reports each failure on
// Out and blocks for a one-line answer on In. Suited to tests and piped
// stdin; for a tty prefer InteractiveConsole.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console reading answers from in and reporting to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Decide reports the failure and blocks until one answer line arrives.
// A closed input stream propagates, since nobody is there to retry.
func (c *Console) Decide(f Failure) Decision {
	FprintFailure(c.out, f)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return Propagate
	}
	return decodeAnswer(line)
}

// InteractiveConsole is the liner-backed console for attended terminal runs.
type InteractiveConsole struct {
	state *liner.State
	out   io.Writer
}

// NewInteractiveConsole creates a console prompting on the controlling
// terminal. Close it to restore the terminal state.
func NewInteractiveConsole() *InteractiveConsole {
	s := liner.NewLiner()
	s.SetCtrlCAborts(true)
	return &InteractiveConsole{state: s, out: os.Stderr}
}

// Decide reports the failure and prompts for one answer.
func (c *InteractiveConsole) Decide(f Failure) Decision {
	FprintFailure(c.out, f)
	line, err := c.state.Prompt("")
	if err != nil {
		// Ctrl-C or EOF: treat as a raise.
		return Propagate
	}
	return decodeAnswer(line)
}

// Close restores the terminal.
func (c *InteractiveConsole) Close() error {
	return c.state.Close()
}

// AutoRetryPolicy retries every failure after a fixed delay, reporting each
// one. Meant for unattended runs where the source is being edited elsewhere.
type AutoRetryPolicy struct {
	Out   io.Writer
	Delay time.Duration
}

// Decide reports the failure, waits, and retries.
func (p *AutoRetryPolicy) Decide(f Failure) Decision {
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	FprintFailure(out, f)
	if p.Delay > 0 {
		time.Sleep(p.Delay)
	}
	return Retry
}
