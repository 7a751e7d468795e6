package compiler

import (
	"errors"
	"fmt"
)

// Status is the outcome of a compilation, named after the phase that
// stopped it.
type Status int

const (
	StatusOK Status = iota
	StatusLexicalError
	StatusSyntaxError
	StatusSemanticError
	StatusCodegenError
)

var statusNames = [...]string{
	StatusOK:            "ok",
	StatusLexicalError:  "lexical error",
	StatusSyntaxError:   "syntax error",
	StatusSemanticError: "semantic error",
	StatusCodegenError:  "codegen error",
}

func (s Status) String() string {
	if int(s) >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

var phaseStatus = map[Phase]Status{
	PhaseLex:      StatusLexicalError,
	PhaseParse:    StatusSyntaxError,
	PhaseSemantic: StatusSemanticError,
	PhaseCodegen:  StatusCodegenError,
}

// Result is everything one compilation produced. Listing is empty unless
// Status is StatusOK.
type Result struct {
	Status      Status
	Diagnostics []Diagnostic
	Listing     Listing
	Symbols     []Symbol
	Tokens      []Token
	Program     *Program
}

// Errors returns the error diagnostics.
func (r *Result) Errors() []Diagnostic { return r.filter(SeverityError) }

// Warnings returns the warning diagnostics.
func (r *Result) Warnings() []Diagnostic { return r.filter(SeverityWarning) }

func (r *Result) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// Err returns a *CompileError when compilation failed, or nil.
func (r *Result) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return &CompileError{Status: r.Status, Diagnostics: r.Errors()}
}

// String returns the rendered listing.
func (r *Result) String() string { return r.Listing.String() }

// CompileError summarises a failed compilation.
type CompileError struct {
	Status      Status
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return e.Status.String()
	case 1:
		return fmt.Sprintf("%s: %s", e.Status, e.Diagnostics[0])
	default:
		return fmt.Sprintf("%s: %s (and %d more)", e.Status, e.Diagnostics[0], len(e.Diagnostics)-1)
	}
}

// compilationContext owns all state of one Compile call.
type compilationContext struct {
	diags Diagnostics
	syms  *SymbolTable
	regs  *RegisterPool
}

func newCompilationContext() *compilationContext {
	return &compilationContext{syms: NewSymbolTable(), regs: NewRegisterPool()}
}

// failed reports whether any error has been recorded so far.
func (c *compilationContext) failed() bool { return c.diags.ErrorCount() > 0 }

// status maps the first recorded error to its phase.
func (c *compilationContext) status() Status {
	if phase, ok := c.diags.FirstErrorPhase(); ok {
		return phaseStatus[phase]
	}
	return StatusOK
}

// Compile runs src through lexing, parsing, semantic checking and code
// generation. Each phase runs only if no earlier phase recorded an error.
// Compile keeps no state between calls and is safe for concurrent use.
func Compile(src string) *Result {
	ctx := newCompilationContext()
	res := &Result{}
	defer func() {
		res.Status = ctx.status()
		res.Diagnostics = ctx.diags.List()
		res.Symbols = ctx.syms.Symbols()
	}()

	res.Tokens = Lex(src, &ctx.diags)
	if ctx.failed() {
		return res
	}

	res.Program = Parse(res.Tokens, ctx.syms, &ctx.diags)
	if ctx.failed() {
		return res
	}

	Check(res.Program, ctx.syms, &ctx.diags)
	if ctx.failed() {
		return res
	}

	listing, err := Generate(res.Program, ctx.syms, ctx.regs)
	if err != nil {
		line := 0
		var cgErr *CodegenError
		if errors.As(err, &cgErr) {
			line = cgErr.Line
		}
		if errors.Is(err, ErrRegistersExhausted) {
			ctx.diags.Errorf(PhaseCodegen, line, "Register pool exhausted")
		} else {
			ctx.diags.Errorf(PhaseCodegen, line, "%v", errors.Unwrap(err))
		}
		return res
	}
	res.Listing = listing
	return res
}
