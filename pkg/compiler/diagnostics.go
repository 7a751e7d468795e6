package compiler

import (
	"fmt"
	"strings"
)

// MaxDiagnostics bounds how many diagnostics one compilation records.
const MaxDiagnostics = 100

// Severity separates fatal findings from advisory ones.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Phase names the pipeline stage that produced a diagnostic.
type Phase int

const (
	PhaseLex Phase = iota
	PhaseParse
	PhaseSemantic
	PhaseCodegen
)

var phaseNames = [...]string{
	PhaseLex:      "lex",
	PhaseParse:    "parse",
	PhaseSemantic: "semantic",
	PhaseCodegen:  "codegen",
}

func (p Phase) String() string {
	if int(p) >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Diagnostic is one error or warning tied to a source line.
type Diagnostic struct {
	Line     int
	Severity Severity
	Phase    Phase
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Severity, d.Message)
}

// Diagnostics is the bounded, ordered diagnostic list shared by every phase
// of a single compilation. Counters keep running once the list is full so
// the phase gates still see every error.
type Diagnostics struct {
	list     []Diagnostic
	errors   int
	warnings int
	dropped  int
	first    Phase // phase of the first error
}

func (d *Diagnostics) add(diag Diagnostic) {
	if diag.Severity == SeverityError {
		if d.errors == 0 {
			d.first = diag.Phase
		}
		d.errors++
	} else {
		d.warnings++
	}
	if len(d.list) >= MaxDiagnostics {
		d.dropped++
		return
	}
	d.list = append(d.list, diag)
}

// Errorf records an error.
func (d *Diagnostics) Errorf(phase Phase, line int, format string, args ...any) {
	d.add(Diagnostic{Line: line, Severity: SeverityError, Phase: phase, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning.
func (d *Diagnostics) Warnf(phase Phase, line int, format string, args ...any) {
	d.add(Diagnostic{Line: line, Severity: SeverityWarning, Phase: phase, Message: fmt.Sprintf(format, args...)})
}

func (d *Diagnostics) ErrorCount() int   { return d.errors }
func (d *Diagnostics) WarningCount() int { return d.warnings }

// FirstErrorPhase returns the phase of the earliest error, if any.
func (d *Diagnostics) FirstErrorPhase() (Phase, bool) {
	return d.first, d.errors > 0
}

// Dropped reports how many diagnostics did not fit in the list.
func (d *Diagnostics) Dropped() int { return d.dropped }

// List returns a copy of the recorded diagnostics in order.
func (d *Diagnostics) List() []Diagnostic {
	out := make([]Diagnostic, len(d.list))
	copy(out, d.list)
	return out
}

func (d *Diagnostics) String() string {
	var sb strings.Builder
	for _, diag := range d.list {
		sb.WriteString(diag.String())
		sb.WriteByte('\n')
	}
	if d.dropped > 0 {
		fmt.Fprintf(&sb, "(%d more diagnostics not shown)\n", d.dropped)
	}
	return sb.String()
}
