package conformance

import (
	"fmt"
	"math"
	"strings"

	"mipscc/pkg/asm"
	"mipscc/pkg/compiler"
	"mipscc/pkg/sim"
)

// Result is the outcome of running a single case.
type Result struct {
	Case       LoadedCase
	Passed     bool
	Skipped    bool
	SkipReason string
	Error      error
}

// Run compiles the case's source and checks every expectation in turn. The
// program is executed only when values are expected.
func Run(lc LoadedCase) Result {
	if skipped, reason := lc.Case.IsSkipped(); skipped {
		return Result{Case: lc, Skipped: true, SkipReason: reason}
	}
	if err := check(lc.Case); err != nil {
		return Result{Case: lc, Error: err}
	}
	return Result{Case: lc, Passed: true}
}

// RunAll runs every case in order.
func RunAll(cases []LoadedCase) []Result {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		results = append(results, Run(c))
	}
	return results
}

func check(c Case) error {
	expect := c.Expect
	res := compiler.Compile(c.Source)

	want := expect.Status
	if want == "" {
		want = compiler.StatusOK.String()
	}
	if got := res.Status.String(); got != want {
		return fmt.Errorf("status %q, want %q: %v", got, want, res.Diagnostics)
	}

	if err := containsAll("error", messages(res.Errors()), expect.Errors); err != nil {
		return err
	}
	warnings := messages(res.Warnings())
	if err := containsAll("warning", warnings, expect.Warnings); err != nil {
		return err
	}
	if expect.NoWarnings && len(warnings) > 0 {
		return fmt.Errorf("unexpected warnings %q", warnings)
	}

	listing := res.String()
	for _, sub := range expect.Listing {
		if !strings.Contains(listing, sub) {
			return fmt.Errorf("listing does not contain %q:\n%s", sub, listing)
		}
	}
	if expect.Instructions != nil {
		if got := len(res.Listing.Words()); got != *expect.Instructions {
			return fmt.Errorf("%d instructions, want %d", got, *expect.Instructions)
		}
	}
	if res.Status != compiler.StatusOK {
		return nil
	}
	if err := asm.Verify(listing); err != nil {
		return fmt.Errorf("listing does not verify: %w", err)
	}
	if len(expect.Values) == 0 {
		return nil
	}
	return checkValues(res, expect.Values)
}

func checkValues(res *compiler.Result, values map[string]interface{}) error {
	m, err := sim.Execute(res.Listing.Words())
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	syms := make(map[string]compiler.Symbol, len(res.Symbols))
	for _, s := range res.Symbols {
		syms[s.Name] = s
	}
	for name, want := range values {
		sym, ok := syms[name]
		if !ok {
			return fmt.Errorf("no variable %q", name)
		}
		if sym.Type == compiler.TypeFloat {
			got, err := m.Float(sym.Offset)
			if err != nil {
				return err
			}
			w, ok := toFloat(want)
			if !ok {
				return fmt.Errorf("%s: expected value %v is not a number", name, want)
			}
			if math.Abs(got-w) > 1e-9 {
				return fmt.Errorf("%s = %v, want %v", name, got, w)
			}
			continue
		}
		got, err := m.Int(sym.Offset)
		if err != nil {
			return err
		}
		w, ok := want.(int)
		if !ok {
			return fmt.Errorf("%s: expected value %v is not an integer", name, want)
		}
		if got != int64(w) {
			return fmt.Errorf("%s = %d, want %d", name, got, w)
		}
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func messages(diags []compiler.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Message
	}
	return out
}

func containsAll(kind string, got, want []string) error {
	for _, w := range want {
		found := false
		for _, g := range got {
			if strings.Contains(g, w) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no %s containing %q in %q", kind, w, got)
		}
	}
	return nil
}

// SummaryStats computes statistics from results.
type SummaryStats struct {
	Total, Passed, Failed, Skipped int
}

func ComputeStats(results []Result) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			stats.Skipped++
		case r.Passed:
			stats.Passed++
		default:
			stats.Failed++
		}
	}
	return stats
}

// FormatStats returns a human-readable summary.
func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}
