// Package driver compiles batches of source files into listing files.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"mipscc/pkg/compiler"
	"mipscc/pkg/sim"
	"mipscc/pkg/utils"
)

// ErrCompileFailed is returned when at least one file did not compile or run.
var ErrCompileFailed = errors.New("compilation failed")

// FileResult is the outcome for one source file.
type FileResult struct {
	Path    string
	Output  string // listing path, set when the listing was written
	Result  *compiler.Result
	Machine *sim.Machine // set when the program was run
	Err     error        // I/O or simulator error
}

// Failed reports whether the file did not compile or run cleanly.
func (fr *FileResult) Failed() bool {
	return fr.Err != nil || fr.Result == nil || fr.Result.Status != compiler.StatusOK
}

// CompileFiles compiles paths with at most cfg.Workers files in flight. Every
// file gets its own compilation, so one failure does not stop the others.
// Results are returned in input order.
func CompileFiles(ctx context.Context, cfg Config, paths []string) ([]FileResult, error) {
	cfg = cfg.normalized()
	if cfg.OutDir != "" {
		if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = compileFile(cfg, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	failed := 0
	for i := range results {
		if results[i].Failed() {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%d of %d files: %w", failed, len(paths), ErrCompileFailed)
	}
	return results, nil
}

func compileFile(cfg Config, path string) FileResult {
	fr := FileResult{Path: path}
	src, err := os.ReadFile(path)
	if err != nil {
		fr.Err = err
		return fr
	}

	fr.Result = compiler.Compile(string(src))
	if fr.Result.Status != compiler.StatusOK {
		if cfg.Verbose {
			log.Printf("%s: %s", path, fr.Result.Status)
		}
		return fr
	}

	out, err := utils.OutputPath(path, cfg.OutDir, cfg.Suffix)
	if err != nil {
		fr.Err = err
		return fr
	}
	if err := os.WriteFile(out, []byte(fr.Result.String()), 0o644); err != nil {
		fr.Err = fmt.Errorf("write listing: %w", err)
		return fr
	}
	fr.Output = out
	if cfg.Verbose {
		log.Printf("compiled %s -> %s (%d instructions)", path, out, len(fr.Result.Listing.Words()))
	}

	if !cfg.Run {
		return fr
	}
	m, err := sim.Execute(fr.Result.Listing.Words())
	fr.Machine = m
	if err != nil {
		fr.Err = fmt.Errorf("run: %w", err)
		return fr
	}
	if cfg.Snapshot {
		snap := strings.TrimSuffix(out, filepath.Ext(out)) + ".state.json"
		if err := writeSnapshot(snap, m); err != nil {
			fr.Err = err
			return fr
		}
		if cfg.Verbose {
			log.Printf("wrote %s", snap)
		}
	}
	return fr
}

func writeSnapshot(path string, m *sim.Machine) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.WriteSnapshot(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PrintDiagnostics writes every diagnostic of fr as "file:line: severity:
// message", followed by any I/O or run error.
func PrintDiagnostics(w io.Writer, fr *FileResult) {
	if fr.Result != nil {
		for _, d := range fr.Result.Diagnostics {
			fmt.Fprintf(w, "%s:%d: %s: %s\n", fr.Path, d.Line, d.Severity, d.Message)
		}
	}
	if fr.Err != nil {
		fmt.Fprintf(w, "%s: %v\n", fr.Path, fr.Err)
	}
}

// PrintValues writes the final value of every variable after a run, in
// declaration order.
func PrintValues(w io.Writer, fr *FileResult) {
	if fr.Machine == nil || fr.Result == nil {
		return
	}
	for _, sym := range fr.Result.Symbols {
		if sym.Type == compiler.TypeFloat {
			v, err := fr.Machine.Float(sym.Offset)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "%s: %s %s = %g\n", fr.Path, sym.Type, sym.Name, v)
			continue
		}
		v, err := fr.Machine.Int(sym.Offset)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s: %s %s = %d\n", fr.Path, sym.Type, sym.Name, v)
	}
}
