// Command mipscc compiles source files into MIPS64 listings in which every
// instruction carries its binary encoding.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"mipscc/pkg/driver"
	"mipscc/pkg/utils"
)

func main() {
	cfg := driver.ConfigFromEnv()
	flag.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory for listings (default: next to each source) [MIPSCC_OUT_DIR]")
	flag.IntVar(&cfg.Workers, "j", cfg.Workers, "files compiled in parallel [MIPSCC_WORKERS]")
	flag.BoolVar(&cfg.Run, "run", cfg.Run, "run each listing on the simulator and print variable values [MIPSCC_RUN]")
	flag.BoolVar(&cfg.Snapshot, "snapshot", cfg.Snapshot, "with -run, write <name>.state.json [MIPSCC_SNAPSHOT]")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "log progress [MIPSCC_VERBOSE]")
	flag.StringVar(&cfg.Suffix, "suffix", cfg.Suffix, "listing file extension [MIPSCC_SUFFIX]")
	warnings := flag.Bool("warnings", true, "print warnings as well as errors")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("mipscc: ")

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "nothing to do: provide source files or directories")
		flag.Usage()
		os.Exit(2)
	}

	paths, err := utils.ExpandSources(flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("no %s files found", utils.SourceExt)
	}

	results, err := driver.CompileFiles(context.Background(), cfg, paths)
	for i := range results {
		fr := &results[i]
		if *warnings || fr.Failed() {
			driver.PrintDiagnostics(os.Stderr, fr)
		}
		if cfg.Run {
			driver.PrintValues(os.Stdout, fr)
		}
	}
	if err != nil {
		if errors.Is(err, driver.ErrCompileFailed) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		log.Fatalf("%v", err)
	}
	if cfg.Verbose {
		log.Printf("compiled %d files", len(paths))
	}
}
