// Command console assembles a listing file and runs it on the simulator,
// optionally tracing every instruction.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"mipscc/pkg/asm"
	"mipscc/pkg/sim"
	"mipscc/pkg/utils"
)

func main() {
	trace := flag.Bool("trace", false, "print every instruction as it executes")
	verify := flag.Bool("verify", true, "check binary annotations before running")
	snapshot := flag.Bool("snapshot", false, "print the final machine state as JSON")
	dump := flag.Int("dump", 0, "print this many bytes of data memory after the run")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("console: ")

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: console [flags] <listing.s>")
		flag.Usage()
		os.Exit(2)
	}

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to resolve path: %v", err)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read listing: %v", err)
	}
	listing := string(data)

	if *verify {
		if err := asm.Verify(listing); err != nil {
			log.Fatalf("Listing does not verify: %v", err)
		}
	}
	words, sourceMap, err := asm.Assemble(listing)
	if err != nil {
		log.Fatalf("Assembly failed: %v", err)
	}

	lines := strings.Split(listing, "\n")
	m := sim.New()
	m.Load(words)
	for !m.Halted {
		pc := m.PC
		if err := m.Step(); err != nil {
			if m.Halted && m.PC >= len(words) {
				break
			}
			log.Fatalf("Run failed: %v", err)
		}
		if *trace {
			lineNo := sourceMap[uint32(pc*asm.WordSize)]
			fmt.Printf("%4d  %-40s\n", pc, strings.TrimSpace(stripAnnotation(lines[lineNo-1])))
		}
	}

	fmt.Printf("run complete (%s): %d instructions\n", fullPath, m.Steps)
	if *dump > 0 {
		printMemory(m, *dump)
	}
	if *snapshot {
		if err := m.WriteSnapshot(os.Stdout); err != nil {
			log.Fatalf("Snapshot failed: %v", err)
		}
	}
}

func stripAnnotation(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

// printMemory prints n bytes of data memory, one 8-byte slot per row.
func printMemory(m *sim.Machine, n int) {
	if n > sim.MemorySize {
		n = sim.MemorySize
	}
	for off := 0; off < n; off += 8 {
		end := off + 8
		if end > n {
			end = n
		}
		fmt.Printf("%4d: % x\n", off, m.Memory[off:end])
	}
}
