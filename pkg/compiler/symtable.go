package compiler

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxSymbols bounds how many variables one program may declare.
	MaxSymbols = 100
	// SlotSize is the memory stride between consecutive variables.
	SlotSize = 8
)

var (
	ErrAlreadyDeclared = errors.New("already declared")
	ErrTooManySymbols  = errors.New("too many variables")
)

// Symbol is the compile-time record of one declared variable.
type Symbol struct {
	Name        string
	Type        Type
	Offset      int // byte offset from address 0
	Line        int // declaration line
	Initialized bool
	Used        bool
}

// SymbolTable is the single flat scope of a program. Offsets are handed out
// in declaration order in SlotSize steps and never reused.
type SymbolTable struct {
	symbols []*Symbol
	index   map[string]*Symbol
	next    int
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]*Symbol)}
}

// Declare adds name with the next free offset. It fails with
// ErrAlreadyDeclared or ErrTooManySymbols and leaves the table unchanged.
func (s *SymbolTable) Declare(name string, typ Type, line int) (*Symbol, error) {
	if _, ok := s.index[name]; ok {
		return nil, fmt.Errorf("%s: %w", name, ErrAlreadyDeclared)
	}
	if len(s.symbols) >= MaxSymbols {
		return nil, fmt.Errorf("%s: %w", name, ErrTooManySymbols)
	}
	sym := &Symbol{Name: name, Type: typ, Offset: s.next, Line: line}
	s.next += SlotSize
	s.symbols = append(s.symbols, sym)
	s.index[name] = sym
	return sym, nil
}

// Lookup returns the symbol and whether it was found.
func (s *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := s.index[name]
	return sym, ok
}

func (s *SymbolTable) MarkUsed(name string) {
	if sym, ok := s.index[name]; ok {
		sym.Used = true
	}
}

func (s *SymbolTable) MarkInitialized(name string) {
	if sym, ok := s.index[name]; ok {
		sym.Initialized = true
	}
}

func (s *SymbolTable) Len() int { return len(s.symbols) }

// Symbols returns copies of every symbol in declaration order.
func (s *SymbolTable) Symbols() []Symbol {
	out := make([]Symbol, len(s.symbols))
	for i, sym := range s.symbols {
		out[i] = *sym
	}
	return out
}

// String returns a dump of the table in declaration order.
func (s *SymbolTable) String() string {
	return FormatSymbols(s.Symbols())
}

// FormatSymbols renders symbols one per line with type, offset and flags.
func FormatSymbols(symbols []Symbol) string {
	if len(symbols) == 0 {
		return "Symbols: (empty)\n"
	}
	var sb strings.Builder
	sb.WriteString("Symbols:\n")
	for _, sym := range symbols {
		fmt.Fprintf(&sb, "  %-20s  %-5s  Offset: %3d  (Initialized: %v, Used: %v)\n",
			sym.Name, sym.Type, sym.Offset, sym.Initialized, sym.Used)
	}
	return sb.String()
}
