package asm

import (
	"sort"
	"strings"
)

// Format is the bit-field family an instruction word belongs to.
type Format int

const (
	FormatI     Format = iota // opcode | rs | rt | imm16
	FormatR                   // SPECIAL | rs | rt | rd | sa | func
	FormatCOP1                // COP1 | fmt | ft | fs | fd | func
	FormatShift               // SPECIAL | 0 | rt | rd | sa | func
)

var formatNames = [...]string{
	FormatI:     "I",
	FormatR:     "R",
	FormatCOP1:  "COP1",
	FormatShift: "shift",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "Format(?)"
}

// Shape is the textual operand layout of a mnemonic. It decides which
// encoder fields the operands land in.
type Shape int

const (
	ShapeRegRegImm Shape = iota // rt, rs, imm
	ShapeRegImm                 // rt, imm
	ShapeRegMem                 // rt, off(rs)
	ShapeFloatMem               // ft, off(rs)
	ShapeRegRegReg              // rd, rs, rt
	ShapeRegReg                 // rs, rt
	ShapeReg                    // rd
	ShapeShift                  // rd, rt, sa
	ShapeFloat3                 // fd, fs, ft
	ShapeFloat2                 // fd, fs
	ShapeMove                   // rt, fs
)

// Descriptor is one row of the instruction table.
type Descriptor struct {
	Mnemonic string
	Opcode   uint32
	Format   Format
	Sub      uint32 // COP1 fmt/sub field, or the sa slot for dmulu/ddivu
	Func     uint32
	Shape    Shape
}

const (
	opSpecial = 0b000000
	opCOP1    = 0b010001

	fmtDouble = 0b10001
	fmtLong   = 0b10101
	fmtWord   = 0b10100
)

var table = map[string]Descriptor{
	"daddiu": {Opcode: 0b011001, Format: FormatI, Shape: ShapeRegRegImm},
	"ori":    {Opcode: 0b001101, Format: FormatI, Shape: ShapeRegRegImm},
	"lui":    {Opcode: 0b001111, Format: FormatI, Shape: ShapeRegImm},
	"lb":     {Opcode: 0b100000, Format: FormatI, Shape: ShapeRegMem},
	"sb":     {Opcode: 0b101000, Format: FormatI, Shape: ShapeRegMem},
	"l.d":    {Opcode: 0b110101, Format: FormatI, Shape: ShapeFloatMem},
	"s.d":    {Opcode: 0b111101, Format: FormatI, Shape: ShapeFloatMem},

	"daddu": {Opcode: opSpecial, Format: FormatR, Func: 0b101101, Shape: ShapeRegRegReg},
	"dsubu": {Opcode: opSpecial, Format: FormatR, Func: 0b101111, Shape: ShapeRegRegReg},
	"or":    {Opcode: opSpecial, Format: FormatR, Func: 0b100101, Shape: ShapeRegRegReg},
	"dmulu": {Opcode: opSpecial, Format: FormatR, Sub: 0b00010, Func: 0b011101, Shape: ShapeRegReg},
	"ddivu": {Opcode: opSpecial, Format: FormatR, Sub: 0b00010, Func: 0b011111, Shape: ShapeRegReg},
	"mflo":  {Opcode: opSpecial, Format: FormatR, Func: 0b010010, Shape: ShapeReg},

	"dsll": {Opcode: opSpecial, Format: FormatShift, Func: 0b111000, Shape: ShapeShift},

	"add.d":     {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtDouble, Func: 0b000000, Shape: ShapeFloat3},
	"sub.d":     {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtDouble, Func: 0b000001, Shape: ShapeFloat3},
	"mul.d":     {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtDouble, Func: 0b000010, Shape: ShapeFloat3},
	"div.d":     {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtDouble, Func: 0b000011, Shape: ShapeFloat3},
	"neg.d":     {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtDouble, Func: 0b000111, Shape: ShapeFloat2},
	"trunc.l.d": {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtDouble, Func: 0b001001, Shape: ShapeFloat2},
	"cvt.d.w":   {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtWord, Func: 0b100001, Shape: ShapeFloat2},
	"cvt.d.l":   {Opcode: opCOP1, Format: FormatCOP1, Sub: fmtLong, Func: 0b100001, Shape: ShapeFloat2},

	"mfc1":  {Opcode: opCOP1, Format: FormatCOP1, Sub: 0b00000, Shape: ShapeMove},
	"dmfc1": {Opcode: opCOP1, Format: FormatCOP1, Sub: 0b00001, Shape: ShapeMove},
	"mtc1":  {Opcode: opCOP1, Format: FormatCOP1, Sub: 0b00100, Shape: ShapeMove},
	"dmtc1": {Opcode: opCOP1, Format: FormatCOP1, Sub: 0b00101, Shape: ShapeMove},
}

// Lookup returns the descriptor for mnemonic. Mnemonics are case-insensitive.
func Lookup(mnemonic string) (Descriptor, bool) {
	name := strings.ToLower(mnemonic)
	d, ok := table[name]
	if ok {
		d.Mnemonic = name
	}
	return d, ok
}

// Mnemonics returns every mnemonic the table knows, sorted.
func Mnemonics() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
