package asm

import (
	"errors"
	"strings"
)

// ErrUnknownMnemonic is returned when a mnemonic has no table entry.
var ErrUnknownMnemonic = errors.New("unknown mnemonic")

const (
	regMask = 0x1F
	immMask = 0xFFFF
)

// Encode packs one instruction into its 32-bit word. The meaning of rs, rt
// and rd follows the mnemonic's Shape:
//
//	I      op:6 | rs:5 | rt:5 | imm:16          (imm is truncated to 16 bits)
//	R      op:6 | rs:5 | rt:5 | rd:5 | 0:5 | func:6
//	dmulu  op:6 | rs:5 | rt:5 | 0:5  | sub:5 | func:6
//	mflo   op:6 | 0:5  | 0:5  | rd:5 | 0:5 | func:6
//	shift  op:6 | 0:5  | rt:5 | rd:5 | imm&0x1F:5 | func:6
//	COP1   op:6 | sub:5 | rt:5 | rs:5 | rd:5 | func:6  (ft, fs, fd)
//	move   op:6 | sub:5 | rs:5 | rt:5 | 0:11          (GPR in rs, FPR in rt)
//
// An unknown mnemonic encodes as 0.
func Encode(mnemonic string, rs, rt, rd, imm int) uint32 {
	d, ok := Lookup(mnemonic)
	if !ok {
		return 0
	}
	return d.Encode(rs, rt, rd, imm)
}

// Encode packs the operand fields according to the descriptor.
func (d Descriptor) Encode(rs, rt, rd, imm int) uint32 {
	s := uint32(rs) & regMask
	t := uint32(rt) & regMask
	r := uint32(rd) & regMask
	op := d.Opcode << 26

	switch d.Shape {
	case ShapeRegRegImm, ShapeRegImm, ShapeRegMem, ShapeFloatMem:
		return op | s<<21 | t<<16 | uint32(imm)&immMask
	case ShapeRegRegReg:
		return op | s<<21 | t<<16 | r<<11 | d.Func
	case ShapeRegReg:
		return op | s<<21 | t<<16 | d.Sub<<6 | d.Func
	case ShapeReg:
		return op | r<<11 | d.Func
	case ShapeShift:
		return op | t<<16 | r<<11 | (uint32(imm)&regMask)<<6 | d.Func
	case ShapeFloat3:
		return op | d.Sub<<21 | t<<16 | s<<11 | r<<6 | d.Func
	case ShapeFloat2:
		return op | d.Sub<<21 | s<<11 | r<<6 | d.Func
	case ShapeMove:
		return op | d.Sub<<21 | s<<16 | t<<11
	}
	return 0
}

// Opcode extracts the top six bits of an instruction word.
func Opcode(word uint32) uint32 {
	return word >> 26
}

// FormatBinary renders word as 32 binary digits in groups of four,
// most significant group first: "0110 0100 0000 0001 ...".
func FormatBinary(word uint32) string {
	var sb strings.Builder
	sb.Grow(39)
	for i := 31; i >= 0; i-- {
		if word&(1<<uint(i)) != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
		if i%4 == 0 && i > 0 {
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}
