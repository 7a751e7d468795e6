// Package sim executes the instruction words produced by the compiler on a
// small MIPS64 machine: 32 integer registers, 32 floating-point registers,
// the LO register and a flat byte-addressed data memory.
package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// MemorySize is the size of the data memory in bytes.
const MemorySize = 65536

var (
	ErrHalted             = errors.New("machine halted")
	ErrDivideByZero       = errors.New("integer divide by zero")
	ErrMemoryBounds       = errors.New("memory access out of bounds")
	ErrIllegalInstruction = errors.New("illegal instruction")
)

const (
	opSpecial = 0b000000
	opCOP1    = 0b010001
	opDaddiu  = 0b011001
	opOri     = 0b001101
	opLui     = 0b001111
	opLb      = 0b100000
	opSb      = 0b101000
	opLd      = 0b110101 // l.d
	opSd      = 0b111101 // s.d

	fnDsll  = 0b111000
	fnMflo  = 0b010010
	fnDmulu = 0b011101
	fnDdivu = 0b011111
	fnOr    = 0b100101
	fnDaddu = 0b101101
	fnDsubu = 0b101111

	fmtDouble = 0b10001
	fmtWord   = 0b10100
	fmtLong   = 0b10101
	subMfc1   = 0b00000
	subDmfc1  = 0b00001
	subMtc1   = 0b00100
	subDmtc1  = 0b00101

	fnAdd   = 0b000000
	fnSub   = 0b000001
	fnMul   = 0b000010
	fnDiv   = 0b000011
	fnNeg   = 0b000111
	fnTrunc = 0b001001
	fnCvtD  = 0b100001
)

// Fault reports the instruction that stopped execution.
type Fault struct {
	PC   int
	Word uint32
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("pc %d (%#08x): %v", f.PC, f.Word, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Machine is the simulated processor. GPR 0 always reads as zero. FPRs hold
// raw IEEE-754 bits. PC indexes the loaded program, one word per step.
type Machine struct {
	GPR [32]uint64
	FPR [32]uint64
	LO  uint64
	PC  int

	Memory [MemorySize]byte

	Halted bool
	Steps  int

	program []uint32
}

func New() *Machine {
	return &Machine{}
}

// Load replaces the program and resets PC. Registers and memory are kept.
func (m *Machine) Load(words []uint32) {
	m.program = append(m.program[:0], words...)
	m.PC = 0
	m.Halted = false
}

// Reset clears every register and all memory.
func (m *Machine) Reset() {
	*m = Machine{program: m.program}
}

// Run executes until the program ends or an instruction faults.
func (m *Machine) Run() error {
	for !m.Halted {
		if err := m.Step(); err != nil {
			if errors.Is(err, ErrHalted) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Step executes one instruction. Stepping past the last word halts the
// machine and returns ErrHalted.
func (m *Machine) Step() error {
	if m.Halted || m.PC >= len(m.program) {
		m.Halted = true
		return ErrHalted
	}
	word := m.program[m.PC]
	if err := m.execute(word); err != nil {
		m.Halted = true
		return &Fault{PC: m.PC, Word: word, Err: err}
	}
	m.PC++
	m.Steps++
	return nil
}

func (m *Machine) setGPR(idx uint32, v uint64) {
	if idx != 0 {
		m.GPR[idx] = v
	}
}

func (m *Machine) address(base uint32, imm uint32, size int) (int, error) {
	addr := int64(m.GPR[base]) + int64(int16(imm))
	if addr < 0 || addr+int64(size) > MemorySize {
		return 0, fmt.Errorf("address %d: %w", addr, ErrMemoryBounds)
	}
	return int(addr), nil
}

func (m *Machine) execute(w uint32) error {
	op := w >> 26
	rs := (w >> 21) & 0x1F
	rt := (w >> 16) & 0x1F
	rd := (w >> 11) & 0x1F
	sa := (w >> 6) & 0x1F
	fn := w & 0x3F
	imm := w & 0xFFFF

	switch op {
	case opDaddiu:
		m.setGPR(rt, m.GPR[rs]+uint64(int64(int16(imm))))

	case opOri:
		m.setGPR(rt, m.GPR[rs]|uint64(imm))

	case opLui:
		m.setGPR(rt, uint64(imm)<<16)

	case opLb:
		addr, err := m.address(rs, imm, 1)
		if err != nil {
			return err
		}
		m.setGPR(rt, uint64(int64(int8(m.Memory[addr]))))

	case opSb:
		addr, err := m.address(rs, imm, 1)
		if err != nil {
			return err
		}
		m.Memory[addr] = byte(m.GPR[rt])

	case opLd:
		addr, err := m.address(rs, imm, 8)
		if err != nil {
			return err
		}
		m.FPR[rt] = binary.BigEndian.Uint64(m.Memory[addr:])

	case opSd:
		addr, err := m.address(rs, imm, 8)
		if err != nil {
			return err
		}
		binary.BigEndian.PutUint64(m.Memory[addr:], m.FPR[rt])

	case opSpecial:
		return m.special(rs, rt, rd, sa, fn)

	case opCOP1:
		return m.cop1(w)

	default:
		return ErrIllegalInstruction
	}
	return nil
}

func (m *Machine) special(rs, rt, rd, sa, fn uint32) error {
	switch fn {
	case fnDaddu:
		m.setGPR(rd, m.GPR[rs]+m.GPR[rt])
	case fnDsubu:
		m.setGPR(rd, m.GPR[rs]-m.GPR[rt])
	case fnOr:
		m.setGPR(rd, m.GPR[rs]|m.GPR[rt])
	case fnDmulu:
		m.LO = m.GPR[rs] * m.GPR[rt]
	case fnDdivu:
		if m.GPR[rt] == 0 {
			return ErrDivideByZero
		}
		m.LO = m.GPR[rs] / m.GPR[rt]
	case fnMflo:
		m.setGPR(rd, m.LO)
	case fnDsll:
		m.setGPR(rd, m.GPR[rt]<<sa)
	default:
		return ErrIllegalInstruction
	}
	return nil
}

func (m *Machine) cop1(w uint32) error {
	sub := (w >> 21) & 0x1F
	ft := (w >> 16) & 0x1F
	fs := (w >> 11) & 0x1F
	fd := (w >> 6) & 0x1F
	fn := w & 0x3F

	switch sub {
	case subMfc1:
		m.setGPR(ft, uint64(int64(int32(m.FPR[fs]))))
		return nil
	case subDmfc1:
		m.setGPR(ft, m.FPR[fs])
		return nil
	case subMtc1:
		m.FPR[fs] = uint64(uint32(m.GPR[ft]))
		return nil
	case subDmtc1:
		m.FPR[fs] = m.GPR[ft]
		return nil

	case fmtLong:
		if fn != fnCvtD {
			return ErrIllegalInstruction
		}
		m.FPR[fd] = math.Float64bits(float64(int64(m.FPR[fs])))
		return nil
	case fmtWord:
		if fn != fnCvtD {
			return ErrIllegalInstruction
		}
		m.FPR[fd] = math.Float64bits(float64(int32(m.FPR[fs])))
		return nil

	case fmtDouble:
		a := math.Float64frombits(m.FPR[fs])
		b := math.Float64frombits(m.FPR[ft])
		var r float64
		switch fn {
		case fnAdd:
			r = a + b
		case fnSub:
			r = a - b
		case fnMul:
			r = a * b
		case fnDiv:
			r = a / b
		case fnNeg:
			r = -a
		case fnTrunc:
			m.FPR[fd] = uint64(truncate(a))
			return nil
		default:
			return ErrIllegalInstruction
		}
		m.FPR[fd] = math.Float64bits(r)
		return nil
	}
	return ErrIllegalInstruction
}

// truncate converts toward zero. NaN and out-of-range values produce the
// largest positive integer, as the hardware's invalid-operation default.
func truncate(v float64) int64 {
	if math.IsNaN(v) || v >= math.MaxInt64 || v < math.MinInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// Int returns the sign-extended byte stored at offset, which is how integer
// and char variables are read back.
func (m *Machine) Int(offset int) (int64, error) {
	if offset < 0 || offset >= MemorySize {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrMemoryBounds)
	}
	return int64(int8(m.Memory[offset])), nil
}

// Float returns the double stored big-endian at offset.
func (m *Machine) Float(offset int) (float64, error) {
	if offset < 0 || offset+8 > MemorySize {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrMemoryBounds)
	}
	return math.Float64frombits(binary.BigEndian.Uint64(m.Memory[offset:])), nil
}

// Execute is a convenience wrapper: a fresh machine runs words to completion.
func Execute(words []uint32) (*Machine, error) {
	m := New()
	m.Load(words)
	return m, m.Run()
}
