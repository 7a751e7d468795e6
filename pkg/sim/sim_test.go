package sim

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"mipscc/pkg/asm"
)

// enc is shorthand for asm.Encode with (rs, rt, rd, imm) fields.
func enc(mnemonic string, rs, rt, rd, imm int) uint32 {
	return asm.Encode(mnemonic, rs, rt, rd, imm)
}

func run(t *testing.T, words ...uint32) *Machine {
	t.Helper()
	m, err := Execute(words)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return m
}

func TestIntegerALU(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
		reg   int
		want  int64
	}{
		{"daddiu", []uint32{enc("daddiu", 0, 1, 0, 42)}, 1, 42},
		{"daddiu negative", []uint32{enc("daddiu", 0, 1, 0, -5)}, 1, -5},
		{"daddiu truncated", []uint32{enc("daddiu", 0, 1, 0, 70000)}, 1, 70000 & 0xFFFF},
		{"daddu", []uint32{
			enc("daddiu", 0, 1, 0, 20),
			enc("daddiu", 0, 2, 0, 22),
			enc("daddu", 1, 2, 3, 0),
		}, 3, 42},
		{"dsubu", []uint32{
			enc("daddiu", 0, 1, 0, 2),
			enc("daddiu", 0, 2, 0, 5),
			enc("dsubu", 1, 2, 3, 0),
		}, 3, -3},
		{"dmulu mflo", []uint32{
			enc("daddiu", 0, 1, 0, 6),
			enc("daddiu", 0, 2, 0, 7),
			enc("dmulu", 1, 2, 0, 0),
			enc("mflo", 0, 0, 3, 0),
		}, 3, 42},
		{"ddivu mflo", []uint32{
			enc("daddiu", 0, 1, 0, 85),
			enc("daddiu", 0, 2, 0, 2),
			enc("ddivu", 1, 2, 0, 0),
			enc("mflo", 0, 0, 3, 0),
		}, 3, 42},
		{"lui ori dsll or", []uint32{
			enc("lui", 0, 1, 0, 0x1234),
			enc("ori", 1, 1, 0, 0x5678),
			enc("dsll", 0, 1, 1, 16),
			enc("ori", 0, 2, 0, 0xFFFF),
			enc("or", 1, 2, 3, 0),
		}, 3, 0x12345678FFFF},
		{"lui zero-extends", []uint32{enc("lui", 0, 1, 0, 0x8000)}, 1, 0x80000000},
		{"writes to r0 ignored", []uint32{enc("daddiu", 0, 0, 0, 9)}, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := run(t, tc.words...)
			if got := int64(m.GPR[tc.reg]); got != tc.want {
				t.Errorf("r%d = %d (%#x), want %d", tc.reg, got, got, tc.want)
			}
		})
	}
}

func TestByteMemory(t *testing.T) {
	m := run(t,
		enc("daddiu", 0, 1, 0, 200),
		enc("sb", 0, 1, 0, 16),
		enc("lb", 0, 2, 0, 16),
	)
	if m.Memory[16] != 200 {
		t.Errorf("memory[16] = %d, want 200", m.Memory[16])
	}
	if got := int64(m.GPR[2]); got != -56 {
		t.Errorf("lb did not sign-extend: r2 = %d, want -56", got)
	}
	if v, _ := m.Int(16); v != -56 {
		t.Errorf("Int(16) = %d, want -56", v)
	}
}

func TestFloatUnit(t *testing.T) {
	m := New()
	m.FPR[2] = math.Float64bits(1.5)
	m.FPR[3] = math.Float64bits(4.0)
	m.Load([]uint32{
		enc("add.d", 2, 3, 4, 0), // f4 = f2 + f3
		enc("sub.d", 2, 3, 5, 0), // f5 = f2 - f3
		enc("mul.d", 2, 3, 6, 0), // f6 = f2 * f3
		enc("div.d", 3, 2, 7, 0), // f7 = f3 / f2
		enc("neg.d", 2, 0, 8, 0), // f8 = -f2
		enc("s.d", 0, 6, 0, 24),  // mem[24] = f6
		enc("l.d", 0, 9, 0, 24),  // f9 = mem[24]
	})
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := map[int]float64{4: 5.5, 5: -2.5, 6: 6, 7: 4.0 / 1.5, 8: -1.5, 9: 6}
	for reg, w := range want {
		if got := math.Float64frombits(m.FPR[reg]); got != w {
			t.Errorf("f%d = %v, want %v", reg, got, w)
		}
	}
	if got, _ := m.Float(24); got != 6 {
		t.Errorf("Float(24) = %v, want 6", got)
	}
	if m.Memory[24] != 0x40 {
		t.Errorf("doubles should be stored big-endian, memory[24] = %#x", m.Memory[24])
	}
}

func TestConversions(t *testing.T) {
	m := run(t,
		enc("daddiu", 0, 1, 0, -7),
		enc("dmtc1", 1, 1, 0, 0), // f1 = r1 bits
		enc("cvt.d.l", 1, 0, 2, 0),
		enc("trunc.l.d", 2, 0, 3, 0),
		enc("dmfc1", 4, 3, 0, 0), // r4 = f3 bits
	)
	if got := math.Float64frombits(m.FPR[2]); got != -7 {
		t.Errorf("cvt.d.l: f2 = %v, want -7", got)
	}
	if got := int64(m.GPR[4]); got != -7 {
		t.Errorf("trunc.l.d/dmfc1: r4 = %d, want -7", got)
	}

	m = New()
	m.FPR[1] = math.Float64bits(-2.75)
	m.Load([]uint32{enc("trunc.l.d", 1, 0, 1, 0), enc("dmfc1", 2, 1, 0, 0)})
	if err := m.Run(); err != nil {
		t.Fatal(err)
	}
	if got := int64(m.GPR[2]); got != -2 {
		t.Errorf("trunc(-2.75) = %d, want -2", got)
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name  string
		words []uint32
		want  error
	}{
		{"Divide by zero", []uint32{enc("daddiu", 0, 1, 0, 1), enc("ddivu", 1, 0, 0, 0)}, ErrDivideByZero},
		{"Negative address", []uint32{enc("lb", 0, 1, 0, -1)}, ErrMemoryBounds},
		{"Double past end", []uint32{
			enc("lui", 0, 1, 0, 1),
			enc("l.d", 1, 1, 0, -4),
		}, ErrMemoryBounds},
		{"Illegal opcode", []uint32{0xFC000000}, ErrIllegalInstruction},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Execute(tc.words)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			var f *Fault
			if !errors.As(err, &f) || f.PC != len(tc.words)-1 {
				t.Errorf("fault = %#v, want PC %d", err, len(tc.words)-1)
			}
		})
	}
}

func TestStepHalts(t *testing.T) {
	m := New()
	m.Load([]uint32{enc("daddiu", 0, 1, 0, 1)})
	if err := m.Step(); err != nil {
		t.Fatalf("first Step: %v", err)
	}
	if err := m.Step(); !errors.Is(err, ErrHalted) {
		t.Errorf("second Step = %v, want ErrHalted", err)
	}
	if !m.Halted || m.Steps != 1 {
		t.Errorf("Halted = %v, Steps = %d", m.Halted, m.Steps)
	}
}

func TestSnapshot(t *testing.T) {
	m := run(t, enc("daddiu", 0, 3, 0, 9), enc("sb", 0, 3, 0, 8))
	var buf bytes.Buffer
	if err := m.WriteSnapshot(&buf); err != nil {
		t.Fatal(err)
	}
	var got Snapshot
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v\n%s", err, buf.String())
	}
	if got.GPR["r3"] != 9 || got.Steps != 2 || got.Memory[8] != 9 {
		t.Errorf("snapshot = %+v", got)
	}
	if _, ok := got.GPR["r0"]; ok {
		t.Error("zero registers should be omitted")
	}
}

func TestResetKeepsProgram(t *testing.T) {
	m := run(t, enc("daddiu", 0, 1, 0, 7), enc("sb", 0, 1, 0, 0))
	m.Reset()
	if m.GPR[1] != 0 || m.Memory[0] != 0 || m.Steps != 0 {
		t.Fatalf("Reset left state behind: r1=%d mem[0]=%d steps=%d", m.GPR[1], m.Memory[0], m.Steps)
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run after Reset: %v", err)
	}
	if v, _ := m.Int(0); v != 7 {
		t.Errorf("mem[0] after rerun = %d, want 7", v)
	}
}

func TestSnapshotNonFiniteFloats(t *testing.T) {
	m := New()
	m.FPR[1] = math.Float64bits(math.Inf(1))
	m.FPR[2] = uint64(math.MaxUint64) // trunc.l.d of -1 leaves all ones
	m.FPR[3] = math.Float64bits(2.5)

	var buf bytes.Buffer
	if err := m.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	var got Snapshot
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v\n%s", err, buf.String())
	}
	want := map[string]FloatReg{
		"f1": {Bits: "0x7ff0000000000000", Value: "+Inf"},
		"f2": {Bits: "0xffffffffffffffff", Value: "NaN"},
		"f3": {Bits: "0x4004000000000000", Value: "2.5"},
	}
	for name, w := range want {
		if got.FPR[name] != w {
			t.Errorf("FPR[%s] = %+v, want %+v", name, got.FPR[name], w)
		}
	}
}
