package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Snapshot is the JSON-serializable view of a machine after a run. Only
// non-zero registers are listed.
type Snapshot struct {
	PC     int                 `json:"pc"`
	Steps  int                 `json:"steps"`
	Halted bool                `json:"halted"`
	LO     uint64              `json:"lo"`
	GPR    map[string]int64    `json:"gpr,omitempty"`
	FPR    map[string]FloatReg `json:"fpr,omitempty"`
	// Memory holds the first MemoryWindow bytes, enough for every variable
	// slot a program can declare.
	Memory []byte `json:"memory"`
}

// FloatReg is one FPR: its raw bits and the double they read as. Value may
// be "NaN" or "+Inf"; after trunc.l.d the bits are an integer.
type FloatReg struct {
	Bits  string `json:"bits"`
	Value string `json:"value"`
}

func floatReg(bits uint64) FloatReg {
	return FloatReg{
		Bits:  fmt.Sprintf("0x%016x", bits),
		Value: strconv.FormatFloat(math.Float64frombits(bits), 'g', -1, 64),
	}
}

// MemoryWindow is how much data memory a Snapshot captures.
const MemoryWindow = 800

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		PC:     m.PC,
		Steps:  m.Steps,
		Halted: m.Halted,
		LO:     m.LO,
		GPR:    make(map[string]int64),
		FPR:    make(map[string]FloatReg),
		Memory: append([]byte(nil), m.Memory[:MemoryWindow]...),
	}
	for i, v := range m.GPR {
		if v != 0 {
			s.GPR[fmt.Sprintf("r%d", i)] = int64(v)
		}
	}
	for i, v := range m.FPR {
		if v != 0 {
			s.FPR[fmt.Sprintf("f%d", i)] = floatReg(v)
		}
	}
	return s
}

// WriteSnapshot writes the machine state to w as indented JSON.
func (m *Machine) WriteSnapshot(w io.Writer) error {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
