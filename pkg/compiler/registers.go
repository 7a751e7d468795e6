package compiler

import (
	"errors"
	"fmt"
)

// NumRegisters is the size of each register bank.
const NumRegisters = 32

// ErrRegistersExhausted is returned when every allocatable register of a
// bank is in use.
var ErrRegistersExhausted = errors.New("register pool exhausted")

// Bank selects the integer or the floating-point register file.
type Bank int

const (
	BankInt Bank = iota
	BankFloat
)

// Reg names one register. Index 0 of the integer bank is the hardwired
// zero register.
type Reg struct {
	Bank  Bank
	Index int
}

var (
	zeroReg = Reg{Bank: BankInt, Index: 0}
)

func (r Reg) String() string {
	if r.Bank == BankFloat {
		return fmt.Sprintf("f%d", r.Index)
	}
	return fmt.Sprintf("r%d", r.Index)
}

// RegisterPool tracks which temporaries are in use. Slot 0 of either bank
// is never handed out and registers are not spilled.
type RegisterPool struct {
	used [2][NumRegisters]bool
}

func NewRegisterPool() *RegisterPool {
	return &RegisterPool{}
}

func (p *RegisterPool) acquire(bank Bank) (Reg, error) {
	for i := 1; i < NumRegisters; i++ {
		if !p.used[bank][i] {
			p.used[bank][i] = true
			return Reg{Bank: bank, Index: i}, nil
		}
	}
	return Reg{}, fmt.Errorf("%s bank: %w", bankName(bank), ErrRegistersExhausted)
}

// AcquireInt returns the lowest free integer register.
func (p *RegisterPool) AcquireInt() (Reg, error) { return p.acquire(BankInt) }

// AcquireFloat returns the lowest free float register.
func (p *RegisterPool) AcquireFloat() (Reg, error) { return p.acquire(BankFloat) }

// Release frees r. Releasing slot 0 or a free register does nothing.
func (p *RegisterPool) Release(r Reg) {
	if r.Index <= 0 || r.Index >= NumRegisters {
		return
	}
	p.used[r.Bank][r.Index] = false
}

// InUse reports whether r is currently allocated.
func (p *RegisterPool) InUse(r Reg) bool {
	if r.Index <= 0 || r.Index >= NumRegisters {
		return false
	}
	return p.used[r.Bank][r.Index]
}

// Live counts the allocated registers of bank.
func (p *RegisterPool) Live(bank Bank) int {
	n := 0
	for _, u := range p.used[bank] {
		if u {
			n++
		}
	}
	return n
}

func bankName(b Bank) string {
	if b == BankFloat {
		return "float"
	}
	return "integer"
}
