package compiler

import (
	"fmt"
	"math"
	"strings"

	"mipscc/pkg/asm"
)

// Line is one line of the generated listing. Word holds the encoding when
// Encoded is set.
type Line struct {
	Text    string
	Word    uint32
	Encoded bool
}

// String renders the line with its binary annotation, if any.
func (l Line) String() string {
	if !l.Encoded {
		return l.Text
	}
	return l.Text + " ; " + asm.FormatBinary(l.Word)
}

// Listing is the ordered output of code generation.
type Listing []Line

func (ls Listing) String() string {
	var sb strings.Builder
	for _, l := range ls {
		sb.WriteString(l.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Words returns the encoded instruction words in order.
func (ls Listing) Words() []uint32 {
	var words []uint32
	for _, l := range ls {
		if l.Encoded {
			words = append(words, l.Word)
		}
	}
	return words
}

// CodegenError reports a statement that could not be generated.
type CodegenError struct {
	Line int
	Err  error
}

func (e *CodegenError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *CodegenError) Unwrap() error { return e.Err }

// CodeGen walks a checked Program and emits MIPS64 instructions. Integers
// live in one 8-byte slot per variable and are moved with lb/sb; floats
// are moved with l.d/s.d.
type CodeGen struct {
	syms *SymbolTable
	regs *RegisterPool
	out  Listing
}

func newCodeGen(syms *SymbolTable, regs *RegisterPool) *CodeGen {
	return &CodeGen{syms: syms, regs: regs}
}

func (cg *CodeGen) directive(text string) {
	cg.out = append(cg.out, Line{Text: text})
}

// emit appends one instruction. The operand fields are passed to the
// encoder as-is and the text is printed from format.
func (cg *CodeGen) emit(mnemonic string, rs, rt, rd, imm int, format string, args ...any) {
	text := "    " + mnemonic + " " + fmt.Sprintf(format, args...)
	word := asm.Encode(mnemonic, rs, rt, rd, imm)
	cg.out = append(cg.out, Line{Text: text, Word: word, Encoded: word != 0})
}

//  Instruction helpers. Each one knows its mnemonic's operand order.

func (cg *CodeGen) daddiu(rt, rs Reg, imm int64) {
	cg.emit("daddiu", rs.Index, rt.Index, 0, int(imm), "%s, %s, %d", rt, rs, imm)
}

// memory emits a load or store of rt at off(r0).
func (cg *CodeGen) memory(op string, rt Reg, off int) {
	cg.emit(op, 0, rt.Index, 0, off, "%s, %d(%s)", rt, off, zeroReg)
}

func (cg *CodeGen) rtype(op string, rd, rs, rt Reg) {
	cg.emit(op, rs.Index, rt.Index, rd.Index, 0, "%s, %s, %s", rd, rs, rt)
}

// lowResult emits dmulu/ddivu followed by mflo into rd.
func (cg *CodeGen) lowResult(op string, rd, rs, rt Reg) {
	cg.emit(op, rs.Index, rt.Index, 0, 0, "%s, %s", rs, rt)
	cg.emit("mflo", 0, 0, rd.Index, 0, "%s", rd)
}

func (cg *CodeGen) dsll(rd, rt Reg, sa int) {
	cg.emit("dsll", 0, rt.Index, rd.Index, sa, "%s, %s, %d", rd, rt, sa)
}

func (cg *CodeGen) lui(rt Reg, imm uint32) {
	cg.emit("lui", 0, rt.Index, 0, int(imm), "%s, 0x%X", rt, imm)
}

func (cg *CodeGen) ori(rt, rs Reg, imm uint32) {
	cg.emit("ori", rs.Index, rt.Index, 0, int(imm), "%s, %s, 0x%X", rt, rs, imm)
}

func (cg *CodeGen) float3(op string, fd, fs, ft Reg) {
	cg.emit(op, fs.Index, ft.Index, fd.Index, 0, "%s, %s, %s", fd, fs, ft)
}

func (cg *CodeGen) float2(op string, fd, fs Reg) {
	cg.emit(op, fs.Index, 0, fd.Index, 0, "%s, %s", fd, fs)
}

// move emits a GPR/FPR transfer such as dmtc1 or dmfc1.
func (cg *CodeGen) move(op string, gpr, fpr Reg) {
	cg.emit(op, gpr.Index, fpr.Index, 0, 0, "%s, %s", gpr, fpr)
}

var intOps = map[TokenType]string{PLUS: "daddu", MINUS: "dsubu", STAR: "dmulu", SLASH: "ddivu"}
var floatOps = map[TokenType]string{PLUS: "add.d", MINUS: "sub.d", STAR: "mul.d", SLASH: "div.d"}

// splitFloat returns the high and low 32-bit halves of v's IEEE-754 bits.
func splitFloat(v float64) (hi, lo uint32) {
	bits := math.Float64bits(v)
	return uint32(bits >> 32), uint32(bits)
}

func joinFloat(hi, lo uint32) float64 {
	return math.Float64frombits(uint64(hi)<<32 | uint64(lo))
}

// loadFloatConst materialises v in f. Each 32-bit half is built with
// lui/ori, the high half is moved up with two 16-bit shifts because dsll
// only takes a 5-bit amount.
func (cg *CodeGen) loadFloatConst(v float64, f Reg) error {
	rh, err := cg.regs.AcquireInt()
	if err != nil {
		return err
	}
	defer cg.regs.Release(rh)
	rl, err := cg.regs.AcquireInt()
	if err != nil {
		return err
	}
	defer cg.regs.Release(rl)

	hi, lo := splitFloat(v)
	cg.lui(rh, hi>>16)
	cg.ori(rh, rh, hi&0xFFFF)
	cg.dsll(rh, rh, 16)
	cg.dsll(rh, rh, 16)
	cg.lui(rl, lo>>16)
	cg.ori(rl, rl, lo&0xFFFF)
	cg.rtype("or", rh, rh, rl)
	cg.move("dmtc1", rh, f)
	return nil
}

// genInt evaluates e into the integer register dst. Float-typed
// expressions are computed in a float register and truncated.
func (cg *CodeGen) genInt(e Expr, dst Reg) error {
	if lit, ok := e.(*FloatLiteral); ok {
		cg.daddiu(dst, zeroReg, int64(lit.Value))
		return nil
	}
	if e.Type().IsFloat() {
		f, err := cg.regs.AcquireFloat()
		if err != nil {
			return err
		}
		defer cg.regs.Release(f)
		if err := cg.genFloat(e, f); err != nil {
			return err
		}
		cg.float2("trunc.l.d", f, f)
		cg.move("dmfc1", dst, f)
		return nil
	}

	switch e := e.(type) {
	case *NumberLiteral:
		cg.daddiu(dst, zeroReg, e.Value)

	case *CharLiteral:
		cg.daddiu(dst, zeroReg, e.Value)

	case *Variable:
		sym, ok := cg.syms.Lookup(e.Name)
		if !ok {
			return nil
		}
		cg.memory("lb", dst, sym.Offset)

	case *UnaryOp:
		if e.isStep() {
			return cg.genStepValue(e, dst)
		}
		if err := cg.genInt(e.Operand, dst); err != nil {
			return err
		}
		if e.Op == MINUS {
			cg.rtype("dsubu", dst, zeroReg, dst)
		}

	case *BinaryOp:
		l, err := cg.regs.AcquireInt()
		if err != nil {
			return err
		}
		defer cg.regs.Release(l)
		r, err := cg.regs.AcquireInt()
		if err != nil {
			return err
		}
		defer cg.regs.Release(r)

		if err := cg.genInt(e.Left, l); err != nil {
			return err
		}
		if err := cg.genInt(e.Right, r); err != nil {
			return err
		}
		switch op := intOps[e.Op]; e.Op {
		case STAR, SLASH:
			cg.lowResult(op, dst, l, r)
		default:
			cg.rtype(op, dst, l, r)
		}

	case *Assignment:
		if err := cg.genInt(e.Value, dst); err != nil {
			return err
		}
		if sym, ok := cg.syms.Lookup(e.Target.Name); ok {
			cg.memory("sb", dst, sym.Offset)
		}
	}
	return nil
}

// genFloat evaluates e into the float register f. Integer-typed
// expressions are computed in an integer register and converted.
func (cg *CodeGen) genFloat(e Expr, f Reg) error {
	if _, ok := e.(*FloatLiteral); !ok && !e.Type().IsFloat() {
		r, err := cg.regs.AcquireInt()
		if err != nil {
			return err
		}
		defer cg.regs.Release(r)
		if err := cg.genInt(e, r); err != nil {
			return err
		}
		cg.move("dmtc1", r, f)
		cg.float2("cvt.d.l", f, f)
		return nil
	}

	switch e := e.(type) {
	case *FloatLiteral:
		return cg.loadFloatConst(e.Value, f)

	case *Variable:
		sym, ok := cg.syms.Lookup(e.Name)
		if !ok {
			return nil
		}
		cg.memory("l.d", f, sym.Offset)

	case *UnaryOp:
		if e.isStep() {
			return cg.genStepValue(e, f)
		}
		if err := cg.genFloat(e.Operand, f); err != nil {
			return err
		}
		if e.Op == MINUS {
			cg.float2("neg.d", f, f)
		}

	case *BinaryOp:
		l, err := cg.regs.AcquireFloat()
		if err != nil {
			return err
		}
		defer cg.regs.Release(l)
		r, err := cg.regs.AcquireFloat()
		if err != nil {
			return err
		}
		defer cg.regs.Release(r)

		if err := cg.genFloat(e.Left, l); err != nil {
			return err
		}
		if err := cg.genFloat(e.Right, r); err != nil {
			return err
		}
		cg.float3(floatOps[e.Op], f, l, r)

	case *Assignment:
		if err := cg.genFloat(e.Value, f); err != nil {
			return err
		}
		if sym, ok := cg.syms.Lookup(e.Target.Name); ok {
			cg.memory("s.d", f, sym.Offset)
		}
	}
	return nil
}

// genStepValue applies ++ or -- to a variable and leaves the expression's
// value in dst: the old value for postfix, the new value for prefix. dst
// is in the bank matching the variable's type.
func (cg *CodeGen) genStepValue(u *UnaryOp, dst Reg) error {
	v, ok := u.Operand.(*Variable)
	if !ok {
		return nil
	}
	sym, ok := cg.syms.Lookup(v.Name)
	if !ok {
		return nil
	}

	if sym.Type.IsFloat() {
		one, err := cg.regs.AcquireFloat()
		if err != nil {
			return err
		}
		defer cg.regs.Release(one)
		next := dst
		if u.Postfix {
			if next, err = cg.regs.AcquireFloat(); err != nil {
				return err
			}
			defer cg.regs.Release(next)
		}
		cg.memory("l.d", dst, sym.Offset)
		if err := cg.loadFloatConst(1.0, one); err != nil {
			return err
		}
		cg.float3(stepFloatOp(u.Op), next, dst, one)
		cg.memory("s.d", next, sym.Offset)
		return nil
	}

	next := dst
	if u.Postfix {
		var err error
		if next, err = cg.regs.AcquireInt(); err != nil {
			return err
		}
		defer cg.regs.Release(next)
	}
	cg.memory("lb", dst, sym.Offset)
	cg.daddiu(next, dst, stepDelta(u.Op))
	cg.memory("sb", next, sym.Offset)
	return nil
}

func stepDelta(op TokenType) int64 {
	if op == MINUS_MINUS {
		return -1
	}
	return 1
}

func stepFloatOp(op TokenType) string {
	if op == MINUS_MINUS {
		return "sub.d"
	}
	return "add.d"
}

// genStep emits a statement-level ++ or --: load, adjust by one, store.
func (cg *CodeGen) genStep(u *UnaryOp) error {
	v, ok := u.Operand.(*Variable)
	if !ok {
		return nil
	}
	sym, ok := cg.syms.Lookup(v.Name)
	if !ok {
		return nil
	}

	if sym.Type.IsFloat() {
		f, err := cg.regs.AcquireFloat()
		if err != nil {
			return err
		}
		defer cg.regs.Release(f)
		one, err := cg.regs.AcquireFloat()
		if err != nil {
			return err
		}
		defer cg.regs.Release(one)
		cg.memory("l.d", f, sym.Offset)
		if err := cg.loadFloatConst(1.0, one); err != nil {
			return err
		}
		cg.float3(stepFloatOp(u.Op), f, f, one)
		cg.memory("s.d", f, sym.Offset)
		return nil
	}

	r, err := cg.regs.AcquireInt()
	if err != nil {
		return err
	}
	defer cg.regs.Release(r)
	cg.memory("lb", r, sym.Offset)
	cg.daddiu(r, r, stepDelta(u.Op))
	cg.memory("sb", r, sym.Offset)
	return nil
}

// genStore evaluates value and stores it into the variable name, converting
// to the variable's type.
func (cg *CodeGen) genStore(name string, value Expr) error {
	sym, ok := cg.syms.Lookup(name)
	if !ok {
		return nil
	}
	if sym.Type.IsFloat() {
		f, err := cg.regs.AcquireFloat()
		if err != nil {
			return err
		}
		defer cg.regs.Release(f)
		if err := cg.genFloat(value, f); err != nil {
			return err
		}
		cg.memory("s.d", f, sym.Offset)
		return nil
	}
	r, err := cg.regs.AcquireInt()
	if err != nil {
		return err
	}
	defer cg.regs.Release(r)
	if err := cg.genInt(value, r); err != nil {
		return err
	}
	cg.memory("sb", r, sym.Offset)
	return nil
}

// genZero materializes 0.0 in the slot of a float declaration without
// initializer. int and char slots are left alone.
func (cg *CodeGen) genZero(d *Declaration) error {
	sym, ok := cg.syms.Lookup(d.Name)
	if !ok || !sym.Type.IsFloat() {
		return nil
	}
	f, err := cg.regs.AcquireFloat()
	if err != nil {
		return err
	}
	defer cg.regs.Release(f)
	r, err := cg.regs.AcquireInt()
	if err != nil {
		return err
	}
	defer cg.regs.Release(r)
	cg.daddiu(r, zeroReg, 0)
	cg.move("dmtc1", r, f)
	cg.float2("cvt.d.l", f, f)
	cg.memory("s.d", f, sym.Offset)
	return nil
}

// hasSideEffects reports whether evaluating e writes memory.
func hasSideEffects(e Expr) bool {
	switch e := e.(type) {
	case *UnaryOp:
		return e.isStep() || hasSideEffects(e.Operand)
	case *BinaryOp:
		return hasSideEffects(e.Left) || hasSideEffects(e.Right)
	case *Assignment:
		return true
	}
	return false
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch s := s.(type) {
	case *Declaration:
		if s.Init != nil {
			return cg.genStore(s.Name, s.Init)
		}

	case *Assignment:
		return cg.genStore(s.Target.Name, s.Value)

	case *CompoundAssignment:
		value := &BinaryOp{Op: s.Op, Left: s.Target, Right: s.Value, Line: s.Line}
		value.setType(promote(s.Target.Type(), s.Value.Type()))
		return cg.genStore(s.Target.Name, value)

	case *ExprStmt:
		if u, ok := s.X.(*UnaryOp); ok && u.isStep() {
			return cg.genStep(u)
		}
		if !hasSideEffects(s.X) {
			return nil
		}
		if s.X.Type().IsFloat() {
			f, err := cg.regs.AcquireFloat()
			if err != nil {
				return err
			}
			defer cg.regs.Release(f)
			return cg.genFloat(s.X, f)
		}
		r, err := cg.regs.AcquireInt()
		if err != nil {
			return err
		}
		defer cg.regs.Release(r)
		return cg.genInt(s.X, r)
	}
	return nil
}

func stmtLine(s Stmt) int {
	switch s := s.(type) {
	case *Declaration:
		return s.Line
	case *Assignment:
		return s.Line
	case *CompoundAssignment:
		return s.Line
	case *ExprStmt:
		return s.Line
	}
	return 0
}

// Generate emits the listing for prog: a ".code" header, one pass zeroing
// every float declaration without initializer, then every statement in order.
// It stops at the first statement that cannot be generated.
func Generate(prog *Program, syms *SymbolTable, regs *RegisterPool) (Listing, error) {
	cg := newCodeGen(syms, regs)
	cg.directive(".code")

	for _, s := range prog.Stmts {
		if d, ok := s.(*Declaration); ok && d.Init == nil {
			if err := cg.genZero(d); err != nil {
				return cg.out, &CodegenError{Line: d.Line, Err: err}
			}
		}
	}

	for _, s := range prog.Stmts {
		if err := cg.genStmt(s); err != nil {
			return cg.out, &CodegenError{Line: stmtLine(s), Err: err}
		}
	}
	return cg.out, nil
}
