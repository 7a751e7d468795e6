package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// WordSize is the length of every instruction in bytes.
const WordSize = 4

// Assembler turns a textual MIPS64 listing back into instruction words.
type Assembler struct {
	labels map[string]uint32
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
	comment  string
}

func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]uint32),
	}
}

// Assemble encodes every instruction in code. The returned map takes a byte
// address to the 1-based source line that produced it.
func Assemble(code string) ([]uint32, map[uint32]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]uint32, map[uint32]int, error) {
	lines := strings.Split(code, "\n")

	parsed, err := a.pass1(lines)
	if err != nil {
		return nil, nil, err
	}

	return a.pass2(parsed)
}

// pass1 parses every line and records label addresses.
func (a *Assembler) pass1(lines []string) ([]parsedLine, error) {
	var address uint32
	parsed := make([]parsedLine, 0, len(lines))

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}

		for _, lbl := range p.labels {
			key := normalizeLabel(lbl)
			if _, exists := a.labels[key]; exists {
				return nil, fmt.Errorf("duplicate label '%s' on line %d", lbl, lineNo)
			}
			a.labels[key] = address
		}

		switch {
		case p.mnemonic == "":
		case strings.HasPrefix(p.mnemonic, "."):
			if p.mnemonic != ".code" {
				return nil, fmt.Errorf("unknown directive '%s' on line %d", p.mnemonic, lineNo)
			}
		default:
			if _, ok := Lookup(p.mnemonic); !ok {
				return nil, fmt.Errorf("%w '%s' on line %d", ErrUnknownMnemonic, p.mnemonic, lineNo)
			}
			address += WordSize
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

func (a *Assembler) pass2(parsed []parsedLine) ([]uint32, map[uint32]int, error) {
	var words []uint32
	sourceMap := make(map[uint32]int)

	for _, p := range parsed {
		if p.mnemonic == "" || strings.HasPrefix(p.mnemonic, ".") {
			continue
		}
		word, err := a.encodeLine(p)
		if err != nil {
			return nil, nil, err
		}
		sourceMap[uint32(len(words)*WordSize)] = p.lineNo
		words = append(words, word)
	}
	return words, sourceMap, nil
}

func (a *Assembler) encodeLine(p parsedLine) (uint32, error) {
	d, _ := Lookup(p.mnemonic)
	ops := p.operands

	want := operandCount(d.Shape)
	if len(ops) != want {
		return 0, fmt.Errorf("%s expects %d operands on line %d, got %d", d.Mnemonic, want, p.lineNo, len(ops))
	}

	var rs, rt, rd, imm int
	var err error
	gpr := func(tok string) int {
		if err != nil {
			return 0
		}
		var r int
		r, err = parseRegister(tok, 'r', p.lineNo)
		return r
	}
	fpr := func(tok string) int {
		if err != nil {
			return 0
		}
		var r int
		r, err = parseRegister(tok, 'f', p.lineNo)
		return r
	}
	immediate := func(tok string) int {
		if err != nil {
			return 0
		}
		var v int
		v, err = a.parseImmediate(tok, p.lineNo)
		return v
	}

	switch d.Shape {
	case ShapeRegRegImm:
		rt, rs, imm = gpr(ops[0]), gpr(ops[1]), immediate(ops[2])
	case ShapeRegImm:
		rt, imm = gpr(ops[0]), immediate(ops[1])
	case ShapeRegMem:
		rt, imm, rs = gpr(ops[0]), immediate(ops[1]), gpr(ops[2])
	case ShapeFloatMem:
		rt, imm, rs = fpr(ops[0]), immediate(ops[1]), gpr(ops[2])
	case ShapeRegRegReg:
		rd, rs, rt = gpr(ops[0]), gpr(ops[1]), gpr(ops[2])
	case ShapeRegReg:
		rs, rt = gpr(ops[0]), gpr(ops[1])
	case ShapeReg:
		rd = gpr(ops[0])
	case ShapeShift:
		rd, rt, imm = gpr(ops[0]), gpr(ops[1]), immediate(ops[2])
		if err == nil && (imm < 0 || imm > 31) {
			err = fmt.Errorf("shift amount %d out of range on line %d", imm, p.lineNo)
		}
	case ShapeFloat3:
		rd, rs, rt = fpr(ops[0]), fpr(ops[1]), fpr(ops[2])
	case ShapeFloat2:
		rd, rs = fpr(ops[0]), fpr(ops[1])
	case ShapeMove:
		rs, rt = gpr(ops[0]), fpr(ops[1])
	}
	if err != nil {
		return 0, err
	}
	return d.Encode(rs, rt, rd, imm), nil
}

func operandCount(s Shape) int {
	switch s {
	case ShapeReg:
		return 1
	case ShapeRegImm, ShapeRegReg, ShapeFloat2, ShapeMove:
		return 2
	default:
		return 3
	}
}

// Verify assembles code and checks that every instruction carrying a binary
// comment encodes to exactly that word.
func Verify(code string) error {
	a := NewAssembler()
	parsed, err := a.pass1(strings.Split(code, "\n"))
	if err != nil {
		return err
	}
	for _, p := range parsed {
		if p.mnemonic == "" || strings.HasPrefix(p.mnemonic, ".") || p.comment == "" {
			continue
		}
		want, ok := parseBinary(p.comment)
		if !ok {
			continue
		}
		got, err := a.encodeLine(p)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("line %d: %s encodes as %s, listing says %s",
				p.lineNo, p.mnemonic, FormatBinary(got), FormatBinary(want))
		}
	}
	return nil
}

// parseBinary reads a grouped 32-digit binary annotation.
func parseBinary(s string) (uint32, bool) {
	digits := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(digits) != 32 {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 2, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line, comment := splitComment(raw)
	p.comment = comment
	line = strings.TrimSpace(line)
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	fields := strings.Fields(normalizeInstructionText(line))
	if len(fields) == 0 {
		return p, nil
	}

	p.mnemonic = strings.ToLower(fields[0])
	if len(fields) > 1 {
		p.operands = fields[1:]
	}
	return p, nil
}

// splitComment separates the instruction text from a trailing ';', '#' or
// '//' comment.
func splitComment(line string) (string, string) {
	cut, width := -1, 0
	for _, marker := range []string{";", "#", "//"} {
		if i := strings.Index(line, marker); i >= 0 && (cut == -1 || i < cut) {
			cut, width = i, len(marker)
		}
	}
	if cut >= 0 {
		return line[:cut], line[cut+width:]
	}
	return line, ""
}

// normalizeInstructionText turns "lb r1, 8(r0)" into "lb r1  8 r0 ".
func normalizeInstructionText(line string) string {
	replacer := strings.NewReplacer(",", " ", "(", " ", ")", " ")
	return replacer.Replace(line)
}

// parseRegister accepts r0..r31 (or f0..f31 when bank is 'f'), with an
// optional leading '$'.
func parseRegister(token string, bank byte, lineNo int) (int, error) {
	t := strings.ToLower(strings.TrimPrefix(token, "$"))
	if len(t) < 2 || t[0] != bank {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	n, err := strconv.Atoi(t[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, fmt.Errorf("invalid register '%s' on line %d", token, lineNo)
	}
	return n, nil
}

func (a *Assembler) parseImmediate(token string, lineNo int) (int, error) {
	if value, err := strconv.ParseInt(token, 0, 64); err == nil {
		return int(value), nil
	}

	if addr, ok := a.labels[normalizeLabel(token)]; ok {
		return int(addr), nil
	}

	if isIdentifier(token) {
		return 0, fmt.Errorf("undefined label '%s' on line %d", token, lineNo)
	}

	return 0, fmt.Errorf("invalid immediate '%s' on line %d", token, lineNo)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func normalizeLabel(label string) string {
	return strings.ToUpper(label)
}
