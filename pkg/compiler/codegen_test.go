package compiler

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// assertContains checks if the generated code contains the expected substring.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

// generate runs every phase up to code generation and returns the listing
// and the register pool it used.
func generate(t *testing.T, src string) (Listing, *RegisterPool) {
	t.Helper()
	prog, syms, diags := parse(t, src)
	if diags.ErrorCount() != 0 {
		t.Fatalf("Parse failed:\n%s", diags)
	}
	Check(prog, syms, diags)
	if diags.ErrorCount() != 0 {
		t.Fatalf("Check failed:\n%s", diags)
	}
	regs := NewRegisterPool()
	listing, err := Generate(prog, syms, regs)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return listing, regs
}

// texts returns the instruction text of every line after the directive.
func texts(ls Listing) []string {
	var out []string
	for _, l := range ls[1:] {
		out = append(out, strings.TrimSpace(l.Text))
	}
	return out
}

func assertTexts(t *testing.T, ls Listing, want ...string) {
	t.Helper()
	got := texts(ls)
	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d\n%s", len(got), len(want), ls)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGenerate_Header(t *testing.T) {
	ls, _ := generate(t, "int x = 5;")
	if ls[0].Text != ".code" || ls[0].Encoded {
		t.Errorf("first line = %+v, want unencoded .code", ls[0])
	}
	assertTexts(t, ls, "daddiu r1, r0, 5", "sb r1, 0(r0)")

	want := "    daddiu r1, r0, 5 ; 0110 0100 0000 0001 0000 0000 0000 0101"
	if got := ls[1].String(); got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
	if ls[2].Word != 0xA0010000 {
		t.Errorf("sb word = %#08x, want 0xa0010000", ls[2].Word)
	}
}

func TestGenerate_UninitializedDeclarations(t *testing.T) {
	ls, _ := generate(t, "int x; char c; float f; x = 1; c = 2; f = 2;")
	assertTexts(t, ls,
		// only f is zeroed
		"daddiu r1, r0, 0",
		"dmtc1 r1, f1",
		"cvt.d.l f1, f1",
		"s.d f1, 16(r0)",
		// x = 1
		"daddiu r1, r0, 1",
		"sb r1, 0(r0)",
		// c = 2
		"daddiu r1, r0, 2",
		"sb r1, 8(r0)",
		// f = 2
		"daddiu r1, r0, 2",
		"dmtc1 r1, f1",
		"cvt.d.l f1, f1",
		"s.d f1, 16(r0)",
	)
}

func TestGenerate_FloatConstant(t *testing.T) {
	ls, _ := generate(t, "float f = 1.5;")
	// 1.5 is 0x3FF8000000000000
	assertTexts(t, ls,
		"lui r1, 0x3FF8",
		"ori r1, r1, 0x0",
		"dsll r1, r1, 16",
		"dsll r1, r1, 16",
		"lui r2, 0x0",
		"ori r2, r2, 0x0",
		"or r1, r1, r2",
		"dmtc1 r1, f1",
		"s.d f1, 0(r0)",
	)
}

func TestSplitFloat(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 1.5, 3.14159, -2.5e-10, math.MaxFloat64} {
		hi, lo := splitFloat(v)
		if got := joinFloat(hi, lo); got != v {
			t.Errorf("joinFloat(splitFloat(%v)) = %v", v, got)
		}
	}
	if hi, lo := splitFloat(1.0); hi != 0x3FF00000 || lo != 0 {
		t.Errorf("splitFloat(1.0) = %#x, %#x", hi, lo)
	}
}

func TestGenerate_Expressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			"Addition",
			"int a = 2; int b = a + 3;",
			[]string{"lb r2, 0(r0)", "daddiu r3, r0, 3", "daddu r1, r2, r3", "sb r1, 8(r0)"},
		},
		{
			"Subtraction",
			"int a = 2; int b = a - 3;",
			[]string{"dsubu r1, r2, r3"},
		},
		{
			"Multiplication",
			"int a = 2; int b = a * 3;",
			[]string{"dmulu r2, r3", "mflo r1"},
		},
		{
			"Division",
			"int a = 8; int b = a / 2;",
			[]string{"ddivu r2, r3", "mflo r1"},
		},
		{
			"Unary minus",
			"int a = 1; int b = -a;",
			[]string{"lb r1, 0(r0)", "dsubu r1, r0, r1", "sb r1, 8(r0)"},
		},
		{
			"Float arithmetic",
			"float a = 1.5; float b = a * a;",
			[]string{"l.d f2, 0(r0)", "l.d f3, 0(r0)", "mul.d f1, f2, f3", "s.d f1, 8(r0)"},
		},
		{
			"Float negation",
			"float a = 1.5; float b = -a;",
			[]string{"l.d f1, 0(r0)", "neg.d f1, f1"},
		},
		{
			"Float to int",
			"float f = 2.5; int i = f;",
			[]string{"l.d f1, 0(r0)", "trunc.l.d f1, f1", "dmfc1 r1, f1", "sb r1, 8(r0)"},
		},
		{
			"Int to float",
			"int i = 3; float f = i;",
			[]string{"lb r1, 0(r0)", "dmtc1 r1, f1", "cvt.d.l f1, f1", "s.d f1, 8(r0)"},
		},
		{
			"Mixed promotes to float",
			"int i = 3; float f = 1.5; float g = i + f;",
			[]string{"cvt.d.l f2, f2", "l.d f3, 8(r0)", "add.d f1, f2, f3"},
		},
		{
			"Float literal in int context",
			"int i = 7.9;",
			[]string{"daddiu r1, r0, 7"},
		},
		{
			"Char literal",
			"char c = 'A';",
			[]string{"daddiu r1, r0, 65", "sb r1, 0(r0)"},
		},
		{
			"Compound assignment",
			"int x = 1; x *= 3 + 1;",
			[]string{"lb r2, 0(r0)", "daddiu r4, r0, 3", "daddiu r5, r0, 1", "daddu r3, r4, r5", "dmulu r2, r3", "mflo r1", "sb r1, 0(r0)"},
		},
		{
			"Chained assignment",
			"int a; int b; a = b = 4;",
			[]string{"daddiu r1, r0, 4", "sb r1, 8(r0)", "sb r1, 0(r0)"},
		},
		{
			"Postfix value",
			"int a = 1; int b = a++;",
			[]string{"lb r1, 0(r0)", "daddiu r2, r1, 1", "sb r2, 0(r0)", "sb r1, 8(r0)"},
		},
		{
			"Prefix value",
			"int a = 1; int b = --a;",
			[]string{"lb r1, 0(r0)", "daddiu r1, r1, -1", "sb r1, 0(r0)", "sb r1, 8(r0)"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ls, _ := generate(t, tc.src)
			code := ls.String()
			for _, want := range tc.want {
				assertContains(t, code, want)
			}
		})
	}
}

func TestGenerate_Steps(t *testing.T) {
	ls, _ := generate(t, "int x = 5; x++; x--;")
	assertTexts(t, ls,
		"daddiu r1, r0, 5",
		"sb r1, 0(r0)",
		"lb r1, 0(r0)",
		"daddiu r1, r1, 1",
		"sb r1, 0(r0)",
		"lb r1, 0(r0)",
		"daddiu r1, r1, -1",
		"sb r1, 0(r0)",
	)

	inc, _ := generate(t, "float f = 1.0; ++f;")
	dec, _ := generate(t, "float f = 1.0; --f;")
	if len(inc) != len(dec) {
		t.Errorf("float ++ emitted %d lines, -- emitted %d", len(inc), len(dec))
	}
	assertContains(t, inc.String(), "add.d f1, f1, f2")
	assertContains(t, dec.String(), "sub.d f1, f1, f2")
}

func TestGenerate_ExpressionStatements(t *testing.T) {
	plain, _ := generate(t, "int a = 1; a = a;")
	noop, _ := generate(t, "int a = 1; a = a; a + 1; -a; (a * 2);")
	if plain.String() != noop.String() {
		t.Errorf("pure expression statements emitted code:\n%s", noop)
	}

	base, _ := generate(t, "int a = 1; int b = 0; b = a;")
	side, _ := generate(t, "int a = 1; int b = 0; b = a; a + b++;")
	if len(side) <= len(base) {
		t.Errorf("expression with a step emitted nothing:\n%s", side)
	}
}

func TestGenerate_ImmediateTruncation(t *testing.T) {
	ls, _ := generate(t, "int i = 70000;")
	assertContains(t, ls.String(), "daddiu r1, r0, 70000")
	if ls[1].Word != 0x64011170 {
		t.Errorf("word = %#08x, want 0x64011170", ls[1].Word)
	}
}

func TestGenerate_ReleasesRegisters(t *testing.T) {
	src := "int a = 1; float f = 2.5; a = a * (a + 3) - a / 2; f = f * a - -f; a += f; f++; a = f = a;"
	_, regs := generate(t, src)
	if regs.Live(BankInt) != 0 || regs.Live(BankFloat) != 0 {
		t.Errorf("registers still live after Generate: int %d, float %d", regs.Live(BankInt), regs.Live(BankFloat))
	}
}

func TestGenerate_EveryInstructionEncoded(t *testing.T) {
	ls, _ := generate(t, "int a = 1; float f = 2.5; char c = 'x'; a = a * c - a / 2; f = f * a - -f; a += f; f++; --a;")
	for _, l := range ls[1:] {
		if !l.Encoded || l.Word == 0 {
			t.Errorf("line %q has no encoding", l.Text)
		}
	}
}

func TestGenerate_RegisterExhaustion(t *testing.T) {
	src := "int a = 1; a = a" + strings.Repeat(" + a", 20) + ";"
	prog, syms, diags := parse(t, src)
	Check(prog, syms, diags)
	if diags.ErrorCount() != 0 {
		t.Fatalf("Check failed:\n%s", diags)
	}
	_, err := Generate(prog, syms, NewRegisterPool())
	if !errors.Is(err, ErrRegistersExhausted) {
		t.Fatalf("Generate error = %v, want ErrRegistersExhausted", err)
	}
	var cgErr *CodegenError
	if !errors.As(err, &cgErr) || cgErr.Line != 1 {
		t.Errorf("error = %#v, want *CodegenError at line 1", err)
	}
}
