package asm

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		name           string
		mnemonic       string
		rs, rt, rd, im int
		want           uint32
	}{
		{"daddiu literal", "daddiu", 0, 1, 0, 5, 0x64010005},
		{"daddiu truncates immediate", "daddiu", 0, 1, 0, 70000, 0x64011170},
		{"daddiu negative immediate", "daddiu", 1, 1, 0, -1, 0x6421FFFF},
		{"lb", "lb", 0, 1, 0, 8, 0x80010008},
		{"sb", "sb", 0, 2, 0, 0, 0xA0020000},
		{"s.d", "s.d", 0, 1, 0, 16, 0xF4010010},
		{"daddu", "daddu", 1, 2, 3, 0, 0x0022182D},
		{"dsubu", "dsubu", 1, 2, 3, 0, 0x0022182F},
		{"or", "or", 1, 2, 1, 0, 0x00220825},
		{"dmulu", "dmulu", 1, 2, 0, 0, 0x0022009D},
		{"ddivu", "ddivu", 1, 2, 0, 0, 0x0022009F},
		{"mflo", "mflo", 0, 0, 3, 0, 0x00001812},
		{"dsll", "dsll", 0, 1, 1, 16, 0x00010C38},
		{"dsll masks shift amount", "dsll", 0, 1, 1, 48, 0x00010C38},
		{"add.d", "add.d", 1, 2, 3, 0, 0x462208C0},
		{"div.d", "div.d", 1, 2, 3, 0, 0x462208C3},
		{"neg.d", "neg.d", 1, 0, 3, 0, 0x462008C7},
		{"dmtc1", "dmtc1", 1, 2, 0, 0, 0x44A11000},
		{"dmfc1", "dmfc1", 1, 2, 0, 0, 0x44211000},
		{"cvt.d.l", "cvt.d.l", 2, 0, 2, 0, 0x46A010A1},
		{"trunc.l.d", "trunc.l.d", 2, 0, 2, 0, 0x46201089},
		{"lui", "lui", 0, 1, 0, 0x400C, 0x3C01400C},
		{"ori", "ori", 1, 1, 0, 0x8000, 0x34218000},
		{"upper case mnemonic", "DADDIU", 0, 1, 0, 5, 0x64010005},
		{"unknown mnemonic", "jal", 0, 0, 0, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Encode(tc.mnemonic, tc.rs, tc.rt, tc.rd, tc.im); got != tc.want {
				t.Errorf("Encode(%q, %d, %d, %d, %d) = %#08x, want %#08x",
					tc.mnemonic, tc.rs, tc.rt, tc.rd, tc.im, got, tc.want)
			}
		})
	}
}

func TestEncodeOpcodeFieldMatchesTable(t *testing.T) {
	for _, m := range Mnemonics() {
		d, _ := Lookup(m)
		for _, args := range [][4]int{{0, 0, 0, 0}, {31, 31, 31, 0xFFFF}, {5, 7, 9, -3}} {
			first := Encode(m, args[0], args[1], args[2], args[3])
			second := Encode(m, args[0], args[1], args[2], args[3])
			if first != second {
				t.Errorf("%s: Encode is not deterministic: %#08x != %#08x", m, first, second)
			}
			if Opcode(first) != d.Opcode {
				t.Errorf("%s: opcode field = %06b, want %06b", m, Opcode(first), d.Opcode)
			}
		}
	}
}

func TestRegisterFieldsMasked(t *testing.T) {
	if got, want := Encode("daddu", 33, 34, 35, 0), Encode("daddu", 1, 2, 3, 0); got != want {
		t.Errorf("Encode with out-of-range registers = %#08x, want %#08x", got, want)
	}
}

func TestFormatBinary(t *testing.T) {
	tests := []struct {
		word uint32
		want string
	}{
		{0, "0000 0000 0000 0000 0000 0000 0000 0000"},
		{0xFFFFFFFF, "1111 1111 1111 1111 1111 1111 1111 1111"},
		{0x64010005, "0110 0100 0000 0001 0000 0000 0000 0101"},
	}
	for _, tc := range tests {
		if got := FormatBinary(tc.word); got != tc.want {
			t.Errorf("FormatBinary(%#08x) = %q, want %q", tc.word, got, tc.want)
		}
		if back, ok := parseBinary(tc.want); !ok || back != tc.word {
			t.Errorf("parseBinary(%q) = %#08x, %v", tc.want, back, ok)
		}
	}
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("add.d")
	if !ok {
		t.Fatal("add.d missing from table")
	}
	if d.Mnemonic != "add.d" || d.Format != FormatCOP1 || d.Sub != fmtDouble {
		t.Errorf("Lookup(add.d) = %+v", d)
	}
	if d.Format.String() != "COP1" {
		t.Errorf("Format.String() = %q", d.Format.String())
	}
	if _, ok := Lookup("beq"); ok {
		t.Error("Lookup(beq) should fail")
	}
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Encode("add.d", i&31, (i>>5)&31, (i>>10)&31, 0)
	}
}
