// Package compiler translates a small C-like language of int, char and
// float variables into a MIPS64 assembly listing in which every
// instruction carries its 32-bit encoding.
//
// Pipeline: source → Lex → Parse → Check → Generate → listing
package compiler
