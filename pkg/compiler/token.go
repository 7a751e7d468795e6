package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	NUMBER        // integer literal, sign folded in when unary
	FLOAT_LITERAL // digits '.' digits
	CHAR_LITERAL  // 'c', lexeme holds the decimal code
	IDENTIFIER    // variable name

	// Type keywords
	INT   // "int"
	CHAR  // "char"
	FLOAT // "float"

	// Arithmetic operators
	PLUS  // +
	MINUS // -
	STAR  // *
	SLASH // /

	PLUS_PLUS   // ++
	MINUS_MINUS // --

	// Assignment
	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	STAR_ASSIGN  // *=
	SLASH_ASSIGN // /=

	// Punctuation
	SEMICOLON // ;
	COMMA     // ,
	LPAREN    // (
	RPAREN    // )

	UNKNOWN // any character the language does not use
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:           "EOF",
	NUMBER:        "NUMBER",
	FLOAT_LITERAL: "FLOAT_LITERAL",
	CHAR_LITERAL:  "CHAR_LITERAL",
	IDENTIFIER:    "IDENTIFIER",
	INT:           "INT",
	CHAR:          "CHAR",
	FLOAT:         "FLOAT",
	PLUS:          "PLUS",
	MINUS:         "MINUS",
	STAR:          "STAR",
	SLASH:         "SLASH",
	PLUS_PLUS:     "PLUS_PLUS",
	MINUS_MINUS:   "MINUS_MINUS",
	ASSIGN:        "ASSIGN",
	PLUS_ASSIGN:   "PLUS_ASSIGN",
	MINUS_ASSIGN:  "MINUS_ASSIGN",
	STAR_ASSIGN:   "STAR_ASSIGN",
	SLASH_ASSIGN:  "SLASH_ASSIGN",
	SEMICOLON:     "SEMICOLON",
	COMMA:         "COMMA",
	LPAREN:        "LPAREN",
	RPAREN:        "RPAREN",
	UNKNOWN:       "UNKNOWN",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// isTypeKeyword reports whether tt starts a declaration.
func (tt TokenType) isTypeKeyword() bool {
	return tt == INT || tt == CHAR || tt == FLOAT
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // matched source text, at most MaxLexemeLength runes
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-13s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
