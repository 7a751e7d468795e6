package compiler

import (
	"strconv"
	"unicode"
)

const (
	// MaxTokens bounds the token stream, the EOF token excluded.
	MaxTokens = 1000
	// MaxLexemeLength bounds the stored text of any token.
	MaxLexemeLength = 31
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"int":   INT,
	"char":  CHAR,
	"float": FLOAT,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src    []rune
	pos    int // index of the next rune to consume
	line   int // current 1-based source line
	tokens []Token
	diags  *Diagnostics
}

func newLexer(src string, diags *Diagnostics) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1, diags: diags}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// prev returns the rune just before the current position.
func (l *Lexer) prev() rune {
	if l.pos == 0 {
		return 0
	}
	return l.src[l.pos-1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.src)
}

// emit appends a token, truncating its lexeme and enforcing MaxTokens.
func (l *Lexer) emit(tt TokenType, lexeme string, line int) {
	if len(l.tokens) >= MaxTokens {
		l.diags.Errorf(PhaseLex, line, "Too many tokens in program")
		return
	}
	l.tokens = append(l.tokens, Token{Type: tt, Lexeme: truncateLexeme(lexeme), Line: line})
}

func truncateLexeme(s string) string {
	r := []rune(s)
	if len(r) > MaxLexemeLength {
		return string(r[:MaxLexemeLength])
	}
	return s
}

func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentPart(r rune) bool  { return isIdentStart(r) || unicode.IsDigit(r) }

// skipSpaceAndComments discards whitespace, "//" comments and nested
// "/* */" comments.
func (l *Lexer) skipSpaceAndComments() {
	for !l.atEnd() {
		switch {
		case unicode.IsSpace(l.peek()):
			l.advance()
		case l.peek() == '/' && l.peek2() == '/':
			l.skipLineComment()
		case l.peek() == '/' && l.peek2() == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment consumes a block comment including its opener. Inner
// "/*" pairs nest.
func (l *Lexer) skipBlockComment() {
	startLine := l.line
	l.advance() // /
	l.advance() // *
	depth := 1
	for !l.atEnd() && depth > 0 {
		switch {
		case l.peek() == '/' && l.peek2() == '*':
			l.advance()
			l.advance()
			depth++
		case l.peek() == '*' && l.peek2() == '/':
			l.advance()
			l.advance()
			depth--
		default:
			l.advance()
		}
	}
	if depth > 0 {
		l.diags.Errorf(PhaseLex, startLine, "Unterminated multi-line comment")
	}
}

// scanIdent collects a full identifier or keyword token.
func (l *Lexer) scanIdent() {
	line := l.line
	start := l.pos
	for !l.atEnd() && isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	l.emit(tt, lexeme, line)
}

// signFolds reports whether a '+' or '-' at the current position belongs to
// the numeric literal that follows it. The sign stays a separate operator
// when the previous source character could end an operand.
func (l *Lexer) signFolds() bool {
	if !isDigit(l.peek2()) {
		return false
	}
	p := l.prev()
	return !(isIdentPart(p) || p == ')' || p == ']')
}

// scanNumber collects an integer or float literal. A leading '-' is kept in
// the lexeme, a leading '+' is dropped.
func (l *Lexer) scanNumber() {
	line := l.line
	var lexeme []rune
	switch l.peek() {
	case '-':
		lexeme = append(lexeme, l.advance())
	case '+':
		l.advance()
	}
	for !l.atEnd() && isDigit(l.peek()) {
		lexeme = append(lexeme, l.advance())
	}
	if l.peek() == '.' && isDigit(l.peek2()) {
		lexeme = append(lexeme, l.advance())
		for !l.atEnd() && isDigit(l.peek()) {
			lexeme = append(lexeme, l.advance())
		}
		l.emit(FLOAT_LITERAL, string(lexeme), line)
		return
	}
	l.emit(NUMBER, string(lexeme), line)
}

// scanChar collects a character literal. The emitted lexeme is the decimal
// value of the character.
func (l *Lexer) scanChar() {
	line := l.line
	l.advance() // opening '

	var val rune
	if l.peek() == '\\' {
		l.advance()
		if l.atEnd() || l.peek() == '\n' {
			l.diags.Errorf(PhaseLex, line, "Unterminated character literal")
			return
		}
		next := l.advance()
		switch next {
		case 'n':
			val = '\n'
		case 't':
			val = '\t'
		case 'r':
			val = '\r'
		case '0':
			val = 0
		case '\\':
			val = '\\'
		case '\'':
			val = '\''
		default:
			val = next
			l.diags.Errorf(PhaseLex, line, "Unknown escape sequence '\\%c'", next)
		}
	} else if !l.atEnd() && l.peek() != '\n' {
		val = l.advance()
	}

	if l.peek() == '\'' {
		l.advance()
		l.emit(CHAR_LITERAL, strconv.Itoa(int(val)), line)
		return
	}

	l.diags.Errorf(PhaseLex, line, "Unterminated character literal")
	for !l.atEnd() && l.peek() != '\'' && l.peek() != '\n' {
		l.advance()
	}
	if l.peek() == '\'' {
		l.advance()
	}
}

// twoCharOps lists the operators matched before their one-character prefix.
var twoCharOps = map[[2]rune]TokenType{
	{'+', '+'}: PLUS_PLUS,
	{'-', '-'}: MINUS_MINUS,
	{'+', '='}: PLUS_ASSIGN,
	{'-', '='}: MINUS_ASSIGN,
	{'*', '='}: STAR_ASSIGN,
	{'/', '='}: SLASH_ASSIGN,
}

var oneCharOps = map[rune]TokenType{
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'=': ASSIGN,
	';': SEMICOLON,
	',': COMMA,
	'(': LPAREN,
	')': RPAREN,
}

// nextToken scans one token, or records a diagnostic for input that does
// not form one.
func (l *Lexer) nextToken() {
	ch := l.peek()
	line := l.line

	switch {
	case ch == '\'':
		l.scanChar()
		return
	case (ch == '-' || ch == '+') && l.signFolds():
		l.scanNumber()
		return
	case isDigit(ch):
		l.scanNumber()
		return
	case isIdentStart(ch):
		l.scanIdent()
		return
	}

	if tt, ok := twoCharOps[[2]rune{ch, l.peek2()}]; ok {
		l.advance()
		l.advance()
		l.emit(tt, string([]rune{ch, l.prev()}), line)
		return
	}
	if tt, ok := oneCharOps[ch]; ok {
		l.advance()
		l.emit(tt, string(ch), line)
		return
	}

	l.advance()
	l.diags.Errorf(PhaseLex, line, "Unexpected character '%c'", ch)
	l.emit(UNKNOWN, string(ch), line)
}

// Lex tokenises src and returns all tokens followed by exactly one EOF token.
// Malformed input is reported to diags and scanning continues.
func Lex(src string, diags *Diagnostics) []Token {
	l := newLexer(src, diags)
	for {
		l.skipSpaceAndComments()
		if l.atEnd() {
			break
		}
		l.nextToken()
	}
	return append(l.tokens, Token{Type: EOF, Line: l.line})
}
