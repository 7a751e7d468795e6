package compiler

import (
	"errors"
	"fmt"
	"strconv"
)

// Parser consumes the flat token slice produced by the Lexer and builds a
// Program. Declarations are entered into the symbol table as they are
// parsed.
//
// Grammar:
//
//	program     = statement* EOF
//	statement   = ";" | declaration | step ";" | assignment ";" | compound ";" | expression ";"
//	declaration = ("int" | "char" | "float") declarator ("," declarator)* ";"
//	declarator  = IDENTIFIER ("=" expression)?
//	step        = ("++" | "--") IDENTIFIER | IDENTIFIER ("++" | "--")
//	assignment  = IDENTIFIER "=" (assignment | expression)
//	compound    = IDENTIFIER ("+=" | "-=" | "*=" | "/=") expression
//	expression  = additive
//	additive    = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/") unary)*
//	unary       = ("+" | "-") unary | ("++" | "--") primary | postfix
//	postfix     = primary ("++" | "--")?
//	primary     = NUMBER | FLOAT_LITERAL | CHAR_LITERAL | IDENTIFIER | "(" expression ")"
type Parser struct {
	tokens []Token
	pos    int
	syms   *SymbolTable
	diags  *Diagnostics
}

func NewParser(tokens []Token, syms *SymbolTable, diags *Diagnostics) *Parser {
	return &Parser{tokens: tokens, syms: syms, diags: diags}
}

// syntaxError is a parse failure that has not been reported yet.
type syntaxError struct {
	line int
	msg  string
}

func (e *syntaxError) Error() string { return fmt.Sprintf("line %d: %s", e.line, e.msg) }

func (p *Parser) errorf(tok Token, format string, args ...any) error {
	return &syntaxError{line: tok.Line, msg: fmt.Sprintf(format, args...)}
}

// report records err as a parse diagnostic.
func (p *Parser) report(err error) {
	var se *syntaxError
	if errors.As(err, &se) {
		p.diags.Errorf(PhaseParse, se.line, "%s", se.msg)
		return
	}
	p.diags.Errorf(PhaseParse, p.peek().Line, "%v", err)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	return p.peekAt(0)
}

// peekNext returns the token immediately after the current one.
func (p *Parser) peekNext() Token {
	return p.peekAt(1)
}

// peekAt returns the token at the given offset, or the final EOF token.
func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if len(p.tokens) == 0 {
			return Token{Type: EOF}
		}
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt.
func (p *Parser) expect(tt TokenType, text string) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.errorf(tok, "Expected '%s'", text)
	}
	return p.advance(), nil
}

// synchronize skips past the next ';' so parsing resumes at a statement.
func (p *Parser) synchronize() {
	for p.peek().Type != SEMICOLON && p.peek().Type != EOF {
		p.advance()
	}
	if p.peek().Type == SEMICOLON {
		p.advance()
	}
}

// canStartExpression reports whether tt may begin an expression.
func canStartExpression(tt TokenType) bool {
	switch tt {
	case NUMBER, FLOAT_LITERAL, CHAR_LITERAL, IDENTIFIER, LPAREN, PLUS, MINUS, PLUS_PLUS, MINUS_MINUS:
		return true
	}
	return false
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (Expr, error) {
	return p.parseAdditive()
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Expr, error) {
	expr, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}

	for {
		tt := p.peek().Type
		if tt != PLUS && tt != MINUS {
			break
		}
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		expr = &BinaryOp{Op: opTok.Type, Left: expr, Right: right, Line: opTok.Line}
	}

	return expr, nil
}

// parseMultiplicative handles * and /
func (p *Parser) parseMultiplicative() (Expr, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tt := p.peek().Type
		if tt != STAR && tt != SLASH {
			break
		}
		opTok := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		expr = &BinaryOp{Op: opTok.Type, Left: expr, Right: right, Line: opTok.Line}
	}

	return expr, nil
}

// parseUnary handles prefix signs and prefix steps. A step operand must be
// a plain variable.
func (p *Parser) parseUnary() (Expr, error) {
	switch p.peek().Type {
	case PLUS, MINUS:
		opTok := p.advance()
		if !canStartExpression(p.peek().Type) {
			return nil, p.errorf(opTok, "Expected expression after unary operator")
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: opTok.Type, Operand: operand, Line: opTok.Line}, nil

	case PLUS_PLUS, MINUS_MINUS:
		opTok := p.advance()
		if !canStartExpression(p.peek().Type) {
			return nil, p.errorf(opTok, "Expected variable after prefix operator")
		}
		operand, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if _, ok := operand.(*Variable); !ok {
			return nil, p.errorf(opTok, "Prefix operator requires a variable")
		}
		return &UnaryOp{Op: opTok.Type, Operand: operand, Line: opTok.Line}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles a trailing ++ or -- on a variable.
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if v, ok := expr.(*Variable); ok {
		if tt := p.peek().Type; tt == PLUS_PLUS || tt == MINUS_MINUS {
			opTok := p.advance()
			return &UnaryOp{Op: opTok.Type, Operand: v, Postfix: true, Line: opTok.Line}, nil
		}
	}
	return expr, nil
}

// parsePrimary handles literals, variables, and parenthesised expressions.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.advance()
		val, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "Integer literal '%s' out of range", tok.Lexeme)
		}
		return &NumberLiteral{Value: val}, nil

	case FLOAT_LITERAL:
		p.advance()
		val, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorf(tok, "Float literal '%s' out of range", tok.Lexeme)
		}
		return &FloatLiteral{Value: val}, nil

	case CHAR_LITERAL:
		p.advance()
		val, _ := strconv.ParseInt(tok.Lexeme, 10, 64)
		return &CharLiteral{Value: val}, nil

	case IDENTIFIER:
		p.advance()
		return &Variable{Name: tok.Lexeme, Line: tok.Line}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, ")"); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, p.errorf(tok, "Expected expression")
}

// parseDeclaration handles "type a, b = expr, ...;". Each name becomes its
// own Declaration. A name the symbol table rejects aborts the statement.
func (p *Parser) parseDeclaration() ([]Stmt, error) {
	typeTok := p.advance()
	typ := typeForKeyword(typeTok.Type)

	var decls []Stmt
	for {
		nameTok := p.peek()
		if nameTok.Type != IDENTIFIER {
			return nil, p.errorf(nameTok, "Expected variable name")
		}
		p.advance()

		if _, err := p.syms.Declare(nameTok.Lexeme, typ, nameTok.Line); err != nil {
			switch {
			case errors.Is(err, ErrAlreadyDeclared):
				return nil, p.errorf(nameTok, "Variable '%s' is already declared", nameTok.Lexeme)
			default:
				return nil, p.errorf(nameTok, "Too many variables declared")
			}
		}

		decl := &Declaration{VarType: typ, Name: nameTok.Lexeme, Line: nameTok.Line}
		if p.peek().Type == ASSIGN {
			p.advance()
			if !canStartExpression(p.peek().Type) {
				return nil, p.errorf(nameTok, "Expected expression after '='")
			}
			init, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			decl.Init = init
		}
		decls = append(decls, decl)

		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}

	if _, err := p.expect(SEMICOLON, ";"); err != nil {
		return nil, err
	}
	return decls, nil
}

// parseAssignment handles "name = value" where value may itself be an
// assignment when another "IDENTIFIER =" follows.
func (p *Parser) parseAssignment() (*Assignment, error) {
	nameTok := p.advance()
	if nameTok.Type != IDENTIFIER {
		return nil, p.errorf(nameTok, "Expected variable name")
	}
	if _, err := p.expect(ASSIGN, "="); err != nil {
		return nil, err
	}
	target := &Variable{Name: nameTok.Lexeme, Line: nameTok.Line}

	if p.peek().Type == IDENTIFIER && p.peekNext().Type == ASSIGN {
		inner, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &Assignment{Target: target, Value: inner, Line: nameTok.Line}, nil
	}

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Assignment{Target: target, Value: value, Line: nameTok.Line}, nil
}

var compoundOps = map[TokenType]TokenType{
	PLUS_ASSIGN:  PLUS,
	MINUS_ASSIGN: MINUS,
	STAR_ASSIGN:  STAR,
	SLASH_ASSIGN: SLASH,
}

func isCompoundOp(tt TokenType) bool {
	_, ok := compoundOps[tt]
	return ok
}

func (p *Parser) parseCompoundAssignment() (*CompoundAssignment, error) {
	nameTok := p.advance()
	opTok := p.advance()
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &CompoundAssignment{
		Op:     compoundOps[opTok.Type],
		Target: &Variable{Name: nameTok.Lexeme, Line: nameTok.Line},
		Value:  value,
		Line:   nameTok.Line,
	}, nil
}

// parseStep handles the statement forms "++x", "--x", "x++" and "x--".
func (p *Parser) parseStep() (Stmt, error) {
	if tt := p.peek().Type; tt == PLUS_PLUS || tt == MINUS_MINUS {
		opTok := p.advance()
		nameTok := p.peek()
		if nameTok.Type != IDENTIFIER {
			return nil, p.errorf(opTok, "Expected variable after prefix operator")
		}
		p.advance()
		v := &Variable{Name: nameTok.Lexeme, Line: nameTok.Line}
		return &ExprStmt{X: &UnaryOp{Op: opTok.Type, Operand: v, Line: opTok.Line}, Line: opTok.Line}, nil
	}
	nameTok := p.advance()
	opTok := p.advance()
	v := &Variable{Name: nameTok.Lexeme, Line: nameTok.Line}
	return &ExprStmt{X: &UnaryOp{Op: opTok.Type, Operand: v, Postfix: true, Line: opTok.Line}, Line: nameTok.Line}, nil
}

// parseStatement parses one statement. A nil slice with a nil error is an
// empty statement.
func (p *Parser) parseStatement() ([]Stmt, error) {
	tok := p.peek()

	if tok.Type == SEMICOLON {
		p.advance()
		return nil, nil
	}
	if tok.Type.isTypeKeyword() {
		return p.parseDeclaration()
	}

	var stmt Stmt
	var err error

	switch {
	case tok.Type == PLUS_PLUS || tok.Type == MINUS_MINUS:
		stmt, err = p.parseStep()

	case tok.Type == IDENTIFIER:
		switch next := p.peekNext().Type; {
		case next == ASSIGN:
			stmt, err = p.parseAssignment()
		case isCompoundOp(next):
			stmt, err = p.parseCompoundAssignment()
		case next == PLUS_PLUS || next == MINUS_MINUS:
			stmt, err = p.parseStep()
		default:
			stmt, err = p.parseExprStmt()
		}

	case canStartExpression(tok.Type):
		stmt, err = p.parseExprStmt()

	default:
		if tok.Type == EOF {
			return nil, nil
		}
		return nil, p.errorf(tok, "Invalid statement starting with '%s'", tok.Lexeme)
	}

	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SEMICOLON, ";"); err != nil {
		return nil, err
	}
	return []Stmt{stmt}, nil
}

func (p *Parser) parseExprStmt() (Stmt, error) {
	line := p.peek().Line
	x, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{X: x, Line: line}, nil
}

// Parse builds a Program from tokens. Syntax errors are recorded in diags;
// the statement that failed is skipped up to its ';' and parsing resumes.
func Parse(tokens []Token, syms *SymbolTable, diags *Diagnostics) *Program {
	p := NewParser(tokens, syms, diags)
	prog := &Program{}

	for p.peek().Type != EOF {
		start := p.pos
		stmts, err := p.parseStatement()
		if err != nil {
			p.report(err)
			p.synchronize()
			continue
		}
		prog.Stmts = append(prog.Stmts, stmts...)
		if p.pos == start {
			p.advance()
		}
	}
	return prog
}
