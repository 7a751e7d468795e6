package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the resolved type of a variable or expression.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt
	TypeChar
	TypeFloat
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	TypeInt:     "int",
	TypeChar:    "char",
	TypeFloat:   "float",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// IsFloat reports whether values of t live in the float register bank.
func (t Type) IsFloat() bool { return t == TypeFloat }

// typeForKeyword maps a declaration keyword to its Type.
func typeForKeyword(tt TokenType) Type {
	switch tt {
	case INT:
		return TypeInt
	case CHAR:
		return TypeChar
	case FLOAT:
		return TypeFloat
	}
	return TypeUnknown
}

//  Expression nodes

// Expr is implemented by every node that produces a value. Type is filled
// in by the semantic checker.
type Expr interface {
	exprNode()
	String() string
	Type() Type
	setType(Type)
}

type typed struct {
	typ Type
}

func (t *typed) Type() Type      { return t.typ }
func (t *typed) setType(ty Type) { t.typ = ty }

// NumberLiteral is an integer constant.
//
//	int x = -10;
//	        ^^^  NumberLiteral{Value: -10}
type NumberLiteral struct {
	typed
	Value int64
}

func (*NumberLiteral) exprNode()        {}
func (n *NumberLiteral) String() string { return strconv.FormatInt(n.Value, 10) }

// CharLiteral is a character constant. Value holds its code.
type CharLiteral struct {
	typed
	Value int64
}

func (*CharLiteral) exprNode()        {}
func (c *CharLiteral) String() string { return strconv.Quote(string(rune(c.Value))) }

// FloatLiteral is a double-precision constant.
type FloatLiteral struct {
	typed
	Value float64
}

func (*FloatLiteral) exprNode()        {}
func (f *FloatLiteral) String() string { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// Variable is a reference to a declared name.
type Variable struct {
	typed
	Name string
	Line int
}

func (*Variable) exprNode()        {}
func (v *Variable) String() string { return v.Name }

// UnaryOp is a prefix sign or a prefix/postfix step.
//
//	-x     UnaryOp{Op: MINUS, Operand: x}
//	++x    UnaryOp{Op: PLUS_PLUS, Operand: x}
//	x--    UnaryOp{Op: MINUS_MINUS, Operand: x, Postfix: true}
type UnaryOp struct {
	typed
	Op      TokenType
	Operand Expr
	Postfix bool
	Line    int
}

func (*UnaryOp) exprNode() {}
func (u *UnaryOp) String() string {
	if u.Postfix {
		return fmt.Sprintf("(%s%s)", u.Operand, opText(u.Op))
	}
	return fmt.Sprintf("(%s%s)", opText(u.Op), u.Operand)
}

// isStep reports whether u is an increment or decrement.
func (u *UnaryOp) isStep() bool {
	return u.Op == PLUS_PLUS || u.Op == MINUS_MINUS
}

// BinaryOp represents Left Op Right for the four arithmetic operators.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
type BinaryOp struct {
	typed
	Op    TokenType
	Left  Expr
	Right Expr
	Line  int
}

func (*BinaryOp) exprNode() {}
func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, opText(b.Op), b.Right)
}

// opText renders an operator token the way it is written in source.
func opText(tt TokenType) string {
	switch tt {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PLUS_PLUS:
		return "++"
	case MINUS_MINUS:
		return "--"
	}
	return tt.String()
}

//  Statement nodes

// Stmt is implemented by every top-level statement.
type Stmt interface {
	stmtNode()
	String() string
}

// Program is the ordered statement sequence of one translation unit.
type Program struct {
	Stmts []Stmt
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, s := range p.Stmts {
		sb.WriteString(s.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Declaration introduces one variable. "int a, b = 2;" yields two.
type Declaration struct {
	VarType Type
	Name    string
	Init    Expr // nil when the declaration has no initializer
	Line    int
}

func (*Declaration) stmtNode() {}
func (d *Declaration) String() string {
	if d.Init != nil {
		return fmt.Sprintf("%s %s = %s;", d.VarType, d.Name, d.Init)
	}
	return fmt.Sprintf("%s %s;", d.VarType, d.Name)
}

// Assignment stores Value into Target. It is also an expression so that
// "a = b = c" nests as a = (b = c).
type Assignment struct {
	typed
	Target *Variable
	Value  Expr
	Line   int
}

func (*Assignment) stmtNode() {}
func (*Assignment) exprNode() {}
func (a *Assignment) String() string {
	return fmt.Sprintf("%s = %s", a.Target, a.Value)
}

// CompoundAssignment is Target Op= Value, with Op one of PLUS, MINUS,
// STAR or SLASH.
type CompoundAssignment struct {
	Op     TokenType
	Target *Variable
	Value  Expr
	Line   int
}

func (*CompoundAssignment) stmtNode() {}
func (c *CompoundAssignment) String() string {
	return fmt.Sprintf("%s %s= %s", c.Target, opText(c.Op), c.Value)
}

// ExprStmt is an expression evaluated for its side effects, e.g. "x++;".
type ExprStmt struct {
	X    Expr
	Line int
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return e.X.String() + ";" }
