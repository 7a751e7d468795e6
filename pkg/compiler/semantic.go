package compiler

// checker walks a Program once in statement order, resolving names and
// annotating every expression with its type.
type checker struct {
	syms  *SymbolTable
	diags *Diagnostics
}

// Check runs the semantic pass. Undeclared variables are errors, reads of
// variables that have not been assigned yet and variables that are never
// read are warnings.
func Check(prog *Program, syms *SymbolTable, diags *Diagnostics) {
	c := &checker{syms: syms, diags: diags}
	for _, s := range prog.Stmts {
		c.stmt(s)
	}
	for _, sym := range syms.Symbols() {
		if !sym.Used {
			diags.Warnf(PhaseSemantic, sym.Line, "Variable '%s' was declared but never used", sym.Name)
		}
	}
}

func (c *checker) stmt(s Stmt) {
	switch s := s.(type) {
	case *Declaration:
		if s.Init == nil {
			return
		}
		c.checkAssignable(s.VarType, c.expr(s.Init), s.Line)
		c.syms.MarkInitialized(s.Name)

	case *Assignment:
		c.expr(s)

	case *CompoundAssignment:
		target := c.read(s.Target)
		c.checkAssignable(target, c.expr(s.Value), s.Line)
		c.syms.MarkInitialized(s.Target.Name)

	case *ExprStmt:
		c.expr(s.X)
	}
}

// expr resolves e, records its type on the node and returns it.
func (c *checker) expr(e Expr) Type {
	var t Type
	switch e := e.(type) {
	case *NumberLiteral:
		t = TypeInt
	case *CharLiteral:
		t = TypeChar
	case *FloatLiteral:
		t = TypeFloat

	case *Variable:
		t = c.read(e)

	case *UnaryOp:
		t = c.expr(e.Operand)
		if e.isStep() {
			if v, ok := e.Operand.(*Variable); ok {
				c.syms.MarkInitialized(v.Name)
			}
		}

	case *BinaryOp:
		t = promote(c.expr(e.Left), c.expr(e.Right))

	case *Assignment:
		value := c.expr(e.Value)
		t = c.resolve(e.Target)
		c.checkAssignable(t, value, e.Line)
		c.syms.MarkInitialized(e.Target.Name)
	}
	e.setType(t)
	return t
}

// resolve looks up an assignment target without counting it as a read.
func (c *checker) resolve(v *Variable) Type {
	sym, ok := c.syms.Lookup(v.Name)
	if !ok {
		c.diags.Errorf(PhaseSemantic, v.Line, "Variable '%s' was not declared", v.Name)
		return TypeUnknown
	}
	v.setType(sym.Type)
	return sym.Type
}

// read resolves v as a value use.
func (c *checker) read(v *Variable) Type {
	sym, ok := c.syms.Lookup(v.Name)
	if !ok {
		c.diags.Errorf(PhaseSemantic, v.Line, "Variable '%s' was not declared", v.Name)
		v.setType(TypeUnknown)
		return TypeUnknown
	}
	if !sym.Initialized {
		c.diags.Warnf(PhaseSemantic, v.Line, "Variable '%s' might not have a value", v.Name)
	}
	sym.Used = true
	v.setType(sym.Type)
	return sym.Type
}

func (c *checker) checkAssignable(dst, src Type, line int) {
	if !assignable(dst, src) {
		c.diags.Errorf(PhaseSemantic, line, "Cannot assign %s to %s", src, dst)
	}
}

// assignable reports whether a src value may be stored in a dst variable.
// All numeric types convert freely, and unresolved types are already
// reported elsewhere.
func assignable(dst, src Type) bool {
	if dst == TypeUnknown || src == TypeUnknown {
		return true
	}
	return isNumeric(dst) && isNumeric(src)
}

func isNumeric(t Type) bool {
	return t == TypeInt || t == TypeChar || t == TypeFloat
}

// promote returns the type of a binary operation on l and r.
func promote(l, r Type) Type {
	switch {
	case l == TypeFloat || r == TypeFloat:
		return TypeFloat
	case l == TypeUnknown || r == TypeUnknown:
		return TypeUnknown
	default:
		return TypeInt
	}
}
