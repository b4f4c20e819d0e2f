// Package parser builds the syntax tree for Liquid templates.
package parser

import (
	"github.com/v3gtb/liquidpage/lexer"
)

// Span represents a location range in source code.
type Span = lexer.Span

// Node is the interface implemented by all AST nodes.
type Node interface {
	node()
	Span() Span
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmt()
}

// Expr represents an expression node.
type Expr interface {
	Node
	expr()
}

// --- Statement Types ---

// Template is the root node of a parsed template.
type Template struct {
	Children []Stmt
	span     Span
}

func (t *Template) node()      {}
func (t *Template) stmt()      {}
func (t *Template) Span() Span { return t.span }

// EmitRaw outputs raw template text.
type EmitRaw struct {
	Raw  string
	span Span
}

func (e *EmitRaw) node()      {}
func (e *EmitRaw) stmt()      {}
func (e *EmitRaw) Span() Span { return e.span }

// EmitExpr outputs an expression result ({{ }} and echo).
type EmitExpr struct {
	Expr Expr
	span Span
}

func (e *EmitExpr) node()      {}
func (e *EmitExpr) stmt()      {}
func (e *EmitExpr) Span() Span { return e.span }

// ForLoop represents a for loop.
type ForLoop struct {
	Var      string
	Iter     Expr
	Limit    Expr // optional
	Offset   Expr // optional
	Reversed bool
	Body     []Stmt
	ElseBody []Stmt
	span     Span
}

func (f *ForLoop) node()      {}
func (f *ForLoop) stmt()      {}
func (f *ForLoop) Span() Span { return f.span }

// IfCond represents if/elsif/else and unless. Elsif branches are nested
// IfConds in FalseBody.
type IfCond struct {
	Expr      Expr
	TrueBody  []Stmt
	FalseBody []Stmt
	span      Span
}

func (i *IfCond) node()      {}
func (i *IfCond) stmt()      {}
func (i *IfCond) Span() Span { return i.span }

// Case represents a case/when/else block.
type Case struct {
	Expr     Expr
	Whens    []When
	ElseBody []Stmt
	span     Span
}

// When is one branch of a case block.
type When struct {
	Values []Expr
	Body   []Stmt
}

func (c *Case) node()      {}
func (c *Case) stmt()      {}
func (c *Case) Span() Span { return c.span }

// Assign binds a name to the value of an expression.
type Assign struct {
	Name string
	Expr Expr
	span Span
}

func (a *Assign) node()      {}
func (a *Assign) stmt()      {}
func (a *Assign) Span() Span { return a.span }

// Capture binds a name to rendered output.
type Capture struct {
	Name string
	Body []Stmt
	span Span
}

func (c *Capture) node()      {}
func (c *Capture) stmt()      {}
func (c *Capture) Span() Span { return c.span }

// Increment represents increment and decrement counters.
type Increment struct {
	Name      string
	Decrement bool
	span      Span
}

func (i *Increment) node()      {}
func (i *Increment) stmt()      {}
func (i *Increment) Span() Span { return i.span }

// Include renders another template in the current context.
type Include struct {
	Name     string
	Relative bool
	Params   []Kwarg
	span     Span
}

func (i *Include) node()      {}
func (i *Include) stmt()      {}
func (i *Include) Span() Span { return i.span }

// Continue skips to the next loop iteration.
type Continue struct {
	span Span
}

func (c *Continue) node()      {}
func (c *Continue) stmt()      {}
func (c *Continue) Span() Span { return c.span }

// Break leaves the innermost loop.
type Break struct {
	span Span
}

func (b *Break) node()      {}
func (b *Break) stmt()      {}
func (b *Break) Span() Span { return b.span }

// --- Expression Types ---

// Const is a literal value: nil, bool, int64, float64 or string.
type Const struct {
	Value any
	span  Span
}

func (c *Const) node()      {}
func (c *Const) expr()      {}
func (c *Const) Span() Span { return c.span }

// EmptyLit is the `empty` or `blank` literal.
type EmptyLit struct {
	Blank bool
	span  Span
}

func (e *EmptyLit) node()      {}
func (e *EmptyLit) expr()      {}
func (e *EmptyLit) Span() Span { return e.span }

// Var is a top-level variable reference.
type Var struct {
	ID   string
	span Span
}

func (v *Var) node()      {}
func (v *Var) expr()      {}
func (v *Var) Span() Span { return v.span }

// GetAttr is `expr.name`.
type GetAttr struct {
	Expr Expr
	Name string
	span Span
}

func (g *GetAttr) node()      {}
func (g *GetAttr) expr()      {}
func (g *GetAttr) Span() Span { return g.span }

// GetItem is `expr[subscript]`.
type GetItem struct {
	Expr          Expr
	SubscriptExpr Expr
	span          Span
}

func (g *GetItem) node()      {}
func (g *GetItem) expr()      {}
func (g *GetItem) Span() Span { return g.span }

// Range is `(start..end)`.
type Range struct {
	Start Expr
	End   Expr
	span  Span
}

func (r *Range) node()      {}
func (r *Range) expr()      {}
func (r *Range) Span() Span { return r.span }

// BinOpKind is the operator of a BinOp.
type BinOpKind int

const (
	BinOpEq BinOpKind = iota
	BinOpNe
	BinOpLt
	BinOpLe
	BinOpGt
	BinOpGe
	BinOpContains
	BinOpAnd
	BinOpOr
)

var binOpNames = [...]string{"==", "!=", "<", "<=", ">", ">=", "contains", "and", "or"}

func (k BinOpKind) String() string {
	if int(k) < len(binOpNames) {
		return binOpNames[k]
	}
	return "?"
}

// BinOp is a comparison or logical operation.
type BinOp struct {
	Op    BinOpKind
	Left  Expr
	Right Expr
	span  Span
}

func (b *BinOp) node()      {}
func (b *BinOp) expr()      {}
func (b *BinOp) Span() Span { return b.span }

// Not negates its operand. It only appears as the condition of unless.
type Not struct {
	Expr Expr
	span Span
}

func (n *Not) node()      {}
func (n *Not) expr()      {}
func (n *Not) Span() Span { return n.span }

// Kwarg is a named argument.
type Kwarg struct {
	Name  string
	Value Expr
}

// Filter applies a named filter to an expression.
type Filter struct {
	Expr   Expr
	Name   string
	Args   []Expr
	Kwargs []Kwarg
	span   Span
}

func (f *Filter) node()      {}
func (f *Filter) expr()      {}
func (f *Filter) Span() Span { return f.span }
