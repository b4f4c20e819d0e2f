package liquidpage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/v3gtb/liquidpage/parser"
	"github.com/v3gtb/liquidpage/value"
)

const (
	maxIncludeDepth = 64
	maxRangeLen     = 1 << 20
)

// State holds the evaluation state during template rendering.
//
// The root scope passed to a render is never modified. Assignments,
// captures and loop variables live in the scope frames stacked above it.
type State struct {
	env      *Environment
	name     string
	source   string
	root     value.Value
	scopes   []map[string]value.Value
	counters map[string]int64
	out      io.Writer
	depth    int
	budget   *iterationBudget
}

func newState(env *Environment, name, source string, root value.Value, out io.Writer) *State {
	return &State{
		env:      env,
		name:     name,
		source:   source,
		root:     root,
		scopes:   []map[string]value.Value{make(map[string]value.Value)},
		counters: make(map[string]int64),
		out:      out,
		budget:   newIterationBudget(env.opts.MaxIterations),
	}
}

// Name returns the name of the template being rendered. Inside an include
// this is the included template.
func (s *State) Name() string {
	return s.name
}

// Options returns the options of the render.
func (s *State) Options() Options {
	return s.env.opts
}

// IterationLevels returns the loop iterations used so far and those left
// under Options.MaxIterations. ok is false when iterations are unlimited.
func (s *State) IterationLevels() (consumed, remaining uint64, ok bool) {
	if s.budget == nil {
		return 0, 0, false
	}
	consumed = s.budget.consumed()
	return consumed, s.budget.initial - consumed, true
}

// Lookup looks up a variable in the scope chain and then in the root scope.
func (s *State) Lookup(name string) (value.Value, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			return v, true
		}
	}
	return s.root.Lookup(name)
}

// Resolve evaluates a dotted variable path such as `page.title` against the
// current scope. With strict variables an absent segment is an
// UndefinedVariableError naming the path up to that segment.
func (s *State) Resolve(path string) (value.Value, error) {
	segments := strings.Split(path, ".")
	val, ok := s.Lookup(segments[0])
	if !ok {
		return s.undefined(segments[0], nil)
	}
	for i, seg := range segments[1:] {
		next, ok := attr(val, seg)
		if !ok {
			return s.undefined(strings.Join(segments[:i+2], "."), nil)
		}
		val = next
	}
	return val, nil
}

// ApplyFilter applies a registered filter to val.
func (s *State) ApplyFilter(name string, val value.Value, args ...value.Value) (value.Value, error) {
	return s.applyFilter(name, val, args, nil, nil)
}

// assign binds name in the nearest frame that already holds it, or in the
// outermost frame so the binding outlives the enclosing tag.
func (s *State) assign(name string, val value.Value) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if _, ok := s.scopes[i][name]; ok {
			s.scopes[i][name] = val
			return
		}
	}
	s.scopes[0][name] = val
}

// set binds name in the innermost frame.
func (s *State) set(name string, val value.Value) {
	s.scopes[len(s.scopes)-1][name] = val
}

func (s *State) pushScope() {
	s.scopes = append(s.scopes, make(map[string]value.Value))
}

func (s *State) popScope() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

func (s *State) undefined(path string, node parser.Node) (value.Value, error) {
	if !s.env.opts.StrictVariables {
		return value.Undefined(), nil
	}
	err := NewError(ErrUndefinedVar, fmt.Sprintf("undefined variable '%s'", path)).WithPath(path)
	if node != nil {
		err.WithSpan(node.Span())
	}
	return value.Undefined(), err
}

func (s *State) write(str string) error {
	if str == "" {
		return nil
	}
	if _, err := io.WriteString(s.out, str); err != nil {
		return NewError(ErrIO, "failed to write output").WithCause(err)
	}
	return nil
}

// eval evaluates a template AST.
func (s *State) eval(tmpl *parser.Template) error {
	err := s.evalBody(tmpl.Children)
	if errors.Is(err, errBreak) || errors.Is(err, errContinue) {
		return nil
	}
	return err
}

func (s *State) evalBody(body []parser.Stmt) error {
	for _, stmt := range body {
		if err := s.evalStmt(stmt); err != nil {
			return s.attachErrorInfo(err, stmt)
		}
	}
	return nil
}

// evalScoped evaluates body in a fresh scope frame.
func (s *State) evalScoped(body []parser.Stmt) error {
	s.pushScope()
	defer s.popScope()
	return s.evalBody(body)
}

func (s *State) evalStmt(stmt parser.Stmt) error {
	switch st := stmt.(type) {
	case *parser.EmitRaw:
		return s.write(st.Raw)

	case *parser.EmitExpr:
		val, err := s.evalExpr(st.Expr)
		if err != nil {
			return err
		}
		return s.writeValue(val, st.Expr)

	case *parser.ForLoop:
		return s.evalForLoop(st)

	case *parser.IfCond:
		return s.evalIfCond(st)

	case *parser.Case:
		return s.evalCase(st)

	case *parser.Assign:
		val, err := s.evalExpr(st.Expr)
		if err != nil {
			return err
		}
		s.assign(st.Name, val)
		return nil

	case *parser.Capture:
		return s.evalCapture(st)

	case *parser.Increment:
		return s.evalIncrement(st)

	case *parser.Include:
		return s.evalInclude(st)

	case *parser.Continue:
		return errContinue

	case *parser.Break:
		return errBreak

	default:
		return fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

// sentinel errors for loop control
var (
	errContinue = errors.New("continue")
	errBreak    = errors.New("break")
)

func (s *State) evalForLoop(loop *parser.ForLoop) error {
	iter, err := s.evalExpr(loop.Iter)
	if err != nil {
		return err
	}
	items := iter.Iter()

	if loop.Offset != nil {
		n, err := s.evalIntArg(loop.Offset, "offset")
		if err != nil {
			return err
		}
		if n > int64(len(items)) {
			n = int64(len(items))
		}
		if n > 0 {
			items = items[n:]
		}
	}
	if loop.Limit != nil {
		n, err := s.evalIntArg(loop.Limit, "limit")
		if err != nil {
			return err
		}
		if n < 0 {
			n = 0
		}
		if n < int64(len(items)) {
			items = items[:n]
		}
	}
	if loop.Reversed {
		reversed := make([]value.Value, len(items))
		for i, item := range items {
			reversed[len(items)-1-i] = item
		}
		items = reversed
	}

	if len(items) == 0 {
		return s.evalScoped(loop.ElseBody)
	}

	parent, hasParent := s.Lookup("forloop")

	s.pushScope()
	defer s.popScope()

	for i, item := range items {
		if err := s.budget.consume(1); err != nil {
			return err.WithSpan(loop.Span())
		}
		s.set(loop.Var, item)

		loopState := map[string]value.Value{
			"index":   value.FromInt(int64(i + 1)),
			"index0":  value.FromInt(int64(i)),
			"rindex":  value.FromInt(int64(len(items) - i)),
			"rindex0": value.FromInt(int64(len(items) - i - 1)),
			"first":   value.FromBool(i == 0),
			"last":    value.FromBool(i == len(items)-1),
			"length":  value.FromInt(int64(len(items))),
			"name":    value.FromString(loop.Var),
		}
		if hasParent {
			loopState["parentloop"] = parent
		}
		s.set("forloop", value.FromMap(loopState))

		err := s.evalBody(loop.Body)
		if errors.Is(err, errContinue) {
			continue
		}
		if errors.Is(err, errBreak) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *State) evalIntArg(expr parser.Expr, what string) (int64, error) {
	val, err := s.evalExpr(expr)
	if err != nil {
		return 0, err
	}
	if val.IsNil() {
		return 0, nil
	}
	n, ok := val.AsInt()
	if !ok {
		return 0, NewError(ErrInvalidOperation, fmt.Sprintf("%s must be a number, got %s", what, val.Repr())).WithSpan(expr.Span())
	}
	return n, nil
}

func (s *State) evalIfCond(cond *parser.IfCond) error {
	val, err := s.evalExpr(cond.Expr)
	if err != nil {
		return err
	}
	if val.IsTrue() {
		return s.evalScoped(cond.TrueBody)
	}
	return s.evalScoped(cond.FalseBody)
}

// evalCase renders the body of every matching when branch, or the else
// body when none matched.
func (s *State) evalCase(c *parser.Case) error {
	subject, err := s.evalExpr(c.Expr)
	if err != nil {
		return err
	}
	matched := false
	for _, when := range c.Whens {
		hit := false
		for _, expr := range when.Values {
			ok, err := s.matches(subject, expr)
			if err != nil {
				return err
			}
			if ok {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		matched = true
		if err := s.evalScoped(when.Body); err != nil {
			return err
		}
	}
	if !matched {
		return s.evalScoped(c.ElseBody)
	}
	return nil
}

func (s *State) matches(subject value.Value, expr parser.Expr) (bool, error) {
	if lit, ok := expr.(*parser.EmptyLit); ok {
		return matchesEmpty(subject, lit), nil
	}
	val, err := s.evalExpr(expr)
	if err != nil {
		return false, err
	}
	return subject.Equal(val), nil
}

func matchesEmpty(val value.Value, lit *parser.EmptyLit) bool {
	if lit.Blank {
		return val.IsBlank()
	}
	return val.IsEmpty()
}

func (s *State) evalCapture(c *parser.Capture) error {
	oldOut := s.out
	var sb strings.Builder
	s.out = &sb
	err := s.evalScoped(c.Body)
	s.out = oldOut
	if err != nil {
		return err
	}
	s.assign(c.Name, value.FromString(sb.String()))
	return nil
}

// evalIncrement outputs and updates a counter. Counters live in their own
// namespace: increment starts at 0 and outputs before counting up,
// decrement starts at -1 and outputs after counting down.
func (s *State) evalIncrement(inc *parser.Increment) error {
	n := s.counters[inc.Name]
	if inc.Decrement {
		n--
		s.counters[inc.Name] = n
		return s.write(value.FromInt(n).String())
	}
	s.counters[inc.Name] = n + 1
	return s.write(value.FromInt(n).String())
}

func (s *State) evalInclude(inc *parser.Include) error {
	name, err := s.env.resolveInclude(inc.Name, s.name, inc.Relative)
	if err != nil {
		return err
	}

	params := make(map[string]value.Value, len(inc.Params))
	for _, p := range inc.Params {
		v, err := s.evalExpr(p.Value)
		if err != nil {
			return err
		}
		params[p.Name] = v
	}

	s.depth++
	defer func() { s.depth-- }()
	if s.depth > maxIncludeDepth {
		return NewError(ErrResourceLimit, fmt.Sprintf("include depth exceeded while including '%s'", name)).WithPath(name)
	}

	tmpl, err := s.env.GetTemplate(name)
	if err != nil {
		return err
	}

	s.pushScope()
	defer s.popScope()
	if len(inc.Params) > 0 {
		s.set("include", value.FromMap(params))
	}

	oldName, oldSource := s.name, s.source
	s.name, s.source = tmpl.Name(), tmpl.Source()
	defer func() { s.name, s.source = oldName, oldSource }()

	err = s.evalBody(tmpl.compiled.ast.Children)
	if errors.Is(err, errBreak) || errors.Is(err, errContinue) {
		return nil
	}
	return err
}

// writeValue interpolates a value. Sequences and maps have no text form.
func (s *State) writeValue(val value.Value, expr parser.Expr) error {
	if !val.IsScalar() {
		path := exprPath(expr)
		return NewError(ErrNonScalarInterpolation,
			fmt.Sprintf("cannot interpolate %s '%s'; use a loop or a filter such as join or jsonify", val.Kind(), path)).
			WithPath(path).WithSpan(expr.Span())
	}
	return s.write(val.String())
}

func (s *State) evalExpr(expr parser.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *parser.Const:
		return value.FromAny(e.Value), nil

	case *parser.EmptyLit:
		return value.FromString(""), nil

	case *parser.Var:
		if v, ok := s.Lookup(e.ID); ok {
			return v, nil
		}
		return s.undefined(e.ID, e)

	case *parser.GetAttr:
		return s.evalGetAttr(e)

	case *parser.GetItem:
		return s.evalGetItem(e)

	case *parser.Range:
		return s.evalRange(e)

	case *parser.BinOp:
		return s.evalBinOp(e)

	case *parser.Not:
		val, err := s.evalExpr(e.Expr)
		if err != nil {
			return value.Undefined(), err
		}
		return value.FromBool(!val.IsTrue()), nil

	case *parser.Filter:
		val, err := s.evalExpr(e.Expr)
		if err != nil {
			return value.Undefined(), err
		}
		return s.applyFilterCall(e, val)

	default:
		return value.Undefined(), fmt.Errorf("unsupported expression type: %T", expr)
	}
}

func (s *State) evalGetAttr(ga *parser.GetAttr) (value.Value, error) {
	base, err := s.evalExpr(ga.Expr)
	if err != nil {
		return value.Undefined(), err
	}
	if v, ok := attr(base, ga.Name); ok {
		return v, nil
	}
	return s.undefined(exprPath(ga), ga)
}

func (s *State) evalGetItem(gi *parser.GetItem) (value.Value, error) {
	base, err := s.evalExpr(gi.Expr)
	if err != nil {
		return value.Undefined(), err
	}
	key, err := s.evalExpr(gi.SubscriptExpr)
	if err != nil {
		return value.Undefined(), err
	}
	if _, isSeq := base.AsSlice(); isSeq && key.IsInt() {
		if v := base.GetItem(key); !v.IsUndefined() {
			return v, nil
		}
	} else if v, ok := attr(base, key.String()); ok {
		return v, nil
	}
	return s.undefined(exprPath(gi), gi)
}

// attr looks up a map entry, falling back to the size, first and last
// pseudo-properties.
func attr(val value.Value, name string) (value.Value, bool) {
	if v, ok := val.Lookup(name); ok {
		return v, true
	}
	switch name {
	case "size":
		if n, ok := val.Len(); ok {
			return value.FromInt(int64(n)), true
		}
	case "first", "last":
		if items, ok := val.AsSlice(); ok {
			if len(items) == 0 {
				return value.Nil(), true
			}
			if name == "first" {
				return items[0], true
			}
			return items[len(items)-1], true
		}
	}
	return value.Undefined(), false
}

func (s *State) evalRange(r *parser.Range) (value.Value, error) {
	start, err := s.evalIntArg(r.Start, "range start")
	if err != nil {
		return value.Undefined(), err
	}
	end, err := s.evalIntArg(r.End, "range end")
	if err != nil {
		return value.Undefined(), err
	}
	if end < start {
		return value.FromSlice(nil), nil
	}
	if end-start >= maxRangeLen {
		return value.Undefined(), NewError(ErrResourceLimit,
			fmt.Sprintf("range (%d..%d) exceeds %d items", start, end, maxRangeLen)).WithSpan(r.Span())
	}
	items := make([]value.Value, 0, end-start+1)
	for i := start; i <= end; i++ {
		items = append(items, value.FromInt(i))
	}
	return value.FromSlice(items), nil
}

func (s *State) evalBinOp(op *parser.BinOp) (value.Value, error) {
	switch op.Op {
	case parser.BinOpAnd, parser.BinOpOr:
		left, err := s.evalExpr(op.Left)
		if err != nil {
			return value.Undefined(), err
		}
		if op.Op == parser.BinOpAnd && !left.IsTrue() {
			return value.FromBool(false), nil
		}
		if op.Op == parser.BinOpOr && left.IsTrue() {
			return value.FromBool(true), nil
		}
		right, err := s.evalExpr(op.Right)
		if err != nil {
			return value.Undefined(), err
		}
		return value.FromBool(right.IsTrue()), nil
	}

	if op.Op == parser.BinOpEq || op.Op == parser.BinOpNe {
		var eq bool
		if lit, ok := op.Right.(*parser.EmptyLit); ok {
			left, err := s.evalExpr(op.Left)
			if err != nil {
				return value.Undefined(), err
			}
			eq = matchesEmpty(left, lit)
		} else if lit, ok := op.Left.(*parser.EmptyLit); ok {
			right, err := s.evalExpr(op.Right)
			if err != nil {
				return value.Undefined(), err
			}
			eq = matchesEmpty(right, lit)
		} else {
			left, right, err := s.evalOperands(op)
			if err != nil {
				return value.Undefined(), err
			}
			eq = left.Equal(right)
		}
		if op.Op == parser.BinOpNe {
			eq = !eq
		}
		return value.FromBool(eq), nil
	}

	left, right, err := s.evalOperands(op)
	if err != nil {
		return value.Undefined(), err
	}

	if op.Op == parser.BinOpContains {
		return value.FromBool(left.Contains(right)), nil
	}

	c, ok := left.Compare(right)
	if !ok {
		if left.IsNil() || right.IsNil() {
			return value.FromBool(false), nil
		}
		return value.Undefined(), NewError(ErrInvalidOperation,
			fmt.Sprintf("comparison of %s with %s failed", left.Repr(), right.Repr())).WithSpan(op.Span())
	}
	switch op.Op {
	case parser.BinOpLt:
		return value.FromBool(c < 0), nil
	case parser.BinOpLe:
		return value.FromBool(c <= 0), nil
	case parser.BinOpGt:
		return value.FromBool(c > 0), nil
	case parser.BinOpGe:
		return value.FromBool(c >= 0), nil
	}
	return value.Undefined(), fmt.Errorf("unsupported operator: %s", op.Op)
}

func (s *State) evalOperands(op *parser.BinOp) (value.Value, value.Value, error) {
	left, err := s.evalExpr(op.Left)
	if err != nil {
		return value.Undefined(), value.Undefined(), err
	}
	right, err := s.evalExpr(op.Right)
	if err != nil {
		return value.Undefined(), value.Undefined(), err
	}
	return left, right, nil
}

func (s *State) applyFilterCall(f *parser.Filter, val value.Value) (value.Value, error) {
	args := make([]value.Value, 0, len(f.Args))
	for _, arg := range f.Args {
		v, err := s.evalExpr(arg)
		if err != nil {
			return value.Undefined(), err
		}
		args = append(args, v)
	}
	var kwargs map[string]value.Value
	if len(f.Kwargs) > 0 {
		kwargs = make(map[string]value.Value, len(f.Kwargs))
		for _, kw := range f.Kwargs {
			v, err := s.evalExpr(kw.Value)
			if err != nil {
				return value.Undefined(), err
			}
			kwargs[kw.Name] = v
		}
	}
	return s.applyFilter(f.Name, val, args, kwargs, f)
}

func (s *State) applyFilter(name string, val value.Value, args []value.Value, kwargs map[string]value.Value, node parser.Node) (value.Value, error) {
	filterFn, ok := s.env.getFilter(name)
	if !ok {
		if !s.env.opts.StrictFilters {
			return val, nil
		}
		err := NewError(ErrUndefinedFilter, fmt.Sprintf("undefined filter '%s'", name)).WithPath(name)
		if node != nil {
			err.WithSpan(node.Span())
		}
		return value.Undefined(), err
	}

	if kwargs == nil {
		kwargs = map[string]value.Value{}
	}
	result, err := filterFn(s, val, args, kwargs)
	if err == nil {
		return result, nil
	}
	var lerr *Error
	if !errors.As(err, &lerr) {
		lerr = NewError(ErrInvalidOperation, fmt.Sprintf("filter '%s' failed", name)).WithCause(err)
	}
	if lerr.Path == "" {
		lerr.WithPath(name)
	}
	if lerr.Span == nil && node != nil {
		lerr.WithSpan(node.Span())
	}
	return value.Undefined(), lerr
}

// exprPath renders the variable path an expression refers to, for error
// messages.
func exprPath(expr parser.Expr) string {
	switch e := expr.(type) {
	case *parser.Var:
		return e.ID
	case *parser.GetAttr:
		return exprPath(e.Expr) + "." + e.Name
	case *parser.GetItem:
		if c, ok := e.SubscriptExpr.(*parser.Const); ok {
			if str, ok := c.Value.(string); ok {
				return fmt.Sprintf("%s[%q]", exprPath(e.Expr), str)
			}
			return fmt.Sprintf("%s[%v]", exprPath(e.Expr), c.Value)
		}
		return exprPath(e.Expr) + "[...]"
	case *parser.Filter:
		return exprPath(e.Expr)
	case *parser.Range:
		return "range"
	case *parser.Const:
		return fmt.Sprintf("%v", e.Value)
	default:
		return "expression"
	}
}
