package liquidpage

import (
	lperrors "github.com/v3gtb/liquidpage/internal/errors"
	"github.com/v3gtb/liquidpage/parser"
	"github.com/v3gtb/liquidpage/value"
)

// attachErrorInfo fills in the template name, source and location of a
// render error, and with Options.Debug the variables the failing node
// referenced.
func (s *State) attachErrorInfo(err error, node parser.Node) error {
	if err == nil || s.env == nil {
		return err
	}
	templErr, ok := err.(*Error)
	if !ok {
		return err
	}
	if templErr.Name == "" {
		templErr.WithName(s.name)
	}
	if templErr.Source == "" {
		templErr.WithSource(s.source)
	}
	if templErr.Span == nil && node != nil {
		templErr.WithSpan(node.Span())
	}
	if s.env.opts.Debug && templErr.DebugInfo == nil {
		templErr.WithDebugInfo(s.makeDebugInfo(node))
	}
	return err
}

func (s *State) makeDebugInfo(node parser.Node) lperrors.DebugInfo {
	referenced := map[string]struct{}{}
	if node != nil {
		switch typed := node.(type) {
		case parser.Expr:
			collectReferencedNamesExpr(typed, referenced)
		case parser.Stmt:
			collectReferencedNamesStmt(typed, referenced)
		}
	}

	locals := make(map[string]value.Value, len(referenced))
	for name := range referenced {
		if val, ok := s.Lookup(name); ok {
			locals[name] = val
		}
	}

	return lperrors.DebugInfo{
		TemplateSource:   s.source,
		ReferencedLocals: locals,
	}
}

func collectReferencedNamesStmt(stmt parser.Stmt, referenced map[string]struct{}) {
	switch s := stmt.(type) {
	case *parser.EmitExpr:
		collectReferencedNamesExpr(s.Expr, referenced)
	case *parser.ForLoop:
		collectReferencedNamesExpr(s.Iter, referenced)
		collectReferencedNamesExpr(s.Limit, referenced)
		collectReferencedNamesExpr(s.Offset, referenced)
	case *parser.IfCond:
		collectReferencedNamesExpr(s.Expr, referenced)
	case *parser.Case:
		collectReferencedNamesExpr(s.Expr, referenced)
		for _, when := range s.Whens {
			for _, v := range when.Values {
				collectReferencedNamesExpr(v, referenced)
			}
		}
	case *parser.Assign:
		collectReferencedNamesExpr(s.Expr, referenced)
	case *parser.Include:
		for _, p := range s.Params {
			collectReferencedNamesExpr(p.Value, referenced)
		}
	}
}

func collectReferencedNamesExpr(expr parser.Expr, referenced map[string]struct{}) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *parser.Var:
		referenced[e.ID] = struct{}{}
	case *parser.Not:
		collectReferencedNamesExpr(e.Expr, referenced)
	case *parser.BinOp:
		collectReferencedNamesExpr(e.Left, referenced)
		collectReferencedNamesExpr(e.Right, referenced)
	case *parser.Filter:
		collectReferencedNamesExpr(e.Expr, referenced)
		for _, arg := range e.Args {
			collectReferencedNamesExpr(arg, referenced)
		}
		for _, kw := range e.Kwargs {
			collectReferencedNamesExpr(kw.Value, referenced)
		}
	case *parser.GetAttr:
		collectReferencedNamesExpr(e.Expr, referenced)
	case *parser.GetItem:
		collectReferencedNamesExpr(e.Expr, referenced)
		collectReferencedNamesExpr(e.SubscriptExpr, referenced)
	case *parser.Range:
		collectReferencedNamesExpr(e.Start, referenced)
		collectReferencedNamesExpr(e.End, referenced)
	}
}
