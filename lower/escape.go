package lower

import "clamc/mcore"

// ComputeEscapeSet collects every identifier referenced as a value anywhere
// in the program.  Call-target positions do not count: a function only in
// the set may not be lowered well-known.
func ComputeEscapeSet(prog *mcore.Program) *IdentSet {
	es := &escapeWalker{set: NewIdentSet()}

	for _, item := range prog.Items {
		switch item := item.(type) {
		case *mcore.TopLet:
			es.walk(item.Value)
		case *mcore.TopFn:
			es.walkFunc(item.Fn)
		case *mcore.TopExpr:
			es.walk(item.Expr)
		case *mcore.TopStub:
			// no body
		}
	}

	return es.set
}

type escapeWalker struct {
	set *IdentSet
}

func (es *escapeWalker) walkFunc(fn *mcore.Func) {
	es.walk(fn.Body)
}

func (es *escapeWalker) walk(e mcore.Expr) {
	switch e := e.(type) {
	case *mcore.Const:

	case *mcore.Var:
		es.set.Add(e.Id)

	case *mcore.PrimApply:
		es.walkAll(e.Args)

	case *mcore.And:
		es.walk(e.Lhs)
		es.walk(e.Rhs)

	case *mcore.Or:
		es.walk(e.Lhs)
		es.walk(e.Rhs)

	case *mcore.Let:
		es.walk(e.Value)
		es.walk(e.Body)

	case *mcore.LetFn:
		es.walkFunc(e.Fn)
		es.walk(e.Body)

	case *mcore.LetRec:
		for _, b := range e.Bindings {
			es.walkFunc(b.Fn)
		}

		es.walk(e.Body)

	case *mcore.Function:
		es.walkFunc(e.Fn)

	case *mcore.Apply:
		// The callee position is a direct call, not a value use.
		es.walkAll(e.Args)

	case *mcore.Tuple:
		es.walkAll(e.Elems)

	case *mcore.Record:
		es.walkAll(e.Fields)

	case *mcore.RecordUpdate:
		es.walk(e.Record)
		for _, u := range e.Updates {
			es.walk(u.Value)
		}

	case *mcore.FieldAccess:
		es.walk(e.Record)

	case *mcore.Mutate:
		es.walk(e.Record)
		es.walk(e.Value)

	case *mcore.Constr:
		es.walkAll(e.Args)

	case *mcore.ArrayLit:
		es.walkAll(e.Elems)

	case *mcore.Assign:
		es.walk(e.Value)

	case *mcore.Sequence:
		es.walkAll(e.Exprs)
		es.walk(e.Last)

	case *mcore.If:
		es.walk(e.Cond)
		es.walk(e.Then)
		es.walk(e.Else)

	case *mcore.SwitchConstr:
		es.walk(e.Obj)

		for _, c := range e.Cases {
			es.walk(c.Body)
		}

		if e.Default != nil {
			es.walk(e.Default)
		}

	case *mcore.SwitchConstant:
		es.walk(e.Obj)

		for _, c := range e.Cases {
			es.walk(c.Body)
		}

		if e.Default != nil {
			es.walk(e.Default)
		}

	case *mcore.Loop:
		es.walkAll(e.Args)
		es.walk(e.Body)

	case *mcore.Break:
		if e.Arg != nil {
			es.walk(e.Arg)
		}

	case *mcore.Continue:
		es.walkAll(e.Args)

	case *mcore.Return:
		es.walk(e.Value)

	case *mcore.HandleError:
		es.walk(e.Obj)

	case *mcore.MakeObject:
		es.walk(e.Obj)
	}
}

func (es *escapeWalker) walkAll(exprs []mcore.Expr) {
	for _, e := range exprs {
		es.walk(e)
	}
}
