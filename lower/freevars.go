package lower

import (
	"fmt"

	"clamc/mcore"
)

// IdentSet is an insertion-ordered set of identifiers.  Iteration order is
// first-occurrence order so downstream capture lists are reproducible.
type IdentSet struct {
	members map[*mcore.Ident]bool
	order   []*mcore.Ident
}

// NewIdentSet creates an identifier set seeded with the given members.
func NewIdentSet(ids ...*mcore.Ident) *IdentSet {
	s := &IdentSet{members: make(map[*mcore.Ident]bool)}

	for _, id := range ids {
		s.Add(id)
	}

	return s
}

// Add inserts the identifier, preserving first-occurrence order.
func (s *IdentSet) Add(id *mcore.Ident) {
	if !s.members[id] {
		s.members[id] = true
		s.order = append(s.order, id)
	}
}

// Has returns whether the identifier is a member.
func (s *IdentSet) Has(id *mcore.Ident) bool {
	return s.members[id]
}

// Slice returns the members in first-occurrence order.  The returned slice
// is shared; callers must not mutate it.
func (s *IdentSet) Slice() []*mcore.Ident {
	return s.order
}

// Len returns the member count.
func (s *IdentSet) Len() int {
	return len(s.order)
}

// -----------------------------------------------------------------------------

// FreeVars computes the free identifiers of a function literal in
// first-occurrence order.  Exclude may be nil.  Package-qualified and
// local-method identifiers are globals and never appear in the result; join
// callees are second-class and are likewise skipped.
func FreeVars(fn *mcore.Func, exclude *IdentSet) *IdentSet {
	fv := &fvWalker{
		exclude: exclude,
		bound:   make(map[*mcore.Ident]int),
		free:    NewIdentSet(),
	}

	fv.bindAll(fn.Params)
	fv.walk(fn.Body)
	fv.unbindAll(fn.Params)
	return fv.free
}

// FreeVarsExpr computes the free identifiers of a bare expression.
func FreeVarsExpr(e mcore.Expr, exclude *IdentSet) *IdentSet {
	fv := &fvWalker{
		exclude: exclude,
		bound:   make(map[*mcore.Ident]int),
		free:    NewIdentSet(),
	}

	fv.walk(e)
	return fv.free
}

type fvWalker struct {
	exclude *IdentSet
	bound   map[*mcore.Ident]int
	free    *IdentSet
}

func (fv *fvWalker) bind(id *mcore.Ident) {
	fv.bound[id]++
}

func (fv *fvWalker) unbind(id *mcore.Ident) {
	fv.bound[id]--
}

func (fv *fvWalker) bindAll(ids []*mcore.Ident) {
	for _, id := range ids {
		fv.bind(id)
	}
}

func (fv *fvWalker) unbindAll(ids []*mcore.Ident) {
	for _, id := range ids {
		fv.unbind(id)
	}
}

func (fv *fvWalker) reference(id *mcore.Ident) {
	if id.IsGlobal() || fv.bound[id] > 0 {
		return
	}

	if fv.exclude != nil && fv.exclude.Has(id) {
		return
	}

	fv.free.Add(id)
}

func (fv *fvWalker) walk(e mcore.Expr) {
	switch e := e.(type) {
	case *mcore.Const:
		// no names

	case *mcore.Var:
		fv.reference(e.Id)

	case *mcore.PrimApply:
		fv.walkAll(e.Args)

	case *mcore.And:
		fv.walk(e.Lhs)
		fv.walk(e.Rhs)

	case *mcore.Or:
		fv.walk(e.Lhs)
		fv.walk(e.Rhs)

	case *mcore.Let:
		fv.walk(e.Value)
		fv.bind(e.Name)
		fv.walk(e.Body)
		fv.unbind(e.Name)

	case *mcore.LetFn:
		if e.Rec {
			fv.bind(e.Name)
		}

		fv.walkFunc(e.Fn)

		if !e.Rec {
			fv.bind(e.Name)
		}

		fv.walk(e.Body)
		fv.unbind(e.Name)

	case *mcore.LetRec:
		for _, b := range e.Bindings {
			fv.bind(b.Name)
		}

		for _, b := range e.Bindings {
			fv.walkFunc(b.Fn)
		}

		fv.walk(e.Body)

		for _, b := range e.Bindings {
			fv.unbind(b.Name)
		}

	case *mcore.Function:
		fv.walkFunc(e.Fn)

	case *mcore.Apply:
		if _, isJoin := e.Kind.(mcore.ApplyJoin); !isJoin {
			fv.reference(e.Callee)
		}

		fv.walkAll(e.Args)

	case *mcore.Tuple:
		fv.walkAll(e.Elems)

	case *mcore.Record:
		fv.walkAll(e.Fields)

	case *mcore.RecordUpdate:
		fv.walk(e.Record)
		for _, u := range e.Updates {
			fv.walk(u.Value)
		}

	case *mcore.FieldAccess:
		fv.walk(e.Record)

	case *mcore.Mutate:
		fv.walk(e.Record)
		fv.walk(e.Value)

	case *mcore.Constr:
		fv.walkAll(e.Args)

	case *mcore.ArrayLit:
		fv.walkAll(e.Elems)

	case *mcore.Assign:
		fv.reference(e.Id)
		fv.walk(e.Value)

	case *mcore.Sequence:
		fv.walkAll(e.Exprs)
		fv.walk(e.Last)

	case *mcore.If:
		fv.walk(e.Cond)
		fv.walk(e.Then)
		fv.walk(e.Else)

	case *mcore.SwitchConstr:
		fv.walk(e.Obj)

		for _, c := range e.Cases {
			if c.Binder != nil {
				fv.bind(c.Binder)
			}

			fv.walk(c.Body)

			if c.Binder != nil {
				fv.unbind(c.Binder)
			}
		}

		if e.Default != nil {
			fv.walk(e.Default)
		}

	case *mcore.SwitchConstant:
		fv.walk(e.Obj)

		for _, c := range e.Cases {
			fv.walk(c.Body)
		}

		if e.Default != nil {
			fv.walk(e.Default)
		}

	case *mcore.Loop:
		fv.walkAll(e.Args)
		fv.bindAll(e.Params)
		fv.walk(e.Body)
		fv.unbindAll(e.Params)

	case *mcore.Break:
		if e.Arg != nil {
			fv.walk(e.Arg)
		}

	case *mcore.Continue:
		fv.walkAll(e.Args)

	case *mcore.Return:
		fv.walk(e.Value)

	case *mcore.HandleError:
		fv.walk(e.Obj)

	case *mcore.MakeObject:
		fv.walk(e.Obj)

	default:
		panic(fmt.Sprintf("free vars: unhandled expression %T", e))
	}
}

func (fv *fvWalker) walkFunc(fn *mcore.Func) {
	fv.bindAll(fn.Params)
	fv.walk(fn.Body)
	fv.unbindAll(fn.Params)
}

func (fv *fvWalker) walkAll(es []mcore.Expr) {
	for _, e := range es {
		fv.walk(e)
	}
}
