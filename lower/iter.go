package lower

import (
	"clamc/clam"
	"clamc/mcore"
)

// The iterator intrinsics are rewritten into plain MCore and pushed back
// through the normal lowering path, so the synthesized sinks and wrappers get
// closure-converted like any user function.  An iterator is a closure that
// feeds elements to a sink until the sink answers end; the iterator returns
// the status its run finished with.

var boolTy = mcore.PrimType(mcore.PrimBool)

func (lo *Lowerer) rewriteIterIntrinsic(in mcore.Intrinsic, e *mcore.Apply) clam.Lambda {
	var l clam.Lambda

	switch in {
	case mcore.FixedArrayIter:
		l = lo.rewriteFixedArrayIter(e)

	case mcore.IterIter:
		l = lo.rewriteIterIter(e)

	case mcore.IterMap:
		l = lo.rewriteIterMap(e)

	case mcore.IterFilter:
		l = lo.rewriteIterFilter(e)

	case mcore.IterTake:
		l = lo.rewriteIterTake(e)

	case mcore.IterReduce:
		l = lo.rewriteIterReduce(e)

	case mcore.IterFlatMap:
		l = lo.rewriteIterFlatMap(e)

	case mcore.IterRepeat:
		l = lo.rewriteIterRepeat(e)

	case mcore.IterConcat:
		l = lo.rewriteIterConcat(e)

	case mcore.IterFromArray:
		l = lo.rewriteIterFromArray(e)

	default:
		lo.ice("unhandled intrinsic %s", in)
	}

	tagIntrinsic(l, in)
	return l
}

// tagIntrinsic marks the driving application of a rewritten intrinsic so
// dumps can trace the lowered code back to its source method.
func tagIntrinsic(l clam.Lambda, in mcore.Intrinsic) {
	for {
		switch n := l.(type) {
		case *clam.Levent:
			l = n.Expr
		case *clam.Llet:
			l = n.Body
		case *clam.Lsequence:
			if len(n.Exprs) == 0 {
				return
			}
			l = n.Exprs[0]
		case *clam.Lapply:
			n.Intrinsic = in
			return
		default:
			return
		}
	}
}

// -----------------------------------------------------------------------------

// synth hoists intrinsic arguments into let bindings so each is evaluated
// exactly once, in source order, before the synthesized body runs.
type synth struct {
	lo   *Lowerer
	lets []synthLet
}

type synthLet struct {
	name  *mcore.Ident
	value mcore.Expr
}

// bind names an argument used in call position, which always needs an
// identifier.  A plain variable reference is reused under its own name;
// anything else is let-bound to a fresh one.
func (sy *synth) bind(e mcore.Expr, hint string) *mcore.Ident {
	if v, ok := e.(*mcore.Var); ok {
		return v.Id
	}

	id := sy.lo.gen.Fresh(hint, e.Type())
	sy.lets = append(sy.lets, synthLet{name: id, value: e})
	return id
}

// bindValue prepares an argument used in value position.  Variables,
// constants, and function literals are pure and are used in place; anything
// else is let-bound like a call-position argument.
func (sy *synth) bindValue(e mcore.Expr, hint string) mcore.Expr {
	switch e.(type) {
	case *mcore.Var, *mcore.Const, *mcore.Function:
		return e
	}

	return vr(sy.bind(e, hint), e.Type())
}

// wrap closes the accumulated bindings around the synthesized body.
func (sy *synth) wrap(body mcore.Expr) mcore.Expr {
	for i := len(sy.lets) - 1; i >= 0; i-- {
		l := sy.lets[i]
		body = &mcore.Let{
			ExprBase: eb(body.Type()),
			Name:     l.name,
			Value:    l.value,
			Body:     body,
		}
	}

	return body
}

// -----------------------------------------------------------------------------

func eb(ty mcore.DataType) mcore.ExprBase {
	return mcore.NewExprBase(ty, nil)
}

func sinkTy(elem mcore.DataType) *mcore.FuncType {
	return &mcore.FuncType{Params: []mcore.DataType{elem}, Ret: intTy}
}

func iterFnTy(elem mcore.DataType) *mcore.FuncType {
	return &mcore.FuncType{Params: []mcore.DataType{sinkTy(elem)}, Ret: intTy}
}

func vr(id *mcore.Ident, ty mcore.DataType) *mcore.Var {
	return &mcore.Var{ExprBase: eb(ty), Id: id}
}

func capply(callee *mcore.Ident, fnTy *mcore.FuncType, args ...mcore.Expr) *mcore.Apply {
	return &mcore.Apply{
		ExprBase: eb(fnTy.Ret),
		Callee:   callee,
		Args:     args,
		Kind:     mcore.ApplyNormal{FuncTy: fnTy},
	}
}

func fun(params []*mcore.Ident, body mcore.Expr, ty *mcore.FuncType) *mcore.Function {
	return &mcore.Function{
		ExprBase: eb(ty),
		Fn:       &mcore.Func{Params: params, Body: body, Ty: ty},
	}
}

func statusGo() *mcore.Const {
	return &mcore.Const{ExprBase: eb(intTy), Value: mcore.NewIntConst(iterGo)}
}

func statusEnd() *mcore.Const {
	return &mcore.Const{ExprBase: eb(intTy), Value: mcore.NewIntConst(iterEnd)}
}

func unitVal() *mcore.Const {
	return &mcore.Const{ExprBase: eb(unitTy), Value: mcore.UnitConst}
}

func intVal(v int64) *mcore.Const {
	return &mcore.Const{ExprBase: eb(intTy), Value: mcore.NewIntConst(v)}
}

func prim(p mcore.Prim, ty mcore.DataType, args ...mcore.Expr) *mcore.PrimApply {
	return &mcore.PrimApply{ExprBase: eb(ty), Prim: p, Args: args}
}

// wantsMore tests an iterator or sink status for go.
func wantsMore(status mcore.Expr) mcore.Expr {
	return prim(mcore.PeqInt, boolTy, status, statusGo())
}

func (lo *Lowerer) iterElemOf(ty mcore.DataType) mcore.DataType {
	it, ok := ty.(*mcore.IterType)
	if !ok {
		lo.ice("iterator intrinsic on non-iterator type %s", ty.Repr())
	}

	return it.Elem
}

// stateCell builds a one-field mutable record type for loop state threaded
// through a sink.  Each rewrite site gets its own cell type.
func stateCell(name string, ty mcore.DataType) *mcore.StructType {
	return &mcore.StructType{
		Name:   name,
		Fields: []mcore.Field{{Name: "value", Ty: ty, Mutable: true}},
	}
}

func cellRead(cell *mcore.Ident, st *mcore.StructType) *mcore.FieldAccess {
	return &mcore.FieldAccess{
		ExprBase: eb(st.Fields[0].Ty),
		Record:   vr(cell, st),
		Index:    0,
		Name:     st.Fields[0].Name,
	}
}

func cellWrite(cell *mcore.Ident, st *mcore.StructType, value mcore.Expr) *mcore.Mutate {
	return &mcore.Mutate{
		ExprBase: eb(unitTy),
		Record:   vr(cell, st),
		Index:    0,
		Value:    value,
	}
}

// -----------------------------------------------------------------------------

// rewriteIterIter drains an iterator for effect: every element is passed to
// the consumer and the sink always requests more.
func (lo *Lowerer) rewriteIterIter(e *mcore.Apply) clam.Lambda {
	elem := lo.iterElemOf(e.Args[0].Type())
	fTy := e.Args[1].Type().(*mcore.FuncType)

	sy := &synth{lo: lo}
	it := sy.bind(e.Args[0], "it")
	f := sy.bind(e.Args[1], "f")

	a := lo.gen.Fresh("elem", elem)
	sink := fun([]*mcore.Ident{a},
		&mcore.Sequence{
			ExprBase: eb(intTy),
			Exprs:    []mcore.Expr{capply(f, fTy, vr(a, elem))},
			Last:     statusGo(),
		},
		sinkTy(elem))

	body := &mcore.Sequence{
		ExprBase: eb(unitTy),
		Exprs:    []mcore.Expr{capply(it, iterFnTy(elem), sink)},
		Last:     unitVal(),
	}

	return lo.lowerExpr(sy.wrap(body))
}

// rewriteIterMap fuses the mapping function into the sink: the result runs
// the source iterator with a sink that transforms before forwarding.
func (lo *Lowerer) rewriteIterMap(e *mcore.Apply) clam.Lambda {
	elemIn := lo.iterElemOf(e.Args[0].Type())
	elemOut := lo.iterElemOf(e.Type())
	fTy := e.Args[1].Type().(*mcore.FuncType)

	sy := &synth{lo: lo}
	it := sy.bind(e.Args[0], "it")
	f := sy.bind(e.Args[1], "f")

	k := lo.gen.Fresh("sink", sinkTy(elemOut))
	a := lo.gen.Fresh("elem", elemIn)

	inner := fun([]*mcore.Ident{a},
		capply(k, sinkTy(elemOut), capply(f, fTy, vr(a, elemIn))),
		sinkTy(elemIn))

	outer := fun([]*mcore.Ident{k},
		capply(it, iterFnTy(elemIn), inner),
		iterFnTy(elemOut))

	return lo.lowerExpr(sy.wrap(outer))
}

// rewriteIterFilter forwards only elements the predicate accepts; rejected
// elements answer go so the source keeps producing.
func (lo *Lowerer) rewriteIterFilter(e *mcore.Apply) clam.Lambda {
	elem := lo.iterElemOf(e.Args[0].Type())
	pTy := e.Args[1].Type().(*mcore.FuncType)

	sy := &synth{lo: lo}
	it := sy.bind(e.Args[0], "it")
	p := sy.bind(e.Args[1], "pred")

	k := lo.gen.Fresh("sink", sinkTy(elem))
	a := lo.gen.Fresh("elem", elem)

	inner := fun([]*mcore.Ident{a},
		&mcore.If{
			ExprBase: eb(intTy),
			Cond:     capply(p, pTy, vr(a, elem)),
			Then:     capply(k, sinkTy(elem), vr(a, elem)),
			Else:     statusGo(),
		},
		sinkTy(elem))

	outer := fun([]*mcore.Ident{k},
		capply(it, iterFnTy(elem), inner),
		iterFnTy(elem))

	return lo.lowerExpr(sy.wrap(outer))
}

// rewriteIterTake counts delivered elements in a per-run mutable cell and
// answers end once the limit is reached.
func (lo *Lowerer) rewriteIterTake(e *mcore.Apply) clam.Lambda {
	elem := lo.iterElemOf(e.Args[0].Type())

	sy := &synth{lo: lo}
	it := sy.bind(e.Args[0], "it")
	n := sy.bindValue(e.Args[1], "limit")

	st := stateCell("take.state", intTy)
	cell := lo.gen.Fresh("taken", st)

	k := lo.gen.Fresh("sink", sinkTy(elem))
	a := lo.gen.Fresh("elem", elem)

	inner := fun([]*mcore.Ident{a},
		&mcore.If{
			ExprBase: eb(intTy),
			Cond:     prim(mcore.PltInt, boolTy, cellRead(cell, st), n),
			Then: &mcore.Sequence{
				ExprBase: eb(intTy),
				Exprs: []mcore.Expr{
					cellWrite(cell, st, prim(mcore.PaddInt, intTy, cellRead(cell, st), intVal(1))),
				},
				Last: capply(k, sinkTy(elem), vr(a, elem)),
			},
			Else: statusEnd(),
		},
		sinkTy(elem))

	outer := fun([]*mcore.Ident{k},
		&mcore.Let{
			ExprBase: eb(intTy),
			Name:     cell,
			Value:    &mcore.Record{ExprBase: eb(st), Fields: []mcore.Expr{intVal(0)}},
			Body:     capply(it, iterFnTy(elem), inner),
		},
		iterFnTy(elem))

	return lo.lowerExpr(sy.wrap(outer))
}

// rewriteIterReduce folds the iterator into an accumulator cell and reads the
// cell out once the run finishes.
func (lo *Lowerer) rewriteIterReduce(e *mcore.Apply) clam.Lambda {
	elem := lo.iterElemOf(e.Args[0].Type())
	accTy := e.Type()
	fTy := e.Args[2].Type().(*mcore.FuncType)

	sy := &synth{lo: lo}
	it := sy.bind(e.Args[0], "it")
	init := sy.bindValue(e.Args[1], "init")
	f := sy.bind(e.Args[2], "f")

	st := stateCell("reduce.state", accTy)
	cell := lo.gen.Fresh("acc", st)

	a := lo.gen.Fresh("elem", elem)
	sink := fun([]*mcore.Ident{a},
		&mcore.Sequence{
			ExprBase: eb(intTy),
			Exprs: []mcore.Expr{
				cellWrite(cell, st, capply(f, fTy, cellRead(cell, st), vr(a, elem))),
			},
			Last: statusGo(),
		},
		sinkTy(elem))

	body := &mcore.Let{
		ExprBase: eb(accTy),
		Name:     cell,
		Value:    &mcore.Record{ExprBase: eb(st), Fields: []mcore.Expr{init}},
		Body: &mcore.Sequence{
			ExprBase: eb(accTy),
			Exprs:    []mcore.Expr{capply(it, iterFnTy(elem), sink)},
			Last:     cellRead(cell, st),
		},
	}

	return lo.lowerExpr(sy.wrap(body))
}

// rewriteIterFlatMap runs each produced inner iterator against the outer
// sink; an inner run that ends early ends the outer run too.
func (lo *Lowerer) rewriteIterFlatMap(e *mcore.Apply) clam.Lambda {
	elemIn := lo.iterElemOf(e.Args[0].Type())
	elemOut := lo.iterElemOf(e.Type())
	fTy := e.Args[1].Type().(*mcore.FuncType)

	sy := &synth{lo: lo}
	it := sy.bind(e.Args[0], "it")
	f := sy.bind(e.Args[1], "f")

	k := lo.gen.Fresh("sink", sinkTy(elemOut))
	a := lo.gen.Fresh("elem", elemIn)
	g := lo.gen.Fresh("inner", fTy.Ret)

	inner := fun([]*mcore.Ident{a},
		&mcore.Let{
			ExprBase: eb(intTy),
			Name:     g,
			Value:    capply(f, fTy, vr(a, elemIn)),
			Body:     capply(g, iterFnTy(elemOut), vr(k, sinkTy(elemOut))),
		},
		sinkTy(elemIn))

	outer := fun([]*mcore.Ident{k},
		capply(it, iterFnTy(elemIn), inner),
		iterFnTy(elemOut))

	return lo.lowerExpr(sy.wrap(outer))
}

// rewriteIterRepeat yields the same value until the sink answers end.  The
// run can only finish with end since the source never exhausts.
func (lo *Lowerer) rewriteIterRepeat(e *mcore.Apply) clam.Lambda {
	elem := lo.iterElemOf(e.Type())

	sy := &synth{lo: lo}
	x := sy.bindValue(e.Args[0], "item")

	k := lo.gen.Fresh("sink", sinkTy(elem))
	label := lo.gen.Fresh("loop", nil)

	loop := &mcore.Loop{
		ExprBase: eb(intTy),
		Label:    label,
		Body: &mcore.If{
			ExprBase: eb(intTy),
			Cond:     wantsMore(capply(k, sinkTy(elem), x)),
			Then:     &mcore.Continue{ExprBase: eb(intTy), Label: label},
			Else:     &mcore.Break{ExprBase: eb(intTy), Arg: statusEnd(), Label: label},
		},
	}

	outer := fun([]*mcore.Ident{k}, loop, iterFnTy(elem))

	return lo.lowerExpr(sy.wrap(outer))
}

// rewriteIterConcat chains two iterators: the second runs only if the first
// drains without the sink stopping it.
func (lo *Lowerer) rewriteIterConcat(e *mcore.Apply) clam.Lambda {
	elem := lo.iterElemOf(e.Type())

	sy := &synth{lo: lo}
	it1 := sy.bind(e.Args[0], "it1")
	it2 := sy.bind(e.Args[1], "it2")

	k := lo.gen.Fresh("sink", sinkTy(elem))

	body := &mcore.If{
		ExprBase: eb(intTy),
		Cond:     wantsMore(capply(it1, iterFnTy(elem), vr(k, sinkTy(elem)))),
		Then:     capply(it2, iterFnTy(elem), vr(k, sinkTy(elem))),
		Else:     statusEnd(),
	}

	outer := fun([]*mcore.Ident{k}, body, iterFnTy(elem))

	return lo.lowerExpr(sy.wrap(outer))
}

// rewriteIterFromArray captures the array once and walks its buffer with an
// index loop, stopping when the sink answers end or the elements run out.
func (lo *Lowerer) rewriteIterFromArray(e *mcore.Apply) clam.Lambda {
	elem := lo.iterElemOf(e.Type())
	fat := &mcore.FixedArrayType{Elem: elem}

	sy := &synth{lo: lo}
	arr := sy.bindValue(e.Args[0], "arr")

	var bufE, lenE mcore.Expr

	switch e.Args[0].Type().(type) {
	case *mcore.ArrayType:
		bufE = &mcore.FieldAccess{ExprBase: eb(fat), Record: arr, Index: 0, Name: "buf"}
		lenE = &mcore.FieldAccess{ExprBase: eb(intTy), Record: arr, Index: 1, Name: "length"}

	case *mcore.FixedArrayType:
		bufE = arr
		lenE = prim(mcore.PfixedArrayLength, intTy, arr)

	default:
		lo.ice("iterator over non-array type %s", e.Args[0].Type().Repr())
	}

	k := lo.gen.Fresh("sink", sinkTy(elem))
	buf := lo.gen.Fresh("buf", fat)
	n := lo.gen.Fresh("len", intTy)
	i := lo.gen.Fresh("i", intTy)
	label := lo.gen.Fresh("loop", nil)

	elemAt := prim(mcore.PfixedArrayGet, elem, vr(buf, fat), vr(i, intTy))

	loop := &mcore.Loop{
		ExprBase: eb(intTy),
		Params:   []*mcore.Ident{i},
		Args:     []mcore.Expr{intVal(0)},
		Label:    label,
		Body: &mcore.If{
			ExprBase: eb(intTy),
			Cond:     prim(mcore.PltInt, boolTy, vr(i, intTy), vr(n, intTy)),
			Then: &mcore.If{
				ExprBase: eb(intTy),
				Cond:     wantsMore(capply(k, sinkTy(elem), elemAt)),
				Then: &mcore.Continue{
					ExprBase: eb(intTy),
					Args:     []mcore.Expr{prim(mcore.PaddInt, intTy, vr(i, intTy), intVal(1))},
					Label:    label,
				},
				Else: &mcore.Break{ExprBase: eb(intTy), Arg: statusEnd(), Label: label},
			},
			Else: &mcore.Break{ExprBase: eb(intTy), Arg: statusGo(), Label: label},
		},
	}

	outer := fun([]*mcore.Ident{k},
		&mcore.Let{
			ExprBase: eb(intTy),
			Name:     buf,
			Value:    bufE,
			Body: &mcore.Let{
				ExprBase: eb(intTy),
				Name:     n,
				Value:    lenE,
				Body:     loop,
			},
		},
		iterFnTy(elem))

	return lo.lowerExpr(sy.wrap(outer))
}

// rewriteFixedArrayIter is the eager loop over a fixed array: every element
// is passed to the consumer and the loop always runs to the end.
func (lo *Lowerer) rewriteFixedArrayIter(e *mcore.Apply) clam.Lambda {
	fat := e.Args[0].Type().(*mcore.FixedArrayType)
	fTy := e.Args[1].Type().(*mcore.FuncType)

	sy := &synth{lo: lo}
	arr := sy.bindValue(e.Args[0], "arr")
	f := sy.bind(e.Args[1], "f")

	n := lo.gen.Fresh("len", intTy)
	i := lo.gen.Fresh("i", intTy)
	label := lo.gen.Fresh("loop", nil)

	elemAt := prim(mcore.PfixedArrayGet, fat.Elem, arr, vr(i, intTy))

	loop := &mcore.Loop{
		ExprBase: eb(unitTy),
		Params:   []*mcore.Ident{i},
		Args:     []mcore.Expr{intVal(0)},
		Label:    label,
		Body: &mcore.If{
			ExprBase: eb(unitTy),
			Cond:     prim(mcore.PltInt, boolTy, vr(i, intTy), vr(n, intTy)),
			Then: &mcore.Sequence{
				ExprBase: eb(unitTy),
				Exprs:    []mcore.Expr{capply(f, fTy, elemAt)},
				Last: &mcore.Continue{
					ExprBase: eb(unitTy),
					Args:     []mcore.Expr{prim(mcore.PaddInt, intTy, vr(i, intTy), intVal(1))},
					Label:    label,
				},
			},
			Else: &mcore.Break{ExprBase: eb(unitTy), Arg: unitVal(), Label: label},
		},
	}

	body := &mcore.Let{
		ExprBase: eb(unitTy),
		Name:     n,
		Value:    prim(mcore.PfixedArrayLength, intTy, arr),
		Body:     loop,
	}

	return lo.lowerExpr(sy.wrap(body))
}
