package lower

import (
	"testing"

	"clamc/clam"
	"clamc/config"
	"clamc/mcore"
)

var strTy = mcore.PrimType(mcore.PrimString)

func translate(t *testing.T, prog *mcore.Program, env mcore.GlobalEnv, gen *mcore.IdentGen) *clam.Prog {
	t.Helper()

	if env == nil {
		env = mcore.NewEnv()
	}

	return TranslProg(prog, env, config.DefaultConfig(), gen)
}

// unwrapLets follows a chain of let bindings to the innermost body.
func unwrapLets(l clam.Lambda) clam.Lambda {
	for {
		let, ok := l.(*clam.Llet)
		if !ok {
			return l
		}

		l = let.Body
	}
}

func initStmts(t *testing.T, p *clam.Prog) []clam.Lambda {
	t.Helper()

	if p.Init == nil {
		t.Fatal("program has no init function")
	}

	seq, ok := p.Init.Body.(*clam.Lsequence)
	if !ok {
		t.Fatalf("init body is %T, want a sequence", p.Init.Body)
	}

	return seq.Exprs
}

func findFn(p *clam.Prog, name string) *clam.TopFuncItem {
	for _, item := range p.Fns {
		if item.Binder.Name == name {
			return item
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func TestLowerUnitTopExpr(t *testing.T) {
	var gen mcore.IdentGen

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopExpr{Expr: &mcore.Const{ExprBase: eb(unitTy), Value: mcore.UnitConst}},
	}}

	out := translate(t, prog, nil, &gen)

	if len(out.Fns) != 0 {
		t.Errorf("expected no functions, got %d", len(out.Fns))
	}

	if out.Main != nil {
		t.Errorf("expected no main")
	}

	stmts := initStmts(t, out)
	c, ok := stmts[0].(*clam.Lconst)
	if !ok || c.Value.Kind != mcore.CInt || c.Value.IntVal != 0 {
		t.Errorf("unit literal should lower to the integer zero, got %v", stmts[0])
	}
}

func TestTopFunctionValueEscape(t *testing.T) {
	var gen mcore.IdentGen

	fTy := &mcore.FuncType{Ret: intTy}
	f := gen.FreshQualified("f", fTy)
	g := gen.FreshQualified("g", fTy)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: f, Fn: &mcore.Func{
			Body: &mcore.Const{ExprBase: eb(intTy), Value: mcore.NewIntConst(1)},
			Ty:   fTy,
		}},
		&mcore.TopLet{Name: g, Value: vr(f, fTy)},
	}}

	out := translate(t, prog, nil, &gen)

	wrapper := findFn(out, "f.closure")
	if wrapper == nil {
		t.Fatal("first-class use of f should mint a closure wrapper")
	}

	if _, ok := wrapper.Fn.Body.(*clam.Lapply); !ok {
		t.Errorf("wrapper body should forward to the static function, got %T", wrapper.Fn.Body)
	}

	// The wrapper install precedes the computation of g.
	stmts := initStmts(t, out)

	install, ok := stmts[0].(*clam.Lassign)
	if !ok {
		t.Fatalf("first init statement is %T, want the wrapper install", stmts[0])
	}

	cl, ok := install.Expr.(*clam.Lclosure)
	if !ok || len(cl.Captures) != 0 {
		t.Errorf("wrapper closure should capture nothing, got %v", install.Expr)
	}

	assign, ok := stmts[1].(*clam.Lassign)
	if !ok || assign.Var != g {
		t.Fatalf("second init statement should assign g, got %v", stmts[1])
	}

	if v, ok := assign.Expr.(*clam.Lvar); !ok || v.Var != install.Var {
		t.Errorf("g should be initialized from the wrapper global")
	}
}

func TestWellKnownSingleCapture(t *testing.T) {
	var gen mcore.IdentGen

	x := gen.Fresh("x", intTy)
	y := gen.Fresh("y", intTy)
	fTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}
	f := gen.Fresh("f", fTy)

	body := &mcore.Let{
		ExprBase: eb(intTy),
		Name:     x,
		Value:    &mcore.Const{ExprBase: eb(intTy), Value: mcore.NewIntConst(3)},
		Body: &mcore.LetFn{
			ExprBase: eb(intTy),
			Name:     f,
			Fn: &mcore.Func{
				Params: []*mcore.Ident{y},
				Body:   prim(mcore.PaddInt, intTy, vr(y, intTy), vr(x, intTy)),
				Ty:     fTy,
			},
			Body: capply(f, fTy, intVal(1)),
		},
	}

	prog := &mcore.Program{Items: []mcore.TopItem{&mcore.TopExpr{Expr: body}}}
	out := translate(t, prog, nil, &gen)

	if len(out.Fns) != 1 {
		t.Fatalf("expected exactly the lifted f, got %d functions", len(out.Fns))
	}

	lifted := out.Fns[0]
	if len(lifted.Fn.Params) != 2 || lifted.Fn.Params[0] != x || lifted.Fn.Params[1] != y {
		t.Errorf("lifted params should be [x y], got %v", lifted.Fn.Params)
	}

	if lifted.Tid != nil {
		t.Errorf("well-known function must not carry a closure tid")
	}

	call, ok := unwrapLets(initStmts(t, out)[0]).(*clam.Lapply)
	if !ok {
		t.Fatalf("call site should stay a direct application")
	}

	if _, ok := call.Target.(clam.TargetStaticFn); !ok {
		t.Errorf("call target is %T, want a static function", call.Target)
	}

	if len(call.Args) != 2 {
		t.Fatalf("call should pass [x 1], got %d args", len(call.Args))
	}

	if v, ok := call.Args[0].(*clam.Lvar); !ok || v.Var != x {
		t.Errorf("capture must travel as the leading argument")
	}
}

func TestWellKnownMutualBundle(t *testing.T) {
	var gen mcore.IdentGen

	fTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}
	f := gen.Fresh("f", fTy)
	g := gen.Fresh("g", fTy)
	a := gen.Fresh("a", intTy)
	b := gen.Fresh("b", intTy)

	letrec := &mcore.LetRec{
		ExprBase: eb(intTy),
		Bindings: []mcore.LetRecBinding{
			{Name: f, Fn: &mcore.Func{
				Params: []*mcore.Ident{a},
				Body:   capply(g, fTy, vr(a, intTy)),
				Ty:     fTy,
			}},
			{Name: g, Fn: &mcore.Func{
				Params: []*mcore.Ident{b},
				Body:   capply(f, fTy, vr(b, intTy)),
				Ty:     fTy,
			}},
		},
		Body: capply(f, fTy, intVal(0)),
	}

	prog := &mcore.Program{Items: []mcore.TopItem{&mcore.TopExpr{Expr: letrec}}}
	out := translate(t, prog, nil, &gen)

	if len(out.Fns) != 2 {
		t.Fatalf("expected 2 lifted members, got %d", len(out.Fns))
	}

	for _, item := range out.Fns {
		env, ok := item.Fn.ParamTys[0].(clam.RefType)
		if !ok || env.Kind != clam.RefLazyInit {
			t.Errorf("member %s should take a late-init environment, got %s",
				item.Binder.Name, item.Fn.ParamTys[0].Repr())
		}
	}

	lr, ok := initStmts(t, out)[0].(*clam.Lletrec)
	if !ok {
		t.Fatalf("bundle should lower to letrec, got %T", initStmts(t, out)[0])
	}

	if len(lr.Names) != 2 || lr.Names[0] != f || lr.Names[1] != g {
		t.Errorf("letrec should bind f and g in order")
	}

	for _, cl := range lr.Fns {
		if _, ok := cl.Address.(clam.AddrWellKnownMutRec); !ok {
			t.Errorf("bundle member address is %T, want well-known mut-rec", cl.Address)
		}
	}
}

func TestEscapingMutualBundle(t *testing.T) {
	var gen mcore.IdentGen

	fTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}
	f := gen.Fresh("f", fTy)
	g := gen.Fresh("g", fTy)
	a := gen.Fresh("a", intTy)
	b := gen.Fresh("b", intTy)

	// The bundle's result is f itself, so the members cannot stay well-known.
	letrec := &mcore.LetRec{
		ExprBase: eb(fTy),
		Bindings: []mcore.LetRecBinding{
			{Name: f, Fn: &mcore.Func{
				Params: []*mcore.Ident{a},
				Body:   capply(g, fTy, vr(a, intTy)),
				Ty:     fTy,
			}},
			{Name: g, Fn: &mcore.Func{
				Params: []*mcore.Ident{b},
				Body:   capply(f, fTy, vr(b, intTy)),
				Ty:     fTy,
			}},
		},
		Body: vr(f, fTy),
	}

	prog := &mcore.Program{Items: []mcore.TopItem{&mcore.TopExpr{Expr: letrec}}}
	out := translate(t, prog, nil, &gen)

	if len(out.Fns) != 2 {
		t.Fatalf("expected 2 lifted members, got %d", len(out.Fns))
	}

	for _, item := range out.Fns {
		if item.Tid == nil {
			t.Errorf("escaping member %s should carry a closure tid", item.Binder.Name)
		}

		env, ok := item.Fn.ParamTys[0].(clam.RefType)
		if !ok || env.Kind != clam.RefConcrete {
			t.Errorf("member %s should take a closure environment, got %s",
				item.Binder.Name, item.Fn.ParamTys[0].Repr())
		}
	}

	lr, ok := initStmts(t, out)[0].(*clam.Lletrec)
	if !ok {
		t.Fatalf("bundle should lower to letrec, got %T", initStmts(t, out)[0])
	}

	if len(lr.Names) != 2 || lr.Names[0] != f || lr.Names[1] != g {
		t.Errorf("letrec should bind f and g in order")
	}

	for _, cl := range lr.Fns {
		if _, ok := cl.Address.(clam.AddrNormal); !ok {
			t.Errorf("escaping member address is %T, want a normal address", cl.Address)
		}
	}

	// Each member reaches the other through an ordinary capture; the
	// simultaneous binding ties the knot.
	if len(lr.Fns[0].Captures) != 1 || lr.Fns[0].Captures[0] != g {
		t.Errorf("f should capture g, got %v", lr.Fns[0].Captures)
	}

	if len(lr.Fns[1].Captures) != 1 || lr.Fns[1].Captures[0] != f {
		t.Errorf("g should capture f, got %v", lr.Fns[1].Captures)
	}
}

func TestResultReturnJoins(t *testing.T) {
	var gen mcore.IdentGen

	rt := &mcore.ResultType{Ok: intTy, Err: strTy}
	fTy := &mcore.FuncType{Params: []mcore.DataType{boolTy}, Ret: rt}
	f := gen.FreshQualified("f", fTy)
	c := gen.Fresh("c", boolTy)

	body := &mcore.If{
		ExprBase: eb(intTy),
		Cond:     vr(c, boolTy),
		Then: &mcore.Return{
			ExprBase: eb(intTy),
			Value:    intVal(1),
			ReturnTy: rt,
		},
		Else: &mcore.Return{
			ExprBase: eb(intTy),
			Value:    &mcore.Const{ExprBase: eb(strTy), Value: mcore.NewStringConst("x")},
			IsError:  true,
			ReturnTy: rt,
		},
	}

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: f, Fn: &mcore.Func{Params: []*mcore.Ident{c}, Body: body, Ty: fTy}},
	}}

	out := translate(t, prog, nil, &gen)

	retJoin, ok := out.Fns[0].Fn.Body.(*clam.Ljoinlet)
	if !ok {
		t.Fatalf("result function body should open with the return join, got %T", out.Fns[0].Fn.Body)
	}

	if retJoin.Kind != clam.NontailJoin {
		t.Errorf("return join must be non-tail")
	}

	if _, ok := retJoin.Expr.(*clam.Lallocate); !ok {
		t.Errorf("return join should allocate the ok arm, got %T", retJoin.Expr)
	}

	raiseJoin, ok := retJoin.Body.(*clam.Ljoinlet)
	if !ok {
		t.Fatalf("raise join should nest inside the return join, got %T", retJoin.Body)
	}

	alloc, ok := raiseJoin.Expr.(*clam.Lallocate)
	if !ok {
		t.Fatalf("raise join should allocate the error arm, got %T", raiseJoin.Expr)
	}

	if enum, ok := alloc.Kind.(clam.AllocEnum); !ok || enum.Tag != ResultErrTag {
		t.Errorf("raise join should carry the error tag")
	}

	routed, ok := raiseJoin.Body.(*clam.Ljoinapply)
	if !ok || routed.Name != retJoin.Name {
		t.Errorf("body result should route through the return join, got %T", raiseJoin.Body)
	}
}

// -----------------------------------------------------------------------------

func intrinsicApply(gen *mcore.IdentGen, env *mcore.Env, name string, in mcore.Intrinsic, fnTy *mcore.FuncType, args ...mcore.Expr) *mcore.Apply {
	callee := gen.FreshQualified(name, fnTy)
	env.SetIntrinsic(callee, in)
	return capply(callee, fnTy, args...)
}

func TestArrayGetBoundsChecked(t *testing.T) {
	var gen mcore.IdentGen
	env := mcore.NewEnv()

	at := &mcore.ArrayType{Elem: intTy}
	arr := gen.Fresh("arr", at)
	i := gen.Fresh("i", intTy)

	getTy := &mcore.FuncType{Params: []mcore.DataType{at, intTy}, Ret: intTy}
	call := intrinsicApply(&gen, env, "Array::op_get", mcore.ArrayGet, getTy, vr(arr, at), vr(i, intTy))

	fTy := &mcore.FuncType{Params: []mcore.DataType{at, intTy}, Ret: intTy}
	f := gen.FreshQualified("f", fTy)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: f, Fn: &mcore.Func{Params: []*mcore.Ident{arr, i}, Body: call, Ty: fTy}},
	}}

	out := translate(t, prog, env, &gen)

	cond, ok := unwrapLets(out.Fns[0].Fn.Body).(*clam.Lif)
	if !ok {
		t.Fatalf("checked get should guard with a conditional, got %T", out.Fns[0].Fn.Body)
	}

	if p, ok := cond.IfSo.(*clam.Lprim); !ok || p.Prim != mcore.Ppanic {
		t.Errorf("out-of-bounds arm should panic, got %v", cond.IfSo)
	}

	get, ok := cond.IfNot.(*clam.LarrayGetItem)
	if !ok {
		t.Fatalf("in-bounds arm should load the element, got %T", cond.IfNot)
	}

	if get.Access != clam.Unsafe {
		t.Errorf("the guarded load itself needs no second check")
	}
}

func TestArrayGetAtomicArgsNotRebound(t *testing.T) {
	var gen mcore.IdentGen
	env := mcore.NewEnv()

	at := &mcore.ArrayType{Elem: intTy}
	arr := gen.Fresh("arr", at)

	getTy := &mcore.FuncType{Params: []mcore.DataType{at, intTy}, Ret: intTy}
	call := intrinsicApply(&gen, env, "Array::op_get", mcore.ArrayGet, getTy, vr(arr, at), intVal(3))

	fTy := &mcore.FuncType{Params: []mcore.DataType{at}, Ret: intTy}
	f := gen.FreshQualified("f", fTy)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: f, Fn: &mcore.Func{Params: []*mcore.Ident{arr}, Body: call, Ty: fTy}},
	}}

	out := translate(t, prog, env, &gen)

	cond, ok := out.Fns[0].Fn.Body.(*clam.Lif)
	if !ok {
		t.Fatalf("variable and constant arguments need no rebinding, got %T", out.Fns[0].Fn.Body)
	}

	get, ok := cond.IfNot.(*clam.LarrayGetItem)
	if !ok {
		t.Fatalf("in-bounds arm should load the element, got %T", cond.IfNot)
	}

	if _, ok := get.Index.(*clam.Lconst); !ok {
		t.Errorf("constant index should be used in place, got %T", get.Index)
	}

	buf, ok := get.Arr.(*clam.LgetField)
	if !ok {
		t.Fatalf("load should index the backing buffer field, got %T", get.Arr)
	}

	if v, ok := buf.Obj.(*clam.Lvar); !ok || v.Var != arr {
		t.Errorf("variable array argument should be referenced under its own name")
	}
}

func TestArrayGetComputedIndexBoundOnce(t *testing.T) {
	var gen mcore.IdentGen
	env := mcore.NewEnv()

	at := &mcore.ArrayType{Elem: intTy}
	arr := gen.Fresh("arr", at)
	i := gen.Fresh("i", intTy)

	getTy := &mcore.FuncType{Params: []mcore.DataType{at, intTy}, Ret: intTy}
	call := intrinsicApply(&gen, env, "Array::op_get", mcore.ArrayGet, getTy,
		vr(arr, at), prim(mcore.PaddInt, intTy, vr(i, intTy), intVal(1)))

	fTy := &mcore.FuncType{Params: []mcore.DataType{at, intTy}, Ret: intTy}
	f := gen.FreshQualified("f", fTy)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: f, Fn: &mcore.Func{Params: []*mcore.Ident{arr, i}, Body: call, Ty: fTy}},
	}}

	out := translate(t, prog, env, &gen)

	let, ok := out.Fns[0].Fn.Body.(*clam.Llet)
	if !ok {
		t.Fatalf("computed index should be let-bound, got %T", out.Fns[0].Fn.Body)
	}

	cond, ok := let.Body.(*clam.Lif)
	if !ok {
		t.Fatalf("checked get should guard with a conditional, got %T", let.Body)
	}

	get, ok := cond.IfNot.(*clam.LarrayGetItem)
	if !ok {
		t.Fatalf("in-bounds arm should load the element, got %T", cond.IfNot)
	}

	if v, ok := get.Index.(*clam.Lvar); !ok || v.Var != let.Name {
		t.Errorf("load should reuse the bound index, got %v", get.Index)
	}
}

func TestArrayUnsafeGetElidesCheck(t *testing.T) {
	var gen mcore.IdentGen
	env := mcore.NewEnv()

	at := &mcore.ArrayType{Elem: intTy}
	arr := gen.Fresh("arr", at)
	i := gen.Fresh("i", intTy)

	getTy := &mcore.FuncType{Params: []mcore.DataType{at, intTy}, Ret: intTy}
	call := intrinsicApply(&gen, env, "Array::unsafe_get", mcore.ArrayUnsafeGet, getTy, vr(arr, at), vr(i, intTy))

	f := gen.FreshQualified("f", getTy)
	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: f, Fn: &mcore.Func{Params: []*mcore.Ident{arr, i}, Body: call, Ty: getTy}},
	}}

	out := translate(t, prog, env, &gen)

	get, ok := out.Fns[0].Fn.Body.(*clam.LarrayGetItem)
	if !ok {
		t.Fatalf("unsafe get should lower to a bare load, got %T", out.Fns[0].Fn.Body)
	}

	buf, ok := get.Arr.(*clam.LgetField)
	if !ok || buf.Index != 0 {
		t.Errorf("load should index the backing buffer field")
	}
}

func TestIterMapProducesFusedClosure(t *testing.T) {
	var gen mcore.IdentGen
	env := mcore.NewEnv()

	itTy := &mcore.IterType{Elem: intTy}
	mapFnTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}

	it := gen.Fresh("it", itTy)
	f := gen.Fresh("f", mapFnTy)

	callTy := &mcore.FuncType{Params: []mcore.DataType{itTy, mapFnTy}, Ret: itTy}
	call := intrinsicApply(&gen, env, "Iter::map", mcore.IterMap, callTy, vr(it, itTy), vr(f, mapFnTy))

	top := gen.FreshQualified("mapper", callTy)
	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: top, Fn: &mcore.Func{Params: []*mcore.Ident{it, f}, Body: call, Ty: callTy}},
	}}

	out := translate(t, prog, env, &gen)

	// The mapper itself plus the lifted outer iterator and inner sink.
	if len(out.Fns) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(out.Fns))
	}

	item := findFn(out, "mapper")
	if item == nil {
		t.Fatal("mapper item missing")
	}

	cl, ok := item.Fn.Body.(*clam.Lclosure)
	if !ok {
		t.Fatalf("map should return a closure, got %T", item.Fn.Body)
	}

	if len(cl.Captures) != 2 {
		t.Errorf("fused iterator should capture the source and the function, got %v", cl.Captures)
	}
}

func TestIterReduceAccumulates(t *testing.T) {
	var gen mcore.IdentGen
	env := mcore.NewEnv()

	itTy := &mcore.IterType{Elem: intTy}
	foldTy := &mcore.FuncType{Params: []mcore.DataType{intTy, intTy}, Ret: intTy}

	it := gen.Fresh("it", itTy)
	f := gen.Fresh("f", foldTy)

	callTy := &mcore.FuncType{Params: []mcore.DataType{itTy, intTy, foldTy}, Ret: intTy}
	call := intrinsicApply(&gen, env, "Iter::reduce", mcore.IterReduce, callTy,
		vr(it, itTy), intVal(0), vr(f, foldTy))

	sumTy := &mcore.FuncType{Params: []mcore.DataType{itTy, foldTy}, Ret: intTy}
	top := gen.FreshQualified("sum", sumTy)
	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: top, Fn: &mcore.Func{Params: []*mcore.Ident{it, f}, Body: call, Ty: sumTy}},
	}}

	out := translate(t, prog, env, &gen)

	item := findFn(out, "sum")
	cellLet, ok := item.Fn.Body.(*clam.Llet)
	if !ok {
		t.Fatalf("reduce should bind an accumulator cell, got %T", item.Fn.Body)
	}

	if a, ok := cellLet.Expr.(*clam.Lallocate); !ok {
		t.Errorf("cell should be a fresh record, got %T", cellLet.Expr)
	} else if _, ok := a.Kind.(clam.AllocStruct); !ok {
		t.Errorf("cell allocation kind is %T, want struct", a.Kind)
	}

	seq, ok := cellLet.Body.(*clam.Lsequence)
	if !ok {
		t.Fatalf("reduce body should run the iterator then read the cell, got %T", cellLet.Body)
	}

	drive, ok := seq.Exprs[0].(*clam.Lapply)
	if !ok {
		t.Fatalf("iterator run should be an application, got %T", seq.Exprs[0])
	}

	if drive.Intrinsic != mcore.IterReduce {
		t.Errorf("driving application should be tagged with its source intrinsic")
	}

	if _, ok := seq.Last.(*clam.LgetField); !ok {
		t.Errorf("result should read the accumulator back, got %T", seq.Last)
	}
}

// -----------------------------------------------------------------------------

func TestStubCallAndValue(t *testing.T) {
	var gen mcore.IdentGen

	logTy := &mcore.FuncType{Params: []mcore.DataType{strTy}, Ret: unitTy}
	s := gen.FreshQualified("log", logTy)
	h := gen.FreshQualified("h", logTy)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopStub{Name: s, FuncName: "host_log", ParamsTy: []mcore.DataType{strTy}, Ret: unitTy},
		&mcore.TopExpr{Expr: capply(s, logTy,
			&mcore.Const{ExprBase: eb(strTy), Value: mcore.NewStringConst("hi")})},
		&mcore.TopLet{Name: h, Value: vr(s, logTy)},
	}}

	out := translate(t, prog, nil, &gen)

	stmts := initStmts(t, out)

	var sawStubCall bool
	for _, st := range stmts {
		if sc, ok := st.(*clam.LstubCall); ok {
			sawStubCall = true
			if sc.Fn != "host_log" {
				t.Errorf("stub call should name the foreign symbol, got %s", sc.Fn)
			}
		}
	}

	if !sawStubCall {
		t.Errorf("direct stub application should stay a stub call")
	}

	if findFn(out, "host_log.closure") == nil {
		t.Errorf("first-class use of a stub should mint a wrapper")
	}
}

func TestMakeObjectWrapper(t *testing.T) {
	var gen mcore.IdentGen
	env := mcore.NewEnv()

	mTy := &mcore.FuncType{Ret: strTy}
	ot := &mcore.ObjectType{Name: "Show", Methods: []mcore.MethodSig{{Name: "show", Ty: mTy}}}

	implTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: strTy}
	impl := gen.FreshQualified("Int::show", implTy)
	env.AddMethod("Int", &mcore.MethodInfo{Name: "show", Id: impl, Ty: implTy})

	self := gen.Fresh("self", intTy)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: impl, Fn: &mcore.Func{
			Params: []*mcore.Ident{self},
			Body:   &mcore.Const{ExprBase: eb(strTy), Value: mcore.NewStringConst("int")},
			Ty:     implTy,
		}},
		&mcore.TopExpr{Expr: &mcore.MakeObject{ExprBase: eb(ot), Obj: intVal(1), ObjType: ot}},
	}}

	out := translate(t, prog, env, &gen)

	alloc, ok := initStmts(t, out)[0].(*clam.Lallocate)
	if !ok {
		t.Fatalf("object wrap should allocate, got %T", initStmts(t, out)[0])
	}

	kind, ok := alloc.Kind.(clam.AllocObject)
	if !ok || len(kind.Methods) != 1 {
		t.Fatalf("object allocation should carry one method address")
	}

	wrapper := findFn(out, "Show.show")
	if wrapper == nil {
		t.Fatal("method wrapper item missing")
	}

	if wrapper.Binder != kind.Methods[0] {
		t.Errorf("method table should point at the wrapper")
	}
}

// -----------------------------------------------------------------------------

// buildRichProgram assembles a program exercising closures, intrinsics, stubs,
// and results, used to observe output stability.
func buildRichProgram(gen *mcore.IdentGen, env *mcore.Env) *mcore.Program {
	itTy := &mcore.IterType{Elem: intTy}
	stepTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}

	x := gen.Fresh("x", intTy)
	y := gen.Fresh("y", intTy)
	fTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}
	f := gen.Fresh("f", fTy)

	local := &mcore.Let{
		ExprBase: eb(intTy),
		Name:     x,
		Value:    intVal(3),
		Body: &mcore.LetFn{
			ExprBase: eb(intTy),
			Name:     f,
			Fn: &mcore.Func{
				Params: []*mcore.Ident{y},
				Body:   prim(mcore.PaddInt, intTy, vr(y, intTy), vr(x, intTy)),
				Ty:     fTy,
			},
			Body: capply(f, fTy, intVal(1)),
		},
	}

	it := gen.Fresh("it", itTy)
	step := gen.Fresh("step", stepTy)
	mapTy := &mcore.FuncType{Params: []mcore.DataType{itTy, stepTy}, Ret: itTy}
	mapId := gen.FreshQualified("Iter::map", mapTy)
	env.SetIntrinsic(mapId, mcore.IterMap)

	mapperTy := &mcore.FuncType{Params: []mcore.DataType{itTy, stepTy}, Ret: itTy}
	mapper := gen.FreshQualified("mapper", mapperTy)

	logTy := &mcore.FuncType{Params: []mcore.DataType{strTy}, Ret: unitTy}
	log := gen.FreshQualified("log", logTy)

	return &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopStub{Name: log, FuncName: "host_log", ParamsTy: []mcore.DataType{strTy}, Ret: unitTy},
		&mcore.TopFn{Name: mapper, Fn: &mcore.Func{
			Params: []*mcore.Ident{it, step},
			Body:   capply(mapId, mapTy, vr(it, itTy), vr(step, stepTy)),
			Ty:     mapperTy,
		}},
		&mcore.TopExpr{Expr: local},
		&mcore.TopExpr{Expr: capply(log, logTy,
			&mcore.Const{ExprBase: eb(strTy), Value: mcore.NewStringConst("done")})},
	}}
}

func TestTranslationDeterminism(t *testing.T) {
	render := func() string {
		var gen mcore.IdentGen
		env := mcore.NewEnv()
		prog := buildRichProgram(&gen, env)
		out := TranslProg(prog, env, config.DefaultConfig(), &gen)
		return clam.ProgSexp(out, clam.SexpConfig{})
	}

	first := render()

	for run := 0; run < 3; run++ {
		if got := render(); got != first {
			t.Fatalf("translation output differs between runs:\n%s\n--\n%s", first, got)
		}
	}
}
