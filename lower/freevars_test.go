package lower

import (
	"testing"

	"clamc/mcore"
)

func fnOf(params []*mcore.Ident, body mcore.Expr) *mcore.Func {
	paramTys := make([]mcore.DataType, len(params))
	for i, p := range params {
		paramTys[i] = p.Ty
	}

	return &mcore.Func{
		Params: params,
		Body:   body,
		Ty:     &mcore.FuncType{Params: paramTys, Ret: intTy},
	}
}

func names(s *IdentSet) []string {
	out := make([]string, 0, s.Len())
	for _, id := range s.Slice() {
		out = append(out, id.Name)
	}

	return out
}

func sameNames(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestFreeVarsBasicCapture(t *testing.T) {
	var gen mcore.IdentGen

	x := gen.Fresh("x", intTy)
	y := gen.Fresh("y", intTy)

	fn := fnOf([]*mcore.Ident{y}, &mcore.PrimApply{
		Prim: mcore.PaddInt,
		Args: []mcore.Expr{&mcore.Var{Id: x}, &mcore.Var{Id: y}},
	})

	got := names(FreeVars(fn, nil))
	if !sameNames(got, "x") {
		t.Errorf("free vars = %v, want [x]", got)
	}
}

func TestFreeVarsLetShadowing(t *testing.T) {
	var gen mcore.IdentGen

	x := gen.Fresh("x", intTy)
	inner := gen.Fresh("x", intTy)

	fn := fnOf(nil, &mcore.Let{
		Name:  inner,
		Value: &mcore.Var{Id: x},
		Body:  &mcore.Var{Id: inner},
	})

	got := names(FreeVars(fn, nil))
	if !sameNames(got, "x") {
		t.Errorf("free vars = %v, want outer x only", got)
	}
}

func TestFreeVarsSkipsJoinCalleesAndGlobals(t *testing.T) {
	var gen mcore.IdentGen

	join := gen.Fresh("j", intTy)
	global := gen.FreshQualified("pkg.f", intTy)
	arg := gen.Fresh("a", intTy)

	fn := fnOf(nil, &mcore.Sequence{
		Exprs: []mcore.Expr{
			&mcore.Apply{Callee: join, Args: []mcore.Expr{&mcore.Var{Id: arg}}, Kind: mcore.ApplyJoin{}},
		},
		Last: &mcore.Var{Id: global},
	})

	got := names(FreeVars(fn, nil))
	if !sameNames(got, "a") {
		t.Errorf("free vars = %v, want [a]", got)
	}
}

func TestFreeVarsApplyCalleeCounts(t *testing.T) {
	var gen mcore.IdentGen

	f := gen.Fresh("f", &mcore.FuncType{Ret: intTy})

	fn := fnOf(nil, &mcore.Apply{
		Callee: f,
		Kind:   mcore.ApplyNormal{FuncTy: &mcore.FuncType{Ret: intTy}},
	})

	got := names(FreeVars(fn, nil))
	if !sameNames(got, "f") {
		t.Errorf("free vars = %v, want [f]", got)
	}
}

func TestFreeVarsLetRecBindsSiblings(t *testing.T) {
	var gen mcore.IdentGen

	f := gen.Fresh("f", &mcore.FuncType{Ret: intTy})
	g := gen.Fresh("g", &mcore.FuncType{Ret: intTy})
	outer := gen.Fresh("z", intTy)

	fn := fnOf(nil, &mcore.LetRec{
		Bindings: []mcore.LetRecBinding{
			{Name: f, Fn: fnOf(nil, &mcore.Apply{Callee: g, Kind: mcore.ApplyNormal{}})},
			{Name: g, Fn: fnOf(nil, &mcore.Var{Id: outer})},
		},
		Body: &mcore.Apply{Callee: f, Kind: mcore.ApplyNormal{}},
	})

	got := names(FreeVars(fn, nil))
	if !sameNames(got, "z") {
		t.Errorf("free vars = %v, want [z]", got)
	}
}

func TestFreeVarsSwitchBinderScopedToCase(t *testing.T) {
	var gen mcore.IdentGen

	enum := &mcore.EnumType{Name: "E"}
	c := &mcore.Constructor{Name: "C", Tag: 0, Enum: enum}
	enum.Constructors = []*mcore.Constructor{c}

	scrut := gen.Fresh("s", enum)
	binder := gen.Fresh("p", intTy)

	fn := fnOf([]*mcore.Ident{scrut}, &mcore.Sequence{
		Exprs: []mcore.Expr{
			&mcore.SwitchConstr{
				Obj:   &mcore.Var{Id: scrut},
				Cases: []mcore.ConstrCase{{Constructor: c, Binder: binder, Body: &mcore.Var{Id: binder}}},
			},
		},
		Last: &mcore.Var{Id: binder},
	})

	got := names(FreeVars(fn, nil))
	if !sameNames(got, "p") {
		t.Errorf("free vars = %v, want binder free outside its case", got)
	}
}

func TestFreeVarsLoopParamsBound(t *testing.T) {
	var gen mcore.IdentGen

	i := gen.Fresh("i", intTy)
	label := gen.Fresh("loop", intTy)
	start := gen.Fresh("start", intTy)

	fn := fnOf(nil, &mcore.Loop{
		Params: []*mcore.Ident{i},
		Args:   []mcore.Expr{&mcore.Var{Id: start}},
		Body:   &mcore.Continue{Args: []mcore.Expr{&mcore.Var{Id: i}}, Label: label},
		Label:  label,
	})

	got := names(FreeVars(fn, nil))
	if !sameNames(got, "start") {
		t.Errorf("free vars = %v, want [start]", got)
	}
}

// -----------------------------------------------------------------------------

func TestGroupBindingsChain(t *testing.T) {
	var gen mcore.IdentGen

	fTy := &mcore.FuncType{Ret: intTy}
	f := gen.Fresh("f", fTy)
	g := gen.Fresh("g", fTy)

	// f calls g; g is independent.
	bindings := []mcore.LetRecBinding{
		{Name: f, Fn: fnOf(nil, &mcore.Apply{Callee: g, Kind: mcore.ApplyNormal{}})},
		{Name: g, Fn: fnOf(nil, &mcore.Const{Value: mcore.NewIntConst(1)})},
	}

	groups := GroupBindings(bindings)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	if groups[0].Bindings[0].Name != g || groups[0].Kind != NonRec {
		t.Errorf("first group should be non-rec g, got %v", groups[0])
	}

	if groups[1].Bindings[0].Name != f || groups[1].Kind != NonRec {
		t.Errorf("second group should be non-rec f, got %v", groups[1])
	}
}

func TestGroupBindingsMutualPair(t *testing.T) {
	var gen mcore.IdentGen

	fTy := &mcore.FuncType{Ret: intTy}
	f := gen.Fresh("f", fTy)
	g := gen.Fresh("g", fTy)

	bindings := []mcore.LetRecBinding{
		{Name: f, Fn: fnOf(nil, &mcore.Apply{Callee: g, Kind: mcore.ApplyNormal{}})},
		{Name: g, Fn: fnOf(nil, &mcore.Apply{Callee: f, Kind: mcore.ApplyNormal{}})},
	}

	groups := GroupBindings(bindings)
	if len(groups) != 1 || groups[0].Kind != Rec || len(groups[0].Bindings) != 2 {
		t.Fatalf("expected a single rec pair, got %v", groups)
	}

	if groups[0].Bindings[0].Name != f || groups[0].Bindings[1].Name != g {
		t.Errorf("group should preserve binding order")
	}
}

func TestGroupBindingsSelfRecursive(t *testing.T) {
	var gen mcore.IdentGen

	fTy := &mcore.FuncType{Ret: intTy}
	f := gen.Fresh("f", fTy)

	bindings := []mcore.LetRecBinding{
		{Name: f, Fn: fnOf(nil, &mcore.Apply{Callee: f, Kind: mcore.ApplyNormal{}})},
	}

	groups := GroupBindings(bindings)
	if len(groups) != 1 || groups[0].Kind != Rec {
		t.Fatalf("expected a single rec group, got %v", groups)
	}
}

// -----------------------------------------------------------------------------

func TestEscapeSetValueUsesOnly(t *testing.T) {
	var gen mcore.IdentGen

	fTy := &mcore.FuncType{Ret: intTy}
	f := gen.Fresh("f", fTy)
	g := gen.Fresh("g", fTy)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopExpr{Expr: &mcore.Sequence{
			Exprs: []mcore.Expr{&mcore.Apply{Callee: f, Kind: mcore.ApplyNormal{}}},
			Last:  &mcore.Var{Id: g},
		}},
	}}

	es := ComputeEscapeSet(prog)

	if es.Has(f) {
		t.Errorf("call target must not escape")
	}

	if !es.Has(g) {
		t.Errorf("value reference must escape")
	}
}
