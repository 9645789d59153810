package clam

import (
	"testing"

	"clamc/mcore"
	"clamc/report"
)

func TestSexpCollapsesLetChains(t *testing.T) {
	var gen mcore.IdentGen

	x := gen.Fresh("x", mcore.PrimType(mcore.PrimInt))
	y := gen.Fresh("y", mcore.PrimType(mcore.PrimInt))

	e := &Llet{
		Name: x,
		Expr: &Lconst{Value: mcore.NewIntConst(1)},
		Body: &Llet{
			Name: y,
			Expr: &Lconst{Value: mcore.NewIntConst(2)},
			Body: &Lvar{Var: y},
		},
	}

	got := ExprSexp(e, SexpConfig{})
	want := "(Llet (bind x/1 1) (bind y/2 2) y/2)"

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSexpFlattensSequences(t *testing.T) {
	one := &Lconst{Value: mcore.NewIntConst(1)}
	two := &Lconst{Value: mcore.NewIntConst(2)}
	three := &Lconst{Value: mcore.NewIntConst(3)}

	e := &Lsequence{
		Exprs: []Lambda{one},
		Last:  &Lsequence{Exprs: []Lambda{two}, Last: three},
	}

	got := ExprSexp(e, SexpConfig{})
	want := "(Lsequence 1 2 3)"

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSexpElidesEventsUnlessShowLoc(t *testing.T) {
	span := &report.TextSpan{StartLine: 3, StartCol: 4, EndLine: 3, EndCol: 9}
	e := &Levent{Expr: &Lconst{Value: mcore.NewIntConst(7)}, Loc: span}

	if got := ExprSexp(e, SexpConfig{}); got != "7" {
		t.Errorf("expected event elided, got %q", got)
	}

	got := ExprSexp(e, SexpConfig{ShowLoc: true})
	want := "(Levent loc:3:4-3:9 7)"

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSexpJoinKinds(t *testing.T) {
	var gen mcore.IdentGen

	j := gen.Fresh("j", mcore.PrimType(mcore.PrimInt))
	p := gen.Fresh("p", mcore.PrimType(mcore.PrimInt))

	e := &Ljoinlet{
		Name:   j,
		Params: []*mcore.Ident{p},
		Expr:   &Lvar{Var: p},
		Body:   &Ljoinapply{Name: j, Args: []Lambda{&Lconst{Value: mcore.NewIntConst(5)}}},
		Kind:   NontailJoin,
		Type:   I32,
	}

	got := ExprSexp(e, SexpConfig{})
	want := "(Ljoinlet_nontail j/1 (params p/2) p/2 (Ljoinapply j/1 5))"

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	e.Kind = TailJoin

	got = ExprSexp(e, SexpConfig{})
	want = "(Ljoinlet j/1 (params p/2) p/2 (Ljoinapply j/1 5))"

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSexpApplyIntrinsicTag(t *testing.T) {
	var addrs AddrGen

	f := addrs.Issue("f")
	plain := &Lapply{
		Target: TargetStaticFn{Addr: f},
		Args:   []Lambda{&Lconst{Value: mcore.NewIntConst(1)}},
	}

	if got := ExprSexp(plain, SexpConfig{}); got != "(Lapply @f.1 1)" {
		t.Errorf("got %q", got)
	}

	tagged := &Lapply{
		Target:    TargetStaticFn{Addr: f},
		Intrinsic: mcore.ArrayLength,
		Args:      []Lambda{&Lconst{Value: mcore.NewIntConst(1)}},
	}

	if got := ExprSexp(tagged, SexpConfig{}); got != "(Lapply.Array::length @f.1 1)" {
		t.Errorf("got %q", got)
	}
}

func TestProgSexpShape(t *testing.T) {
	var gen mcore.IdentGen

	g := gen.Fresh("g", mcore.PrimType(mcore.PrimInt))
	p := &Prog{
		Globals:  []Global{{Var: g, Init: mcore.NewIntConst(42)}},
		Init:     &Fn{Body: &Lconst{Value: mcore.NewIntConst(0)}, ReturnType: I32Unit},
		TypeDefs: []TypeDef{&DefStruct{Fields: []LType{I32}}},
	}

	got := ProgSexp(p, SexpConfig{})
	want := "(prog (type_defs (0 struct {i32})) (globals (global g/1 42)) (init (params) -> i32_unit 0))"

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
