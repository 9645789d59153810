package lower

import (
	"testing"

	"clamc/clam"
	"clamc/config"
	"clamc/mcore"
)

func newTL() *TypeLowering {
	cfg := config.DefaultConfig()
	return NewTypeLowering(cfg)
}

func TestLowerPrimTypes(t *testing.T) {
	tl := newTL()

	cases := []struct {
		src  mcore.PrimType
		want clam.LType
	}{
		{mcore.PrimUnit, clam.I32Unit},
		{mcore.PrimBool, clam.I32Bool},
		{mcore.PrimChar, clam.I32},
		{mcore.PrimInt, clam.I32},
		{mcore.PrimInt64, clam.I64},
		{mcore.PrimDouble, clam.F64},
		{mcore.PrimString, clam.RefString},
		{mcore.PrimBytes, clam.RefBytes},
	}

	for _, c := range cases {
		if got := tl.LowerType(c.src); got != c.want {
			t.Errorf("lower %s = %s, want %s", c.src.Repr(), got.Repr(), c.want.Repr())
		}
	}
}

func TestLowerStringExternBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UseJSBuiltinString = true
	tl := NewTypeLowering(cfg)

	if got := tl.LowerType(mcore.PrimType(mcore.PrimString)); got != clam.RefExtern {
		t.Errorf("extern string backend should lower to ref_extern, got %s", got.Repr())
	}
}

func TestAbstractClosureInterning(t *testing.T) {
	tl := newTL()

	ft := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}
	a := tl.AbstractClosureTid(tl.LowerFnSig(ft))
	b := tl.AbstractClosureTid(tl.LowerFnSig(&mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}))

	if a != b {
		t.Errorf("equal signatures must share a tid: %d vs %d", a, b)
	}

	if len(tl.Defs()) != 1 {
		t.Errorf("expected a single type def, got %d", len(tl.Defs()))
	}
}

func TestRecursiveStructLowering(t *testing.T) {
	tl := newTL()

	node := &mcore.StructType{Name: "Node"}
	node.Fields = []mcore.Field{
		{Name: "value", Ty: intTy},
		{Name: "next", Ty: &mcore.OptionType{Elem: node}},
	}

	ref := tl.LowerType(node)
	rt, ok := ref.(clam.RefType)
	if !ok {
		t.Fatalf("struct should lower to a ref, got %s", ref.Repr())
	}

	def, ok := tl.Defs()[rt.Tid].(*clam.DefStruct)
	if !ok {
		t.Fatalf("expected struct def")
	}

	next, ok := def.Fields[1].(clam.RefType)
	if !ok || next.Kind != clam.RefNullable || next.Tid != rt.Tid {
		t.Errorf("recursive field should be a nullable self reference, got %s", def.Fields[1].Repr())
	}
}

func TestEnumConstructorTids(t *testing.T) {
	tl := newTL()

	enum := &mcore.EnumType{Name: "Shape"}
	circle := &mcore.Constructor{Name: "Circle", Args: []mcore.DataType{mcore.PrimType(mcore.PrimDouble)}, Tag: 0, Enum: enum}
	square := &mcore.Constructor{Name: "Square", Tag: 1, Enum: enum}
	enum.Constructors = []*mcore.Constructor{circle, square}

	enumTid := tl.EnumTid(enum)

	cTid := tl.ConstrTid(circle)
	def, ok := tl.Defs()[cTid].(*clam.DefConstr)
	if !ok || def.EnumTid != enumTid || def.Tag != 0 {
		t.Errorf("bad circle constructor def: %v", tl.Defs()[cTid])
	}

	sTid := tl.ConstrTid(square)
	sDef, ok := tl.Defs()[sTid].(*clam.DefConstr)
	if !ok || sDef.Tag != 1 || len(sDef.Fields) != 0 {
		t.Errorf("bad square constructor def: %v", tl.Defs()[sTid])
	}
}

func TestResultTids(t *testing.T) {
	tl := newTL()

	rt := &mcore.ResultType{Ok: intTy, Err: mcore.PrimType(mcore.PrimString)}
	enumTid := tl.ResultEnumTid(rt)

	okTid := tl.ResultConstrTid(rt, ResultOkTag)
	errTid := tl.ResultConstrTid(rt, ResultErrTag)

	okDef := tl.Defs()[okTid].(*clam.DefConstr)
	errDef := tl.Defs()[errTid].(*clam.DefConstr)

	if okDef.EnumTid != enumTid || okDef.Tag != ResultOkTag {
		t.Errorf("bad ok arm: %v", okDef)
	}

	if errDef.EnumTid != enumTid || errDef.Tag != ResultErrTag {
		t.Errorf("bad err arm: %v", errDef)
	}

	if again := tl.ResultEnumTid(&mcore.ResultType{Ok: intTy, Err: mcore.PrimType(mcore.PrimString)}); again != enumTid {
		t.Errorf("equal result types must share a tid")
	}
}

func TestArrayAndViewRecords(t *testing.T) {
	tl := newTL()

	arr := tl.ArrayTid(intTy)
	def := tl.Defs()[arr].(*clam.DefStruct)

	if len(def.Fields) != 2 || def.Fields[1] != clam.I32 {
		t.Errorf("array record should be {buf, len}, got %s", def.Repr())
	}

	view := tl.ArrayViewTid(intTy)
	vDef := tl.Defs()[view].(*clam.DefStruct)

	if len(vDef.Fields) != 3 {
		t.Errorf("view record should be {buf, start, len}, got %s", vDef.Repr())
	}
}

func TestAddrTableTopRegistration(t *testing.T) {
	var gen mcore.IdentGen
	var addrs clam.AddrGen

	tl := newTL()
	at := NewAddrTable(&addrs)
	env := mcore.NewEnv()

	fTy := &mcore.FuncType{Params: []mcore.DataType{intTy}, Ret: intTy}
	f := gen.Fresh("f", fTy)
	env.SetIntrinsic(f, mcore.ArrayLength)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: f, Fn: &mcore.Func{Params: []*mcore.Ident{gen.Fresh("x", intTy)}, Body: &mcore.Var{Id: f}, Ty: fTy}},
	}}

	CollectTopFuncs(prog, tl, env, at)

	entry := at.LookupTop(f)
	if entry.Addr.Name != "f" || entry.Intrinsic != mcore.ArrayLength {
		t.Errorf("bad top entry: %+v", entry)
	}

	if len(entry.Params) != 1 || entry.Params[0] != clam.I32 {
		t.Errorf("bad lowered params: %v", entry.Params)
	}
}
