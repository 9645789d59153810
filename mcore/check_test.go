package mcore

import (
	"testing"

	"clamc/report"
)

func TestCheckAcceptsSimpleProgram(t *testing.T) {
	var gen IdentGen

	mainTy := &FuncType{Ret: PrimType(PrimUnit)}
	prog := &Program{Items: []TopItem{
		&TopFn{
			Name:   gen.Fresh("main", mainTy),
			Fn:     &Func{Body: &Const{Value: UnitConst}, Ty: mainTy},
			IsMain: true,
		},
	}}

	bag := report.NewBag()
	Check(prog, bag)

	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Diagnostics())
	}
}

func TestCheckRejectsMainWithParams(t *testing.T) {
	var gen IdentGen

	mainTy := &FuncType{Params: []DataType{PrimType(PrimInt)}, Ret: PrimType(PrimUnit)}
	prog := &Program{Items: []TopItem{
		&TopFn{
			Name: gen.Fresh("main", mainTy),
			Fn: &Func{
				Params: []*Ident{gen.Fresh("x", PrimType(PrimInt))},
				Body:   &Const{Value: UnitConst},
				Ty:     mainTy,
			},
			IsMain: true,
		},
	}}

	bag := report.NewBag()
	Check(prog, bag)

	if !hasKind(bag, report.KindInvalidInitOrMain) {
		t.Errorf("expected invalid_init_or_main, got %v", bag.Diagnostics())
	}
}

func TestCheckRejectsReservedTypeName(t *testing.T) {
	var gen IdentGen

	badStruct := &StructType{Name: "Array", Fields: []Field{{Name: "x", Ty: PrimType(PrimInt)}}}
	fnTy := &FuncType{Params: []DataType{badStruct}, Ret: PrimType(PrimUnit)}
	prog := &Program{Items: []TopItem{
		&TopFn{
			Name: gen.Fresh("f", fnTy),
			Fn: &Func{
				Params: []*Ident{gen.Fresh("s", badStruct)},
				Body:   &Const{Value: UnitConst},
				Ty:     fnTy,
			},
		},
	}}

	bag := report.NewBag()
	Check(prog, bag)

	if !hasKind(bag, report.KindReservedTypeName) {
		t.Errorf("expected reserved_type_name, got %v", bag.Diagnostics())
	}
}

func TestCheckRejectsDuplicateTraitMethod(t *testing.T) {
	var gen IdentGen

	show := &FuncType{Ret: PrimType(PrimString)}
	obj := &ObjectType{Name: "Show", Methods: []MethodSig{
		{Name: "show", Ty: show},
		{Name: "show", Ty: show},
	}}
	fnTy := &FuncType{Params: []DataType{obj}, Ret: PrimType(PrimUnit)}
	prog := &Program{Items: []TopItem{
		&TopFn{
			Name: gen.Fresh("f", fnTy),
			Fn: &Func{
				Params: []*Ident{gen.Fresh("o", obj)},
				Body:   &Const{Value: UnitConst},
				Ty:     fnTy,
			},
		},
	}}

	bag := report.NewBag()
	Check(prog, bag)

	if !hasKind(bag, report.KindTraitDuplicateMethod) {
		t.Errorf("expected trait_duplicate_method, got %v", bag.Diagnostics())
	}
}

func TestCheckRejectsDuplicateTopNames(t *testing.T) {
	var gen IdentGen

	intTy := PrimType(PrimInt)
	prog := &Program{Items: []TopItem{
		&TopLet{Name: gen.Fresh("x", intTy), Value: &Const{Value: NewIntConst(1)}},
		&TopLet{Name: gen.Fresh("x", intTy), Value: &Const{Value: NewIntConst(2)}},
	}}

	bag := report.NewBag()
	Check(prog, bag)

	if bag.ErrorCount() != 1 {
		t.Errorf("expected exactly one error, got %v", bag.Diagnostics())
	}
}

func hasKind(bag *report.Bag, kind report.DiagKind) bool {
	for _, d := range bag.Diagnostics() {
		if d.Kind == kind {
			return true
		}
	}

	return false
}
