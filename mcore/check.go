package mcore

import "clamc/report"

// reservedTypeNames are the built-in type names user declarations may not
// shadow.
var reservedTypeNames = map[string]bool{
	"Unit":       true,
	"Bool":       true,
	"Char":       true,
	"Int":        true,
	"Int64":      true,
	"Double":     true,
	"String":     true,
	"Bytes":      true,
	"FixedArray": true,
	"Array":      true,
	"ArrayView":  true,
	"BytesView":  true,
	"Iter":       true,
	"Option":     true,
	"Result":     true,
}

// Check runs the well-formedness pre-pass over the program, accumulating
// structured diagnostics.  Translation must not run on a program whose check
// produced errors.
func Check(prog *Program, bag *report.Bag) {
	seenTop := make(map[string]bool)
	seenTypes := make(map[DataType]bool)

	for _, item := range prog.Items {
		switch it := item.(type) {
		case *TopFn:
			checkTopName(it.Name, seenTop, bag)

			if it.IsMain && len(it.Fn.Params) != 0 {
				bag.AddError(
					report.KindInvalidInitOrMain, nil,
					"`main` must not take parameters, found %d", len(it.Fn.Params),
				)
			}

			checkDeclaredTypes(it.Fn.Ty, seenTypes, bag)
		case *TopLet:
			checkTopName(it.Name, seenTop, bag)
			checkDeclaredTypes(it.Name.Ty, seenTypes, bag)
		case *TopStub:
			checkTopName(it.Name, seenTop, bag)
		}
	}
}

// checkTopName reports a duplicate top-level binding name.
func checkTopName(name *Ident, seen map[string]bool, bag *report.Bag) {
	if seen[name.Name] {
		bag.AddError(report.KindGeneric, nil, "duplicate top-level name `%s`", name.Name)
		return
	}

	seen[name.Name] = true
}

// checkDeclaredTypes walks a type once, reporting reserved declared names and
// duplicate object methods.
func checkDeclaredTypes(ty DataType, seen map[DataType]bool, bag *report.Bag) {
	if ty == nil || seen[ty] {
		return
	}
	seen[ty] = true

	switch t := ty.(type) {
	case *FuncType:
		for _, param := range t.Params {
			checkDeclaredTypes(param, seen, bag)
		}
		checkDeclaredTypes(t.Ret, seen, bag)
	case *StructType:
		if reservedTypeNames[t.Name] {
			bag.AddError(report.KindReservedTypeName, nil, "`%s` is a reserved type name", t.Name)
		}

		for _, field := range t.Fields {
			checkDeclaredTypes(field.Ty, seen, bag)
		}
	case *EnumType:
		if reservedTypeNames[t.Name] {
			bag.AddError(report.KindReservedTypeName, nil, "`%s` is a reserved type name", t.Name)
		}

		for _, constr := range t.Constructors {
			for _, arg := range constr.Args {
				checkDeclaredTypes(arg, seen, bag)
			}
		}
	case *ObjectType:
		methodNames := make(map[string]bool)
		for _, m := range t.Methods {
			if methodNames[m.Name] {
				bag.AddError(
					report.KindTraitDuplicateMethod, nil,
					"trait `%s` declares method `%s` more than once", t.Name, m.Name,
				)
			}

			methodNames[m.Name] = true
			checkDeclaredTypes(m.Ty, seen, bag)
		}
	}
}
