package lower

import (
	"clamc/clam"
	"clamc/mcore"
)

// Iterator protocol constants: a sink returns go to request the next element
// and end to stop early.  An iterator returns whichever status its run ended
// with.
const (
	iterEnd = 0
	iterGo  = 1
)

var (
	intTy  = mcore.PrimType(mcore.PrimInt)
	unitTy = mcore.PrimType(mcore.PrimUnit)
)

// rewriteIntrinsic specializes a call to a tagged method.  Accessor
// intrinsics lower straight to Clam field and array operations; the iterator
// family is rewritten into fused MCore code and lowered through the normal
// path so closure conversion applies uniformly.
func (lo *Lowerer) rewriteIntrinsic(in mcore.Intrinsic, e *mcore.Apply) clam.Lambda {
	switch in {
	case mcore.ArrayLength:
		at := e.Args[0].Type().(*mcore.ArrayType)
		return &clam.LgetField{
			Obj:   lo.lowerExpr(e.Args[0]),
			Tid:   lo.types.ArrayTid(at.Elem),
			Index: 1,
			Kind:  clam.FieldStruct{},
		}

	case mcore.ArrayViewLength:
		vt := e.Args[0].Type().(*mcore.ArrayViewType)
		return &clam.LgetField{
			Obj:   lo.lowerExpr(e.Args[0]),
			Tid:   lo.types.ArrayViewTid(vt.Elem),
			Index: 2,
			Kind:  clam.FieldStruct{},
		}

	case mcore.BytesViewLength:
		return &clam.LgetField{
			Obj:   lo.lowerExpr(e.Args[0]),
			Tid:   lo.types.BytesViewTid(),
			Index: 2,
			Kind:  clam.FieldStruct{},
		}

	case mcore.ArrayUnsafeGet:
		return lo.arrayUnsafeGet(e)

	case mcore.ArrayUnsafeSet:
		return lo.arrayUnsafeSet(e)

	case mcore.ArrayGet:
		return lo.arraySafeGet(e)

	case mcore.ArraySet:
		return lo.arraySafeSet(e)

	case mcore.ArrayViewUnsafeGet:
		return lo.viewUnsafeGet(e)

	case mcore.ArrayViewUnsafeSet:
		return lo.viewUnsafeSet(e)

	case mcore.BytesViewUnsafeGet:
		return lo.bytesViewUnsafeGet(e)

	case mcore.BytesViewUnsafeSet:
		return lo.bytesViewUnsafeSet(e)

	case mcore.ArrayViewUnsafeAsView:
		vt := e.Args[0].Type().(*mcore.ArrayViewType)
		return lo.unsafeAsView(e, lo.types.ArrayViewTid(vt.Elem))

	case mcore.BytesViewUnsafeAsView:
		return lo.unsafeAsView(e, lo.types.BytesViewTid())

	case mcore.CharToString:
		return &clam.Lprim{Prim: mcore.PcharToString, Args: lo.lowerAll(e.Args)}

	case mcore.OpLt, mcore.OpLe, mcore.OpGt, mcore.OpGe, mcore.OpNotEqual:
		return lo.lowerComparison(in, e)

	default:
		return lo.rewriteIterIntrinsic(in, e)
	}
}

// -----------------------------------------------------------------------------

// bindImpure prepares an argument the synthesized code evaluates more than
// once.  Variables, constants, and function literals are pure and lower in
// place; anything else is Llet-bound to a fresh name so it is evaluated
// exactly once, in source order.
func (lo *Lowerer) bindImpure(e mcore.Expr, hint string) (clam.Lambda, func(clam.Lambda) clam.Lambda) {
	switch e.(type) {
	case *mcore.Var, *mcore.Const, *mcore.Function:
		return lo.lowerExpr(e), func(body clam.Lambda) clam.Lambda { return body }
	}

	id := lo.gen.Fresh(hint, e.Type())

	return &clam.Lvar{Var: id}, func(body clam.Lambda) clam.Lambda {
		return &clam.Llet{Name: id, Expr: lo.lowerExpr(e), Body: body}
	}
}

func (lo *Lowerer) arrayUnsafeGet(e *mcore.Apply) clam.Lambda {
	at := e.Args[0].Type().(*mcore.ArrayType)
	elemL := lo.types.LowerType(at.Elem)

	return &clam.LarrayGetItem{
		Tid: lo.types.FixedArrayTid(at.Elem),
		Arr: &clam.LgetField{
			Obj:   lo.lowerExpr(e.Args[0]),
			Tid:   lo.types.ArrayTid(at.Elem),
			Index: 0,
			Kind:  clam.FieldStruct{},
		},
		Index:  lo.lowerExpr(e.Args[1]),
		Access: clam.Unsafe,
		Extra:  elemExtra(elemL),
	}
}

func (lo *Lowerer) arrayUnsafeSet(e *mcore.Apply) clam.Lambda {
	at := e.Args[0].Type().(*mcore.ArrayType)

	return &clam.LarraySetItem{
		Tid: lo.types.FixedArrayTid(at.Elem),
		Arr: &clam.LgetField{
			Obj:   lo.lowerExpr(e.Args[0]),
			Tid:   lo.types.ArrayTid(at.Elem),
			Index: 0,
			Kind:  clam.FieldStruct{},
		},
		Index:  lo.lowerExpr(e.Args[1]),
		Value:  lo.lowerExpr(e.Args[2]),
		Access: clam.Unsafe,
	}
}

// arraySafeGet synthesizes the bounds check: indices below zero or at or past
// the length trap before the element load.
func (lo *Lowerer) arraySafeGet(e *mcore.Apply) clam.Lambda {
	at := e.Args[0].Type().(*mcore.ArrayType)
	arrTid := lo.types.ArrayTid(at.Elem)
	elemL := lo.types.LowerType(at.Elem)

	arr, bindArr := lo.bindImpure(e.Args[0], "arr")
	idx, bindIdx := lo.bindImpure(e.Args[1], "idx")

	get := &clam.LarrayGetItem{
		Tid:    lo.types.FixedArrayTid(at.Elem),
		Arr:    &clam.LgetField{Obj: arr, Tid: arrTid, Index: 0, Kind: clam.FieldStruct{}},
		Index:  idx,
		Access: clam.Unsafe,
		Extra:  elemExtra(elemL),
	}

	return bindArr(bindIdx(&clam.Lif{
		Pred:  lo.boundsCheck(arr, arrTid, idx),
		IfSo:  &clam.Lprim{Prim: mcore.Ppanic},
		IfNot: get,
		Type:  elemL,
	}))
}

func (lo *Lowerer) arraySafeSet(e *mcore.Apply) clam.Lambda {
	at := e.Args[0].Type().(*mcore.ArrayType)
	arrTid := lo.types.ArrayTid(at.Elem)

	arr, bindArr := lo.bindImpure(e.Args[0], "arr")
	idx, bindIdx := lo.bindImpure(e.Args[1], "idx")

	set := &clam.LarraySetItem{
		Tid:    lo.types.FixedArrayTid(at.Elem),
		Arr:    &clam.LgetField{Obj: arr, Tid: arrTid, Index: 0, Kind: clam.FieldStruct{}},
		Index:  idx,
		Value:  lo.lowerExpr(e.Args[2]),
		Access: clam.Unsafe,
	}

	return bindArr(bindIdx(&clam.Lif{
		Pred:  lo.boundsCheck(arr, arrTid, idx),
		IfSo:  &clam.Lprim{Prim: mcore.Ppanic},
		IfNot: set,
		Type:  clam.I32Unit,
	}))
}

// boundsCheck builds `i < 0 || i >= a.len` over already-bound operands.
func (lo *Lowerer) boundsCheck(arr clam.Lambda, recTid clam.Tid, idx clam.Lambda) clam.Lambda {
	length := &clam.LgetField{Obj: arr, Tid: recTid, Index: 1, Kind: clam.FieldStruct{}}

	return &clam.Lif{
		Pred: &clam.Lprim{
			Prim: mcore.PltInt,
			Args: []clam.Lambda{idx, &clam.Lconst{Value: mcore.NewIntConst(0)}},
		},
		IfSo: &clam.Lconst{Value: mcore.NewBoolConst(true)},
		IfNot: &clam.Lprim{
			Prim: mcore.PgeInt,
			Args: []clam.Lambda{idx, length},
		},
		Type: clam.I32Bool,
	}
}

func (lo *Lowerer) viewUnsafeGet(e *mcore.Apply) clam.Lambda {
	vt := e.Args[0].Type().(*mcore.ArrayViewType)
	viewTid := lo.types.ArrayViewTid(vt.Elem)
	elemL := lo.types.LowerType(vt.Elem)

	view, bindView := lo.bindImpure(e.Args[0], "view")

	return bindView(&clam.LarrayGetItem{
		Tid:    lo.types.FixedArrayTid(vt.Elem),
		Arr:    &clam.LgetField{Obj: view, Tid: viewTid, Index: 0, Kind: clam.FieldStruct{}},
		Index:  lo.viewIndex(view, viewTid, e.Args[1]),
		Access: clam.Unsafe,
		Extra:  elemExtra(elemL),
	})
}

func (lo *Lowerer) viewUnsafeSet(e *mcore.Apply) clam.Lambda {
	vt := e.Args[0].Type().(*mcore.ArrayViewType)
	viewTid := lo.types.ArrayViewTid(vt.Elem)

	view, bindView := lo.bindImpure(e.Args[0], "view")

	return bindView(&clam.LarraySetItem{
		Tid:    lo.types.FixedArrayTid(vt.Elem),
		Arr:    &clam.LgetField{Obj: view, Tid: viewTid, Index: 0, Kind: clam.FieldStruct{}},
		Index:  lo.viewIndex(view, viewTid, e.Args[1]),
		Value:  lo.lowerExpr(e.Args[2]),
		Access: clam.Unsafe,
	})
}

func (lo *Lowerer) bytesViewUnsafeGet(e *mcore.Apply) clam.Lambda {
	viewTid := lo.types.BytesViewTid()
	view, bindView := lo.bindImpure(e.Args[0], "view")

	return bindView(&clam.LarrayGetItem{
		Tid:    lo.types.BytesTid(),
		Arr:    &clam.LgetField{Obj: view, Tid: viewTid, Index: 0, Kind: clam.FieldStruct{}},
		Index:  lo.viewIndex(view, viewTid, e.Args[1]),
		Access: clam.Unsafe,
		Extra:  clam.NeedSignedInfo{Signed: false},
	})
}

func (lo *Lowerer) bytesViewUnsafeSet(e *mcore.Apply) clam.Lambda {
	viewTid := lo.types.BytesViewTid()
	view, bindView := lo.bindImpure(e.Args[0], "view")

	return bindView(&clam.LarraySetItem{
		Tid:    lo.types.BytesTid(),
		Arr:    &clam.LgetField{Obj: view, Tid: viewTid, Index: 0, Kind: clam.FieldStruct{}},
		Index:  lo.viewIndex(view, viewTid, e.Args[1]),
		Value:  lo.lowerExpr(e.Args[2]),
		Access: clam.Unsafe,
	})
}

// viewIndex rebases a view-relative index onto the backing buffer.
func (lo *Lowerer) viewIndex(view clam.Lambda, viewTid clam.Tid, idx mcore.Expr) clam.Lambda {
	return &clam.Lprim{
		Prim: mcore.PaddInt,
		Args: []clam.Lambda{
			&clam.LgetField{Obj: view, Tid: viewTid, Index: 1, Kind: clam.FieldStruct{}},
			lo.lowerExpr(idx),
		},
	}
}

// unsafeAsView reslices a view without bounds checks.  With two arguments the
// new view runs to the end of the parent.
func (lo *Lowerer) unsafeAsView(e *mcore.Apply, viewTid clam.Tid) clam.Lambda {
	view, bindView := lo.bindImpure(e.Args[0], "view")
	start, bindStart := lo.bindImpure(e.Args[1], "start")

	field := func(idx int) clam.Lambda {
		return &clam.LgetField{Obj: view, Tid: viewTid, Index: idx, Kind: clam.FieldStruct{}}
	}

	newStart := &clam.Lprim{
		Prim: mcore.PaddInt,
		Args: []clam.Lambda{field(1), start},
	}

	var newLen clam.Lambda
	bindEnd := func(body clam.Lambda) clam.Lambda { return body }

	if len(e.Args) > 2 {
		var end clam.Lambda
		end, bindEnd = lo.bindImpure(e.Args[2], "end")
		newLen = &clam.Lprim{
			Prim: mcore.PsubInt,
			Args: []clam.Lambda{end, start},
		}
	} else {
		newLen = &clam.Lprim{
			Prim: mcore.PsubInt,
			Args: []clam.Lambda{field(2), start},
		}
	}

	return bindView(bindStart(bindEnd(&clam.Lallocate{
		Kind:   clam.AllocStruct{},
		Tid:    viewTid,
		Fields: []clam.Lambda{field(0), newStart, newLen},
	})))
}

// -----------------------------------------------------------------------------

// lowerComparison specializes a polymorphic comparison to the monomorphic
// primitive of its operand type.
func (lo *Lowerer) lowerComparison(in mcore.Intrinsic, e *mcore.Apply) clam.Lambda {
	args := lo.lowerAll(e.Args)

	pt, ok := e.Args[0].Type().(mcore.PrimType)
	if !ok {
		lo.ice("comparison %s on non-primitive type %s", in, e.Args[0].Type().Repr())
	}

	if pt == mcore.PrimString {
		if in != mcore.OpNotEqual {
			lo.ice("ordered comparison %s on strings", in)
		}

		return &clam.Lprim{
			Prim: mcore.Pnot,
			Args: []clam.Lambda{&clam.Lprim{Prim: mcore.PeqString, Args: args}},
		}
	}

	var prim mcore.Prim

	switch pt {
	case mcore.PrimInt64:
		switch in {
		case mcore.OpLt:
			prim = mcore.PltInt64
		case mcore.OpLe:
			prim = mcore.PleInt64
		case mcore.OpGt:
			prim = mcore.PgtInt64
		case mcore.OpGe:
			prim = mcore.PgeInt64
		case mcore.OpNotEqual:
			prim = mcore.PneInt64
		}

	case mcore.PrimDouble:
		switch in {
		case mcore.OpLt:
			prim = mcore.PltFloat
		case mcore.OpLe:
			prim = mcore.PleFloat
		case mcore.OpGt:
			prim = mcore.PgtFloat
		case mcore.OpGe:
			prim = mcore.PgeFloat
		case mcore.OpNotEqual:
			prim = mcore.PneFloat
		}

	default:
		// Int, Char, and Bool all compare as i32.
		switch in {
		case mcore.OpLt:
			prim = mcore.PltInt
		case mcore.OpLe:
			prim = mcore.PleInt
		case mcore.OpGt:
			prim = mcore.PgtInt
		case mcore.OpGe:
			prim = mcore.PgeInt
		case mcore.OpNotEqual:
			prim = mcore.PneInt
		}
	}

	return &clam.Lprim{Prim: prim, Args: args}
}
