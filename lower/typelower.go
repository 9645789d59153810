package lower

import (
	"fmt"

	"clamc/clam"
	"clamc/config"
	"clamc/mcore"
	"clamc/report"
	"clamc/util"
)

// TypeLowering maps source types to Clam types and owns the type-def table.
// Tids are handed out in interning order so equal inputs yield equal tables.
type TypeLowering struct {
	cfg  *config.BasicConfig
	defs []clam.TypeDef

	sigTids    map[string]clam.Tid
	tupleTids  map[string]clam.Tid
	arrayTids  map[string]clam.Tid
	fixedTids  map[string]clam.Tid
	viewTids   map[string]clam.Tid
	iterTids   map[string]clam.Tid
	optionTids map[string]clam.Tid
	resultTids map[string]clam.Tid

	structTids map[*mcore.StructType]clam.Tid
	enumTids   map[*mcore.EnumType]clam.Tid
	constrTids map[*mcore.Constructor]clam.Tid
	objTids    map[*mcore.ObjectType]clam.Tid

	bytesTid     clam.Tid
	hasBytes     bool
	bytesViewTid clam.Tid
	hasBytesView bool
}

// NewTypeLowering creates an empty lowering context.
func NewTypeLowering(cfg *config.BasicConfig) *TypeLowering {
	return &TypeLowering{
		cfg:        cfg,
		sigTids:    make(map[string]clam.Tid),
		tupleTids:  make(map[string]clam.Tid),
		arrayTids:  make(map[string]clam.Tid),
		fixedTids:  make(map[string]clam.Tid),
		viewTids:   make(map[string]clam.Tid),
		iterTids:   make(map[string]clam.Tid),
		optionTids: make(map[string]clam.Tid),
		resultTids: make(map[string]clam.Tid),
		structTids: make(map[*mcore.StructType]clam.Tid),
		enumTids:   make(map[*mcore.EnumType]clam.Tid),
		constrTids: make(map[*mcore.Constructor]clam.Tid),
		objTids:    make(map[*mcore.ObjectType]clam.Tid),
	}
}

// Defs returns the accumulated type-def table, indexed by tid.
func (tl *TypeLowering) Defs() []clam.TypeDef {
	return tl.defs
}

// intern appends a finished definition and returns its tid.
func (tl *TypeLowering) intern(def clam.TypeDef) clam.Tid {
	tl.defs = append(tl.defs, def)
	return clam.Tid(len(tl.defs) - 1)
}

// reserve claims a tid before its definition is complete; recursive types
// look themselves up through the map entry set between reserve and patch.
func (tl *TypeLowering) reserve() clam.Tid {
	tl.defs = append(tl.defs, nil)
	return clam.Tid(len(tl.defs) - 1)
}

func (tl *TypeLowering) patch(tid clam.Tid, def clam.TypeDef) {
	tl.defs[tid] = def
}

// -----------------------------------------------------------------------------

// LowerType maps a source type to its Clam representation.
func (tl *TypeLowering) LowerType(ty mcore.DataType) clam.LType {
	switch ty := ty.(type) {
	case mcore.PrimType:
		return tl.lowerPrim(ty)

	case *mcore.FuncType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.AbstractClosureTid(tl.LowerFnSig(ty))}

	case *mcore.TupleType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.TupleTid(ty)}

	case *mcore.FixedArrayType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.FixedArrayTid(ty.Elem)}

	case *mcore.ArrayType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.ArrayTid(ty.Elem)}

	case *mcore.ArrayViewType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.ArrayViewTid(ty.Elem)}

	case mcore.BytesViewType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.BytesViewTid()}

	case *mcore.IterType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.IterTid(ty)}

	case *mcore.OptionType:
		return tl.lowerOption(ty)

	case *mcore.ResultType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.ResultEnumTid(ty)}

	case *mcore.StructType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.StructTid(ty)}

	case *mcore.EnumType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.EnumTid(ty)}

	case *mcore.ObjectType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.AbstractObjectTid(ty)}

	case *mcore.ConstrType:
		return clam.RefType{Kind: clam.RefConcrete, Tid: tl.ConstrTid(ty.Constr)}

	default:
		report.ReportICE("cannot lower type: %s", ty.Repr())
		return nil
	}
}

func (tl *TypeLowering) lowerPrim(pt mcore.PrimType) clam.LType {
	switch pt {
	case mcore.PrimUnit:
		return clam.I32Unit
	case mcore.PrimBool:
		return clam.I32Bool
	case mcore.PrimChar, mcore.PrimInt:
		return clam.I32
	case mcore.PrimInt64:
		return clam.I64
	case mcore.PrimDouble:
		return clam.F64
	case mcore.PrimString:
		if tl.cfg.UseJSBuiltinString {
			return clam.RefExtern
		}

		return clam.RefString
	case mcore.PrimBytes:
		return clam.RefBytes
	default:
		report.ReportICE("unknown primitive type: %d", pt)
		return nil
	}
}

func (tl *TypeLowering) lowerOption(ot *mcore.OptionType) clam.LType {
	elem := tl.LowerType(ot.Elem)

	switch elem := elem.(type) {
	case clam.RefType:
		return clam.RefType{Kind: clam.RefNullable, Tid: elem.Tid}

	case clam.BuiltinRef:
		if elem == clam.RefString {
			return clam.RefStringNullable
		}
	}

	// Unboxed payloads are wrapped in a one-field box so null can encode
	// absence.
	key := ot.Repr()
	tid, ok := tl.optionTids[key]
	if !ok {
		tid = tl.intern(&clam.DefStruct{Fields: []clam.LType{elem}})
		tl.optionTids[key] = tid
	}

	return clam.RefType{Kind: clam.RefNullable, Tid: tid}
}

// -----------------------------------------------------------------------------

// LowerFnSig lowers a source function type to a Clam signature.
func (tl *TypeLowering) LowerFnSig(ft *mcore.FuncType) clam.FnSig {
	return clam.FnSig{
		Params: util.Map(ft.Params, tl.LowerType),
		Ret:    tl.LowerType(ft.Ret),
	}
}

// AbstractClosureTid interns the abstract closure witness for a signature.
func (tl *TypeLowering) AbstractClosureTid(sig clam.FnSig) clam.Tid {
	key := sig.Mangle()

	tid, ok := tl.sigTids[key]
	if !ok {
		tid = tl.intern(&clam.DefClosureAbstract{Sig: sig})
		tl.sigTids[key] = tid
	}

	return tid
}

// ClosureTid mints a concrete closure record for one allocation site.  Every
// site gets its own tid because capture layouts are per-function.
func (tl *TypeLowering) ClosureTid(fnSigTid clam.Tid, captures []clam.LType) clam.Tid {
	return tl.intern(&clam.DefClosure{FnSigTid: fnSigTid, Captures: captures})
}

// StructCaptureTid mints a capture struct for a well-known multi-capture
// function.
func (tl *TypeLowering) StructCaptureTid(fields []clam.LType) clam.Tid {
	return tl.intern(&clam.DefStruct{Fields: fields})
}

// LateInitStructTid mints the shared environment record of a mutually
// recursive bundle.
func (tl *TypeLowering) LateInitStructTid(fields []clam.LType) clam.Tid {
	return tl.intern(&clam.DefLateInitStruct{Fields: fields})
}

// TupleTid interns the record type of a tuple.
func (tl *TypeLowering) TupleTid(tt *mcore.TupleType) clam.Tid {
	key := tt.Repr()

	tid, ok := tl.tupleTids[key]
	if !ok {
		tid = tl.intern(&clam.DefTuple{Fields: util.Map(tt.Elems, tl.LowerType)})
		tl.tupleTids[key] = tid
	}

	return tid
}

// FixedArrayTid interns the array type of an element.
func (tl *TypeLowering) FixedArrayTid(elem mcore.DataType) clam.Tid {
	key := elem.Repr()

	tid, ok := tl.fixedTids[key]
	if !ok {
		tid = tl.intern(&clam.DefArray{Elem: tl.LowerType(elem)})
		tl.fixedTids[key] = tid
	}

	return tid
}

// ArrayTid interns the growable-array record {buf, len} of an element.
func (tl *TypeLowering) ArrayTid(elem mcore.DataType) clam.Tid {
	key := elem.Repr()

	tid, ok := tl.arrayTids[key]
	if !ok {
		buf := clam.RefType{Kind: clam.RefConcrete, Tid: tl.FixedArrayTid(elem)}
		tid = tl.intern(&clam.DefStruct{Fields: []clam.LType{buf, clam.I32}})
		tl.arrayTids[key] = tid
	}

	return tid
}

// ArrayViewTid interns the view record {buf, start, len} of an element.
func (tl *TypeLowering) ArrayViewTid(elem mcore.DataType) clam.Tid {
	key := elem.Repr()

	tid, ok := tl.viewTids[key]
	if !ok {
		buf := clam.RefType{Kind: clam.RefConcrete, Tid: tl.FixedArrayTid(elem)}
		tid = tl.intern(&clam.DefStruct{Fields: []clam.LType{buf, clam.I32, clam.I32}})
		tl.viewTids[key] = tid
	}

	return tid
}

// IterTid interns the abstract closure type of an internal iterator: a
// function from a sink closure over the element type to an i32 status.
func (tl *TypeLowering) IterTid(it *mcore.IterType) clam.Tid {
	key := it.Repr()

	tid, ok := tl.iterTids[key]
	if !ok {
		sinkSig := clam.FnSig{Params: []clam.LType{tl.LowerType(it.Elem)}, Ret: clam.I32}
		sinkTid := tl.AbstractClosureTid(sinkSig)

		iterSig := clam.FnSig{
			Params: []clam.LType{clam.RefType{Kind: clam.RefConcrete, Tid: sinkTid}},
			Ret:    clam.I32,
		}

		tid = tl.AbstractClosureTid(iterSig)
		tl.iterTids[key] = tid
	}

	return tid
}

// BytesTid interns the raw byte-array type used by view element loads.
func (tl *TypeLowering) BytesTid() clam.Tid {
	if !tl.hasBytes {
		tl.bytesTid = tl.intern(&clam.DefArray{Elem: clam.I32})
		tl.hasBytes = true
	}

	return tl.bytesTid
}

// BytesViewTid interns the bytes-view record {bytes, start, len}.
func (tl *TypeLowering) BytesViewTid() clam.Tid {
	if !tl.hasBytesView {
		tl.bytesViewTid = tl.intern(&clam.DefStruct{
			Fields: []clam.LType{clam.RefBytes, clam.I32, clam.I32},
		})
		tl.hasBytesView = true
	}

	return tl.bytesViewTid
}

// StructTid interns a named struct.  The tid is reserved before fields are
// lowered so self-referential structs resolve to the reserved entry.
func (tl *TypeLowering) StructTid(st *mcore.StructType) clam.Tid {
	if tid, ok := tl.structTids[st]; ok {
		return tid
	}

	tid := tl.reserve()
	tl.structTids[st] = tid

	fields := make([]clam.LType, len(st.Fields))
	for i, f := range st.Fields {
		fields[i] = tl.LowerType(f.Ty)
	}

	tl.patch(tid, &clam.DefStruct{Fields: fields})
	return tid
}

// EnumTid interns a named enum and all of its constructor records.
func (tl *TypeLowering) EnumTid(et *mcore.EnumType) clam.Tid {
	if tid, ok := tl.enumTids[et]; ok {
		return tid
	}

	tid := tl.intern(&clam.DefEnum{Name: et.Name})
	tl.enumTids[et] = tid

	for _, c := range et.Constructors {
		ctid := tl.reserve()
		tl.constrTids[c] = ctid

		fields := make([]clam.LType, len(c.Args))
		for i, a := range c.Args {
			fields[i] = tl.LowerType(a)
		}

		tl.patch(ctid, &clam.DefConstr{EnumTid: tid, Tag: c.Tag, Fields: fields})
	}

	return tid
}

// ConstrTid returns the record tid of a single constructor.
func (tl *TypeLowering) ConstrTid(c *mcore.Constructor) clam.Tid {
	if _, ok := tl.enumTids[c.Enum]; !ok {
		tl.EnumTid(c.Enum)
	}

	tid, ok := tl.constrTids[c]
	if !ok {
		report.ReportICE("constructor %s not interned with its enum", c.Name)
	}

	return tid
}

// ResultEnumTid interns the result sum of an (ok, err) pair: tag 0 carries
// the ok payload, tag 1 the error payload.
func (tl *TypeLowering) ResultEnumTid(rt *mcore.ResultType) clam.Tid {
	key := rt.Repr()

	if tid, ok := tl.resultTids[key]; ok {
		return tid
	}

	tid := tl.intern(&clam.DefEnum{Name: fmt.Sprintf("Result[%s]", key)})
	tl.resultTids[key] = tid

	okTid := tl.reserve()
	errTid := tl.reserve()
	tl.patch(okTid, &clam.DefConstr{EnumTid: tid, Tag: ResultOkTag, Fields: []clam.LType{tl.LowerType(rt.Ok)}})
	tl.patch(errTid, &clam.DefConstr{EnumTid: tid, Tag: ResultErrTag, Fields: []clam.LType{tl.LowerType(rt.Err)}})

	return tid
}

// ResultConstrTid returns the constructor tid for one arm of a result sum.
// The arm tids immediately follow the enum's own tid.
func (tl *TypeLowering) ResultConstrTid(rt *mcore.ResultType, tag int) clam.Tid {
	enumTid := tl.ResultEnumTid(rt)
	return enumTid + 1 + clam.Tid(tag)
}

// Discriminant tags of the built-in result sum.
const (
	ResultOkTag  = 0
	ResultErrTag = 1
)

// AbstractObjectTid interns an object witness type.
func (tl *TypeLowering) AbstractObjectTid(ot *mcore.ObjectType) clam.Tid {
	if tid, ok := tl.objTids[ot]; ok {
		return tid
	}

	tid := tl.reserve()
	tl.objTids[ot] = tid

	methods := make([]clam.FnSig, len(ot.Methods))
	for i, m := range ot.Methods {
		methods[i] = tl.LowerFnSig(m.Ty)
	}

	tl.patch(tid, &clam.DefAbstractObject{Name: ot.Name, Methods: methods})
	return tid
}

// ConcreteObjectTid mints the record pairing an object witness with the self
// value stored behind it.
func (tl *TypeLowering) ConcreteObjectTid(ot *mcore.ObjectType, self clam.LType) clam.Tid {
	return tl.intern(&clam.DefConcreteObject{AbstractTid: tl.AbstractObjectTid(ot), Self: self})
}
