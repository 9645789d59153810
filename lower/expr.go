package lower

import (
	"clamc/clam"
	"clamc/mcore"
	"clamc/util"
)

// lowerExpr lowers one MCore expression.  In debug builds every located node
// is wrapped in an event marker so the backend can emit source maps.
func (lo *Lowerer) lowerExpr(e mcore.Expr) clam.Lambda {
	l := lo.lowerExprInner(e)

	if lo.cfg.Debug {
		if span := e.Loc(); span != nil {
			return &clam.Levent{Expr: l, Loc: span}
		}
	}

	return l
}

func (lo *Lowerer) lowerExprInner(e mcore.Expr) clam.Lambda {
	switch e := e.(type) {
	case *mcore.Const:
		return lo.lowerConst(e.Value)

	case *mcore.Var:
		return lo.lowerVar(e.Id)

	case *mcore.PrimApply:
		return lo.lowerPrimApply(e)

	case *mcore.And:
		return &clam.Lif{
			Pred:  lo.lowerExpr(e.Lhs),
			IfSo:  lo.lowerExpr(e.Rhs),
			IfNot: &clam.Lconst{Value: mcore.NewBoolConst(false)},
			Type:  clam.I32Bool,
		}

	case *mcore.Or:
		return &clam.Lif{
			Pred:  lo.lowerExpr(e.Lhs),
			IfSo:  &clam.Lconst{Value: mcore.NewBoolConst(true)},
			IfNot: lo.lowerExpr(e.Rhs),
			Type:  clam.I32Bool,
		}

	case *mcore.Let:
		return &clam.Llet{
			Name: e.Name,
			Expr: lo.lowerExpr(e.Value),
			Body: lo.lowerExpr(e.Body),
		}

	case *mcore.LetFn:
		return lo.lowerLetFn(e)

	case *mcore.LetRec:
		return lo.lowerLetRec(e)

	case *mcore.Function:
		return lo.lowerFunction(e)

	case *mcore.Apply:
		return lo.lowerApply(e)

	case *mcore.Tuple:
		return &clam.Lallocate{
			Kind:   clam.AllocTuple{},
			Tid:    lo.types.TupleTid(e.Type().(*mcore.TupleType)),
			Fields: lo.lowerAll(e.Elems),
		}

	case *mcore.Record:
		return &clam.Lallocate{
			Kind:   clam.AllocStruct{},
			Tid:    lo.types.StructTid(e.Type().(*mcore.StructType)),
			Fields: lo.lowerAll(e.Fields),
		}

	case *mcore.RecordUpdate:
		return lo.lowerRecordUpdate(e)

	case *mcore.FieldAccess:
		return lo.lowerFieldAccess(e)

	case *mcore.Mutate:
		st := e.Record.Type().(*mcore.StructType)
		return &clam.LsetField{
			Obj:   lo.lowerExpr(e.Record),
			Tid:   lo.types.StructTid(st),
			Index: e.Index,
			Kind:  clam.FieldStruct{},
			Value: lo.lowerExpr(e.Value),
		}

	case *mcore.Constr:
		return &clam.Lallocate{
			Kind:   clam.AllocEnum{Tag: e.Constructor.Tag},
			Tid:    lo.types.ConstrTid(e.Constructor),
			Fields: lo.lowerAll(e.Args),
		}

	case *mcore.ArrayLit:
		fat := e.Type().(*mcore.FixedArrayType)
		return &clam.LmakeArray{
			Tid:   lo.types.FixedArrayTid(fat.Elem),
			Elems: lo.lowerAll(e.Elems),
		}

	case *mcore.Assign:
		return &clam.Lassign{Var: e.Id, Expr: lo.lowerExpr(e.Value)}

	case *mcore.Sequence:
		return &clam.Lsequence{
			Exprs: lo.lowerAll(e.Exprs),
			Last:  lo.lowerExpr(e.Last),
		}

	case *mcore.If:
		return &clam.Lif{
			Pred:  lo.lowerExpr(e.Cond),
			IfSo:  lo.lowerExpr(e.Then),
			IfNot: lo.lowerExpr(e.Else),
			Type:  lo.types.LowerType(e.Type()),
		}

	case *mcore.SwitchConstr:
		return lo.lowerSwitchConstr(e)

	case *mcore.SwitchConstant:
		return lo.lowerSwitchConstant(e)

	case *mcore.Loop:
		return &clam.Lloop{
			Params: e.Params,
			Body:   lo.lowerExpr(e.Body),
			Args:   lo.lowerAll(e.Args),
			Label:  e.Label,
			Type:   lo.types.LowerType(e.Type()),
		}

	case *mcore.Break:
		var arg clam.Lambda
		if e.Arg != nil {
			arg = lo.lowerExpr(e.Arg)
		}

		return &clam.Lbreak{Arg: arg, Label: e.Label}

	case *mcore.Continue:
		return &clam.Lcontinue{Args: lo.lowerAll(e.Args), Label: e.Label}

	case *mcore.Return:
		return lo.lowerReturn(e)

	case *mcore.HandleError:
		return lo.lowerHandleError(e)

	case *mcore.MakeObject:
		return lo.lowerMakeObject(e)

	default:
		lo.ice("cannot lower expression %T", e)
		return nil
	}
}

func (lo *Lowerer) lowerAll(es []mcore.Expr) []clam.Lambda {
	return util.Map(es, lo.lowerExpr)
}

// lowerConst lowers a literal.  Unit collapses to the integer zero.
func (lo *Lowerer) lowerConst(c *mcore.Constant) clam.Lambda {
	if c.Kind == mcore.CUnit {
		return &clam.Lconst{Value: mcore.NewIntConst(0)}
	}

	return &clam.Lconst{Value: c}
}

// lowerVar lowers a value use of an identifier.  First-class uses of
// top-level functions and stubs go through their closure wrappers.
func (lo *Lowerer) lowerVar(id *mcore.Ident) clam.Lambda {
	switch entry := lo.table.Lookup(id).(type) {
	case *Toplevel:
		return lo.closureValueFor(entry, id.Name)

	case *Local:
		lo.ice("well-known function %s used as a value", id)
		return nil
	}

	if st, ok := lo.stubs[id]; ok {
		return lo.stubValueFor(st)
	}

	return &clam.Lvar{Var: id}
}

func (lo *Lowerer) lowerPrimApply(e *mcore.PrimApply) clam.Lambda {
	switch e.Prim {
	case mcore.PfixedArrayGet:
		fat := e.Args[0].Type().(*mcore.FixedArrayType)
		elemL := lo.types.LowerType(fat.Elem)

		return &clam.LarrayGetItem{
			Tid:    lo.types.FixedArrayTid(fat.Elem),
			Arr:    lo.lowerExpr(e.Args[0]),
			Index:  lo.lowerExpr(e.Args[1]),
			Access: clam.Unsafe,
			Extra:  elemExtra(elemL),
		}

	case mcore.Pnull:
		if ot, ok := e.Type().(*mcore.OptionType); ok {
			if pt, ok := ot.Elem.(mcore.PrimType); ok && pt == mcore.PrimString && lo.cfg.UseJSBuiltinString {
				return &clam.Lprim{Prim: mcore.PnullStringExtern}
			}
		}
	}

	return &clam.Lprim{Prim: e.Prim, Args: lo.lowerAll(e.Args)}
}

// elemExtra picks the load fixup an array element type requires: concrete
// references stored in arrays come back nullable and must be re-asserted.
func elemExtra(elem clam.LType) clam.GetItemExtra {
	if rt, ok := elem.(clam.RefType); ok && rt.Kind == clam.RefConcrete {
		return clam.NeedNonNullCast{}
	}

	return clam.NoExtra{}
}

// -----------------------------------------------------------------------------

func (lo *Lowerer) lowerApply(e *mcore.Apply) clam.Lambda {
	if _, isJoin := e.Kind.(mcore.ApplyJoin); isJoin {
		return &clam.Ljoinapply{Name: e.Callee, Args: lo.lowerAll(e.Args)}
	}

	if in := lo.intrinsicOf(e.Callee); in != mcore.IntrinsicNone {
		return lo.rewriteIntrinsic(in, e)
	}

	if e.Callee.Kind == mcore.IdentLocalMethod {
		return lo.lowerMethodApply(e)
	}

	switch entry := lo.table.Lookup(e.Callee).(type) {
	case *Toplevel:
		return &clam.Lapply{
			Target: clam.TargetStaticFn{Addr: entry.Addr},
			Args:   lo.lowerAll(e.Args),
		}

	case *Local:
		args := lo.lowerAll(e.Args)
		if entry.EnvVar != nil {
			args = append([]clam.Lambda{&clam.Lvar{Var: entry.EnvVar}}, args...)
		}

		return &clam.Lapply{Target: clam.TargetStaticFn{Addr: entry.Addr}, Args: args}
	}

	if st, ok := lo.stubs[e.Callee]; ok {
		return &clam.LstubCall{
			Fn:       st.funcName,
			Args:     lo.lowerAll(e.Args),
			ParamsTy: st.paramsTy,
			RetTy:    st.retTy,
		}
	}

	return &clam.Lapply{
		Target: clam.TargetDynamic{Var: e.Callee},
		Args:   lo.lowerAll(e.Args),
	}
}

// lowerMethodApply lowers a call through an abstract object's method table.
// The receiver is the first argument.
func (lo *Lowerer) lowerMethodApply(e *mcore.Apply) clam.Lambda {
	if len(e.Args) == 0 {
		lo.ice("method call %s has no receiver", e.Callee)
	}

	ot, ok := e.Args[0].Type().(*mcore.ObjectType)
	if !ok {
		lo.ice("method call %s on non-object receiver %s", e.Callee, e.Args[0].Type().Repr())
	}

	name := methodBaseName(e.Callee.Name)

	idx := ot.MethodIndex(name)
	if idx < 0 {
		lo.ice("object %s has no method %s", ot.Name, name)
	}

	return &clam.Lapply{
		Target: clam.TargetObject{
			Obj:         lo.lowerExpr(e.Args[0]),
			MethodIndex: idx,
			MethodTy:    lo.types.LowerFnSig(ot.Methods[idx].Ty),
		},
		Args: lo.lowerAll(e.Args[1:]),
	}
}

func methodBaseName(name string) string {
	for i := len(name) - 1; i > 0; i-- {
		if name[i-1] == ':' && name[i] == ':' {
			return name[i+1:]
		}
	}

	return name
}

// -----------------------------------------------------------------------------

func (lo *Lowerer) lowerRecordUpdate(e *mcore.RecordUpdate) clam.Lambda {
	st := e.Record.Type().(*mcore.StructType)
	tid := lo.types.StructTid(st)

	updated := make(map[int]clam.Lambda, len(e.Updates))
	for _, u := range e.Updates {
		updated[u.Index] = lo.lowerExpr(u.Value)
	}

	r := lo.gen.Fresh("rec", st)

	fields := make([]clam.Lambda, len(st.Fields))
	for i := range st.Fields {
		if v, ok := updated[i]; ok {
			fields[i] = v
			continue
		}

		fields[i] = &clam.LgetField{
			Obj:   &clam.Lvar{Var: r},
			Tid:   tid,
			Index: i,
			Kind:  clam.FieldStruct{},
		}
	}

	return &clam.Llet{
		Name: r,
		Expr: lo.lowerExpr(e.Record),
		Body: &clam.Lallocate{Kind: clam.AllocStruct{}, Tid: tid, Fields: fields},
	}
}

func (lo *Lowerer) lowerFieldAccess(e *mcore.FieldAccess) clam.Lambda {
	obj := lo.lowerExpr(e.Record)

	switch rt := e.Record.Type().(type) {
	case *mcore.StructType:
		return &clam.LgetField{Obj: obj, Tid: lo.types.StructTid(rt), Index: e.Index, Kind: clam.FieldStruct{}}

	case *mcore.TupleType:
		return &clam.LgetField{Obj: obj, Tid: lo.types.TupleTid(rt), Index: e.Index, Kind: clam.FieldTuple{}}

	case *mcore.ConstrType:
		return &clam.LgetField{Obj: obj, Tid: lo.types.ConstrTid(rt.Constr), Index: e.Index, Kind: clam.FieldEnum{}}

	case *mcore.ArrayType:
		return &clam.LgetField{Obj: obj, Tid: lo.types.ArrayTid(rt.Elem), Index: e.Index, Kind: clam.FieldStruct{}}

	case *mcore.ArrayViewType:
		return &clam.LgetField{Obj: obj, Tid: lo.types.ArrayViewTid(rt.Elem), Index: e.Index, Kind: clam.FieldStruct{}}

	case mcore.BytesViewType:
		return &clam.LgetField{Obj: obj, Tid: lo.types.BytesViewTid(), Index: e.Index, Kind: clam.FieldStruct{}}

	default:
		lo.ice("field access on non-record type %s", rt.Repr())
		return nil
	}
}

// -----------------------------------------------------------------------------

// lowerSwitchConstr binds the scrutinee once, then dispatches on its tag.
// Case binders are rebound to the constructor-typed view of the scrutinee so
// payload reads resolve directly.
func (lo *Lowerer) lowerSwitchConstr(e *mcore.SwitchConstr) clam.Lambda {
	o := lo.gen.Fresh("scrut", e.Obj.Type())

	cases := make([]clam.SwitchCase, len(e.Cases))
	for i, c := range e.Cases {
		body := lo.lowerExpr(c.Body)

		if c.Binder != nil {
			ctid := lo.types.ConstrTid(c.Constructor)
			body = &clam.Llet{
				Name: c.Binder,
				Expr: &clam.Lcast{
					Expr:       &clam.Lvar{Var: o},
					TargetType: clam.RefType{Kind: clam.RefConcrete, Tid: ctid},
				},
				Body: body,
			}
		}

		cases[i] = clam.SwitchCase{Tag: c.Constructor.Tag, Body: body}
	}

	var deflt clam.Lambda
	if e.Default != nil {
		deflt = lo.lowerExpr(e.Default)
	}

	return &clam.Llet{
		Name: o,
		Expr: lo.lowerExpr(e.Obj),
		Body: &clam.Lswitch{
			Obj:     o,
			Cases:   cases,
			Default: deflt,
			Type:    lo.types.LowerType(e.Type()),
		},
	}
}

func (lo *Lowerer) lowerSwitchConstant(e *mcore.SwitchConstant) clam.Lambda {
	o := lo.gen.Fresh("scrut", e.Obj.Type())
	ty := lo.types.LowerType(e.Type())

	var deflt clam.Lambda
	if e.Default != nil {
		deflt = lo.lowerExpr(e.Default)
	}

	var sw clam.Lambda

	if pt, ok := e.Obj.Type().(mcore.PrimType); ok && pt == mcore.PrimString {
		cases := make([]clam.StrCase, len(e.Cases))
		for i, c := range e.Cases {
			cases[i] = clam.StrCase{Value: c.Value.StrVal, Body: lo.lowerExpr(c.Body)}
		}

		sw = &clam.Lswitchstring{Obj: o, Cases: cases, Default: deflt, Type: ty}
	} else {
		cases := make([]clam.IntCase, len(e.Cases))
		for i, c := range e.Cases {
			cases[i] = clam.IntCase{Value: constantBits(c.Value), Body: lo.lowerExpr(c.Body)}
		}

		sw = &clam.Lswitchint{Obj: o, Cases: cases, Default: deflt, Type: ty}
	}

	return &clam.Llet{Name: o, Expr: lo.lowerExpr(e.Obj), Body: sw}
}

func constantBits(c *mcore.Constant) int64 {
	if c.Kind == mcore.CBool {
		if c.BoolVal {
			return 1
		}

		return 0
	}

	return c.IntVal
}

// -----------------------------------------------------------------------------

func (lo *Lowerer) lowerReturn(e *mcore.Return) clam.Lambda {
	if lo.rx == nil {
		lo.ice("return outside a function body")
	}

	v := lo.lowerExpr(e.Value)

	if e.IsError {
		if lo.rx.raiseJoin == nil {
			lo.ice("error return from a function without a result type")
		}

		lo.rx.needRaise = true
		return &clam.Ljoinapply{Name: lo.rx.raiseJoin, Args: []clam.Lambda{v}}
	}

	lo.rx.needReturn = true
	return &clam.Ljoinapply{Name: lo.rx.retJoin, Args: []clam.Lambda{v}}
}

// lowerHandleError lowers a possibly-erroring call.  ToResult keeps the sum
// value as-is; the other kinds split it, forwarding the error payload to a
// join and continuing with the ok payload.
func (lo *Lowerer) lowerHandleError(e *mcore.HandleError) clam.Lambda {
	rt, ok := e.Obj.Type().(*mcore.ResultType)
	if !ok {
		lo.ice("handled call has non-result type %s", e.Obj.Type().Repr())
	}

	if _, toResult := e.Kind.(mcore.HandleToResult); toResult {
		return lo.lowerExpr(e.Obj)
	}

	var join *mcore.Ident

	switch kind := e.Kind.(type) {
	case mcore.HandleJoinApply:
		join = kind.Join

	case mcore.HandleReturnErr:
		if lo.rx == nil || lo.rx.raiseJoin == nil {
			lo.ice("error propagation outside a result function")
		}

		lo.rx.needRaise = true
		join = lo.rx.raiseJoin
	}

	okTid := lo.types.ResultConstrTid(rt, ResultOkTag)
	errTid := lo.types.ResultConstrTid(rt, ResultErrTag)

	o := lo.gen.Fresh("res", rt)

	okBody := &clam.LgetField{
		Obj: &clam.Lcast{
			Expr:       &clam.Lvar{Var: o},
			TargetType: clam.RefType{Kind: clam.RefConcrete, Tid: okTid},
		},
		Tid:   okTid,
		Index: 0,
		Kind:  clam.FieldEnum{},
	}

	errPayload := &clam.LgetField{
		Obj: &clam.Lcast{
			Expr:       &clam.Lvar{Var: o},
			TargetType: clam.RefType{Kind: clam.RefConcrete, Tid: errTid},
		},
		Tid:   errTid,
		Index: 0,
		Kind:  clam.FieldEnum{},
	}

	return &clam.Llet{
		Name: o,
		Expr: lo.lowerExpr(e.Obj),
		Body: &clam.Lswitch{
			Obj: o,
			Cases: []clam.SwitchCase{
				{Tag: ResultOkTag, Body: okBody},
				{Tag: ResultErrTag, Body: &clam.Ljoinapply{Name: join, Args: []clam.Lambda{errPayload}}},
			},
			Type: lo.types.LowerType(rt.Ok),
		},
	}
}
