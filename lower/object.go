package lower

import (
	"clamc/clam"
	"clamc/mcore"
)

// objKey identifies one wrapper set: an object type paired with the concrete
// self type stored behind it.
type objKey struct {
	ot   *mcore.ObjectType
	self string
}

// objWrapper is the lowered form of one object/self pairing: the concrete
// record tid and the method-table addresses in declaration order.
type objWrapper struct {
	concTid clam.Tid
	methods []*clam.Addr
}

// lowerMakeObject wraps a concrete value as an abstract object.  Wrapper
// functions are emitted once per (object, self) pairing and shared by every
// wrap site.
func (lo *Lowerer) lowerMakeObject(e *mcore.MakeObject) clam.Lambda {
	w := lo.objectWrapperFor(e.ObjType, e.Obj.Type())

	return &clam.Lallocate{
		Kind:   clam.AllocObject{Methods: w.methods},
		Tid:    w.concTid,
		Fields: []clam.Lambda{lo.lowerExpr(e.Obj)},
	}
}

func (lo *Lowerer) objectWrapperFor(ot *mcore.ObjectType, selfTy mcore.DataType) *objWrapper {
	key := objKey{ot: ot, self: selfTy.Repr()}
	if w, ok := lo.objWrappers[key]; ok {
		return w
	}

	if lo.env == nil {
		lo.ice("object wrap of %s requires a global environment", ot.Name)
	}

	selfL := lo.types.LowerType(selfTy)
	absTid := lo.types.AbstractObjectTid(ot)
	concTid := lo.types.ConcreteObjectTid(ot, selfL)

	w := &objWrapper{concTid: concTid}
	lo.objWrappers[key] = w

	numMethods := len(ot.Methods)

	for _, m := range ot.Methods {
		impls := lo.env.FindDotMethod(selfTy.Repr(), m.Name)
		if len(impls) == 0 {
			lo.ice("no implementation of %s.%s for %s", ot.Name, m.Name, selfTy.Repr())
		}

		impl := lo.table.LookupTop(impls[0].Id)
		sig := lo.types.LowerFnSig(m.Ty)

		envP := lo.gen.Fresh("obj", nil)
		selfId := lo.gen.Fresh("self", selfTy)

		params := []*mcore.Ident{envP}
		paramTys := []clam.LType{clam.RefType{Kind: clam.RefConcrete, Tid: absTid}}
		callArgs := []clam.Lambda{&clam.Lvar{Var: selfId}}

		for i, pty := range m.Ty.Params {
			p := lo.gen.Fresh("p", pty)
			params = append(params, p)
			paramTys = append(paramTys, sig.Params[i])
			callArgs = append(callArgs, &clam.Lvar{Var: p})
		}

		body := &clam.Llet{
			Name: selfId,
			Expr: &clam.LgetField{
				Obj: &clam.Lcast{
					Expr:       &clam.Lvar{Var: envP},
					TargetType: clam.RefType{Kind: clam.RefConcrete, Tid: concTid},
				},
				Tid:   concTid,
				Index: 0,
				Kind:  clam.FieldObject{NumberOfMethods: numMethods},
			},
			Body: &clam.Lapply{Target: clam.TargetStaticFn{Addr: impl.Addr}, Args: callArgs},
		}

		addr := lo.table.Issue(ot.Name + "." + m.Name)

		lo.fns = append(lo.fns, &clam.TopFuncItem{
			Binder: addr,
			Kind:   clam.TopPrivate{},
			Fn: &clam.Fn{
				Params:     params,
				ParamTys:   paramTys,
				Body:       body,
				ReturnType: sig.Ret,
			},
		})

		w.methods = append(w.methods, addr)
	}

	return w
}
