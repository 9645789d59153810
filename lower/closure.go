package lower

import (
	"clamc/clam"
	"clamc/mcore"
)

// lowerFunction lowers a first-class function literal.  Raw literals become
// bare code pointers; everything else allocates a closure.
func (lo *Lowerer) lowerFunction(e *mcore.Function) clam.Lambda {
	if e.IsRaw {
		return lo.lowerRawFunc(e.Fn)
	}

	return lo.makeEscapingClosure("lambda", e.Fn, nil)
}

func (lo *Lowerer) lowerRawFunc(fn *mcore.Func) clam.Lambda {
	if fvs := FreeVars(fn, lo.topNames); fvs.Len() > 0 {
		lo.ice("raw function literal captures %s", fvs.Slice()[0])
	}

	sig := lo.types.LowerFnSig(fn.Ty)
	addr := lo.table.Issue("raw_fn")

	lo.fns = append(lo.fns, &clam.TopFuncItem{
		Binder: addr,
		Kind:   clam.TopPrivate{},
		Fn: &clam.Fn{
			Params:     fn.Params,
			ParamTys:   sig.Params,
			Body:       lo.lowerFnBody(fn),
			ReturnType: sig.Ret,
		},
	})

	return &clam.LgetRawFunc{Addr: addr}
}

// -----------------------------------------------------------------------------

func (lo *Lowerer) lowerLetFn(e *mcore.LetFn) clam.Lambda {
	return lo.lowerBinding(e.Name, e.Fn, e.Rec, func() clam.Lambda {
		return lo.lowerExpr(e.Body)
	})
}

func (lo *Lowerer) lowerLetRec(e *mcore.LetRec) clam.Lambda {
	groups := GroupBindings(e.Bindings)
	return lo.lowerGroups(groups, 0, e)
}

func (lo *Lowerer) lowerGroups(groups []*BindingGroup, idx int, e *mcore.LetRec) clam.Lambda {
	if idx == len(groups) {
		return lo.lowerExpr(e.Body)
	}

	g := groups[idx]
	rest := func() clam.Lambda { return lo.lowerGroups(groups, idx+1, e) }

	if g.Kind == NonRec || len(g.Bindings) == 1 {
		b := g.Bindings[0]
		return lo.lowerBinding(b.Name, b.Fn, g.Kind == Rec, rest)
	}

	return lo.lowerBundle(g.Bindings, rest)
}

// lowerBinding lowers a single local function binding, choosing between the
// escaping and well-known conventions by whether the name is ever used as a
// value.
func (lo *Lowerer) lowerBinding(name *mcore.Ident, fn *mcore.Func, rec bool, rest func() clam.Lambda) clam.Lambda {
	if lo.escape.Has(name) {
		var recName *mcore.Ident
		if rec {
			recName = name
		}

		value := lo.makeEscapingClosure(name.Name, fn, recName)
		return &clam.Llet{Name: name, Expr: value, Body: rest()}
	}

	return lo.lowerWellKnown(name, fn, rest)
}

// -----------------------------------------------------------------------------

// makeEscapingClosure emits the lifted body of an escaping function and
// returns its closure allocation.  recName, when set, is rebound to the
// environment inside the body so self-references resolve without a capture.
func (lo *Lowerer) makeEscapingClosure(name string, fn *mcore.Func, recName *mcore.Ident) *clam.Lclosure {
	exclude := NewIdentSet(lo.topNames.Slice()...)
	if recName != nil {
		exclude.Add(recName)
	}

	fvs := FreeVars(fn, exclude)

	sig := lo.types.LowerFnSig(fn.Ty)
	absTid := lo.types.AbstractClosureTid(sig)
	addr := lo.table.Issue(name)
	envP := lo.gen.Fresh("env", nil)

	capTys := make([]clam.LType, fvs.Len())
	for i, fv := range fvs.Slice() {
		capTys[i] = lo.types.LowerType(fv.Ty)
	}

	concTid := lo.types.ClosureTid(absTid, capTys)

	body := lo.lowerFnBody(fn)

	if recName != nil {
		body = &clam.Llet{Name: recName, Expr: &clam.Lvar{Var: envP}, Body: body}
	}

	if fvs.Len() > 0 {
		// Rebind each captured identifier from the concrete environment so
		// the body's references resolve unchanged.
		envC := lo.gen.Fresh(name+".env", nil)

		for i := fvs.Len() - 1; i >= 0; i-- {
			fv := fvs.Slice()[i]

			var field clam.Lambda = &clam.LclosureField{
				Obj:   &clam.Lvar{Var: envC},
				Tid:   concTid,
				Index: i,
			}

			if rt, ok := capTys[i].(clam.RefType); ok && rt.Kind == clam.RefConcrete {
				field = &clam.Lprim{Prim: mcore.PasNonNull, Args: []clam.Lambda{field}}
			}

			body = &clam.Llet{Name: fv, Expr: field, Body: body}
		}

		body = &clam.Llet{
			Name: envC,
			Expr: &clam.Lcast{
				Expr:       &clam.Lvar{Var: envP},
				TargetType: clam.RefType{Kind: clam.RefConcrete, Tid: concTid},
			},
			Body: body,
		}
	}

	lo.fns = append(lo.fns, &clam.TopFuncItem{
		Binder: addr,
		Kind:   clam.TopPrivate{},
		Fn: &clam.Fn{
			Params:     append([]*mcore.Ident{envP}, fn.Params...),
			ParamTys:   append([]clam.LType{clam.RefType{Kind: clam.RefConcrete, Tid: absTid}}, sig.Params...),
			Body:       body,
			ReturnType: sig.Ret,
		},
		Tid: tidPtr(absTid),
	})

	return &clam.Lclosure{
		Captures: fvs.Slice(),
		Address:  clam.AddrNormal{Addr: addr},
		Tid:      concTid,
	}
}

// -----------------------------------------------------------------------------

// lowerWellKnown lowers a function that is only ever called directly.  The
// binder survives as a placeholder so scopes keep their shape, but no closure
// is allocated: captures travel as an extra argument.
func (lo *Lowerer) lowerWellKnown(name *mcore.Ident, fn *mcore.Func, rest func() clam.Lambda) clam.Lambda {
	exclude := NewIdentSet(lo.topNames.Slice()...)
	exclude.Add(name)

	fvs := FreeVars(fn, exclude)
	sig := lo.types.LowerFnSig(fn.Ty)
	addr := lo.table.Issue(name.Name)

	placeholder := &clam.Lconst{Value: mcore.NewIntConst(0)}

	switch fvs.Len() {
	case 0:
		lo.table.RegisterLocal(name, addr, nil)

		lo.fns = append(lo.fns, &clam.TopFuncItem{
			Binder: addr,
			Kind:   clam.TopPrivate{},
			Fn: &clam.Fn{
				Params:     fn.Params,
				ParamTys:   sig.Params,
				Body:       lo.lowerFnBody(fn),
				ReturnType: sig.Ret,
			},
		})

		return &clam.Llet{Name: name, Expr: placeholder, Body: rest()}

	case 1:
		// A single capture is passed directly; no environment record.
		x := fvs.Slice()[0]
		xTy := lo.types.LowerType(x.Ty)

		entry := lo.table.RegisterLocal(name, addr, xTy)
		entry.EnvVar = x

		lo.fns = append(lo.fns, &clam.TopFuncItem{
			Binder: addr,
			Kind:   clam.TopPrivate{},
			Fn: &clam.Fn{
				Params:     append([]*mcore.Ident{x}, fn.Params...),
				ParamTys:   append([]clam.LType{xTy}, sig.Params...),
				Body:       lo.lowerFnBody(fn),
				ReturnType: sig.Ret,
			},
		})

		return &clam.Llet{Name: name, Expr: placeholder, Body: rest()}

	default:
		capTys := make([]clam.LType, fvs.Len())
		for i, fv := range fvs.Slice() {
			capTys[i] = lo.types.LowerType(fv.Ty)
		}

		tid := lo.types.StructCaptureTid(capTys)
		envL := clam.RefType{Kind: clam.RefConcrete, Tid: tid}
		envFormal := lo.gen.Fresh(name.Name+".env", nil)

		entry := lo.table.RegisterLocal(name, addr, envL)
		entry.EnvVar = envFormal

		body := lo.lowerFnBody(fn)
		body = unpackCaptureStruct(body, fvs, envFormal, tid)

		lo.fns = append(lo.fns, &clam.TopFuncItem{
			Binder: addr,
			Kind:   clam.TopPrivate{},
			Fn: &clam.Fn{
				Params:     append([]*mcore.Ident{envFormal}, fn.Params...),
				ParamTys:   append([]clam.LType{envL}, sig.Params...),
				Body:       body,
				ReturnType: sig.Ret,
			},
		})

		// Outer call sites pass the allocated environment record.
		envId := lo.gen.Fresh(name.Name+".env", nil)
		entry.EnvVar = envId

		capArgs := make([]clam.Lambda, fvs.Len())
		for i, fv := range fvs.Slice() {
			capArgs[i] = &clam.Lvar{Var: fv}
		}

		return &clam.Llet{
			Name: envId,
			Expr: &clam.Lallocate{Kind: clam.AllocStruct{}, Tid: tid, Fields: capArgs},
			Body: &clam.Llet{Name: name, Expr: placeholder, Body: rest()},
		}
	}
}

// unpackCaptureStruct rebinds each captured identifier from the environment
// record at the head of a lifted body.
func unpackCaptureStruct(body clam.Lambda, fvs *IdentSet, env *mcore.Ident, tid clam.Tid) clam.Lambda {
	for i := fvs.Len() - 1; i >= 0; i-- {
		fv := fvs.Slice()[i]

		body = &clam.Llet{
			Name: fv,
			Expr: &clam.LgetField{
				Obj:   &clam.Lvar{Var: env},
				Tid:   tid,
				Index: i,
				Kind:  clam.FieldStruct{},
			},
			Body: body,
		}
	}

	return body
}

// -----------------------------------------------------------------------------

// lowerBundle lowers a mutually recursive group.  When no member escapes, the
// whole group shares one late-initialized environment record and every call
// stays direct; otherwise all members become closures bound simultaneously.
func (lo *Lowerer) lowerBundle(bindings []mcore.LetRecBinding, rest func() clam.Lambda) clam.Lambda {
	anyEscapes := false
	for _, b := range bindings {
		if lo.escape.Has(b.Name) {
			anyEscapes = true
			break
		}
	}

	if anyEscapes {
		return lo.lowerEscapingBundle(bindings, rest)
	}

	return lo.lowerWellKnownBundle(bindings, rest)
}

func (lo *Lowerer) lowerWellKnownBundle(bindings []mcore.LetRecBinding, rest func() clam.Lambda) clam.Lambda {
	exclude := NewIdentSet(lo.topNames.Slice()...)
	for _, b := range bindings {
		exclude.Add(b.Name)
	}

	memberFvs := make([]*IdentSet, len(bindings))
	shared := NewIdentSet()

	for i, b := range bindings {
		memberFvs[i] = FreeVars(b.Fn, exclude)
		for _, fv := range memberFvs[i].Slice() {
			shared.Add(fv)
		}
	}

	capTys := make([]clam.LType, shared.Len())
	for i, fv := range shared.Slice() {
		capTys[i] = lo.types.LowerType(fv.Ty)
	}

	sharedTid := lo.types.LateInitStructTid(capTys)
	envL := clam.RefType{Kind: clam.RefLazyInit, Tid: sharedTid}

	sharedIdx := make(map[*mcore.Ident]int, shared.Len())
	for i, fv := range shared.Slice() {
		sharedIdx[fv] = i
	}

	names := make([]*mcore.Ident, len(bindings))
	entries := make([]*Local, len(bindings))

	for i, b := range bindings {
		names[i] = b.Name
		entries[i] = lo.table.RegisterLocal(b.Name, lo.table.Issue(b.Name.Name), envL)
	}

	for i, b := range bindings {
		envFormal := lo.gen.Fresh(b.Name.Name+".env", nil)

		// Peer and self calls inside this member pass its own environment
		// formal; every member shares the same record.
		for _, entry := range entries {
			entry.EnvVar = envFormal
		}

		body := lo.lowerFnBody(b.Fn)

		for j := memberFvs[i].Len() - 1; j >= 0; j-- {
			fv := memberFvs[i].Slice()[j]

			body = &clam.Llet{
				Name: fv,
				Expr: &clam.LgetField{
					Obj:   &clam.Lvar{Var: envFormal},
					Tid:   sharedTid,
					Index: sharedIdx[fv],
					Kind:  clam.FieldStruct{},
				},
				Body: body,
			}
		}

		sig := lo.types.LowerFnSig(b.Fn.Ty)

		lo.fns = append(lo.fns, &clam.TopFuncItem{
			Binder: entries[i].Addr,
			Kind:   clam.TopPrivate{},
			Fn: &clam.Fn{
				Params:     append([]*mcore.Ident{envFormal}, b.Fn.Params...),
				ParamTys:   append([]clam.LType{envL}, sig.Params...),
				Body:       body,
				ReturnType: sig.Ret,
			},
		})
	}

	// Outside the bundle every member name is bound to the shared record.
	for i, entry := range entries {
		entry.EnvVar = names[i]
	}

	fns := make([]*clam.Lclosure, len(bindings))
	for i := range bindings {
		fns[i] = &clam.Lclosure{
			Captures: shared.Slice(),
			Address:  clam.AddrWellKnownMutRec{},
			Tid:      sharedTid,
		}
	}

	return &clam.Lletrec{Names: names, Fns: fns, Body: rest()}
}

func (lo *Lowerer) lowerEscapingBundle(bindings []mcore.LetRecBinding, rest func() clam.Lambda) clam.Lambda {
	names := make([]*mcore.Ident, len(bindings))
	fns := make([]*clam.Lclosure, len(bindings))

	// Peer references lower to plain variable uses and surface as captures;
	// the simultaneous binding ties the knot.
	for i, b := range bindings {
		names[i] = b.Name
		fns[i] = lo.makeEscapingClosure(b.Name.Name, b.Fn, b.Name)
	}

	return &clam.Lletrec{Names: names, Fns: fns, Body: rest()}
}
