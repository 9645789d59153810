package lower

import (
	"clamc/clam"
	"clamc/config"
	"clamc/mcore"
	"clamc/report"
)

// Lowerer drives the translation of an MCore program into a Clam program:
// closure conversion, intrinsic specialization, early-return rewriting, and
// type interning all hang off this one context.
type Lowerer struct {
	cfg   *config.BasicConfig
	env   mcore.GlobalEnv
	gen   *mcore.IdentGen
	addrs clam.AddrGen

	types *TypeLowering
	table *AddrTable

	// escape holds every identifier referenced as a value; a local function
	// outside it may be lowered well-known.
	escape *IdentSet

	// topNames holds the binders of top-level items; free-variable queries
	// exclude them so globals are never captured.
	topNames *IdentSet

	fns     []*clam.TopFuncItem
	globals []clam.Global

	// initStmts accumulates the body of the init function in program order.
	initStmts []clam.Lambda

	// wrapped lists top-level functions whose first-class uses demand a
	// closure wrapper, in first-use order.
	wrapped []*Toplevel

	stubs        map[*mcore.Ident]*stubEntry
	wrappedStubs []*stubEntry

	objWrappers map[objKey]*objWrapper

	rx     *returnXfm
	mainFn *clam.Fn
}

// stubEntry records a declared foreign function.  Wrapper is minted the first
// time the stub is used as a value.
type stubEntry struct {
	funcName  string
	srcParams []mcore.DataType
	srcRet    mcore.DataType
	paramsTy  []clam.LType
	retTy     clam.LType

	wrapper *mcore.Ident
}

// TranslProg lowers a complete MCore program.  The identifier generator must
// be the one the program was built with so fresh names never collide.
func TranslProg(prog *mcore.Program, env mcore.GlobalEnv, cfg *config.BasicConfig, gen *mcore.IdentGen) *clam.Prog {
	lo := &Lowerer{
		cfg:         cfg,
		env:         env,
		gen:         gen,
		stubs:       make(map[*mcore.Ident]*stubEntry),
		objWrappers: make(map[objKey]*objWrapper),
	}

	lo.types = NewTypeLowering(cfg)
	lo.table = NewAddrTable(&lo.addrs)
	lo.escape = ComputeEscapeSet(prog)

	lo.topNames = NewIdentSet()
	for _, item := range prog.Items {
		switch item := item.(type) {
		case *mcore.TopLet:
			lo.topNames.Add(item.Name)
		case *mcore.TopFn:
			lo.topNames.Add(item.Name)
		case *mcore.TopStub:
			lo.topNames.Add(item.Name)
		}
	}

	CollectTopFuncs(prog, lo.types, env, lo.table)

	for _, item := range prog.Items {
		if st, ok := item.(*mcore.TopStub); ok {
			lo.registerStub(st)
		}
	}

	for _, item := range prog.Items {
		switch item := item.(type) {
		case *mcore.TopFn:
			lo.lowerTopFn(item)

		case *mcore.TopLet:
			lo.lowerTopLet(item)

		case *mcore.TopExpr:
			lo.initStmts = append(lo.initStmts, lo.lowerExpr(item.Expr))

		case *mcore.TopStub:
			// declared above
		}
	}

	wrapperAssigns := lo.emitClosureWrappers()

	return &clam.Prog{
		Fns:      lo.fns,
		Main:     lo.mainFn,
		Init:     lo.buildInit(wrapperAssigns),
		Globals:  lo.globals,
		TypeDefs: lo.types.Defs(),
	}
}

func (lo *Lowerer) lowerTopFn(tf *mcore.TopFn) {
	entry := lo.table.LookupTop(tf.Name)
	fn := lo.lowerFn(tf.Fn)

	if tf.IsMain {
		lo.mainFn = fn
		return
	}

	var kind clam.FnKind = clam.TopPrivate{}
	if tf.Export != "" {
		kind = clam.TopPub{ExportName: tf.Export}
	}

	lo.fns = append(lo.fns, &clam.TopFuncItem{
		Binder: entry.Addr,
		Kind:   kind,
		Fn:     fn,
	})
}

// lowerFn lowers a function literal into a Clam function with no environment
// parameter.
func (lo *Lowerer) lowerFn(fn *mcore.Func) *clam.Fn {
	sig := lo.types.LowerFnSig(fn.Ty)

	return &clam.Fn{
		Params:     fn.Params,
		ParamTys:   sig.Params,
		Body:       lo.lowerFnBody(fn),
		ReturnType: sig.Ret,
	}
}

func (lo *Lowerer) lowerTopLet(tl *mcore.TopLet) {
	if c, ok := tl.Value.(*mcore.Const); ok && foldableConst(c.Value) {
		lo.globals = append(lo.globals, clam.Global{Var: tl.Name, Init: c.Value})
		return
	}

	lo.globals = append(lo.globals, clam.Global{Var: tl.Name})
	lo.initStmts = append(lo.initStmts, &clam.Lassign{
		Var:  tl.Name,
		Expr: lo.lowerExpr(tl.Value),
	})
}

// foldableConst reports whether a constant can seed a global directly instead
// of being computed by init.  Strings and bytes need runtime allocation.
func foldableConst(c *mcore.Constant) bool {
	switch c.Kind {
	case mcore.CUnit, mcore.CBool, mcore.CChar, mcore.CInt, mcore.CInt64, mcore.CDouble:
		return true
	default:
		return false
	}
}

// buildInit assembles the init function: closure-wrapper installs first so
// first-class globals are usable from every later statement, then the global
// computations and top-level effects in program order.
func (lo *Lowerer) buildInit(wrapperAssigns []clam.Lambda) *clam.Fn {
	stmts := append(wrapperAssigns, lo.initStmts...)

	var body clam.Lambda = &clam.Lconst{Value: mcore.NewIntConst(0)}
	if len(stmts) > 0 {
		body = &clam.Lsequence{Exprs: stmts, Last: body}
	}

	return &clam.Fn{Body: body, ReturnType: clam.I32Unit}
}

// -----------------------------------------------------------------------------

// closureValueFor returns the first-class value of a top-level function,
// minting its wrapper global on first use.
func (lo *Lowerer) closureValueFor(entry *Toplevel, name string) clam.Lambda {
	if entry.NameAsClosure == nil {
		entry.NameAsClosure = lo.gen.FreshQualified(name+".closure", entry.FnTy)
		lo.wrapped = append(lo.wrapped, entry)
	}

	return &clam.Lvar{Var: entry.NameAsClosure}
}

// stubValueFor returns the first-class value of a foreign stub.
func (lo *Lowerer) stubValueFor(st *stubEntry) clam.Lambda {
	if st.wrapper == nil {
		fnTy := &mcore.FuncType{Params: st.srcParams, Ret: st.srcRet}
		st.wrapper = lo.gen.FreshQualified(st.funcName+".closure", fnTy)
		lo.wrappedStubs = append(lo.wrappedStubs, st)
	}

	return &clam.Lvar{Var: st.wrapper}
}

// emitClosureWrappers materializes the wrapper items and globals demanded by
// first-class uses of top-level functions and stubs, returning the init
// statements that install the wrapper closures.
func (lo *Lowerer) emitClosureWrappers() []clam.Lambda {
	var assigns []clam.Lambda

	for _, entry := range lo.wrapped {
		sig := lo.types.LowerFnSig(entry.FnTy)
		absTid := lo.types.AbstractClosureTid(sig)
		concTid := lo.types.ClosureTid(absTid, nil)

		waddr := lo.table.Issue(entry.Addr.Name + ".closure")
		envP := lo.gen.Fresh("env", nil)

		params := []*mcore.Ident{envP}
		paramTys := []clam.LType{clam.RefType{Kind: clam.RefConcrete, Tid: absTid}}
		args := make([]clam.Lambda, len(entry.FnTy.Params))

		for i, pty := range entry.FnTy.Params {
			p := lo.gen.Fresh("p", pty)
			params = append(params, p)
			paramTys = append(paramTys, sig.Params[i])
			args[i] = &clam.Lvar{Var: p}
		}

		lo.fns = append(lo.fns, &clam.TopFuncItem{
			Binder: waddr,
			Kind:   clam.TopPrivate{},
			Fn: &clam.Fn{
				Params:     params,
				ParamTys:   paramTys,
				Body:       &clam.Lapply{Target: clam.TargetStaticFn{Addr: entry.Addr}, Args: args},
				ReturnType: sig.Ret,
			},
			Tid: tidPtr(absTid),
		})

		lo.globals = append(lo.globals, clam.Global{Var: entry.NameAsClosure})
		assigns = append(assigns, &clam.Lassign{
			Var:  entry.NameAsClosure,
			Expr: &clam.Lclosure{Address: clam.AddrNormal{Addr: waddr}, Tid: concTid},
		})
	}

	for _, st := range lo.wrappedStubs {
		fnTy := &mcore.FuncType{Params: st.srcParams, Ret: st.srcRet}
		sig := lo.types.LowerFnSig(fnTy)
		absTid := lo.types.AbstractClosureTid(sig)
		concTid := lo.types.ClosureTid(absTid, nil)

		waddr := lo.table.Issue(st.funcName + ".closure")
		envP := lo.gen.Fresh("env", nil)

		params := []*mcore.Ident{envP}
		paramTys := []clam.LType{clam.RefType{Kind: clam.RefConcrete, Tid: absTid}}
		args := make([]clam.Lambda, len(st.srcParams))

		for i, pty := range st.srcParams {
			p := lo.gen.Fresh("p", pty)
			params = append(params, p)
			paramTys = append(paramTys, sig.Params[i])
			args[i] = &clam.Lvar{Var: p}
		}

		lo.fns = append(lo.fns, &clam.TopFuncItem{
			Binder: waddr,
			Kind:   clam.TopPrivate{},
			Fn: &clam.Fn{
				Params:   params,
				ParamTys: paramTys,
				Body: &clam.Lreturn{Expr: &clam.LstubCall{
					Fn:       st.funcName,
					Args:     args,
					ParamsTy: st.paramsTy,
					RetTy:    st.retTy,
				}},
				ReturnType: sig.Ret,
			},
			Tid: tidPtr(absTid),
		})

		lo.globals = append(lo.globals, clam.Global{Var: st.wrapper})
		assigns = append(assigns, &clam.Lassign{
			Var:  st.wrapper,
			Expr: &clam.Lclosure{Address: clam.AddrNormal{Addr: waddr}, Tid: concTid},
		})
	}

	return assigns
}

func tidPtr(tid clam.Tid) *clam.Tid {
	return &tid
}

// -----------------------------------------------------------------------------

func (lo *Lowerer) registerStub(st *mcore.TopStub) {
	paramsTy := make([]clam.LType, len(st.ParamsTy))
	for i, p := range st.ParamsTy {
		paramsTy[i] = lo.types.LowerType(p)
	}

	lo.stubs[st.Name] = &stubEntry{
		funcName:  st.FuncName,
		srcParams: st.ParamsTy,
		srcRet:    st.Ret,
		paramsTy:  paramsTy,
		retTy:     lo.types.LowerType(st.Ret),
	}
}

func (lo *Lowerer) intrinsicOf(id *mcore.Ident) mcore.Intrinsic {
	if lo.env == nil {
		return mcore.IntrinsicNone
	}

	return lo.env.IntrinsicOf(id)
}

func (lo *Lowerer) ice(format string, args ...interface{}) {
	report.ReportICE(format, args...)
}
