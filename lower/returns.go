package lower

import (
	"clamc/clam"
	"clamc/mcore"
)

// returnXfm is the per-function state of the early-return rewrite.  Early
// returns become applications of a `return` join bound around the function
// body; error returns go to a separate `raise` join that allocates the error
// arm of the function's result sum.  Joins are only materialized when a
// corresponding application was actually emitted.
type returnXfm struct {
	retJoin   *mcore.Ident
	raiseJoin *mcore.Ident

	needReturn bool
	needRaise  bool

	// resultTy is set when the enclosing function returns a result sum; the
	// join bodies then wrap payloads in the matching constructor.
	resultTy *mcore.ResultType
}

// lowerFnBody lowers a function body, introducing the return and raise joins
// the body's early exits demand.
func (lo *Lowerer) lowerFnBody(fn *mcore.Func) clam.Lambda {
	saved := lo.rx

	rx := &returnXfm{}
	okTy := fn.Ty.Ret

	if rt, ok := fn.Ty.Ret.(*mcore.ResultType); ok {
		rx.resultTy = rt
		okTy = rt.Ok
		rx.raiseJoin = lo.gen.Fresh("raise", rt.Err)
	}

	rx.retJoin = lo.gen.Fresh("return", okTy)

	lo.rx = rx
	body := lo.lowerExpr(fn.Body)
	lo.rx = saved

	loweredRet := lo.types.LowerType(fn.Ty.Ret)

	if rx.resultTy != nil {
		// The body evaluates to the ok payload; route it through the return
		// join so the sum is allocated in exactly one place.
		body = &clam.Ljoinapply{Name: rx.retJoin, Args: []clam.Lambda{body}}
		rx.needReturn = true
	}

	if rx.needRaise {
		p := lo.gen.Fresh("err", rx.resultTy.Err)
		errTid := lo.types.ResultConstrTid(rx.resultTy, ResultErrTag)

		body = &clam.Ljoinlet{
			Name:   rx.raiseJoin,
			Params: []*mcore.Ident{p},
			Expr: &clam.Lallocate{
				Kind:   clam.AllocEnum{Tag: ResultErrTag},
				Tid:    errTid,
				Fields: []clam.Lambda{&clam.Lvar{Var: p}},
			},
			Body: body,
			Kind: clam.NontailJoin,
			Type: loweredRet,
		}
	}

	if rx.needReturn {
		v := lo.gen.Fresh("val", okTy)

		var expr clam.Lambda = &clam.Lvar{Var: v}
		if rx.resultTy != nil {
			okTid := lo.types.ResultConstrTid(rx.resultTy, ResultOkTag)
			expr = &clam.Lallocate{
				Kind:   clam.AllocEnum{Tag: ResultOkTag},
				Tid:    okTid,
				Fields: []clam.Lambda{&clam.Lvar{Var: v}},
			}
		}

		body = &clam.Ljoinlet{
			Name:   rx.retJoin,
			Params: []*mcore.Ident{v},
			Expr:   expr,
			Body:   body,
			Kind:   clam.NontailJoin,
			Type:   loweredRet,
		}
	}

	return body
}
