package clam

import "clamc/mcore"

// FnKind records the linkage of a top-level function item.
type FnKind interface {
	fnKind()
}

// TopPub is an exported function reachable from the host under ExportName.
type TopPub struct {
	ExportName string
}

// TopPrivate is a module-internal function.
type TopPrivate struct{}

func (TopPub) fnKind()     {}
func (TopPrivate) fnKind() {}

// Fn is a lowered function body.  ParamTys carries the lowered type of each
// parameter, parallel to Params.
type Fn struct {
	Params     []*mcore.Ident
	ParamTys   []LType
	Body       Lambda
	ReturnType LType
}

// TopFuncItem is a top-level function of the output program.  Tid, when
// non-nil, names the abstract closure type the function's first-class uses
// are typed against.
type TopFuncItem struct {
	Binder *Addr
	Kind   FnKind
	Fn     *Fn
	Tid    *Tid
}

// Global is a module global.  Init is nil when the value is computed by the
// init function instead of being a foldable literal.
type Global struct {
	Var  *mcore.Ident
	Init *mcore.Constant
}

// Prog is the complete lowered program handed to the backend.  TypeDefs is
// indexed by Tid; Main is nil for library compilations.
type Prog struct {
	Fns      []*TopFuncItem
	Main     *Fn
	Init     *Fn
	Globals  []Global
	TypeDefs []TypeDef
}
