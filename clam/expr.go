package clam

import (
	"clamc/mcore"
	"clamc/report"
)

// Lambda represents a lowered Clam expression.  All expression nodes
// implement the `Lambda` interface.  Control constructs that produce values
// carry their lowered result type explicitly.
type Lambda interface {
	lambda()
}

// -----------------------------------------------------------------------------

// Lconst is a literal.
type Lconst struct {
	Value *mcore.Constant
}

// Lvar references a bound identifier.  Raw top-level names never appear
// here: top-level functions are reached through apply targets and closure
// wrappers.
type Lvar struct {
	Var *mcore.Ident
}

// Lassign writes a bound mutable identifier.
type Lassign struct {
	Var  *mcore.Ident
	Expr Lambda
}

// Llet binds the value of an expression to a name within a body.
type Llet struct {
	Name *mcore.Ident
	Expr Lambda
	Body Lambda
}

// Lletrec binds a bundle of closures simultaneously: every bound function
// may refer to the others and to itself through a shared capture structure.
type Lletrec struct {
	Names []*mcore.Ident
	Fns   []*Lclosure
	Body  Lambda
}

// Lsequence evaluates the expressions in order for their effects; the result
// is the value of Last.
type Lsequence struct {
	Exprs []Lambda
	Last  Lambda
}

// -----------------------------------------------------------------------------

// Lif is the two-armed conditional carrying its lowered result type.
type Lif struct {
	Pred, IfSo, IfNot Lambda
	Type              LType
}

// Lloop is a structured loop with labeled multi-value continue and break.
type Lloop struct {
	Params []*mcore.Ident
	Body   Lambda
	Args   []Lambda
	Label  *mcore.Ident
	Type   LType
}

// Lbreak exits the labeled enclosing loop.  Arg may be nil.
type Lbreak struct {
	Arg   Lambda
	Label *mcore.Ident
}

// Lcontinue re-enters the labeled enclosing loop with new arguments.
type Lcontinue struct {
	Args  []Lambda
	Label *mcore.Ident
}

// -----------------------------------------------------------------------------

// JoinKind classifies a join binding by the position of its applications.
type JoinKind int

const (
	// TailJoin marks a join applied only in tail position of the binding
	// body.
	TailJoin JoinKind = iota

	// NontailJoin marks a join applied from non-tail positions.
	NontailJoin
)

// Ljoinlet binds a local second-class continuation.  The join's name is
// applied via Ljoinapply only; it cannot be stored or escape its scope.
type Ljoinlet struct {
	Name   *mcore.Ident
	Params []*mcore.Ident
	Expr   Lambda
	Body   Lambda
	Kind   JoinKind
	Type   LType
}

// Ljoinapply applies an enclosing join with matching arity.
type Ljoinapply struct {
	Name *mcore.Ident
	Args []Lambda
}

// -----------------------------------------------------------------------------

// SwitchCase is a single constructor case of an enum switch.
type SwitchCase struct {
	Tag  int
	Body Lambda
}

// Lswitch dispatches on the constructor tag of an enum value.  Obj is always
// a bound identifier so the scrutinee is evaluated exactly once.
type Lswitch struct {
	Obj     *mcore.Ident
	Cases   []SwitchCase
	Default Lambda
	Type    LType
}

// IntCase is a single case of an integer switch.
type IntCase struct {
	Value int64
	Body  Lambda
}

// Lswitchint dispatches on an integer value.
type Lswitchint struct {
	Obj     *mcore.Ident
	Cases   []IntCase
	Default Lambda
	Type    LType
}

// StrCase is a single case of a string switch.
type StrCase struct {
	Value string
	Body  Lambda
}

// Lswitchstring dispatches on a string value.
type Lswitchstring struct {
	Obj     *mcore.Ident
	Cases   []StrCase
	Default Lambda
	Type    LType
}

// -----------------------------------------------------------------------------

// Target is the callee of an Lapply.
type Target interface {
	target()
}

// TargetDynamic calls through a first-class closure value.
type TargetDynamic struct {
	Var *mcore.Ident
}

// TargetStaticFn calls a top-level function address directly.
type TargetStaticFn struct {
	Addr *Addr
}

// TargetObject calls an object method by index.
type TargetObject struct {
	Obj         Lambda
	MethodIndex int
	MethodTy    FnSig
}

func (TargetDynamic) target()  {}
func (TargetStaticFn) target() {}
func (TargetObject) target()   {}

// Lapply is a function application.  Intrinsic, when set, records the source
// intrinsic an inlined call was specialized from; it affects only dumps.
type Lapply struct {
	Target    Target
	Intrinsic mcore.Intrinsic
	Args      []Lambda
}

// Lprim applies a primitive operation to lowered operands.
type Lprim struct {
	Prim mcore.Prim
	Args []Lambda
}

// LstubCall calls a foreign function with explicit wire types.
type LstubCall struct {
	Fn       string
	Args     []Lambda
	ParamsTy []LType
	RetTy    LType
}

// -----------------------------------------------------------------------------

// AllocKind classifies an allocation site.
type AllocKind interface {
	allocKind()
}

// AllocTuple allocates an immutable tuple.
type AllocTuple struct{}

// AllocStruct allocates a struct.
type AllocStruct struct{}

// AllocEnum allocates an enum constructor record with the given tag.
type AllocEnum struct {
	Tag int
}

// AllocObject allocates a concrete object carrying its method table.
type AllocObject struct {
	Methods []*Addr
}

func (AllocTuple) allocKind()  {}
func (AllocStruct) allocKind() {}
func (AllocEnum) allocKind()   {}
func (AllocObject) allocKind() {}

// Lallocate heap-allocates a record of the given interned type; field order
// matches the type definition bit-for-bit.
type Lallocate struct {
	Kind   AllocKind
	Tid    Tid
	Fields []Lambda
}

// -----------------------------------------------------------------------------

// ClosureAddress is the code pointer stored in a closure allocation.
type ClosureAddress interface {
	closureAddress()
}

// AddrNormal points at an ordinary top-level function.
type AddrNormal struct {
	Addr *Addr
}

// AddrWellKnownMutRec marks a member of a well-known mutually recursive
// bundle: its code pointer is never loaded dynamically, only the shared
// environment is.
type AddrWellKnownMutRec struct{}

func (AddrNormal) closureAddress()          {}
func (AddrWellKnownMutRec) closureAddress() {}

// Lclosure allocates a closure.  The capture list order matches the capture
// struct's field order bit-for-bit.
type Lclosure struct {
	Captures []*mcore.Ident
	Address  ClosureAddress
	Tid      Tid
}

// LgetRawFunc takes the bare code pointer of an address without wrapping it
// in a closure.
type LgetRawFunc struct {
	Addr *Addr
}

// -----------------------------------------------------------------------------

// FieldKind classifies the record shape behind a field access.
type FieldKind interface {
	fieldKind()
}

// FieldTuple reads a tuple element.
type FieldTuple struct{}

// FieldStruct accesses a struct field.
type FieldStruct struct{}

// FieldEnum accesses an enum constructor payload field.
type FieldEnum struct{}

// FieldObject reads from a concrete object, skipping its method slots.
type FieldObject struct {
	NumberOfMethods int
}

func (FieldTuple) fieldKind()  {}
func (FieldStruct) fieldKind() {}
func (FieldEnum) fieldKind()   {}
func (FieldObject) fieldKind() {}

// LgetField reads a field by index.
type LgetField struct {
	Obj   Lambda
	Tid   Tid
	Index int
	Kind  FieldKind
}

// LsetField writes a field by index.  Only struct and enum fields are
// mutable.
type LsetField struct {
	Obj   Lambda
	Tid   Tid
	Index int
	Kind  FieldKind
	Value Lambda
}

// LclosureField reads a capture from a concrete closure record by index.
type LclosureField struct {
	Obj   Lambda
	Tid   Tid
	Index int
}

// -----------------------------------------------------------------------------

// AccessKind classifies the bounds discipline of an array access.
type AccessKind int

const (
	// Safe access traps on out-of-bounds indices.
	Safe AccessKind = iota

	// Unsafe access elides the bounds check.
	Unsafe

	// RevUnsafe access elides the check and indexes from the end.
	RevUnsafe
)

var accessKindNames = []string{"safe", "unsafe", "rev_unsafe"}

func (ak AccessKind) String() string {
	return accessKindNames[ak]
}

// GetItemExtra is the post-processing a loaded element requires.
type GetItemExtra interface {
	getItemExtra()
}

// NoExtra loads the element as-is.
type NoExtra struct{}

// NeedNonNullCast asserts the loaded reference non-null.
type NeedNonNullCast struct{}

// NeedSignedInfo widens a sub-word element with the given signedness.
type NeedSignedInfo struct {
	Signed bool
}

func (NoExtra) getItemExtra()         {}
func (NeedNonNullCast) getItemExtra() {}
func (NeedSignedInfo) getItemExtra()  {}

// LmakeArray allocates an array from element expressions.
type LmakeArray struct {
	Tid   Tid
	Elems []Lambda
}

// LarrayGetItem loads an array element.
type LarrayGetItem struct {
	Tid    Tid
	Arr    Lambda
	Index  Lambda
	Access AccessKind
	Extra  GetItemExtra
}

// LarraySetItem stores an array element.
type LarraySetItem struct {
	Tid    Tid
	Arr    Lambda
	Index  Lambda
	Value  Lambda
	Access AccessKind
}

// -----------------------------------------------------------------------------

// Lcast changes the static reference type of an expression without changing
// the reference.
type Lcast struct {
	Expr       Lambda
	TargetType LType
}

// Lcatch evaluates the body, transferring to the handler if it raises.
type Lcatch struct {
	Body        Lambda
	OnException Lambda
	Type        LType
}

// Lreturn returns early from the enclosing top-level function.  Reserved for
// stub wrappers and error propagation.
type Lreturn struct {
	Expr Lambda
}

// Levent wraps an expression with a debug source location.  Elided entirely
// when debug is off.
type Levent struct {
	Expr Lambda
	Loc  *report.TextSpan
}

// -----------------------------------------------------------------------------

func (*Lconst) lambda()        {}
func (*Lvar) lambda()          {}
func (*Lassign) lambda()       {}
func (*Llet) lambda()          {}
func (*Lletrec) lambda()       {}
func (*Lsequence) lambda()     {}
func (*Lif) lambda()           {}
func (*Lloop) lambda()         {}
func (*Lbreak) lambda()        {}
func (*Lcontinue) lambda()     {}
func (*Ljoinlet) lambda()      {}
func (*Ljoinapply) lambda()    {}
func (*Lswitch) lambda()       {}
func (*Lswitchint) lambda()    {}
func (*Lswitchstring) lambda() {}
func (*Lapply) lambda()        {}
func (*Lprim) lambda()         {}
func (*LstubCall) lambda()     {}
func (*Lallocate) lambda()     {}
func (*Lclosure) lambda()      {}
func (*LgetRawFunc) lambda()   {}
func (*LgetField) lambda()     {}
func (*LsetField) lambda()     {}
func (*LclosureField) lambda() {}
func (*LmakeArray) lambda()    {}
func (*LarrayGetItem) lambda() {}
func (*LarraySetItem) lambda() {}
func (*Lcast) lambda()         {}
func (*Lcatch) lambda()        {}
func (*Lreturn) lambda()       {}
func (*Levent) lambda()        {}
