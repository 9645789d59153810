package mcore

import "clamc/report"

// Expr represents an MCore expression.  All expression nodes implement the
// `Expr` interface.  The input IR is a tree: nodes are never shared.
type Expr interface {
	// Type is the source type of the expression.
	Type() DataType

	// Loc returns the source span of the expression, or nil.
	Loc() *report.TextSpan
}

// ExprBase is the base struct for all expressions.
type ExprBase struct {
	typ  DataType
	span *report.TextSpan
}

func NewExprBase(typ DataType, span *report.TextSpan) ExprBase {
	return ExprBase{typ: typ, span: span}
}

func (eb *ExprBase) Type() DataType {
	return eb.typ
}

func (eb *ExprBase) SetType(typ DataType) {
	eb.typ = typ
}

func (eb *ExprBase) Loc() *report.TextSpan {
	return eb.span
}

// -----------------------------------------------------------------------------

// Const is a literal constant expression.
type Const struct {
	ExprBase

	Value *Constant
}

// Var is a reference to an identifier.
type Var struct {
	ExprBase

	Id *Ident
}

// PrimApply applies a primitive operation to its operands.
type PrimApply struct {
	ExprBase

	Prim Prim
	Args []Expr
}

// And is the short-circuiting boolean conjunction.
type And struct {
	ExprBase

	Lhs, Rhs Expr
}

// Or is the short-circuiting boolean disjunction.
type Or struct {
	ExprBase

	Lhs, Rhs Expr
}

// -----------------------------------------------------------------------------

// Let binds the value of an expression to a name within a body.
type Let struct {
	ExprBase

	Name  *Ident
	Value Expr
	Body  Expr
}

// LetFn binds a single local function within a body.  Rec marks the function
// self-referential.
type LetFn struct {
	ExprBase

	Name *Ident
	Fn   *Func
	Body Expr
	Rec  bool
}

// LetRecBinding is a single member of a mutually recursive bundle.
type LetRecBinding struct {
	Name *Ident
	Fn   *Func
}

// LetRec binds a bundle of simultaneously-scoped, mutually recursive local
// functions within a body.
type LetRec struct {
	ExprBase

	Bindings []LetRecBinding
	Body     Expr
}

// Func is a function literal: parameters with their type annotations and a
// body.  Func is not itself an expression; it is carried by Function, LetFn,
// LetRec, and top-level items.
type Func struct {
	Params  []*Ident
	Body    Expr
	IsAsync bool

	// Ty is the full function type of the literal.
	Ty *FuncType
}

// Function wraps a function literal as a first-class expression.  Raw
// function literals produce a bare code pointer rather than a closure.
type Function struct {
	ExprBase

	Fn    *Func
	IsRaw bool
}

// -----------------------------------------------------------------------------

// ApplyKind discriminates the calling convention of an application.
type ApplyKind interface {
	applyKind()
}

// ApplyNormal is a plain first-order or closure call; FuncTy is the type of
// the callee captured at the call site.
type ApplyNormal struct {
	FuncTy *FuncType
}

// ApplyAsync is an asynchronous call.
type ApplyAsync struct{}

// ApplyJoin is an application of a second-class join continuation.
type ApplyJoin struct{}

func (ApplyNormal) applyKind() {}
func (ApplyAsync) applyKind()  {}
func (ApplyJoin) applyKind()   {}

// Apply is a function application.  The callee is always an identifier; the
// kind decides whether the identifier is a value, an async entry, or a join.
type Apply struct {
	ExprBase

	Callee *Ident
	Args   []Expr
	Kind   ApplyKind
}

// -----------------------------------------------------------------------------

// Tuple constructs a tuple from its element expressions.
type Tuple struct {
	ExprBase

	Elems []Expr
}

// Record constructs a struct value; field initializers appear in declared
// field order.
type Record struct {
	ExprBase

	Fields []Expr
}

// FieldUpdate is a single replaced field in a record update.
type FieldUpdate struct {
	Index int
	Value Expr
}

// RecordUpdate copies a record, replacing the named fields.
type RecordUpdate struct {
	ExprBase

	Record  Expr
	Updates []FieldUpdate
}

// FieldAccess reads a field from a record by index.
type FieldAccess struct {
	ExprBase

	Record Expr
	Index  int
	Name   string
}

// Mutate writes a mutable field of a record by index.
type Mutate struct {
	ExprBase

	Record Expr
	Index  int
	Value  Expr
}

// Constr applies an enum constructor to its payload.
type Constr struct {
	ExprBase

	Constructor *Constructor
	Args        []Expr
}

// ArrayLit constructs a fixed array from its element expressions.
type ArrayLit struct {
	ExprBase

	Elems []Expr
}

// Assign writes a mutable local binding.
type Assign struct {
	ExprBase

	Id    *Ident
	Value Expr
}

// Sequence evaluates the expressions in order for their effects; the result
// is the value of Last.
type Sequence struct {
	ExprBase

	Exprs []Expr
	Last  Expr
}

// -----------------------------------------------------------------------------

// If is the two-armed conditional.
type If struct {
	ExprBase

	Cond, Then, Else Expr
}

// ConstrCase is a single case of a switch over an enum: the matched
// constructor, an optional binder for its payload, and the case body.
type ConstrCase struct {
	Constructor *Constructor
	Binder      *Ident
	Body        Expr
}

// SwitchConstr matches an enum value against its constructors.  Default may
// be nil when the cases are exhaustive.
type SwitchConstr struct {
	ExprBase

	Obj     Expr
	Cases   []ConstrCase
	Default Expr
}

// ConstantCase is a single case of a constant switch.
type ConstantCase struct {
	Value *Constant
	Body  Expr
}

// SwitchConstant matches a primitive value against constant cases.
type SwitchConstant struct {
	ExprBase

	Obj     Expr
	Cases   []ConstantCase
	Default Expr
}

// -----------------------------------------------------------------------------

// Loop is a structured loop with parameters.  Continue re-enters the loop
// with fresh arguments; break exits it, optionally with a value.
type Loop struct {
	ExprBase

	Params []*Ident
	Args   []Expr
	Body   Expr
	Label  *Ident
}

// Break exits the labeled enclosing loop.  Arg may be nil.
type Break struct {
	ExprBase

	Arg   Expr
	Label *Ident
}

// Continue re-enters the labeled enclosing loop with new arguments.
type Continue struct {
	ExprBase

	Args  []Expr
	Label *Ident
}

// -----------------------------------------------------------------------------

// Return returns a value from the enclosing function.  When IsError is set
// the value is the error payload of the function's result sum; ReturnTy is
// the declared return type of the enclosing function.
type Return struct {
	ExprBase

	Value    Expr
	IsError  bool
	ReturnTy DataType
}

// HandleKind discriminates the rewrite applied to a possibly-erroring call.
type HandleKind interface {
	handleKind()
}

// HandleToResult materializes the outcome as a result sum value.
type HandleToResult struct{}

// HandleJoinApply passes the error payload to a join continuation.
type HandleJoinApply struct {
	Join *Ident
}

// HandleReturnErr propagates the error payload out of the enclosing
// function.
type HandleReturnErr struct{}

func (HandleToResult) handleKind()  {}
func (HandleJoinApply) handleKind() {}
func (HandleReturnErr) handleKind() {}

// HandleError wraps a possibly-erroring application, deciding what happens to
// the error payload.
type HandleError struct {
	ExprBase

	Obj  Expr
	Kind HandleKind

	// ErrTy is the type of the error payload.
	ErrTy DataType
}

// MakeObject wraps a concrete value as an abstract object.  The method table
// is resolved from the value's type through the global environment when the
// wrap is lowered.
type MakeObject struct {
	ExprBase

	Obj     Expr
	ObjType *ObjectType
}
