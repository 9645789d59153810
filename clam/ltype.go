package clam

import (
	"strconv"
	"strings"
)

// Tid is a type identifier referencing an entry in a program's type-def
// table.  Tids are interned during lowering and are stable for the life of
// the program.
type Tid int

// LType is the parent interface for all lowered types.  NumType, RefType and
// BuiltinRef are comparable value types, so lowered types compare with `==`;
// FnSig holds slices and is not comparable.
type LType interface {
	// Repr returns a representative string of the lowered type.
	Repr() string
}

// -----------------------------------------------------------------------------

// NumType represents an unboxed numeric type.  It should be one of the
// enumerated numeric types.
type NumType int

// Enumeration of unboxed numeric types.  Booleans and unit occupy i32 slots
// but keep distinct kinds so dumps stay readable.
const (
	I32Bool NumType = iota
	I32Unit
	I32
	I64
	F32
	F64
)

var numTypeNames = []string{"i32_bool", "i32_unit", "i32", "i64", "f32", "f64"}

func (nt NumType) Repr() string {
	return numTypeNames[nt]
}

// -----------------------------------------------------------------------------

// RefKind classifies a reference to an interned type definition.
type RefKind int

// Enumeration of reference kinds.
const (
	// RefConcrete is an ordinary non-null reference.
	RefConcrete RefKind = iota

	// RefLazyInit is a reference whose fields are initialized after
	// allocation; reads before initialization are a backend trap.
	RefLazyInit

	// RefNullable is a reference that admits null.
	RefNullable
)

// RefType is a reference to an interned type definition.
type RefType struct {
	Kind RefKind
	Tid  Tid
}

func (rt RefType) Repr() string {
	switch rt.Kind {
	case RefLazyInit:
		return "ref_lazy_init@" + strconv.Itoa(int(rt.Tid))
	case RefNullable:
		return "ref_nullable@" + strconv.Itoa(int(rt.Tid))
	default:
		return "ref@" + strconv.Itoa(int(rt.Tid))
	}
}

// -----------------------------------------------------------------------------

// BuiltinRef represents a reference type provided by the backend runtime
// rather than the type-def table.
type BuiltinRef int

// Enumeration of builtin reference types.
const (
	RefBytes BuiltinRef = iota
	RefString
	RefFunc
	RefExtern
	RefAny
	RefStringNullable
)

var builtinRefNames = []string{
	"ref_bytes", "ref_string", "ref_func", "ref_extern", "ref_any",
	"ref_string_nullable",
}

func (br BuiltinRef) Repr() string {
	return builtinRefNames[br]
}

// -----------------------------------------------------------------------------

// FnSig is a lowered function signature.
type FnSig struct {
	Params []LType
	Ret    LType
}

// Mangle produces the canonical string form of the signature.  Signatures
// with equal mangles are the same signature; the interning table is keyed by
// this string.
func (sig FnSig) Mangle() string {
	sb := strings.Builder{}
	sb.WriteRune('(')

	for i, param := range sig.Params {
		sb.WriteString(param.Repr())

		if i < len(sig.Params)-1 {
			sb.WriteRune(',')
		}
	}

	sb.WriteString(")->")
	sb.WriteString(sig.Ret.Repr())
	return sb.String()
}

func (sig FnSig) Repr() string {
	return sig.Mangle()
}
