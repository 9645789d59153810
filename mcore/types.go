package mcore

import "strings"

// DataType is the parent interface for all source types carried on MCore
// expressions.  The input program is fully type-checked: every expression,
// parameter, and handler site arrives annotated with one of these.
type DataType interface {
	// Repr returns a representative string of the type for purposes of error
	// reporting and dumps.
	Repr() string

	// equals is the internal, type-specific implementation of Equals.  It
	// should never be called directly except by Equals.
	equals(DataType) bool
}

// Equals returns whether two source types are identical.
func Equals(a, b DataType) bool {
	return a.equals(b)
}

// -----------------------------------------------------------------------------

// PrimType represents a primitive type.  It should be one of the enumerated
// primitive types.
type PrimType int

// Enumeration of different primitive types.
const (
	PrimUnit = iota
	PrimBool
	PrimChar
	PrimInt
	PrimInt64
	PrimDouble
	PrimString
	PrimBytes
)

func (pt PrimType) Repr() string {
	switch pt {
	case PrimUnit:
		return "Unit"
	case PrimBool:
		return "Bool"
	case PrimChar:
		return "Char"
	case PrimInt:
		return "Int"
	case PrimInt64:
		return "Int64"
	case PrimDouble:
		return "Double"
	case PrimString:
		return "String"
	default:
		// PrimBytes
		return "Bytes"
	}
}

func (pt PrimType) equals(other DataType) bool {
	if opt, ok := other.(PrimType); ok {
		return pt == opt
	}

	return false
}

// -----------------------------------------------------------------------------

// FuncType represents the type of a function value.
type FuncType struct {
	Params  []DataType
	Ret     DataType
	IsAsync bool
}

func (ft *FuncType) Repr() string {
	sb := strings.Builder{}
	sb.WriteRune('(')

	for i, param := range ft.Params {
		sb.WriteString(param.Repr())

		if i < len(ft.Params)-1 {
			sb.WriteString(", ")
		}
	}

	sb.WriteString(") -> ")
	sb.WriteString(ft.Ret.Repr())
	return sb.String()
}

func (ft *FuncType) equals(other DataType) bool {
	oft, ok := other.(*FuncType)
	if !ok || len(ft.Params) != len(oft.Params) || ft.IsAsync != oft.IsAsync {
		return false
	}

	for i, param := range ft.Params {
		if !Equals(param, oft.Params[i]) {
			return false
		}
	}

	return Equals(ft.Ret, oft.Ret)
}

// TupleType represents the type of a tuple.
type TupleType struct {
	Elems []DataType
}

func (tt *TupleType) Repr() string {
	elemReprs := make([]string, len(tt.Elems))
	for i, elem := range tt.Elems {
		elemReprs[i] = elem.Repr()
	}

	return "(" + strings.Join(elemReprs, ", ") + ")"
}

func (tt *TupleType) equals(other DataType) bool {
	ott, ok := other.(*TupleType)
	if !ok || len(tt.Elems) != len(ott.Elems) {
		return false
	}

	for i, elem := range tt.Elems {
		if !Equals(elem, ott.Elems[i]) {
			return false
		}
	}

	return true
}

// -----------------------------------------------------------------------------

// FixedArrayType represents a raw garbage-collected array of a fixed length.
type FixedArrayType struct {
	Elem DataType
}

func (fat *FixedArrayType) Repr() string {
	return "FixedArray[" + fat.Elem.Repr() + "]"
}

func (fat *FixedArrayType) equals(other DataType) bool {
	ofat, ok := other.(*FixedArrayType)
	return ok && Equals(fat.Elem, ofat.Elem)
}

// ArrayType represents a growable array record: a backing buffer plus a
// length field.
type ArrayType struct {
	Elem DataType
}

func (at *ArrayType) Repr() string {
	return "Array[" + at.Elem.Repr() + "]"
}

func (at *ArrayType) equals(other DataType) bool {
	oat, ok := other.(*ArrayType)
	return ok && Equals(at.Elem, oat.Elem)
}

// ArrayViewType represents a view record over an array: a backing buffer, a
// start offset, and a length.
type ArrayViewType struct {
	Elem DataType
}

func (avt *ArrayViewType) Repr() string {
	return "ArrayView[" + avt.Elem.Repr() + "]"
}

func (avt *ArrayViewType) equals(other DataType) bool {
	oavt, ok := other.(*ArrayViewType)
	return ok && Equals(avt.Elem, oavt.Elem)
}

// BytesViewType represents a view record over a bytes value.
type BytesViewType struct{}

func (BytesViewType) Repr() string {
	return "BytesView"
}

func (BytesViewType) equals(other DataType) bool {
	_, ok := other.(BytesViewType)
	return ok
}

// IterType represents an internal iterator: a function that feeds elements to
// a sink continuation until the sink signals stop.
type IterType struct {
	Elem DataType
}

func (it *IterType) Repr() string {
	return "Iter[" + it.Elem.Repr() + "]"
}

func (it *IterType) equals(other DataType) bool {
	oit, ok := other.(*IterType)
	return ok && Equals(it.Elem, oit.Elem)
}

// -----------------------------------------------------------------------------

// OptionType represents an optional value, lowered as a nullable reference.
type OptionType struct {
	Elem DataType
}

func (ot *OptionType) Repr() string {
	return ot.Elem.Repr() + "?"
}

func (ot *OptionType) equals(other DataType) bool {
	oot, ok := other.(*OptionType)
	return ok && Equals(ot.Elem, oot.Elem)
}

// ResultType represents the built-in result sum of an ok value and an error
// value.
type ResultType struct {
	Ok, Err DataType
}

func (rt *ResultType) Repr() string {
	return "Result[" + rt.Ok.Repr() + ", " + rt.Err.Repr() + "]"
}

func (rt *ResultType) equals(other DataType) bool {
	ort, ok := other.(*ResultType)
	return ok && Equals(rt.Ok, ort.Ok) && Equals(rt.Err, ort.Err)
}

// -----------------------------------------------------------------------------

// Field is a single named field of a struct type.
type Field struct {
	Name    string
	Ty      DataType
	Mutable bool
}

// StructType represents a named record type.
type StructType struct {
	Name   string
	Fields []Field
}

func (st *StructType) Repr() string {
	return st.Name
}

func (st *StructType) equals(other DataType) bool {
	ost, ok := other.(*StructType)
	return ok && st == ost
}

// FieldIndex returns the index of the named field, or -1.
func (st *StructType) FieldIndex(name string) int {
	for i, field := range st.Fields {
		if field.Name == name {
			return i
		}
	}

	return -1
}

// Constructor is a single case of an enum type.  The tag is the constructor's
// discriminant within its owning enum.
type Constructor struct {
	Name string
	Args []DataType
	Tag  int

	// Enum is the owning enum type.
	Enum *EnumType
}

// EnumType represents a named tagged sum type.
type EnumType struct {
	Name         string
	Constructors []*Constructor
}

func (et *EnumType) Repr() string {
	return et.Name
}

func (et *EnumType) equals(other DataType) bool {
	oet, ok := other.(*EnumType)
	return ok && et == oet
}

// -----------------------------------------------------------------------------

// MethodSig is the signature of a single object method.
type MethodSig struct {
	Name string
	Ty   *FuncType
}

// ObjectType represents an abstract object (trait witness) type: a value
// carried with a table of methods dispatched by index.
type ObjectType struct {
	Name    string
	Methods []MethodSig
}

func (ot *ObjectType) Repr() string {
	return "&" + ot.Name
}

func (ot *ObjectType) equals(other DataType) bool {
	oot, ok := other.(*ObjectType)
	return ok && ot == oot
}

// MethodIndex returns the index of the named method, or -1.
func (ot *ObjectType) MethodIndex(name string) int {
	for i, m := range ot.Methods {
		if m.Name == name {
			return i
		}
	}

	return -1
}

// -----------------------------------------------------------------------------

// ConstrType is the type of a value known to be a specific enum constructor.
// Switch case binders are typed with it so payload accesses can resolve the
// constructor record directly.
type ConstrType struct {
	Constr *Constructor
}

func (ct *ConstrType) Repr() string {
	return ct.Constr.Enum.Name + "." + ct.Constr.Name
}

func (ct *ConstrType) equals(other DataType) bool {
	oct, ok := other.(*ConstrType)
	return ok && ct.Constr == oct.Constr
}
