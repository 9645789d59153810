package mcore

// Prim is a primitive operation applied directly to operands.  Comparison
// prims are monomorphic: the polymorphic comparison operators of the source
// surface arrive as intrinsic-tagged method applications and are specialized
// to these during rewriting.
type Prim int

// Enumeration of primitive operations.
const (
	PaddInt Prim = iota
	PsubInt
	PmulInt
	PdivInt
	PmodInt
	PnegInt

	PaddInt64
	PsubInt64
	PmulInt64

	PaddFloat
	PsubFloat
	PmulFloat
	PdivFloat

	Pnot

	PeqInt
	PneInt
	PltInt
	PleInt
	PgtInt
	PgeInt

	PeqInt64
	PneInt64
	PltInt64
	PleInt64
	PgtInt64
	PgeInt64

	PeqFloat
	PneFloat
	PltFloat
	PleFloat
	PgtFloat
	PgeFloat

	PeqString

	// Ppanic aborts execution; it never returns.
	Ppanic

	// Pnull produces the null value of a nullable reference type.
	Pnull

	// PnullStringExtern is the host-provided null of the builtin string
	// backend.  Produced only when the builtin string backend is enabled.
	PnullStringExtern

	// PisNull tests a nullable reference for null.
	PisNull

	// PasNonNull asserts a nullable reference non-null, changing only its
	// static type.
	PasNonNull

	// PcharToString converts a char code point to a one-character string via
	// the builtin string backend.
	PcharToString

	// PfixedArrayLength reads the length of a fixed array.
	PfixedArrayLength

	// PfixedArrayGet loads a fixed array element without a bounds check.
	PfixedArrayGet
)

// primNames maps prims to their stable display names.
var primNames = []string{
	"add_int", "sub_int", "mul_int", "div_int", "mod_int", "neg_int",
	"add_int64", "sub_int64", "mul_int64",
	"add_float", "sub_float", "mul_float", "div_float",
	"not",
	"eq_int", "ne_int", "lt_int", "le_int", "gt_int", "ge_int",
	"eq_int64", "ne_int64", "lt_int64", "le_int64", "gt_int64", "ge_int64",
	"eq_float", "ne_float", "lt_float", "le_float", "gt_float", "ge_float",
	"eq_string",
	"panic",
	"null",
	"null_string_extern",
	"is_null",
	"as_non_null",
	"char_to_string",
	"fixedarray_length",
	"fixedarray_get",
}

func (p Prim) String() string {
	return primNames[p]
}
