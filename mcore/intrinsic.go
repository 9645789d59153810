package mcore

// Intrinsic tags a known method for inline specialization by the rewriter.
type Intrinsic int

// Enumeration of intrinsic tags.
const (
	IntrinsicNone Intrinsic = iota

	FixedArrayIter

	IterIter
	IterMap
	IterFilter
	IterTake
	IterReduce
	IterFlatMap
	IterRepeat
	IterConcat
	IterFromArray

	ArrayLength
	ArrayViewLength
	BytesViewLength

	ArrayUnsafeGet
	ArrayUnsafeSet
	ArrayGet
	ArraySet
	ArrayViewUnsafeGet
	ArrayViewUnsafeSet
	BytesViewUnsafeGet
	BytesViewUnsafeSet

	ArrayViewUnsafeAsView
	BytesViewUnsafeAsView

	CharToString

	OpLt
	OpLe
	OpGt
	OpGe
	OpNotEqual
)

// intrinsicNames maps intrinsic tags to their stable display names.
var intrinsicNames = []string{
	"none",
	"FixedArray::iter",
	"Iter::iter",
	"Iter::map",
	"Iter::filter",
	"Iter::take",
	"Iter::reduce",
	"Iter::flat_map",
	"Iter::repeat",
	"Iter::concat",
	"Iter::from_array",
	"Array::length",
	"ArrayView::length",
	"BytesView::length",
	"Array::unsafe_get",
	"Array::unsafe_set",
	"Array::op_get",
	"Array::op_set",
	"ArrayView::unsafe_get",
	"ArrayView::unsafe_set",
	"BytesView::unsafe_get",
	"BytesView::unsafe_set",
	"ArrayView::unsafe_as_view",
	"BytesView::unsafe_as_view",
	"Char::to_string",
	"op_lt",
	"op_le",
	"op_gt",
	"op_ge",
	"op_notequal",
}

func (in Intrinsic) String() string {
	return intrinsicNames[in]
}
