package mcore

import (
	"fmt"
	"strconv"
)

// ConstKind classifies a constant literal.
type ConstKind int

// Enumeration of constant kinds.
const (
	CUnit ConstKind = iota
	CBool
	CChar
	CInt
	CInt64
	CDouble
	CString
	CBytes
)

// Constant is a literal value.  Only the field matching the kind is
// meaningful.
type Constant struct {
	Kind ConstKind

	IntVal   int64
	FloatVal float64
	StrVal   string
	BoolVal  bool
}

// UnitConst is the canonical unit literal, lowered as the integer zero.
var UnitConst = &Constant{Kind: CUnit}

// NewIntConst returns an Int constant.
func NewIntConst(v int64) *Constant {
	return &Constant{Kind: CInt, IntVal: v}
}

// NewInt64Const returns an Int64 constant.
func NewInt64Const(v int64) *Constant {
	return &Constant{Kind: CInt64, IntVal: v}
}

// NewBoolConst returns a Bool constant.
func NewBoolConst(v bool) *Constant {
	return &Constant{Kind: CBool, BoolVal: v}
}

// NewCharConst returns a Char constant from a code point.
func NewCharConst(v rune) *Constant {
	return &Constant{Kind: CChar, IntVal: int64(v)}
}

// NewDoubleConst returns a Double constant.
func NewDoubleConst(v float64) *Constant {
	return &Constant{Kind: CDouble, FloatVal: v}
}

// NewStringConst returns a String constant.
func NewStringConst(v string) *Constant {
	return &Constant{Kind: CString, StrVal: v}
}

// Type returns the source type of the constant.
func (c *Constant) Type() DataType {
	switch c.Kind {
	case CUnit:
		return PrimType(PrimUnit)
	case CBool:
		return PrimType(PrimBool)
	case CChar:
		return PrimType(PrimChar)
	case CInt:
		return PrimType(PrimInt)
	case CInt64:
		return PrimType(PrimInt64)
	case CDouble:
		return PrimType(PrimDouble)
	case CString:
		return PrimType(PrimString)
	default:
		// CBytes
		return PrimType(PrimBytes)
	}
}

func (c *Constant) String() string {
	switch c.Kind {
	case CUnit:
		return "()"
	case CBool:
		return strconv.FormatBool(c.BoolVal)
	case CChar:
		return fmt.Sprintf("'%c'", rune(c.IntVal))
	case CInt:
		return strconv.FormatInt(c.IntVal, 10)
	case CInt64:
		return strconv.FormatInt(c.IntVal, 10) + "L"
	case CDouble:
		return strconv.FormatFloat(c.FloatVal, 'g', -1, 64)
	default:
		return strconv.Quote(c.StrVal)
	}
}

// Equal returns whether two constants have the same kind and payload.
func (c *Constant) Equal(other *Constant) bool {
	if c.Kind != other.Kind {
		return false
	}

	switch c.Kind {
	case CUnit:
		return true
	case CBool:
		return c.BoolVal == other.BoolVal
	case CDouble:
		return c.FloatVal == other.FloatVal
	case CString, CBytes:
		return c.StrVal == other.StrVal
	default:
		return c.IntVal == other.IntVal
	}
}
