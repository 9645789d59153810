package clam

import (
	"fmt"
	"strings"
)

// TypeDef is an entry in a program's type-def table.  The entry at index i
// defines Tid(i).
type TypeDef interface {
	// Repr returns the textual form of the definition used in dumps.
	Repr() string
}

// -----------------------------------------------------------------------------

// DefClosureAbstract is the nominal abstract closure type for a function
// signature.  Call sites of first-class functions are typed against this
// witness; it carries no captures.
type DefClosureAbstract struct {
	Sig FnSig
}

func (d *DefClosureAbstract) Repr() string {
	return "closure_abstract " + d.Sig.Mangle()
}

// DefClosure is a concrete closure record: the abstract signature witness it
// implements plus its capture fields in capture order.
type DefClosure struct {
	FnSigTid Tid
	Captures []LType
}

func (d *DefClosure) Repr() string {
	return fmt.Sprintf("closure sig@%d %s", d.FnSigTid, reprFields(d.Captures))
}

// DefStruct is a plain struct of lowered fields.
type DefStruct struct {
	Fields []LType
}

func (d *DefStruct) Repr() string {
	return "struct " + reprFields(d.Fields)
}

// DefLateInitStruct is a struct whose fields are written after allocation;
// it backs the shared environment of mutually recursive closures.
type DefLateInitStruct struct {
	Fields []LType
}

func (d *DefLateInitStruct) Repr() string {
	return "late_init_struct " + reprFields(d.Fields)
}

// DefTuple is an immutable tuple of lowered fields.
type DefTuple struct {
	Fields []LType
}

func (d *DefTuple) Repr() string {
	return "tuple " + reprFields(d.Fields)
}

// DefEnum is the lowered representation of a tagged sum: values are
// references to one of its constructor records.
type DefEnum struct {
	Name string
}

func (d *DefEnum) Repr() string {
	return "enum " + d.Name
}

// DefConstr is the record type of a single enum constructor.  The tid of the
// constructor is derived from its owning enum and discriminant tag.
type DefConstr struct {
	EnumTid Tid
	Tag     int
	Fields  []LType
}

func (d *DefConstr) Repr() string {
	return fmt.Sprintf("constr enum@%d tag=%d %s", d.EnumTid, d.Tag, reprFields(d.Fields))
}

// DefArray is a garbage-collected array of a lowered element type.
type DefArray struct {
	Elem LType
}

func (d *DefArray) Repr() string {
	return "array " + d.Elem.Repr()
}

// DefAbstractObject is an object witness: a table of method signatures
// dispatched by index.
type DefAbstractObject struct {
	Name    string
	Methods []FnSig
}

func (d *DefAbstractObject) Repr() string {
	sb := strings.Builder{}
	sb.WriteString("abstract_object ")
	sb.WriteString(d.Name)

	for _, m := range d.Methods {
		sb.WriteRune(' ')
		sb.WriteString(m.Mangle())
	}

	return sb.String()
}

// DefConcreteObject pairs an abstract object witness with the concrete self
// type stored behind it.
type DefConcreteObject struct {
	AbstractTid Tid
	Self        LType
}

func (d *DefConcreteObject) Repr() string {
	return fmt.Sprintf("concrete_object abs@%d self=%s", d.AbstractTid, d.Self.Repr())
}

func reprFields(fields []LType) string {
	sb := strings.Builder{}
	sb.WriteRune('{')

	for i, f := range fields {
		sb.WriteString(f.Repr())

		if i < len(fields)-1 {
			sb.WriteString(", ")
		}
	}

	sb.WriteRune('}')
	return sb.String()
}
