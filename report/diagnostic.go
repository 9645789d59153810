package report

import "fmt"

// DiagKind classifies a diagnostic with a structured kind so that callers can
// react to specific failure classes without parsing message text.
type DiagKind int

// Enumeration of diagnostic kinds surfaced through the middle-end.
const (
	KindGeneric DiagKind = iota
	KindDuplicateTvar
	KindInvalidInitOrMain
	KindReservedTypeName
	KindTraitDuplicateMethod
	KindConstrNoMutPositionalField
	KindBadRangePatternOperand
	KindInternalParams
)

// kindNames maps diagnostic kinds to their stable display names.
var kindNames = []string{
	"generic",
	"duplicate_tvar",
	"invalid_init_or_main",
	"reserved_type_name",
	"trait_duplicate_method",
	"constr_no_mut_positional_field",
	"bad_range_pattern_operand",
	"internal_params",
}

func (k DiagKind) String() string {
	return kindNames[k]
}

// Diagnostic is a single accumulated error or warning.  Diagnostics are data:
// accumulating one never aborts the surrounding pass.
type Diagnostic struct {
	Kind    DiagKind
	Message string
	Span    *TextSpan
	IsError bool
}

func (d *Diagnostic) Error() string {
	if d.Span == nil {
		return d.Message
	}

	return fmt.Sprintf("%d:%d: %s", d.Span.StartLine+1, d.Span.StartCol+1, d.Message)
}

// -----------------------------------------------------------------------------

// Bag accumulates diagnostics produced while checking and lowering a program.
// It is the collaborator handed to the middle-end by the driver; it performs no
// display of its own.
type Bag struct {
	diags []*Diagnostic
}

// NewBag creates an empty diagnostics accumulator.
func NewBag() *Bag {
	return &Bag{}
}

// AddError accumulates an error diagnostic of the given kind.
func (b *Bag) AddError(kind DiagKind, span *TextSpan, msg string, args ...interface{}) {
	b.diags = append(b.diags, &Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(msg, args...),
		Span:    span,
		IsError: true,
	})
}

// AddWarning accumulates a warning diagnostic of the given kind.
func (b *Bag) AddWarning(kind DiagKind, span *TextSpan, msg string, args ...interface{}) {
	b.diags = append(b.diags, &Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(msg, args...),
		Span:    span,
	})
}

// Diagnostics returns all accumulated diagnostics in accumulation order.
func (b *Bag) Diagnostics() []*Diagnostic {
	return b.diags
}

// ErrorCount returns the number of accumulated error diagnostics.
func (b *Bag) ErrorCount() int {
	n := 0
	for _, d := range b.diags {
		if d.IsError {
			n++
		}
	}

	return n
}

// HasErrors returns whether any error diagnostic has been accumulated.
func (b *Bag) HasErrors() bool {
	return b.ErrorCount() > 0
}
