package mcore

import "fmt"

// IdentKind classifies the provenance of an identifier.
type IdentKind int

// Enumeration of identifier kinds.
const (
	// IdentRegular is an immutable local binding.
	IdentRegular IdentKind = iota

	// IdentMutable is a mutable local binding (assignable).
	IdentMutable

	// IdentQualified is a package-qualified global name.
	IdentQualified

	// IdentLocalMethod is a locally-visible method name resolved through the
	// global environment.
	IdentLocalMethod
)

// Ident is a program identifier.  Identifiers are freshly minted per binding
// site and compared by pointer identity; the numeric ID orders idents by mint
// time and makes dumps reproducible.
type Ident struct {
	Name string
	ID   int
	Kind IdentKind

	// Ty is the type annotation captured at creation.
	Ty DataType
}

// IsGlobal returns whether the identifier names a global (package-qualified or
// local-method) entity rather than a local binding.
func (id *Ident) IsGlobal() bool {
	return id.Kind == IdentQualified || id.Kind == IdentLocalMethod
}

func (id *Ident) String() string {
	return fmt.Sprintf("%s/%d", id.Name, id.ID)
}

// -----------------------------------------------------------------------------

// IdentGen mints fresh identifiers.  One generator is owned by each
// translation so that equal inputs mint equal identifier numbers.
type IdentGen struct {
	counter int
}

// Fresh mints a new regular identifier with the given name hint and type.
func (g *IdentGen) Fresh(name string, ty DataType) *Ident {
	return g.fresh(name, IdentRegular, ty)
}

// FreshMut mints a new mutable identifier.
func (g *IdentGen) FreshMut(name string, ty DataType) *Ident {
	return g.fresh(name, IdentMutable, ty)
}

// FreshQualified mints a package-qualified global identifier.
func (g *IdentGen) FreshQualified(name string, ty DataType) *Ident {
	return g.fresh(name, IdentQualified, ty)
}

// FreshLocalMethod mints a local-method identifier.
func (g *IdentGen) FreshLocalMethod(name string, ty DataType) *Ident {
	return g.fresh(name, IdentLocalMethod, ty)
}

func (g *IdentGen) fresh(name string, kind IdentKind, ty DataType) *Ident {
	g.counter++
	return &Ident{
		Name: name,
		ID:   g.counter,
		Kind: kind,
		Ty:   ty,
	}
}
