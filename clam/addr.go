package clam

import "fmt"

// Addr names a top-level function symbol.  Addresses are opaque: they are
// compared by pointer identity, and the numeric ID orders them by issue time
// so output is reproducible.
type Addr struct {
	Name string
	ID   int
}

func (a *Addr) String() string {
	return fmt.Sprintf("@%s.%d", a.Name, a.ID)
}

// AddrGen issues addresses.  Each address is issued exactly once; one
// generator is owned by each translation.
type AddrGen struct {
	counter int
}

// Issue mints a fresh address with the given name hint.
func (g *AddrGen) Issue(name string) *Addr {
	g.counter++
	return &Addr{Name: name, ID: g.counter}
}
