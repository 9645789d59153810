package lower

import (
	"clamc/clam"
	"clamc/mcore"
	"clamc/report"
)

// AddrInfo is what the table knows about a function identifier.
type AddrInfo interface {
	addrInfo()
}

// Toplevel describes a program-level function.  NameAsClosure is introduced
// lazily the first time the function is used as a value; its presence
// obligates the lowerer to emit a closure-wrapper item.
type Toplevel struct {
	Addr   *clam.Addr
	Params []clam.LType
	Return clam.LType
	FnTy   *mcore.FuncType

	NameAsClosure *mcore.Ident
	Intrinsic     mcore.Intrinsic
}

// Local describes a well-known local function: its code address and the
// lowered type of its environment argument.  Env is nil when the function
// captures nothing.  EnvVar, when set, is the identifier call sites pass as
// the leading environment argument.
type Local struct {
	Addr   *clam.Addr
	Env    clam.LType
	EnvVar *mcore.Ident
}

func (*Toplevel) addrInfo() {}
func (*Local) addrInfo()    {}

// AddrTable maps function identifiers to their code addresses.  Top-level
// entries are pre-registered before any body is lowered; local entries are
// installed by closure conversion as definitions are rewritten.
type AddrTable struct {
	entries map[*mcore.Ident]AddrInfo
	addrs   *clam.AddrGen
}

// NewAddrTable creates an empty table drawing addresses from the given
// generator.
func NewAddrTable(addrs *clam.AddrGen) *AddrTable {
	return &AddrTable{
		entries: make(map[*mcore.Ident]AddrInfo),
		addrs:   addrs,
	}
}

// Issue mints a fresh address.
func (at *AddrTable) Issue(name string) *clam.Addr {
	return at.addrs.Issue(name)
}

// RegisterTop pre-registers a top-level function and returns its entry.
func (at *AddrTable) RegisterTop(name *mcore.Ident, params []clam.LType, ret clam.LType, intrinsic mcore.Intrinsic) *Toplevel {
	entry := &Toplevel{
		Addr:      at.addrs.Issue(name.Name),
		Params:    params,
		Return:    ret,
		Intrinsic: intrinsic,
	}

	at.entries[name] = entry
	return entry
}

// RegisterLocal installs a well-known local function entry.
func (at *AddrTable) RegisterLocal(name *mcore.Ident, addr *clam.Addr, env clam.LType) *Local {
	entry := &Local{Addr: addr, Env: env}
	at.entries[name] = entry
	return entry
}

// Lookup returns the entry for an identifier, or nil when the identifier is
// not a known function.
func (at *AddrTable) Lookup(name *mcore.Ident) AddrInfo {
	return at.entries[name]
}

// LookupTop returns the top-level entry for an identifier, aborting if the
// identifier is unknown or local.
func (at *AddrTable) LookupTop(name *mcore.Ident) *Toplevel {
	entry, ok := at.entries[name].(*Toplevel)
	if !ok {
		report.ReportICE("identifier %s is not a registered top-level function", name)
	}

	return entry
}

// CollectTopFuncs pre-registers every top-level function of the program,
// consulting the global environment for intrinsic tags.
func CollectTopFuncs(prog *mcore.Program, tl *TypeLowering, env mcore.GlobalEnv, at *AddrTable) {
	for _, item := range prog.Items {
		fn, ok := item.(*mcore.TopFn)
		if !ok {
			continue
		}

		sig := tl.LowerFnSig(fn.Fn.Ty)

		intrinsic := mcore.IntrinsicNone
		if env != nil {
			intrinsic = env.IntrinsicOf(fn.Name)
		}

		entry := at.RegisterTop(fn.Name, sig.Params, sig.Ret, intrinsic)
		entry.FnTy = fn.Fn.Ty
	}
}
