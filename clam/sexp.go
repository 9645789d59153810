package clam

import (
	"fmt"
	"strconv"
	"strings"

	"clamc/mcore"
	"clamc/report"
)

// SexpConfig controls the debug S-expression form of a program.
type SexpConfig struct {
	// ShowLoc includes source location subtrees on Levent nodes.  When
	// false, Levent wrappers are elided entirely from the output.
	ShowLoc bool
}

// ProgSexp renders the whole program.  The form is the stable observable
// used by tests: it is fully determined by the program value.
func ProgSexp(p *Prog, cfg SexpConfig) string {
	pr := sexpPrinter{cfg: cfg}

	pr.open("prog")

	pr.open("type_defs")
	for i, td := range p.TypeDefs {
		pr.atom(fmt.Sprintf("(%d %s)", i, td.Repr()))
	}
	pr.close()

	pr.open("globals")
	for _, g := range p.Globals {
		pr.open("global")
		pr.atom(g.Var.String())

		if g.Init != nil {
			pr.atom(g.Init.String())
		} else {
			pr.atom("none")
		}

		pr.close()
	}
	pr.close()

	for _, item := range p.Fns {
		pr.funcItem(item)
	}

	if p.Init != nil {
		pr.open("init")
		pr.fn(p.Init)
		pr.close()
	}

	if p.Main != nil {
		pr.open("main")
		pr.fn(p.Main)
		pr.close()
	}

	pr.close()
	return pr.sb.String()
}

// ExprSexp renders a single expression; used by expression-level tests.
func ExprSexp(e Lambda, cfg SexpConfig) string {
	pr := sexpPrinter{cfg: cfg}
	pr.expr(e)
	return pr.sb.String()
}

// -----------------------------------------------------------------------------

// sexpPrinter accumulates the textual form.  Output is a single line per
// print call; nesting is expressed purely with parentheses so that string
// comparison in tests is trivial.
type sexpPrinter struct {
	sb      strings.Builder
	cfg     SexpConfig
	needSep bool
}

func (pr *sexpPrinter) open(head string) {
	pr.sep()
	pr.sb.WriteRune('(')
	pr.sb.WriteString(head)
	pr.needSep = true
}

func (pr *sexpPrinter) close() {
	pr.sb.WriteRune(')')
	pr.needSep = true
}

func (pr *sexpPrinter) atom(s string) {
	pr.sep()
	pr.sb.WriteString(s)
	pr.needSep = true
}

func (pr *sexpPrinter) sep() {
	if pr.needSep {
		pr.sb.WriteRune(' ')
		pr.needSep = false
	}
}

// -----------------------------------------------------------------------------

func (pr *sexpPrinter) funcItem(item *TopFuncItem) {
	pr.open("fn")
	pr.atom(item.Binder.String())

	switch k := item.Kind.(type) {
	case TopPub:
		pr.atom("pub=" + k.ExportName)
	case TopPrivate:
		pr.atom("private")
	}

	if item.Tid != nil {
		pr.atom("tid@" + strconv.Itoa(int(*item.Tid)))
	}

	pr.fn(item.Fn)
	pr.close()
}

func (pr *sexpPrinter) fn(fn *Fn) {
	pr.open("params")
	for _, p := range fn.Params {
		pr.atom(p.String())
	}
	pr.close()

	pr.atom("->")
	pr.atom(fn.ReturnType.Repr())
	pr.expr(fn.Body)
}

// -----------------------------------------------------------------------------

func (pr *sexpPrinter) expr(e Lambda) {
	// Levent wrappers vanish when locations are suppressed so the tree
	// reads the same with debug on and off.
	if ev, ok := e.(*Levent); ok && !pr.cfg.ShowLoc {
		pr.expr(ev.Expr)
		return
	}

	switch e := e.(type) {
	case *Lconst:
		pr.atom(e.Value.String())

	case *Lvar:
		pr.atom(e.Var.String())

	case *Lassign:
		pr.open("Lassign")
		pr.atom(e.Var.String())
		pr.expr(e.Expr)
		pr.close()

	case *Llet:
		pr.letChain(e)

	case *Lletrec:
		pr.open("Lletrec")
		for i, name := range e.Names {
			pr.open("bind")
			pr.atom(name.String())
			pr.expr(e.Fns[i])
			pr.close()
		}
		pr.expr(e.Body)
		pr.close()

	case *Lsequence:
		pr.open("Lsequence")
		pr.seqChain(e)
		pr.close()

	case *Lif:
		pr.open("Lif")
		pr.expr(e.Pred)
		pr.expr(e.IfSo)
		pr.expr(e.IfNot)
		pr.close()

	case *Lloop:
		pr.open("Lloop")
		pr.atom(e.Label.String())
		pr.open("params")
		for _, p := range e.Params {
			pr.atom(p.String())
		}
		pr.close()
		pr.open("args")
		for _, a := range e.Args {
			pr.expr(a)
		}
		pr.close()
		pr.expr(e.Body)
		pr.close()

	case *Lbreak:
		pr.open("Lbreak")
		pr.atom(e.Label.String())

		if e.Arg != nil {
			pr.expr(e.Arg)
		}

		pr.close()

	case *Lcontinue:
		pr.open("Lcontinue")
		pr.atom(e.Label.String())
		for _, a := range e.Args {
			pr.expr(a)
		}
		pr.close()

	case *Ljoinlet:
		if e.Kind == NontailJoin {
			pr.open("Ljoinlet_nontail")
		} else {
			pr.open("Ljoinlet")
		}

		pr.atom(e.Name.String())
		pr.open("params")
		for _, p := range e.Params {
			pr.atom(p.String())
		}
		pr.close()
		pr.expr(e.Expr)
		pr.expr(e.Body)
		pr.close()

	case *Ljoinapply:
		pr.open("Ljoinapply")
		pr.atom(e.Name.String())
		for _, a := range e.Args {
			pr.expr(a)
		}
		pr.close()

	case *Lswitch:
		pr.open("Lswitch")
		pr.atom(e.Obj.String())
		for _, c := range e.Cases {
			pr.open("case")
			pr.atom("tag=" + strconv.Itoa(c.Tag))
			pr.expr(c.Body)
			pr.close()
		}
		pr.switchDefault(e.Default)
		pr.close()

	case *Lswitchint:
		pr.open("Lswitchint")
		pr.atom(e.Obj.String())
		for _, c := range e.Cases {
			pr.open("case")
			pr.atom(strconv.FormatInt(c.Value, 10))
			pr.expr(c.Body)
			pr.close()
		}
		pr.switchDefault(e.Default)
		pr.close()

	case *Lswitchstring:
		pr.open("Lswitchstring")
		pr.atom(e.Obj.String())
		for _, c := range e.Cases {
			pr.open("case")
			pr.atom(strconv.Quote(c.Value))
			pr.expr(c.Body)
			pr.close()
		}
		pr.switchDefault(e.Default)
		pr.close()

	case *Lapply:
		if e.Intrinsic != mcore.IntrinsicNone {
			pr.open("Lapply." + e.Intrinsic.String())
		} else {
			pr.open("Lapply")
		}

		pr.target(e.Target)
		for _, a := range e.Args {
			pr.expr(a)
		}
		pr.close()

	case *Lprim:
		pr.open("Lprim." + e.Prim.String())
		for _, a := range e.Args {
			pr.expr(a)
		}
		pr.close()

	case *LstubCall:
		pr.open("Lstub_call")
		pr.atom(e.Fn)
		for _, a := range e.Args {
			pr.expr(a)
		}
		pr.close()

	case *Lallocate:
		pr.open("Lallocate." + allocKindName(e.Kind))
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))
		for _, f := range e.Fields {
			pr.expr(f)
		}
		pr.close()

	case *Lclosure:
		pr.open("Lclosure")
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))

		switch addr := e.Address.(type) {
		case AddrNormal:
			pr.atom(addr.Addr.String())
		case AddrWellKnownMutRec:
			pr.atom("well_known_mut_rec")
		}

		pr.open("captures")
		for _, c := range e.Captures {
			pr.atom(c.String())
		}
		pr.close()
		pr.close()

	case *LgetRawFunc:
		pr.open("Lget_raw_func")
		pr.atom(e.Addr.String())
		pr.close()

	case *LgetField:
		pr.open("Lget_field." + fieldKindName(e.Kind))
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))
		pr.atom(strconv.Itoa(e.Index))
		pr.expr(e.Obj)
		pr.close()

	case *LsetField:
		pr.open("Lset_field." + fieldKindName(e.Kind))
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))
		pr.atom(strconv.Itoa(e.Index))
		pr.expr(e.Obj)
		pr.expr(e.Value)
		pr.close()

	case *LclosureField:
		pr.open("Lclosure_field")
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))
		pr.atom(strconv.Itoa(e.Index))
		pr.expr(e.Obj)
		pr.close()

	case *LmakeArray:
		pr.open("Lmake_array")
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))
		for _, el := range e.Elems {
			pr.expr(el)
		}
		pr.close()

	case *LarrayGetItem:
		pr.open("Larray_get_item." + e.Access.String())
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))
		pr.expr(e.Arr)
		pr.expr(e.Index)
		pr.close()

	case *LarraySetItem:
		pr.open("Larray_set_item." + e.Access.String())
		pr.atom("tid@" + strconv.Itoa(int(e.Tid)))
		pr.expr(e.Arr)
		pr.expr(e.Index)
		pr.expr(e.Value)
		pr.close()

	case *Lcast:
		pr.open("Lcast")
		pr.atom(e.TargetType.Repr())
		pr.expr(e.Expr)
		pr.close()

	case *Lcatch:
		pr.open("Lcatch")
		pr.expr(e.Body)
		pr.expr(e.OnException)
		pr.close()

	case *Lreturn:
		pr.open("Lreturn")
		pr.expr(e.Expr)
		pr.close()

	case *Levent:
		pr.open("Levent")
		pr.atom(locAtom(e.Loc))
		pr.expr(e.Expr)
		pr.close()

	default:
		panic(fmt.Sprintf("unhandled lambda in sexp printer: %T", e))
	}
}

// letChain collapses consecutive Llet bindings into one node so long binding
// runs stay flat.
func (pr *sexpPrinter) letChain(e *Llet) {
	pr.open("Llet")

	body := Lambda(e)
	for {
		let, ok := body.(*Llet)
		if !ok {
			break
		}

		pr.open("bind")
		pr.atom(let.Name.String())
		pr.expr(let.Expr)
		pr.close()
		body = let.Body
	}

	pr.expr(body)
	pr.close()
}

// seqChain flattens a chain of Lsequence nodes nested through Last into a
// single run; an Lsequence among Exprs prints as its own node.
func (pr *sexpPrinter) seqChain(e *Lsequence) {
	for _, sub := range e.Exprs {
		pr.expr(sub)
	}

	if last, ok := e.Last.(*Lsequence); ok {
		pr.seqChain(last)
		return
	}

	pr.expr(e.Last)
}

func (pr *sexpPrinter) switchDefault(def Lambda) {
	if def == nil {
		return
	}

	pr.open("default")
	pr.expr(def)
	pr.close()
}

func (pr *sexpPrinter) target(t Target) {
	switch t := t.(type) {
	case TargetDynamic:
		pr.atom("dyn:" + t.Var.String())
	case TargetStaticFn:
		pr.atom(t.Addr.String())
	case TargetObject:
		pr.open("method")
		pr.atom(strconv.Itoa(t.MethodIndex))
		pr.expr(t.Obj)
		pr.close()
	}
}

func allocKindName(k AllocKind) string {
	switch k := k.(type) {
	case AllocTuple:
		return "tuple"
	case AllocStruct:
		return "struct"
	case AllocEnum:
		return "enum." + strconv.Itoa(k.Tag)
	case AllocObject:
		return "object"
	}

	return "unknown"
}

func fieldKindName(k FieldKind) string {
	switch k.(type) {
	case FieldTuple:
		return "tuple"
	case FieldStruct:
		return "struct"
	case FieldEnum:
		return "enum"
	case FieldObject:
		return "object"
	}

	return "unknown"
}

func locAtom(loc *report.TextSpan) string {
	if loc == nil {
		return "loc:none"
	}

	return fmt.Sprintf("loc:%d:%d-%d:%d", loc.StartLine, loc.StartCol, loc.EndLine, loc.EndCol)
}
