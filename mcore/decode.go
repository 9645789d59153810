package mcore

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Decoded bundles everything a serialized program carries: the program itself,
// the global environment reconstructed from its method and intrinsic tables,
// and the identifier generator positioned past every decoded identifier so
// translation mints fresh names without collisions.
type Decoded struct {
	Prog *Program
	Env  *Env
	Gen  *IdentGen

	// Idents maps serialized identifier indices to their decoded instances.
	Idents map[int]*Ident
}

// DecodeProgram decodes a serialized MCore program.  The format is a debug and
// test surface, not a public wire format: identifiers are table-declared and
// referenced by index, nominal types are table-declared and referenced by
// name, and every expression node is a kind-tagged object.
func DecodeProgram(data []byte) (*Decoded, error) {
	var raw rawProgram
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed program JSON")
	}

	d := &decoder{
		env:    NewEnv(),
		gen:    &IdentGen{},
		named:  make(map[string]DataType),
		idents: make(map[int]*Ident),
	}

	if err := d.declareTypes(raw.Types); err != nil {
		return nil, err
	}

	if err := d.fillTypes(raw.Types); err != nil {
		return nil, err
	}

	if err := d.declareIdents(raw.Idents); err != nil {
		return nil, err
	}

	if err := d.registerMethods(raw.Methods); err != nil {
		return nil, err
	}

	if err := d.registerIntrinsics(raw.Intrinsics); err != nil {
		return nil, err
	}

	prog := &Program{}
	for i, item := range raw.Items {
		decoded, err := d.decodeItem(item)
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}

		prog.Items = append(prog.Items, decoded)
	}

	return &Decoded{Prog: prog, Env: d.env, Gen: d.gen, Idents: d.idents}, nil
}

// -----------------------------------------------------------------------------

type rawProgram struct {
	Types      []rawTypeDecl      `json:"types"`
	Idents     []rawIdentDecl     `json:"idents"`
	Methods    []rawMethodDecl    `json:"methods"`
	Intrinsics []rawIntrinsicDecl `json:"intrinsics"`
	Items      []json.RawMessage  `json:"items"`
}

type rawTypeDecl struct {
	Name string `json:"name"`
	Kind string `json:"kind"`

	Fields []struct {
		Name    string          `json:"name"`
		Type    json.RawMessage `json:"type"`
		Mutable bool            `json:"mutable"`
	} `json:"fields"`

	Constructors []struct {
		Name string            `json:"name"`
		Args []json.RawMessage `json:"args"`
	} `json:"constructors"`

	Methods []struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	} `json:"methods"`
}

type rawIdentDecl struct {
	ID   int             `json:"id"`
	Name string          `json:"name"`
	Kind string          `json:"kind"`
	Type json.RawMessage `json:"type"`
}

type rawMethodDecl struct {
	TypeName  string          `json:"type_name"`
	Name      string          `json:"name"`
	ID        int             `json:"id"`
	Type      json.RawMessage `json:"type"`
	Intrinsic string          `json:"intrinsic"`
}

type rawIntrinsicDecl struct {
	ID        int    `json:"id"`
	Intrinsic string `json:"intrinsic"`
}

// -----------------------------------------------------------------------------

// decoder holds the declaration tables built up while decoding a program.
type decoder struct {
	env    *Env
	gen    *IdentGen
	named  map[string]DataType
	idents map[int]*Ident
}

// declareTypes allocates a shell for every nominal type so that field and
// payload types may refer to any of them, including cyclically.
func (d *decoder) declareTypes(decls []rawTypeDecl) error {
	for _, decl := range decls {
		if _, ok := d.named[decl.Name]; ok {
			return errors.Errorf("duplicate type declaration `%s`", decl.Name)
		}

		switch decl.Kind {
		case "struct":
			d.named[decl.Name] = &StructType{Name: decl.Name}
		case "enum":
			d.named[decl.Name] = &EnumType{Name: decl.Name}
		case "object":
			d.named[decl.Name] = &ObjectType{Name: decl.Name}
		default:
			return errors.Errorf("type `%s` has unknown kind `%s`", decl.Name, decl.Kind)
		}
	}

	return nil
}

// fillTypes decodes the bodies of the declared nominal types.
func (d *decoder) fillTypes(decls []rawTypeDecl) error {
	for _, decl := range decls {
		switch ty := d.named[decl.Name].(type) {
		case *StructType:
			for _, field := range decl.Fields {
				fieldTy, err := d.decodeType(field.Type)
				if err != nil {
					return errors.Wrapf(err, "struct `%s` field `%s`", decl.Name, field.Name)
				}

				ty.Fields = append(ty.Fields, Field{Name: field.Name, Ty: fieldTy, Mutable: field.Mutable})
			}
		case *EnumType:
			for tag, constr := range decl.Constructors {
				c := &Constructor{Name: constr.Name, Tag: tag, Enum: ty}
				for _, arg := range constr.Args {
					argTy, err := d.decodeType(arg)
					if err != nil {
						return errors.Wrapf(err, "enum `%s` constructor `%s`", decl.Name, constr.Name)
					}

					c.Args = append(c.Args, argTy)
				}

				ty.Constructors = append(ty.Constructors, c)
			}
		case *ObjectType:
			for _, m := range decl.Methods {
				mTy, err := d.decodeType(m.Type)
				if err != nil {
					return errors.Wrapf(err, "trait `%s` method `%s`", decl.Name, m.Name)
				}

				fnTy, ok := mTy.(*FuncType)
				if !ok {
					return errors.Errorf("trait `%s` method `%s` is not a function type", decl.Name, m.Name)
				}

				ty.Methods = append(ty.Methods, MethodSig{Name: m.Name, Ty: fnTy})
			}
		}
	}

	return nil
}

// declareIdents mints the identifier table in declaration order.
func (d *decoder) declareIdents(decls []rawIdentDecl) error {
	for _, decl := range decls {
		if _, ok := d.idents[decl.ID]; ok {
			return errors.Errorf("duplicate identifier declaration %d", decl.ID)
		}

		ty, err := d.decodeType(decl.Type)
		if err != nil {
			return errors.Wrapf(err, "identifier `%s`", decl.Name)
		}

		var id *Ident
		switch decl.Kind {
		case "", "regular":
			id = d.gen.Fresh(decl.Name, ty)
		case "mutable":
			id = d.gen.FreshMut(decl.Name, ty)
		case "qualified":
			id = d.gen.FreshQualified(decl.Name, ty)
		case "local_method":
			id = d.gen.FreshLocalMethod(decl.Name, ty)
		default:
			return errors.Errorf("identifier `%s` has unknown kind `%s`", decl.Name, decl.Kind)
		}

		d.idents[decl.ID] = id
	}

	return nil
}

// registerMethods installs the dot-method table into the environment.
func (d *decoder) registerMethods(decls []rawMethodDecl) error {
	for _, decl := range decls {
		id, err := d.lookupIdent(decl.ID)
		if err != nil {
			return errors.Wrapf(err, "method `%s::%s`", decl.TypeName, decl.Name)
		}

		ty, err := d.decodeType(decl.Type)
		if err != nil {
			return errors.Wrapf(err, "method `%s::%s`", decl.TypeName, decl.Name)
		}

		fnTy, ok := ty.(*FuncType)
		if !ok {
			return errors.Errorf("method `%s::%s` is not a function type", decl.TypeName, decl.Name)
		}

		in, err := decodeIntrinsic(decl.Intrinsic)
		if err != nil {
			return errors.Wrapf(err, "method `%s::%s`", decl.TypeName, decl.Name)
		}

		d.env.AddMethod(decl.TypeName, &MethodInfo{Name: decl.Name, Id: id, Ty: fnTy, Intrinsic: in})
	}

	return nil
}

// registerIntrinsics attaches intrinsic tags to top-level identifiers.
func (d *decoder) registerIntrinsics(decls []rawIntrinsicDecl) error {
	for _, decl := range decls {
		id, err := d.lookupIdent(decl.ID)
		if err != nil {
			return err
		}

		in, err := decodeIntrinsic(decl.Intrinsic)
		if err != nil {
			return errors.Wrapf(err, "identifier `%s`", id.Name)
		}

		d.env.SetIntrinsic(id, in)
	}

	return nil
}

func (d *decoder) lookupIdent(serial int) (*Ident, error) {
	id, ok := d.idents[serial]
	if !ok {
		return nil, errors.Errorf("undeclared identifier %d", serial)
	}

	return id, nil
}

// -----------------------------------------------------------------------------

type rawType struct {
	Kind string `json:"kind"`
	Name string `json:"name"`

	Elem   json.RawMessage   `json:"elem"`
	Elems  []json.RawMessage `json:"elems"`
	Params []json.RawMessage `json:"params"`
	Ret    json.RawMessage   `json:"ret"`
	Ok     json.RawMessage   `json:"ok"`
	Err    json.RawMessage   `json:"err"`

	Enum   string `json:"enum"`
	Constr string `json:"constr"`
	Async  bool   `json:"async"`
}

var primTypesByName = map[string]PrimType{
	"Unit":   PrimUnit,
	"Bool":   PrimBool,
	"Char":   PrimChar,
	"Int":    PrimInt,
	"Int64":  PrimInt64,
	"Double": PrimDouble,
	"String": PrimString,
	"Bytes":  PrimBytes,
}

func (d *decoder) decodeType(msg json.RawMessage) (DataType, error) {
	if len(msg) == 0 {
		return nil, errors.New("missing type annotation")
	}

	var raw rawType
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed type")
	}

	switch raw.Kind {
	case "prim":
		pt, ok := primTypesByName[raw.Name]
		if !ok {
			return nil, errors.Errorf("unknown primitive type `%s`", raw.Name)
		}

		return pt, nil
	case "func":
		params, err := d.decodeTypes(raw.Params)
		if err != nil {
			return nil, err
		}

		ret, err := d.decodeType(raw.Ret)
		if err != nil {
			return nil, err
		}

		return &FuncType{Params: params, Ret: ret, IsAsync: raw.Async}, nil
	case "tuple":
		elems, err := d.decodeTypes(raw.Elems)
		if err != nil {
			return nil, err
		}

		return &TupleType{Elems: elems}, nil
	case "fixed_array":
		elem, err := d.decodeType(raw.Elem)
		if err != nil {
			return nil, err
		}

		return &FixedArrayType{Elem: elem}, nil
	case "array":
		elem, err := d.decodeType(raw.Elem)
		if err != nil {
			return nil, err
		}

		return &ArrayType{Elem: elem}, nil
	case "array_view":
		elem, err := d.decodeType(raw.Elem)
		if err != nil {
			return nil, err
		}

		return &ArrayViewType{Elem: elem}, nil
	case "bytes_view":
		return BytesViewType{}, nil
	case "iter":
		elem, err := d.decodeType(raw.Elem)
		if err != nil {
			return nil, err
		}

		return &IterType{Elem: elem}, nil
	case "option":
		elem, err := d.decodeType(raw.Elem)
		if err != nil {
			return nil, err
		}

		return &OptionType{Elem: elem}, nil
	case "result":
		ok, err := d.decodeType(raw.Ok)
		if err != nil {
			return nil, err
		}

		errTy, err := d.decodeType(raw.Err)
		if err != nil {
			return nil, err
		}

		return &ResultType{Ok: ok, Err: errTy}, nil
	case "named":
		ty, ok := d.named[raw.Name]
		if !ok {
			return nil, errors.Errorf("undeclared type `%s`", raw.Name)
		}

		return ty, nil
	case "constr":
		constr, err := d.lookupConstructor(raw.Enum, raw.Constr)
		if err != nil {
			return nil, err
		}

		return &ConstrType{Constr: constr}, nil
	default:
		return nil, errors.Errorf("unknown type kind `%s`", raw.Kind)
	}
}

func (d *decoder) decodeTypes(msgs []json.RawMessage) ([]DataType, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	out := make([]DataType, len(msgs))
	for i, msg := range msgs {
		ty, err := d.decodeType(msg)
		if err != nil {
			return nil, err
		}

		out[i] = ty
	}

	return out, nil
}

func (d *decoder) lookupConstructor(enumName, constrName string) (*Constructor, error) {
	enum, ok := d.named[enumName].(*EnumType)
	if !ok {
		return nil, errors.Errorf("`%s` is not a declared enum", enumName)
	}

	for _, constr := range enum.Constructors {
		if constr.Name == constrName {
			return constr, nil
		}
	}

	return nil, errors.Errorf("enum `%s` has no constructor `%s`", enumName, constrName)
}

// -----------------------------------------------------------------------------

type rawItem struct {
	Kind string `json:"kind"`

	Name   int               `json:"name"`
	Value  json.RawMessage   `json:"value"`
	Params []int             `json:"params"`
	Body   json.RawMessage   `json:"body"`
	Type   json.RawMessage   `json:"type"`
	Export string            `json:"export"`
	Main   bool              `json:"main"`
	Async  bool              `json:"async"`
	Expr   json.RawMessage   `json:"expr"`
	Func   string            `json:"func_name"`
	PTypes []json.RawMessage `json:"param_types"`
	Ret    json.RawMessage   `json:"ret"`
}

func (d *decoder) decodeItem(msg json.RawMessage) (TopItem, error) {
	var raw rawItem
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed item")
	}

	switch raw.Kind {
	case "let":
		name, err := d.lookupIdent(raw.Name)
		if err != nil {
			return nil, err
		}

		value, err := d.decodeExpr(raw.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "top-level `%s`", name.Name)
		}

		return &TopLet{Name: name, Value: value}, nil
	case "fn":
		name, err := d.lookupIdent(raw.Name)
		if err != nil {
			return nil, err
		}

		fn, err := d.decodeFunc(raw.Params, raw.Body, raw.Type, raw.Async)
		if err != nil {
			return nil, errors.Wrapf(err, "function `%s`", name.Name)
		}

		return &TopFn{Name: name, Fn: fn, Export: raw.Export, IsMain: raw.Main}, nil
	case "expr":
		expr, err := d.decodeExpr(raw.Expr)
		if err != nil {
			return nil, errors.Wrap(err, "top-level expression")
		}

		return &TopExpr{Expr: expr}, nil
	case "stub":
		name, err := d.lookupIdent(raw.Name)
		if err != nil {
			return nil, err
		}

		params, err := d.decodeTypes(raw.PTypes)
		if err != nil {
			return nil, errors.Wrapf(err, "stub `%s`", name.Name)
		}

		ret, err := d.decodeType(raw.Ret)
		if err != nil {
			return nil, errors.Wrapf(err, "stub `%s`", name.Name)
		}

		return &TopStub{Name: name, FuncName: raw.Func, ParamsTy: params, Ret: ret}, nil
	default:
		return nil, errors.Errorf("unknown item kind `%s`", raw.Kind)
	}
}

func (d *decoder) decodeFunc(params []int, body, ty json.RawMessage, isAsync bool) (*Func, error) {
	paramIds := make([]*Ident, len(params))
	for i, serial := range params {
		id, err := d.lookupIdent(serial)
		if err != nil {
			return nil, err
		}

		paramIds[i] = id
	}

	fnTyRaw, err := d.decodeType(ty)
	if err != nil {
		return nil, err
	}

	fnTy, ok := fnTyRaw.(*FuncType)
	if !ok {
		return nil, errors.New("function literal annotated with a non-function type")
	}

	bodyExpr, err := d.decodeExpr(body)
	if err != nil {
		return nil, err
	}

	return &Func{Params: paramIds, Body: bodyExpr, IsAsync: isAsync, Ty: fnTy}, nil
}

// -----------------------------------------------------------------------------

type rawExpr struct {
	Kind string          `json:"kind"`
	Type json.RawMessage `json:"type"`

	Value json.RawMessage `json:"value"`
	Id    int             `json:"id"`
	Prim  string          `json:"prim"`

	Args  []json.RawMessage `json:"args"`
	Elems []json.RawMessage `json:"elems"`
	Exprs []json.RawMessage `json:"exprs"`

	Lhs json.RawMessage `json:"lhs"`
	Rhs json.RawMessage `json:"rhs"`

	Name    int             `json:"name"`
	Body    json.RawMessage `json:"body"`
	Rec     bool            `json:"rec"`
	IsRaw   bool            `json:"raw"`
	Params  []int           `json:"params"`
	FnTy    json.RawMessage `json:"fn_type"`
	FnBody  json.RawMessage `json:"fn_body"`
	Async   bool            `json:"async"`
	Callee  int             `json:"callee"`
	Apply   string          `json:"apply"`
	CallTy  json.RawMessage `json:"call_type"`
	Record  json.RawMessage `json:"record"`
	Index   int             `json:"index"`
	Field   string          `json:"field"`
	Enum    string          `json:"enum"`
	Constr  string          `json:"constr"`
	Last    json.RawMessage `json:"last"`
	Cond    json.RawMessage `json:"cond"`
	Then    json.RawMessage `json:"then"`
	Else    json.RawMessage `json:"else"`
	Obj     json.RawMessage `json:"obj"`
	Default json.RawMessage `json:"default"`
	Label   int             `json:"label"`
	Arg     json.RawMessage `json:"arg"`
	IsError bool            `json:"is_error"`
	RetTy   json.RawMessage `json:"return_type"`
	Handle  string          `json:"handle"`
	Join    int             `json:"join"`
	ErrTy   json.RawMessage `json:"err_type"`
	ObjTy   json.RawMessage `json:"obj_type"`

	Bindings []struct {
		Name   int             `json:"name"`
		Params []int           `json:"params"`
		Body   json.RawMessage `json:"body"`
		Type   json.RawMessage `json:"type"`
		Async  bool            `json:"async"`
	} `json:"bindings"`

	Updates []struct {
		Index int             `json:"index"`
		Value json.RawMessage `json:"value"`
	} `json:"updates"`

	Cases []struct {
		Enum   string          `json:"enum"`
		Constr string          `json:"constr"`
		Binder int             `json:"binder"`
		Value  json.RawMessage `json:"value"`
		Body   json.RawMessage `json:"body"`
	} `json:"cases"`
}

func (d *decoder) decodeExpr(msg json.RawMessage) (Expr, error) {
	if len(msg) == 0 {
		return nil, errors.New("missing expression")
	}

	var raw rawExpr
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed expression")
	}

	ty, err := d.decodeType(raw.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "`%s` node", raw.Kind)
	}

	base := NewExprBase(ty, nil)

	switch raw.Kind {
	case "const":
		value, err := decodeConstant(raw.Value)
		if err != nil {
			return nil, err
		}

		return &Const{ExprBase: base, Value: value}, nil
	case "var":
		id, err := d.lookupIdent(raw.Id)
		if err != nil {
			return nil, err
		}

		return &Var{ExprBase: base, Id: id}, nil
	case "prim":
		prim, err := decodePrim(raw.Prim)
		if err != nil {
			return nil, err
		}

		args, err := d.decodeExprs(raw.Args)
		if err != nil {
			return nil, err
		}

		return &PrimApply{ExprBase: base, Prim: prim, Args: args}, nil
	case "and", "or":
		lhs, err := d.decodeExpr(raw.Lhs)
		if err != nil {
			return nil, err
		}

		rhs, err := d.decodeExpr(raw.Rhs)
		if err != nil {
			return nil, err
		}

		if raw.Kind == "and" {
			return &And{ExprBase: base, Lhs: lhs, Rhs: rhs}, nil
		}

		return &Or{ExprBase: base, Lhs: lhs, Rhs: rhs}, nil
	case "let":
		name, err := d.lookupIdent(raw.Name)
		if err != nil {
			return nil, err
		}

		value, err := d.decodeExpr(raw.Value)
		if err != nil {
			return nil, err
		}

		body, err := d.decodeExpr(raw.Body)
		if err != nil {
			return nil, err
		}

		return &Let{ExprBase: base, Name: name, Value: value, Body: body}, nil
	case "letfn":
		name, err := d.lookupIdent(raw.Name)
		if err != nil {
			return nil, err
		}

		fn, err := d.decodeFunc(raw.Params, raw.FnBody, raw.FnTy, raw.Async)
		if err != nil {
			return nil, errors.Wrapf(err, "local function `%s`", name.Name)
		}

		body, err := d.decodeExpr(raw.Body)
		if err != nil {
			return nil, err
		}

		return &LetFn{ExprBase: base, Name: name, Fn: fn, Body: body, Rec: raw.Rec}, nil
	case "letrec":
		bindings := make([]LetRecBinding, len(raw.Bindings))
		for i, b := range raw.Bindings {
			name, err := d.lookupIdent(b.Name)
			if err != nil {
				return nil, err
			}

			fn, err := d.decodeFunc(b.Params, b.Body, b.Type, b.Async)
			if err != nil {
				return nil, errors.Wrapf(err, "recursive binding `%s`", name.Name)
			}

			bindings[i] = LetRecBinding{Name: name, Fn: fn}
		}

		body, err := d.decodeExpr(raw.Body)
		if err != nil {
			return nil, err
		}

		return &LetRec{ExprBase: base, Bindings: bindings, Body: body}, nil
	case "function":
		fn, err := d.decodeFunc(raw.Params, raw.FnBody, raw.FnTy, raw.Async)
		if err != nil {
			return nil, err
		}

		return &Function{ExprBase: base, Fn: fn, IsRaw: raw.IsRaw}, nil
	case "apply":
		callee, err := d.lookupIdent(raw.Callee)
		if err != nil {
			return nil, err
		}

		args, err := d.decodeExprs(raw.Args)
		if err != nil {
			return nil, err
		}

		kind, err := d.decodeApplyKind(raw.Apply, raw.CallTy)
		if err != nil {
			return nil, errors.Wrapf(err, "call of `%s`", callee.Name)
		}

		return &Apply{ExprBase: base, Callee: callee, Args: args, Kind: kind}, nil
	case "tuple":
		elems, err := d.decodeExprs(raw.Elems)
		if err != nil {
			return nil, err
		}

		return &Tuple{ExprBase: base, Elems: elems}, nil
	case "record":
		fields, err := d.decodeExprs(raw.Args)
		if err != nil {
			return nil, err
		}

		return &Record{ExprBase: base, Fields: fields}, nil
	case "record_update":
		record, err := d.decodeExpr(raw.Record)
		if err != nil {
			return nil, err
		}

		updates := make([]FieldUpdate, len(raw.Updates))
		for i, u := range raw.Updates {
			value, err := d.decodeExpr(u.Value)
			if err != nil {
				return nil, err
			}

			updates[i] = FieldUpdate{Index: u.Index, Value: value}
		}

		return &RecordUpdate{ExprBase: base, Record: record, Updates: updates}, nil
	case "field_access":
		record, err := d.decodeExpr(raw.Record)
		if err != nil {
			return nil, err
		}

		return &FieldAccess{ExprBase: base, Record: record, Index: raw.Index, Name: raw.Field}, nil
	case "mutate":
		record, err := d.decodeExpr(raw.Record)
		if err != nil {
			return nil, err
		}

		value, err := d.decodeExpr(raw.Value)
		if err != nil {
			return nil, err
		}

		return &Mutate{ExprBase: base, Record: record, Index: raw.Index, Value: value}, nil
	case "constr":
		constr, err := d.lookupConstructor(raw.Enum, raw.Constr)
		if err != nil {
			return nil, err
		}

		args, err := d.decodeExprs(raw.Args)
		if err != nil {
			return nil, err
		}

		return &Constr{ExprBase: base, Constructor: constr, Args: args}, nil
	case "array_lit":
		elems, err := d.decodeExprs(raw.Elems)
		if err != nil {
			return nil, err
		}

		return &ArrayLit{ExprBase: base, Elems: elems}, nil
	case "assign":
		id, err := d.lookupIdent(raw.Id)
		if err != nil {
			return nil, err
		}

		value, err := d.decodeExpr(raw.Value)
		if err != nil {
			return nil, err
		}

		return &Assign{ExprBase: base, Id: id, Value: value}, nil
	case "sequence":
		exprs, err := d.decodeExprs(raw.Exprs)
		if err != nil {
			return nil, err
		}

		last, err := d.decodeExpr(raw.Last)
		if err != nil {
			return nil, err
		}

		return &Sequence{ExprBase: base, Exprs: exprs, Last: last}, nil
	case "if":
		cond, err := d.decodeExpr(raw.Cond)
		if err != nil {
			return nil, err
		}

		then, err := d.decodeExpr(raw.Then)
		if err != nil {
			return nil, err
		}

		els, err := d.decodeExpr(raw.Else)
		if err != nil {
			return nil, err
		}

		return &If{ExprBase: base, Cond: cond, Then: then, Else: els}, nil
	case "switch_constr":
		obj, err := d.decodeExpr(raw.Obj)
		if err != nil {
			return nil, err
		}

		cases := make([]ConstrCase, len(raw.Cases))
		for i, c := range raw.Cases {
			constr, err := d.lookupConstructor(c.Enum, c.Constr)
			if err != nil {
				return nil, err
			}

			var binder *Ident
			if c.Binder != 0 {
				if binder, err = d.lookupIdent(c.Binder); err != nil {
					return nil, err
				}
			}

			body, err := d.decodeExpr(c.Body)
			if err != nil {
				return nil, err
			}

			cases[i] = ConstrCase{Constructor: constr, Binder: binder, Body: body}
		}

		deflt, err := d.decodeOptExpr(raw.Default)
		if err != nil {
			return nil, err
		}

		return &SwitchConstr{ExprBase: base, Obj: obj, Cases: cases, Default: deflt}, nil
	case "switch_constant":
		obj, err := d.decodeExpr(raw.Obj)
		if err != nil {
			return nil, err
		}

		cases := make([]ConstantCase, len(raw.Cases))
		for i, c := range raw.Cases {
			value, err := decodeConstant(c.Value)
			if err != nil {
				return nil, err
			}

			body, err := d.decodeExpr(c.Body)
			if err != nil {
				return nil, err
			}

			cases[i] = ConstantCase{Value: value, Body: body}
		}

		deflt, err := d.decodeOptExpr(raw.Default)
		if err != nil {
			return nil, err
		}

		return &SwitchConstant{ExprBase: base, Obj: obj, Cases: cases, Default: deflt}, nil
	case "loop":
		params := make([]*Ident, len(raw.Params))
		for i, serial := range raw.Params {
			if params[i], err = d.lookupIdent(serial); err != nil {
				return nil, err
			}
		}

		args, err := d.decodeExprs(raw.Args)
		if err != nil {
			return nil, err
		}

		body, err := d.decodeExpr(raw.Body)
		if err != nil {
			return nil, err
		}

		label, err := d.lookupIdent(raw.Label)
		if err != nil {
			return nil, err
		}

		return &Loop{ExprBase: base, Params: params, Args: args, Body: body, Label: label}, nil
	case "break":
		arg, err := d.decodeOptExpr(raw.Arg)
		if err != nil {
			return nil, err
		}

		label, err := d.lookupIdent(raw.Label)
		if err != nil {
			return nil, err
		}

		return &Break{ExprBase: base, Arg: arg, Label: label}, nil
	case "continue":
		args, err := d.decodeExprs(raw.Args)
		if err != nil {
			return nil, err
		}

		label, err := d.lookupIdent(raw.Label)
		if err != nil {
			return nil, err
		}

		return &Continue{ExprBase: base, Args: args, Label: label}, nil
	case "return":
		value, err := d.decodeExpr(raw.Value)
		if err != nil {
			return nil, err
		}

		retTy, err := d.decodeType(raw.RetTy)
		if err != nil {
			return nil, err
		}

		return &Return{ExprBase: base, Value: value, IsError: raw.IsError, ReturnTy: retTy}, nil
	case "handle_error":
		obj, err := d.decodeExpr(raw.Obj)
		if err != nil {
			return nil, err
		}

		errTy, err := d.decodeType(raw.ErrTy)
		if err != nil {
			return nil, err
		}

		kind, err := d.decodeHandleKind(raw.Handle, raw.Join)
		if err != nil {
			return nil, err
		}

		return &HandleError{ExprBase: base, Obj: obj, Kind: kind, ErrTy: errTy}, nil
	case "make_object":
		obj, err := d.decodeExpr(raw.Obj)
		if err != nil {
			return nil, err
		}

		objTyRaw, err := d.decodeType(raw.ObjTy)
		if err != nil {
			return nil, err
		}

		objTy, ok := objTyRaw.(*ObjectType)
		if !ok {
			return nil, errors.New("make_object target is not a trait type")
		}

		return &MakeObject{ExprBase: base, Obj: obj, ObjType: objTy}, nil
	default:
		return nil, errors.Errorf("unknown expression kind `%s`", raw.Kind)
	}
}

func (d *decoder) decodeExprs(msgs []json.RawMessage) ([]Expr, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	out := make([]Expr, len(msgs))
	for i, msg := range msgs {
		e, err := d.decodeExpr(msg)
		if err != nil {
			return nil, err
		}

		out[i] = e
	}

	return out, nil
}

func (d *decoder) decodeOptExpr(msg json.RawMessage) (Expr, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}

	return d.decodeExpr(msg)
}

func (d *decoder) decodeApplyKind(kind string, callTy json.RawMessage) (ApplyKind, error) {
	switch kind {
	case "", "normal":
		ty, err := d.decodeType(callTy)
		if err != nil {
			return nil, err
		}

		fnTy, ok := ty.(*FuncType)
		if !ok {
			return nil, errors.New("call annotated with a non-function type")
		}

		return ApplyNormal{FuncTy: fnTy}, nil
	case "async":
		return ApplyAsync{}, nil
	case "join":
		return ApplyJoin{}, nil
	default:
		return nil, errors.Errorf("unknown apply kind `%s`", kind)
	}
}

func (d *decoder) decodeHandleKind(kind string, join int) (HandleKind, error) {
	switch kind {
	case "to_result":
		return HandleToResult{}, nil
	case "join_apply":
		id, err := d.lookupIdent(join)
		if err != nil {
			return nil, err
		}

		return HandleJoinApply{Join: id}, nil
	case "return_err":
		return HandleReturnErr{}, nil
	default:
		return nil, errors.Errorf("unknown handle kind `%s`", kind)
	}
}

// -----------------------------------------------------------------------------

type rawConstant struct {
	Kind  string  `json:"kind"`
	Int   int64   `json:"int"`
	Float float64 `json:"float"`
	Str   string  `json:"str"`
	Bool  bool    `json:"bool"`
}

func decodeConstant(msg json.RawMessage) (*Constant, error) {
	if len(msg) == 0 {
		return nil, errors.New("missing constant payload")
	}

	var raw rawConstant
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, errors.Wrap(err, "malformed constant")
	}

	switch raw.Kind {
	case "unit":
		return UnitConst, nil
	case "bool":
		return NewBoolConst(raw.Bool), nil
	case "char":
		return NewCharConst(rune(raw.Int)), nil
	case "int":
		return NewIntConst(raw.Int), nil
	case "int64":
		return NewInt64Const(raw.Int), nil
	case "double":
		return NewDoubleConst(raw.Float), nil
	case "string":
		return NewStringConst(raw.Str), nil
	case "bytes":
		return &Constant{Kind: CBytes, StrVal: raw.Str}, nil
	default:
		return nil, errors.Errorf("unknown constant kind `%s`", raw.Kind)
	}
}

var primsByName = buildPrimIndex()

func buildPrimIndex() map[string]Prim {
	index := make(map[string]Prim, len(primNames))
	for i, name := range primNames {
		index[name] = Prim(i)
	}

	return index
}

func decodePrim(name string) (Prim, error) {
	prim, ok := primsByName[name]
	if !ok {
		return 0, errors.Errorf("unknown primitive operation `%s`", name)
	}

	return prim, nil
}

var intrinsicsByName = buildIntrinsicIndex()

func buildIntrinsicIndex() map[string]Intrinsic {
	index := make(map[string]Intrinsic, len(intrinsicNames))
	for i, name := range intrinsicNames {
		index[name] = Intrinsic(i)
	}

	return index
}

func decodeIntrinsic(name string) (Intrinsic, error) {
	if name == "" {
		return IntrinsicNone, nil
	}

	in, ok := intrinsicsByName[name]
	if !ok {
		return IntrinsicNone, errors.Errorf("unknown intrinsic `%s`", name)
	}

	return in, nil
}
