package mcore

import "testing"

const sampleProgram = `{
	"types": [
		{
			"name": "Point",
			"kind": "struct",
			"fields": [
				{"name": "x", "type": {"kind": "prim", "name": "Int"}},
				{"name": "y", "type": {"kind": "prim", "name": "Int"}, "mutable": true}
			]
		},
		{
			"name": "Shape",
			"kind": "enum",
			"constructors": [
				{"name": "Dot", "args": []},
				{"name": "At", "args": [{"kind": "named", "name": "Point"}]}
			]
		}
	],
	"idents": [
		{"id": 1, "name": "origin", "kind": "qualified", "type": {"kind": "named", "name": "Point"}},
		{"id": 2, "name": "shift", "kind": "qualified", "type": {
			"kind": "func",
			"params": [{"kind": "named", "name": "Point"}],
			"ret": {"kind": "named", "name": "Point"}
		}},
		{"id": 3, "name": "p", "type": {"kind": "named", "name": "Point"}},
		{"id": 4, "name": "host_log", "kind": "qualified", "type": {
			"kind": "func",
			"params": [{"kind": "prim", "name": "String"}],
			"ret": {"kind": "prim", "name": "Unit"}
		}},
		{"id": 5, "name": "Iter::map", "kind": "qualified", "type": {
			"kind": "func",
			"params": [
				{"kind": "iter", "elem": {"kind": "prim", "name": "Int"}},
				{"kind": "func", "params": [{"kind": "prim", "name": "Int"}], "ret": {"kind": "prim", "name": "Int"}}
			],
			"ret": {"kind": "iter", "elem": {"kind": "prim", "name": "Int"}}
		}}
	],
	"intrinsics": [
		{"id": 5, "intrinsic": "Iter::map"}
	],
	"items": [
		{
			"kind": "let",
			"name": 1,
			"value": {
				"kind": "record",
				"type": {"kind": "named", "name": "Point"},
				"args": [
					{"kind": "const", "type": {"kind": "prim", "name": "Int"}, "value": {"kind": "int", "int": 0}},
					{"kind": "const", "type": {"kind": "prim", "name": "Int"}, "value": {"kind": "int", "int": 0}}
				]
			}
		},
		{
			"kind": "fn",
			"name": 2,
			"params": [3],
			"type": {
				"kind": "func",
				"params": [{"kind": "named", "name": "Point"}],
				"ret": {"kind": "named", "name": "Point"}
			},
			"body": {"kind": "var", "type": {"kind": "named", "name": "Point"}, "id": 3}
		},
		{
			"kind": "stub",
			"name": 4,
			"func_name": "host_log",
			"param_types": [{"kind": "prim", "name": "String"}],
			"ret": {"kind": "prim", "name": "Unit"}
		}
	]
}`

func TestDecodeSampleProgram(t *testing.T) {
	decoded, err := DecodeProgram([]byte(sampleProgram))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(decoded.Prog.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(decoded.Prog.Items))
	}

	topLet, ok := decoded.Prog.Items[0].(*TopLet)
	if !ok {
		t.Fatalf("item 0 should be a top-level let")
	}

	point, ok := topLet.Name.Ty.(*StructType)
	if !ok || point.Name != "Point" {
		t.Fatalf("origin should be typed Point, got %v", topLet.Name.Ty)
	}

	if len(point.Fields) != 2 || !point.Fields[1].Mutable {
		t.Errorf("Point should have two fields with the second mutable")
	}

	record, ok := topLet.Value.(*Record)
	if !ok || len(record.Fields) != 2 {
		t.Fatalf("origin initializer should be a two-field record")
	}

	topFn, ok := decoded.Prog.Items[1].(*TopFn)
	if !ok {
		t.Fatalf("item 1 should be a top-level function")
	}

	if len(topFn.Fn.Params) != 1 || topFn.Fn.Params[0].Name != "p" {
		t.Errorf("shift should take parameter p")
	}

	body, ok := topFn.Fn.Body.(*Var)
	if !ok || body.Id != topFn.Fn.Params[0] {
		t.Errorf("shift body should reference its own parameter by identity")
	}

	stub, ok := decoded.Prog.Items[2].(*TopStub)
	if !ok || stub.FuncName != "host_log" {
		t.Fatalf("item 2 should be the host_log stub")
	}
}

func TestDecodeNominalIdentity(t *testing.T) {
	decoded, err := DecodeProgram([]byte(sampleProgram))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	topLet := decoded.Prog.Items[0].(*TopLet)
	topFn := decoded.Prog.Items[1].(*TopFn)

	// Every reference to a declared nominal type must resolve to the same
	// instance so pointer-compared types behave after decoding.
	if topLet.Name.Ty != topFn.Fn.Ty.Params[0] {
		t.Errorf("named type references should share one instance")
	}
}

func TestDecodeIntrinsicTable(t *testing.T) {
	decoded, err := DecodeProgram([]byte(sampleProgram))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	mapId, ok := decoded.Idents[5]
	if !ok || mapId.Name != "Iter::map" {
		t.Fatalf("Iter::map identifier not decoded")
	}

	if decoded.Env.IntrinsicOf(mapId) != IterMap {
		t.Errorf("Iter::map should carry the map intrinsic tag")
	}
}

func TestDecodeRejectsUnknownKinds(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"expr", `{"items": [{"kind": "expr", "expr": {"kind": "whatever", "type": {"kind": "prim", "name": "Int"}}}]}`},
		{"type", `{"idents": [{"id": 1, "name": "x", "type": {"kind": "mystery"}}]}`},
		{"item", `{"items": [{"kind": "mystery"}]}`},
		{"prim", `{"items": [{"kind": "expr", "expr": {"kind": "prim", "prim": "frobnicate", "type": {"kind": "prim", "name": "Int"}}}]}`},
	}

	for _, tc := range cases {
		if _, err := DecodeProgram([]byte(tc.input)); err == nil {
			t.Errorf("%s: expected a decode error", tc.name)
		}
	}
}
