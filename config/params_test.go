package config

import (
	"strings"
	"testing"
)

func TestParseInternalParamsEmpty(t *testing.T) {
	params, err := ParseInternalParams("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(params.Pre) != 0 || len(params.Post) != 0 {
		t.Fatalf("expected empty groups, got %v | %v", params.Pre, params.Post)
	}
}

func TestParseInternalParamsGroups(t *testing.T) {
	params, err := ParseInternalParams("plain_wat=1,dedup_wasm=0|dedup_wasm=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if params.Pre["plain_wat"] != "1" || params.Pre["dedup_wasm"] != "0" {
		t.Errorf("bad pre group: %v", params.Pre)
	}

	if params.Post["dedup_wasm"] != "1" {
		t.Errorf("bad post group: %v", params.Post)
	}
}

func TestParseInternalParamsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing pipe", "plain_wat=1", "missing `|` separator"},
		{"missing equals", "plain_wat|", "missing `=` separator"},
		{"offending substring", "plain_wat=1,oops|", "`oops`"},
		{"unknown key", "speed=9|", "unknown internal params key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInternalParams(tt.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestApplyValues(t *testing.T) {
	bc := DefaultConfig()

	if err := bc.Apply(map[string]string{"plain_wat": "1", "dedup_wasm": "0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !bc.PlainWat || bc.DedupWasm {
		t.Errorf("flags not applied: %+v", bc)
	}

	if err := bc.Apply(map[string]string{"plain_wat": "yes"}); err == nil {
		t.Error("expected error for non-boolean value")
	}
}
