package config

import (
	"strings"

	"github.com/pkg/errors"
)

// InternalParams holds the two parameter groups decoded from the internal
// parameter string.  The pre group applies before lowering, the post group
// after; both carry the same key set.
type InternalParams struct {
	Pre, Post map[string]string
}

// recognized is the set of keys accepted in an internal parameter string.
var recognized = map[string]bool{
	"plain_wat":  true,
	"dedup_wasm": true,
}

// ParseInternalParams parses a parameter string of the form `k=v,k=v|k=v`.
// The `|` separator splits the string into the pre and post groups; within a
// group, entries are comma-separated `key=value` pairs.  Unknown keys are an
// error.  An empty string yields two empty groups.
func ParseInternalParams(s string) (*InternalParams, error) {
	params := &InternalParams{
		Pre:  make(map[string]string),
		Post: make(map[string]string),
	}

	if s == "" {
		return params, nil
	}

	pre, post, found := strings.Cut(s, "|")
	if !found {
		return nil, errors.Errorf("missing `|` separator in internal params: `%s`", s)
	}

	if err := parseGroup(pre, params.Pre); err != nil {
		return nil, err
	}

	if err := parseGroup(post, params.Post); err != nil {
		return nil, err
	}

	return params, nil
}

// parseGroup parses one comma-separated `key=value` group into dst.
func parseGroup(group string, dst map[string]string) error {
	if group == "" {
		return nil
	}

	for _, entry := range strings.Split(group, ",") {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			return errors.Errorf("missing `=` separator in internal params entry: `%s`", entry)
		}

		if !recognized[key] {
			return errors.Errorf("unknown internal params key: `%s`", key)
		}

		dst[key] = value
	}

	return nil
}

// Apply folds a decoded parameter group into the configuration.  Values other
// than `0` and `1` are an error.
func (bc *BasicConfig) Apply(group map[string]string) error {
	for key, value := range group {
		var on bool
		switch value {
		case "0":
			on = false
		case "1":
			on = true
		default:
			return errors.Errorf("invalid internal params value for `%s`: `%s`", key, value)
		}

		switch key {
		case "plain_wat":
			bc.PlainWat = on
		case "dedup_wasm":
			bc.DedupWasm = on
		}
	}

	return nil
}
