package store

import (
	"encoding/json"
	"fmt"

	"github.com/eqhdl/eqhdl/internal/ir"
)

// marshalBinding converts a rule binding to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so equal bindings store byte-identically.
func marshalBinding(b map[string]int64) (string, error) {
	obj := make(map[string]any, len(b))
	for k, v := range b {
		obj[k] = v
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal binding: %w", err)
	}
	return string(data), nil
}

// unmarshalBinding parses canonical JSON TEXT back into a binding.
func unmarshalBinding(data string) (map[string]int64, error) {
	out := map[string]int64{}
	if data == "" || data == "{}" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal binding: %w", err)
	}
	return out, nil
}

// BindingHash identifies a rule match by its variable binding. Skolem ids
// and derivations are keyed by it.
func BindingHash(b map[string]int64) (string, error) {
	data, err := marshalBinding(b)
	if err != nil {
		return "", err
	}
	return ir.HashWithDomain(ir.DomainGate, []byte(data)), nil
}
