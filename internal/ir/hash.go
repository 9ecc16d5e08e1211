package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with stored hashes.
const (
	DomainUnit = "eqhdl/unit/v1"
	DomainTerm = "eqhdl/term/v1"
	DomainGate = "eqhdl/gate/v1"
)

// HashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// UnitHash identifies a unit by content: kind, name, signature and the
// printed instruction stream. Two units that print identically hash equal.
func UnitHash(u *Unit) (string, error) {
	ins := make([]any, len(u.Sig.Inputs))
	for i, t := range u.Sig.Inputs {
		ins[i] = t.String()
	}
	outs := make([]any, len(u.Sig.Outputs))
	for i, t := range u.Sig.Outputs {
		outs[i] = t.String()
	}
	body := make([]any, len(u.Insts))
	for i, inst := range u.Insts {
		body[i] = u.FormatInst(inst)
	}
	canonical, err := MarshalCanonical(map[string]any{
		"kind":    u.Kind.String(),
		"name":    u.Name,
		"inputs":  ins,
		"outputs": outs,
		"return":  u.Sig.Return.String(),
		"body":    body,
	})
	if err != nil {
		return "", fmt.Errorf("UnitHash: failed to marshal: %w", err)
	}
	return HashWithDomain(DomainUnit, canonical), nil
}

// MustUnitHash is like UnitHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustUnitHash(u *Unit) string {
	h, err := UnitHash(u)
	if err != nil {
		panic(err)
	}
	return h
}
