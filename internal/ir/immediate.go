package ir

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// IntValue is an integer immediate of a fixed bit width.
type IntValue struct {
	Width int
	Value *big.Int
}

// NewIntValue returns a width-bit immediate holding v.
func NewIntValue(width int, v int64) IntValue {
	return IntValue{Width: width, Value: big.NewInt(v)}
}

// Type returns the integer type of the immediate.
func (v IntValue) Type() *Type { return IntType(v.Width) }

// Equal compares width and value.
func (v IntValue) Equal(u IntValue) bool {
	return v.Width == u.Width && v.val().Cmp(u.val()) == 0
}

func (v IntValue) val() *big.Int {
	if v.Value == nil {
		return new(big.Int)
	}
	return v.Value
}

func (v IntValue) String() string {
	return fmt.Sprintf("i%d %s", v.Width, v.val().String())
}

// TimeValue is a physical time plus delta and epsilon steps.
type TimeValue struct {
	Time    *big.Rat // seconds
	Delta   int64
	Epsilon int64
}

// NewTimeValue returns a time immediate of num/den seconds.
func NewTimeValue(num, den int64, delta, epsilon int64) TimeValue {
	return TimeValue{Time: big.NewRat(num, den), Delta: delta, Epsilon: epsilon}
}

// Equal compares all three components.
func (v TimeValue) Equal(u TimeValue) bool {
	return v.rat().Cmp(u.rat()) == 0 && v.Delta == u.Delta && v.Epsilon == u.Epsilon
}

func (v TimeValue) rat() *big.Rat {
	if v.Time == nil {
		return new(big.Rat)
	}
	return v.Time
}

func (v TimeValue) String() string {
	return fmt.Sprintf("%ss %dd %de", v.rat().RatString(), v.Delta, v.Epsilon)
}

// ExtUnit names a unit referenced by call or inst, with its signature.
type ExtUnit struct {
	Name string
	Sig  Signature
}

// Payload kinds. A payload is the canonical JSON form of an immediate; it is
// how immediates travel through the term algebra without being decomposed.
const (
	PayloadInt  = "int"
	PayloadTime = "time"
	PayloadExt  = "ext"
)

// IntPayload serializes an int immediate.
func IntPayload(v IntValue) (string, error) {
	b, err := MarshalCanonical(map[string]any{
		"kind":  PayloadInt,
		"width": v.Width,
		"value": v.val().String(),
	})
	if err != nil {
		return "", fmt.Errorf("int payload: %w", err)
	}
	return string(b), nil
}

// TimePayload serializes a time immediate.
func TimePayload(v TimeValue) (string, error) {
	b, err := MarshalCanonical(map[string]any{
		"kind":    PayloadTime,
		"time":    v.rat().RatString(),
		"delta":   v.Delta,
		"epsilon": v.Epsilon,
	})
	if err != nil {
		return "", fmt.Errorf("time payload: %w", err)
	}
	return string(b), nil
}

// ExtPayload serializes an external unit reference.
func ExtPayload(ext ExtUnit) (string, error) {
	ins := make([]any, len(ext.Sig.Inputs))
	for i, t := range ext.Sig.Inputs {
		ins[i] = t.String()
	}
	outs := make([]any, len(ext.Sig.Outputs))
	for i, t := range ext.Sig.Outputs {
		outs[i] = t.String()
	}
	obj := map[string]any{
		"kind":    PayloadExt,
		"name":    ext.Name,
		"inputs":  ins,
		"outputs": outs,
		"return":  ext.Sig.Return.String(),
	}
	b, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ext payload: %w", err)
	}
	return string(b), nil
}

type payloadJSON struct {
	Kind    string   `json:"kind"`
	Width   int      `json:"width"`
	Value   string   `json:"value"`
	Time    string   `json:"time"`
	Delta   int64    `json:"delta"`
	Epsilon int64    `json:"epsilon"`
	Name    string   `json:"name"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
	Return  string   `json:"return"`
}

// Payload is a decoded immediate: exactly one of the fields is set,
// according to Kind.
type Payload struct {
	Kind string
	Int  IntValue
	Time TimeValue
	Ext  ExtUnit
}

// ParsePayload decodes a payload produced by IntPayload, TimePayload or
// ExtPayload.
func ParsePayload(s string) (Payload, error) {
	var raw payloadJSON
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Payload{}, fmt.Errorf("parse payload: %w", err)
	}
	switch raw.Kind {
	case PayloadInt:
		v, ok := new(big.Int).SetString(raw.Value, 10)
		if !ok {
			return Payload{}, fmt.Errorf("parse payload: bad integer %q", raw.Value)
		}
		if raw.Width <= 0 {
			return Payload{}, fmt.Errorf("parse payload: bad width %d", raw.Width)
		}
		return Payload{Kind: PayloadInt, Int: IntValue{Width: raw.Width, Value: v}}, nil

	case PayloadTime:
		r, ok := new(big.Rat).SetString(raw.Time)
		if !ok {
			return Payload{}, fmt.Errorf("parse payload: bad time %q", raw.Time)
		}
		return Payload{Kind: PayloadTime, Time: TimeValue{Time: r, Delta: raw.Delta, Epsilon: raw.Epsilon}}, nil

	case PayloadExt:
		sig := Signature{Return: VoidType}
		for _, in := range raw.Inputs {
			t, err := ParseType(in)
			if err != nil {
				return Payload{}, fmt.Errorf("parse payload: %w", err)
			}
			sig.Inputs = append(sig.Inputs, t)
		}
		for _, out := range raw.Outputs {
			t, err := ParseType(out)
			if err != nil {
				return Payload{}, fmt.Errorf("parse payload: %w", err)
			}
			sig.Outputs = append(sig.Outputs, t)
		}
		if raw.Return != "" {
			t, err := ParseType(raw.Return)
			if err != nil {
				return Payload{}, fmt.Errorf("parse payload: %w", err)
			}
			sig.Return = t
		}
		return Payload{Kind: PayloadExt, Ext: ExtUnit{Name: raw.Name, Sig: sig}}, nil
	}
	return Payload{}, fmt.Errorf("parse payload: unknown kind %q", raw.Kind)
}
