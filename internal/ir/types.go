package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeKind discriminates Type.
type TypeKind uint8

const (
	VoidKind TypeKind = iota
	TimeKind
	IntKind
	SignalKind
	PointerKind
	ArrayKind
	StructKind
)

// Type is an IR type. Types are immutable once constructed; share freely.
type Type struct {
	Kind   TypeKind
	Width  int     // IntKind
	Len    int     // ArrayKind
	Elem   *Type   // SignalKind, PointerKind, ArrayKind
	Fields []*Type // StructKind
}

// Common types.
var (
	VoidType = &Type{Kind: VoidKind}
	TimeType = &Type{Kind: TimeKind}
)

// IntType returns the n-bit integer type.
func IntType(width int) *Type { return &Type{Kind: IntKind, Width: width} }

// SignalType returns the type of a signal carrying elem.
func SignalType(elem *Type) *Type { return &Type{Kind: SignalKind, Elem: elem} }

// PointerType returns the type of a pointer to elem.
func PointerType(elem *Type) *Type { return &Type{Kind: PointerKind, Elem: elem} }

// ArrayType returns the type of an n-element array.
func ArrayType(n int, elem *Type) *Type { return &Type{Kind: ArrayKind, Len: n, Elem: elem} }

// StructType returns a struct type with the given fields.
func StructType(fields ...*Type) *Type { return &Type{Kind: StructKind, Fields: fields} }

// IsVoid reports whether t is void (or nil).
func (t *Type) IsVoid() bool { return t == nil || t.Kind == VoidKind }

// Equal reports structural type equality.
func (t *Type) Equal(u *Type) bool {
	if t == nil || u == nil {
		return t.IsVoid() && u.IsVoid()
	}
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case IntKind:
		return t.Width == u.Width
	case SignalKind, PointerKind:
		return t.Elem.Equal(u.Elem)
	case ArrayKind:
		return t.Len == u.Len && t.Elem.Equal(u.Elem)
	case StructKind:
		if len(t.Fields) != len(u.Fields) {
			return false
		}
		for i := range t.Fields {
			if !t.Fields[i].Equal(u.Fields[i]) {
				return false
			}
		}
	}
	return true
}

// String renders the type in assembly syntax: void, time, i32, i32$, i32*,
// [4 x i8], {i1, time}.
func (t *Type) String() string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case VoidKind:
		return "void"
	case TimeKind:
		return "time"
	case IntKind:
		return "i" + strconv.Itoa(t.Width)
	case SignalKind:
		return t.Elem.String() + "$"
	case PointerKind:
		return t.Elem.String() + "*"
	case ArrayKind:
		return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
	case StructKind:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("type(%d)", t.Kind)
}

// ParseType parses the syntax produced by Type.String.
func ParseType(s string) (*Type, error) {
	p := &typeParser{src: strings.TrimSpace(s)}
	t, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("parse type %q: %w", s, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("parse type %q: trailing input at %d", s, p.pos)
	}
	return t, nil
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) parse() (*Type, error) {
	t, err := p.parseBase()
	if err != nil {
		return nil, err
	}
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '$':
			t = SignalType(t)
		case '*':
			t = PointerType(t)
		default:
			return t, nil
		}
		p.pos++
	}
	return t, nil
}

func (p *typeParser) parseBase() (*Type, error) {
	p.skipSpace()
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, "void"):
		p.pos += 4
		return VoidType, nil
	case strings.HasPrefix(rest, "time"):
		p.pos += 4
		return TimeType, nil
	case strings.HasPrefix(rest, "i"):
		p.pos++
		n, err := p.number()
		if err != nil {
			return nil, err
		}
		return IntType(n), nil
	case strings.HasPrefix(rest, "["):
		p.pos++
		p.skipSpace()
		n, err := p.number()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !strings.HasPrefix(p.src[p.pos:], "x") {
			return nil, fmt.Errorf("expected 'x' at %d", p.pos)
		}
		p.pos++
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return ArrayType(n, elem), nil
	case strings.HasPrefix(rest, "{"):
		p.pos++
		var fields []*Type
		p.skipSpace()
		if strings.HasPrefix(p.src[p.pos:], "}") {
			p.pos++
			return StructType(), nil
		}
		for {
			f, err := p.parse()
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			p.skipSpace()
			if strings.HasPrefix(p.src[p.pos:], ",") {
				p.pos++
				continue
			}
			if err := p.expect('}'); err != nil {
				return nil, err
			}
			return StructType(fields...), nil
		}
	}
	return nil, fmt.Errorf("unexpected input at %d", p.pos)
}

func (p *typeParser) number() (int, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at %d", start)
	}
	return strconv.Atoi(p.src[start:p.pos])
}

func (p *typeParser) expect(c byte) error {
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("expected %q at %d", c, p.pos)
	}
	p.pos++
	return nil
}
