package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSig map[string]Constructor

func (s fakeSig) Constructor(sym string) (Constructor, bool) {
	c, ok := s[sym]
	return c, ok
}

var sig = fakeSig{
	"Add":     {Name: "Add", Sort: SortExpr, Args: []Sort{SortExpr, SortExpr}},
	"Const":   {Name: "Const", Sort: SortExpr, Args: []Sort{SortString}},
	"Field":   {Name: "Field", Sort: SortExpr, Args: []Sort{SortExpr, SortI64}},
	"Halt":    {Name: "Halt", Sort: SortExpr},
	"VecExpr": {Name: "VecExpr", Sort: "VecExpr", Args: []Sort{SortExpr}, Variadic: true},
	"Struct":  {Name: "Struct", Sort: SortExpr, Args: []Sort{"VecExpr"}},
}

func TestTermString(t *testing.T) {
	tm := New("Add", New("Const", Str(`{"a":1}`)), New("Field", Ref(0), I64(-2)))
	assert.Equal(t, `(Add (Const "{\"a\":1}") (Field %0 -2))`, tm.String())
	assert.Equal(t, "(Halt)", New("Halt").String())
	assert.Equal(t, "x", Var("x").String())
}

func TestEqual(t *testing.T) {
	a := New("Add", Ref(0), Ref(1))
	assert.True(t, Equal(a, New("Add", Ref(0), Ref(1))))
	assert.False(t, Equal(a, New("Add", Ref(1), Ref(0))))
	assert.False(t, Equal(a, New("Sub", Ref(0), Ref(1))))
	assert.False(t, Equal(I64(1), Ref(1)))
	assert.True(t, Equal(Str("x"), Str("x")))
}

func TestSize(t *testing.T) {
	assert.Equal(t, 0, Size(Ref(3)))
	assert.Equal(t, 1, Size(New("Halt")))
	assert.Equal(t, 3, Size(New("Add", New("Const", Str("1")), New("Field", Ref(0), I64(0)))))
}

func TestWalk_PostOrder(t *testing.T) {
	tm := New("Add", Ref(0), New("Const", Str("c")))
	var seen []string
	Walk(tm, func(t Term) bool {
		seen = append(seen, t.String())
		return true
	})
	assert.Equal(t, []string{"%0", `"c"`, `(Const "c")`, `(Add %0 (Const "c"))`}, seen)
}

func TestVarsAndSubstitute(t *testing.T) {
	pat := New("Add", Var("a"), New("Add", Var("b"), Var("a")))
	assert.Equal(t, []Var{"a", "b"}, Vars(pat))
	assert.False(t, Ground(pat))

	got, err := Substitute(pat, map[Var]Term{"a": Ref(0), "b": Ref(1)})
	require.NoError(t, err)
	assert.Equal(t, "(Add %0 (Add %1 %0))", got.String())
	assert.True(t, Ground(got))

	_, err = Substitute(pat, map[Var]Term{"a": Ref(0)})
	assert.ErrorContains(t, err, "unbound variable b")
}

func TestCheck(t *testing.T) {
	require.NoError(t, Check(sig, New("Add", Ref(0), New("Const", Str("1"))), SortExpr))
	require.NoError(t, Check(sig, New("Struct", New("VecExpr", Ref(0), Ref(1))), SortExpr))
	require.NoError(t, Check(sig, New("Struct", New("VecExpr")), SortExpr), "empty vector")

	tests := []struct {
		name string
		term Term
		msg  string
	}{
		{"arity", New("Add", Ref(0)), "takes 2 children"},
		{"child sort", New("Field", Ref(0), Str("x")), "expected i64"},
		{"unknown", New("Mul", Ref(0), Ref(1)), "unknown constructor Mul"},
		{"variable", New("Add", Var("x"), Ref(0)), "pattern variable"},
		{"variadic element", New("Struct", New("VecExpr", I64(1))), "expected Expr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(sig, tt.term, SortExpr)
			var serr *SortError
			require.ErrorAs(t, err, &serr)
			assert.Contains(t, serr.Message, tt.msg)
		})
	}
}

func TestCheckPattern_VariableSorts(t *testing.T) {
	vars := map[Var]Sort{}
	require.NoError(t, CheckPattern(sig, New("Field", Var("x"), Var("i")), SortExpr, vars))
	assert.Equal(t, SortI64, vars["i"])

	err := CheckPattern(sig, New("Add", Var("i"), Var("x")), SortExpr, vars)
	assert.ErrorContains(t, err, "variable used as i64 and Expr")
}

func TestSortOf(t *testing.T) {
	s, err := SortOf(sig, New("VecExpr", Ref(0)))
	require.NoError(t, err)
	assert.Equal(t, Sort("VecExpr"), s)

	_, err = SortOf(sig, Var("x"))
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	a := New("Add", Ref(0), Ref(1))
	assert.Equal(t, Hash(a), Hash(New("Add", Ref(0), Ref(1))))
	assert.NotEqual(t, Hash(a), Hash(New("Add", Ref(1), Ref(0))))
}
