package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestSealedInterfaces checks that every node satisfies its marker
// interface, by value and by pointer.
func TestSealedInterfaces(t *testing.T) {
	queries := []Query{Select{}, &Select{}, Join{}, &Join{}}
	assert.Len(t, queries, 4)

	preds := []Predicate{
		Equals{}, &Equals{},
		FieldEquals{}, &FieldEquals{},
		FieldNotEquals{}, &FieldNotEquals{},
		Greater{}, &Greater{},
		And{}, &And{},
	}
	assert.Len(t, preds, 10)
}

func TestSelect_Alias(t *testing.T) {
	assert.Equal(t, "or_gates", Select{From: "or_gates"}.Alias())
	assert.Equal(t, "g", Select{From: "or_gates", As: "g"}.Alias())
}

func TestLinear_String(t *testing.T) {
	tests := []struct {
		name string
		lin  Linear
		want string
	}{
		{"empty", nil, "0"},
		{"unit", Linear{{1, F("g", "cost")}}, "g.cost"},
		{"scaled", Linear{{2, F("g", "cost")}, {1, F("l", "cost")}}, "2*g.cost + l.cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lin.String())
		})
	}
}
