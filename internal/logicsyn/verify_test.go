package logicsyn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/store"
)

func TestVerify(t *testing.T) {
	factored := Proposal{
		Root: 3,
		Body: []store.Gate{or(3, 1, 2, 2), and(1, 10, 11, 5), and(2, 10, 12, 5)},
		Head: []store.Gate{or(13, 11, 12, 2), and(14, 10, 13, 5), or(3, 14, 14, 2)},
	}

	tests := []struct {
		name string
		p    Proposal
		want bool
	}{
		{"divisor extraction", factored, true},
		{
			name: "de morgan dual",
			p: Proposal{
				Root: 3,
				Body: []store.Gate{and(3, 1, 2, 2), or(1, 10, 11, 5), or(2, 10, 12, 5)},
				Head: []store.Gate{and(13, 11, 12, 2), or(14, 10, 13, 5), and(3, 14, 14, 2)},
			},
			want: true,
		},
		{
			name: "wrong divisor",
			p: Proposal{
				Root: 3,
				Body: factored.Body,
				Head: []store.Gate{or(13, 11, 12, 2), and(14, 11, 13, 5), or(3, 14, 14, 2)},
			},
			want: false,
		},
		{
			name: "swapped gate kinds",
			p: Proposal{
				Root: 3,
				Body: factored.Body,
				Head: []store.Gate{and(13, 11, 12, 2), or(14, 10, 13, 5), or(3, 14, 14, 2)},
			},
			want: false,
		},
		{
			name: "identity",
			p:    Proposal{Root: 1, Body: []store.Gate{and(1, 10, 11, 5)}, Head: []store.Gate{and(1, 11, 10, 5)}},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Verify(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name string
		p    Proposal
		want string
	}{
		{
			name: "root missing from head",
			p:    Proposal{Root: 1, Body: []store.Gate{and(1, 10, 11, 5)}, Head: []store.Gate{and(2, 10, 11, 5)}},
			want: "head does not define 1",
		},
		{
			name: "root missing from body",
			p:    Proposal{Root: 1, Body: []store.Gate{and(2, 10, 11, 5)}, Head: []store.Gate{and(1, 10, 11, 5)}},
			want: "body does not define 1",
		},
		{
			name: "cycle",
			p: Proposal{
				Root: 1,
				Body: []store.Gate{and(1, 10, 11, 5)},
				Head: []store.Gate{and(1, 2, 10, 5), or(2, 1, 11, 2)},
			},
			want: "cycle through 1",
		},
		{
			name: "double definition",
			p: Proposal{
				Root: 1,
				Body: []store.Gate{and(1, 10, 11, 5), or(1, 10, 11, 2)},
				Head: []store.Gate{and(1, 10, 11, 5)},
			},
			want: "defined by both",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.p)
			require.Error(t, err)
			assert.True(t, IsVerifyError(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
