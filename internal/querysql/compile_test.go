package querysql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eqhdl/eqhdl/internal/queryir"
	"github.com/eqhdl/eqhdl/internal/store"
)

var f = queryir.F

// factorBody is or(g,l,r,cg), and(l,x,y,cl), and(r,x,z,cr) with the cost
// guard cg+cl+cr > 2cg+cl.
func factorBody() queryir.Query {
	return queryir.Join{
		Left: queryir.Join{
			Left: queryir.Select{
				From: "or_gates", As: "g",
				Bindings: map[string]string{"id": "g", "a": "l", "b": "r", "cost": "cg"},
			},
			Right: queryir.Select{
				From: "and_gates", As: "l",
				Bindings: map[string]string{"a": "x", "b": "y", "cost": "cl"},
			},
			On: queryir.FieldEquals{Left: f("l", "id"), Right: f("g", "a")},
		},
		Right: queryir.Select{
			From: "and_gates", As: "r",
			Bindings: map[string]string{"b": "z", "cost": "cr"},
		},
		On: queryir.And{Predicates: []queryir.Predicate{
			queryir.FieldEquals{Left: f("r", "id"), Right: f("g", "b")},
			queryir.FieldEquals{Left: f("r", "a"), Right: f("l", "a")},
			queryir.FieldNotEquals{Left: f("l", "id"), Right: f("r", "id")},
			queryir.Greater{
				Left:  queryir.Linear{{Coef: 1, Field: f("g", "cost")}, {Coef: 1, Field: f("l", "cost")}, {Coef: 1, Field: f("r", "cost")}},
				Right: queryir.Linear{{Coef: 2, Field: f("g", "cost")}, {Coef: 1, Field: f("l", "cost")}},
			},
		}},
	}
}

func TestCompile_GoldenSQL(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name       string
		query      queryir.Query
		wantSQL    string
		wantParams []any
	}{
		{
			name: "select with literal filter",
			query: queryir.Select{
				From:     "and_gates",
				Bindings: map[string]string{"id": "g", "cost": "c"},
				Filter:   queryir.Equals{Field: f("and_gates", "cost"), Value: 5},
			},
			wantSQL:    "SELECT DISTINCT and_gates.cost AS c, and_gates.id AS g FROM and_gates AS and_gates WHERE and_gates.cost = ? ORDER BY c ASC, g ASC",
			wantParams: []any{int64(5)},
		},
		{
			name: "pointer select with alias",
			query: &queryir.Select{
				From:     "or_gates",
				As:       "o",
				Bindings: map[string]string{"id": "g"},
			},
			wantSQL:    "SELECT DISTINCT o.id AS g FROM or_gates AS o ORDER BY g ASC",
			wantParams: nil,
		},
		{
			name:  "factor body",
			query: factorBody(),
			wantSQL: "SELECT DISTINCT g.cost AS cg, l.cost AS cl, r.cost AS cr, g.id AS g, g.a AS l, g.b AS r, l.a AS x, l.b AS y, r.b AS z" +
				" FROM or_gates AS g" +
				" INNER JOIN and_gates AS l ON l.id = g.a" +
				" INNER JOIN and_gates AS r ON r.id = g.b AND r.a = l.a AND l.id <> r.id AND (g.cost + l.cost + r.cost) > (? * g.cost + l.cost)" +
				" ORDER BY cg ASC, cl ASC, cr ASC, g ASC, l ASC, r ASC, x ASC, y ASC, z ASC",
			wantParams: []any{int64(2)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := compiler.Compile(tc.query)
			require.NoError(t, err)

			assert.Equal(t, tc.wantSQL, stmt.SQL, "SQL mismatch")
			assert.Equal(t, tc.wantParams, stmt.Params, "Parameters mismatch")
		})
	}
}

func TestCompile_NotDistinct(t *testing.T) {
	c := &SQLCompiler{}
	stmt, err := c.Compile(queryir.Select{From: "and_gates", Bindings: map[string]string{"id": "g"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT and_gates.id AS g FROM and_gates AS and_gates ORDER BY g ASC", stmt.SQL)
	assert.Equal(t, []string{"g"}, stmt.Columns)
}

// TestCompile_NestedRightJoin checks that a join nested on the right side
// gets a trivial ON for its inner relations and the outer ON on its last.
func TestCompile_NestedRightJoin(t *testing.T) {
	q := queryir.Join{
		Left: queryir.Select{From: "or_gates", As: "g", Bindings: map[string]string{"id": "g"}},
		Right: queryir.Join{
			Left:  queryir.Select{From: "and_gates", As: "l", Bindings: map[string]string{"id": "l"}},
			Right: queryir.Select{From: "and_gates", As: "r", Bindings: map[string]string{"id": "r"}},
			On:    queryir.FieldEquals{Left: f("l", "a"), Right: f("r", "a")},
		},
		On: queryir.And{Predicates: []queryir.Predicate{
			queryir.FieldEquals{Left: f("g", "a"), Right: f("l", "id")},
			queryir.FieldEquals{Left: f("g", "b"), Right: f("r", "id")},
		}},
	}
	stmt, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "INNER JOIN and_gates AS l ON 1 = 1")
	assert.Contains(t, stmt.SQL, "INNER JOIN and_gates AS r ON l.a = r.a AND g.a = l.id AND g.b = r.id")
}

func TestCompile_ParamsInTextOrder(t *testing.T) {
	q := queryir.Join{
		Left: queryir.Select{
			From: "and_gates", As: "l",
			Filter:   queryir.Equals{Field: f("l", "cost"), Value: 7},
			Bindings: map[string]string{"id": "l"},
		},
		Right: queryir.Select{
			From: "and_gates", As: "r",
			Filter:   queryir.Equals{Field: f("r", "cost"), Value: 8},
			Bindings: map[string]string{"id": "r"},
		},
		On: queryir.Greater{
			Left:  queryir.Linear{{Coef: 3, Field: f("l", "cost")}},
			Right: queryir.Linear{{Coef: 4, Field: f("r", "cost")}},
		},
	}
	stmt, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(4), int64(7), int64(8)}, stmt.Params)
	assert.Contains(t, stmt.SQL, "ON (? * l.cost) > (? * r.cost) WHERE l.cost = ? AND r.cost = ?")
}

func TestCompile_Errors(t *testing.T) {
	compiler := NewSQLCompiler()

	_, err := compiler.Compile(nil)
	assert.ErrorContains(t, err, "nil query")

	_, err = compiler.Compile(queryir.Select{From: "and_gates"})
	assert.ErrorContains(t, err, "invalid query")

	_, err = compiler.Compile(queryir.Select{
		From:     "and_gates; DROP TABLE and_gates",
		As:       "g",
		Bindings: map[string]string{"id": "g"},
	})
	assert.ErrorContains(t, err, "invalid identifier")

	_, err = compiler.Compile(queryir.Select{
		From:     "and_gates",
		Bindings: map[string]string{"id": "1g"},
	})
	assert.ErrorContains(t, err, "invalid identifier")
}

func TestCompile_Deterministic(t *testing.T) {
	compiler := NewSQLCompiler()
	first, err := compiler.Compile(factorBody())
	require.NoError(t, err)
	for range 20 {
		again, err := compiler.Compile(factorBody())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// TestCompile_Executes runs the factor body against a real store.
func TestCompile_Executes(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "q.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	for i, g := range []store.Gate{
		{Rel: store.AndGates, ID: 1, A: 10, B: 11, Cost: 5},
		{Rel: store.AndGates, ID: 2, A: 10, B: 12, Cost: 5},
		{Rel: store.OrGates, ID: 3, A: 1, B: 2, Cost: 2},
		{Rel: store.OrGates, ID: 4, A: 1, B: 2, Cost: 20},
	} {
		_, err := st.InsertGate(ctx, g, 0, int64(i+1))
		require.NoError(t, err)
	}

	stmt, err := NewSQLCompiler().Compile(factorBody())
	require.NoError(t, err)
	rows, err := st.Query(ctx, stmt.SQL, stmt.Params...)
	require.NoError(t, err)
	defer rows.Close()

	var got [][]int64
	for rows.Next() {
		row := make([]int64, len(stmt.Columns))
		ptrs := make([]any, len(row))
		for i := range row {
			ptrs[i] = &row[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		got = append(got, row)
	}
	require.NoError(t, rows.Err())

	// The or with cost 20 fails the guard: 30 > 45 is false.
	assert.Equal(t, [][]int64{{2, 5, 5, 3, 1, 2, 10, 11, 12}}, got)
}
