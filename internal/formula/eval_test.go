package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvirves/rik-screener/internal/table"
)

func evalTable(t *testing.T, cells map[string]table.Value) *table.Table {
	t.Helper()
	cols := make([]string, 0, len(cells))
	for c := range cells {
		cols = append(cols, c)
	}
	tbl, err := table.New(cols...)
	require.NoError(t, err)
	vals := make([]table.Value, len(cols))
	for i, c := range cols {
		vals[i] = cells[c]
	}
	require.NoError(t, tbl.AppendRow(vals...))
	return tbl
}

func evalOne(t *testing.T, expr string, cells map[string]table.Value) table.Value {
	t.Helper()
	p, err := Parse(expr)
	require.NoError(t, err)
	return p.Eval(evalTable(t, cells), 0)
}

func TestEval_Arithmetic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"precedence", `1 + 2 * 3`, 7},
		{"parens", `(1 + 2) * 3`, 9},
		{"unary minus", `-"a" * 2`, -6},
		{"double negation", `--"a"`, 3},
		{"division", `"a" / 2`, 1.5},
		{"left assoc subtraction", `10 - 4 - 3`, 3},
		{"abs", `abs(-"a")`, 3},
		{"pow", `pow("a", 2)`, 9},
		{"min variadic", `min("a", 1, 2)`, 1},
		{"max variadic", `max("a", 10, 2)`, 10},
		{"average", `average(2, 4, 6)`, 4},
		{"round", `round(2.6)`, 3},
	}
	cells := map[string]table.Value{"a": table.Number(3)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evalOne(t, tt.expr, cells)
			f, ok := v.Float()
			require.True(t, ok, "expected a number, got absent")
			assert.InDelta(t, tt.want, f, 1e-9)
		})
	}
}

func TestEval_AbsentPropagates(t *testing.T) {
	t.Parallel()

	cells := map[string]table.Value{
		"a": table.Number(3),
		"b": table.Absent,
	}
	for _, expr := range []string{
		`"a" + "b"`,
		`"b" * 2`,
		`-"b"`,
		`abs("b")`,
		`min("a", "b")`,
		`average("a", "b")`,
		`"missing_entirely" + 1`,
	} {
		assert.True(t, evalOne(t, expr, cells).IsAbsent(), expr)
	}
}

func TestEval_DivisionByZeroIsAbsent(t *testing.T) {
	t.Parallel()

	cells := map[string]table.Value{"a": table.Number(5), "z": table.Number(0)}
	assert.True(t, evalOne(t, `"a" / "z"`, cells).IsAbsent())
	assert.True(t, evalOne(t, `"a" / ("a" - "a")`, cells).IsAbsent())
}

func TestEval_NonFiniteIsAbsent(t *testing.T) {
	t.Parallel()

	cells := map[string]table.Value{"neg": table.Number(-1)}
	assert.True(t, evalOne(t, `sqrt("neg")`, cells).IsAbsent())
	assert.True(t, evalOne(t, `log("neg")`, cells).IsAbsent())
	assert.True(t, evalOne(t, `log(0)`, cells).IsAbsent())
	assert.True(t, evalOne(t, `pow(1e300, 2)`, cells).IsAbsent())
}

func TestEval_TextCoercion(t *testing.T) {
	t.Parallel()

	// CSV-loaded cells are text; numeric text coerces, words go absent.
	cells := map[string]table.Value{
		"num":  table.Text("1000"),
		"word": table.Text("puudub"),
	}
	v := evalOne(t, `"num" / 4`, cells)
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 250.0, f)

	assert.True(t, evalOne(t, `"word" + 1`, cells).IsAbsent())
}

func TestEval_Deterministic(t *testing.T) {
	t.Parallel()

	p, err := Parse(`("a" + "b") / "c"`)
	require.NoError(t, err)
	tbl := evalTable(t, map[string]table.Value{
		"a": table.Number(100), "b": table.Number(50), "c": table.Number(3),
	})

	first := p.Eval(tbl, 0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.Eval(tbl, 0))
	}
}

func TestEval_RowIsolation(t *testing.T) {
	t.Parallel()

	tbl, err := table.New("a", "b")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(table.Number(10), table.Number(2)))
	require.NoError(t, tbl.AppendRow(table.Number(10), table.Number(0)))
	require.NoError(t, tbl.AppendRow(table.Number(9), table.Number(3)))

	p, err := Parse(`"a" / "b"`)
	require.NoError(t, err)

	f, ok := p.Eval(tbl, 0).Float()
	require.True(t, ok)
	assert.Equal(t, 5.0, f)

	assert.True(t, p.Eval(tbl, 1).IsAbsent(), "zero denominator only hits its own row")

	f, ok = p.Eval(tbl, 2).Float()
	require.True(t, ok)
	assert.Equal(t, 3.0, f)
}
