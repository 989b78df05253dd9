package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadColumns(t *testing.T) {
	t.Parallel()

	_, err := New("a", "")
	assert.Error(t, err)

	_, err = New("a", "b", "a")
	assert.Error(t, err)
}

func TestAppendRow_PadsShortRows(t *testing.T) {
	t.Parallel()

	tbl, err := New("a", "b", "c")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Number(1)))

	assert.True(t, tbl.At(0, "b").IsAbsent())
	assert.True(t, tbl.At(0, "c").IsAbsent())

	err = tbl.AppendRow(Number(1), Number(2), Number(3), Number(4))
	assert.Error(t, err)
}

func TestAt_UnknownColumnIsAbsent(t *testing.T) {
	t.Parallel()

	tbl, err := New("a")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Number(1)))

	assert.True(t, tbl.At(0, "nope").IsAbsent())
	assert.True(t, tbl.At(5, "a").IsAbsent())
	assert.True(t, tbl.At(-1, "a").IsAbsent())
}

func TestAddColumn(t *testing.T) {
	t.Parallel()

	tbl, err := New("a")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Number(1)))
	require.NoError(t, tbl.AppendRow(Number(2)))

	require.NoError(t, tbl.AddColumn("b", []Value{Number(10), Absent}))
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())
	assert.True(t, tbl.At(1, "b").IsAbsent())

	assert.Error(t, tbl.AddColumn("b", []Value{Number(1), Number(2)}), "duplicate")
	assert.Error(t, tbl.AddColumn("c", []Value{Number(1)}), "length mismatch")
}

func TestClone_IsIndependent(t *testing.T) {
	t.Parallel()

	tbl, err := New("a")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Number(1)))

	cp := tbl.Clone()
	require.NoError(t, cp.Set(0, "a", Number(99)))
	require.NoError(t, cp.AddColumn("b", []Value{Number(2)}))

	f, ok := tbl.At(0, "a").Float()
	require.True(t, ok)
	assert.Equal(t, 1.0, f)
	assert.False(t, tbl.HasColumn("b"))
}

func TestSortBy_AbsentAlwaysLast(t *testing.T) {
	t.Parallel()

	tbl, err := New("id", "v")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Text("a"), Absent))
	require.NoError(t, tbl.AppendRow(Text("b"), Number(1)))
	require.NoError(t, tbl.AppendRow(Text("c"), Number(3)))
	require.NoError(t, tbl.AppendRow(Text("d"), Absent))
	require.NoError(t, tbl.AppendRow(Text("e"), Number(2)))

	desc, err := tbl.SortBy("v", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e", "b", "a", "d"}, column(desc, "id"))

	asc, err := tbl.SortBy("v", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "e", "c", "a", "d"}, column(asc, "id"))
}

func TestSortBy_Stable(t *testing.T) {
	t.Parallel()

	tbl, err := New("id", "v")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Text("first"), Number(5)))
	require.NoError(t, tbl.AppendRow(Text("second"), Number(5)))
	require.NoError(t, tbl.AppendRow(Text("third"), Number(5)))

	sorted, err := tbl.SortBy("v", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, column(sorted, "id"))
}

func TestSortBy_NumericTextCoerces(t *testing.T) {
	t.Parallel()

	tbl, err := New("id", "v")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Text("a"), Text("9")))
	require.NoError(t, tbl.AppendRow(Text("b"), Text("10")))

	sorted, err := tbl.SortBy("v", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, column(sorted, "id"), "numeric, not lexical")
}

func TestSortBy_UnknownColumn(t *testing.T) {
	t.Parallel()

	tbl, err := New("a")
	require.NoError(t, err)
	_, err = tbl.SortBy("nope", false)
	assert.Error(t, err)
}

func TestHead(t *testing.T) {
	t.Parallel()

	tbl, err := New("a")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, tbl.AppendRow(Number(float64(i))))
	}

	assert.Equal(t, 3, tbl.Head(3).Len())
	assert.Equal(t, 5, tbl.Head(100).Len())
	assert.Equal(t, 0, tbl.Head(0).Len())
	assert.Equal(t, 0, tbl.Head(-1).Len())
}

func TestFilter(t *testing.T) {
	t.Parallel()

	tbl, err := New("v")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, tbl.AppendRow(Number(float64(i))))
	}

	even := tbl.Filter(func(row int) bool {
		f, _ := tbl.At(row, "v").Float()
		return int(f)%2 == 0
	})
	assert.Equal(t, 2, even.Len())
	assert.Equal(t, 4, tbl.Len(), "source untouched")
}

func TestSelect(t *testing.T) {
	t.Parallel()

	tbl, err := New("a", "b", "c")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Number(1), Number(2), Number(3)))

	out, err := tbl.Select([]string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, out.Columns())
	f, _ := out.At(0, "c").Float()
	assert.Equal(t, 3.0, f)

	_, err = tbl.Select([]string{"a", "nope"})
	assert.Error(t, err)
}

func TestColumnName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Müügitulu_2023", ColumnName("Müügitulu", 2023))
}

func TestResolver(t *testing.T) {
	t.Parallel()

	tbl, err := New("company_code", "Müügitulu_2023", "Müügitulu_2022")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRow(Text("100"), Number(1000), Absent))

	r := NewResolver(tbl)
	assert.True(t, r.Has("Müügitulu", 2023))
	assert.False(t, r.Has("Müügitulu", 2021))

	f, ok := r.Float(0, "Müügitulu", 2023)
	require.True(t, ok)
	assert.Equal(t, 1000.0, f)

	assert.True(t, r.Value(0, "Müügitulu", 2022).IsAbsent(), "missing cell")
	assert.True(t, r.Value(0, "Müügitulu", 2021).IsAbsent(), "missing column")
	_, ok = r.Float(0, "Müügitulu", 2022)
	assert.False(t, ok)
}

// column collects one column as rendered strings, in row order.
func column(t *Table, col string) []string {
	out := make([]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[i] = t.At(i, col).String()
	}
	return out
}
