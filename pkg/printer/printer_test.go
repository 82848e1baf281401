package printer_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/rhino1998/minipy/pkg/memory"
	"github.com/rhino1998/minipy/pkg/printer"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T) *memory.Table {
	t.Helper()

	pool, err := memory.NewPool(1 << 14)
	require.NoError(t, err)

	return memory.NewTable(slogt.New(t), pool, 0, 0)
}

func makeList(t *testing.T, table *memory.Table, values ...memory.RefID) memory.RefID {
	t.Helper()

	id, err := table.MakeListTerminator()
	require.NoError(t, err)

	for i := len(values) - 1; i >= 0; i-- {
		id, err = table.MakeListCell(id, values[i])
		require.NoError(t, err)
	}

	return id
}

func makeFloat(t *testing.T, table *memory.Table, f float32) memory.RefID {
	t.Helper()

	id, err := table.MakeFloat(f)
	require.NoError(t, err)

	return id
}

func TestSprint_Scalars(t *testing.T) {
	r := require.New(t)
	table := newTable(t)

	s, err := printer.Sprint(table, makeFloat(t, table, 1.5), printer.DefaultDepth)
	r.NoError(err)
	r.Equal("1.500000", s)

	str, err := table.MakeString("hello world")
	r.NoError(err)

	s, err = printer.Sprint(table, str, printer.DefaultDepth)
	r.NoError(err)
	r.Equal("'hello world'", s)
}

func TestSprint_List(t *testing.T) {
	r := require.New(t)
	table := newTable(t)

	list := makeList(t, table,
		makeFloat(t, table, 1),
		makeFloat(t, table, 2),
		makeFloat(t, table, 3),
	)

	s, err := printer.Sprint(table, list, printer.DefaultDepth)
	r.NoError(err)
	r.Equal("[1.000000, 2.000000, 3.000000]", s)

	empty := makeList(t, table)
	s, err = printer.Sprint(table, empty, printer.DefaultDepth)
	r.NoError(err)
	r.Equal("[]", s)
}

func TestSprint_Dict(t *testing.T) {
	r := require.New(t)
	table := newTable(t)

	term, err := table.MakeDictTerminator()
	r.NoError(err)

	key, err := table.MakeString("x")
	r.NoError(err)

	dict, err := table.MakeDictCell(term, key, makeList(t, table, makeFloat(t, table, 5)))
	r.NoError(err)

	s, err := printer.Sprint(table, dict, printer.DefaultDepth)
	r.NoError(err)
	r.Equal("{'x': [5.000000]}", s)

	s, err = printer.Sprint(table, term, printer.DefaultDepth)
	r.NoError(err)
	r.Equal("{}", s)
}

func TestSprint_DepthLimit(t *testing.T) {
	r := require.New(t)
	table := newTable(t)

	inner := makeList(t, table, makeFloat(t, table, 1))
	outer := makeList(t, table, inner, makeFloat(t, table, 2))

	s, err := printer.Sprint(table, outer, 1)
	r.NoError(err)
	r.Equal("[..., 2.000000]", s)

	s, err = printer.Sprint(table, outer, 0)
	r.NoError(err)
	r.Equal("...", s)

	s, err = printer.Sprint(table, makeFloat(t, table, 7), 0)
	r.NoError(err)
	r.Equal("7.000000", s)
}

func TestSprint_Cycle(t *testing.T) {
	r := require.New(t)
	table := newTable(t)

	list := makeList(t, table, makeFloat(t, table, 0))
	r.NoError(table.SetListCell(list, memory.ListCell{Next: mustNext(t, table, list), Value: list}))

	s, err := printer.Sprint(table, list, 3)
	r.NoError(err)
	r.Equal("[[[...]]]", s)
}

func mustNext(t *testing.T, table *memory.Table, id memory.RefID) memory.RefID {
	t.Helper()

	cell, err := table.ListCell(id)
	require.NoError(t, err)

	return cell.Next
}

func TestFprint(t *testing.T) {
	r := require.New(t)
	table := newTable(t)

	var out bytes.Buffer
	r.NoError(printer.Fprint(&out, table, makeFloat(t, table, -2), printer.DefaultDepth))
	r.Equal("-2.000000", out.String())

	r.ErrorIs(printer.Fprint(&out, table, memory.Nil, printer.DefaultDepth), memory.ErrInvalidReference)
}

func TestFormatFloat(t *testing.T) {
	r := require.New(t)

	r.Equal("inf", printer.FormatFloat(float32(math.Inf(1))))
	r.Equal("-inf", printer.FormatFloat(float32(math.Inf(-1))))
	r.Equal("nan", printer.FormatFloat(float32(math.NaN())))
	r.Equal("0.100000", printer.FormatFloat(0.1))
}
