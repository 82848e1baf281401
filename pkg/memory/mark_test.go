package memory_test

import (
	"testing"

	"github.com/rhino1998/minipy/pkg/memory"
	"github.com/stretchr/testify/require"
)

func TestMark(t *testing.T) {
	r := require.New(t)
	table := newTable(t, 4096, 0)

	term, err := table.MakeListTerminator()
	r.NoError(err)
	one, err := table.MakeFloat(1)
	r.NoError(err)
	list, err := table.MakeListCell(term, one)
	r.NoError(err)

	garbage, err := table.MakeString("unreachable")
	r.NoError(err)

	set, err := memory.Mark(table, []memory.RefID{list, memory.Nil})
	r.NoError(err)

	r.Equal(3, set.Reachable())
	r.True(set.Marked(list))
	r.True(set.Marked(term))
	r.True(set.Marked(one))
	r.False(set.Marked(garbage))
	r.False(set.Marked(memory.Nil))
}

func TestMark_Cycle(t *testing.T) {
	r := require.New(t)
	table := newTable(t, 4096, 0)

	term, err := table.MakeDictTerminator()
	r.NoError(err)
	key, err := table.MakeString("self")
	r.NoError(err)
	dict, err := table.MakeDictCell(term, key, memory.Nil)
	r.NoError(err)

	r.NoError(table.SetDictCell(dict, memory.DictCell{Next: term, Key: key, Value: dict}))

	set, err := memory.Mark(table, []memory.RefID{dict})
	r.NoError(err)
	r.Equal(3, set.Reachable())
}

func TestMark_InvalidRoot(t *testing.T) {
	table := newTable(t, 4096, 0)

	_, err := memory.Mark(table, []memory.RefID{42})
	require.ErrorIs(t, err, memory.ErrInvalidReference)
}
