package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type item struct {
	id string
	at time.Time
}

func itemKey(it item) Cursor { return Cursor{CreatedAt: it.at, ID: it.id} }

func newestFirst(n int) []item {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]item, 0, n)
	for i := n; i >= 1; i-- {
		out = append(out, item{id: string(rune('a' + i - 1)), at: base.Add(time.Duration(i) * time.Hour)})
	}
	return out
}

func ids(in []item) []string {
	out := make([]string, 0, len(in))
	for _, it := range in {
		out = append(out, it.id)
	}
	return out
}

func TestCursor_EncodeDecode(t *testing.T) {
	t.Parallel()

	c := Cursor{CreatedAt: time.Date(2025, 9, 24, 12, 0, 0, 0, time.UTC), ID: "3f1c"}
	got, err := Decode(c.Encode())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, c.CreatedAt.Equal(got.CreatedAt))
	require.Equal(t, c.ID, got.ID)

	empty := ""
	got, err = Decode(&empty)
	require.NoError(t, err)
	require.Nil(t, got)

	bad := "%%%"
	_, err = Decode(&bad)
	require.Error(t, err)
}

func TestKeyset(t *testing.T) {
	t.Parallel()

	items := newestFirst(5) // e d c b a

	first, err := Keyset(items, itemKey, PageRequest{}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"e", "d"}, ids(first.Items))
	require.True(t, first.HasNextPage)
	require.False(t, first.HasPreviousPage)

	second, err := Keyset(items, itemKey, PageRequest{AfterCursor: first.EndCursor}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, ids(second.Items))
	require.True(t, second.HasNextPage)
	require.True(t, second.HasPreviousPage)

	last, err := Keyset(items, itemKey, PageRequest{AfterCursor: second.EndCursor}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids(last.Items))
	require.False(t, last.HasNextPage)

	back, err := Keyset(items, itemKey, PageRequest{BeforeCursor: last.StartCursor}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, ids(back.Items))
	require.True(t, back.HasPreviousPage)

	past, err := Keyset(items, itemKey, PageRequest{AfterCursor: last.EndCursor}, 2)
	require.NoError(t, err)
	require.Zero(t, past.Count)
	require.Nil(t, past.StartCursor)
}

func TestKeyset_Errors(t *testing.T) {
	t.Parallel()

	items := newestFirst(2)
	c := itemKey(items[0]).Encode()

	_, err := Keyset(items, itemKey, PageRequest{AfterCursor: c, BeforeCursor: c}, 2)
	require.ErrorIs(t, err, ErrBothCursors)

	bad := "!!"
	_, err = Keyset(items, itemKey, PageRequest{AfterCursor: &bad}, 2)
	require.Error(t, err)
}
