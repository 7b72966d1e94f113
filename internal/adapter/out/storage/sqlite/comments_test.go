package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bookcomments/internal/adapter/out/storage"
	"bookcomments/internal/adapter/out/storage/storagetest"
	"bookcomments/internal/model"
	"bookcomments/internal/service"

	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *CommentStorage {
	t.Helper()

	st, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCommentStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) service.CommentStorage {
		return openTestStorage(t)
	})
}

func TestCommentStorage_DuplicateID(t *testing.T) {
	st := openTestStorage(t)
	ctx := context.Background()
	c := model.Comment{ID: "c1", BookID: "b1", UserID: "u1", UserName: "Ann", Text: "x", CreatedAt: time.Now()}

	_, err := st.CreateComment(ctx, c)
	require.NoError(t, err)
	_, err = st.CreateComment(ctx, c)
	require.ErrorIs(t, err, storage.ErrDuplicateID)

	// the same id under another book is a different comment
	c.BookID = "b2"
	_, err = st.CreateComment(ctx, c)
	require.NoError(t, err)
}

func TestCommentStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.db")
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)

	st, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = st.CreateComment(ctx, model.Comment{
		ID: "c1", BookID: "b1", UserID: "u1", UserName: "Ann", Text: "kept", CreatedAt: created,
		Likes: []string{"u2", "u3"},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	got, err := st.GetCommentByID(ctx, "b1", "c1")
	require.NoError(t, err)
	require.Equal(t, "kept", got.Text)
	require.True(t, created.Equal(got.CreatedAt))
	require.Equal(t, []string{"u2", "u3"}, got.Likes)
}
