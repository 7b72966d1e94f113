// Package storagetest holds behaviour checks shared by every CommentStorage
// backend that can run inside a unit test.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookcomments/internal/model"
	"bookcomments/internal/service"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func comment(id, book string, parent *string, minutes int) model.Comment {
	return model.Comment{
		ID:        id,
		BookID:    book,
		ParentID:  parent,
		UserID:    "u-" + id,
		UserName:  "User " + id,
		Text:      "text " + id,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

// Run exercises a fresh storage returned by newStorage for each subtest.
func Run(t *testing.T, newStorage func(t *testing.T) service.CommentStorage) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		st := newStorage(t)

		root := comment("c1", "b1", nil, 0)
		got, err := st.CreateComment(ctx, root)
		require.NoError(t, err)
		require.Equal(t, root.ID, got.ID)

		parent := "c1"
		reply := comment("c2", "b1", &parent, 1)
		_, err = st.CreateComment(ctx, reply)
		require.NoError(t, err)

		loaded, err := st.GetCommentByID(ctx, "b1", "c2")
		require.NoError(t, err)
		require.NotNil(t, loaded.ParentID)
		require.Equal(t, "c1", *loaded.ParentID)
		require.Equal(t, reply.UserName, loaded.UserName)
		require.Equal(t, reply.Text, loaded.Text)
		require.True(t, reply.CreatedAt.Equal(loaded.CreatedAt))
		require.Nil(t, loaded.EditedAt)
		require.Empty(t, loaded.Likes)
		require.Empty(t, loaded.Dislikes)
	})

	t.Run("not found", func(t *testing.T) {
		st := newStorage(t)

		_, err := st.GetCommentByID(ctx, "b1", "missing")
		require.ErrorIs(t, err, service.ErrNotFound)

		_, err = st.CreateComment(ctx, comment("c1", "b1", nil, 0))
		require.NoError(t, err)
		_, err = st.GetCommentByID(ctx, "other-book", "c1")
		require.ErrorIs(t, err, service.ErrNotFound)

		_, err = st.UpdateComment(ctx, "b1", "missing", func(c model.Comment) (model.Comment, error) { return c, nil })
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("book collection is scoped and ordered", func(t *testing.T) {
		st := newStorage(t)

		for i, id := range []string{"c3", "c1", "c2"} {
			_, err := st.CreateComment(ctx, comment(id, "b1", nil, []int{3, 1, 2}[i]))
			require.NoError(t, err)
		}
		_, err := st.CreateComment(ctx, comment("x", "b2", nil, 0))
		require.NoError(t, err)

		got, err := st.GetCommentsByBook(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, []string{"c1", "c2", "c3"}, []string{got[0].ID, got[1].ID, got[2].ID})

		empty, err := st.GetCommentsByBook(ctx, "nobody")
		require.NoError(t, err)
		require.Empty(t, empty)
	})

	t.Run("update persists votes and edits", func(t *testing.T) {
		st := newStorage(t)

		_, err := st.CreateComment(ctx, comment("c1", "b1", nil, 0))
		require.NoError(t, err)

		edited := base.Add(time.Hour)
		_, err = st.UpdateComment(ctx, "b1", "c1", func(c model.Comment) (model.Comment, error) {
			c = c.ApplyVote("u2", model.VoteLike)
			c = c.ApplyVote("u3", model.VoteDislike)
			return c.Edit("changed", edited), nil
		})
		require.NoError(t, err)

		got, err := st.GetCommentByID(ctx, "b1", "c1")
		require.NoError(t, err)
		require.Equal(t, "changed", got.Text)
		require.NotNil(t, got.EditedAt)
		require.True(t, edited.Equal(*got.EditedAt))
		require.Equal(t, []string{"u2"}, got.Likes)
		require.Equal(t, []string{"u3"}, got.Dislikes)
	})

	t.Run("update aborted by callback", func(t *testing.T) {
		st := newStorage(t)

		_, err := st.CreateComment(ctx, comment("c1", "b1", nil, 0))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, err = st.UpdateComment(ctx, "b1", "c1", func(c model.Comment) (model.Comment, error) {
			c.Text = "should not be saved"
			return c, boom
		})
		require.ErrorIs(t, err, boom)

		got, err := st.GetCommentByID(ctx, "b1", "c1")
		require.NoError(t, err)
		require.Equal(t, "text c1", got.Text)
	})

	t.Run("concurrent votes are not lost", func(t *testing.T) {
		st := newStorage(t)

		_, err := st.CreateComment(ctx, comment("c1", "b1", nil, 0))
		require.NoError(t, err)

		const voters = 20
		var wg sync.WaitGroup
		errs := make(chan error, voters)
		for i := range voters {
			wg.Add(1)
			go func() {
				defer wg.Done()
				user := string(rune('A' + i))
				_, err := st.UpdateComment(ctx, "b1", "c1", func(c model.Comment) (model.Comment, error) {
					return c.ApplyVote(user, model.VoteLike), nil
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := st.GetCommentByID(ctx, "b1", "c1")
		require.NoError(t, err)
		require.Len(t, got.Likes, voters)
	})

	t.Run("delete", func(t *testing.T) {
		st := newStorage(t)

		for i, id := range []string{"c1", "c2", "c3"} {
			_, err := st.CreateComment(ctx, comment(id, "b1", nil, i))
			require.NoError(t, err)
		}

		removed, err := st.DeleteComments(ctx, "b1", []string{"c1", "c3", "missing"})
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"c1", "c3"}, removed)

		got, err := st.GetCommentsByBook(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "c2", got[0].ID)

		removed, err = st.DeleteComments(ctx, "b1", nil)
		require.NoError(t, err)
		require.Empty(t, removed)
	})
}
