package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookcomments/internal/adapter/out/pubsub/inmemory"
	memstore "bookcomments/internal/adapter/out/storage/inmemory"
	"bookcomments/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T, mode service.DeleteMode) (*apiClient, *gin.Engine) {
	t.Helper()

	svc := service.NewCommentService(memstore.NewCommentStorage(), inmemory.New(16), service.Options{DeleteMode: mode})
	r := NewRouter(NewHandler(svc, Options{}), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &apiClient{t: t, router: r}, r
}

func (a *apiClient) do(method, path, user, role string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
		req.Header.Set(HeaderUserName, strings.ToUpper(user))
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *apiClient) create(user, text string, parent *string) CommentDTO {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/api/books/b1/comments", user, "", createCommentBody{Text: text, ParentID: parent})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var out CommentDTO
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	api, _ := newAPI(t, service.DeleteOrphan)
	rec := api.do(http.MethodGet, "/healthz", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestCreateAndReadComments(t *testing.T) {
	t.Parallel()

	api, _ := newAPI(t, service.DeleteOrphan)

	root := api.create("alice", "**hello**", nil)
	require.Equal(t, "alice", root.UserID)
	require.Equal(t, "ALICE", root.UserName)
	require.Contains(t, root.TextHTML, "<strong>hello</strong>")

	reply := api.create("bob", "reply", &root.ID)
	require.Equal(t, root.ID, *reply.ParentID)

	rec := api.do(http.MethodGet, "/api/books/b1/comments/"+root.ID, "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, root.ID, decode[CommentDTO](t, rec).ID)

	rec = api.do(http.MethodGet, "/api/books/b1/comments", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]CommentDTO](t, rec), 2)

	rec = api.do(http.MethodGet, "/api/books/b1/threads", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[PageDTO[ThreadDTO]](t, rec)
	require.Equal(t, 1, page.Count)
	require.Equal(t, root.ID, page.Items[0].ID)
	require.Len(t, page.Items[0].Replies, 1)
	require.Equal(t, reply.ID, page.Items[0].Replies[0].ID)
}

func TestCreateComment_Errors(t *testing.T) {
	t.Parallel()

	api, _ := newAPI(t, service.DeleteOrphan)
	missing := "nope"

	tests := []struct {
		name   string
		user   string
		body   any
		status int
	}{
		{name: "anonymous", body: createCommentBody{Text: "hi"}, status: http.StatusUnauthorized},
		{name: "empty text", user: "alice", body: createCommentBody{Text: "   "}, status: http.StatusBadRequest},
		{name: "unknown parent", user: "alice", body: createCommentBody{Text: "hi", ParentID: &missing}, status: http.StatusBadRequest},
		{name: "malformed body", user: "alice", body: "not an object", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/books/b1/comments", tt.user, "", tt.body)
			require.Equal(t, tt.status, rec.Code)
			require.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestEditComment(t *testing.T) {
	t.Parallel()

	api, _ := newAPI(t, service.DeleteOrphan)
	c := api.create("alice", "first", nil)
	path := "/api/books/b1/comments/" + c.ID

	rec := api.do(http.MethodPatch, path, "bob", "", editCommentBody{Text: "hijack"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPatch, path, "alice", "", editCommentBody{Text: "second"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[CommentDTO](t, rec)
	require.Equal(t, "second", got.Text)
	require.NotNil(t, got.EditedAt)

	rec = api.do(http.MethodPatch, "/api/books/b1/comments/missing", "alice", "", editCommentBody{Text: "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVote(t *testing.T) {
	t.Parallel()

	api, _ := newAPI(t, service.DeleteOrphan)
	c := api.create("alice", "vote on me", nil)
	base := "/api/books/b1/comments/" + c.ID

	rec := api.do(http.MethodPost, base+"/like", "bob", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[CommentDTO](t, rec)
	require.Equal(t, 1, got.Likes)
	require.Equal(t, "like", string(got.MyVote))

	rec = api.do(http.MethodPost, base+"/dislike", "bob", "", nil)
	got = decode[CommentDTO](t, rec)
	require.Equal(t, 0, got.Likes)
	require.Equal(t, 1, got.Dislikes)
	require.Equal(t, "dislike", string(got.MyVote))

	rec = api.do(http.MethodPost, base+"/dislike", "bob", "", nil)
	got = decode[CommentDTO](t, rec)
	require.Equal(t, 0, got.Dislikes)
	require.Empty(t, got.MyVote)

	rec = api.do(http.MethodPost, base+"/like", "", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, base+"/upvote", "bob", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteComment(t *testing.T) {
	t.Parallel()

	t.Run("orphan", func(t *testing.T) {
		api, _ := newAPI(t, service.DeleteOrphan)
		root := api.create("alice", "root", nil)
		reply := api.create("bob", "reply", &root.ID)

		rec := api.do(http.MethodDelete, "/api/books/b1/comments/"+root.ID, "bob", "", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = api.do(http.MethodDelete, "/api/books/b1/comments/"+root.ID, "alice", "", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = api.do(http.MethodGet, "/api/books/b1/threads", "", "", nil)
		page := decode[PageDTO[ThreadDTO]](t, rec)
		require.Equal(t, 1, page.Count)
		require.Equal(t, reply.ID, page.Items[0].ID, "the reply surfaces as a root")
	})

	t.Run("cascade by moderator", func(t *testing.T) {
		api, _ := newAPI(t, service.DeleteCascade)
		root := api.create("alice", "root", nil)
		api.create("bob", "reply", &root.ID)
		other := api.create("carol", "other", nil)

		rec := api.do(http.MethodDelete, "/api/books/b1/comments/"+root.ID, "mod", "moderator", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = api.do(http.MethodGet, "/api/books/b1/comments", "", "", nil)
		left := decode[[]CommentDTO](t, rec)
		require.Len(t, left, 1)
		require.Equal(t, other.ID, left[0].ID)
	})
}

func TestGetThreads_Pagination(t *testing.T) {
	t.Parallel()

	api, _ := newAPI(t, service.DeleteOrphan)
	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		ids = append(ids, api.create("alice", text, nil).ID)
		time.Sleep(2 * time.Millisecond)
	}

	rec := api.do(http.MethodGet, "/api/books/b1/threads?limit=2", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[PageDTO[ThreadDTO]](t, rec)
	require.Equal(t, []string{ids[2], ids[1]}, []string{first.Items[0].ID, first.Items[1].ID})
	require.True(t, first.HasNextPage)

	rec = api.do(http.MethodGet, "/api/books/b1/threads?limit=2&after="+*first.EndCursor, "", "", nil)
	second := decode[PageDTO[ThreadDTO]](t, rec)
	require.Equal(t, 1, second.Count)
	require.Equal(t, ids[0], second.Items[0].ID)
	require.False(t, second.HasNextPage)

	rec = api.do(http.MethodGet, "/api/books/b1/threads?limit=abc", "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/api/books/b1/threads?after=garbage", "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStream(t *testing.T) {
	t.Parallel()

	api, router := newAPI(t, service.DeleteOrphan)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/books/b1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	created := api.create("alice", "live", nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev EventDTO
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "created", string(ev.Type))
	require.Equal(t, created.ID, ev.CommentID)
	require.NotNil(t, ev.Comment)
	require.Equal(t, "live", ev.Comment.Text)
}
