package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"bookcomments/config"

	"github.com/stretchr/testify/require"
)

func TestNewApp_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.CORSOrigins = []string{"https://books.example"}

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	preflight := httptest.NewRequest(http.MethodOptions, "/api/books/b1/comments", nil)
	preflight.Header.Set("Origin", "https://books.example")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight.Header.Set("Access-Control-Request-Headers", "content-type,x-user-id")
	rec = httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, preflight)
	require.Equal(t, "https://books.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "x-user-id")
}

func TestNewApp_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.StorageType = config.StorageSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "comments.db")

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	comments, err := a.Service().GetComments(context.Background(), "b1")
	require.NoError(t, err)
	require.Empty(t, comments)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Port = "0"

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
