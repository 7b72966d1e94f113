package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_DefaultWhenMissing(t *testing.T) {
	t.Parallel()

	require.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWithLogger_RoundTrip(t *testing.T) {
	t.Parallel()

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), l)
	require.Same(t, l, FromContext(ctx))
}

func TestNew_AutoFallsBackToJSONForNonTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Options{Level: "info", Format: "auto", Output: &buf})
	require.NoError(t, err)

	l.Info("comment created", "book_id", "b1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "comment created", rec["msg"])
	require.Equal(t, "b1", rec["book_id"])
}

func TestNew_ConsoleAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Format: "console", Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.True(t, strings.Contains(buf.String(), "msg=shown"))
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Format: "xml"})
	require.Error(t, err)

	_, err = New(Options{Level: "loud"})
	require.Error(t, err)
}
