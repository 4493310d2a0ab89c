package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerTravelsInContext(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", "json", &buf)
	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Debug("decoded", "class", "p.C")
	require.Contains(t, buf.String(), `"class":"p.C"`)
}

func TestMissingLoggerDiscards(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	require.False(t, l.Enabled(context.Background(), slog.LevelError))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	require.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}
