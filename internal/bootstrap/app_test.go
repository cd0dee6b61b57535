package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/gistflow/internal/infra/config"
)

func newTestApp(addr string) *App {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: addr}}
	server := &http.Server{Addr: addr, Handler: http.NotFoundHandler()}
	return NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), server)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	app := newTestApp("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestRunReturnsListenError(t *testing.T) {
	app := newTestApp("127.0.0.1:-1")

	err := app.Run(context.Background())
	require.Error(t, err)
}
