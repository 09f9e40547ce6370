package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := Connect(context.Background(), " "+srv.Addr()+" ,")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := srv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectOrFallback(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, cleanup := ConnectOrFallback(context.Background(), "", logger)
	defer cleanup()
	assert.Nil(t, client)

	client, cleanup = ConnectOrFallback(context.Background(), "127.0.0.1:1", logger)
	defer cleanup()
	assert.Nil(t, client)
}
