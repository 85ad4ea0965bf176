package kv

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"warden/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestNew_NotConfigured(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	client, err := New(Params{
		Lifecycle: lc,
		Config:    &config.Config{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	assert.Nil(t, client)

	lc.RequireStart().RequireStop()
}

func TestNew_PingsOnStart(t *testing.T) {
	mr := miniredis.RunT(t)
	lc := fxtest.NewLifecycle(t)

	client, err := New(Params{
		Lifecycle: lc,
		Config:    &config.Config{Redis: &config.RedisConfig{Addr: mr.Addr()}},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	require.NotNil(t, client)

	lc.RequireStart()
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	lc.RequireStop()
}

func TestNew_StartFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	lc := fxtest.NewLifecycle(t)
	_, err := New(Params{
		Lifecycle: lc,
		Config:    &config.Config{Redis: &config.RedisConfig{Addr: addr}},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	assert.Error(t, lc.Start(context.Background()))
}
