package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)

	client, err := NewClient(context.Background(), fmt.Sprintf("redis://%s/2", s.Addr()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())

	s.Select(2)
	assert.True(t, s.Exists("k"), "key should land in the database named by the URL")
}

func TestNewClientErrors(t *testing.T) {
	down := miniredis.RunT(t)
	downURL := fmt.Sprintf("redis://%s", down.Addr())
	down.Close()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	up := miniredis.RunT(t)

	tests := []struct {
		name string
		ctx  context.Context
		url  string
	}{
		{name: "invalid url", ctx: context.Background(), url: "://bad-url"},
		{name: "wrong scheme", ctx: context.Background(), url: "http://localhost:6379"},
		{name: "server down", ctx: context.Background(), url: downURL},
		{name: "context canceled", ctx: canceled, url: fmt.Sprintf("redis://%s", up.Addr())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.ctx, tt.url)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}
