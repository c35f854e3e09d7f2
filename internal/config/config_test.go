package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigHasUsableDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "memory", cfg.StoreType)
	require.Equal(t, 10, cfg.MaxTraversalDepth)
	require.InDelta(t, 1.0, cfg.SearchKeywordWeight+cfg.SearchVectorWeight, 1e-9)
}

func TestContextRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), &cfg)
	got := FromContext(ctx)
	require.Same(t, &cfg, got)
}

func TestFromContextWithoutConfigReturnsNil(t *testing.T) {
	require.Nil(t, FromContext(context.Background()))
}
