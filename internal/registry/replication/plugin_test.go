package replication

import (
	"context"
	"testing"

	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/config"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndSelect(t *testing.T) {
	saved := plugins
	t.Cleanup(func() { plugins = saved })
	plugins = nil

	Register(Plugin{Name: "stub", Loader: func(ctx context.Context, cfg *config.Config) (capability.ReplicationSink, error) {
		return nil, nil
	}})
	require.Contains(t, Names(), "stub")

	loader, err := Select("stub")
	require.NoError(t, err)
	require.NotNil(t, loader)
}

func TestSelectUnknownReturnsError(t *testing.T) {
	saved := plugins
	t.Cleanup(func() { plugins = saved })
	plugins = nil

	_, err := Select("bogus")
	require.Error(t, err)
}
