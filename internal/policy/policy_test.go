package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestDefaultPolicyAllowsOwningAgent(t *testing.T) {
	e, err := New(context.Background(), "")
	require.NoError(t, err)

	allowed, err := e.IsAllowed(context.Background(), "read",
		Subject{OwnerAgentID: strp("agent-1")},
		Context{AgentID: "agent-1"})
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestDefaultPolicyDeniesNonOwningAgent(t *testing.T) {
	e, err := New(context.Background(), "")
	require.NoError(t, err)

	allowed, err := e.IsAllowed(context.Background(), "read",
		Subject{OwnerAgentID: strp("agent-1")},
		Context{AgentID: "agent-2"})
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestDefaultPolicyAllowsUnownedMemory(t *testing.T) {
	e, err := New(context.Background(), "")
	require.NoError(t, err)

	allowed, err := e.IsAllowed(context.Background(), "read", Subject{}, Context{AgentID: "agent-2"})
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestDefaultPolicyAllowsOwningUser(t *testing.T) {
	e, err := New(context.Background(), "")
	require.NoError(t, err)

	allowed, err := e.IsAllowed(context.Background(), "write",
		Subject{OwnerUserID: strp("alice")},
		Context{UserID: "alice"})
	require.NoError(t, err)
	require.True(t, allowed)
}
