package postgres

import (
	"testing"
	"time"

	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/stretchr/testify/require"
)

func TestMemoryRowRoundTrip(t *testing.T) {
	agentID := "agent-1"
	now := time.Now().UTC().Truncate(time.Second)
	in := []model.Memory{{
		ID: 1, Content: "hello", Kind: model.KindFact, AgentID: &agentID, Confidence: 0.9,
		CreatedAt: now, UpdatedAt: now, ValidFrom: now, Tags: []string{"a", "b"}, Source: "test",
	}}
	rows := memoryRowsFrom(in)
	require.Len(t, rows, 1)
	require.Equal(t, "a,b", rows[0].Tags)

	out := memoriesFrom(rows)
	require.Equal(t, in, out)
}

func TestMemoryRowRoundTripEmptyTags(t *testing.T) {
	rows := memoryRowsFrom([]model.Memory{{ID: 1, Content: "x"}})
	out := memoriesFrom(rows)
	require.Nil(t, out[0].Tags)
}

func TestTaskRowRoundTrip(t *testing.T) {
	claimant := "agent-2"
	now := time.Now().UTC().Truncate(time.Second)
	in := []model.Task{{ID: 7, Title: "do it", State: model.TaskClaimed, ClaimedBy: &claimant, CreatedAt: now, UpdatedAt: now}}
	out := tasksFrom(taskRowsFrom(in))
	require.Equal(t, in, out)
}

func TestAgentRowRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	in := []model.Agent{{AgentID: "a1", Name: "scout", Capabilities: []string{"search", "embed"}, Status: model.AgentOnline, LastSeen: now}}
	out := agentsFrom(agentRowsFrom(in))
	require.Equal(t, in, out)
}
