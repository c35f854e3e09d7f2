package engine

import (
	"context"
	"testing"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/model"
	"github.com/stretchr/testify/require"
)

func TestCreateTaskStartsPending(t *testing.T) {
	e := newTestEngine()
	task, err := e.CreateTask(context.Background(), CreateTaskInput{Title: "index backlog"})
	require.NoError(t, err)
	require.Equal(t, model.TaskPending, task.State)
	require.Nil(t, task.ClaimedBy)
}

func TestCreateTaskRejectsEmptyTitle(t *testing.T) {
	e := newTestEngine()
	_, err := e.CreateTask(context.Background(), CreateTaskInput{})
	require.Error(t, err)
}

func TestTaskFullLifecycle(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	task, err := e.CreateTask(ctx, CreateTaskInput{Title: "index backlog"})
	require.NoError(t, err)

	claimed, err := e.ClaimTask(ctx, task.ID, "agent-1")
	require.NoError(t, err)
	require.Equal(t, model.TaskClaimed, claimed.State)
	require.Equal(t, "agent-1", *claimed.ClaimedBy)

	started, err := e.StartTask(ctx, task.ID, "agent-1")
	require.NoError(t, err)
	require.Equal(t, model.TaskInFlight, started.State)

	done, err := e.CompleteTask(ctx, task.ID, "agent-1", "ok")
	require.NoError(t, err)
	require.Equal(t, model.TaskCompleted, done.State)
	require.Equal(t, "ok", done.Result)
}

func TestClaimTaskRejectsAlreadyClaimed(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	task, err := e.CreateTask(ctx, CreateTaskInput{Title: "index backlog"})
	require.NoError(t, err)
	_, err = e.ClaimTask(ctx, task.ID, "agent-1")
	require.NoError(t, err)

	_, err = e.ClaimTask(ctx, task.ID, "agent-2")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindTaskState, appErr.Kind)
}

func TestStartTaskRejectsWrongClaimant(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	task, err := e.CreateTask(ctx, CreateTaskInput{Title: "index backlog"})
	require.NoError(t, err)
	_, err = e.ClaimTask(ctx, task.ID, "agent-1")
	require.NoError(t, err)

	_, err = e.StartTask(ctx, task.ID, "agent-2")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindTaskState, appErr.Kind)
}

func TestFailTaskRecordsReason(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	task, err := e.CreateTask(ctx, CreateTaskInput{Title: "index backlog"})
	require.NoError(t, err)
	_, err = e.ClaimTask(ctx, task.ID, "agent-1")
	require.NoError(t, err)
	_, err = e.StartTask(ctx, task.ID, "agent-1")
	require.NoError(t, err)

	failed, err := e.FailTask(ctx, task.ID, "agent-1", "timeout")
	require.NoError(t, err)
	require.Equal(t, model.TaskFailed, failed.State)
	require.Equal(t, "timeout", failed.Result)
}

func TestGetTaskNotFound(t *testing.T) {
	e := newTestEngine()
	_, err := e.GetTask(999)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindNotFound, appErr.Kind)
}
