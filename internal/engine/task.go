package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/nodenestor/hiveminddb/internal/apperr"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/idalloc"
	"github.com/nodenestor/hiveminddb/internal/model"
)

// CreateTaskInput is the caller-supplied content of a new coordination
// task (spec.md §3: "Task").
type CreateTaskInput struct {
	Title       string
	Description string
}

// CreateTask creates a task in the Pending state.
func (e *Engine) CreateTask(ctx context.Context, in CreateTaskInput) (model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return model.Task{}, apperr.Validation("title", "must not be empty")
	}
	now := e.clock()
	t := model.Task{
		ID:          e.ids.Next(idalloc.KindTask),
		Title:       in.Title,
		Description: in.Description,
		State:       model.TaskPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.store.Tasks.Insert(t.ID, t)
	e.publish(ctx, capability.EventTaskCreated, "", t)
	return t, nil
}

// GetTask returns one task by id.
func (e *Engine) GetTask(id uint64) (model.Task, error) {
	t, ok := e.store.Tasks.Get(id)
	if !ok {
		return model.Task{}, apperr.NotFound("task", id)
	}
	return t, nil
}

// ListTasks returns every task.
func (e *Engine) ListTasks() []model.Task {
	return e.store.Tasks.IterSnapshot()
}

// ClaimTask transitions Pending -> Claimed. Unlike every other
// transition, claiming does not require the caller to already be the
// claimant: it requires the task to currently be unclaimed (spec.md §3:
// "Pending->Claimed ... requires it to be unclaimed").
func (e *Engine) ClaimTask(ctx context.Context, id uint64, agentID string) (model.Task, error) {
	if strings.TrimSpace(agentID) == "" {
		return model.Task{}, apperr.Validation("agentId", "must not be empty")
	}
	return e.transitionTask(ctx, id, func(t model.Task) (model.Task, error) {
		if t.State != model.TaskPending {
			return t, apperr.TaskState("task " + taskIDStr(id) + " is not pending")
		}
		t.State = model.TaskClaimed
		t.ClaimedBy = &agentID
		return t, nil
	})
}

// StartTask transitions Claimed -> InProgress. agentID must match the
// claimant (spec.md §3).
func (e *Engine) StartTask(ctx context.Context, id uint64, agentID string) (model.Task, error) {
	return e.transitionTask(ctx, id, func(t model.Task) (model.Task, error) {
		if t.State != model.TaskClaimed {
			return t, apperr.TaskState("task " + taskIDStr(id) + " is not claimed")
		}
		if err := requireClaimant(t, agentID, id); err != nil {
			return t, err
		}
		t.State = model.TaskInFlight
		return t, nil
	})
}

// CompleteTask transitions InProgress -> Completed. agentID must match
// the claimant.
func (e *Engine) CompleteTask(ctx context.Context, id uint64, agentID, result string) (model.Task, error) {
	return e.transitionTask(ctx, id, func(t model.Task) (model.Task, error) {
		if t.State != model.TaskInFlight {
			return t, apperr.TaskState("task " + taskIDStr(id) + " is not in progress")
		}
		if err := requireClaimant(t, agentID, id); err != nil {
			return t, err
		}
		t.State = model.TaskCompleted
		t.Result = result
		return t, nil
	})
}

// FailTask transitions InProgress -> Failed. agentID must match the
// claimant.
func (e *Engine) FailTask(ctx context.Context, id uint64, agentID, reason string) (model.Task, error) {
	return e.transitionTask(ctx, id, func(t model.Task) (model.Task, error) {
		if t.State != model.TaskInFlight {
			return t, apperr.TaskState("task " + taskIDStr(id) + " is not in progress")
		}
		if err := requireClaimant(t, agentID, id); err != nil {
			return t, err
		}
		t.State = model.TaskFailed
		t.Result = reason
		return t, nil
	})
}

func requireClaimant(t model.Task, agentID string, id uint64) error {
	if t.ClaimedBy == nil || *t.ClaimedBy != agentID {
		return apperr.TaskState("task " + taskIDStr(id) + " claimant mismatch")
	}
	return nil
}

// transitionTask fetches the task, applies fn, and persists the result
// unless fn returns an error (in which case the store is left untouched).
func (e *Engine) transitionTask(ctx context.Context, id uint64, fn func(model.Task) (model.Task, error)) (model.Task, error) {
	existing, ok := e.store.Tasks.Get(id)
	if !ok {
		return model.Task{}, apperr.NotFound("task", id)
	}
	next, err := fn(existing)
	if err != nil {
		return model.Task{}, err
	}
	next.UpdatedAt = e.clock()
	e.store.Tasks.UpdateInPlace(id, func(model.Task) model.Task { return next })
	e.publish(ctx, capability.EventTaskStateChanged, "", next)
	return next, nil
}

func taskIDStr(id uint64) string {
	return strconv.FormatUint(id, 10)
}
