package run

import (
	"context"
	"fmt"
	"log"

	"github.com/juniehq/junie-agent/internal/taskstore"
	"github.com/juniehq/junie-agent/internal/webhook"
)

// TaskExecutor adapts the runner to the dispatcher's task interface and
// mirrors progress into the task store.
type TaskExecutor struct {
	runner *Runner
	store  *taskstore.Store
}

// NewTaskExecutor creates an executor for dispatched webhook tasks.
func NewTaskExecutor(runner *Runner, store *taskstore.Store) *TaskExecutor {
	return &TaskExecutor{runner: runner, store: store}
}

// Execute runs one webhook task.
func (e *TaskExecutor) Execute(ctx context.Context, task *webhook.Task) error {
	if e.skipSuperseded(task) {
		return nil
	}

	e.updateStatus(task.ID, taskstore.StatusRunning)
	e.addLog(task.ID, "info", fmt.Sprintf("Run started (attempt %d)", task.Attempt))

	outcome, err := e.runner.Execute(ctx, &Request{
		Event:       task.Event,
		Instruction: task.Instruction,
	})
	if err != nil {
		e.updateStatus(task.ID, taskstore.StatusFailed)
		e.addLog(task.ID, "error", err.Error())
		return err
	}

	e.updateStatus(task.ID, taskstore.StatusCompleted)
	if outcome.HasChanges {
		e.addLog(task.ID, "success", fmt.Sprintf("Pushed %s", outcome.WorkingBranch))
	} else {
		e.addLog(task.ID, "success", "Answered without code changes")
	}
	return nil
}

// skipSuperseded drops tasks a newer trigger has replaced while queued.
func (e *TaskExecutor) skipSuperseded(task *webhook.Task) bool {
	if e.store == nil {
		return false
	}
	stored, ok := e.store.Get(task.ID)
	if !ok || stored.Status != taskstore.StatusSuperseded {
		return false
	}
	log.Printf("Skipping superseded task %s", task.ID)
	return true
}

func (e *TaskExecutor) updateStatus(id string, status taskstore.TaskStatus) {
	if e.store != nil {
		e.store.UpdateStatus(id, status)
	}
}

func (e *TaskExecutor) addLog(id, level, message string) {
	if e.store != nil {
		e.store.AddLog(id, level, message)
	}
}
