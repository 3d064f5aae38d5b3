// Package webhook accepts GitHub webhook deliveries, filters them down to
// triggered agent runs, and hands tasks to the dispatcher.
package webhook

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/juniehq/junie-agent/internal/event"
	"github.com/juniehq/junie-agent/internal/prompt"
	"github.com/juniehq/junie-agent/internal/taskstore"
	"github.com/juniehq/junie-agent/internal/trigger"
)

// TaskDispatcher enqueues tasks for asynchronous execution.
type TaskDispatcher interface {
	Enqueue(task *Task) error
}

// Handler handles GitHub webhook events.
type Handler struct {
	webhookSecret string
	triggers      trigger.Config
	dispatcher    TaskDispatcher
	deduper       *commentDeduper
	store         *taskstore.Store
}

// NewHandler creates a new webhook handler.
func NewHandler(webhookSecret string, triggers trigger.Config, dispatcher TaskDispatcher, store *taskstore.Store) *Handler {
	return &Handler{
		webhookSecret: webhookSecret,
		triggers:      triggers,
		dispatcher:    dispatcher,
		deduper:       newCommentDeduper(12 * time.Hour),
		store:         store,
	}
}

// Handle processes one webhook delivery.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading payload: %v", err)
		http.Error(w, "Error reading payload", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Hub-Signature-256")
	if err := ValidateSignatureHeader(signature); err != nil {
		log.Printf("Invalid signature header: %v", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}
	if !VerifySignature(payload, signature, h.webhookSecret) {
		log.Printf("Signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-GitHub-Event")
	ev, err := event.Parse(eventType, payload)
	if err != nil {
		log.Printf("Ignoring delivery: %v", err)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Event ignored"))
		return
	}

	// Bot comments never trigger runs, or the agent would react to its own
	// status comments.
	if ev.TriggerComment != nil && ev.TriggerComment.IsBot {
		log.Printf("Ignoring comment from bot: %s", ev.TriggerComment.User)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Bot comment ignored"))
		return
	}

	if !trigger.Detect(ev.Descriptor, h.triggers) {
		log.Printf("No trigger in %s/%s from %s", ev.Descriptor.Kind, ev.Descriptor.Action, ev.Descriptor.ActorLogin)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("No trigger found"))
		return
	}

	if ev.TriggerComment != nil && !h.deduper.markIfNew(ev.TriggerComment.ID) {
		log.Printf("Ignoring duplicate comment: id=%d", ev.TriggerComment.ID)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Duplicate comment ignored"))
		return
	}

	var instruction string
	if ev.TriggerComment != nil {
		instruction, _ = prompt.ExtractInstruction(ev.TriggerComment.Body, h.triggers.Phrase)
	}

	task := &Task{
		ID:          generateTaskID(ev.Repository.FullName, ev.EntityNumber()),
		Event:       ev,
		Instruction: instruction,
	}

	h.createStoreTask(task)

	log.Printf("Received task: repo=%s, number=%d, user=%s",
		ev.Repository.FullName, ev.EntityNumber(), ev.Descriptor.ActorLogin)

	h.enqueueTask(w, task)
}

func (h *Handler) createStoreTask(task *Task) {
	if h.store == nil {
		return
	}

	ev := task.Event
	st := &taskstore.Task{
		ID:          task.ID,
		Title:       taskTitle(task),
		Status:      taskstore.StatusPending,
		RepoOwner:   ev.Repository.Owner,
		RepoName:    ev.Repository.Name,
		IssueNumber: ev.EntityNumber(),
		Actor:       ev.Descriptor.ActorLogin,
	}
	h.store.Create(st)
	h.store.AddLog(task.ID, "info", "Task queued")

	// Newest trigger wins: older queued tasks for the same issue are
	// superseded, not run twice.
	if n := h.store.SupersedeOlder(ev.Repository.Owner, ev.Repository.Name, ev.EntityNumber(), task.ID); n > 0 {
		log.Printf("Superseded %d older task(s) for %s", n, task.Key())
		h.store.AddLog(task.ID, "info", fmt.Sprintf("Superseded %d older task(s)", n))
	}
}

func taskTitle(task *Task) string {
	if task.Instruction != "" {
		return task.Instruction
	}
	return task.Key()
}

func (h *Handler) enqueueTask(w http.ResponseWriter, task *Task) {
	if err := h.dispatcher.Enqueue(task); err != nil {
		log.Printf("Failed to enqueue task: %v", err)
		switch {
		case errors.Is(err, ErrQueueFull):
			http.Error(w, "Task queue is busy, try again later", http.StatusServiceUnavailable)
		case errors.Is(err, ErrQueueClosed):
			http.Error(w, "Task queue unavailable", http.StatusServiceUnavailable)
		default:
			http.Error(w, "Failed to enqueue task", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("Task queued"))
}
