// Package taskstore keeps an in-memory record of accepted runs for the
// status UI. It is not durable; a restart starts with an empty list.
package taskstore

import (
	"sort"
	"sync"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusRunning    TaskStatus = "running"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusSuperseded TaskStatus = "superseded"
)

type Task struct {
	ID          string
	Title       string
	Status      TaskStatus
	RepoOwner   string
	RepoName    string
	IssueNumber int
	Actor       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Logs        []LogEntry
}

type LogEntry struct {
	Timestamp time.Time
	Level     string // info, error, success
	Message   string
}

type Store struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*Task),
	}
}

func (s *Store) Create(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	s.tasks[task.ID] = task
}

// Get returns a copy of the task. Workers keep appending logs after a task
// is handed out, so live internals never leave the lock.
func (s *Store) Get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return task.snapshot(), true
}

// List returns copies of all tasks sorted by creation time, newest first.
func (s *Store) List() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.snapshot())
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}

func (t *Task) snapshot() *Task {
	copied := *t
	copied.Logs = append([]LogEntry(nil), t.Logs...)
	return &copied
}

func (s *Store) UpdateStatus(id string, status TaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.Status = status
		task.UpdatedAt = time.Now()
	}
}

func (s *Store) AddLog(id string, level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task, ok := s.tasks[id]; ok {
		task.Logs = append(task.Logs, LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   message,
		})
		task.UpdatedAt = time.Now()
	}
}

// SupersedeOlder marks pending tasks for the same issue as superseded so
// only the newest trigger runs. Tasks already running are left alone; the
// per-key lock in the dispatcher keeps them from overlapping anyway.
// Returns the number of tasks affected.
func (s *Store) SupersedeOlder(owner, name string, issueNumber int, keepID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := 0
	for id, task := range s.tasks {
		if id == keepID {
			continue
		}
		if task.RepoOwner != owner || task.RepoName != name || task.IssueNumber != issueNumber {
			continue
		}
		if task.Status != StatusPending {
			continue
		}
		task.Status = StatusSuperseded
		task.UpdatedAt = time.Now()
		task.Logs = append(task.Logs, LogEntry{
			Timestamp: time.Now(),
			Level:     "info",
			Message:   "Superseded by a newer trigger comment",
		})
		affected++
	}
	return affected
}
