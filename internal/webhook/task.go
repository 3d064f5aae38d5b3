package webhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/juniehq/junie-agent/internal/event"
)

// Task is one unit of agent work accepted from a webhook delivery.
type Task struct {
	ID          string
	Event       *event.Context
	Instruction string
	// Attempt is the current attempt number, managed by the dispatcher.
	Attempt int
}

// Key identifies the issue/PR the task belongs to. Tasks with the same key
// are serialised by the dispatcher.
func (t *Task) Key() string {
	return fmt.Sprintf("%s#%d", t.Event.Repository.FullName, t.Event.EntityNumber())
}

func generateTaskID(repo string, number int) string {
	sanitized := strings.ReplaceAll(repo, "/", "-")
	return fmt.Sprintf("%s-%d-%d", sanitized, number, time.Now().UnixNano())
}
