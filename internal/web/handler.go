// Package web serves a small status UI over the task store.
package web

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/juniehq/junie-agent/internal/taskstore"
)

const listTemplate = `<!DOCTYPE html>
<html>
<head><title>Junie Tasks</title></head>
<body>
<h1>Junie Tasks</h1>
<table border="1" cellpadding="6">
<tr><th></th><th>Task</th><th>Repo</th><th>Issue</th><th>Actor</th><th>Status</th><th>Updated</th></tr>
{{range .Tasks}}
<tr>
<td style="color:{{statusColor .Status}}">{{statusIcon .Status}}</td>
<td><a href="/tasks/{{.ID}}">{{.Title}}</a></td>
<td>{{.RepoOwner}}/{{.RepoName}}</td>
<td>#{{.IssueNumber}}</td>
<td>{{.Actor}}</td>
<td>{{.Status}}</td>
<td>{{.UpdatedAt.Format "2006-01-02 15:04:05"}}</td>
</tr>
{{end}}
</table>
</body>
</html>`

const detailTemplate = `<!DOCTYPE html>
<html>
<head><title>Task {{.Task.ID}}</title></head>
<body>
<p><a href="/tasks">&larr; all tasks</a></p>
<h1>{{.Task.Title}}</h1>
<p>{{.Task.RepoOwner}}/{{.Task.RepoName}}#{{.Task.IssueNumber}} by {{.Task.Actor}}</p>
<p style="color:{{statusColor .Task.Status}}">{{statusIcon .Task.Status}} {{.Task.Status}}</p>
<h2>Log</h2>
<ul>
{{range .Task.Logs}}
<li><span style="color:{{logLevelColor .Level}}">[{{.Level}}]</span> {{.Timestamp.Format "15:04:05"}} {{.Message}}</li>
{{end}}
</ul>
</body>
</html>`

// Handler renders the task list and task detail pages.
type Handler struct {
	store     *taskstore.Store
	templates *template.Template
}

// NewHandler creates a web handler over the given store.
func NewHandler(store *taskstore.Store) (*Handler, error) {
	tmpl := template.New("web").Funcs(template.FuncMap{
		"statusColor":   statusColor,
		"statusIcon":    statusIcon,
		"logLevelColor": logLevelColor,
	})

	var err error
	if tmpl, err = tmpl.New("task_list").Parse(listTemplate); err != nil {
		return nil, err
	}
	if tmpl, err = tmpl.New("task_detail").Parse(detailTemplate); err != nil {
		return nil, err
	}

	return &Handler{store: store, templates: tmpl}, nil
}

// RegisterRoutes registers the UI routes on the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tasks", h.ListTasks).Methods("GET")
	r.HandleFunc("/tasks/{id}", h.TaskDetail).Methods("GET")
}

// ListTasks renders the task list page.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Tasks []*taskstore.Task
	}{
		Tasks: h.store.List(),
	}

	if err := h.templates.ExecuteTemplate(w, "task_list", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// TaskDetail renders one task with its log.
func (h *Handler) TaskDetail(w http.ResponseWriter, r *http.Request) {
	task, ok := h.store.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	data := struct {
		Task *taskstore.Task
	}{
		Task: task,
	}

	if err := h.templates.ExecuteTemplate(w, "task_detail", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func statusColor(status taskstore.TaskStatus) string {
	switch status {
	case taskstore.StatusPending:
		return "#6c757d"
	case taskstore.StatusRunning:
		return "#0d6efd"
	case taskstore.StatusCompleted:
		return "#198754"
	case taskstore.StatusFailed:
		return "#dc3545"
	case taskstore.StatusSuperseded:
		return "#adb5bd"
	default:
		return "#6c757d"
	}
}

func statusIcon(status taskstore.TaskStatus) string {
	switch status {
	case taskstore.StatusPending:
		return "○"
	case taskstore.StatusRunning:
		return "⟳"
	case taskstore.StatusCompleted:
		return "✓"
	case taskstore.StatusFailed:
		return "✗"
	case taskstore.StatusSuperseded:
		return "⤳"
	default:
		return "○"
	}
}

func logLevelColor(level string) string {
	switch strings.ToLower(level) {
	case "error":
		return "#dc3545"
	case "success":
		return "#198754"
	case "info":
		return "#0d6efd"
	default:
		return "#6c757d"
	}
}
