package github

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of the progress comment.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusWorking   RunStatus = "working"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// CommentAPI is the slice of the GitHub client the tracker needs.
type CommentAPI interface {
	CreateComment(ctx context.Context, number int, body string) (int64, error)
	UpdateComment(ctx context.Context, commentID int64, body string) error
}

// CommentTracker manages a single GitHub comment throughout a run.
// All status reporting goes through one comment updated in place, rendered
// from the current state.
type CommentTracker struct {
	Number    int
	CommentID int64

	Status        RunStatus
	Username      string
	Summary       string
	ErrorDetails  string
	WorkingBranch string
	BranchURL     string
	PRURL         string
	StartTime     time.Time
	EndTime       time.Time

	client CommentAPI
}

// NewCommentTracker creates a tracker for issue/PR number in the client's
// repository.
func NewCommentTracker(client CommentAPI, number int, username string) *CommentTracker {
	return &CommentTracker{
		Number:   number,
		Username: username,
		Status:   StatusWorking,
		client:   client,
	}
}

// Create posts the initial tracking comment.
func (t *CommentTracker) Create(ctx context.Context) error {
	id, err := t.client.CreateComment(ctx, t.Number, t.renderBody())
	if err != nil {
		return fmt.Errorf("failed to create tracking comment: %w", err)
	}
	t.CommentID = id
	return nil
}

// Update rewrites the tracking comment from the current state.
func (t *CommentTracker) Update(ctx context.Context) error {
	if t.CommentID <= 0 {
		return fmt.Errorf("cannot update comment: not yet created")
	}
	return t.client.UpdateComment(ctx, t.CommentID, t.renderBody())
}

// MarkEnd records the end of the run for the duration footer.
func (t *CommentTracker) MarkEnd() {
	t.EndTime = time.Now()
}

// SetCompleted moves the tracker to the completed state.
func (t *CommentTracker) SetCompleted(summary string) {
	t.Status = StatusCompleted
	t.Summary = summary
}

// SetFailed moves the tracker to the failed state.
func (t *CommentTracker) SetFailed(details string) {
	t.Status = StatusFailed
	t.ErrorDetails = details
}

// SetBranch records the working branch for the links line.
func (t *CommentTracker) SetBranch(name, url string) {
	t.WorkingBranch = name
	t.BranchURL = url
}

// SetPRURL records the created PR for the links line.
func (t *CommentTracker) SetPRURL(url string) {
	t.PRURL = url
}

// renderBody renders the comment body based on current state.
func (t *CommentTracker) renderBody() string {
	username := t.Username
	if username == "" {
		username = "user"
	}

	switch t.Status {
	case StatusQueued:
		return fmt.Sprintf("Junie is queued for @%s's task %s", username, spinner)
	case StatusWorking:
		return fmt.Sprintf("Junie is working on @%s's task %s", username, spinner)
	}

	var sections []string

	headerLine := t.buildHeader()
	if links := t.buildLinks(); links != "" {
		headerLine += " " + links
	}
	sections = append(sections, headerLine)

	switch t.Status {
	case StatusCompleted:
		if t.Summary != "" {
			sections = append(sections, "", t.Summary)
		}
	case StatusFailed:
		if t.ErrorDetails != "" {
			sections = append(sections, "", "```", t.ErrorDetails, "```")
		}
	}

	if footer := t.buildFooter(); footer != "" {
		sections = append(sections, "", footer)
	}

	return strings.Join(sections, "\n")
}

const spinner = `<img src="https://github.githubassets.com/images/spinners/octocat-spinner-32.gif" width="20" height="20" alt="loading" />`

func (t *CommentTracker) buildHeader() string {
	switch t.Status {
	case StatusCompleted:
		return fmt.Sprintf("**Junie finished @%s's task**", t.Username)
	case StatusFailed:
		return fmt.Sprintf("**Junie failed on @%s's task**", t.Username)
	default:
		return fmt.Sprintf("**Junie is working on @%s's task**", t.Username)
	}
}

func (t *CommentTracker) buildLinks() string {
	var links []string
	if t.WorkingBranch != "" && t.BranchURL != "" {
		links = append(links, fmt.Sprintf("[`%s`](%s)", t.WorkingBranch, t.BranchURL))
	}
	if t.PRURL != "" {
		links = append(links, fmt.Sprintf("[Create PR ➔](%s)", t.PRURL))
	}
	if len(links) == 0 {
		return ""
	}
	return "—— " + strings.Join(links, " • ")
}

func (t *CommentTracker) buildFooter() string {
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		return ""
	}
	duration := t.EndTime.Sub(t.StartTime).Round(time.Second)
	return fmt.Sprintf("*Duration: %s*", duration)
}
