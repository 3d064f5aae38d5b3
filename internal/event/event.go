package event

// Kind identifies the GitHub webhook event that started a run.
type Kind string

const (
	KindIssue            Kind = "issues"
	KindIssueComment     Kind = "issue_comment"
	KindPullRequest      Kind = "pull_request"
	KindPRReview         Kind = "pull_request_review"
	KindPRReviewComment  Kind = "pull_request_review_comment"
	KindPush             Kind = "push"
	KindWorkflowDispatch Kind = "workflow_dispatch"
	KindOther            Kind = "other"
)

// Action defines GitHub event actions we care about.
type Action string

const (
	ActionOpened   Action = "opened"
	ActionCreated  Action = "created"
	ActionEdited   Action = "edited"
	ActionAssigned Action = "assigned"
	ActionLabeled  Action = "labeled"
	ActionClosed   Action = "closed"
)

// TextSource names where a text field came from.
type TextSource string

const (
	SourceTitle   TextSource = "title"
	SourceBody    TextSource = "body"
	SourceComment TextSource = "comment"
	SourceReview  TextSource = "review"
)

// TextField is one searchable text field of an event. Text may be empty for
// null payload fields; trigger matching treats empty as "no match".
type TextField struct {
	Source TextSource
	Text   string
}

// Descriptor is the normalized view of a webhook delivery that trigger
// detection operates on. Built once per delivery, never mutated.
type Descriptor struct {
	Kind          Kind
	Action        Action
	ActorLogin    string
	TextFields    []TextField
	AssigneeLogin string
	LabelName     string
}

// Repository identifies the repository the event belongs to.
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	DefaultBranch string
}

// Comment is the comment that carried the trigger, when there is one.
type Comment struct {
	ID    int64
	Body  string
	User  string
	IsBot bool
}

// Context carries everything downstream steps need about the delivery:
// the trigger descriptor plus repo/branch/number identification.
type Context struct {
	Descriptor Descriptor
	Repository Repository

	IsPR        bool
	IssueNumber int
	PRNumber    int

	BaseBranch string
	HeadBranch string
	PushRef    string

	TriggerComment *Comment
}

// EntityType reports whether this context names a PR, an issue, or neither.
// Used for branch naming.
func (c *Context) EntityType() string {
	switch {
	case c.PRNumber > 0:
		return "pr"
	case c.IssueNumber > 0:
		return "issue"
	default:
		return "run"
	}
}

// EntityNumber returns the PR or issue number, or 0 when the context has
// neither (push, workflow_dispatch).
func (c *Context) EntityNumber() int {
	if c.PRNumber > 0 {
		return c.PRNumber
	}
	return c.IssueNumber
}
