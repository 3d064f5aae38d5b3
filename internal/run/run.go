// Package run orchestrates one agent run end to end: authenticate, report
// status, resolve the working branch, invoke the agent, publish the result.
package run

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/juniehq/junie-agent/internal/agent"
	"github.com/juniehq/junie-agent/internal/branch"
	"github.com/juniehq/junie-agent/internal/config"
	"github.com/juniehq/junie-agent/internal/event"
	"github.com/juniehq/junie-agent/internal/github"
	"github.com/juniehq/junie-agent/internal/githubapp"
	"github.com/juniehq/junie-agent/internal/gitops"
	"github.com/juniehq/junie-agent/internal/prompt"
)

// trackingLabel marks issues and PRs that Junie has worked on.
const trackingLabel = "junie"

// API is the slice of the REST client the runner needs.
type API interface {
	github.CommentAPI
	AddLabel(ctx context.Context, number int, label string) error
	CreatePullRequest(ctx context.Context, head, base, title, body string) (string, error)
}

// DataFetcher loads issue and PR data for the run.
type DataFetcher interface {
	FetchPR(ctx context.Context, owner, repo string, number int) (*github.PRData, error)
	FetchIssue(ctx context.Context, owner, repo string, number int) (*github.IssueData, error)
}

// Request is one unit of agent work, already past trigger detection.
type Request struct {
	Event *event.Context
	// Instruction is the user's request text, stripped of the trigger
	// phrase. Empty means "work from the issue/PR description alone".
	Instruction string
}

// Outcome reports what a completed run produced.
type Outcome struct {
	WorkingBranch string
	BranchURL     string
	PRURL         string
	Summary       string
	HasChanges    bool
}

// Runner executes agent runs.
type Runner struct {
	cfg  *config.Config
	auth githubapp.AuthProvider

	newClient  func(owner, repo, token string) API
	newFetcher func(token string) DataFetcher

	cloneFn        func(repo, branchName, token string) (string, func(), error)
	createBranchFn func(workdir, base, name string) error
	hasChangesFn   func(workdir string) (bool, error)
	commitPushFn   func(workdir, branchName, message, authorName, authorEmail string) error

	agentFn func(ctx context.Context, workdir string, task *prompt.TaskDescriptor) (*agent.Result, error)
}

// New creates a runner wired to the real GitHub API, git and agent CLI.
func New(cfg *config.Config, auth githubapp.AuthProvider) *Runner {
	junie := agent.NewRunner(cfg.JunieBin, cfg.JunieModel)
	return &Runner{
		cfg:  cfg,
		auth: auth,
		newClient: func(owner, repo, token string) API {
			return github.NewClient(owner, repo, token)
		},
		newFetcher: func(token string) DataFetcher {
			return github.NewFetcher(token)
		},
		cloneFn:        gitops.Clone,
		createBranchFn: gitops.CreateBranch,
		hasChangesFn:   gitops.HasChanges,
		commitPushFn:   gitops.CommitAndPush,
		agentFn:        junie.Run,
	}
}

// Execute runs one task. The tracking comment reflects every state change;
// a returned error has already been reported there when possible.
func (r *Runner) Execute(ctx context.Context, req *Request) (*Outcome, error) {
	ev := req.Event
	repo := ev.Repository
	log.Printf("Starting run for %s#%d", repo.FullName, ev.EntityNumber())

	installToken, err := r.auth.GetInstallationToken(repo.FullName)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	log.Printf("Authenticated as GitHub App (token expires at %s)", installToken.ExpiresAt.Format(time.RFC3339))

	tokenOwner, err := r.auth.TokenOwnerLogin()
	if err != nil {
		log.Printf("Warning: could not resolve token owner login: %v", err)
		tokenOwner = ""
	}

	client := r.newClient(repo.Owner, repo.Name, installToken.Token)

	tracker := github.NewCommentTracker(client, ev.EntityNumber(), ev.Descriptor.ActorLogin)
	tracker.StartTime = time.Now()
	if ev.EntityNumber() > 0 {
		if err := tracker.Create(ctx); err != nil {
			log.Printf("Warning: failed to create tracking comment: %v", err)
		} else if err := client.AddLabel(ctx, ev.EntityNumber(), trackingLabel); err != nil {
			log.Printf("Warning: failed to add label: %v", err)
		}
	}

	outcome, err := r.execute(ctx, req, client, tracker, installToken.Token, tokenOwner)
	if err != nil {
		return nil, r.fail(ctx, tracker, err)
	}
	return outcome, nil
}

func (r *Runner) execute(ctx context.Context, req *Request, client API, tracker *github.CommentTracker, token, tokenOwner string) (*Outcome, error) {
	ev := req.Event
	repo := ev.Repository

	// Load the entity the run is about.
	fetcher := r.newFetcher(token)
	var (
		prDesc      *branch.PRDescriptor
		title, body string
	)
	switch {
	case ev.IsPR && ev.PRNumber > 0:
		pr, err := fetcher.FetchPR(ctx, repo.Owner, repo.Name, ev.PRNumber)
		if err != nil {
			return nil, err
		}
		prDesc, title, body = &pr.Descriptor, pr.Title, pr.Body
	case ev.IssueNumber > 0:
		issue, err := fetcher.FetchIssue(ctx, repo.Owner, repo.Name, ev.IssueNumber)
		if err != nil {
			return nil, err
		}
		title, body = issue.Title, issue.Body
	}

	entity := branch.Entity{Type: ev.EntityType(), ID: entityID(ev, r.cfg.RunID)}
	defaultBase := r.cfg.BaseBranch
	if defaultBase == "" {
		defaultBase = repo.DefaultBranch
	}
	decision, err := branch.Select(prDesc, ev.PushRef, entity, defaultBase, branch.DecisionConfig{
		CreateNewBranchForPR: r.cfg.CreateNewBranchForPR,
		ActorLogin:           ev.Descriptor.ActorLogin,
		TokenOwnerLogin:      tokenOwner,
	})
	if err != nil {
		return nil, &NonRetryableError{Err: fmt.Errorf("failed to resolve working branch: %w", err)}
	}
	log.Printf("Branch decision: base=%s working=%s new=%t", decision.BaseBranch, decision.WorkingBranch, decision.IsNewBranch)

	task, err := prompt.Build(prompt.Input{
		Title:            title,
		Body:             body,
		UserInstruction:  req.Instruction,
		IsPR:             ev.IsPR,
		ResolveConflicts: r.cfg.ResolveConflicts,
		TargetBranch:     decision.BaseBranch,
	})
	if err != nil {
		return nil, &NonRetryableError{Err: err}
	}

	// Check out the working tree. A reused branch is cloned directly; a new
	// branch is cut from its base inside the clone.
	cloneBranch := decision.WorkingBranch
	if decision.IsNewBranch {
		cloneBranch = decision.BaseBranch
	}
	workdir, cleanup, err := r.cloneFn(repo.FullName, cloneBranch, token)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}
	defer cleanup()
	log.Printf("Repository cloned to %s", workdir)

	if decision.IsNewBranch {
		if err := r.createBranchFn(workdir, decision.BaseBranch, decision.WorkingBranch); err != nil {
			return nil, fmt.Errorf("failed to create branch %s: %w", decision.WorkingBranch, err)
		}
	}

	branchURL := fmt.Sprintf("https://github.com/%s/tree/%s", repo.FullName, decision.WorkingBranch)
	tracker.SetBranch(decision.WorkingBranch, branchURL)
	if err := tracker.Update(ctx); err != nil {
		log.Printf("Warning: failed to update tracking comment: %v", err)
	}

	result, err := r.agentFn(ctx, workdir, task)
	if err != nil {
		return nil, err
	}

	hasChanges, err := r.hasChangesFn(workdir)
	if err != nil {
		return nil, fmt.Errorf("failed to detect changes: %w", err)
	}

	outcome := &Outcome{
		WorkingBranch: decision.WorkingBranch,
		BranchURL:     branchURL,
		Summary:       result.Summary,
		HasChanges:    hasChanges,
	}

	if !hasChanges {
		log.Printf("No file changes detected, posting answer only")
		tracker.MarkEnd()
		tracker.SetCompleted(result.Summary)
		if err := tracker.Update(ctx); err != nil {
			log.Printf("Warning: failed to update tracking comment: %v", err)
		}
		return outcome, nil
	}

	message := commitMessage(result.Summary, task.Summary)
	if err := r.commitPushFn(workdir, decision.WorkingBranch, message, "", ""); err != nil {
		return nil, fmt.Errorf("failed to commit and push: %w", err)
	}

	if decision.IsNewBranch {
		outcome.PRURL = r.openPullRequest(ctx, client, ev, decision, message, result.Summary)
		tracker.SetPRURL(outcome.PRURL)
	}

	tracker.MarkEnd()
	tracker.SetCompleted(result.Summary)
	if err := tracker.Update(ctx); err != nil {
		log.Printf("Warning: failed to update tracking comment: %v", err)
	}

	log.Printf("Run completed for %s#%d", repo.FullName, ev.EntityNumber())
	return outcome, nil
}

// openPullRequest opens a PR for a freshly pushed branch, falling back to a
// compare link when the API call fails.
func (r *Runner) openPullRequest(ctx context.Context, client API, ev *event.Context, decision branch.Result, title, body string) string {
	number := ev.EntityNumber()
	if number > 0 {
		body = fmt.Sprintf("%s\n\nAddresses #%d", body, number)
	}
	url, err := client.CreatePullRequest(ctx, decision.WorkingBranch, decision.BaseBranch, title, body)
	if err != nil {
		log.Printf("Warning: failed to create pull request: %v", err)
		return fmt.Sprintf("https://github.com/%s/compare/%s...%s?expand=1",
			ev.Repository.FullName, decision.BaseBranch, decision.WorkingBranch)
	}
	return url
}

// fail reports the error on the tracking comment and returns it.
func (r *Runner) fail(ctx context.Context, tracker *github.CommentTracker, runErr error) error {
	tracker.MarkEnd()
	tracker.SetFailed(runErr.Error())
	if err := tracker.Update(ctx); err != nil {
		log.Printf("Warning: failed to update tracking comment with error: %v", err)
	}
	return runErr
}

func entityID(ev *event.Context, runID string) string {
	if n := ev.EntityNumber(); n > 0 {
		return fmt.Sprintf("%d", n)
	}
	if runID != "" {
		return runID
	}
	return fmt.Sprintf("%d", time.Now().Unix())
}

// commitMessage prefers the agent's summary, trimmed to a single subject line.
func commitMessage(summary, fallback string) string {
	msg := strings.TrimSpace(summary)
	if msg == "" {
		msg = strings.TrimSpace(fallback)
	}
	if msg == "" {
		msg = "Junie: automated changes"
	}
	if i := strings.IndexByte(msg, '\n'); i > 0 {
		msg = msg[:i]
	}
	return msg
}
