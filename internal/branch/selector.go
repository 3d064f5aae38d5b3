// Package branch decides whether an agent run reuses an existing PR branch or
// creates a new working branch, and computes the branch name for the latter.
package branch

import (
	"fmt"
	"strings"
)

// PRState is the lifecycle state of a pull request.
type PRState string

const (
	StateOpen   PRState = "OPEN"
	StateClosed PRState = "CLOSED"
	StateMerged PRState = "MERGED"
)

// PRDescriptor is the slice of pull request data the selector needs.
type PRDescriptor struct {
	Number      int
	State       PRState
	AuthorLogin string
	HeadBranch  string
	BaseBranch  string
}

// DecisionConfig carries the configuration and identities the decision
// table evaluates.
type DecisionConfig struct {
	// CreateNewBranchForPR forces a side branch for PR runs triggered by
	// someone other than the PR author.
	CreateNewBranchForPR bool
	// ActorLogin is the user who triggered the run.
	ActorLogin string
	// TokenOwnerLogin is the identity behind the automation's credential.
	TokenOwnerLogin string
}

// Entity identifies what the run is about, for branch naming.
type Entity struct {
	Type string // "pr", "issue" or "run"
	ID   string // PR/issue number or run id
}

// Result is the branch decision consumed by git operations.
type Result struct {
	BaseBranch    string
	WorkingBranch string
	IsNewBranch   bool
}

// maxBranchNameLen caps generated branch names so they stay well inside
// what git and the GitHub API accept.
const maxBranchNameLen = 50

// Select resolves the working branch for a run.
//
// For PR contexts the rules are evaluated in order, first match wins:
//  1. closed or merged PR: always a new branch
//  2. createNewBranchForPR disabled: reuse the PR head
//  3. actor is the PR author: reuse the PR head
//  4. PR author is the token owner (the automation authored the PR): reuse
//  5. otherwise: new branch based on the PR head, not the PR base, so the
//     contributor's current work is carried into the new branch
//
// Non-PR contexts (issue, push, workflow) always create a new branch off
// defaultBase (the push ref for pushes, stripped of refs/heads/, resolved by
// the caller).
func Select(pr *PRDescriptor, pushRef string, entity Entity, defaultBase string, cfg DecisionConfig) (Result, error) {
	if pr != nil {
		return selectForPR(pr, entity, cfg)
	}

	base := defaultBase
	if pushRef != "" {
		base = strings.TrimPrefix(pushRef, "refs/heads/")
	}
	if base == "" {
		return Result{}, fmt.Errorf("cannot resolve base branch: no pull request, push ref or default branch")
	}

	return Result{
		BaseBranch:    base,
		WorkingBranch: NewBranchName(entity),
		IsNewBranch:   true,
	}, nil
}

func selectForPR(pr *PRDescriptor, entity Entity, cfg DecisionConfig) (Result, error) {
	if pr.HeadBranch == "" {
		return Result{}, fmt.Errorf("pull request #%d has no head branch", pr.Number)
	}

	if pr.State == StateClosed || pr.State == StateMerged {
		// Reuse is never appropriate for a closed PR.
		return Result{
			BaseBranch:    pr.BaseBranch,
			WorkingBranch: NewBranchName(entity),
			IsNewBranch:   true,
		}, nil
	}

	reuse := Result{
		BaseBranch:    pr.BaseBranch,
		WorkingBranch: pr.HeadBranch,
		IsNewBranch:   false,
	}

	if !cfg.CreateNewBranchForPR {
		return reuse, nil
	}
	if cfg.ActorLogin != "" && cfg.ActorLogin == pr.AuthorLogin {
		// The PR author triggering their own PR should not fork a side branch.
		return reuse, nil
	}
	if cfg.TokenOwnerLogin != "" && pr.AuthorLogin == cfg.TokenOwnerLogin {
		// The automation's own token previously authored this PR/branch.
		return reuse, nil
	}

	// External contributor's PR: branch off their head, not the nominal base,
	// to avoid losing their changes.
	return Result{
		BaseBranch:    pr.HeadBranch,
		WorkingBranch: NewBranchName(entity),
		IsNewBranch:   true,
	}, nil
}

// NewBranchName builds "junie/<type>-<id>", lowercased and truncated to
// maxBranchNameLen characters.
func NewBranchName(entity Entity) string {
	typ := entity.Type
	if typ == "" {
		typ = "run"
	}
	id := entity.ID
	if id == "" {
		id = "0"
	}

	name := strings.ToLower(fmt.Sprintf("junie/%s-%s", typ, id))
	if len(name) > maxBranchNameLen {
		name = name[:maxBranchNameLen]
	}
	return name
}
