package github

import (
	"context"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v66/github"
)

// CleanupOptions controls stale working-branch removal.
type CleanupOptions struct {
	// MaxAge is how long an untouched branch is kept. Default 30 days.
	MaxAge time.Duration

	// DryRun reports what would be deleted without deleting.
	DryRun bool

	// Prefix filters branches; default "junie/".
	Prefix string
}

// CleanupStaleBranches deletes junie/* branches whose last commit is older
// than MaxAge. Returns the names of deleted (or would-be deleted) branches.
func (c *Client) CleanupStaleBranches(ctx context.Context, opts CleanupOptions) ([]string, error) {
	if opts.Prefix == "" {
		opts.Prefix = "junie/"
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 30 * 24 * time.Hour
	}

	refs, _, err := c.gh.Git.ListMatchingRefs(ctx, c.owner, c.repo, &gogithub.ReferenceListOptions{
		Ref: "heads/" + opts.Prefix,
	})
	if err != nil {
		return nil, err
	}

	deleted := []string{}
	now := time.Now()

	for _, ref := range refs {
		commit, _, err := c.gh.Repositories.GetCommit(ctx, c.owner, c.repo, ref.GetObject().GetSHA(), nil)
		if err != nil {
			continue
		}

		commitDate := commit.GetCommit().GetAuthor().GetDate().Time
		if now.Sub(commitDate) <= opts.MaxAge {
			continue
		}

		branchName := strings.TrimPrefix(ref.GetRef(), "refs/heads/")
		if !opts.DryRun {
			if err := c.DeleteBranch(ctx, branchName); err != nil {
				continue
			}
		}
		deleted = append(deleted, branchName)
	}

	return deleted, nil
}
