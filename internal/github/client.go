package github

import (
	"context"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub REST API for a single repository.
type Client struct {
	gh    *gogithub.Client
	owner string
	repo  string
}

// NewClient creates a REST client authenticated with an installation token.
func NewClient(owner, repo, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &Client{
		gh:    gogithub.NewClient(httpClient),
		owner: owner,
		repo:  repo,
	}
}

// NewClientWithHTTP creates a client against a custom API endpoint.
// Used by tests to point at a local server.
func NewClientWithHTTP(owner, repo string, httpClient *http.Client, baseURL string) (*Client, error) {
	gh := gogithub.NewClient(httpClient)
	if baseURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configure base URL: %w", err)
		}
	}
	return &Client{gh: gh, owner: owner, repo: repo}, nil
}

// CreateComment creates an issue/PR comment and returns its ID.
func (c *Client) CreateComment(ctx context.Context, number int, body string) (int64, error) {
	var commentID int64
	err := retryWithBackoff(func() error {
		comment, _, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, number, &gogithub.IssueComment{
			Body: gogithub.String(body),
		})
		if err != nil {
			return fmt.Errorf("create comment on %s/%s#%d: %w", c.owner, c.repo, number, err)
		}
		commentID = comment.GetID()
		return nil
	})
	return commentID, err
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, commentID int64, body string) error {
	return retryWithBackoff(func() error {
		_, _, err := c.gh.Issues.EditComment(ctx, c.owner, c.repo, commentID, &gogithub.IssueComment{
			Body: gogithub.String(body),
		})
		if err != nil {
			return fmt.Errorf("update comment %d on %s/%s: %w", commentID, c.owner, c.repo, err)
		}
		return nil
	})
}

// AddLabel adds a label to an issue or PR.
func (c *Client) AddLabel(ctx context.Context, number int, label string) error {
	return retryWithBackoff(func() error {
		_, _, err := c.gh.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, number, []string{label})
		if err != nil {
			return fmt.Errorf("add label %q to %s/%s#%d: %w", label, c.owner, c.repo, number, err)
		}
		return nil
	})
}

// CreatePullRequest opens a PR from head to base and returns its URL.
func (c *Client) CreatePullRequest(ctx context.Context, head, base, title, body string) (string, error) {
	var url string
	err := retryWithBackoff(func() error {
		pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &gogithub.NewPullRequest{
			Title: gogithub.String(title),
			Head:  gogithub.String(head),
			Base:  gogithub.String(base),
			Body:  gogithub.String(body),
		})
		if err != nil {
			return fmt.Errorf("create PR %s -> %s on %s/%s: %w", head, base, c.owner, c.repo, err)
		}
		url = pr.GetHTMLURL()
		return nil
	})
	return url, err
}

// DeleteBranch removes a branch ref.
func (c *Client) DeleteBranch(ctx context.Context, name string) error {
	_, err := c.gh.Git.DeleteRef(ctx, c.owner, c.repo, "heads/"+name)
	if err != nil {
		return fmt.Errorf("delete branch %q on %s/%s: %w", name, c.owner, c.repo, err)
	}
	return nil
}
