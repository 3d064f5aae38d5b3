package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/juniehq/junie-agent/internal/branch"
)

// PRData is what the GraphQL fetch returns for a pull request: the decision
// inputs plus the text fields the prompt builder wants.
type PRData struct {
	Descriptor branch.PRDescriptor
	Title      string
	Body       string
}

// IssueData mirrors PRData for plain issues.
type IssueData struct {
	Number int
	Title  string
	Body   string
	Author string
	State  string
}

// Fetcher loads PR/issue data over the GitHub GraphQL API.
type Fetcher struct {
	client *githubv4.Client
}

// NewFetcher creates a fetcher authenticated with an installation token.
func NewFetcher(token string) *Fetcher {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Fetcher{client: githubv4.NewClient(oauth2.NewClient(context.Background(), ts))}
}

// NewFetcherWithHTTP creates a fetcher against a custom endpoint, for tests.
func NewFetcherWithHTTP(httpClient *http.Client, endpoint string) *Fetcher {
	return &Fetcher{client: githubv4.NewEnterpriseClient(endpoint, httpClient)}
}

// FetchPR loads the pull request fields the branch decision and prompt need.
// Failures here are hard failures of the run: the error carries the
// repository and PR number, and permanent API errors are not retried.
func (f *Fetcher) FetchPR(ctx context.Context, owner, repo string, number int) (*PRData, error) {
	var query struct {
		Repository struct {
			PullRequest struct {
				Number int
				State  string
				Title  string
				Body   string
				Author struct {
					Login string
				}
				HeadRefName string
				BaseRefName string
			} `graphql:"pullRequest(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"repo":   githubv4.String(repo),
		"number": githubv4.Int(number),
	}

	err := retryWithBackoff(func() error {
		return f.client.Query(ctx, &query, variables)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch pull request %s/%s#%d: %w", owner, repo, number, err)
	}

	pr := query.Repository.PullRequest
	if pr.Number == 0 {
		return nil, fmt.Errorf("fetch pull request %s/%s#%d: not found", owner, repo, number)
	}

	return &PRData{
		Descriptor: branch.PRDescriptor{
			Number:      pr.Number,
			State:       branch.PRState(pr.State),
			AuthorLogin: pr.Author.Login,
			HeadBranch:  pr.HeadRefName,
			BaseBranch:  pr.BaseRefName,
		},
		Title: pr.Title,
		Body:  pr.Body,
	}, nil
}

// FetchIssue loads the issue fields the prompt builder needs.
func (f *Fetcher) FetchIssue(ctx context.Context, owner, repo string, number int) (*IssueData, error) {
	var query struct {
		Repository struct {
			Issue struct {
				Number int
				State  string
				Title  string
				Body   string
				Author struct {
					Login string
				}
			} `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"repo":   githubv4.String(repo),
		"number": githubv4.Int(number),
	}

	err := retryWithBackoff(func() error {
		return f.client.Query(ctx, &query, variables)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch issue %s/%s#%d: %w", owner, repo, number, err)
	}

	issue := query.Repository.Issue
	if issue.Number == 0 {
		return nil, fmt.Errorf("fetch issue %s/%s#%d: not found", owner, repo, number)
	}

	return &IssueData{
		Number: issue.Number,
		Title:  issue.Title,
		Body:   issue.Body,
		Author: issue.Author.Login,
		State:  issue.State,
	}, nil
}
