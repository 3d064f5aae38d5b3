package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REPO_OWNER", "acme")
	t.Setenv("REPO_NAME", "widgets")
	t.Setenv("JUNIE_COMMENT_ID", "123456")
	t.Setenv("GITHUB_TOKEN", "test-token")
}

func stubUpdate(t *testing.T, fn func(owner, repo, token string, commentID int64, body string) error) {
	t.Helper()
	prev := updateComment
	t.Cleanup(func() { updateComment = prev })
	updateComment = func(ctx context.Context, owner, repo, token string, commentID int64, body string) error {
		return fn(owner, repo, token, commentID, body)
	}
}

func TestHandleUpdateComment(t *testing.T) {
	setTestEnv(t)

	var gotID int64
	var gotBody string
	stubUpdate(t, func(owner, repo, token string, commentID int64, body string) error {
		if owner != "acme" || repo != "widgets" || token != "test-token" {
			t.Errorf("unexpected target: %s/%s token=%s", owner, repo, token)
		}
		gotID, gotBody = commentID, body
		return nil
	})

	result, _, err := HandleUpdateComment(context.Background(), nil, UpdateCommentParams{Body: "Working on it"})
	if err != nil {
		t.Fatalf("HandleUpdateComment returned error: %v", err)
	}
	if result.IsError {
		t.Fatal("result.IsError = true, want success")
	}
	if gotID != 123456 || gotBody != "Working on it" {
		t.Errorf("updated comment %d with %q", gotID, gotBody)
	}

	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, `"success": true`) {
		t.Errorf("result text = %q, want success payload", text)
	}
}

func TestHandleUpdateComment_MissingBody(t *testing.T) {
	setTestEnv(t)

	_, _, err := HandleUpdateComment(context.Background(), nil, UpdateCommentParams{Body: ""})
	if err == nil {
		t.Error("expected error for empty body")
	}
}

func TestHandleUpdateComment_InvalidCommentID(t *testing.T) {
	setTestEnv(t)
	t.Setenv("JUNIE_COMMENT_ID", "not-a-number")

	_, _, err := HandleUpdateComment(context.Background(), nil, UpdateCommentParams{Body: "content"})
	if err == nil {
		t.Error("expected error for invalid comment ID")
	}
}

func TestHandleUpdateComment_APIFailure(t *testing.T) {
	setTestEnv(t)
	stubUpdate(t, func(owner, repo, token string, commentID int64, body string) error {
		return errors.New("403 Forbidden")
	})

	result, _, err := HandleUpdateComment(context.Background(), nil, UpdateCommentParams{Body: "content"})
	if err != nil {
		t.Fatalf("API failures should be reported via IsError, got %v", err)
	}
	if !result.IsError {
		t.Fatal("result.IsError = false, want true")
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "403 Forbidden") {
		t.Errorf("result text = %q, want API error", text)
	}
}
