package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parse normalizes a raw GitHub webhook payload into a Context.
// Unsupported event types come back as KindOther with an error so the caller
// can fail the run with a clear message.
func Parse(eventType string, payload []byte) (*Context, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	ctx := &Context{
		Descriptor: Descriptor{
			Kind:   Kind(eventType),
			Action: Action(getStringField(data, "action")),
		},
	}

	if repo, ok := data["repository"].(map[string]interface{}); ok {
		ctx.Repository = Repository{
			Owner:         getStringField(repo, "owner", "login"),
			Name:          getStringField(repo, "name"),
			FullName:      getStringField(repo, "full_name"),
			DefaultBranch: getStringField(repo, "default_branch"),
		}
	}

	if sender, ok := data["sender"].(map[string]interface{}); ok {
		ctx.Descriptor.ActorLogin = getStringField(sender, "login")
	}

	switch Kind(eventType) {
	case KindIssue:
		return parseIssue(ctx, data)
	case KindIssueComment:
		return parseIssueComment(ctx, data)
	case KindPullRequest:
		return parsePullRequest(ctx, data)
	case KindPRReview:
		return parsePullRequestReview(ctx, data)
	case KindPRReviewComment:
		return parsePullRequestReviewComment(ctx, data)
	case KindPush:
		return parsePush(ctx, data)
	case KindWorkflowDispatch:
		return parseWorkflowDispatch(ctx, data)
	case KindOther:
		// Fall through to the unsupported error below.
	}

	ctx.Descriptor.Kind = KindOther
	return ctx, fmt.Errorf("unsupported event type: %s", eventType)
}

func parseIssue(ctx *Context, data map[string]interface{}) (*Context, error) {
	if issue, ok := data["issue"].(map[string]interface{}); ok {
		ctx.IssueNumber = int(getNumberField(issue, "number"))
		ctx.Descriptor.TextFields = []TextField{
			{Source: SourceTitle, Text: getStringField(issue, "title")},
			{Source: SourceBody, Text: getStringField(issue, "body")},
		}
	}

	if assignee, ok := data["assignee"].(map[string]interface{}); ok {
		ctx.Descriptor.AssigneeLogin = getStringField(assignee, "login")
	}
	if label, ok := data["label"].(map[string]interface{}); ok {
		ctx.Descriptor.LabelName = getStringField(label, "name")
	}

	ctx.BaseBranch = ctx.Repository.DefaultBranch
	return ctx, nil
}

func parseIssueComment(ctx *Context, data map[string]interface{}) (*Context, error) {
	if comment, ok := data["comment"].(map[string]interface{}); ok {
		ctx.TriggerComment = &Comment{
			ID:    int64(getNumberField(comment, "id")),
			Body:  getStringField(comment, "body"),
			User:  getStringField(comment, "user", "login"),
			IsBot: getStringField(comment, "user", "type") == "Bot",
		}
	}

	if issue, ok := data["issue"].(map[string]interface{}); ok {
		ctx.IssueNumber = int(getNumberField(issue, "number"))
		if pr, hasPR := issue["pull_request"]; hasPR && pr != nil {
			ctx.IsPR = true
			ctx.PRNumber = ctx.IssueNumber
		}

		ctx.Descriptor.TextFields = []TextField{
			{Source: SourceTitle, Text: getStringField(issue, "title")},
			{Source: SourceBody, Text: getStringField(issue, "body")},
		}
	}

	if ctx.TriggerComment != nil {
		ctx.Descriptor.TextFields = append(ctx.Descriptor.TextFields,
			TextField{Source: SourceComment, Text: ctx.TriggerComment.Body})
	}

	ctx.BaseBranch = ctx.Repository.DefaultBranch
	return ctx, nil
}

func parsePullRequest(ctx *Context, data map[string]interface{}) (*Context, error) {
	ctx.IsPR = true
	if pr, ok := data["pull_request"].(map[string]interface{}); ok {
		ctx.PRNumber = int(getNumberField(pr, "number"))
		ctx.IssueNumber = ctx.PRNumber
		ctx.BaseBranch = getStringField(pr, "base", "ref")
		ctx.HeadBranch = getStringField(pr, "head", "ref")

		ctx.Descriptor.TextFields = []TextField{
			{Source: SourceTitle, Text: getStringField(pr, "title")},
			{Source: SourceBody, Text: getStringField(pr, "body")},
		}
	}

	if assignee, ok := data["assignee"].(map[string]interface{}); ok {
		ctx.Descriptor.AssigneeLogin = getStringField(assignee, "login")
	}
	if label, ok := data["label"].(map[string]interface{}); ok {
		ctx.Descriptor.LabelName = getStringField(label, "name")
	}

	return ctx, nil
}

func parsePullRequestReview(ctx *Context, data map[string]interface{}) (*Context, error) {
	ctx.IsPR = true
	parsePRFields(ctx, data)

	if review, ok := data["review"].(map[string]interface{}); ok {
		ctx.TriggerComment = &Comment{
			ID:    int64(getNumberField(review, "id")),
			Body:  getStringField(review, "body"),
			User:  getStringField(review, "user", "login"),
			IsBot: getStringField(review, "user", "type") == "Bot",
		}
		ctx.Descriptor.TextFields = append(ctx.Descriptor.TextFields,
			TextField{Source: SourceReview, Text: getStringField(review, "body")})
	}

	return ctx, nil
}

func parsePullRequestReviewComment(ctx *Context, data map[string]interface{}) (*Context, error) {
	ctx.IsPR = true
	parsePRFields(ctx, data)

	if comment, ok := data["comment"].(map[string]interface{}); ok {
		ctx.TriggerComment = &Comment{
			ID:    int64(getNumberField(comment, "id")),
			Body:  getStringField(comment, "body"),
			User:  getStringField(comment, "user", "login"),
			IsBot: getStringField(comment, "user", "type") == "Bot",
		}
		ctx.Descriptor.TextFields = append(ctx.Descriptor.TextFields,
			TextField{Source: SourceComment, Text: getStringField(comment, "body")})
	}

	return ctx, nil
}

func parsePush(ctx *Context, data map[string]interface{}) (*Context, error) {
	ctx.PushRef = getStringField(data, "ref")
	ctx.BaseBranch = strings.TrimPrefix(ctx.PushRef, "refs/heads/")

	if pusher, ok := data["pusher"].(map[string]interface{}); ok {
		if ctx.Descriptor.ActorLogin == "" {
			ctx.Descriptor.ActorLogin = getStringField(pusher, "name")
		}
	}

	return ctx, nil
}

func parseWorkflowDispatch(ctx *Context, data map[string]interface{}) (*Context, error) {
	ctx.BaseBranch = ctx.Repository.DefaultBranch
	if ref := getStringField(data, "ref"); ref != "" {
		ctx.BaseBranch = strings.TrimPrefix(ref, "refs/heads/")
	}
	return ctx, nil
}

// parsePRFields fills title/body/branch fields shared by the PR-shaped events.
func parsePRFields(ctx *Context, data map[string]interface{}) {
	pr, ok := data["pull_request"].(map[string]interface{})
	if !ok {
		return
	}

	ctx.PRNumber = int(getNumberField(pr, "number"))
	ctx.IssueNumber = ctx.PRNumber
	ctx.BaseBranch = getStringField(pr, "base", "ref")
	ctx.HeadBranch = getStringField(pr, "head", "ref")

	ctx.Descriptor.TextFields = []TextField{
		{Source: SourceTitle, Text: getStringField(pr, "title")},
		{Source: SourceBody, Text: getStringField(pr, "body")},
	}
}

// Helper functions for safe map access
func getStringField(data map[string]interface{}, keys ...string) string {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			if val, ok := current[key].(string); ok {
				return val
			}
			return ""
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return ""
		}
	}
	return ""
}

func getNumberField(data map[string]interface{}, keys ...string) float64 {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			if val, ok := current[key].(float64); ok {
				return val
			}
			return 0
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return 0
		}
	}
	return 0
}
