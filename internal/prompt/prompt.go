// Package prompt assembles the task descriptor handed to the Junie CLI:
// the final prompt text, the optional merge directive, and the short summary
// used in status comments.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/juniehq/junie-agent/internal/config"
	"github.com/juniehq/junie-agent/internal/trigger"
)

// TaskDescriptor is the structured input for one agent invocation.
type TaskDescriptor struct {
	// Prompt is the full prompt text for the agent.
	Prompt string
	// Summary is a short human-readable description for status comments.
	Summary string
	// MergeBranch, when set, directs the agent to resolve merge conflicts
	// against this branch before doing anything else.
	MergeBranch string
}

// Input captures everything the builder needs about one run.
type Input struct {
	Title           string
	Body            string
	UserInstruction string
	IsPR            bool

	// ResolveConflicts with a non-empty TargetBranch adds the merge directive.
	ResolveConflicts bool
	TargetBranch     string
}

// Build assembles and validates the task descriptor. Oversized prompts are a
// hard validation failure, never truncated.
func Build(in Input) (*TaskDescriptor, error) {
	text := buildPrompt(in.Title, in.Body, in.UserInstruction)
	if err := config.ValidatePrompt(text); err != nil {
		return nil, err
	}

	desc := &TaskDescriptor{
		Prompt:  text,
		Summary: buildSummary(in.Title, in.UserInstruction, in.IsPR),
	}

	if in.ResolveConflicts && in.TargetBranch != "" {
		desc.MergeBranch = in.TargetBranch
	}

	return desc, nil
}

// buildPrompt treats the trigger instruction as the primary directive and
// includes the issue/PR content as contextual reference.
func buildPrompt(title, body, userInstruction string) string {
	instruction := strings.TrimSpace(userInstruction)
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	var builder strings.Builder

	if instruction != "" {
		builder.WriteString(instruction)
	}

	if title != "" || body != "" {
		if builder.Len() > 0 {
			builder.WriteString("\n\n---\n\n")
		}
		builder.WriteString("# Issue Context")
		if title != "" {
			builder.WriteString("\n\n## Title\n")
			builder.WriteString(title)
		}
		if body != "" {
			builder.WriteString("\n\n## Body\n")
			builder.WriteString(body)
		}
	}

	return builder.String()
}

func buildSummary(title, userInstruction string, isPR bool) string {
	title = strings.TrimSpace(title)
	instruction := summarizeInstruction(userInstruction, 180)

	var builder strings.Builder
	if title != "" {
		if isPR {
			builder.WriteString("**PR:** ")
		} else {
			builder.WriteString("**Issue:** ")
		}
		builder.WriteString(title)
	}

	if instruction != "" {
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString("**Instruction:**\n")
		builder.WriteString(instruction)
	}

	return builder.String()
}

// ExtractInstruction returns the text after the trigger phrase in a comment
// body, and whether the phrase occurred at all. The phrase is located
// case-insensitively, matching how trigger detection finds it, so a comment
// that starts a run never loses its instruction to a casing difference.
func ExtractInstruction(body, triggerPhrase string) (string, bool) {
	if triggerPhrase == "" {
		return "", false
	}
	re, err := regexp.Compile(`(?i)` + trigger.EscapePhrase(triggerPhrase))
	if err != nil {
		return "", false
	}
	loc := re.FindStringIndex(body)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(body[loc[1]:]), true
}

// MergeDirective renders the merge-task preamble for the agent when the run
// was asked to resolve conflicts against a target branch.
func MergeDirective(targetBranch string) string {
	return fmt.Sprintf("Resolve the merge conflicts against branch `%s` before making any other change.", targetBranch)
}

func truncateText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || text == "" {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	truncated := strings.TrimSpace(string(runes[:limit]))
	return truncated + "…"
}

func summarizeInstruction(instruction string, limit int) string {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return ""
	}

	lines := strings.Split(instruction, "\n")
	var parts []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts = append(parts, line)
	}

	if len(parts) == 0 {
		return ""
	}

	joined := strings.Join(parts, " ")
	return truncateText(joined, limit)
}
