// Package agent invokes the Junie CLI and parses its result.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/juniehq/junie-agent/internal/prompt"
)

// Result is the parsed outcome of one Junie CLI invocation.
type Result struct {
	Summary string `json:"summary"`
	IsError bool   `json:"isError"`
	Error   string `json:"error,omitempty"`
}

// Runner executes the Junie CLI as a subprocess.
type Runner struct {
	bin   string
	model string

	// runCommand is swappable for tests.
	runCommand func(ctx context.Context, bin, workdir, stdin string, args []string) ([]byte, error)
}

// NewRunner creates a runner for the given binary and model.
func NewRunner(bin, model string) *Runner {
	if bin == "" {
		bin = "junie"
	}
	return &Runner{
		bin:        bin,
		model:      model,
		runCommand: runCLI,
	}
}

// Run executes the agent against a checked-out working directory with the
// given task descriptor, returning its parsed result.
func (r *Runner) Run(ctx context.Context, workdir string, task *prompt.TaskDescriptor) (*Result, error) {
	if workdir == "" {
		return nil, fmt.Errorf("working directory is required")
	}
	if _, err := os.Stat(workdir); os.IsNotExist(err) {
		return nil, fmt.Errorf("working directory does not exist: %s", workdir)
	}

	args := []string{"run", "--output-format", "json"}
	if r.model != "" {
		args = append(args, "--model", r.model)
	}

	input := task.Prompt
	if task.MergeBranch != "" {
		input = prompt.MergeDirective(task.MergeBranch) + "\n\n" + input
		log.Printf("[Junie CLI] Merge directive added for branch %s", task.MergeBranch)
	}

	log.Printf("[Junie CLI] Starting %s in %s (prompt length: %d chars)", r.bin, workdir, len(input))

	start := time.Now()
	output, err := r.runCommand(ctx, r.bin, workdir, input, args)
	duration := time.Since(start)

	if err != nil {
		preview := truncateString(string(output), 1000)
		log.Printf("[Junie CLI] Command failed after %v: %v", duration, err)
		return nil, fmt.Errorf("junie CLI execution failed: %w (output preview: %s)", err, preview)
	}

	log.Printf("[Junie CLI] Command completed in %v", duration)

	result, err := parseResult(output)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		msg := result.Error
		if msg == "" {
			msg = result.Summary
		}
		return nil, fmt.Errorf("junie CLI reported an error: %s", msg)
	}

	return result, nil
}

// parseResult decodes the CLI's JSON result. The CLI streams progress to
// stderr; stdout carries a single JSON document, possibly preceded by log
// noise, so the last JSON-looking line wins.
func parseResult(output []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(output)

	var result Result
	if err := json.Unmarshal(trimmed, &result); err == nil {
		return &result, nil
	}

	lines := strings.Split(string(trimmed), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if err := json.Unmarshal([]byte(line), &result); err == nil {
			return &result, nil
		}
	}

	preview := truncateString(string(trimmed), 1000)
	return nil, fmt.Errorf("failed to parse junie CLI JSON result (output preview: %s)", preview)
}

func runCLI(ctx context.Context, bin, workdir, stdin string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = workdir
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = os.Environ()

	var outputBuf bytes.Buffer
	// Stream output live while capturing it for parsing.
	cmd.Stdout = io.MultiWriter(os.Stdout, &outputBuf)
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	return outputBuf.Bytes(), err
}

// truncateString truncates a string for logging
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
