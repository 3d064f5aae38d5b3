// Package gitops wraps the git and gh CLIs for the branch lifecycle around an
// agent run: clone, working-branch creation, commit and push.
package gitops

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	nowFunc            = time.Now
	issueNumberPattern = regexp.MustCompile(`(?i)issue[-_/](\d+)`)
	nonAlphanumeric    = regexp.MustCompile(`[^a-z0-9]+`)
)

var runRepoClone = func(repo, branch, token, dest string) error {
	// Shallow single-branch clone keeps large repositories fast.
	cmd := exec.Command("gh", "repo", "clone", repo, dest, "--", "-b", branch, "--depth=1", "--single-branch")
	if token != "" {
		// Set both GITHUB_TOKEN and GH_TOKEN for maximum compatibility with gh CLI
		cmd.Env = append(os.Environ(),
			fmt.Sprintf("GITHUB_TOKEN=%s", token),
			fmt.Sprintf("GH_TOKEN=%s", token),
		)
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("gh repo clone failed: %w\nOutput: %s\nLikely causes: branch %q does not exist, or the installation token lacks read access to %s", err, string(output), branch, repo)
	}
	return nil
}

func sanitizeToken(token string) string {
	token = strings.ToLower(token)
	token = nonAlphanumeric.ReplaceAllString(token, "-")
	token = strings.Trim(token, "-")
	if token == "" {
		return "unknown"
	}
	return token
}

func extractBranchContext(branch string) (string, string) {
	if match := issueNumberPattern.FindStringSubmatch(branch); len(match) == 2 {
		return "issue", match[1]
	}

	sanitized := sanitizeToken(branch)
	if sanitized == "" {
		return "branch", "unknown"
	}
	return "branch", sanitized
}

func buildCloneWorkdir(repo, branch string, ts time.Time) string {
	ownerSegment := "unknown"
	repoSegment := "repo"

	if parts := strings.Split(repo, "/"); len(parts) == 2 {
		ownerSegment = sanitizeToken(parts[0])
		repoSegment = sanitizeToken(parts[1])
	} else {
		ownerSegment = sanitizeToken(repo)
	}

	context, detail := extractBranchContext(branch)

	dirName := fmt.Sprintf("%s-%s-%s-%s-%d", ownerSegment, repoSegment, context, detail, ts.UnixNano())
	return filepath.Join(os.TempDir(), dirName)
}

// Clone clones a GitHub repository to a temporary directory.
// Returns: workdir path, cleanup function, error.
func Clone(repo, branch, token string) (string, func(), error) {
	// Temporary directory name that avoids collisions across concurrent runs.
	tmpDir := buildCloneWorkdir(repo, branch, nowFunc())

	if err := runRepoClone(repo, branch, token, tmpDir); err != nil {
		return "", nil, err
	}

	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			log.Printf("Warning: failed to cleanup %s: %v", tmpDir, err)
		}
	}

	return tmpDir, cleanup, nil
}

// CreateBranch fetches base from origin and checks out a new working branch
// from it. The base may be a branch not present in a shallow clone, so it is
// fetched explicitly first.
func CreateBranch(workdir, base, name string) error {
	fetch := [][]string{
		{"git", "fetch", "origin", base, "--depth=1"},
		{"git", "checkout", "-b", name, "FETCH_HEAD"},
	}

	for _, args := range fetch {
		if output, err := runGit(workdir, args); err != nil {
			return fmt.Errorf("%s failed: %w\nOutput: %s\nLikely causes: base branch %q missing on origin, or the checkout target %q already exists", strings.Join(args, " "), err, output, base, name)
		}
	}
	return nil
}

// HasChanges reports whether the working tree has uncommitted modifications.
func HasChanges(workdir string) (bool, error) {
	output, err := runGit(workdir, []string{"git", "status", "--porcelain"})
	if err != nil {
		return false, fmt.Errorf("git status failed: %w\nOutput: %s", err, output)
	}
	return len(strings.TrimSpace(output)) > 0, nil
}

// CommitAndPush commits all changes on the current branch and pushes it.
func CommitAndPush(workdir, branchName, commitMessage, authorName, authorEmail string) error {
	if authorName == "" {
		authorName = "Junie"
	}
	if authorEmail == "" {
		authorEmail = "junie@jetbrains.com"
	}

	commands := [][]string{
		{"git", "config", "user.name", authorName},
		{"git", "config", "user.email", authorEmail},
		{"git", "add", "."},
		{"git", "commit", "-m", commitMessage},
		{"git", "push", "-u", "origin", branchName},
	}

	for _, args := range commands {
		if output, err := runGit(workdir, args); err != nil {
			return fmt.Errorf("%s failed: %w\nOutput: %s\nLikely causes: the installation token lacks write access, branch protection rejects pushes to %q, or the token has expired", strings.Join(args, " "), err, output, branchName)
		}
	}

	return nil
}

func runGit(workdir string, args []string) (string, error) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = workdir
	output, err := cmd.CombinedOutput()
	return string(output), err
}
