package gitops

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already clean", input: "main", want: "main"},
		{name: "uppercase lowered", input: "Feature", want: "feature"},
		{name: "slashes become dashes", input: "feature/login-fix", want: "feature-login-fix"},
		{name: "leading trailing noise trimmed", input: "--weird--", want: "weird"},
		{name: "all symbols fall back", input: "///", want: "unknown"},
		{name: "empty falls back", input: "", want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeToken(tt.input); got != tt.want {
				t.Errorf("sanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractBranchContext(t *testing.T) {
	tests := []struct {
		name       string
		branch     string
		wantKind   string
		wantDetail string
	}{
		{name: "issue branch", branch: "junie/issue-42", wantKind: "issue", wantDetail: "42"},
		{name: "issue with underscore", branch: "fix/issue_7", wantKind: "issue", wantDetail: "7"},
		{name: "plain branch", branch: "main", wantKind: "branch", wantDetail: "main"},
		{name: "nested branch", branch: "feature/login", wantKind: "branch", wantDetail: "feature-login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, detail := extractBranchContext(tt.branch)
			if kind != tt.wantKind || detail != tt.wantDetail {
				t.Errorf("extractBranchContext(%q) = (%q, %q), want (%q, %q)",
					tt.branch, kind, detail, tt.wantKind, tt.wantDetail)
			}
		})
	}
}

func TestBuildCloneWorkdir(t *testing.T) {
	ts := time.Unix(0, 1700000000000000000)

	dir := buildCloneWorkdir("acme/Widgets", "junie/issue-42", ts)
	if !strings.Contains(dir, "acme-widgets-issue-42-") {
		t.Errorf("workdir %q should embed owner, repo and issue context", dir)
	}
	if !strings.Contains(dir, "1700000000000000000") {
		t.Errorf("workdir %q should embed the timestamp for uniqueness", dir)
	}

	other := buildCloneWorkdir("acme/Widgets", "junie/issue-42", time.Unix(0, 1700000000000000001))
	if dir == other {
		t.Error("workdirs for different timestamps must differ")
	}
}

func TestCloneSurfacesFailure(t *testing.T) {
	original := runRepoClone
	defer func() { runRepoClone = original }()

	runRepoClone = func(repo, branch, token, dest string) error {
		return &cloneError{msg: "gh repo clone failed: exit status 1"}
	}

	_, cleanup, err := Clone("acme/widgets", "main", "token")
	if err == nil {
		t.Fatal("expected clone error")
	}
	if cleanup != nil {
		t.Error("cleanup must be nil on failure")
	}
}

type cloneError struct{ msg string }

func (e *cloneError) Error() string { return e.msg }
