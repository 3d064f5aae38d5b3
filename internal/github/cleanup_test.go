package github

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestCleanupStaleBranches(t *testing.T) {
	old := time.Now().Add(-60 * 24 * time.Hour).Format(time.RFC3339)
	fresh := time.Now().Add(-time.Hour).Format(time.RFC3339)

	var deletedPaths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/git/matching-refs/heads/junie/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"ref": "refs/heads/junie/issue-1", "object": {"sha": "aaa"}},
			{"ref": "refs/heads/junie/issue-2", "object": {"sha": "bbb"}}
		]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/commits/aaa", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"commit": {"author": {"date": %q}}}`, old)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/commits/bbb", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"commit": {"author": {"date": %q}}}`, fresh)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/git/refs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletedPaths = append(deletedPaths, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)

	deleted, err := client.CleanupStaleBranches(context.Background(), CleanupOptions{})
	if err != nil {
		t.Fatalf("CleanupStaleBranches returned error: %v", err)
	}

	if len(deleted) != 1 || deleted[0] != "junie/issue-1" {
		t.Errorf("deleted = %v, want [junie/issue-1]", deleted)
	}
	if len(deletedPaths) != 1 {
		t.Errorf("DELETE calls = %d, want 1", len(deletedPaths))
	}
}

func TestCleanupStaleBranchesDryRun(t *testing.T) {
	old := time.Now().Add(-60 * 24 * time.Hour).Format(time.RFC3339)

	deletes := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/repos/acme/widgets/git/matching-refs/heads/junie/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"ref": "refs/heads/junie/issue-1", "object": {"sha": "aaa"}}]`)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/commits/aaa", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"commit": {"author": {"date": %q}}}`, old)
	})
	mux.HandleFunc("/api/v3/repos/acme/widgets/git/refs/", func(w http.ResponseWriter, r *http.Request) {
		deletes++
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)

	deleted, err := client.CleanupStaleBranches(context.Background(), CleanupOptions{DryRun: true})
	if err != nil {
		t.Fatalf("CleanupStaleBranches returned error: %v", err)
	}
	if len(deleted) != 1 {
		t.Errorf("reported = %v, want one stale branch", deleted)
	}
	if deletes != 0 {
		t.Errorf("DELETE calls = %d, want 0 in dry run", deletes)
	}
}
