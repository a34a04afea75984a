package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kraitsura/lazyreview/pkg/model"
)

func newTestGitLab(srv *httptest.Server) *GitLab {
	return &GitLab{client: newRESTClient(srv.URL, "PRIVATE-TOKEN", "glpat-test")}
}

func TestGitLabListPullRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The project path arrives URL-encoded as a single segment.
		if r.URL.EscapedPath() != "/projects/octo%2Fwidgets/merge_requests" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		if got := r.URL.Query().Get("state"); got != "opened" {
			t.Errorf("state = %q, want opened", got)
		}
		if got := r.Header.Get("PRIVATE-TOKEN"); got != "glpat-test" {
			t.Errorf("token header = %q", got)
		}

		mrs := []gitlabMR{
			{
				ID:           9,
				IID:          3,
				Title:        "Speed up parser",
				State:        "opened",
				Author:       gitlabAuthor{Username: "carol"},
				SourceBranch: "perf",
				TargetBranch: "main",
				Labels:       []string{"performance"},
			},
			{ID: 10, IID: 4, Title: "Old work", State: "merged"},
		}
		json.NewEncoder(w).Encode(mrs)
	}))
	defer srv.Close()

	g := newTestGitLab(srv)
	prs, err := g.ListPullRequests(context.Background(), "octo", "widgets", ListOptions{})
	if err != nil {
		t.Fatalf("ListPullRequests() error = %v", err)
	}
	if len(prs) != 2 {
		t.Fatalf("got %d pull requests, want 2", len(prs))
	}

	// The MR iid, not the global id, becomes the PR number.
	if prs[0].Number != 3 {
		t.Errorf("number = %d, want 3 (iid)", prs[0].Number)
	}
	if prs[0].Author != "carol" || prs[0].State != model.PRStateOpen {
		t.Errorf("first PR = %+v", prs[0])
	}
	if prs[1].State != model.PRStateMerged {
		t.Errorf("second PR state = %q, want merged", prs[1].State)
	}
}

func TestGitLabGetPullRequestDiff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"changes": []gitlabChange{
				{OldPath: "a.go", NewPath: "a.go", Diff: "@@ -1 +1 @@\n-old\n+new\n"},
				{OldPath: "b.go", NewPath: "b.go", Diff: "@@ -2 +2 @@\n-x\n+y"},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	g := newTestGitLab(srv)
	diff, err := g.GetPullRequestDiff(context.Background(), "octo", "widgets", 3)
	if err != nil {
		t.Fatalf("GetPullRequestDiff() error = %v", err)
	}

	want := "--- a/a.go\n+++ b/a.go\n@@ -1 +1 @@\n-old\n+new\n--- a/b.go\n+++ b/b.go\n@@ -2 +2 @@\n-x\n+y\n"
	if diff != want {
		t.Errorf("diff = %q, want %q", diff, want)
	}
}

func TestGitLabInlineCommentRenderedIntoNote(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/projects/octo%2Fwidgets/merge_requests/3/notes" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotBody = body["body"]
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := newTestGitLab(srv)
	err := g.CreateComment(context.Background(), "octo", "widgets", 3, CommentInput{
		Body: "off by one", Path: "main.go", Line: 42,
	})
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if gotBody != "`main.go:42`: off by one" {
		t.Errorf("note body = %q", gotBody)
	}
}

func TestGitLabApprovePostsNoteThenApproves(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := newTestGitLab(srv)
	if err := g.ApproveReview(context.Background(), "octo", "widgets", 3, "nice"); err != nil {
		t.Fatalf("ApproveReview() error = %v", err)
	}

	want := []string{
		"/projects/octo%2Fwidgets/merge_requests/3/notes",
		"/projects/octo%2Fwidgets/merge_requests/3/approve",
	}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("request paths = %v, want %v", paths, want)
	}
}

func TestGitLabRequestChangesToleratesNothingToUnapprove(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() == "/projects/octo%2Fwidgets/merge_requests/3/unapprove" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := newTestGitLab(srv)
	if err := g.RequestChanges(context.Background(), "octo", "widgets", 3, "needs tests"); err != nil {
		t.Errorf("RequestChanges() error = %v, want nil when there is no approval to revoke", err)
	}
}

func TestProviderFactory(t *testing.T) {
	for _, pt := range []model.ProviderType{
		model.ProviderGitHub,
		model.ProviderGitLab,
		model.ProviderBitbucket,
		model.ProviderAzure,
		model.ProviderGitea,
	} {
		if _, err := New(pt, "", "tok"); err != nil {
			t.Errorf("New(%s) error = %v", pt, err)
		}
	}

	if _, err := New("svn", "", "tok"); err == nil {
		t.Error("New(svn) succeeded, want error")
	}
}
