package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// GitLab talks to the GitLab API (v4). Merge requests are mapped onto the
// common PullRequest model; the MR iid is used as the PR number.
type GitLab struct {
	client *restClient
}

// NewGitLab creates a GitLab adapter for the given host and token.
func NewGitLab(host, token string) *GitLab {
	return &GitLab{
		client: newRESTClient("https://"+host+"/api/v4", "PRIVATE-TOKEN", token),
	}
}

// projectPath is the URL-encoded "owner/repo" project identifier.
func projectPath(owner, repo string) string {
	return url.PathEscape(owner + "/" + repo)
}

type gitlabAuthor struct {
	Username string `json:"username"`
}

type gitlabMR struct {
	ID           int64        `json:"id"`
	IID          int          `json:"iid"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	State        string       `json:"state"`
	Draft        bool         `json:"draft"`
	Author       gitlabAuthor `json:"author"`
	SourceBranch string       `json:"source_branch"`
	TargetBranch string       `json:"target_branch"`
	WebURL       string       `json:"web_url"`
	Labels       []string     `json:"labels"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	MergedAt     *time.Time   `json:"merged_at"`
}

func (m gitlabMR) toModel(owner, repo string) model.PullRequest {
	state := model.PRStateOpen
	switch m.State {
	case "closed":
		state = model.PRStateClosed
	case "merged":
		state = model.PRStateMerged
	}
	return model.PullRequest{
		ID:           m.ID,
		Provider:     model.ProviderGitLab,
		Owner:        owner,
		Repo:         repo,
		Number:       m.IID,
		Title:        m.Title,
		Body:         m.Description,
		Author:       m.Author.Username,
		State:        state,
		Draft:        m.Draft,
		SourceBranch: m.SourceBranch,
		TargetBranch: m.TargetBranch,
		URL:          m.WebURL,
		Labels:       m.Labels,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		MergedAt:     m.MergedAt,
	}
}

// ListPullRequests returns merge requests for the project.
func (g *GitLab) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]model.PullRequest, error) {
	state := "opened"
	switch opts.State {
	case model.PRStateClosed:
		state = "closed"
	case model.PRStateMerged:
		state = "merged"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}
	path := fmt.Sprintf("/projects/%s/merge_requests?state=%s&per_page=%d", projectPath(owner, repo), state, limit)

	var mrs []gitlabMR
	if err := g.client.do(ctx, http.MethodGet, path, "", nil, &mrs); err != nil {
		return nil, err
	}

	prs := make([]model.PullRequest, 0, len(mrs))
	for _, m := range mrs {
		prs = append(prs, m.toModel(owner, repo))
	}
	return prs, nil
}

type gitlabChange struct {
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
	Diff    string `json:"diff"`
}

// GetPullRequestDiff assembles a unified diff from the MR changes endpoint.
func (g *GitLab) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/changes", projectPath(owner, repo), number)
	var resp struct {
		Changes []gitlabChange `json:"changes"`
	}
	if err := g.client.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, c := range resp.Changes {
		fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n%s", c.OldPath, c.NewPath, c.Diff)
		if !strings.HasSuffix(c.Diff, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (g *GitLab) postNote(ctx context.Context, owner, repo string, number int, body string) error {
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/notes", projectPath(owner, repo), number)
	return g.client.do(ctx, http.MethodPost, path, "", map[string]string{"body": body}, nil)
}

// CreateComment posts a note on the merge request. Inline anchors are
// rendered into the note body; positioned discussions need diff SHAs the
// queue does not carry.
func (g *GitLab) CreateComment(ctx context.Context, owner, repo string, number int, comment CommentInput) error {
	body := comment.Body
	if comment.Path != "" {
		body = fmt.Sprintf("`%s:%d`: %s", comment.Path, comment.Line, comment.Body)
	}
	return g.postNote(ctx, owner, repo, number, body)
}

// ApproveReview approves the merge request, posting the body as a note first
// when present.
func (g *GitLab) ApproveReview(ctx context.Context, owner, repo string, number int, body string) error {
	if body != "" {
		if err := g.postNote(ctx, owner, repo, number, body); err != nil {
			return err
		}
	}
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/approve", projectPath(owner, repo), number)
	return g.client.do(ctx, http.MethodPost, path, "", nil, nil)
}

// RequestChanges posts the feedback as a note and revokes any prior
// approval. GitLab has no first-class request-changes verdict in v4.
func (g *GitLab) RequestChanges(ctx context.Context, owner, repo string, number int, body string) error {
	if body == "" {
		body = "Changes requested."
	}
	if err := g.postNote(ctx, owner, repo, number, body); err != nil {
		return err
	}
	path := fmt.Sprintf("/projects/%s/merge_requests/%d/unapprove", projectPath(owner, repo), number)
	err := g.client.do(ctx, http.MethodPost, path, "", nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		// Nothing to unapprove.
		return nil
	}
	return err
}

// CreateReview posts the review body and inline comments as notes and
// applies the verdict.
func (g *GitLab) CreateReview(ctx context.Context, owner, repo string, number int, review ReviewInput) error {
	if review.Body != "" {
		if err := g.postNote(ctx, owner, repo, number, review.Body); err != nil {
			return err
		}
	}
	for _, c := range review.Comments {
		if err := g.CreateComment(ctx, owner, repo, number, c); err != nil {
			return err
		}
	}
	switch review.Event {
	case model.ReviewApproved:
		return g.ApproveReview(ctx, owner, repo, number, "")
	case model.ReviewChangesRequested:
		return g.RequestChanges(ctx, owner, repo, number, "")
	}
	return nil
}

// ValidateToken checks that the configured token is accepted by the API.
func (g *GitLab) ValidateToken(ctx context.Context) (bool, error) {
	err := g.client.do(ctx, http.MethodGet, "/user", "", nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	return false, err
}
