package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// GitHub talks to the GitHub REST API (v3). Both github.com and GitHub
// Enterprise hosts are supported.
type GitHub struct {
	client *restClient
	host   string
}

// NewGitHub creates a GitHub adapter for the given host and token.
func NewGitHub(host, token string) *GitHub {
	base := "https://api.github.com"
	if host != "" && host != "github.com" {
		// GitHub Enterprise serves the v3 API under the instance host.
		base = "https://" + host + "/api/v3"
	}
	return &GitHub{
		client: newRESTClient(base, "Authorization", "Bearer "+token),
		host:   host,
	}
}

type githubUser struct {
	Login string `json:"login"`
}

type githubLabel struct {
	Name string `json:"name"`
}

type githubBranch struct {
	Ref string `json:"ref"`
}

type githubPull struct {
	ID        int64         `json:"id"`
	Number    int           `json:"number"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	State     string        `json:"state"`
	Draft     bool          `json:"draft"`
	User      githubUser    `json:"user"`
	Head      githubBranch  `json:"head"`
	Base      githubBranch  `json:"base"`
	HTMLURL   string        `json:"html_url"`
	Labels    []githubLabel `json:"labels"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	MergedAt  *time.Time    `json:"merged_at"`
}

func (p githubPull) toModel(owner, repo string) model.PullRequest {
	pr := model.PullRequest{
		ID:           p.ID,
		Provider:     model.ProviderGitHub,
		Owner:        owner,
		Repo:         repo,
		Number:       p.Number,
		Title:        p.Title,
		Body:         p.Body,
		Author:       p.User.Login,
		State:        model.PRState(p.State),
		Draft:        p.Draft,
		SourceBranch: p.Head.Ref,
		TargetBranch: p.Base.Ref,
		URL:          p.HTMLURL,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		MergedAt:     p.MergedAt,
	}
	if p.MergedAt != nil {
		pr.State = model.PRStateMerged
	}
	for _, l := range p.Labels {
		pr.Labels = append(pr.Labels, l.Name)
	}
	return pr
}

// ListPullRequests returns pull requests for the repository.
func (g *GitHub) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]model.PullRequest, error) {
	state := "open"
	if opts.State == model.PRStateClosed || opts.State == model.PRStateMerged {
		state = "closed"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls?state=%s&per_page=%d", owner, repo, state, limit)

	var pulls []githubPull
	if err := g.client.do(ctx, http.MethodGet, path, "", nil, &pulls); err != nil {
		return nil, err
	}

	prs := make([]model.PullRequest, 0, len(pulls))
	for _, p := range pulls {
		prs = append(prs, p.toModel(owner, repo))
	}
	return prs, nil
}

// GetPullRequestDiff returns the unified diff for a pull request.
func (g *GitHub) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	var diff string
	if err := g.client.do(ctx, http.MethodGet, path, "application/vnd.github.v3.diff", nil, &diff); err != nil {
		return "", err
	}
	return diff, nil
}

// CreateComment posts a comment. Inline comments (with a path anchor) go
// through the review comments endpoint; everything else is an issue comment.
func (g *GitHub) CreateComment(ctx context.Context, owner, repo string, number int, comment CommentInput) error {
	if comment.Path != "" {
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", owner, repo, number)
		body := map[string]any{
			"body": comment.Body,
			"path": comment.Path,
			"line": comment.Line,
			"side": "RIGHT",
		}
		return g.client.do(ctx, http.MethodPost, path, "", body, nil)
	}
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	return g.client.do(ctx, http.MethodPost, path, "", map[string]string{"body": comment.Body}, nil)
}

func (g *GitHub) submitReview(ctx context.Context, owner, repo string, number int, event, body string, comments []CommentInput) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	payload := map[string]any{"event": event}
	if body != "" {
		payload["body"] = body
	}
	if len(comments) > 0 {
		list := make([]map[string]any, 0, len(comments))
		for _, c := range comments {
			list = append(list, map[string]any{"path": c.Path, "line": c.Line, "body": c.Body})
		}
		payload["comments"] = list
	}
	return g.client.do(ctx, http.MethodPost, path, "", payload, nil)
}

// ApproveReview submits an approving review.
func (g *GitHub) ApproveReview(ctx context.Context, owner, repo string, number int, body string) error {
	return g.submitReview(ctx, owner, repo, number, "APPROVE", body, nil)
}

// RequestChanges submits a changes-requested review.
func (g *GitHub) RequestChanges(ctx context.Context, owner, repo string, number int, body string) error {
	return g.submitReview(ctx, owner, repo, number, "REQUEST_CHANGES", body, nil)
}

// CreateReview submits a full review with a verdict and inline comments.
func (g *GitHub) CreateReview(ctx context.Context, owner, repo string, number int, review ReviewInput) error {
	event := "COMMENT"
	switch review.Event {
	case model.ReviewApproved:
		event = "APPROVE"
	case model.ReviewChangesRequested:
		event = "REQUEST_CHANGES"
	}
	return g.submitReview(ctx, owner, repo, number, event, review.Body, review.Comments)
}

// ValidateToken checks that the configured token is accepted by the API.
func (g *GitHub) ValidateToken(ctx context.Context) (bool, error) {
	err := g.client.do(ctx, http.MethodGet, "/user", "", nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return false, err
}
