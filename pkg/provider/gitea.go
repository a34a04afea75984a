package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// Gitea talks to the Gitea API (v1). The API mirrors GitHub's closely but
// differs in auth scheme, review event names, and diff retrieval.
type Gitea struct {
	client *restClient
}

// NewGitea creates a Gitea adapter for the given host and token.
func NewGitea(host, token string) *Gitea {
	return &Gitea{
		client: newRESTClient("https://"+host+"/api/v1", "Authorization", "token "+token),
	}
}

type giteaPull struct {
	ID        int64        `json:"id"`
	Number    int          `json:"number"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	State     string       `json:"state"`
	User      githubUser   `json:"user"`
	Head      githubBranch `json:"head"`
	Base      githubBranch `json:"base"`
	HTMLURL   string       `json:"html_url"`
	Merged    bool         `json:"merged"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	MergedAt  *time.Time   `json:"merged_at"`
}

// ListPullRequests returns pull requests for the repository.
func (g *Gitea) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]model.PullRequest, error) {
	state := "open"
	if opts.State == model.PRStateClosed || opts.State == model.PRStateMerged {
		state = "closed"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls?state=%s&limit=%d", owner, repo, state, limit)

	var pulls []giteaPull
	if err := g.client.do(ctx, http.MethodGet, path, "", nil, &pulls); err != nil {
		return nil, err
	}

	prs := make([]model.PullRequest, 0, len(pulls))
	for _, p := range pulls {
		pr := model.PullRequest{
			ID:           p.ID,
			Provider:     model.ProviderGitea,
			Owner:        owner,
			Repo:         repo,
			Number:       p.Number,
			Title:        p.Title,
			Body:         p.Body,
			Author:       p.User.Login,
			State:        model.PRState(p.State),
			SourceBranch: p.Head.Ref,
			TargetBranch: p.Base.Ref,
			URL:          p.HTMLURL,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
			MergedAt:     p.MergedAt,
		}
		if p.Merged {
			pr.State = model.PRStateMerged
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

// GetPullRequestDiff returns the unified diff for a pull request.
func (g *Gitea) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d.diff", owner, repo, number)
	var diff string
	if err := g.client.do(ctx, http.MethodGet, path, "", nil, &diff); err != nil {
		return "", err
	}
	return diff, nil
}

// CreateComment posts a comment. Inline comments are submitted as a
// single-comment review since Gitea has no standalone inline endpoint.
func (g *Gitea) CreateComment(ctx context.Context, owner, repo string, number int, comment CommentInput) error {
	if comment.Path != "" {
		return g.submitReview(ctx, owner, repo, number, "COMMENT", "", []CommentInput{comment})
	}
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	return g.client.do(ctx, http.MethodPost, path, "", map[string]string{"body": comment.Body}, nil)
}

func (g *Gitea) submitReview(ctx context.Context, owner, repo string, number int, event, body string, comments []CommentInput) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	payload := map[string]any{"event": event}
	if body != "" {
		payload["body"] = body
	}
	if len(comments) > 0 {
		list := make([]map[string]any, 0, len(comments))
		for _, c := range comments {
			list = append(list, map[string]any{"path": c.Path, "new_position": c.Line, "body": c.Body})
		}
		payload["comments"] = list
	}
	return g.client.do(ctx, http.MethodPost, path, "", payload, nil)
}

// ApproveReview submits an approving review.
func (g *Gitea) ApproveReview(ctx context.Context, owner, repo string, number int, body string) error {
	return g.submitReview(ctx, owner, repo, number, "APPROVED", body, nil)
}

// RequestChanges submits a changes-requested review.
func (g *Gitea) RequestChanges(ctx context.Context, owner, repo string, number int, body string) error {
	return g.submitReview(ctx, owner, repo, number, "REQUEST_CHANGES", body, nil)
}

// CreateReview submits a full review with a verdict and inline comments.
func (g *Gitea) CreateReview(ctx context.Context, owner, repo string, number int, review ReviewInput) error {
	event := "COMMENT"
	switch review.Event {
	case model.ReviewApproved:
		event = "APPROVED"
	case model.ReviewChangesRequested:
		event = "REQUEST_CHANGES"
	}
	return g.submitReview(ctx, owner, repo, number, event, review.Body, review.Comments)
}

// ValidateToken checks that the configured token is accepted by the API.
func (g *Gitea) ValidateToken(ctx context.Context) (bool, error) {
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
