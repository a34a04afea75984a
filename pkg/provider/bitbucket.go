package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// Bitbucket talks to the Bitbucket Cloud API (2.0).
type Bitbucket struct {
	client *restClient
}

// NewBitbucket creates a Bitbucket adapter for the given host and token.
func NewBitbucket(host, token string) *Bitbucket {
	base := "https://api.bitbucket.org/2.0"
	if host != "" && host != "bitbucket.org" {
		base = "https://" + host + "/api/2.0"
	}
	return &Bitbucket{
		client: newRESTClient(base, "Authorization", "Bearer "+token),
	}
}

type bitbucketBranch struct {
	Branch struct {
		Name string `json:"name"`
	} `json:"branch"`
}

type bitbucketPR struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"description"`
	State  string `json:"state"`
	Author struct {
		Nickname    string `json:"nickname"`
		DisplayName string `json:"display_name"`
	} `json:"author"`
	Source      bitbucketBranch `json:"source"`
	Destination bitbucketBranch `json:"destination"`
	Links       struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

func (p bitbucketPR) toModel(owner, repo string) model.PullRequest {
	state := model.PRStateOpen
	switch p.State {
	case "MERGED":
		state = model.PRStateMerged
	case "DECLINED", "SUPERSEDED":
		state = model.PRStateClosed
	}
	author := p.Author.Nickname
	if author == "" {
		author = p.Author.DisplayName
	}
	return model.PullRequest{
		ID:           p.ID,
		Provider:     model.ProviderBitbucket,
		Owner:        owner,
		Repo:         repo,
		Number:       int(p.ID),
		Title:        p.Title,
		Body:         p.Body,
		Author:       author,
		State:        state,
		SourceBranch: p.Source.Branch.Name,
		TargetBranch: p.Destination.Branch.Name,
		URL:          p.Links.HTML.Href,
		CreatedAt:    p.CreatedOn,
		UpdatedAt:    p.UpdatedOn,
	}
}

// ListPullRequests returns pull requests for the repository.
func (b *Bitbucket) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]model.PullRequest, error) {
	state := "OPEN"
	switch opts.State {
	case model.PRStateClosed:
		state = "DECLINED"
	case model.PRStateMerged:
		state = "MERGED"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests?state=%s&pagelen=%d", owner, repo, state, limit)

	var resp struct {
		Values []bitbucketPR `json:"values"`
	}
	if err := b.client.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}

	prs := make([]model.PullRequest, 0, len(resp.Values))
	for _, p := range resp.Values {
		prs = append(prs, p.toModel(owner, repo))
	}
	return prs, nil
}

// GetPullRequestDiff returns the unified diff for a pull request.
func (b *Bitbucket) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d/diff", owner, repo, number)
	var diff string
	if err := b.client.do(ctx, http.MethodGet, path, "", nil, &diff); err != nil {
		return "", err
	}
	return diff, nil
}

// CreateComment posts a comment, inline when a path anchor is present.
func (b *Bitbucket) CreateComment(ctx context.Context, owner, repo string, number int, comment CommentInput) error {
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d/comments", owner, repo, number)
	payload := map[string]any{
		"content": map[string]string{"raw": comment.Body},
	}
	if comment.Path != "" {
		payload["inline"] = map[string]any{"path": comment.Path, "to": comment.Line}
	}
	return b.client.do(ctx, http.MethodPost, path, "", payload, nil)
}

// ApproveReview approves the pull request, posting the body as a comment
// first when present.
func (b *Bitbucket) ApproveReview(ctx context.Context, owner, repo string, number int, body string) error {
	if body != "" {
		if err := b.CreateComment(ctx, owner, repo, number, CommentInput{Body: body}); err != nil {
			return err
		}
	}
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d/approve", owner, repo, number)
	return b.client.do(ctx, http.MethodPost, path, "", nil, nil)
}

// RequestChanges marks the pull request as changes-requested.
func (b *Bitbucket) RequestChanges(ctx context.Context, owner, repo string, number int, body string) error {
	if body != "" {
		if err := b.CreateComment(ctx, owner, repo, number, CommentInput{Body: body}); err != nil {
			return err
		}
	}
	path := fmt.Sprintf("/repositories/%s/%s/pullrequests/%d/request-changes", owner, repo, number)
	return b.client.do(ctx, http.MethodPost, path, "", nil, nil)
}

// CreateReview posts the review comments and applies the verdict.
func (b *Bitbucket) CreateReview(ctx context.Context, owner, repo string, number int, review ReviewInput) error {
	for _, c := range review.Comments {
		if err := b.CreateComment(ctx, owner, repo, number, c); err != nil {
			return err
		}
	}
	switch review.Event {
	case model.ReviewApproved:
		return b.ApproveReview(ctx, owner, repo, number, review.Body)
	case model.ReviewChangesRequested:
		return b.RequestChanges(ctx, owner, repo, number, review.Body)
	}
	if review.Body != "" {
		return b.CreateComment(ctx, owner, repo, number, CommentInput{Body: review.Body})
	}
	return nil
}

// ValidateToken checks that the configured token is accepted by the API.
func (b *Bitbucket) ValidateToken(ctx context.Context) (bool, error) {
	err := b.client.do(ctx, http.MethodGet, "/user", "", nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	return false, err
}
