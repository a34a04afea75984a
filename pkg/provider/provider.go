// Package provider implements the code-host adapters. Every supported host
// (GitHub, GitLab, Bitbucket, Azure DevOps, Gitea) exposes the same Provider
// capability interface; the rest of the application never sees host-specific
// API shapes.
package provider

import (
	"context"
	"fmt"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// ListOptions narrows a pull request listing.
type ListOptions struct {
	State model.PRState // zero value means open
	Limit int           // 0 means provider default
}

// CommentInput is the payload for creating a comment. Path and Line are set
// only for inline comments anchored to the diff.
type CommentInput struct {
	Body string
	Path string
	Line int
}

// ReviewInput is the payload for submitting a full review.
type ReviewInput struct {
	Body     string
	Event    model.ReviewState
	Comments []CommentInput
}

// Provider is the capability interface one code host implements. Calls may
// fail transiently (network) or permanently (auth, validation); callers that
// need to distinguish can unwrap *APIError.
type Provider interface {
	ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]model.PullRequest, error)
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment CommentInput) error
	ApproveReview(ctx context.Context, owner, repo string, number int, body string) error
	RequestChanges(ctx context.Context, owner, repo string, number int, body string) error
	CreateReview(ctx context.Context, owner, repo string, number int, review ReviewInput) error
	ValidateToken(ctx context.Context) (bool, error)
}

// New returns the adapter for the given provider type. host may be empty,
// in which case the provider's canonical public host is used.
func New(t model.ProviderType, host, token string) (Provider, error) {
	if host == "" {
		host = t.DefaultHost()
	}
	switch t {
	case model.ProviderGitHub:
		return NewGitHub(host, token), nil
	case model.ProviderGitLab:
		return NewGitLab(host, token), nil
	case model.ProviderBitbucket:
		return NewBitbucket(host, token), nil
	case model.ProviderAzure:
		return NewAzure(host, token), nil
	case model.ProviderGitea:
		return NewGitea(host, token), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", t)
	}
}
