package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kraitsura/lazyreview/pkg/model"
)

const azureAPIVersion = "7.0"

// Azure talks to the Azure DevOps Git API. The host carries the
// organization ("dev.azure.com/myorg"); owner maps to the project and repo
// to the repository.
type Azure struct {
	client *restClient

	// selfID caches the authenticated user's GUID, required by the
	// reviewer vote endpoint.
	selfID string
}

// NewAzure creates an Azure DevOps adapter for the given host and token.
// The PAT is sent via basic auth with an empty user, as the API expects.
func NewAzure(host, token string) *Azure {
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+token))
	return &Azure{
		client: newRESTClient("https://"+host, "Authorization", auth),
	}
}

type azurePR struct {
	PullRequestID int    `json:"pullRequestId"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	IsDraft       bool   `json:"isDraft"`
	CreatedBy     struct {
		UniqueName  string `json:"uniqueName"`
		DisplayName string `json:"displayName"`
	} `json:"createdBy"`
	SourceRefName string    `json:"sourceRefName"`
	TargetRefName string    `json:"targetRefName"`
	CreationDate  time.Time `json:"creationDate"`
	ClosedDate    *time.Time `json:"closedDate"`
}

func (p azurePR) toModel(owner, repo string) model.PullRequest {
	state := model.PRStateOpen
	switch p.Status {
	case "completed":
		state = model.PRStateMerged
	case "abandoned":
		state = model.PRStateClosed
	}
	author := p.CreatedBy.UniqueName
	if author == "" {
		author = p.CreatedBy.DisplayName
	}
	pr := model.PullRequest{
		ID:           int64(p.PullRequestID),
		Provider:     model.ProviderAzure,
		Owner:        owner,
		Repo:         repo,
		Number:       p.PullRequestID,
		Title:        p.Title,
		Body:         p.Description,
		Author:       author,
		State:        state,
		Draft:        p.IsDraft,
		SourceBranch: strings.TrimPrefix(p.SourceRefName, "refs/heads/"),
		TargetBranch: strings.TrimPrefix(p.TargetRefName, "refs/heads/"),
		CreatedAt:    p.CreationDate,
		UpdatedAt:    p.CreationDate,
	}
	if state == model.PRStateMerged {
		pr.MergedAt = p.ClosedDate
	}
	return pr
}

// ListPullRequests returns pull requests for the repository.
func (a *Azure) ListPullRequests(ctx context.Context, owner, repo string, opts ListOptions) ([]model.PullRequest, error) {
	status := "active"
	switch opts.State {
	case model.PRStateClosed:
		status = "abandoned"
	case model.PRStateMerged:
		status = "completed"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 30
	}
	path := fmt.Sprintf("/%s/_apis/git/repositories/%s/pullrequests?searchCriteria.status=%s&$top=%d&api-version=%s",
		owner, repo, status, limit, azureAPIVersion)

	var resp struct {
		Value []azurePR `json:"value"`
	}
	if err := a.client.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return nil, err
	}

	prs := make([]model.PullRequest, 0, len(resp.Value))
	for _, p := range resp.Value {
		prs = append(prs, p.toModel(owner, repo))
	}
	return prs, nil
}

// GetPullRequestDiff returns a file-level change summary. Azure DevOps has
// no endpoint that serves one unified diff, so the latest iteration's change
// entries are rendered as a listing.
func (a *Azure) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	iterPath := fmt.Sprintf("/%s/_apis/git/repositories/%s/pullrequests/%d/iterations?api-version=%s",
		owner, repo, number, azureAPIVersion)
	var iterations struct {
		Value []struct {
			ID int `json:"id"`
		} `json:"value"`
	}
	if err := a.client.do(ctx, http.MethodGet, iterPath, "", nil, &iterations); err != nil {
		return "", err
	}
	if len(iterations.Value) == 0 {
		return "", nil
	}
	latest := iterations.Value[len(iterations.Value)-1].ID

	changePath := fmt.Sprintf("/%s/_apis/git/repositories/%s/pullrequests/%d/iterations/%d/changes?api-version=%s",
		owner, repo, number, latest, azureAPIVersion)
	var changes struct {
		ChangeEntries []struct {
			ChangeType string `json:"changeType"`
			Item       struct {
				Path string `json:"path"`
			} `json:"item"`
		} `json:"changeEntries"`
	}
	if err := a.client.do(ctx, http.MethodGet, changePath, "", nil, &changes); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, c := range changes.ChangeEntries {
		fmt.Fprintf(&b, "%s %s\n", c.ChangeType, c.Item.Path)
	}
	return b.String(), nil
}

// CreateComment opens a new comment thread, anchored to a file when a path
// is present.
func (a *Azure) CreateComment(ctx context.Context, owner, repo string, number int, comment CommentInput) error {
	path := fmt.Sprintf("/%s/_apis/git/repositories/%s/pullrequests/%d/threads?api-version=%s",
		owner, repo, number, azureAPIVersion)
	payload := map[string]any{
		"comments": []map[string]any{
			{"parentCommentId": 0, "content": comment.Body, "commentType": 1},
		},
		"status": 1,
	}
	if comment.Path != "" {
		payload["threadContext"] = map[string]any{
			"filePath":       comment.Path,
			"rightFileStart": map[string]int{"line": comment.Line, "offset": 1},
			"rightFileEnd":   map[string]int{"line": comment.Line, "offset": 1},
		}
	}
	return a.client.do(ctx, http.MethodPost, path, "", payload, nil)
}

// fetchSelfID resolves the authenticated user's GUID for the vote endpoint.
func (a *Azure) fetchSelfID(ctx context.Context) (string, error) {
	if a.selfID != "" {
		return a.selfID, nil
	}
	var resp struct {
		AuthenticatedUser struct {
			ID string `json:"id"`
		} `json:"authenticatedUser"`
	}
	if err := a.client.do(ctx, http.MethodGet, "/_apis/connectionData?api-version="+azureAPIVersion+"-preview", "", nil, &resp); err != nil {
		return "", err
	}
	if resp.AuthenticatedUser.ID == "" {
		return "", fmt.Errorf("connection data returned no authenticated user")
	}
	a.selfID = resp.AuthenticatedUser.ID
	return a.selfID, nil
}

// vote casts a reviewer vote: 10 approves, -5 waits for author.
func (a *Azure) vote(ctx context.Context, owner, repo string, number, value int) error {
	id, err := a.fetchSelfID(ctx)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/%s/_apis/git/repositories/%s/pullrequests/%d/reviewers/%s?api-version=%s",
		owner, repo, number, id, azureAPIVersion)
	return a.client.do(ctx, http.MethodPut, path, "", map[string]any{"vote": value, "id": id}, nil)
}

// ApproveReview casts an approving vote, posting the body as a comment
// thread first when present.
func (a *Azure) ApproveReview(ctx context.Context, owner, repo string, number int, body string) error {
	if body != "" {
		if err := a.CreateComment(ctx, owner, repo, number, CommentInput{Body: body}); err != nil {
			return err
		}
	}
	return a.vote(ctx, owner, repo, number, 10)
}

// RequestChanges casts a waiting-for-author vote with the feedback attached.
func (a *Azure) RequestChanges(ctx context.Context, owner, repo string, number int, body string) error {
	if body != "" {
		if err := a.CreateComment(ctx, owner, repo, number, CommentInput{Body: body}); err != nil {
			return err
		}
	}
	return a.vote(ctx, owner, repo, number, -5)
}

// CreateReview posts the review comments and applies the verdict vote.
func (a *Azure) CreateReview(ctx context.Context, owner, repo string, number int, review ReviewInput) error {
	for _, c := range review.Comments {
		if err := a.CreateComment(ctx, owner, repo, number, c); err != nil {
			return err
		}
	}
	switch review.Event {
	case model.ReviewApproved:
		return a.ApproveReview(ctx, owner, repo, number, review.Body)
	case model.ReviewChangesRequested:
		return a.RequestChanges(ctx, owner, repo, number, review.Body)
	}
	if review.Body != "" {
		return a.CreateComment(ctx, owner, repo, number, CommentInput{Body: review.Body})
	}
	return nil
}

// ValidateToken checks that the configured PAT is accepted by the API.
func (a *Azure) ValidateToken(ctx context.Context) (bool, error) {
	_, err := a.fetchSelfID(ctx)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	return false, err
}
