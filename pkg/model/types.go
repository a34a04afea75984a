package model

import (
	"fmt"
	"time"
)

// PullRequest represents a proposed change fetched from a code host.
type PullRequest struct {
	ID           int64        `json:"id"`
	Provider     ProviderType `json:"provider"`
	Owner        string       `json:"owner"`
	Repo         string       `json:"repo"`
	Number       int          `json:"number"`
	Title        string       `json:"title"`
	Body         string       `json:"body,omitempty"`
	Author       string       `json:"author"`
	State        PRState      `json:"state"`
	Draft        bool         `json:"draft,omitempty"`
	SourceBranch string       `json:"source_branch,omitempty"`
	TargetBranch string       `json:"target_branch,omitempty"`
	URL          string       `json:"url,omitempty"`
	Labels       []string     `json:"labels,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	MergedAt     *time.Time   `json:"merged_at,omitempty"`
}

// Validate checks if the pull request data is logically valid
func (p *PullRequest) Validate() error {
	if p.Number <= 0 {
		return fmt.Errorf("pull request number must be positive, got %d", p.Number)
	}
	if p.Title == "" {
		return fmt.Errorf("pull request title cannot be empty")
	}
	if !p.State.IsValid() {
		return fmt.Errorf("invalid state: %s", p.State)
	}
	if !p.UpdatedAt.IsZero() && !p.CreatedAt.IsZero() && p.UpdatedAt.Before(p.CreatedAt) {
		return fmt.Errorf("updated_at (%v) cannot be before created_at (%v)", p.UpdatedAt, p.CreatedAt)
	}
	return nil
}

// PRState represents the current state of a pull request
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// IsValid returns true if the state is a recognized value
func (s PRState) IsValid() bool {
	switch s {
	case PRStateOpen, PRStateClosed, PRStateMerged:
		return true
	}
	return false
}

// IsOpen returns true if the pull request is still reviewable
func (s PRState) IsOpen() bool {
	return s == PRStateOpen
}

// ProviderType identifies a supported code host
type ProviderType string

const (
	ProviderGitHub    ProviderType = "github"
	ProviderGitLab    ProviderType = "gitlab"
	ProviderBitbucket ProviderType = "bitbucket"
	ProviderAzure     ProviderType = "azuredevops"
	ProviderGitea     ProviderType = "gitea"
)

// IsValid returns true if the provider type is a recognized value
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderGitHub, ProviderGitLab, ProviderBitbucket, ProviderAzure, ProviderGitea:
		return true
	}
	return false
}

// DefaultHost returns the canonical public host for the provider.
// Self-hosted installs override this in config.
func (p ProviderType) DefaultHost() string {
	switch p {
	case ProviderGitHub:
		return "github.com"
	case ProviderGitLab:
		return "gitlab.com"
	case ProviderBitbucket:
		return "bitbucket.org"
	case ProviderAzure:
		return "dev.azure.com"
	case ProviderGitea:
		return "gitea.com"
	default:
		return ""
	}
}

// ReviewState represents the verdict attached to a submitted review
type ReviewState string

const (
	ReviewApproved         ReviewState = "approved"
	ReviewChangesRequested ReviewState = "changes_requested"
	ReviewCommented        ReviewState = "commented"
)

// IsValid returns true if the review state is a recognized value
func (r ReviewState) IsValid() bool {
	switch r {
	case ReviewApproved, ReviewChangesRequested, ReviewCommented:
		return true
	}
	return false
}

// Comment represents a comment on a pull request. Path and Line are set
// only for inline comments anchored to the diff.
type Comment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Path      string    `json:"path,omitempty"`
	Line      int       `json:"line,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Review represents a submitted review with an overall verdict and
// optional inline comments.
type Review struct {
	ID        int64       `json:"id"`
	Author    string      `json:"author"`
	Body      string      `json:"body,omitempty"`
	State     ReviewState `json:"state"`
	Comments  []Comment   `json:"comments,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
