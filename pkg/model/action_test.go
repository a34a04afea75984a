package model

import "testing"

func TestTargetString(t *testing.T) {
	target := Target{Provider: ProviderGitHub, Owner: "octo", Repo: "widgets", Number: 42}
	if got := target.String(); got != "github:octo/widgets#42" {
		t.Errorf("String() = %q", got)
	}
}

func TestTargetValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr bool
	}{
		{"valid", Target{Provider: ProviderGitLab, Owner: "o", Repo: "r", Number: 1}, false},
		{"bad provider", Target{Provider: "svn", Owner: "o", Repo: "r", Number: 1}, true},
		{"empty owner", Target{Provider: ProviderGitHub, Repo: "r", Number: 1}, true},
		{"empty repo", Target{Provider: ProviderGitHub, Owner: "o", Number: 1}, true},
		{"zero number", Target{Provider: ProviderGitHub, Owner: "o", Repo: "r"}, true},
		{"negative number", Target{Provider: ProviderGitHub, Owner: "o", Repo: "r", Number: -3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueuedActionValidate(t *testing.T) {
	target := Target{Provider: ProviderGitHub, Owner: "o", Repo: "r", Number: 1}

	tests := []struct {
		name    string
		action  QueuedAction
		wantErr bool
	}{
		{"comment", QueuedAction{Target: target, Kind: ActionComment, Payload: ActionPayload{Body: "x"}}, false},
		{"approve with empty body", QueuedAction{Target: target, Kind: ActionApprove}, false},
		{"review with verdict", QueuedAction{Target: target, Kind: ActionReview, Payload: ActionPayload{Event: ReviewApproved}}, false},
		{"review without verdict", QueuedAction{Target: target, Kind: ActionReview}, true},
		{"review with bogus verdict", QueuedAction{Target: target, Kind: ActionReview, Payload: ActionPayload{Event: "maybe"}}, true},
		{"unknown kind", QueuedAction{Target: target, Kind: "merge"}, true},
		{"invalid target", QueuedAction{Kind: ActionComment}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderTypeDefaultHost(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderGitHub, "github.com"},
		{ProviderGitLab, "gitlab.com"},
		{ProviderBitbucket, "bitbucket.org"},
		{ProviderAzure, "dev.azure.com"},
		{ProviderGitea, "gitea.com"},
		{"svn", ""},
	}
	for _, tt := range tests {
		if got := tt.provider.DefaultHost(); got != tt.want {
			t.Errorf("DefaultHost(%s) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestPullRequestValidate(t *testing.T) {
	valid := PullRequest{Number: 1, Title: "t", State: PRStateOpen}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid PR = %v", err)
	}

	tests := []struct {
		name string
		pr   PullRequest
	}{
		{"zero number", PullRequest{Title: "t", State: PRStateOpen}},
		{"empty title", PullRequest{Number: 1, State: PRStateOpen}},
		{"bad state", PullRequest{Number: 1, Title: "t", State: "deleted"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.pr.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}
