package model

import (
	"fmt"
	"time"
)

// ActionKind identifies the provider-side mutation a queued action performs
type ActionKind string

const (
	ActionComment        ActionKind = "comment"
	ActionApprove        ActionKind = "approve"
	ActionRequestChanges ActionKind = "requestChanges"
	ActionReview         ActionKind = "review"
)

// IsValid returns true if the action kind is a recognized value
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionComment, ActionApprove, ActionRequestChanges, ActionReview:
		return true
	}
	return false
}

// ActionStatus represents the replay state of a queued action
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionFailed  ActionStatus = "failed"
)

// ActionPayload carries the kind-specific data needed to replay an action.
// Body is used by every kind; Path and Line anchor inline comments; Event
// carries the review verdict for ActionReview.
type ActionPayload struct {
	Body  string      `json:"body,omitempty"`
	Path  string      `json:"path,omitempty"`
	Line  int         `json:"line,omitempty"`
	Event ReviewState `json:"event,omitempty"`
}

// Target identifies the pull request a queued action applies to.
type Target struct {
	Provider ProviderType `json:"provider"`
	Owner    string       `json:"owner"`
	Repo     string       `json:"repo"`
	Number   int          `json:"number"`
}

// String renders the target in owner/repo#number form for display and logs.
func (t Target) String() string {
	return fmt.Sprintf("%s:%s/%s#%d", t.Provider, t.Owner, t.Repo, t.Number)
}

// Validate checks if the target addresses a real pull request
func (t Target) Validate() error {
	if !t.Provider.IsValid() {
		return fmt.Errorf("invalid provider: %s", t.Provider)
	}
	if t.Owner == "" || t.Repo == "" {
		return fmt.Errorf("target owner and repo cannot be empty")
	}
	if t.Number <= 0 {
		return fmt.Errorf("target PR number must be positive, got %d", t.Number)
	}
	return nil
}

// QueuedAction is a durable record of one pending provider-side mutation.
// Rows are created on enqueue, mutated only by the replay engine, and
// deleted on successful replay.
type QueuedAction struct {
	ID         int64         `json:"id"`
	Target     Target        `json:"target"`
	Kind       ActionKind    `json:"kind"`
	Payload    ActionPayload `json:"payload"`
	Status     ActionStatus  `json:"status"`
	LastError  string        `json:"last_error,omitempty"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
}

// Validate checks if the queued action is logically valid
func (a *QueuedAction) Validate() error {
	if err := a.Target.Validate(); err != nil {
		return err
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("invalid action kind: %s", a.Kind)
	}
	if a.Kind == ActionReview && !a.Payload.Event.IsValid() {
		return fmt.Errorf("review action requires a valid event, got %q", a.Payload.Event)
	}
	return nil
}
