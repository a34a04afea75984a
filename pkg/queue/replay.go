package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kraitsura/lazyreview/pkg/model"
	"github.com/kraitsura/lazyreview/pkg/provider"
)

// DefaultGroupConcurrency limits how many PR groups replay in parallel.
const DefaultGroupConcurrency = 4

// ResolveFunc returns a ready-to-use provider for the given type. The
// engine resolves once per group; construction failure counts as that
// group's first failure.
type ResolveFunc func(t model.ProviderType) (provider.Provider, error)

// ActionError describes one failed action in a replay pass.
type ActionError struct {
	ActionID int64
	Target   model.Target
	Kind     model.ActionKind
	Message  string
}

func (e ActionError) Error() string {
	return fmt.Sprintf("%s %s (action %d): %s", e.Kind, e.Target, e.ActionID, e.Message)
}

// Summary is the outcome of one replay pass.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Errors    []ActionError
}

// Engine drains the action queue against live providers. Actions targeting
// the same pull request replay strictly in enqueue order and halt on the
// first failure; independent pull requests replay concurrently.
type Engine struct {
	store      *Store
	resolve    ResolveFunc
	log        *logrus.Logger
	groupLimit int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for per-action progress.
func WithLogger(log *logrus.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// WithGroupConcurrency sets how many PR groups may replay in parallel.
func WithGroupConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.groupLimit = n
		}
	}
}

// NewEngine creates a replay engine over the given store.
func NewEngine(store *Store, resolve ResolveFunc, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		resolve:    resolve,
		log:        logrus.New(),
		groupLimit: DefaultGroupConcurrency,
	}
	e.log.SetLevel(logrus.ErrorLevel)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one replay pass over everything currently queued. Provider
// failures are recorded per action and reported in the summary; only local
// storage failures abort the pass with an error.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	actions, err := e.store.List(nil)
	if err != nil {
		return Summary{}, err
	}

	groups, order := groupByTarget(actions)

	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.groupLimit)

	for _, target := range order {
		group := groups[target]
		g.Go(func() error {
			res, err := e.replayGroup(gctx, target, group)
			mu.Lock()
			summary.Succeeded += res.Succeeded
			summary.Failed += res.Failed
			summary.Skipped += res.Skipped
			summary.Errors = append(summary.Errors, res.Errors...)
			mu.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

// groupByTarget buckets actions per pull request, preserving enqueue order
// both within each group and across group starts.
func groupByTarget(actions []model.QueuedAction) (map[model.Target][]model.QueuedAction, []model.Target) {
	groups := make(map[model.Target][]model.QueuedAction)
	var order []model.Target
	for _, a := range actions {
		if _, seen := groups[a.Target]; !seen {
			order = append(order, a.Target)
		}
		groups[a.Target] = append(groups[a.Target], a)
	}
	return groups, order
}

// replayGroup replays one PR's actions in order. The returned error is
// reserved for local storage failures; provider failures land in the
// summary.
func (e *Engine) replayGroup(ctx context.Context, target model.Target, actions []model.QueuedAction) (Summary, error) {
	var res Summary

	p, resolveErr := e.resolve(target.Provider)

	halted := false
	for _, a := range actions {
		if halted {
			res.Skipped++
			continue
		}

		var callErr error
		switch {
		case resolveErr != nil:
			callErr = fmt.Errorf("resolve provider: %w", resolveErr)
		default:
			callErr = invoke(ctx, p, a)
		}

		if callErr == nil {
			if err := e.store.Remove(a.ID); err != nil {
				return res, err
			}
			res.Succeeded++
			e.log.WithFields(logrus.Fields{"action": a.ID, "target": target.String(), "kind": a.Kind}).Info("action replayed")
			continue
		}

		if err := e.store.MarkFailed(a.ID, callErr.Error()); err != nil {
			return res, err
		}
		res.Failed++
		res.Errors = append(res.Errors, ActionError{
			ActionID: a.ID,
			Target:   target,
			Kind:     a.Kind,
			Message:  callErr.Error(),
		})
		e.log.WithFields(logrus.Fields{"action": a.ID, "target": target.String(), "kind": a.Kind}).WithError(callErr).Warn("action failed, halting group")
		// Later actions in this PR may depend on provider-side state this
		// one should have created; do not attempt them this pass.
		halted = true
	}

	return res, nil
}

// invoke calls the provider method matching the action kind.
func invoke(ctx context.Context, p provider.Provider, a model.QueuedAction) error {
	t := a.Target
	switch a.Kind {
	case model.ActionComment:
		return p.CreateComment(ctx, t.Owner, t.Repo, t.Number, provider.CommentInput{
			Body: a.Payload.Body,
			Path: a.Payload.Path,
			Line: a.Payload.Line,
		})
	case model.ActionApprove:
		return p.ApproveReview(ctx, t.Owner, t.Repo, t.Number, a.Payload.Body)
	case model.ActionRequestChanges:
		return p.RequestChanges(ctx, t.Owner, t.Repo, t.Number, a.Payload.Body)
	case model.ActionReview:
		return p.CreateReview(ctx, t.Owner, t.Repo, t.Number, provider.ReviewInput{
			Body:  a.Payload.Body,
			Event: a.Payload.Event,
		})
	default:
		return fmt.Errorf("unknown action kind: %s", a.Kind)
	}
}
