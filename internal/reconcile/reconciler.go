// Package reconcile keeps the locally displayed state consistent with the
// eventual outcome of a submission: speculative changes apply immediately
// and are confirmed or reverted when the result arrives.
package reconcile

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"plaza-social/go-client/pkg/models"
)

const (
	KindVote     = "vote"
	KindComment  = "comment"
	KindPublish  = "publish"
	KindFollow   = "follow"
	KindUnfollow = "unfollow"
)

var (
	// ErrAlreadyPending rejects a duplicate intent locally, before any
	// network involvement. This rule also serializes operations issued by
	// the same actor against the same target.
	ErrAlreadyPending = errors.New("an identical action is already pending")
	ErrIncomplete     = errors.New("speculative change is incomplete")
)

// Change is a pending mutation to locally displayed state, tagged with the
// intent it depends on. Apply runs when the intent is issued; Revert
// restores the pre-speculative value if the submission fails.
type Change struct {
	Actor  string
	Target string
	Kind   string
	Apply  func()
	Revert func()
}

type changeKey struct {
	actor  string
	target string
	kind   string
}

type Reconciler struct {
	mu      sync.Mutex
	pending map[changeKey]struct{}
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{
		pending: make(map[changeKey]struct{}),
		logger:  logger,
	}
}

// Begin registers the change and applies its speculative mutation. At most
// one change per (actor, target, kind) may be outstanding.
func (r *Reconciler) Begin(ch Change) error {
	if ch.Actor == "" || ch.Target == "" || ch.Kind == "" || ch.Apply == nil || ch.Revert == nil {
		return ErrIncomplete
	}
	k := changeKey{actor: ch.Actor, target: ch.Target, kind: ch.Kind}

	r.mu.Lock()
	if _, busy := r.pending[k]; busy {
		r.mu.Unlock()
		return ErrAlreadyPending
	}
	r.pending[k] = struct{}{}
	r.mu.Unlock()

	ch.Apply()
	return nil
}

// Resolve settles the change: an accepted result keeps the speculative
// state (it is already correct), a rejected one reverts it. Either way the
// pending slot is released so the control can be re-enabled.
func (r *Reconciler) Resolve(ch Change, res models.SubmissionResult) {
	k := changeKey{actor: ch.Actor, target: ch.Target, kind: ch.Kind}

	r.mu.Lock()
	delete(r.pending, k)
	r.mu.Unlock()

	if res.Accepted {
		return
	}
	if ch.Revert != nil {
		ch.Revert()
	}
	r.logger.Info("speculative change reverted",
		"actor", ch.Actor, "target", ch.Target, "kind", ch.Kind, "reason", res.Reason)
}

// Pending reports whether an identical intent is outstanding; the UI uses
// it to keep the triggering control disabled.
func (r *Reconciler) Pending(actor, target, kind string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.pending[changeKey{actor: actor, target: target, kind: kind}]
	return busy
}

// PendingCount is exposed for diagnostics.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
