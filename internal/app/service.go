// Package app wires intents from the UI through validation, speculative
// state, and the broadcast pipeline, and owns the signed-in identity.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"plaza-social/go-client/internal/ops"
	"plaza-social/go-client/internal/platform/ratelimiter"
	"plaza-social/go-client/internal/reconcile"
	"plaza-social/go-client/internal/session"
	"plaza-social/go-client/internal/signing"
	"plaza-social/go-client/pkg/models"
)

type broadcaster interface {
	Broadcast(ctx context.Context, req signing.Request) models.SubmissionResult
}

// Deps carries the service's collaborators. Nil optional fields get
// reasonable defaults.
type Deps struct {
	Logger      *slog.Logger
	View        *ViewState
	Reconciler  *reconcile.Reconciler
	Broadcaster broadcaster
	Limiter     *ratelimiter.ActorLimiter
	Sessions    *session.Store
	Now         func() time.Time
}

type Service struct {
	mu       sync.Mutex
	logger   *slog.Logger
	view     *ViewState
	rec      *reconcile.Reconciler
	caster   broadcaster
	limiter  *ratelimiter.ActorLimiter
	sessions *session.Store
	identity models.Identity
	wif      string
	drafts   map[string]models.PublishDraft
	actions  *prometheus.CounterVec
	now      func() time.Time
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.View == nil {
		deps.View = NewViewState()
	}
	if deps.Reconciler == nil {
		deps.Reconciler = reconcile.New(deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Service{
		logger:   deps.Logger,
		view:     deps.View,
		rec:      deps.Reconciler,
		caster:   deps.Broadcaster,
		limiter:  deps.Limiter,
		sessions: deps.Sessions,
		drafts:   make(map[string]models.PublishDraft),
		now:      deps.Now,
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plaza",
			Subsystem: "actions",
			Name:      "requests_total",
			Help:      "Action requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if s.sessions != nil {
		if drafts, err := s.sessions.LoadDrafts(); err == nil {
			s.drafts = drafts
		} else {
			s.logger.Warn("draft store unreadable, starting empty", "error", err)
		}
	}
	return s
}

// Register exposes the service's metrics on the given registry.
func (s *Service) Register(reg prometheus.Registerer) error {
	return reg.Register(s.actions)
}

// View returns the state the UI renders from.
func (s *Service) View() *ViewState { return s.view }

// LoginWithAgent signs the actor in through the external signing agent. No
// secret ever enters the process.
func (s *Service) LoginWithAgent(actor string) error {
	return s.login(models.Identity{Actor: actor, SigningMode: models.SigningModeAgent}, "")
}

// LoginWithKey signs the actor in with a locally supplied WIF secret. The
// secret stays in memory for the session and is never persisted or logged.
func (s *Service) LoginWithKey(actor, wif string) error {
	key, err := signing.DecodeWIF(wif)
	if err != nil {
		return err
	}
	key.Zero()
	return s.login(models.Identity{Actor: actor, SigningMode: models.SigningModeKey}, wif)
}

func (s *Service) login(id models.Identity, wif string) error {
	if !id.Valid() {
		return fmt.Errorf("invalid identity: actor=%q mode=%q", id.Actor, id.SigningMode)
	}
	s.mu.Lock()
	s.identity = id
	s.wif = wif
	s.mu.Unlock()

	if s.sessions != nil {
		if err := s.sessions.Save(id); err != nil && err != session.ErrNotConfigured {
			s.logger.Warn("session not persisted", "error", err)
		}
	}
	s.logger.Info("signed in", "actor", id.Actor, "signing_mode", id.SigningMode)
	return nil
}

// Resume restores the previously persisted session, if any. Key-signed
// sessions resume without the secret: the next submission will require it
// again via LoginWithKey.
func (s *Service) Resume() (models.Identity, bool, error) {
	if s.sessions == nil {
		return models.Identity{}, false, nil
	}
	id, ok, err := s.sessions.Load()
	if err != nil || !ok {
		return models.Identity{}, ok, err
	}
	s.mu.Lock()
	s.identity = id
	s.wif = ""
	s.mu.Unlock()
	s.logger.Info("session resumed", "actor", id.Actor, "signing_mode", id.SigningMode)
	return id, true, nil
}

// Logout drops the in-memory identity and secret and clears the persisted
// session.
func (s *Service) Logout() error {
	s.mu.Lock()
	actor := s.identity.Actor
	s.identity = models.Identity{}
	s.wif = ""
	s.mu.Unlock()

	if s.sessions != nil {
		if err := s.sessions.Clear(); err != nil {
			return err
		}
	}
	if actor != "" {
		s.logger.Info("signed out", "actor", actor)
	}
	return nil
}

// Identity returns the signed-in identity, if any.
func (s *Service) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.identity.Valid()
}

// RequestVote casts a vote on the target content. Weight is in basis points
// of voting power, negative for a downvote, zero to remove a prior vote.
func (s *Service) RequestVote(ctx context.Context, author, permlink string, weight int) models.ActionResult {
	id, res := s.signedIn()
	if !res.Success {
		return res
	}
	op, err := ops.NewVote(id.Actor, author, permlink, weight)
	if err != nil {
		return s.refuse(reconcile.KindVote, err.Error())
	}
	target := author + "/" + permlink
	prev, had := s.view.VoteWeight(id.Actor, target)
	ch := reconcile.Change{
		Actor:  id.Actor,
		Target: target,
		Kind:   reconcile.KindVote,
		Apply:  func() { s.view.RecordVote(id.Actor, target, weight) },
		Revert: func() {
			if had {
				s.view.RecordVote(id.Actor, target, prev)
			} else {
				s.view.RecordVote(id.Actor, target, 0)
			}
		},
	}
	return s.submit(ctx, id, op, ch)
}

// RequestComment replies to existing content.
func (s *Service) RequestComment(ctx context.Context, parentAuthor, parentPermlink, body string, tags []string) models.ActionResult {
	id, res := s.signedIn()
	if !res.Success {
		return res
	}
	op, err := ops.NewComment(id.Actor, parentAuthor, parentPermlink, body, tags)
	if err != nil {
		return s.refuse(reconcile.KindComment, err.Error())
	}
	identifier := op.ContentIdentifier()
	ch := reconcile.Change{
		Actor:  id.Actor,
		Target: parentAuthor + "/" + parentPermlink,
		Kind:   reconcile.KindComment,
		Apply:  func() { s.view.AddContent(id.Actor, identifier) },
		Revert: func() { s.view.RemoveContent(id.Actor, identifier) },
	}
	return s.submit(ctx, id, op, ch)
}

// RequestPublish posts the draft as new top-level content. The draft is kept
// until the ledger accepts it, so a rejection never loses composed text, and
// a retry reuses the identifier minted on the first attempt.
func (s *Service) RequestPublish(ctx context.Context, draft models.PublishDraft) models.ActionResult {
	id, res := s.signedIn()
	if !res.Success {
		return res
	}

	// A stored identifier is only reused when the draft is a retry of the
	// same post. A different post must mint its own: if the earlier attempt
	// actually landed after a timeout, submitting new content under the old
	// identifier would silently overwrite it.
	s.mu.Lock()
	if stored, ok := s.drafts[id.Actor]; ok && draft.PermlinkHint == "" && sameDraftContent(draft, stored) {
		draft.PermlinkHint = stored.PermlinkHint
	}
	s.mu.Unlock()

	var op *ops.Comment
	var err error
	if draft.PermlinkHint != "" {
		op, err = ops.NewPublishWithIdentifier(id.Actor, draft.Title, draft.Body, draft.Tags, draft.Image, draft.PermlinkHint)
	} else {
		op, err = ops.NewPublish(id.Actor, draft.Title, draft.Body, draft.Tags, draft.Image)
	}
	if err != nil {
		return s.refuse(reconcile.KindPublish, err.Error())
	}

	identifier := op.ContentIdentifier()
	draft.PermlinkHint = identifier
	s.rememberDraft(id.Actor, draft, "")

	ch := reconcile.Change{
		Actor:  id.Actor,
		Target: identifier,
		Kind:   reconcile.KindPublish,
		Apply:  func() { s.view.AddContent(id.Actor, identifier) },
		Revert: func() { s.view.RemoveContent(id.Actor, identifier) },
	}
	out := s.submit(ctx, id, op, ch)
	if out.Success {
		s.forgetDraft(id.Actor)
	} else {
		s.rememberDraft(id.Actor, draft, out.Error)
	}
	return out
}

// RequestFollow subscribes the signed-in actor to the target's content.
func (s *Service) RequestFollow(ctx context.Context, target string) models.ActionResult {
	return s.requestFollowState(ctx, target, true)
}

// RequestUnfollow removes the subscription.
func (s *Service) RequestUnfollow(ctx context.Context, target string) models.ActionResult {
	return s.requestFollowState(ctx, target, false)
}

func (s *Service) requestFollowState(ctx context.Context, target string, follow bool) models.ActionResult {
	id, res := s.signedIn()
	if !res.Success {
		return res
	}
	kind := reconcile.KindFollow
	build := ops.NewFollow
	if !follow {
		kind = reconcile.KindUnfollow
		build = ops.NewUnfollow
	}
	op, err := build(id.Actor, target)
	if err != nil {
		return s.refuse(kind, err.Error())
	}
	ch := reconcile.Change{
		Actor:  id.Actor,
		Target: target,
		Kind:   kind,
		Apply:  func() { s.view.SetFollowing(id.Actor, target, follow) },
		Revert: func() { s.view.SetFollowing(id.Actor, target, !follow) },
	}
	return s.submit(ctx, id, op, ch)
}

// Draft returns the actor's preserved publish draft, if any.
func (s *Service) Draft(actor string) (models.PublishDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[actor]
	return d, ok
}

func (s *Service) submit(ctx context.Context, id models.Identity, op ops.Operation, ch reconcile.Change) models.ActionResult {
	if !s.limiter.Allow(id.Actor, s.now()) {
		return s.refuse(op.Kind(), "submission rate limit exceeded, try again shortly")
	}
	if err := s.rec.Begin(ch); err != nil {
		s.actions.WithLabelValues(op.Kind(), models.ReasonAlreadyPending).Inc()
		return models.ActionResult{Success: false, Error: err.Error()}
	}

	s.mu.Lock()
	wif := s.wif
	s.mu.Unlock()

	req := signing.Request{
		Identity:  id,
		Operation: op,
		Authority: op.Authority(),
		WIF:       wif,
	}
	res := s.caster.Broadcast(ctx, req)
	s.rec.Resolve(ch, res)

	outcome := "accepted"
	if !res.Accepted {
		outcome = res.Reason
	}
	s.actions.WithLabelValues(op.Kind(), outcome).Inc()

	if res.Accepted {
		return models.ActionResult{Success: true, Identifier: res.Identifier}
	}
	return models.ActionResult{Success: false, Error: res.Message, Identifier: res.Identifier}
}

func (s *Service) signedIn() (models.Identity, models.ActionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.identity.Valid() {
		return models.Identity{}, models.ActionResult{Success: false, Error: "not signed in"}
	}
	return s.identity, models.ActionResult{Success: true}
}

func (s *Service) refuse(kind, msg string) models.ActionResult {
	s.actions.WithLabelValues(kind, models.ReasonValidation).Inc()
	return models.ActionResult{Success: false, Error: msg}
}

func sameDraftContent(a, b models.PublishDraft) bool {
	return strings.TrimSpace(a.Title) == strings.TrimSpace(b.Title) &&
		a.Body == b.Body &&
		equalTags(a.Tags, b.Tags)
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.ToLower(strings.TrimSpace(a[i])) != strings.ToLower(strings.TrimSpace(b[i])) {
			return false
		}
	}
	return true
}

func (s *Service) rememberDraft(actor string, draft models.PublishDraft, lastError string) {
	draft.SavedAt = s.now().UTC()
	draft.LastError = lastError

	s.mu.Lock()
	s.drafts[actor] = draft
	snapshot := s.draftsSnapshotLocked()
	s.mu.Unlock()

	s.persistDrafts(snapshot)
}

func (s *Service) forgetDraft(actor string) {
	s.mu.Lock()
	delete(s.drafts, actor)
	snapshot := s.draftsSnapshotLocked()
	s.mu.Unlock()

	s.persistDrafts(snapshot)
}

func (s *Service) draftsSnapshotLocked() map[string]models.PublishDraft {
	out := make(map[string]models.PublishDraft, len(s.drafts))
	for k, v := range s.drafts {
		out[k] = v
	}
	return out
}

func (s *Service) persistDrafts(snapshot map[string]models.PublishDraft) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.SaveDrafts(snapshot); err != nil && err != session.ErrNotConfigured {
		s.logger.Warn("drafts not persisted", "error", err)
	}
}
