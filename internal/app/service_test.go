package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"plaza-social/go-client/internal/broadcast"
	"plaza-social/go-client/internal/platform/ratelimiter"
	"plaza-social/go-client/internal/session"
	"plaza-social/go-client/internal/signing"
	"plaza-social/go-client/pkg/models"
)

// recordingBroadcaster is a drop-in pipeline stub for tests that only care
// about what reaches the wire boundary.
type recordingBroadcaster struct {
	result   models.SubmissionResult
	requests []signing.Request
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, req signing.Request) models.SubmissionResult {
	r.requests = append(r.requests, req)
	return r.result
}

// slowAgent answers every signing request positively after a fixed latency.
type slowAgent struct {
	latency time.Duration
}

func (a *slowAgent) Request(req signing.AgentRequest, callback func(signing.AgentResponse)) error {
	go func() {
		time.Sleep(a.latency)
		callback(signing.AgentResponse{Success: true, Identifier: req.ContentIdentifier})
	}()
	return nil
}

// countingLedger refuses every call and counts how many arrive.
type countingLedger struct {
	calls int
}

func (c *countingLedger) Call(context.Context, string, any) (json.RawMessage, error) {
	c.calls++
	return nil, errors.New("no network expected")
}

func testWIF(t *testing.T) string {
	t.Helper()
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	key := secp256k1.PrivKeyFromBytes(seed)
	defer key.Zero()
	return signing.EncodeWIF(key)
}

func agentService(t *testing.T, b broadcaster) *Service {
	t.Helper()
	s := NewService(Deps{Broadcaster: b})
	if err := s.LoginWithAgent("alice"); err != nil {
		t.Fatalf("LoginWithAgent failed: %v", err)
	}
	return s
}

func TestVoteThroughAgentAppliesAndConfirms(t *testing.T) {
	path := signing.NewAgentPath(&slowAgent{latency: 200 * time.Millisecond}, nil)
	s := agentService(t, broadcast.New(path, nil))

	res := s.RequestVote(context.Background(), "bob", "post-1", 10000)
	if !res.Success {
		t.Fatalf("vote must succeed, got %+v", res)
	}
	if n := s.View().NetVotes("bob/post-1"); n != 1 {
		t.Fatalf("vote tally must stay applied after confirmation, got %d", n)
	}
	// The pending slot is released, a new vote on the same target works.
	if res := s.RequestVote(context.Background(), "bob", "post-1", 0); !res.Success {
		t.Fatalf("follow-up vote must be accepted, got %+v", res)
	}
	if n := s.View().NetVotes("bob/post-1"); n != 0 {
		t.Fatalf("vote removal must drop the tally, got %d", n)
	}
}

func TestPublishWithInvalidKeyRevertsWithoutNetwork(t *testing.T) {
	ledger := &countingLedger{}
	path, err := signing.NewKeyPath(ledger, "", nil)
	if err != nil {
		t.Fatalf("NewKeyPath failed: %v", err)
	}
	s := NewService(Deps{Broadcaster: broadcast.New(path, nil)})
	if err := s.LoginWithKey("alice", testWIF(t)); err != nil {
		t.Fatalf("LoginWithKey failed: %v", err)
	}
	// Corrupt the in-memory secret to simulate a stale session.
	s.mu.Lock()
	s.wif = "5bogus"
	s.mu.Unlock()

	draft := models.PublishDraft{Title: "Hello", Body: "world", Tags: []string{"test"}}
	res := s.RequestPublish(context.Background(), draft)
	if res.Success {
		t.Fatalf("publish with malformed key must be rejected, got %+v", res)
	}
	if ledger.calls != 0 {
		t.Fatalf("invalid key must be rejected before any network call, saw %d", ledger.calls)
	}
	if got := s.View().Contents("alice"); len(got) != 0 {
		t.Fatalf("speculative content must be reverted, got %v", got)
	}
	// The composed text survives the rejection, with the minted identifier.
	kept, ok := s.Draft("alice")
	if !ok || kept.Body != "world" || kept.PermlinkHint == "" || kept.LastError == "" {
		t.Fatalf("draft must be preserved with its identifier and error, got %+v ok=%v", kept, ok)
	}
}

func TestDuplicateVoteIsRefusedLocally(t *testing.T) {
	b := &recordingBroadcaster{result: models.Accepted("")}
	blocked := make(chan struct{})
	release := make(chan struct{})
	slow := &gatedBroadcaster{inner: b, entered: blocked, release: release}
	s := agentService(t, slow)

	done := make(chan models.ActionResult, 1)
	go func() { done <- s.RequestVote(context.Background(), "bob", "post-1", 10000) }()
	<-blocked

	dup := s.RequestVote(context.Background(), "bob", "post-1", 10000)
	if dup.Success {
		t.Fatalf("duplicate intent must be refused, got %+v", dup)
	}
	if len(b.requests) != 1 {
		t.Fatalf("duplicate must not reach the pipeline, saw %d requests", len(b.requests))
	}
	if n := s.View().NetVotes("bob/post-1"); n != 1 {
		t.Fatalf("duplicate must not double-apply, tally=%d", n)
	}

	close(release)
	if first := <-done; !first.Success {
		t.Fatalf("original vote must still resolve, got %+v", first)
	}
}

type gatedBroadcaster struct {
	inner   *recordingBroadcaster
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBroadcaster) Broadcast(ctx context.Context, req signing.Request) models.SubmissionResult {
	res := g.inner.Broadcast(ctx, req)
	close(g.entered)
	<-g.release
	return res
}

func TestFollowRejectionRevertsViewState(t *testing.T) {
	b := &recordingBroadcaster{result: models.Rejected(models.ReasonLedgerRejected, "missing authority")}
	s := agentService(t, b)

	res := s.RequestFollow(context.Background(), "carol")
	if res.Success {
		t.Fatalf("follow must be rejected, got %+v", res)
	}
	if s.View().Follows("alice", "carol") {
		t.Fatal("rejected follow must be reverted")
	}
}

func TestUnfollowAppliesAndKeepsOnAccept(t *testing.T) {
	b := &recordingBroadcaster{result: models.Accepted("")}
	s := agentService(t, b)
	s.View().SetFollowing("alice", "carol", true)

	if res := s.RequestUnfollow(context.Background(), "carol"); !res.Success {
		t.Fatalf("unfollow failed: %+v", res)
	}
	if s.View().Follows("alice", "carol") {
		t.Fatal("accepted unfollow must stick")
	}
}

func TestRequestsRequireSignIn(t *testing.T) {
	s := NewService(Deps{Broadcaster: &recordingBroadcaster{result: models.Accepted("")}})
	if res := s.RequestVote(context.Background(), "bob", "post-1", 1); res.Success {
		t.Fatalf("signed-out vote must be refused, got %+v", res)
	}
}

func TestValidationFailureNeverReachesPipeline(t *testing.T) {
	b := &recordingBroadcaster{result: models.Accepted("")}
	s := agentService(t, b)

	if res := s.RequestVote(context.Background(), "bob", "post-1", 20000); res.Success {
		t.Fatalf("out-of-range weight must be refused, got %+v", res)
	}
	if len(b.requests) != 0 {
		t.Fatalf("validation failure must not broadcast, saw %d", len(b.requests))
	}
}

func TestRateLimitRefusesBurst(t *testing.T) {
	b := &recordingBroadcaster{result: models.Accepted("")}
	now := time.Unix(1700000000, 0)
	s := NewService(Deps{
		Broadcaster: b,
		Limiter:     ratelimiter.New(1, 1, time.Minute),
		Now:         func() time.Time { return now },
	})
	if err := s.LoginWithAgent("alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if res := s.RequestVote(context.Background(), "bob", "post-1", 1); !res.Success {
		t.Fatalf("first vote failed: %+v", res)
	}
	if res := s.RequestVote(context.Background(), "bob", "post-2", 1); res.Success {
		t.Fatal("second vote in the same instant must be rate limited")
	}
	if len(b.requests) != 1 {
		t.Fatalf("rate-limited vote must not broadcast, saw %d", len(b.requests))
	}
}

func TestPublishRetryReusesIdentifier(t *testing.T) {
	b := &recordingBroadcaster{result: models.Rejected(models.ReasonEndpointsUnavailable, "all endpoints failed")}
	s := agentService(t, b)

	draft := models.PublishDraft{Title: "Hello World", Body: "body", Tags: []string{"test"}}
	if res := s.RequestPublish(context.Background(), draft); res.Success {
		t.Fatal("first publish must fail")
	}
	first := b.requests[0].Operation.ContentIdentifier()

	b.result = models.Accepted(first)
	kept, _ := s.Draft("alice")
	if res := s.RequestPublish(context.Background(), kept); !res.Success {
		t.Fatalf("retry failed: %+v", res)
	}
	second := b.requests[1].Operation.ContentIdentifier()
	if first != second {
		t.Fatalf("retry minted a new identifier: %q vs %q", first, second)
	}
	if _, ok := s.Draft("alice"); ok {
		t.Fatal("accepted publish must clear the draft")
	}
}

func TestPublishOfDifferentPostMintsFreshIdentifier(t *testing.T) {
	b := &recordingBroadcaster{result: models.Rejected(models.ReasonEndpointsUnavailable, "all endpoints failed")}
	s := agentService(t, b)

	first := models.PublishDraft{Title: "Hello World", Body: "body", Tags: []string{"test"}}
	if res := s.RequestPublish(context.Background(), first); res.Success {
		t.Fatal("first publish must fail")
	}
	stale, _ := s.Draft("alice")
	if stale.PermlinkHint == "" {
		t.Fatal("failed publish must keep its identifier")
	}

	b.result = models.Accepted("")
	second := models.PublishDraft{Title: "Quarterly Report", Body: "numbers", Tags: []string{"finance"}}
	if res := s.RequestPublish(context.Background(), second); !res.Success {
		t.Fatalf("second publish failed: %+v", res)
	}
	got := b.requests[1].Operation.ContentIdentifier()
	if got == stale.PermlinkHint {
		t.Fatalf("new post reused the failed draft's identifier %q", got)
	}
	if !strings.HasPrefix(got, "quarterly-report") {
		t.Fatalf("identifier must derive from the new title, got %q", got)
	}
}

func TestPublishRetryOfSameContentReusesStoredIdentifier(t *testing.T) {
	b := &recordingBroadcaster{result: models.Rejected(models.ReasonEndpointsUnavailable, "all endpoints failed")}
	s := agentService(t, b)

	draft := models.PublishDraft{Title: "Hello World", Body: "body", Tags: []string{"test"}}
	if res := s.RequestPublish(context.Background(), draft); res.Success {
		t.Fatal("first publish must fail")
	}
	first := b.requests[0].Operation.ContentIdentifier()

	// The UI resubmits the same composed text without carrying the hint.
	b.result = models.Accepted(first)
	if res := s.RequestPublish(context.Background(), draft); !res.Success {
		t.Fatalf("retry failed: %+v", res)
	}
	if second := b.requests[1].Operation.ContentIdentifier(); second != first {
		t.Fatalf("same-content retry minted a new identifier: %q vs %q", second, first)
	}
}

func TestSessionRoundtripThroughStore(t *testing.T) {
	dir := t.TempDir()
	store := session.NewStore(filepath.Join(dir, "s.enc"), filepath.Join(dir, "d.enc"), "pass", nil)

	s := NewService(Deps{Broadcaster: &recordingBroadcaster{result: models.Accepted("")}, Sessions: store})
	if err := s.LoginWithAgent("alice"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	fresh := NewService(Deps{Broadcaster: &recordingBroadcaster{result: models.Accepted("")}, Sessions: store})
	id, ok, err := fresh.Resume()
	if err != nil || !ok {
		t.Fatalf("resume failed: ok=%v err=%v", ok, err)
	}
	if id.Actor != "alice" || id.SigningMode != models.SigningModeAgent {
		t.Fatalf("unexpected resumed identity: %+v", id)
	}

	if err := fresh.Logout(); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Fatal("logout must clear the persisted session")
	}
}
