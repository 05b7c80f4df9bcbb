package broadcast

import (
	"context"
	"testing"
	"time"

	"plaza-social/go-client/internal/ops"
	"plaza-social/go-client/internal/signing"
	"plaza-social/go-client/pkg/models"
)

type stubPath struct {
	result models.SubmissionResult
	delay  time.Duration
	waits  bool
}

func (s *stubPath) Submit(ctx context.Context, _ signing.Request) models.SubmissionResult {
	if s.waits {
		<-ctx.Done()
		return models.Rejected(models.ReasonDeadlineExceeded, "canceled")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.result
}

func voteRequest(t *testing.T) signing.Request {
	t.Helper()
	op, err := ops.NewVote("alice", "bob", "post-1", 10000)
	if err != nil {
		t.Fatalf("NewVote failed: %v", err)
	}
	return signing.Request{
		Identity:  models.Identity{Actor: "alice", SigningMode: models.SigningModeAgent},
		Operation: op,
		Authority: ops.AuthorityPosting,
	}
}

func TestBroadcastPassesThroughAcceptedResult(t *testing.T) {
	b := New(&stubPath{result: models.Accepted("post-1")}, nil)
	res := b.Broadcast(context.Background(), voteRequest(t))
	if !res.Accepted || res.Identifier != "post-1" {
		t.Fatalf("expected accepted passthrough, got %+v", res)
	}
}

func TestBroadcastPassesThroughRejection(t *testing.T) {
	b := New(&stubPath{result: models.Rejected(models.ReasonInvalidKey, "bad key")}, nil)
	res := b.Broadcast(context.Background(), voteRequest(t))
	if res.Accepted || res.Reason != models.ReasonInvalidKey || res.Retryable {
		t.Fatalf("expected invalid key rejection, got %+v", res)
	}
}

func TestBroadcastDeadlineWinsOverSlowPath(t *testing.T) {
	b := NewWithDeadline(&stubPath{waits: true}, 40*time.Millisecond, nil)

	start := time.Now()
	res := b.Broadcast(context.Background(), voteRequest(t))
	if res.Accepted || res.Reason != models.ReasonDeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %+v", res)
	}
	if !res.Retryable {
		t.Fatal("deadline exceeded must be retryable")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("deadline did not bound the wait: %v", elapsed)
	}
}

func TestBroadcastResultBeatsDeadlineWhenFast(t *testing.T) {
	b := NewWithDeadline(&stubPath{result: models.Accepted(""), delay: 5 * time.Millisecond}, time.Second, nil)
	res := b.Broadcast(context.Background(), voteRequest(t))
	if !res.Accepted {
		t.Fatalf("expected accepted, got %+v", res)
	}
}
