package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type scriptedCaller struct {
	lastMethod string
	lastParams any
	result     json.RawMessage
	err        error
}

func (s *scriptedCaller) Call(_ context.Context, method string, params any) (json.RawMessage, error) {
	s.lastMethod = method
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestContentDecodesRecord(t *testing.T) {
	c := &scriptedCaller{result: json.RawMessage(`{"author":"bob","permlink":"post-1","title":"T","net_votes":3}`)}
	r := NewReader(c)

	got, err := r.Content(context.Background(), "bob", "post-1")
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	if got.Author != "bob" || got.NetVotes != 3 {
		t.Fatalf("unexpected content: %+v", got)
	}
	if c.lastMethod != "condenser_api.get_content" {
		t.Fatalf("wrong method: %s", c.lastMethod)
	}
}

func TestContentMapsEmptyRecordToNotFound(t *testing.T) {
	c := &scriptedCaller{result: json.RawMessage(`{"author":"","permlink":""}`)}
	r := NewReader(c)

	if _, err := r.Content(context.Background(), "bob", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDiscussionsByValidatesCategory(t *testing.T) {
	r := NewReader(&scriptedCaller{result: json.RawMessage(`[]`)})
	if _, err := r.DiscussionsBy(context.Background(), "weird", DiscussionQuery{Tag: "go"}); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestDiscussionsByBuildsIndexedMethod(t *testing.T) {
	c := &scriptedCaller{result: json.RawMessage(`[{"author":"bob","permlink":"post-1"}]`)}
	r := NewReader(c)

	out, err := r.DiscussionsBy(context.Background(), "Trending", DiscussionQuery{Tag: "go", Limit: 0})
	if err != nil {
		t.Fatalf("DiscussionsBy failed: %v", err)
	}
	if c.lastMethod != "condenser_api.get_discussions_by_trending" {
		t.Fatalf("wrong method: %s", c.lastMethod)
	}
	if len(out) != 1 || out[0].Author != "bob" {
		t.Fatalf("unexpected discussions: %+v", out)
	}
	params := c.lastParams.([]any)
	if q := params[0].(DiscussionQuery); q.Limit != 20 {
		t.Fatalf("limit must default to 20, got %d", q.Limit)
	}
}

func TestAccountsPassesNameBatch(t *testing.T) {
	c := &scriptedCaller{result: json.RawMessage(`[{"name":"alice","post_count":7}]`)}
	r := NewReader(c)

	out, err := r.Accounts(context.Background(), []string{"alice"})
	if err != nil {
		t.Fatalf("Accounts failed: %v", err)
	}
	if len(out) != 1 || out[0].Name != "alice" || out[0].PostCount != 7 {
		t.Fatalf("unexpected accounts: %+v", out)
	}
}
