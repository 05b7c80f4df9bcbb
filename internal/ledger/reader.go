// Package ledger is the read-only API surface over the endpoint pool.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"plaza-social/go-client/pkg/models"
)

type caller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

var (
	ErrUnknownCategory = errors.New("unknown discussion category")
	ErrNotFound        = errors.New("content not found")
)

// discussion categories the ledger indexes.
var categories = map[string]struct{}{
	"trending": {},
	"created":  {},
	"hot":      {},
	"blog":     {},
	"feed":     {},
}

type DiscussionQuery struct {
	Tag   string `json:"tag"`
	Limit int    `json:"limit"`
}

type ChainProperties struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
	Time            string `json:"time"`
}

type Reader struct {
	pool caller
}

func NewReader(pool caller) *Reader {
	return &Reader{pool: pool}
}

func (r *Reader) DynamicGlobalProperties(ctx context.Context) (ChainProperties, error) {
	raw, err := r.pool.Call(ctx, "condenser_api.get_dynamic_global_properties", nil)
	if err != nil {
		return ChainProperties{}, err
	}
	var out ChainProperties
	if err := json.Unmarshal(raw, &out); err != nil {
		return ChainProperties{}, err
	}
	return out, nil
}

func (r *Reader) Content(ctx context.Context, author, permlink string) (models.Content, error) {
	raw, err := r.pool.Call(ctx, "condenser_api.get_content", []any{author, permlink})
	if err != nil {
		return models.Content{}, err
	}
	var out models.Content
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.Content{}, err
	}
	// The ledger answers an empty record rather than an error for unknown
	// content.
	if out.Author == "" {
		return models.Content{}, ErrNotFound
	}
	return out, nil
}

func (r *Reader) ContentReplies(ctx context.Context, author, permlink string) ([]models.Content, error) {
	raw, err := r.pool.Call(ctx, "condenser_api.get_content_replies", []any{author, permlink})
	if err != nil {
		return nil, err
	}
	var out []models.Content
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Reader) Accounts(ctx context.Context, names []string) ([]models.AccountInfo, error) {
	raw, err := r.pool.Call(ctx, "condenser_api.get_accounts", []any{names})
	if err != nil {
		return nil, err
	}
	var out []models.AccountInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DiscussionsBy lists discussions for one of the ledger's index categories
// (trending, created, hot, blog, feed).
func (r *Reader) DiscussionsBy(ctx context.Context, category string, q DiscussionQuery) ([]models.Content, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if _, ok := categories[category]; !ok {
		return nil, ErrUnknownCategory
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	raw, err := r.pool.Call(ctx, "condenser_api.get_discussions_by_"+category, []any{q})
	if err != nil {
		return nil, err
	}
	var out []models.Content
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
