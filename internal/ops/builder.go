package ops

import (
	"encoding/json"
	"fmt"
	"strings"

	"plaza-social/go-client/internal/permlink"
)

const (
	MinVoteWeight = -10000
	MaxVoteWeight = 10000
)

// ValidationError reports malformed intent input. It is never sent to the
// network and is not retryable without fixing the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NewVote builds a vote operation. Weight is in basis points of voting
// power, negative for a downvote.
func NewVote(actor, author, targetPermlink string, weight int) (*Vote, error) {
	actor = strings.TrimSpace(actor)
	author = strings.TrimSpace(author)
	targetPermlink = strings.TrimSpace(targetPermlink)
	if actor == "" {
		return nil, invalid("actor", "required")
	}
	if author == "" || targetPermlink == "" {
		return nil, invalid("target", "author and permlink are required")
	}
	if weight < MinVoteWeight || weight > MaxVoteWeight {
		return nil, invalid("weight", fmt.Sprintf("must be within [%d, %d]", MinVoteWeight, MaxVoteWeight))
	}
	return &Vote{
		Voter:    actor,
		Author:   author,
		Permlink: targetPermlink,
		Weight:   weight,
	}, nil
}

// NewComment builds a reply to existing content. Replies carry an empty
// title; top-level posts go through NewPublish.
func NewComment(actor, parentAuthor, parentPermlink, body string, tags []string) (*Comment, error) {
	actor = strings.TrimSpace(actor)
	parentAuthor = strings.TrimSpace(parentAuthor)
	parentPermlink = strings.TrimSpace(parentPermlink)
	if actor == "" {
		return nil, invalid("actor", "required")
	}
	if parentAuthor == "" || parentPermlink == "" {
		return nil, invalid("parent", "author and permlink are required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, invalid("body", "required")
	}
	link, err := permlink.NewReply(parentPermlink)
	if err != nil {
		return nil, invalid("parent", err.Error())
	}
	meta, err := marshalMetadata(normalizeTags(tags), "")
	if err != nil {
		return nil, err
	}
	return &Comment{
		ParentAuthor:   parentAuthor,
		ParentPermlink: parentPermlink,
		Author:         actor,
		Permlink:       link,
		Title:          "",
		Body:           body,
		JSONMetadata:   meta,
	}, nil
}

// NewPublish builds a top-level post with a freshly minted identifier.
func NewPublish(actor, title, body string, tags []string, image string) (*Comment, error) {
	actor = strings.TrimSpace(actor)
	link, err := permlink.New(title, actor)
	if err != nil {
		return nil, invalid("title", err.Error())
	}
	return NewPublishWithIdentifier(actor, title, body, tags, image, link)
}

// NewPublishWithIdentifier builds a top-level post reusing an identifier
// minted by an earlier attempt, so a user-triggered retry cannot create a
// duplicate post under a second permlink.
func NewPublishWithIdentifier(actor, title, body string, tags []string, image, identifier string) (*Comment, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, invalid("actor", "required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, invalid("title", "required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, invalid("body", "required")
	}
	cleanTags := normalizeTags(tags)
	if len(cleanTags) == 0 {
		return nil, invalid("tags", "at least one tag is required")
	}
	if !permlink.Valid(identifier) {
		return nil, invalid("identifier", "malformed permlink")
	}
	meta, err := marshalMetadata(cleanTags, image)
	if err != nil {
		return nil, err
	}
	return &Comment{
		ParentAuthor:   "",
		ParentPermlink: cleanTags[0],
		Author:         actor,
		Permlink:       identifier,
		Title:          strings.TrimSpace(title),
		Body:           body,
		JSONMetadata:   meta,
	}, nil
}

type followPayload struct {
	Follower  string   `json:"follower"`
	Following string   `json:"following"`
	What      []string `json:"what"`
}

// NewFollow builds the structured-data follow operation
// (what = ["blog"]).
func NewFollow(actor, target string) (*CustomJSON, error) {
	return newFollowState(actor, target, []string{"blog"})
}

// NewUnfollow builds the structured-data unfollow operation (what = []).
func NewUnfollow(actor, target string) (*CustomJSON, error) {
	return newFollowState(actor, target, []string{})
}

func newFollowState(actor, target string, what []string) (*CustomJSON, error) {
	actor = strings.TrimSpace(actor)
	target = strings.TrimSpace(target)
	if actor == "" {
		return nil, invalid("actor", "required")
	}
	if target == "" {
		return nil, invalid("target", "required")
	}
	if actor == target {
		return nil, invalid("target", "cannot follow yourself")
	}
	payload, err := json.Marshal([2]any{"follow", followPayload{
		Follower:  actor,
		Following: target,
		What:      what,
	}})
	if err != nil {
		return nil, invalid("target", err.Error())
	}
	return &CustomJSON{
		RequiredAuths:        []string{},
		RequiredPostingAuths: []string{actor},
		ID:                   "follow",
		JSON:                 string(payload),
	}, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func marshalMetadata(tags []string, image string) (string, error) {
	meta := ContentMetadata{
		Tags:   tags,
		App:    metadataApp,
		Format: metadataFormat,
	}
	if image = strings.TrimSpace(image); image != "" {
		meta.Image = []string{image}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", invalid("metadata", err.Error())
	}
	return string(raw), nil
}
