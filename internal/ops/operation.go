// Package ops builds canonical ledger write operations from user intents.
// Builders are pure and side-effect-free; every failure is a typed error.
package ops

import "encoding/json"

const (
	AuthorityPosting = "posting"
	AuthorityActive  = "active"
)

// Operation is a tagged variant over the write intents the client can
// submit. Concrete types are Vote, Comment and CustomJSON; the unexported
// method keeps the variant set closed.
type Operation interface {
	Kind() string
	Authority() string
	// ContentIdentifier returns the minted permlink for new-content
	// operations and "" for everything else.
	ContentIdentifier() string
	wireBody() any
}

// MarshalWire renders an operation in the ledger's [name, body] shape.
func MarshalWire(op Operation) ([]byte, error) {
	return json.Marshal([2]any{op.Kind(), op.wireBody()})
}

type Vote struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int    `json:"weight"`
}

func (v *Vote) Kind() string              { return "vote" }
func (v *Vote) Authority() string         { return AuthorityPosting }
func (v *Vote) ContentIdentifier() string { return "" }
func (v *Vote) wireBody() any             { return v }

type Comment struct {
	ParentAuthor   string `json:"parent_author"`
	ParentPermlink string `json:"parent_permlink"`
	Author         string `json:"author"`
	Permlink       string `json:"permlink"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	JSONMetadata   string `json:"json_metadata"`
}

func (c *Comment) Kind() string              { return "comment" }
func (c *Comment) Authority() string         { return AuthorityPosting }
func (c *Comment) ContentIdentifier() string { return c.Permlink }
func (c *Comment) wireBody() any             { return c }

// IsReply reports whether the comment targets existing content rather than
// starting a new top-level post.
func (c *Comment) IsReply() bool { return c.ParentAuthor != "" }

type CustomJSON struct {
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
}

func (c *CustomJSON) Kind() string              { return "custom_json" }
func (c *CustomJSON) Authority() string         { return AuthorityPosting }
func (c *CustomJSON) ContentIdentifier() string { return "" }
func (c *CustomJSON) wireBody() any             { return c }

// ContentMetadata is the canonical json_metadata payload for published
// content.
type ContentMetadata struct {
	Tags   []string `json:"tags"`
	App    string   `json:"app"`
	Format string   `json:"format"`
	Image  []string `json:"image,omitempty"`
}

const (
	metadataApp    = "plaza/1.0"
	metadataFormat = "markdown"
)
