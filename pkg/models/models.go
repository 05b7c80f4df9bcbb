package models

import (
	"strings"
	"time"
)

const (
	SigningModeAgent = "agent"
	SigningModeKey   = "key"
)

// Identity is the signed-in account plus the signing path chosen at login.
// Exactly one identity is active per session.
type Identity struct {
	Actor       string `json:"actor"`
	SigningMode string `json:"signing_mode"`
}

func (i Identity) Valid() bool {
	if strings.TrimSpace(i.Actor) == "" {
		return false
	}
	return i.SigningMode == SigningModeAgent || i.SigningMode == SigningModeKey
}

const (
	ReasonValidation           = "validation"
	ReasonInvalidKey           = "invalid_key"
	ReasonAgentTimeout         = "agent_timeout"
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonEndpointsUnavailable = "endpoints_unavailable"
	ReasonLedgerRejected       = "ledger_rejected"
	ReasonAlreadyPending       = "already_pending"
)

// SubmissionResult is the single outcome taxonomy for a broadcast attempt.
// Accepted carries the content identifier for new-content operations.
type SubmissionResult struct {
	Accepted   bool   `json:"accepted"`
	Identifier string `json:"identifier,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Accepted(identifier string) SubmissionResult {
	return SubmissionResult{Accepted: true, Identifier: identifier}
}

func Rejected(reason, message string) SubmissionResult {
	return SubmissionResult{
		Accepted:  false,
		Reason:    reason,
		Retryable: reasonRetryable(reason),
		Message:   message,
	}
}

// A timed-out submission may still land on the ledger; the reason stays
// retryable but callers must reconcile actual state with a follow-up read.
func reasonRetryable(reason string) bool {
	switch reason {
	case ReasonAgentTimeout, ReasonDeadlineExceeded, ReasonEndpointsUnavailable:
		return true
	default:
		return false
	}
}

// ActionResult is the UI-facing shape returned by the Request* methods.
type ActionResult struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

type PoolStatus struct {
	State            string    `json:"state"`
	HealthyEndpoints int       `json:"healthy_endpoints"`
	TotalEndpoints   int       `json:"total_endpoints"`
	LastProbe        time.Time `json:"last_probe"`
	ProbeAttempts    int       `json:"probe_attempts,omitempty"`
}

type EndpointStatus struct {
	URL                 string    `json:"url"`
	Health              string    `json:"health"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastUsed            time.Time `json:"last_used,omitempty"`
}

// Content is the subset of a ledger content record the client reads back.
type Content struct {
	Author       string `json:"author"`
	Permlink     string `json:"permlink"`
	ParentAuthor string `json:"parent_author"`
	ParentLink   string `json:"parent_permlink"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	JSONMetadata string `json:"json_metadata"`
	Created      string `json:"created"`
	NetVotes     int    `json:"net_votes"`
	Children     int    `json:"children"`
}

type AccountInfo struct {
	Name         string `json:"name"`
	PostCount    int64  `json:"post_count"`
	JSONMetadata string `json:"json_metadata"`
	Reputation   int64  `json:"reputation,string"`
}

// PublishDraft preserves user input across a failed submission so a retry
// does not require re-typing. PermlinkHint pins the identifier minted for
// the first attempt so a retry of the same draft cannot create a duplicate
// post under a second identifier.
type PublishDraft struct {
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Tags         []string  `json:"tags"`
	Image        string    `json:"image,omitempty"`
	PermlinkHint string    `json:"permlink_hint,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
	LastError    string    `json:"last_error,omitempty"`
}
