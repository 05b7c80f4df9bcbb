package signing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"plaza-social/go-client/internal/ops"
	"plaza-social/go-client/pkg/models"
)

const defaultAgentTimeout = 30 * time.Second

// AgentRequest is the request half of the signing-agent handshake.
type AgentRequest struct {
	Actor             string          `json:"actor"`
	ContentIdentifier string          `json:"content_identifier,omitempty"`
	Operation         json.RawMessage `json:"operation"`
	Authority         string          `json:"authority"`
}

// AgentResponse is delivered through the callback at most once. For
// new-content operations the agent echoes the identifier it signed.
type AgentResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// Agent is the installed signing agent. Request returns immediately after
// dispatch; the callback fires asynchronously, at most once.
type Agent interface {
	Request(req AgentRequest, callback func(AgentResponse)) error
}

// AgentPath signs through an external agent. The application never sees the
// private key.
type AgentPath struct {
	agent   Agent
	timeout time.Duration
	logger  *slog.Logger
}

func NewAgentPath(agent Agent, logger *slog.Logger) *AgentPath {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AgentPath{agent: agent, timeout: defaultAgentTimeout, logger: logger}
}

// NewAgentPathWithTimeout overrides the bounded wait for the agent callback.
func NewAgentPathWithTimeout(agent Agent, timeout time.Duration, logger *slog.Logger) *AgentPath {
	p := NewAgentPath(agent, logger)
	if timeout > 0 {
		p.timeout = timeout
	}
	return p
}

func (p *AgentPath) Submit(ctx context.Context, req Request) models.SubmissionResult {
	wire, err := ops.MarshalWire(req.Operation)
	if err != nil {
		return models.Rejected(models.ReasonValidation, err.Error())
	}

	done := make(chan AgentResponse, 1)
	var once sync.Once
	agentReq := AgentRequest{
		Actor:             req.Identity.Actor,
		ContentIdentifier: req.Operation.ContentIdentifier(),
		Operation:         wire,
		Authority:         req.Authority,
	}
	if err := p.agent.Request(agentReq, func(resp AgentResponse) {
		once.Do(func() { done <- resp })
	}); err != nil {
		p.logger.Warn("signing agent dispatch failed", "actor", req.Identity.Actor, "error", err)
		return models.Rejected(models.ReasonAgentTimeout, "signing agent unavailable: "+err.Error())
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case resp := <-done:
		if !resp.Success {
			msg := resp.Message
			if msg == "" {
				msg = "signing agent refused the operation"
			}
			return models.Rejected(models.ReasonLedgerRejected, msg)
		}
		identifier := resp.Identifier
		if identifier == "" {
			identifier = req.Operation.ContentIdentifier()
		}
		return models.Accepted(identifier)
	case <-ctx.Done():
		// The agent's own UI is not assumed cancellable; only the wait is
		// abandoned, so the outcome is unknown.
		return models.Rejected(models.ReasonDeadlineExceeded, "gave up waiting for the signing agent")
	case <-timer.C:
		return models.Rejected(models.ReasonAgentTimeout, "signing agent did not answer in time")
	}
}
