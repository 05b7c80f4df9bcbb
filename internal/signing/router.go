package signing

import (
	"context"

	"plaza-social/go-client/pkg/models"
)

// Router dispatches a request to the path matching its identity's signing
// mode.
type Router struct {
	agent Path
	key   Path
}

func NewRouter(agent, key Path) *Router {
	return &Router{agent: agent, key: key}
}

func (r *Router) Submit(ctx context.Context, req Request) models.SubmissionResult {
	switch req.Identity.SigningMode {
	case models.SigningModeAgent:
		if r.agent == nil {
			return models.Rejected(models.ReasonValidation, "agent signing is not configured")
		}
		return r.agent.Submit(ctx, req)
	case models.SigningModeKey:
		if r.key == nil {
			return models.Rejected(models.ReasonValidation, "key signing is not configured")
		}
		return r.key.Submit(ctx, req)
	default:
		return models.Rejected(models.ReasonValidation, "unknown signing mode")
	}
}
