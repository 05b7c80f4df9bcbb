// Package signing submits built operations through one of two mutually
// exclusive trust models: an installed signing agent that never exposes the
// secret key, or a locally supplied secret key held in memory for the
// duration of one submission.
package signing

import (
	"context"

	"plaza-social/go-client/internal/ops"
	"plaza-social/go-client/pkg/models"
)

// Request carries everything one submission needs. WIF is only consulted by
// the key path and is never retained, logged or persisted.
type Request struct {
	Identity  models.Identity
	Operation ops.Operation
	Authority string
	WIF       string
}

// Path is the polymorphic signing contract. Submit is single-shot: it never
// retries internally and never fails past its boundary; every outcome is a
// typed SubmissionResult.
type Path interface {
	Submit(ctx context.Context, req Request) models.SubmissionResult
}
