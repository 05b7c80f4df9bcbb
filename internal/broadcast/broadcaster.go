// Package broadcast orchestrates one submission: signing path, overall
// deadline, and normalization of every failure into the submission
// taxonomy.
package broadcast

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"plaza-social/go-client/internal/signing"
	"plaza-social/go-client/pkg/models"
)

const defaultDeadline = 30 * time.Second

type Broadcaster struct {
	path     signing.Path
	deadline time.Duration
	logger   *slog.Logger
	results  *prometheus.CounterVec
}

func New(path signing.Path, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Broadcaster{path: path, deadline: defaultDeadline, logger: logger}
}

func NewWithDeadline(path signing.Path, deadline time.Duration, logger *slog.Logger) *Broadcaster {
	b := New(path, logger)
	if deadline > 0 {
		b.deadline = deadline
	}
	return b
}

// Register attaches a prometheus counter for broadcast outcomes.
func (b *Broadcaster) Register(reg prometheus.Registerer) {
	b.results = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plaza",
		Subsystem: "broadcast",
		Name:      "results_total",
		Help:      "Broadcast outcomes by operation kind and result reason.",
	}, []string{"kind", "result"})
	if reg != nil {
		reg.MustRegister(b.results)
	}
}

// Broadcast submits one operation under an overall deadline independent of
// the signing path's own timeout. Broadcast never retries: a retried
// Publish must reuse the identifier already minted for the first attempt,
// so retries are explicit, user-triggered re-invocations.
//
// A deadline-exceeded result abandons the wait, not the submission: the
// operation may still land on the ledger, and the caller must reconcile
// actual state with a follow-up read before assuming it did not.
func (b *Broadcaster) Broadcast(ctx context.Context, req signing.Request) models.SubmissionResult {
	ctx, cancel := context.WithTimeout(ctx, b.deadline)
	defer cancel()

	done := make(chan models.SubmissionResult, 1)
	go func() {
		done <- b.path.Submit(ctx, req)
	}()

	var res models.SubmissionResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = models.Rejected(models.ReasonDeadlineExceeded,
			"submission deadline elapsed; outcome unknown")
	}

	kind := req.Operation.Kind()
	if res.Accepted {
		b.logger.Info("broadcast accepted",
			"actor", req.Identity.Actor, "kind", kind, "identifier", res.Identifier)
		b.count(kind, "accepted")
	} else {
		b.logger.Warn("broadcast rejected",
			"actor", req.Identity.Actor, "kind", kind,
			"reason", res.Reason, "retryable", res.Retryable)
		b.count(kind, res.Reason)
	}
	return res
}

func (b *Broadcaster) count(kind, result string) {
	if b.results == nil {
		return
	}
	b.results.WithLabelValues(kind, result).Inc()
}
