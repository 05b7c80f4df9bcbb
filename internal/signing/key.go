package signing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"plaza-social/go-client/internal/endpointpool"
	"plaza-social/go-client/internal/jsonrpc"
	"plaza-social/go-client/internal/ops"
	"plaza-social/go-client/pkg/models"
)

// DefaultChainID is the production chain identifier mixed into every
// signing digest.
const DefaultChainID = "0000000000000000000000000000000000000000000000000000000000000000"

// ledgerCaller is the pool surface the key path needs.
type ledgerCaller interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// KeyPath signs with a locally supplied secret key. The key lives only for
// the duration of one Submit call and is zeroed before returning.
type KeyPath struct {
	pool    ledgerCaller
	chainID []byte
	logger  *slog.Logger
	now     func() time.Time
}

func NewKeyPath(pool ledgerCaller, chainID string, logger *slog.Logger) (*KeyPath, error) {
	if chainID == "" {
		chainID = DefaultChainID
	}
	decoded, err := hex.DecodeString(chainID)
	if err != nil || len(decoded) != 32 {
		return nil, errors.New("chain id must be 32 hex bytes")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KeyPath{pool: pool, chainID: decoded, logger: logger, now: time.Now}, nil
}

func (p *KeyPath) Submit(ctx context.Context, req Request) models.SubmissionResult {
	key, err := DecodeWIF(req.WIF)
	if err != nil {
		// Invalid key material never reaches the network.
		return models.Rejected(models.ReasonInvalidKey, "secret key is malformed")
	}
	defer key.Zero()

	wire, err := ops.MarshalWire(req.Operation)
	if err != nil {
		return models.Rejected(models.ReasonValidation, err.Error())
	}

	dgp, err := p.pool.Call(ctx, endpointpool.ProbeMethod, nil)
	if err != nil {
		return rejectFromPoolError(err)
	}
	tx, err := newTransaction(dgp, wire, p.now())
	if err != nil {
		return models.Rejected(models.ReasonLedgerRejected, err.Error())
	}
	digest, err := tx.Digest(p.chainID)
	if err != nil {
		return models.Rejected(models.ReasonValidation, err.Error())
	}
	sig := ecdsa.SignCompact(key, digest, true)
	tx.Signatures = []string{hex.EncodeToString(sig)}

	if _, err := p.pool.Call(ctx, "condenser_api.broadcast_transaction", []any{tx}); err != nil {
		return rejectFromPoolError(err)
	}
	p.logger.Info("transaction broadcast",
		"actor", req.Identity.Actor, "kind", req.Operation.Kind())
	return models.Accepted(req.Operation.ContentIdentifier())
}

// rejectFromPoolError folds transport-level failures into the submission
// taxonomy.
func rejectFromPoolError(err error) models.SubmissionResult {
	var rpcErr *jsonrpc.RPCError
	switch {
	case errors.As(err, &rpcErr):
		return models.Rejected(models.ReasonLedgerRejected, rpcErr.Message)
	case errors.Is(err, endpointpool.ErrAllEndpointsUnavailable):
		return models.Rejected(models.ReasonEndpointsUnavailable, "no ledger endpoint answered")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.Rejected(models.ReasonDeadlineExceeded, "submission timed out; outcome unknown")
	default:
		return models.Rejected(models.ReasonEndpointsUnavailable, err.Error())
	}
}
