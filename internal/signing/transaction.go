package signing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"
)

const (
	expirationFormat = "2006-01-02T15:04:05"
	expirationWindow = 60 * time.Second
)

var errBadChainHead = errors.New("malformed chain head")

// Transaction is a batch of operations anchored to a recent block and
// bounded by an expiration time.
type Transaction struct {
	RefBlockNum    uint16            `json:"ref_block_num"`
	RefBlockPrefix uint32            `json:"ref_block_prefix"`
	Expiration     string            `json:"expiration"`
	Operations     []json.RawMessage `json:"operations"`
	Extensions     []any             `json:"extensions"`
	Signatures     []string          `json:"signatures"`
}

type chainHead struct {
	HeadBlockNumber uint32 `json:"head_block_number"`
	HeadBlockID     string `json:"head_block_id"`
	Time            string `json:"time"`
}

// newTransaction anchors a single-operation transaction to the chain head
// returned by get_dynamic_global_properties.
func newTransaction(dgp json.RawMessage, wireOp json.RawMessage, now time.Time) (*Transaction, error) {
	var head chainHead
	if err := json.Unmarshal(dgp, &head); err != nil {
		return nil, errBadChainHead
	}
	blockID, err := hex.DecodeString(head.HeadBlockID)
	if err != nil || len(blockID) < 8 {
		return nil, errBadChainHead
	}
	return &Transaction{
		RefBlockNum:    uint16(head.HeadBlockNumber & 0xFFFF),
		RefBlockPrefix: binary.LittleEndian.Uint32(blockID[4:8]),
		Expiration:     now.UTC().Add(expirationWindow).Format(expirationFormat),
		Operations:     []json.RawMessage{wireOp},
		Extensions:     []any{},
	}, nil
}

// Digest is the signing digest: SHA-256 over the chain id followed by the
// canonical JSON form of the unsigned transaction.
func (t *Transaction) Digest(chainID []byte) ([]byte, error) {
	unsigned := struct {
		RefBlockNum    uint16            `json:"ref_block_num"`
		RefBlockPrefix uint32            `json:"ref_block_prefix"`
		Expiration     string            `json:"expiration"`
		Operations     []json.RawMessage `json:"operations"`
		Extensions     []any             `json:"extensions"`
	}{
		RefBlockNum:    t.RefBlockNum,
		RefBlockPrefix: t.RefBlockPrefix,
		Expiration:     t.Expiration,
		Operations:     t.Operations,
		Extensions:     t.Extensions,
	}
	raw, err := json.Marshal(unsigned)
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write(chainID)
	h.Write(raw)
	return h.Sum(nil), nil
}
