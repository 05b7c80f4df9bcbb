package signing

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
)

const (
	wifVersion    = 0x80
	wifPayloadLen = 1 + 32 // version byte + key material
	wifChecksum   = 4
)

var ErrInvalidWIF = errors.New("invalid wif key")

// DecodeWIF parses and validates a WIF-encoded secret key (format and
// length checks plus the double-SHA256 checksum) without touching the
// network. The returned key must be zeroed by the caller after use.
func DecodeWIF(wif string) (*secp256k1.PrivateKey, error) {
	if wif == "" {
		return nil, ErrInvalidWIF
	}
	raw, err := base58.Decode(wif)
	if err != nil {
		return nil, ErrInvalidWIF
	}
	return decodeRawWIF(raw)
}

// decodeRawWIF consumes raw: the buffer holds key material, so it is
// zeroed before returning on every path, rejections included.
func decodeRawWIF(raw []byte) (*secp256k1.PrivateKey, error) {
	defer zeroBytes(raw)
	if len(raw) != wifPayloadLen+wifChecksum {
		return nil, ErrInvalidWIF
	}
	payload, checksum := raw[:wifPayloadLen], raw[wifPayloadLen:]
	if payload[0] != wifVersion {
		return nil, ErrInvalidWIF
	}
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < wifChecksum; i++ {
		if checksum[i] != second[i] {
			return nil, ErrInvalidWIF
		}
	}
	key := secp256k1.PrivKeyFromBytes(payload[1:])
	if key.Key.IsZero() {
		return nil, ErrInvalidWIF
	}
	return key, nil
}

// EncodeWIF renders a secret key in WIF form.
func EncodeWIF(key *secp256k1.PrivateKey) string {
	payload := make([]byte, 0, wifPayloadLen+wifChecksum)
	payload = append(payload, wifVersion)
	payload = append(payload, key.Serialize()...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	payload = append(payload, second[:wifChecksum]...)
	out := base58.Encode(payload)
	zeroBytes(payload)
	return out
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
