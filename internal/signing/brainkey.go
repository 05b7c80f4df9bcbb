package signing

import (
	"crypto/sha256"
	"errors"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// GenerateBrainKey mints a fresh mnemonic and the WIF secret derived from
// it. The mnemonic is the only recovery material; the caller is responsible
// for showing it to the user exactly once.
func GenerateBrainKey() (mnemonic, wif string, err error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", "", err
	}
	mnemonic, err = bip39.NewMnemonic(entropy)
	if err != nil {
		return "", "", err
	}
	wif, err = ImportBrainKey(mnemonic)
	if err != nil {
		return "", "", err
	}
	return mnemonic, wif, nil
}

// ImportBrainKey re-derives the WIF secret from a previously generated
// mnemonic.
func ImportBrainKey(mnemonic string) (string, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")
	scalar := sha256.Sum256(seed)
	key := secp256k1.PrivKeyFromBytes(scalar[:])
	defer key.Zero()
	if key.Key.IsZero() {
		return "", ErrInvalidMnemonic
	}
	wif := EncodeWIF(key)
	zeroBytes(scalar[:])
	zeroBytes(seed)
	return wif, nil
}
