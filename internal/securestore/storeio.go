package securestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Configured reports whether encrypted persistence is usable: both the file
// path and the passphrase must be set.
func Configured(path, passphrase string) bool {
	return strings.TrimSpace(path) != "" && strings.TrimSpace(passphrase) != ""
}

// ReadJSON reads, opens and unmarshals an envelope file into v.
func ReadJSON(path, passphrase, purpose string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	plain, err := Open(passphrase, purpose, raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(plain, v)
}

// WriteJSON marshals v, seals it for the given purpose and writes the
// envelope with owner-only permissions.
func WriteJSON(path, passphrase, purpose string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sealed, err := Seal(passphrase, purpose, payload)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}
