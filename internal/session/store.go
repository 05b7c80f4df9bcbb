// Package session persists the minimal state needed to resume a signed-in
// actor across restarts: the actor name and its signing mode. Key material
// is never written here.
package session

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"plaza-social/go-client/internal/securestore"
	"plaza-social/go-client/pkg/models"
)

const (
	purposeSession = "session"
	purposeDrafts  = "drafts"
)

var ErrNotConfigured = errors.New("session persistence is not configured")

type state struct {
	Actor       string    `json:"actor"`
	SigningMode string    `json:"signing_mode"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store reads and writes encrypted session state. A store with an empty
// path or passphrase is valid but inert: Load reports no session and Save
// returns ErrNotConfigured.
type Store struct {
	path       string
	draftsPath string
	passphrase string
	logger     *slog.Logger
}

func NewStore(path, draftsPath, passphrase string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{path: path, draftsPath: draftsPath, passphrase: passphrase, logger: logger}
}

func (s *Store) configured() bool {
	return securestore.Configured(s.path, s.passphrase)
}

// Save records the identity for later resume.
func (s *Store) Save(id models.Identity) error {
	if !s.configured() {
		return ErrNotConfigured
	}
	st := state{Actor: id.Actor, SigningMode: id.SigningMode, SavedAt: time.Now().UTC()}
	if err := securestore.WriteJSON(s.path, s.passphrase, purposeSession, st); err != nil {
		return err
	}
	s.logger.Debug("session saved", "actor", id.Actor, "signing_mode", id.SigningMode)
	return nil
}

// Load returns the persisted identity, if any. A missing file is not an
// error: it simply means there is nothing to resume.
func (s *Store) Load() (models.Identity, bool, error) {
	if !s.configured() {
		return models.Identity{}, false, nil
	}
	var st state
	err := securestore.ReadJSON(s.path, s.passphrase, purposeSession, &st)
	if errors.Is(err, os.ErrNotExist) {
		return models.Identity{}, false, nil
	}
	if err != nil {
		return models.Identity{}, false, err
	}
	id := models.Identity{Actor: st.Actor, SigningMode: st.SigningMode}
	if !id.Valid() {
		return models.Identity{}, false, nil
	}
	return id, true, nil
}

// Clear removes the persisted session. Clearing an absent session is a
// no-op.
func (s *Store) Clear() error {
	if !s.configured() {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SaveDrafts persists unsent publish drafts keyed by actor, so a rejected
// publish never loses the composed text.
func (s *Store) SaveDrafts(drafts map[string]models.PublishDraft) error {
	if !securestore.Configured(s.draftsPath, s.passphrase) {
		return ErrNotConfigured
	}
	return securestore.WriteJSON(s.draftsPath, s.passphrase, purposeDrafts, drafts)
}

// LoadDrafts returns the persisted drafts, or an empty map when nothing was
// saved yet.
func (s *Store) LoadDrafts() (map[string]models.PublishDraft, error) {
	out := make(map[string]models.PublishDraft)
	if !securestore.Configured(s.draftsPath, s.passphrase) {
		return out, nil
	}
	err := securestore.ReadJSON(s.draftsPath, s.passphrase, purposeDrafts, &out)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]models.PublishDraft), nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
