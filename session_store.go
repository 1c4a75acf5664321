package access

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// sessionSchemaVersion tags the persisted identity payload. Payloads with a
// different version are treated as absent, not migrated.
const sessionSchemaVersion = 1

// Stable storage entry names.
const (
	identityEntry   = "identity.json"
	credentialEntry = "credential"
)

// StoredSession is the persisted copy of the authenticated session. The
// Authenticator remains the authoritative owner of Identity; this is a
// serialization vehicle only.
type StoredSession struct {
	Version    int        `json:"version"`
	Identity   Identity   `json:"identity"`
	Credential Credential `json:"-"`
	SavedAt    time.Time  `json:"saved_at"`
}

// Store persists one Credential plus one serialized Identity across process
// restarts. Implementations perform storage I/O only, never network calls.
type Store interface {
	// Restore reads the persisted session. Absent or malformed data yields
	// (nil, nil): a broken payload is recovered silently, not reported.
	Restore() (*StoredSession, error)

	// Persist overwrites any prior session. No partially written state is
	// observable by a subsequent Restore.
	Persist(identity Identity, credential Credential) error

	// Clear removes both entries. Clearing an empty store is a no-op.
	Clear() error
}

// FileStore keeps the session in a directory with two entries: the identity
// as JSON and the credential as a plain string. Files are owner-only and
// writes go through a temp file plus rename.
type FileStore struct {
	mu     sync.Mutex
	dir    string
	now    func() time.Time
	logger Logger
}

// FileStoreOption customizes FileStore construction.
type FileStoreOption func(*FileStore)

// WithFileStoreClock injects a custom clock (useful for tests).
func WithFileStoreClock(clock func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithFileStoreLogger overrides the logger.
func WithFileStoreLogger(logger Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileStore creates a session store rooted at dir, creating it with
// owner-only permissions when missing.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve home directory")
		}
		dir = filepath.Join(home, ".config", "go-access", "session")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create session directory")
	}

	s := &FileStore{
		dir:    dir,
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s, nil
}

type identityEnvelope struct {
	Version  int       `json:"version"`
	Identity Identity  `json:"identity"`
	SavedAt  time.Time `json:"saved_at"`
}

func (s *FileStore) Restore() (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(s.dir, identityEntry))
	if err != nil {
		return nil, nil
	}

	var envelope identityEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		restoreErr := errors.Wrap(err, ErrSessionRestore.Category, ErrSessionRestore.Message).
			WithTextCode(ErrSessionRestore.TextCode)
		s.logger.Debug("session restore: %v, treating as absent", restoreErr)
		s.clearLocked()
		return nil, nil
	}

	if envelope.Version != sessionSchemaVersion || envelope.Identity.IsZero() {
		s.logger.Debug("session restore: unsupported payload (version=%d), treating as absent", envelope.Version)
		s.clearLocked()
		return nil, nil
	}

	cred, err := os.ReadFile(filepath.Join(s.dir, credentialEntry))
	if err != nil {
		s.clearLocked()
		return nil, nil
	}

	credential := Credential(strings.TrimSpace(string(cred)))
	if credential.IsZero() || credentialExpired(credential, s.now()) {
		s.clearLocked()
		return nil, nil
	}

	return &StoredSession{
		Version:    envelope.Version,
		Identity:   envelope.Identity,
		Credential: credential,
		SavedAt:    envelope.SavedAt,
	}, nil
}

func (s *FileStore) Persist(identity Identity, credential Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	envelope := identityEnvelope{
		Version:  sessionSchemaVersion,
		Identity: identity,
		SavedAt:  s.now(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, ErrSessionPersist.Category, ErrSessionPersist.Message).
			WithTextCode(ErrSessionPersist.TextCode)
	}

	if err := s.writeEntry(identityEntry, data); err != nil {
		return err
	}
	return s.writeEntry(credentialEntry, []byte(credential))
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return nil
}

func (s *FileStore) clearLocked() {
	for _, entry := range []string{identityEntry, credentialEntry} {
		if err := os.Remove(filepath.Join(s.dir, entry)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("session clear: failed to remove %s: %v", entry, err)
		}
	}
}

// writeEntry writes through a temp file and rename so Restore never observes
// a torn payload.
func (s *FileStore) writeEntry(name string, data []byte) error {
	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return errors.Wrap(err, ErrSessionPersist.Category, ErrSessionPersist.Message).
			WithTextCode(ErrSessionPersist.TextCode)
	}

	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, ErrSessionPersist.Category, ErrSessionPersist.Message).
			WithTextCode(ErrSessionPersist.TextCode)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, ErrSessionPersist.Category, ErrSessionPersist.Message).
			WithTextCode(ErrSessionPersist.TextCode)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, ErrSessionPersist.Category, ErrSessionPersist.Message).
			WithTextCode(ErrSessionPersist.TextCode)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, ErrSessionPersist.Category, ErrSessionPersist.Message).
			WithTextCode(ErrSessionPersist.TextCode)
	}
	return nil
}

// credentialExpired inspects a JWT credential's exp claim without verifying
// the signature; the credential proves itself to the backend, we only want to
// avoid restoring a token the backend is guaranteed to reject. Opaque
// non-JWT credentials never expire here.
func credentialExpired(credential Credential, now time.Time) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(string(credential), claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return now.After(exp.Time)
}

// MemoryStore is an in-memory Store for tests and ephemeral processes. Each
// instance is isolated; nothing is shared through package state.
type MemoryStore struct {
	mu      sync.Mutex
	session *StoredSession
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Restore() (*StoredSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, nil
	}
	copied := *s.session
	return &copied, nil
}

func (s *MemoryStore) Persist(identity Identity, credential Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &StoredSession{
		Version:    sessionSchemaVersion,
		Identity:   identity,
		Credential: credential,
		SavedAt:    s.now(),
	}
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

var _ Store = (*FileStore)(nil)
var _ Store = (*MemoryStore)(nil)
