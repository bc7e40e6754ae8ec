package store

import (
	"fmt"
	"io"
	"sync"

	"github.com/soyeahso/campusbot/internal/config"
	"github.com/soyeahso/campusbot/internal/domain"
	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/metrics"
)

// SessionStore owns the in-memory session collection and writes the
// whole collection through the port on every mutation. Concurrent
// writers in other processes are not detected; the last write wins.
type SessionStore struct {
	port Port
	log  *logging.Logger

	// wmu orders writes: the port sees collections in mutation order.
	wmu sync.Mutex

	mu       sync.Mutex
	sessions domain.Collection
}

// NewSessionStore creates a session store over port.
func NewSessionStore(port Port, log *logging.Logger) *SessionStore {
	return &SessionStore{
		port:     port,
		log:      log.Sub("sessions"),
		sessions: domain.NewCollection(),
	}
}

// LoadAll reads the persisted collection. Missing or unreadable data
// yields an empty collection.
func (s *SessionStore) LoadAll() domain.Collection {
	c, err := s.port.LoadAll()
	if err != nil {
		s.log.Warn().Err(err).Msg("stored sessions unreadable, starting empty")
		c = domain.NewCollection()
	}

	s.mu.Lock()
	s.sessions = c
	s.mu.Unlock()

	s.log.Debug().Int("count", c.Len()).Msg("sessions loaded")
	return c
}

// Sessions returns the current in-memory collection.
func (s *SessionStore) Sessions() domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

// SaveSession replaces the entry with the same id and persists the result.
func (s *SessionStore) SaveSession(sess domain.Session) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.sessions = s.sessions.Put(sess)
	c := s.sessions
	s.mu.Unlock()

	return s.persist(c, "session", sess.ID)
}

// DeleteSession removes the entry with id and persists the result.
func (s *SessionStore) DeleteSession(id string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	s.mu.Lock()
	s.sessions = s.sessions.Delete(id)
	c := s.sessions
	s.mu.Unlock()

	return s.persist(c, "delete", id)
}

func (s *SessionStore) persist(c domain.Collection, op, id string) error {
	if err := s.port.SaveAll(c); err != nil {
		metrics.PersistErrorsTotal.Inc()
		s.log.Error().Err(err).Str("op", op).Str("id", id).Msg("failed to persist sessions")
		return fmt.Errorf("persisting sessions: %w", err)
	}
	return nil
}

// OpenPort builds the persistence port selected by cfg. The closer
// releases the underlying database, if any.
func OpenPort(cfg config.StorageConfig, dbPath string, log *logging.Logger) (Port, io.Closer, error) {
	key := cfg.Key
	if key == "" {
		key = config.DefaultStorageKey
	}

	switch cfg.Store {
	case "memory":
		return NewKVPort(NewMemoryKV(), key), io.NopCloser(nil), nil
	case "", "sqlite":
		db, err := Open(dbPath, log)
		if err != nil {
			return nil, nil, err
		}
		return NewKVPort(NewSQLiteKV(db), key), db, nil
	default:
		return nil, nil, &config.ConfigError{Message: "unknown storage.store: " + cfg.Store}
	}
}
