package session

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/schema"
)

const defaultMaxSessions = 1000

// Store keeps live sessions in memory. The least recently used session is
// dropped once the configured bound is reached.
type Store struct {
	reg      *schema.Registry
	sessions *lru.Cache[string, *Session]
	logger   *logrus.Logger
}

// NewStore creates a session store
func NewStore(reg *schema.Registry, config domain.SessionConfig, logger *logrus.Logger) (*Store, error) {
	if reg == nil {
		reg = schema.Default()
	}
	if logger == nil {
		logger = logrus.New()
	}
	size := config.MaxSessions
	if size <= 0 {
		size = defaultMaxSessions
	}

	st := &Store{reg: reg, logger: logger}
	cache, err := lru.NewWithEvict[string, *Session](size, func(id string, _ *Session) {
		st.logger.WithField("session_id", id).Debug("Session evicted")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	st.sessions = cache
	return st, nil
}

// Create starts a session with default form values
func (st *Store) Create() *Session {
	s := newSession(uuid.New().String(), st.reg, st.logger)
	st.sessions.Add(s.id, s)
	st.logger.WithField("session_id", s.id).Debug("Session created")
	return s
}

// Get looks up a live session
func (st *Store) Get(id string) (*Session, bool) {
	return st.sessions.Get(id)
}

// Delete discards a session and reports whether it existed
func (st *Store) Delete(id string) bool {
	return st.sessions.Remove(id)
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	return st.sessions.Len()
}
