package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pairpad/pairpad/internal/platform/id"
)

// DefaultLanguage is the language tag assigned to a session at creation.
const DefaultLanguage = "javascript"

// ErrNotFound reports an operation against a session id with no live session.
var ErrNotFound = errors.New("session does not exist")

// Snapshot is a point-in-time copy of a session's shared values.
type Snapshot struct {
	ID       string
	Document string
	Language string
}

type state struct {
	document string
	language string
	members  map[string]struct{}
}

// Store maps session ids to live session state.
//
// Every method is atomic with respect to the others: two mutations of the
// same session never interleave. The store is a plain owned object with no
// package-level registry, so independent stores can coexist in one process.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
	newID    func() (string, error)
}

// NewStore creates an empty session registry.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*state),
		newID:    id.NewID,
	}
}

// Create allocates a session with an empty document, the default language,
// and no members, and returns its fresh globally-unique id. It fails only
// when the process cannot read entropy for the identifier.
func (s *Store) Create() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		sessionID, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("allocate session id: %w", err)
		}
		if _, taken := s.sessions[sessionID]; taken {
			continue
		}
		s.sessions[sessionID] = &state{
			language: DefaultLanguage,
			members:  make(map[string]struct{}),
		}
		return sessionID, nil
	}
}

// Exists reports whether a session with the given id is live.
func (s *Store) Exists(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// Snapshot returns a copy of the session's document and language tag.
func (s *Store) Snapshot(sessionID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return Snapshot{
		ID:       sessionID,
		Document: session.document,
		Language: session.language,
	}, nil
}

// SetDocument replaces the session's entire document. Any string, including
// the empty string, is a valid document.
func (s *Store) SetDocument(sessionID, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	session.document = document
	return nil
}

// SetLanguage replaces the session's language tag.
func (s *Store) SetLanguage(sessionID, languageTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	session.language = languageTag
	return nil
}

// AddMember adds a connection to the session's member set. Adding a
// connection that is already a member is a no-op, reported through
// alreadyMember rather than as an error.
func (s *Store) AddMember(sessionID, connectionID string) (alreadyMember bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false, ErrNotFound
	}
	if _, present := session.members[connectionID]; present {
		return true, nil
	}
	session.members[connectionID] = struct{}{}
	return false, nil
}

// RemoveMember removes a connection from the session's member set. When the
// set empties the session is deleted in the same step. Removing an absent
// member, or addressing an absent session, is a safe no-op, which keeps the
// operation idempotent under leave/disconnect races.
func (s *Store) RemoveMember(sessionID, connectionID string) (removed, sessionDeleted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return false, false
	}
	if _, present := session.members[connectionID]; !present {
		return false, false
	}
	delete(session.members, connectionID)
	if len(session.members) == 0 {
		delete(s.sessions, sessionID)
		return true, true
	}
	return true, false
}

// Members returns a snapshot of the session's member connection ids, in no
// particular order. An absent session yields nil.
func (s *Store) Members(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(session.members))
	for connectionID := range session.members {
		members = append(members, connectionID)
	}
	return members
}

// MemberSessions returns the ids of every session the connection belongs
// to. The common path yields zero or one id, but the store tolerates
// membership in several sessions so disconnect cleanup never misses one.
func (s *Store) MemberSessions(connectionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessionIDs []string
	for sessionID, session := range s.sessions {
		if _, present := session.members[connectionID]; present {
			sessionIDs = append(sessionIDs, sessionID)
		}
	}
	return sessionIDs
}

// List returns the ids of every live session, in no particular order.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionIDs := make([]string, 0, len(s.sessions))
	for sessionID := range s.sessions {
		sessionIDs = append(sessionIDs, sessionID)
	}
	return sessionIDs
}
