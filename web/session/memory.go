package session

import (
	"errors"
	"sync"

	"github.com/authpanel/authpanel/web/console"
)

var errStoreUnavailable = errors.New("session store unavailable")

// MemoryStore is an in-process SessionStore. The Fail* switches simulate an
// unavailable backend.
type MemoryStore struct {
	mu          sync.Mutex
	token       string
	failRestore bool
	failWrite   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Restore() console.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRestore {
		return console.Session{}
	}
	return console.Session{Token: s.token}
}

func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite {
		return errStoreUnavailable
	}
	s.token = token
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite {
		return errStoreUnavailable
	}
	s.token = ""
	return nil
}

func (s *MemoryStore) FailRestore(fail bool) {
	s.mu.Lock()
	s.failRestore = fail
	s.mu.Unlock()
}

func (s *MemoryStore) FailWrite(fail bool) {
	s.mu.Lock()
	s.failWrite = fail
	s.mu.Unlock()
}
