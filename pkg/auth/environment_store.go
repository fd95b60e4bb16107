package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore reads the session cookies from SESSIONID, DS_USER_ID,
// CSRFTOKEN and MID. Values from .env files are visible once they have been
// loaded into the process environment.
type EnvironmentStore struct {
	lookup func(string) string
}

// NewEnvironmentStore creates a store over the process environment
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{lookup: os.Getenv}
}

// NewEnvironmentStoreFromMap creates a store over fixed values
func NewEnvironmentStoreFromMap(values map[string]string) *EnvironmentStore {
	return &EnvironmentStore{lookup: func(k string) string { return values[k] }}
}

// Load reads all four variables, complete or not
func (e *EnvironmentStore) Load() *Session {
	get := func(k string) string { return strings.TrimSpace(e.lookup(k)) }
	return &Session{
		Name:         "env",
		SessionID:    get(EnvSessionID),
		DSUserID:     get(EnvDSUserID),
		CSRFToken:    get(EnvCSRFToken),
		MID:          get(EnvMID),
		LastModified: time.Now(),
	}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session when it is complete
func (e *EnvironmentStore) Retrieve(name string) (*Session, error) {
	session := e.Load()
	if !session.Complete() {
		return nil, ErrCredentialsNotFound
	}
	return session, nil
}

func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return e.Load().Complete()
}
