package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Environment variable names holding the session cookies
const (
	EnvSessionID = "SESSIONID"
	EnvDSUserID  = "DS_USER_ID"
	EnvCSRFToken = "CSRFTOKEN"
	EnvMID       = "MID"
)

// Session holds the pre-obtained Instagram cookies used to authorize requests.
// It is never modified during a run.
type Session struct {
	Name         string    `json:"name"`
	SessionID    string    `json:"session_id"`
	DSUserID     string    `json:"ds_user_id"`
	CSRFToken    string    `json:"csrf_token"`
	MID          string    `json:"mid"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Missing lists the environment names of unset cookies, in canonical order
func (s *Session) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{EnvSessionID, s.SessionID},
		{EnvDSUserID, s.DSUserID},
		{EnvCSRFToken, s.CSRFToken},
		{EnvMID, s.MID},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Complete reports whether all four cookies are present
func (s *Session) Complete() bool {
	return len(s.Missing()) == 0
}

// CookieHeader renders the Cookie request header value
func (s *Session) CookieHeader() string {
	return fmt.Sprintf("sessionid=%s; ds_user_id=%s; csrftoken=%s; mid=%s;", s.SessionID, s.DSUserID, s.CSRFToken, s.MID)
}

// MissingError is returned when no complete session could be resolved
type MissingError struct {
	Source  string
	Missing []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing credentials from %s: %s", e.Source, strings.Join(e.Missing, ", "))
}

// CredentialStore is the interface for storing and retrieving sessions
type CredentialStore interface {
	Store(session *Session) error
	Retrieve(name string) (*Session, error)
	List() ([]*Session, error)
	Delete(name string) error
	Exists(name string) bool
}

// Manager resolves sessions from the environment and saved stores
type Manager struct {
	env    *EnvironmentStore
	stores []CredentialStore
}

// NewManager creates a manager backed by the system keyring when available,
// an encrypted file store, and the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{env: NewEnvironmentStore(), stores: stores}, nil
}

// NewManagerWithStores builds a Manager over explicit stores; env may be nil
func NewManagerWithStores(env *EnvironmentStore, stores ...CredentialStore) *Manager {
	return &Manager{env: env, stores: stores}
}

// Store saves a complete session in the first store that accepts it
func (m *Manager) Store(session *Session) error {
	if session == nil || session.Name == "" {
		return errors.New("session name is required")
	}
	if missing := session.Missing(); len(missing) > 0 {
		return &MissingError{Source: "input", Missing: missing}
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(session)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets a saved session by name
func (m *Manager) Retrieve(name string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(name); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// Resolve picks the session for a run. A named session must exist in a saved
// store. Otherwise the environment wins when any of its variables is set, and
// the most recently saved session is the fallback.
func (m *Manager) Resolve(name string) (*Session, error) {
	if name != "" {
		return m.Retrieve(name)
	}

	if m.env != nil {
		session := m.env.Load()
		missing := session.Missing()
		if len(missing) == 0 {
			return session, nil
		}
		if len(missing) < 4 {
			return nil, &MissingError{Source: "environment", Missing: missing}
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		return sessions[0], nil
	}

	return nil, &MissingError{Source: "environment", Missing: []string{EnvSessionID, EnvDSUserID, EnvCSRFToken, EnvMID}}
}

// List returns saved sessions, most recently modified first
func (m *Manager) List() ([]*Session, error) {
	byName := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, s := range sessions {
			if existing, ok := byName[s.Name]; !ok || s.LastModified.After(existing.LastModified) {
				byName[s.Name] = s
			}
		}
	}

	result := make([]*Session, 0, len(byName))
	for _, s := range byName {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastModified.Equal(result[j].LastModified) {
			return result[i].Name < result[j].Name
		}
		return result[i].LastModified.After(result[j].LastModified)
	})

	return result, nil
}

// Delete removes a saved session from every store holding it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrCredentialsNotFound) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// getConfigDir returns the per-user directory for saved sessions
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "instacomments")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "instacomments")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "instacomments")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "instacomments")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeSession returns a copy with every cookie masked
func SanitizeSession(session *Session) *Session {
	if session == nil {
		return nil
	}

	return &Session{
		Name:         session.Name,
		SessionID:    maskString(session.SessionID),
		DSUserID:     maskString(session.DSUserID),
		CSRFToken:    maskString(session.CSRFToken),
		MID:          maskString(session.MID),
		UserAgent:    session.UserAgent,
		LastModified: session.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
