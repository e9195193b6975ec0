package pbclient

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrBadPassword is returned by Login when the server rejects the password
	ErrBadPassword = errors.New("officer password rejected")
	// ErrReauthRequired means the officer secret was rotated since Login
	ErrReauthRequired = errors.New("officer password changed, log in again")
)

// AuthState is what a client remembers about its officer login
type AuthState struct {
	Authorized    bool `json:"isOfficer"`
	SecretVersion int  `json:"officerVersion"`
}

// ClientIdentity is the opaque id stamped on this client's signups
type ClientIdentity struct {
	ID string `json:"clientId"`
}

// Session holds the officer login and identity of one client
type Session struct {
	mu       sync.RWMutex
	auth     AuthState
	identity ClientIdentity
	password string
}

// NewSession creates a logged-out session with a fresh identity
func NewSession() *Session {
	return RestoreSession(ClientIdentity{}, AuthState{}, "")
}

// RestoreSession rebuilds a session from persisted state. An empty identity
// gets a fresh id.
func RestoreSession(identity ClientIdentity, auth AuthState, password string) *Session {
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if password == "" {
		auth = AuthState{}
	}
	return &Session{auth: auth, identity: identity, password: password}
}

// Identity returns the client identity
func (s *Session) Identity() ClientIdentity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Auth returns the officer login state
func (s *Session) Auth() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// CanWithdraw reports whether this client created p's signup
func (s *Session) CanWithdraw(p Participant) bool {
	return p.CreatedBy != "" && p.CreatedBy == s.Identity().ID
}

// Logout forgets the officer login
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = AuthState{}
	s.password = ""
}

func (s *Session) login(password string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = AuthState{Authorized: true, SecretVersion: version}
	s.password = password
}

// officerPassword returns the password to send on gated requests
func (s *Session) officerPassword() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.password, s.auth.Authorized
}

// Login checks password with the server and marks the session as officer
func (c *Client) Login(ctx context.Context, password string) error {
	ok, version, err := c.CheckPassword(ctx, password)
	if err != nil {
		return err
	}
	if !ok {
		c.session.Logout()
		return ErrBadPassword
	}
	c.session.login(password, version)
	c.log.Debug("Officer login", "version", version)
	return nil
}

// VerifyOfficer compares the remembered secret version with the server's.
// On mismatch the session is logged out and ErrReauthRequired returned.
// A logged-out session verifies as not authorized without error.
func (c *Client) VerifyOfficer(ctx context.Context) (bool, error) {
	auth := c.session.Auth()
	if !auth.Authorized {
		return false, nil
	}

	version, err := c.OfficerVersion(ctx)
	if err != nil {
		return false, err
	}
	if version != auth.SecretVersion {
		c.session.Logout()
		c.log.Info("Officer password rotated elsewhere", "had", auth.SecretVersion, "now", version)
		return false, ErrReauthRequired
	}
	return true, nil
}
