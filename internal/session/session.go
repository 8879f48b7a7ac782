// Package session holds the process-wide login credential.
package session

import (
	"fmt"
	"sync"
)

// Credential is what the server hands back on login.
type Credential struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	Email    string `json:"email,omitempty"`
}

// Empty reports whether c carries no identity.
func (c Credential) Empty() bool {
	return c.Token == "" && c.Username == ""
}

// Persister keeps a credential across runs.
type Persister interface {
	SaveCredential(Credential) error
	LoadCredential() (Credential, error)
	DeleteCredential() error
}

// Context is the single shared session. It is safe for concurrent use; the
// API client reads it on every request while the UI writes it on login.
type Context struct {
	mu        sync.RWMutex
	cred      Credential
	store     Persister
	listeners []func(Credential)
}

// New returns an empty session. store may be nil for an in-memory session.
func New(store Persister) *Context {
	return &Context{store: store}
}

// Restore loads a previously persisted credential, if any.
func (c *Context) Restore() error {
	if c.store == nil {
		return nil
	}
	cred, err := c.store.LoadCredential()
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	c.mu.Lock()
	c.cred = cred
	c.mu.Unlock()
	return nil
}

func (c *Context) Get() Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred
}

func (c *Context) Token() string {
	return c.Get().Token
}

func (c *Context) Authenticated() bool {
	return !c.Get().Empty()
}

// Set replaces the credential. The in-memory value is updated even when
// persisting fails.
func (c *Context) Set(cred Credential) error {
	c.mu.Lock()
	c.cred = cred
	listeners := append([]func(Credential){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(cred)
	}

	if c.store == nil {
		return nil
	}
	if err := c.store.SaveCredential(cred); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear drops the credential from memory and from the store.
func (c *Context) Clear() error {
	c.mu.Lock()
	c.cred = Credential{}
	listeners := append([]func(Credential){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(Credential{})
	}

	if c.store == nil {
		return nil
	}
	if err := c.store.DeleteCredential(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// OnChange registers fn to run after every Set or Clear.
func (c *Context) OnChange(fn func(Credential)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}
