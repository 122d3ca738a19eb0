package session

import (
	"sync"

	"github.com/imbuefx/enrichments/pkg/core"
)

// Context holds the session currently being recorded.
type Context struct {
	mu      sync.RWMutex
	session *core.Session
}

// NewContext creates a Context with a placeholder session.
func NewContext() *Context {
	return &Context{session: &core.Session{Scenario: "No scenario loaded"}}
}

// Get returns the current session.
func (c *Context) Get() *core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Set replaces the current session.
func (c *Context) Set(s *core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// ID returns the current session id, empty before a session starts.
func (c *Context) ID() string {
	return c.Get().SessionID
}

// Scenario returns the current scenario name.
func (c *Context) Scenario() string {
	return c.Get().Scenario
}
