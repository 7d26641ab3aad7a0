package headless

import (
	"sync"

	"github.com/gogpu/xr/host"
)

// shareGroup tracks how many contexts of one window are current.
type shareGroup struct {
	mu      sync.Mutex
	current int
}

func (g *shareGroup) anyCurrent() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current > 0
}

// Context is a graphics context of a headless window. It enforces single
// ownership: MakeCurrent fails while the context is current, and a current
// context cannot be destroyed.
type Context struct {
	group *shareGroup
	name  string

	mu        sync.Mutex
	current   bool
	destroyed bool
	makes     int
}

var _ host.GLContext = (*Context)(nil)

func newContext(g *shareGroup, name string) *Context {
	return &Context{group: g, name: name}
}

// MakeCurrent takes ownership of the context.
func (c *Context) MakeCurrent() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.destroyed:
		return host.ErrContextDestroyed
	case c.current:
		return host.ErrContextBusy
	}
	c.current = true
	c.makes++
	c.group.mu.Lock()
	c.group.current++
	c.group.mu.Unlock()
	return nil
}

// DoneCurrent gives up ownership.
func (c *Context) DoneCurrent() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.destroyed:
		return host.ErrContextDestroyed
	case !c.current:
		return host.ErrContextNotCurrent
	}
	c.current = false
	c.group.mu.Lock()
	c.group.current--
	c.group.mu.Unlock()
	return nil
}

// Destroy releases the context. Destroying a destroyed context is a no-op.
func (c *Context) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	if c.current {
		return host.ErrContextBusy
	}
	c.destroyed = true
	return nil
}

// Name returns the debug name of the context.
func (c *Context) Name() string { return c.name }

// Current reports whether the context is current.
func (c *Context) Current() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Destroyed reports whether Destroy succeeded.
func (c *Context) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// MakeCurrentCount returns how many times the context was made current.
func (c *Context) MakeCurrentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.makes
}
