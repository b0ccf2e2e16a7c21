// Package inject defines the per-resolution call record shared by the
// resolver, lifetime and activation layers.
package inject

import (
	"context"
	"sync/atomic"

	"github.com/jingyiliu/injector/internal/description"
	"github.com/jingyiliu/injector/internal/scope"
	"github.com/jingyiliu/injector/internal/typeinfo"
)

// Overrides are caller supplied constructor values. Positional values fill
// the first parameter slots; named values address parameters or members by
// name.
type Overrides struct {
	Positional []any
	Named      map[string]any
}

func (o *Overrides) Empty() bool {
	return o == nil || (len(o.Positional) == 0 && len(o.Named) == 0)
}

func (o *Overrides) Lookup(name string) (any, bool) {
	if o == nil || name == "" {
		return nil, false
	}
	v, ok := o.Named[name]
	return v, ok
}

// HandleFunc produces the value injected for Resolver-typed dependencies of
// the builder running in frame.
type HandleFunc func(frame *Context) any

// Context is one frame of a resolution. The root frame has no description;
// every builder run adds a frame whose Parent is the requesting frame.
type Context struct {
	Ctx         context.Context
	Description *description.ObjectDescription
	Overrides   *Overrides
	Scope       *scope.Scope
	Parent      *Context

	handle HandleFunc
	// finished is shared by copies of a builder frame and set once the
	// builder returns. Root frames have none.
	finished *atomic.Bool
}

func Root(ctx context.Context, s *scope.Scope, handle HandleFunc) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{Ctx: ctx, Scope: s, handle: handle}
}

// Child opens the frame for building d. Overrides never leak into deeper
// frames.
func (c *Context) Child(d *description.ObjectDescription, overrides *Overrides) *Context {
	return &Context{
		Ctx:         c.Ctx,
		Description: d,
		Overrides:   overrides,
		Scope:       c.Scope,
		Parent:      c,
		handle:      c.handle,
		finished:    new(atomic.Bool),
	}
}

// Finish marks the builder of this frame as returned.
func (c *Context) Finish() {
	if c.finished != nil {
		c.finished.Store(true)
	}
}

// Live reports whether the frame belongs to a builder that is still running.
// Resolutions made from a live frame extend its chain.
func (c *Context) Live() bool {
	return c.finished != nil && !c.finished.Load()
}

// WithContext returns a copy of the frame carrying ctx. A nil ctx keeps the
// frame's own.
func (c *Context) WithContext(ctx context.Context) *Context {
	cp := *c
	if ctx != nil {
		cp.Ctx = ctx
	}
	return &cp
}

// WithScope returns a copy of the frame bound to s.
func (c *Context) WithScope(s *scope.Scope) *Context {
	cp := *c
	cp.Scope = s
	return &cp
}

// Handle returns the Resolver value for the frame.
func (c *Context) Handle() any {
	if c.handle == nil {
		return nil
	}
	return c.handle(c)
}

// Building reports whether d is already being built further up the chain.
func (c *Context) Building(d *description.ObjectDescription) bool {
	for f := c; f != nil; f = f.Parent {
		if f.Description != nil && f.Description.Equal(d) {
			return true
		}
	}
	return false
}

// Chain renders the concrete types from the original request down to this
// frame.
func (c *Context) Chain() []string {
	var chain []string
	for f := c; f != nil; f = f.Parent {
		if f.Description != nil {
			chain = append(chain, typeinfo.Name(f.Description.Concrete()))
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// ChainWith is Chain plus a trailing entry for d.
func (c *Context) ChainWith(d *description.ObjectDescription) []string {
	return append(c.Chain(), typeinfo.Name(d.Concrete()))
}
