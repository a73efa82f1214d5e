package structures

import "golang.org/x/exp/slices"

// Context is a chained, scoped, name-keyed mapping of values produced (on
// parse) or consumed (on build) so far (spec §3). Lookup walks
// parent-ward; writes always target the innermost scope.
type Context struct {
	parent *Context
	root   *Context
	order  []string
	values map[string]Value
}

// NewContext creates a root scope with no parent, used to start a
// top-level parse or build.
func NewContext() *Context {
	c := &Context{values: make(map[string]Value)}
	c.root = c
	return c
}

// Child pushes a fresh scope whose parent is c. Every aggregate's
// parse/build call does this on entry (spec §3).
func (c *Context) Child() *Context {
	return &Context{parent: c, root: c.root, values: make(map[string]Value)}
}

// Parent returns the enclosing scope, or nil at the root.
func (c *Context) Parent() *Context { return c.parent }

// Root returns the outermost scope of the chain c belongs to.
func (c *Context) Root() *Context { return c.root }

// Set writes to c's own scope and records first-write order.
func (c *Context) Set(name string, value Value) {
	if _, exists := c.values[name]; !exists {
		c.order = append(c.order, name)
	}
	c.values[name] = value
}

// Get walks parent-ward looking for name, implementing the context
// visibility invariant of spec §8.
func (c *Context) Get(name string) (Value, bool) {
	for s := c; s != nil; s = s.parent {
		if v, ok := s.values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether name is visible from c.
func (c *Context) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Keys returns the keys declared directly in c's own scope, in declaration
// order — not keys inherited from ancestors.
func (c *Context) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Context) hasOwn(name string) bool {
	return slices.Contains(c.order, name)
}

// mark/restore back the transactional contract of spec §4.12: on a
// construct's failure, any scope keys it wrote must be discarded along
// with the stream rewind so Repeat can detect a clean failure.
func (c *Context) mark() int { return len(c.order) }

func (c *Context) restore(m int) {
	for _, k := range c.order[m:] {
		delete(c.values, k)
	}
	c.order = c.order[:m]
}

// NewContextFrom seeds a root context from a plain map, the shape
// Sizeof(construct, values) takes per spec §6 ("sizeof(context={})").
func NewContextFrom(values map[string]Value) *Context {
	c := NewContext()
	for k, v := range values {
		c.Set(k, v)
	}
	return c
}
