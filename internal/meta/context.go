package meta

import "slices"

// Context is an ordered, mutable mapping from string keys to Values.
//
// Copy produces a new top-level key set; nested maps and lists are shared with
// the original. A Context is not safe for concurrent mutation, but concurrent
// reads (Get, Data, Copy) are fine once construction has finished.
type Context struct {
	keys   []string
	values map[string]Value
}

// New returns an empty Context.
func New() *Context {
	return &Context{values: make(map[string]Value)}
}

// Len returns the number of keys.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns the keys in insertion order.
func (c *Context) Keys() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.keys)
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Get looks up a key.
func (c *Context) Get(key string) (Value, bool) {
	if c == nil {
		return Value{}, false
	}
	v, ok := c.values[key]
	return v, ok
}

// GetString returns the value for key when it holds a string.
func (c *Context) GetString(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	return v.Str()
}

// Set adds or replaces a key. A replaced key keeps its position.
func (c *Context) Set(key string, v Value) {
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = v
}

// Delete removes a key and reports whether it was present.
func (c *Context) Delete(key string) bool {
	if _, exists := c.values[key]; !exists {
		return false
	}
	delete(c.values, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
	return true
}

// Copy returns a shallow copy: a new key set whose values are shared.
func (c *Context) Copy() *Context {
	if c == nil {
		return New()
	}
	out := &Context{
		keys:   slices.Clone(c.keys),
		values: make(map[string]Value, len(c.values)),
	}
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

// Merge copies every key of other into c, overwriting existing keys.
func (c *Context) Merge(other *Context) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		c.Set(k, other.values[k])
	}
}

// Range calls fn for each key in order until fn returns false.
func (c *Context) Range(fn func(key string, v Value) bool) {
	if c == nil {
		return
	}
	for _, k := range c.keys {
		if !fn(k, c.values[k]) {
			return
		}
	}
}

// Data converts the Context into plain Go maps for template evaluation.
func (c *Context) Data() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		out[k] = c.values[k].Interface()
	}
	return out
}
