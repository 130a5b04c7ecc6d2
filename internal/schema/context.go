package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSuchPath is returned when a dotted property path cannot be resolved
// against the context's home schema.
var ErrNoSuchPath = errors.New("no such property path")

// Context resolves dotted property paths relative to a home schema. A context
// is cheap to create and scoped to a single compilation; SwitchedTo derives a
// sibling context rooted at another schema of the same registry.
type Context struct {
	registry *Registry
	home     *Schema

	resolved map[string][]*Property
}

// NewContext creates a resolution context rooted at the named schema.
func NewContext(registry *Registry, homeType string) *Context {
	return &Context{
		registry: registry,
		home:     registry.Get(homeType),
		resolved: make(map[string][]*Property),
	}
}

// Home returns the schema this context is rooted at, or nil when the home
// type is not registered.
func (c *Context) Home() *Schema {
	return c.home
}

// SwitchedTo returns a context of the same registry rooted at the given type.
func (c *Context) SwitchedTo(typeName string) *Context {
	return NewContext(c.registry, typeName)
}

// SwitchedToPath returns a context rooted at the schema owning the last
// segment of path: the home schema for non-nested paths, otherwise the schema
// reached by following all but the last segment.
func (c *Context) SwitchedToPath(path string) *Context {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return c
	}
	chain, err := c.ResolvePath(path[:idx])
	if err != nil || len(chain) == 0 {
		return c
	}
	last := chain[len(chain)-1]
	return c.SwitchedTo(referencedSchema(last))
}

// Resolve returns the property at path, or nil when unresolvable.
func (c *Context) Resolve(path string) *Property {
	chain, err := c.ResolvePath(path)
	if err != nil {
		return nil
	}
	return chain[len(chain)-1]
}

// ResolveMandatory returns the property at path, failing with ErrNoSuchPath
// when it does not exist.
func (c *Context) ResolveMandatory(path string) (*Property, error) {
	chain, err := c.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return chain[len(chain)-1], nil
}

// ResolvePath resolves every segment of a dotted path, traversing reference
// and collection item schemas between segments.
func (c *Context) ResolvePath(path string) ([]*Property, error) {
	if cached, ok := c.resolved[path]; ok {
		return cached, nil
	}
	if c.home == nil {
		return nil, fmt.Errorf("%w: %q (home schema not registered)", ErrNoSuchPath, path)
	}
	current := c.home
	segments := strings.Split(path, ".")
	chain := make([]*Property, 0, len(segments))
	for i, segment := range segments {
		p := current.Property(segment)
		if p == nil {
			return nil, fmt.Errorf("%w: %q (no property %q on %s)", ErrNoSuchPath, path, segment, current.Name)
		}
		chain = append(chain, p)
		if i < len(segments)-1 {
			current = c.registry.Get(referencedSchema(p))
			if current == nil {
				return nil, fmt.Errorf("%w: %q (property %q has no resolvable type)", ErrNoSuchPath, path, segment)
			}
		}
	}
	c.resolved[path] = chain
	return chain, nil
}

// referencedSchema names the schema a path traversal continues at after the
// given property: the item schema for collections, the referenced schema
// otherwise.
func referencedSchema(p *Property) string {
	if p.Collection && p.ItemKlass != "" {
		return p.ItemKlass
	}
	return p.Klass
}
