package inject

import "sync"

// ── Scopes ───────────────────────────────────────────────────────────────────

// Scope arranges containers in a parent/child hierarchy so lifetimes can be
// split: a "runtime" scope for process-wide services, a "request" child per
// unit of work. Lookup is local-first with delegation to the parent, so a
// dependency is always created in the scope that declared it and shared by
// every descendant; a child registering the same tag shadows the parent's,
// per tag.
//
//	root := inject.NewScope("runtime", c)
//	req, err := root.Child("request")
//	...
//	err = req.Destroy() // request teardown; runtime services survive
type Scope struct {
	name string
	c    *Container

	mu        sync.Mutex
	parent    *Scope
	children  map[*Scope]struct{}
	destroyed bool
}

// NewScope wraps c as a root scope named name. A nil container starts the
// scope empty.
func NewScope(name string, c *Container) *Scope {
	if c == nil {
		c = New()
	}
	return &Scope{
		name:     name,
		c:        c,
		children: make(map[*Scope]struct{}),
	}
}

// Name returns the scope's label. Informational only.
func (s *Scope) Name() string { return s.name }

// Container returns the scope's own container.
func (s *Scope) Container() *Container { return s.c }

// Parent returns the parent scope, or nil for a root (or destroyed) scope.
func (s *Scope) Parent() *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent
}

// Register registers into this scope's own container, shadowing any parent
// registration for the same tag. Returns the scope for chaining.
func (s *Scope) Register(tag AnyTag, factory Factory, opts ...RegisterOption) *Scope {
	s.c.Register(tag, factory, opts...)
	return s
}

// ── Hierarchical lookup ──────────────────────────────────────────────────────

// Has reports whether this scope or any ancestor holds a registration for tag.
func (s *Scope) Has(tag AnyTag) bool {
	if s.c.Has(tag) {
		return true
	}
	if p := s.Parent(); p != nil {
		return p.Has(tag)
	}
	return false
}

// Exists reports whether this scope or any ancestor has already created an
// instance for tag.
func (s *Scope) Exists(tag AnyTag) bool {
	if s.c.Exists(tag) {
		return true
	}
	if p := s.Parent(); p != nil {
		return p.Exists(tag)
	}
	return false
}

// Get resolves tag in this scope if it declares a factory for it, otherwise
// delegates to the parent. The instance is created and cached in the scope
// that declared the registration; descendants that delegate up share it.
func (s *Scope) Get(tag AnyTag) (any, error) {
	return s.resolve(nil, tag)
}

func (s *Scope) resolve(path []AnyTag, tag AnyTag) (any, error) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil, ErrDestroyed
	}
	parent := s.parent
	s.mu.Unlock()

	if s.c.Has(tag) {
		// Resolve locally. The factory sees this scope, so its own lookups
		// start here and may again delegate upward; the in-progress path is
		// threaded through so cycle chains span scope boundaries.
		return s.c.resolveIn(s, path, tag)
	}
	if parent != nil {
		return parent.resolve(path, tag)
	}
	return nil, &UnknownTagError{Tag: tag}
}

// ── Hierarchy ────────────────────────────────────────────────────────────────

// Child creates a scope with s as parent and records it for cascade teardown.
// The child removes itself from that record when it is destroyed on its own,
// so the parent never keeps dead children around.
func (s *Scope) Child(name string) (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil, ErrDestroyed
	}
	child := &Scope{
		name:     name,
		c:        New(),
		parent:   s,
		children: make(map[*Scope]struct{}),
	}
	s.children[child] = struct{}{}
	return child, nil
}

func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	delete(s.children, child)
	s.mu.Unlock()
}

// Merge returns a new root scope keeping s's name, with the union of both
// scopes' own registrations. Same precedence as Container.Merge: the
// receiver's registrations win on collision. Parents and children are not
// carried over.
func (s *Scope) Merge(other *Scope) (*Scope, error) {
	merged, err := s.c.Merge(other.c)
	if err != nil {
		return nil, err
	}
	return NewScope(s.name, merged), nil
}

// ── Teardown ─────────────────────────────────────────────────────────────────

// Destroy tears the scope down: all live children first (concurrently, with
// failures collected), then this scope's own finalizers, then the parent link
// is broken. Children go first because their instances may have been built
// against parent-scoped dependencies, which must outlive them.
//
// Destroy is idempotent and terminal: afterwards Get, Register, Child and
// Merge fail with the destroyed condition.
func (s *Scope) Destroy() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return nil
	}
	s.destroyed = true
	kids := make([]*Scope, 0, len(s.children))
	for child := range s.children {
		kids = append(kids, child)
	}
	s.children = make(map[*Scope]struct{})
	parent := s.parent
	s.parent = nil
	s.mu.Unlock()

	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs []error
	)
	for _, child := range kids {
		wg.Add(1)
		go func(child *Scope) {
			defer wg.Done()
			if err := child.Destroy(); err != nil {
				emu.Lock()
				errs = append(errs, err)
				emu.Unlock()
			}
		}(child)
	}
	wg.Wait()

	if err := s.c.Destroy(); err != nil {
		errs = append(errs, err)
	}

	if parent != nil {
		parent.removeChild(s)
	}

	if len(errs) > 0 {
		return &FinalizeError{Errors: errs}
	}
	return nil
}
