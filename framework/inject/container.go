package inject

import (
	"errors"
	"fmt"
	"sync"
)

// ── Factories & resolution surface ───────────────────────────────────────────

// Factory builds the value for a tag. It receives a Resolver so it can pull
// its own dependencies; those nested Get calls are how dependency edges are
// declared — there is no separate dependency list at the container level.
type Factory func(r Resolver) (any, error)

// Finalizer releases a created instance at destroy time.
type Finalizer func(instance any) error

// Resolver is the resolution surface handed to factories. Both *Container and
// *Scope implement it; during a creation the resolver additionally carries the
// chain of tags currently being built, so cycles are caught per resolution
// path rather than globally.
type Resolver interface {
	// Get returns the instance for tag, creating it on first access.
	Get(tag AnyTag) (any, error)

	// Has reports whether a registration for tag exists. No creation happens.
	Has(tag AnyTag) bool

	// Exists reports whether an instance for tag has already been created and
	// cached. No creation happens.
	Exists(tag AnyTag) bool
}

// target is a Resolver that can resolve with an explicit in-progress path.
type target interface {
	Resolver
	resolve(path []AnyTag, tag AnyTag) (any, error)
}

// view couples a target with the chain of tags currently being created. It is
// the Resolver a factory actually receives: nested Get calls extend the chain,
// which is what makes cycle detection path-sensitive.
type view struct {
	target target
	path   []AnyTag
}

func (v view) Get(tag AnyTag) (any, error) { return v.target.resolve(v.path, tag) }
func (v view) Has(tag AnyTag) bool         { return v.target.Has(tag) }
func (v view) Exists(tag AnyTag) bool      { return v.target.Exists(tag) }

// ── Container ────────────────────────────────────────────────────────────────

// registration pairs a tag's factory with its optional finalizer.
type registration struct {
	tag       AnyTag
	factory   Factory
	finalizer Finalizer
}

// cacheEntry is the per-tag creation record. It is installed before the
// factory runs, so every concurrent and subsequent Get for the tag awaits the
// same creation: the factory runs at most once per container.
type cacheEntry struct {
	tag  AnyTag
	done chan struct{} // closed once val/err are set
	val  any
	err  error
}

func (e *cacheEntry) ready() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Container is the flat resolution unit: a registration map, a single-flight
// creation cache, and ordered, failure-tolerant teardown.
//
//	c := inject.New()
//	inject.Register(c, TagDB, openDB, inject.Finalize(closeDB))
//	db, err := inject.Get(c, TagDB)
//	...
//	err = c.Destroy()
type Container struct {
	mu        sync.RWMutex
	regs      map[string]*registration
	cache     map[string]*cacheEntry
	destroyed bool
}

// New creates an empty container.
func New() *Container {
	return &Container{
		regs:  make(map[string]*registration),
		cache: make(map[string]*cacheEntry),
	}
}

// ── Registration ─────────────────────────────────────────────────────────────

// RegisterOption configures a registration.
type RegisterOption func(*registration)

// WithFinalizer attaches a teardown function run against the created instance
// during Destroy.
func WithFinalizer(fn Finalizer) RegisterOption {
	return func(reg *registration) { reg.finalizer = fn }
}

// Finalize is the typed form of WithFinalizer for use with the generic
// Register helper.
func Finalize[T any](fn func(T) error) RegisterOption {
	return WithFinalizer(func(instance any) error { return fn(instance.(T)) })
}

// Register inserts or overwrites the registration for tag and returns the
// container for fluent chaining.
//
// Overwriting a tag whose instance has already been created (or is mid
// creation) is a programmer error and panics: the cached instance could no
// longer be trusted to match its registration.
func (c *Container) Register(tag AnyTag, factory Factory, opts ...RegisterOption) *Container {
	if tag == nil || tag.ID() == "" {
		panic("inject: Register called with a zero tag")
	}
	if factory == nil {
		panic(fmt.Sprintf("inject: Register called with a nil factory for %s", tag))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		panic(fmt.Sprintf("inject: Register on destroyed container for %s", tag))
	}
	if _, created := c.cache[tag.ID()]; created {
		panic(fmt.Sprintf("inject: re-register of %s after its instance was created", tag))
	}

	reg := &registration{tag: tag, factory: factory}
	for _, opt := range opts {
		opt(reg)
	}
	c.regs[tag.ID()] = reg
	return c
}

// ── Lookup ───────────────────────────────────────────────────────────────────

// Has reports whether a registration for tag exists.
func (c *Container) Has(tag AnyTag) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.regs[tag.ID()]
	return ok
}

// Exists reports whether an instance for tag has been created successfully.
func (c *Container) Exists(tag AnyTag) bool {
	c.mu.RLock()
	e, ok := c.cache[tag.ID()]
	c.mu.RUnlock()
	return ok && e.ready() && e.err == nil
}

// Tags returns every registered tag, for diagnostics.
func (c *Container) Tags() []AnyTag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AnyTag, 0, len(c.regs))
	for _, reg := range c.regs {
		out = append(out, reg.tag)
	}
	return out
}

// ── Resolution ───────────────────────────────────────────────────────────────

// Get returns the instance for tag, invoking its factory on first access.
// Concurrent first accesses share one in-flight creation; later calls observe
// the same instance or the same failure.
func (c *Container) Get(tag AnyTag) (any, error) {
	return c.resolve(nil, tag)
}

func (c *Container) resolve(path []AnyTag, tag AnyTag) (any, error) {
	return c.resolveIn(c, path, tag)
}

// resolveIn resolves tag against c's registrations and cache. origin is the
// resolver the factory should see: the container itself for flat resolution,
// or the declaring scope when resolution arrived through scope delegation.
func (c *Container) resolveIn(origin target, path []AnyTag, tag AnyTag) (any, error) {
	// The cycle check must run before the cache look-up: the repeated tag has
	// a pending entry installed by this very resolution path, and awaiting it
	// would deadlock instead of reporting the loop.
	for i, p := range path {
		if p.ID() == tag.ID() {
			chain := make([]AnyTag, len(path)-i)
			copy(chain, path[i:])
			return nil, &CycleError{Chain: chain}
		}
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, ErrDestroyed
	}
	reg, ok := c.regs[tag.ID()]
	if !ok {
		c.mu.Unlock()
		return nil, &UnknownTagError{Tag: tag}
	}
	if e, ok := c.cache[tag.ID()]; ok {
		c.mu.Unlock()
		<-e.done
		return e.val, e.err
	}
	e := &cacheEntry{tag: tag, done: make(chan struct{})}
	c.cache[tag.ID()] = e
	c.mu.Unlock()

	next := make([]AnyTag, len(path)+1)
	copy(next, path)
	next[len(path)] = tag

	val, err := reg.factory(view{target: origin, path: next})
	if err != nil {
		// Keep cycle reports bare so the chain reads cleanly at the top
		// caller; everything else is annotated with the tag being built.
		var cyc *CycleError
		if !errors.As(err, &cyc) {
			err = &CreateError{Tag: tag, Err: err}
		}
		val = nil
	}
	e.val, e.err = val, err
	close(e.done)
	return e.val, e.err
}

// ── Teardown ─────────────────────────────────────────────────────────────────

// Destroy runs the finalizer of every successfully created instance. The
// finalizers are dispatched concurrently with no relative order; every one is
// attempted, and all failures are reported together as a FinalizeError.
//
// Destroy is idempotent: the first call marks the container destroyed and
// clears the cache, later calls are no-ops. A destroyed container rejects
// further Get calls with ErrDestroyed.
func (c *Container) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true

	type pending struct {
		tag      AnyTag
		instance any
		fn       Finalizer
	}
	var work []pending
	for id, e := range c.cache {
		if !e.ready() || e.err != nil {
			continue
		}
		if reg, ok := c.regs[id]; ok && reg.finalizer != nil {
			work = append(work, pending{tag: e.tag, instance: e.val, fn: reg.finalizer})
		}
	}
	c.cache = make(map[string]*cacheEntry)
	c.mu.Unlock()

	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs []error
	)
	for _, p := range work {
		wg.Add(1)
		go func(p pending) {
			defer wg.Done()
			if err := p.fn(p.instance); err != nil {
				emu.Lock()
				errs = append(errs, fmt.Errorf("finalize %s: %w", p.tag.Label(), err))
				emu.Unlock()
			}
		}(p)
	}
	wg.Wait()

	if len(errs) > 0 {
		return &FinalizeError{Errors: errs}
	}
	return nil
}

// ── Merge ────────────────────────────────────────────────────────────────────

// Merge returns a new container holding the union of both registration maps;
// on tag collisions the receiver's registration wins (other is copied first,
// then overlaid by the receiver). Caches are not copied: the merged container
// starts with no instances. Fails if either source is destroyed.
func (c *Container) Merge(other *Container) (*Container, error) {
	merged := New()
	for _, src := range []*Container{other, c} {
		if src == nil {
			continue
		}
		src.mu.RLock()
		if src.destroyed {
			src.mu.RUnlock()
			return nil, ErrDestroyed
		}
		for id, reg := range src.regs {
			merged.regs[id] = reg
		}
		src.mu.RUnlock()
	}
	return merged, nil
}

// ── Generics helpers ─────────────────────────────────────────────────────────

// Register is the typed front door to Container.Register.
//
//	inject.Register(c, TagRepo, func(r inject.Resolver) (*Repo, error) {
//	    db, err := inject.Get(r, TagDB)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewRepo(db), nil
//	})
func Register[T any](c *Container, tag Tag[T], factory func(r Resolver) (T, error), opts ...RegisterOption) *Container {
	return c.Register(tag, func(r Resolver) (any, error) { return factory(r) }, opts...)
}

// Get resolves tag through r and type-asserts the result. A type mismatch is
// a programmer error (the tag was registered with a factory of another type)
// and panics.
func Get[T any](r Resolver, tag Tag[T]) (T, error) {
	instance, err := r.Get(tag)
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Sprintf("inject: Get[%T]: %s resolved to %T", *new(T), tag, instance))
	}
	return typed, nil
}

// MustGet is Get panicking on resolution failure. Useful in handlers wired
// behind a fully validated layer, where a missing tag is unreachable.
func MustGet[T any](r Resolver, tag Tag[T]) T {
	v, err := Get(r, tag)
	if err != nil {
		panic(err)
	}
	return v
}
