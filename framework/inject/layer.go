package inject

// ── Layers ───────────────────────────────────────────────────────────────────

// Layer is a reusable, side-effect-free description of a set of registrations:
// what it requires from the container it is applied to, and what it provides
// on top. At runtime it is a single apply function; the requirement and
// provision manifests are explicit values declared by the layer author and
// carried through composition, so the fully composed application layer can be
// checked to require nothing before it is materialized.
//
// Layers are immutable: Merge and To return new layers, never mutate operands.
//
//	infra := inject.Merge(dbLayer, cacheLayer)
//	app := serviceLayer.To(repoLayer.To(infra))
//	c, err := app.Build()
type Layer struct {
	requires []AnyTag
	provides []AnyTag
	apply    func(c *Container) (*Container, error)
}

// NewLayer wraps a raw apply function as a Layer with explicit manifests.
// The apply function receives a container satisfying requires and must return
// one that additionally satisfies provides (registering into its argument and
// returning it is the usual shape).
func NewLayer(requires, provides []AnyTag, apply func(c *Container) (*Container, error)) Layer {
	if apply == nil {
		panic("inject: NewLayer called with a nil apply function")
	}
	return Layer{
		requires: dedupTags(requires),
		provides: dedupTags(provides),
		apply:    apply,
	}
}

// Value is a layer with no requirements that registers a fixed value under
// tag. Useful for configuration and other pre-built constants.
func Value[T any](tag Tag[T], v T) Layer {
	return NewLayer(nil, []AnyTag{tag}, func(c *Container) (*Container, error) {
		c.Register(tag, func(Resolver) (any, error) { return v, nil })
		return c, nil
	})
}

// Requires returns the tags the layer still needs from below.
func (l Layer) Requires() []AnyTag { return copyTags(l.requires) }

// Provides returns the tags the layer registers.
func (l Layer) Provides() []AnyTag { return copyTags(l.provides) }

// Apply runs the layer's registrations against c.
func (l Layer) Apply(c *Container) (*Container, error) {
	return l.apply(c)
}

// Build applies the layer to a fresh container. It fails with an
// UnsatisfiedError if the layer still has requirements: only a fully composed
// layer can be materialized.
func (l Layer) Build() (*Container, error) {
	if len(l.requires) > 0 {
		return nil, &UnsatisfiedError{Tags: copyTags(l.requires)}
	}
	return l.apply(New())
}

// ── Composition ──────────────────────────────────────────────────────────────

// Merge combines layers side by side: the result applies every operand in
// order, provides the union of their provisions, and requires the union of
// the operands' requirements that no sibling provides — all operands register
// into the same container, so a tag one sibling provides is met by the time
// another's factory resolves it. Operands are expected to provide disjoint
// tag sets; if two provide the same tag, the last-applied registration wins
// (the same precedence rule as Container.Merge).
func Merge(layers ...Layer) Layer {
	var requires, provides []AnyTag
	for _, l := range layers {
		requires = append(requires, l.requires...)
		provides = append(provides, l.provides...)
	}
	requires = subtractTags(requires, provides)
	ls := make([]Layer, len(layers))
	copy(ls, layers)
	return NewLayer(requires, provides, func(c *Container) (*Container, error) {
		var err error
		for _, l := range ls {
			if c, err = l.apply(c); err != nil {
				return nil, err
			}
		}
		return c, nil
	})
}

// To sequences l on top of base: applying the result applies base first, then
// l. Requirements of l that base provides are satisfied and drop out; the
// result requires base's requirements plus whatever l still needs beyond
// base's provisions, and provides both layers' provisions.
//
//	repoLayer.To(dbLayer) // repositories wired on top of the database
func (l Layer) To(base Layer) Layer {
	requires := append(copyTags(base.requires), subtractTags(l.requires, base.provides)...)
	provides := append(copyTags(base.provides), l.provides...)
	lower, upper := base, l
	return NewLayer(requires, provides, func(c *Container) (*Container, error) {
		c, err := lower.apply(c)
		if err != nil {
			return nil, err
		}
		return upper.apply(c)
	})
}

// Provide is To with the operands flipped: base.Provide(l) feeds base's
// provisions to l.
func (l Layer) Provide(next Layer) Layer {
	return next.To(l)
}

// ── Tag set helpers ──────────────────────────────────────────────────────────

func copyTags(tags []AnyTag) []AnyTag {
	out := make([]AnyTag, len(tags))
	copy(out, tags)
	return out
}

func dedupTags(tags []AnyTag) []AnyTag {
	seen := make(map[string]struct{}, len(tags))
	out := make([]AnyTag, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t.ID()]; ok {
			continue
		}
		seen[t.ID()] = struct{}{}
		out = append(out, t)
	}
	return out
}

// subtractTags returns the tags in a that are not in b.
func subtractTags(a, b []AnyTag) []AnyTag {
	drop := make(map[string]struct{}, len(b))
	for _, t := range b {
		drop[t.ID()] = struct{}{}
	}
	var out []AnyTag
	for _, t := range a {
		if _, ok := drop[t.ID()]; !ok {
			out = append(out, t)
		}
	}
	return out
}
