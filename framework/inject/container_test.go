package inject

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//
// -----------------------------------------------------------------------------
// Register / Has / Exists
// -----------------------------------------------------------------------------

// TestRegister_ChainsAndHas verifies Register returns the container for
// chaining and Has reports registrations without triggering creation.
func TestRegister_ChainsAndHas(t *testing.T) {
	t.Parallel()

	tagA := NewTag[string]("a")
	tagB := NewTag[string]("b")

	calls := 0
	c := New()
	ret := Register(c, tagA, func(Resolver) (string, error) { calls++; return "a", nil }).
		Register(tagB, func(Resolver) (any, error) { calls++; return "b", nil })

	require.Same(t, c, ret)
	assert.True(t, c.Has(tagA))
	assert.True(t, c.Has(tagB))
	assert.False(t, c.Has(NewTag[string]("c")))
	assert.Zero(t, calls, "Has must not invoke factories")
}

// TestExists_TracksCreationOnly verifies Exists flips only after a successful
// Get and never triggers creation itself.
func TestExists_TracksCreationOnly(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("n")
	c := New()
	Register(c, tag, func(Resolver) (int, error) { return 42, nil })

	assert.False(t, c.Exists(tag))

	_, err := Get(c, tag)
	require.NoError(t, err)
	assert.True(t, c.Exists(tag))
}

// TestRegister_AfterCreatePanics verifies overwriting a tag whose instance was
// already created is flagged as a programmer error.
func TestRegister_AfterCreatePanics(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("n")
	c := New()
	Register(c, tag, func(Resolver) (int, error) { return 1, nil })

	_, err := Get(c, tag)
	require.NoError(t, err)

	assert.Panics(t, func() {
		Register(c, tag, func(Resolver) (int, error) { return 2, nil })
	})
}

// TestRegister_OverwriteBeforeCreate verifies re-registering an uncreated tag
// simply replaces the factory.
func TestRegister_OverwriteBeforeCreate(t *testing.T) {
	t.Parallel()

	tag := NewTag[string]("s")
	c := New()
	Register(c, tag, func(Resolver) (string, error) { return "old", nil })
	Register(c, tag, func(Resolver) (string, error) { return "new", nil })

	v, err := Get(c, tag)
	require.NoError(t, err)
	assert.Equal(t, "new", v)
}

// TestRegister_NilFactoryPanics verifies nil factories are rejected up front.
func TestRegister_NilFactoryPanics(t *testing.T) {
	t.Parallel()

	c := New()
	assert.Panics(t, func() { c.Register(NewTag[int]("n"), nil) })
}

//
// -----------------------------------------------------------------------------
// Get
// -----------------------------------------------------------------------------

// TestGet_Unknown verifies a missing registration fails with UnknownTagError
// naming exactly the requested tag.
func TestGet_Unknown(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("missing")
	_, err := New().Get(tag)

	var unknown *UnknownTagError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, tag.ID(), unknown.Tag.ID())
}

// TestGet_CachesInstance verifies the factory runs once and every later Get
// returns the identical instance.
func TestGet_CachesInstance(t *testing.T) {
	t.Parallel()

	type conn struct{ n int }
	tag := NewTag[*conn]("conn")

	calls := 0
	c := New()
	Register(c, tag, func(Resolver) (*conn, error) {
		calls++
		return &conn{n: calls}, nil
	})

	first, err := Get(c, tag)
	require.NoError(t, err)
	second, err := Get(c, tag)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
}

// TestGet_SingleFlight verifies N concurrent first accesses share one
// in-flight creation: exactly one factory invocation, all callers receiving
// the identical instance.
func TestGet_SingleFlight(t *testing.T) {
	t.Parallel()

	type conn struct{}
	tag := NewTag[*conn]("conn")

	var calls atomic.Int32
	c := New()
	Register(c, tag, func(Resolver) (*conn, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &conn{}, nil
	})

	const n = 32
	results := make([]*conn, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Get(c, tag)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

// TestGet_FactoryDependencies verifies a factory resolves its own dependencies
// through the resolver it receives.
func TestGet_FactoryDependencies(t *testing.T) {
	t.Parallel()

	tagBase := NewTag[int]("base")
	tagDouble := NewTag[int]("double")

	c := New()
	Register(c, tagBase, func(Resolver) (int, error) { return 21, nil })
	Register(c, tagDouble, func(r Resolver) (int, error) {
		base, err := Get(r, tagBase)
		if err != nil {
			return 0, err
		}
		return base * 2, nil
	})

	v, err := Get(c, tagDouble)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.True(t, c.Exists(tagBase), "dependency must be cached in the same container")
}

// TestGet_CreationFailure verifies a factory error is wrapped with the tag
// being built, preserves the cause, and is cached for later callers.
func TestGet_CreationFailure(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("boom")
	cause := errors.New("db down")

	calls := 0
	c := New()
	Register(c, tag, func(Resolver) (int, error) { calls++; return 0, cause })

	_, err := Get(c, tag)
	var create *CreateError
	require.ErrorAs(t, err, &create)
	assert.Equal(t, tag.ID(), create.Tag.ID())
	assert.ErrorIs(t, err, cause)

	_, again := Get(c, tag)
	assert.Equal(t, err, again, "failures are cached like values")
	assert.Equal(t, 1, calls)
}

// TestGet_MissingLeafIdentified verifies a missing leaf deep in the graph is
// reported as that leaf, not as some downstream tag.
func TestGet_MissingLeafIdentified(t *testing.T) {
	t.Parallel()

	tagLeaf := NewTag[int]("leaf")
	tagMid := NewTag[int]("mid")

	c := New()
	Register(c, tagMid, func(r Resolver) (int, error) {
		return Get(r, tagLeaf)
	})

	_, err := Get(c, tagMid)
	var unknown *UnknownTagError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, tagLeaf.ID(), unknown.Tag.ID())
}

//
// -----------------------------------------------------------------------------
// Cycle detection
// -----------------------------------------------------------------------------

// TestGet_CycleDetected verifies a two-tag cycle fails with the ordered chain
// instead of hanging or overflowing.
func TestGet_CycleDetected(t *testing.T) {
	t.Parallel()

	tagA := NewTag[int]("a")
	tagB := NewTag[int]("b")

	c := New()
	Register(c, tagA, func(r Resolver) (int, error) { return Get(r, tagB) })
	Register(c, tagB, func(r Resolver) (int, error) { return Get(r, tagA) })

	_, err := Get(c, tagA)
	var cyc *CycleError
	require.ErrorAs(t, err, &cyc)
	require.Len(t, cyc.Chain, 2)
	assert.Equal(t, tagA.ID(), cyc.Chain[0].ID())
	assert.Equal(t, tagB.ID(), cyc.Chain[1].ID())
	assert.Contains(t, cyc.Error(), "a -> b -> a")
}

// TestGet_SelfCycle verifies a factory requesting its own tag is caught.
func TestGet_SelfCycle(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("self")
	c := New()
	Register(c, tag, func(r Resolver) (int, error) { return Get(r, tag) })

	_, err := Get(c, tag)
	var cyc *CycleError
	require.ErrorAs(t, err, &cyc)
	require.Len(t, cyc.Chain, 1)
	assert.Equal(t, tag.ID(), cyc.Chain[0].ID())
}

// TestGet_SharedTagIsNotACycle verifies the chain is tracked per resolution
// path: two branches depending on the same tag are not flagged.
func TestGet_SharedTagIsNotACycle(t *testing.T) {
	t.Parallel()

	tagShared := NewTag[int]("shared")
	tagLeft := NewTag[int]("left")
	tagRight := NewTag[int]("right")
	tagTop := NewTag[int]("top")

	c := New()
	Register(c, tagShared, func(Resolver) (int, error) { return 1, nil })
	Register(c, tagLeft, func(r Resolver) (int, error) { return Get(r, tagShared) })
	Register(c, tagRight, func(r Resolver) (int, error) { return Get(r, tagShared) })
	Register(c, tagTop, func(r Resolver) (int, error) {
		l, err := Get(r, tagLeft)
		if err != nil {
			return 0, err
		}
		rv, err := Get(r, tagRight)
		if err != nil {
			return 0, err
		}
		return l + rv, nil
	})

	v, err := Get(c, tagTop)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

//
// -----------------------------------------------------------------------------
// Destroy
// -----------------------------------------------------------------------------

// TestDestroy_RunsFinalizers verifies finalizers run against the created
// instances and the cache is cleared.
func TestDestroy_RunsFinalizers(t *testing.T) {
	t.Parallel()

	type conn struct{ closed bool }
	tag := NewTag[*conn]("conn")

	c := New()
	Register(c, tag, func(Resolver) (*conn, error) { return &conn{}, nil },
		Finalize(func(v *conn) error { v.closed = true; return nil }))

	v, err := Get(c, tag)
	require.NoError(t, err)

	require.NoError(t, c.Destroy())
	assert.True(t, v.closed)
	assert.False(t, c.Exists(tag))
}

// TestDestroy_SkipsUncreated verifies finalizers of never-created tags do not
// run.
func TestDestroy_SkipsUncreated(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("lazy")
	ran := false

	c := New()
	Register(c, tag, func(Resolver) (int, error) { return 1, nil },
		WithFinalizer(func(any) error { ran = true; return nil }))

	require.NoError(t, c.Destroy())
	assert.False(t, ran)
}

// TestDestroy_Idempotent verifies a second Destroy is a no-op success and
// finalizers run once.
func TestDestroy_Idempotent(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("n")
	runs := 0

	c := New()
	Register(c, tag, func(Resolver) (int, error) { return 1, nil },
		WithFinalizer(func(any) error { runs++; return nil }))

	_, err := Get(c, tag)
	require.NoError(t, err)

	require.NoError(t, c.Destroy())
	require.NoError(t, c.Destroy())
	assert.Equal(t, 1, runs)
}

// TestDestroy_AggregatesFailures verifies both failing finalizers run and a
// single aggregate error references both causes.
func TestDestroy_AggregatesFailures(t *testing.T) {
	t.Parallel()

	tagA := NewTag[int]("a")
	tagB := NewTag[int]("b")
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	var (
		mu  sync.Mutex
		log []string
	)
	noteAndFail := func(name string, cause error) RegisterOption {
		return WithFinalizer(func(any) error {
			mu.Lock()
			log = append(log, name)
			mu.Unlock()
			return cause
		})
	}

	c := New()
	Register(c, tagA, func(Resolver) (int, error) { return 1, nil }, noteAndFail("a", errA))
	Register(c, tagB, func(Resolver) (int, error) { return 2, nil }, noteAndFail("b", errB))

	_, err := Get(c, tagA)
	require.NoError(t, err)
	_, err = Get(c, tagB)
	require.NoError(t, err)

	err = c.Destroy()
	var agg *FinalizeError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 2)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.ElementsMatch(t, []string{"a", "b"}, log, "every finalizer must be attempted")
}

// TestGet_AfterDestroy verifies resolution attempts on a destroyed container
// fail with the destroyed condition.
func TestGet_AfterDestroy(t *testing.T) {
	t.Parallel()

	tag := NewTag[int]("n")
	c := New()
	Register(c, tag, func(Resolver) (int, error) { return 1, nil })

	require.NoError(t, c.Destroy())

	_, err := Get(c, tag)
	assert.ErrorIs(t, err, ErrDestroyed)
}

//
// -----------------------------------------------------------------------------
// Merge
// -----------------------------------------------------------------------------

// TestMerge_ReceiverWins verifies merged registrations are the union with the
// receiver overlaying the argument on collisions, and no cache is copied.
func TestMerge_ReceiverWins(t *testing.T) {
	t.Parallel()

	tagShared := NewTag[string]("shared")
	tagOnly := NewTag[string]("only")

	a := New()
	Register(a, tagShared, func(Resolver) (string, error) { return "from-a", nil })

	b := New()
	Register(b, tagShared, func(Resolver) (string, error) { return "from-b", nil })
	Register(b, tagOnly, func(Resolver) (string, error) { return "b-only", nil })

	_, err := Get(b, tagShared) // cached in b; must not leak into the merge
	require.NoError(t, err)

	merged, err := a.Merge(b)
	require.NoError(t, err)

	assert.False(t, merged.Exists(tagShared), "merge copies registrations, not caches")

	v, err := Get(merged, tagShared)
	require.NoError(t, err)
	assert.Equal(t, "from-a", v)

	v, err = Get(merged, tagOnly)
	require.NoError(t, err)
	assert.Equal(t, "b-only", v)
}

// TestMerge_DestroyedSourceFails verifies merging rejects destroyed sources.
func TestMerge_DestroyedSourceFails(t *testing.T) {
	t.Parallel()

	a := New()
	b := New()
	require.NoError(t, b.Destroy())

	_, err := a.Merge(b)
	assert.ErrorIs(t, err, ErrDestroyed)

	_, err = b.Merge(a)
	assert.ErrorIs(t, err, ErrDestroyed)
}

//
// -----------------------------------------------------------------------------
// Tags
// -----------------------------------------------------------------------------

// TestTags_ListsRegistrations verifies the diagnostic listing.
func TestTags_ListsRegistrations(t *testing.T) {
	t.Parallel()

	tagA := NewTag[int]("a")
	tagB := NewTag[int]("b")

	c := New()
	Register(c, tagA, func(Resolver) (int, error) { return 1, nil })
	Register(c, tagB, func(Resolver) (int, error) { return 2, nil })

	ids := make([]string, 0, 2)
	for _, tag := range c.Tags() {
		ids = append(ids, tag.ID())
	}
	assert.ElementsMatch(t, []string{tagA.ID(), tagB.ID()}, ids)
}
