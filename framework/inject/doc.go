// Package inject provides a tag-based dependency injection runtime: a
// container mapping typed tags to lazily created instances, scopes arranging
// containers in a parent/child hierarchy, and a layer algebra for composing
// independent sets of registrations before they reach a container.
//
// # Tags
//
// A tag is a unique token identifying a dependency slot. The type parameter
// ties the slot to its value type at compile time; at runtime identity is
// token equality, so two tags with the same label are still distinct slots.
//
//	var (
//	    TagConfig = inject.NewTag[*Config]("config")
//	    TagDB     = inject.NewTag[*sql.DB]("db")
//	)
//
// # Containers
//
// A container maps tags to factories and creates instances on first Get.
// A factory receives a Resolver and declares its dependency edges simply by
// resolving them:
//
//	c := inject.New()
//	inject.Register(c, TagDB, func(r inject.Resolver) (*sql.DB, error) {
//	    cfg, err := inject.Get(r, TagConfig)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return sql.Open(cfg.DB.Driver, cfg.DB.DSN())
//	}, inject.Finalize(func(db *sql.DB) error { return db.Close() }))
//
// Creation is single-flight: the factory for a tag runs at most once per
// container, and every concurrent or later Get observes the same instance or
// the same failure. Cycles among factories are detected per resolution path
// and reported with the full chain of tags involved.
//
// Destroy runs all finalizers concurrently, attempts every one, and reports
// all failures together. It is idempotent and terminal.
//
// # Scopes
//
// Scopes split lifetimes: register process-wide services in a root scope and
// create a child per unit of work. Lookup is local-first with delegation to
// the parent, so an instance lives in the scope that declared it and is
// shared by every descendant. Destroying a scope tears down its live
// children first, then its own instances.
//
//	root := inject.NewScope("runtime", c)
//	req, _ := root.Child("request")
//	defer req.Destroy()
//
// # Layers
//
// A layer describes registrations together with explicit manifests of what it
// requires and what it provides. Merge combines independent layers side by
// side; To sequences one layer on top of another, satisfying its requirements
// from the lower layer's provisions. A fully composed layer requires nothing
// and can be built into a fresh container:
//
//	infra    := inject.Merge(dbLayer, cacheLayer)
//	app      := serviceLayer.To(repoLayer.To(infra))
//	c, err   := app.Build() // fails if requirements remain
package inject
