package inject

// Service builds a Layer from a single service's declared wiring: the tag it
// provides, the tags its factory depends on, and the build function itself.
// Options (typically Finalize) carry over to the registration.
//
//	var TagRepo = inject.NewTag[*UserRepo]("user-repo")
//
//	repoLayer := inject.Service(TagRepo, []inject.AnyTag{TagDB},
//	    func(r inject.Resolver) (*UserRepo, error) {
//	        db, err := inject.Get(r, TagDB)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return NewUserRepo(db), nil
//	    })
func Service[T any](tag Tag[T], deps []AnyTag, build func(r Resolver) (T, error), opts ...RegisterOption) Layer {
	return NewLayer(deps, []AnyTag{tag}, func(c *Container) (*Container, error) {
		Register(c, tag, build, opts...)
		return c, nil
	})
}
