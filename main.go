package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-inject/app"
	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/inject"
	"github.com/km-arc/go-inject/framework/webscope"
)

// ── Demo services ────────────────────────────────────────────────────────────

type DatabaseConnection struct {
	DSN string
}

func (db *DatabaseConnection) Close() error {
	log.Printf("closing database connection %s", db.DSN)
	return nil
}

type UserRepository struct {
	DB *DatabaseConnection
}

func (r *UserRepository) Find(id string) string {
	return fmt.Sprintf("user %s via %s", id, r.DB.DSN)
}

type CacheService struct {
	entries map[string]string
}

type UserService struct {
	Repo  *UserRepository
	Cache *CacheService
}

func (s *UserService) Show(id string) string {
	if hit, ok := s.Cache.entries[id]; ok {
		return hit
	}
	v := s.Repo.Find(id)
	s.Cache.entries[id] = v
	return v
}

// ── Tags ─────────────────────────────────────────────────────────────────────

var (
	TagDB    = inject.NewTag[*DatabaseConnection]("database-connection")
	TagRepo  = inject.NewTag[*UserRepository]("user-repository")
	TagCache = inject.NewTag[*CacheService]("cache-service")
	TagUsers = inject.NewTag[*UserService]("user-service")
)

// ── Layers ───────────────────────────────────────────────────────────────────

// infraLayer provides the database connection and the repository built on it.
func infraLayer() inject.Layer {
	db := inject.Service(TagDB, []inject.AnyTag{config.Tag},
		func(r inject.Resolver) (*DatabaseConnection, error) {
			cfg, err := inject.Get(r, config.Tag)
			if err != nil {
				return nil, err
			}
			dsn := fmt.Sprintf("%s://%s:%s/%s",
				cfg.DB.Driver, cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
			return &DatabaseConnection{DSN: dsn}, nil
		},
		inject.Finalize(func(db *DatabaseConnection) error { return db.Close() }))

	repo := inject.Service(TagRepo, []inject.AnyTag{TagDB},
		func(r inject.Resolver) (*UserRepository, error) {
			db, err := inject.Get(r, TagDB)
			if err != nil {
				return nil, err
			}
			return &UserRepository{DB: db}, nil
		})

	return inject.Merge(db, repo)
}

// serviceLayer provides the cache and the user service on top of the
// repository and cache.
func serviceLayer() inject.Layer {
	cache := inject.Service(TagCache, nil,
		func(inject.Resolver) (*CacheService, error) {
			return &CacheService{entries: make(map[string]string)}, nil
		})

	users := inject.Service(TagUsers, []inject.AnyTag{TagRepo, TagCache},
		func(r inject.Resolver) (*UserService, error) {
			repo, err := inject.Get(r, TagRepo)
			if err != nil {
				return nil, err
			}
			cache, err := inject.Get(r, TagCache)
			if err != nil {
				return nil, err
			}
			return &UserService{Repo: repo, Cache: cache}, nil
		})

	return inject.Merge(cache, users)
}

func main() {
	application, err := app.New(serviceLayer().To(infraLayer()))
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer application.Shutdown()

	r := webscope.NewRouter(application.Root())

	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		scope := webscope.MustFromContext(req.Context())
		users := inject.MustGet(scope, TagUsers)
		fmt.Fprintln(w, users.Show(chi.URLParam(req, "id")))
	})

	if err := application.Run(r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
