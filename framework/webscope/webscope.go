// Package webscope ties the scope hierarchy to the HTTP request pipeline:
// one child scope per request, created before the handler runs and destroyed
// on a guaranteed path when the request ends, success or failure.
package webscope

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-inject/framework/inject"
)

// ScopeName is the label given to per-request scopes.
const ScopeName = "request"

type ctxKey struct{}

// Middleware creates a child of root per request, stores it in the request
// context, and destroys it after the handler returns. Destruction runs on the
// deferred path, so a panicking handler still releases its scope.
func Middleware(root *inject.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqScope, err := root.Child(ScopeName)
			if err != nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}
			defer func() {
				if err := reqScope.Destroy(); err != nil {
					log.Printf("webscope: request scope teardown: %v", err)
				}
			}()

			ctx := context.WithValue(r.Context(), ctxKey{}, reqScope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the request scope stored by Middleware.
func FromContext(ctx context.Context) (*inject.Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(*inject.Scope)
	return s, ok
}

// MustFromContext is FromContext panicking when no scope is present — i.e.
// the handler is mounted outside Middleware, a wiring error.
func MustFromContext(ctx context.Context) *inject.Scope {
	s, ok := FromContext(ctx)
	if !ok {
		panic("webscope: no request scope in context; is the handler mounted behind Middleware?")
	}
	return s
}

// NewRouter builds a chi router with the usual recovery middleware and the
// request-scope middleware already mounted.
//
//	r := webscope.NewRouter(root)
//	r.Get("/users/{id}", showUser)
func NewRouter(root *inject.Scope) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Middleware(root))
	return r
}
