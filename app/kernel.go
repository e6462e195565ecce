package app

import (
	"fmt"
	"net/http"

	"github.com/km-arc/go-inject/framework/config"
	"github.com/km-arc/go-inject/framework/inject"
)

// Application is the top-level kernel: it materializes a fully composed layer
// into the runtime scope and owns its teardown.
type Application struct {
	root *inject.Scope
	cfg  *config.Config
}

// New stacks layer on top of the configuration layer, builds the result into
// a fresh container, and wraps it as the "runtime" root scope. The combined
// layer must have no remaining requirements.
//
//	application, err := app.New(services.To(infra))
//	defer application.Shutdown()
func New(layer inject.Layer, envFiles ...string) (*Application, error) {
	full := layer.To(config.Layer(envFiles...))
	c, err := full.Build()
	if err != nil {
		return nil, err
	}

	root := inject.NewScope("runtime", c)
	cfg, err := inject.Get(root, config.Tag)
	if err != nil {
		return nil, err
	}
	return &Application{root: root, cfg: cfg}, nil
}

// Root returns the runtime scope. Request pipelines derive children from it.
func (a *Application) Root() *inject.Scope { return a.root }

// Config returns the resolved application configuration.
func (a *Application) Config() *config.Config { return a.cfg }

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.cfg.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.cfg.App.Debug }

// Run serves handler on APP_PORT until the listener fails.
func (a *Application) Run(handler http.Handler) error {
	addr := ":" + a.cfg.App.Port
	fmt.Printf("%s running on http://localhost%s  [%s]\n",
		a.cfg.App.Name, addr, a.cfg.App.Env)
	return http.ListenAndServe(addr, handler)
}

// Shutdown destroys the runtime scope: live request scopes first, then the
// runtime services. Safe to call more than once.
func (a *Application) Shutdown() error {
	return a.root.Destroy()
}
