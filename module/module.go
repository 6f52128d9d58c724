// Package module implements the named fragment generators that post content
// invokes with the [[name: args]] syntax.
package module

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/rs/zerolog"
)

// Module produces a fragment of HTML spliced verbatim into a page.
type Module interface {
	Output(ctx context.Context) (string, error)
}

// Factory constructs a Module from the raw argument string of an invocation.
// Splitting the arguments into fields is the module's own concern.
type Factory func(args string) (Module, error)

// Func adapts a plain function to the Module interface.
type Func func(ctx context.Context) (string, error)

// Output calls f.
func (f Func) Output(ctx context.Context) (string, error) { return f(ctx) }

// Render outcomes reported to OnRender.
const (
	OutcomeOK      = "ok"
	OutcomeUnknown = "unknown"
	OutcomeError   = "error"
)

var nameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// ValidName reports whether name can be used in an invocation.
func ValidName(name string) bool { return nameRe.MatchString(name) }

// Registry maps module names to factories. It is populated once at startup;
// Register must not be called concurrently with Render.
type Registry struct {
	factories map[string]Factory
	logger    zerolog.Logger
	// OnRender, if set, is called once per Render with the outcome.
	OnRender func(name, outcome string)
}

// NewRegistry returns an empty Registry logging to logger.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{factories: make(map[string]Factory), logger: logger}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry) Register(name string, f Factory) error {
	if !ValidName(name) {
		return fmt.Errorf("module: invalid name %q", name)
	}
	if f == nil {
		return fmt.Errorf("module: nil factory for %q", name)
	}
	r.factories[name] = f
	return nil
}

// Has reports whether a module is registered under name.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render constructs the module registered under name with args and returns
// its output. Unknown modules and failing modules render as the empty string.
func (r *Registry) Render(ctx context.Context, name, args string) string {
	if r == nil {
		return ""
	}
	f, ok := r.factories[name]
	if !ok {
		r.logger.Warn().Str("module", name).Msg("unknown module")
		r.report(name, OutcomeUnknown)
		return ""
	}
	out, err := run(ctx, f, args)
	if err != nil {
		r.logger.Error().Err(err).Str("module", name).Str("args", args).Msg("module failed")
		r.report(name, OutcomeError)
		return ""
	}
	r.report(name, OutcomeOK)
	return out
}

func (r *Registry) report(name, outcome string) {
	if r.OnRender != nil {
		r.OnRender(name, outcome)
	}
}

func run(ctx context.Context, f Factory, args string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("panic: %v", p)
		}
	}()
	m, err := f(args)
	if err != nil {
		return "", fmt.Errorf("construct: %w", err)
	}
	return m.Output(ctx)
}
