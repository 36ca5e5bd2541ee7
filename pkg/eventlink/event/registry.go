package event

import (
	"context"
	"fmt"
	"slices"
)

// Handler processes one event type.
type Handler interface {
	// EventType returns the catalog tag this handler consumes.
	EventType() string

	// Handle processes an event. Returned errors are logged by the router
	// and never reach the transport.
	Handle(ctx context.Context, evt DomainEvent) error
}

// TypedHandler adapts a function over a concrete variant into a Handler.
// T is the pointer type the catalog decodes tag into, e.g. *UserDataResponse.
func TypedHandler[T DomainEvent](tag string, fn func(ctx context.Context, evt T) error) Handler {
	return &typedHandler[T]{tag: tag, fn: fn}
}

type typedHandler[T DomainEvent] struct {
	tag string
	fn  func(ctx context.Context, evt T) error
}

func (h *typedHandler[T]) EventType() string { return h.tag }

func (h *typedHandler[T]) Handle(ctx context.Context, evt DomainEvent) error {
	typed, ok := evt.(T)
	if !ok {
		var zero T
		return fmt.Errorf("handler for %s expects %T, got %T", h.tag, zero, evt)
	}
	return h.fn(ctx, typed)
}

// Name identifies the handler in logs.
func (h *typedHandler[T]) Name() string {
	return "func(" + h.tag + ")"
}

// handlerName extracts a name for a handler (for logging/metrics).
func handlerName(h Handler) string {
	if n, ok := h.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

// RegistryBuilder collects handlers at process start.
type RegistryBuilder struct {
	handlers []Handler
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// Add appends handlers. Several handlers may share a tag.
func (b *RegistryBuilder) Add(handlers ...Handler) *RegistryBuilder {
	b.handlers = append(b.handlers, handlers...)
	return b
}

// Build indexes the handlers against DefaultCatalog.
func (b *RegistryBuilder) Build() (*HandlerRegistry, error) {
	return b.BuildFor(DefaultCatalog())
}

// BuildFor indexes the handlers against catalog. It fails on a nil handler,
// an empty tag, or a tag the catalog cannot decode.
func (b *RegistryBuilder) BuildFor(catalog *Catalog) (*HandlerRegistry, error) {
	reg := &HandlerRegistry{
		byType:  make(map[string][]Handler),
		catalog: catalog,
	}
	for _, h := range b.handlers {
		if h == nil {
			return nil, &RegistryError{Handler: "<nil>", Message: "handler is nil"}
		}
		tag := h.EventType()
		if tag == "" {
			return nil, &RegistryError{Handler: handlerName(h), Message: "handler declares no event type"}
		}
		if !catalog.Has(tag) {
			return nil, &RegistryError{Handler: handlerName(h), EventType: tag, Message: "event type not in catalog"}
		}
		reg.byType[tag] = append(reg.byType[tag], h)
		reg.count++
	}
	return reg, nil
}

// MustBuild is like Build but panics on error.
func (b *RegistryBuilder) MustBuild() *HandlerRegistry {
	reg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return reg
}

// HandlerRegistry maps tags to handlers. It is read-only after Build and
// safe for concurrent use without locking.
type HandlerRegistry struct {
	byType  map[string][]Handler
	catalog *Catalog
	count   int
}

// Handlers returns the handlers registered for tag.
func (r *HandlerRegistry) Handlers(tag string) []Handler {
	return slices.Clone(r.byType[tag])
}

// Types returns every tag with at least one handler, sorted.
func (r *HandlerRegistry) Types() []string {
	tags := make([]string, 0, len(r.byType))
	for tag := range r.byType {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Len returns the total number of registered handlers.
func (r *HandlerRegistry) Len() int {
	return r.count
}

// Catalog returns the catalog the registry was built against.
func (r *HandlerRegistry) Catalog() *Catalog {
	return r.catalog
}
