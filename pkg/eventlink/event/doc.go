// Package event provides the domain event model and the pub/sub plumbing
// that carries it between modules.
//
// The package covers:
//   - DomainEvent and Meta, the common attributes every event carries
//   - Catalog, the shared table of type tags and the variants they decode to
//   - Envelope, the immutable wire record a transport moves
//   - Publisher and Batch, the two EventBus implementations
//   - Router and HandlerRegistry, which turn inbound bytes into handler calls
//
// Two logical channels exist: domain events and compensation events.
// Publishing is fire-and-forget. Inbound failures are contained in the
// router: malformed envelopes, unknown tags, and failing handlers are logged
// and dropped, and never reach the transport.
//
// Example:
//
//	reg, err := event.NewRegistryBuilder().
//		Add(event.TypedHandler[*event.UserDataResponse](event.TypeUserDataResponse, onUsers)).
//		Build()
//	router := event.NewRouter(reg, event.WithLogger(logger))
//	transport.Subscribe(ctx, router.OnMessage)
package event
