// Package correlation turns pub/sub traffic into bounded request/response
// exchanges.
//
// A requester registers a request id, publishes a *Requested event carrying
// it, and blocks in Await. The response handler calls Resolve with the same
// id. Exactly one of three outcomes reaches the waiter: the resolved value,
// the caller's default after the timeout, or the default after context
// cancellation. A response that arrives after the waiter gave up is
// discarded without error.
//
//	id := correlation.NewRequestID("user")
//	if err := store.Register(id, correlation.KindUser); err != nil { ... }
//	bus.Publish(ctx, requested, event.ChannelDomain)
//	users := correlation.Await(ctx, store, id, 2*time.Second, []event.UserData{})
package correlation
