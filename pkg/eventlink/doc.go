/*
Package eventlink wires the cross-module event bus of a modular backend:
publish/subscribe over two channels, correlated request/response with
bounded waits, and compensating transactions for denormalized counters.

# Overview

Modules (post, user, interaction, comment) never call each other. They
publish domain events on the "domain-events" channel and compensation
events on the "compensation-events" channel. A module that needs another
module's data publishes a *Requested event carrying a fresh requestId,
registers it in a correlation store, and waits a bounded time for the
*Response with the same requestId. If none arrives it proceeds with a
default.

A Runtime assembles one node from config.Settings:

	settings, err := config.Load("eventlink.yaml", "EVENTLINK")
	if err != nil {
	    log.Fatal(err)
	}
	rt, err := eventlink.New(ctx, settings,
	    eventlink.WithLogger(logger),
	    eventlink.WithProviders(exchange.WithDirectory(directory)),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer rt.Close()

	if err := rt.Start(ctx); err != nil {
	    log.Fatal(err)
	}
	views := rt.Assembler().AssemblePosts(ctx, posts)

# Packages

  - event: envelope, event catalog, publisher, router, handler registry
  - transport: memory, Redis pub/sub and Kafka transports
  - correlation: pending request store and Await
  - counter: post counters with memory and SQLite stores
  - compensation: counter handlers, compensator, fault injection, ledger
  - exchange: responders and resolvers for the request/response contract
  - readmodel: fan-out assembly of post views
  - config, observability, errors, httpapi: ambient support

# Delivery Guarantees

Delivery is at most once and unordered across event types. A handler
failure is logged and never reaches the transport or sibling handlers.
There are no distributed transactions: a failed counter update is repaired
by a best-effort compensation event.
*/
package eventlink
