// Package compensation keeps denormalized post counters consistent when a
// cross-module side-effect fails.
//
// A CounterHandler applies the counter mutation for a primary event
// (CommentCreated, CommentDeleted, PostLiked, PostUnliked). When the
// mutation fails it does not report the error to the router. Instead, if
// compensation is enabled, it publishes the matching compensation event on
// the compensation channel. A Compensator consumes those events and applies
// the inverse mutation. Compensations are best effort: a failed compensation
// is logged and recorded in the Ledger, never retried and never compensated.
//
// Basic usage:
//
//	handlers := compensation.NewCounterHandlers(store, publisher, cfg,
//		compensation.WithLedger(ledger))
//	compensator := compensation.NewCompensator(store, compensation.WithLedger(ledger))
//	registry := event.NewRegistryBuilder().
//		Add(handlers...).
//		Add(compensator.Handlers()...).
//		MustBuild()
package compensation
