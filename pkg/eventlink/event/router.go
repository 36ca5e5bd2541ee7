package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/eventlink/pkg/eventlink/observability"
)

// Router turns inbound transport messages into handler calls.
//
// Every failure is contained: malformed envelopes, unknown tags, and undecodable
// payloads are logged and dropped, and a failing or panicking handler never
// stops its siblings.
type Router struct {
	registry *HandlerRegistry
	opts     options
}

// NewRouter creates a Router dispatching through registry.
func NewRouter(registry *HandlerRegistry, opts ...Option) *Router {
	return &Router{
		registry: registry,
		opts:     applyOptions(opts),
	}
}

// OnMessage is the transport callback. It maps channelName to a Channel and
// routes raw, logging and swallowing every error.
func (r *Router) OnMessage(ctx context.Context, channelName string, raw []byte) {
	ch, ok := ParseChannel(channelName)
	if !ok {
		observability.LogDrop(r.opts.logger, channelName, "unknown_channel", nil)
		r.opts.metrics.RecordDropped(ctx, channelName, "unknown_channel")
		return
	}

	if _, err := r.Route(ctx, ch, raw); err != nil {
		reason := dropReason(err)
		observability.LogDrop(r.opts.logger, channelName, reason, err)
		r.opts.metrics.RecordDropped(ctx, channelName, reason)
	}
}

// Route decodes raw and invokes every handler registered for its tag.
// delivered counts handlers that returned without error. The returned error
// describes why the message was dropped before reaching handlers; handler
// failures are reported through logs and the error hook instead.
func (r *Router) Route(ctx context.Context, ch Channel, raw []byte) (delivered int, err error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return 0, &DeserializationError{Channel: ch.String(), Message: "malformed envelope", Err: err}
	}

	ctx, span := r.opts.spans.StartDispatchSpan(ctx, ch.String(), env.EventType(), env.MessageID())
	defer func() {
		r.opts.spans.EndSpanWithError(span, err)
	}()

	tag := env.EventType()
	evt, ok := r.registry.Catalog().New(tag)
	if !ok {
		return 0, &UnknownEventTypeError{EventType: tag}
	}

	handlers := r.registry.Handlers(tag)
	if len(handlers) == 0 {
		return 0, &UnknownEventTypeError{EventType: tag, NoHandlers: true}
	}

	if err := json.Unmarshal(env.Payload(), evt); err != nil {
		return 0, &DeserializationError{Channel: ch.String(), EventType: tag, Message: "malformed payload", Err: err}
	}
	if v, ok := evt.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return 0, &DeserializationError{Channel: ch.String(), EventType: tag, Message: "invalid event", Err: err}
		}
	}
	if evt.EventType() != tag {
		return 0, &DeserializationError{
			Channel:   ch.String(),
			EventType: tag,
			Message:   fmt.Sprintf("payload declares %q", evt.EventType()),
		}
	}

	for _, h := range handlers {
		if herr := r.invoke(ctx, evt, h); herr != nil {
			name := handlerName(h)
			observability.LogDispatchError(r.opts.logger, tag, evt.EventID(), name, herr)
			r.opts.spans.AddSpanEvent(ctx, "handler.failed",
				attribute.String("handler", name),
				attribute.String("error", herr.Error()),
			)
			if r.opts.onError != nil {
				r.opts.onError(evt, name, herr)
			}
			continue
		}
		delivered++
	}

	r.opts.metrics.RecordDispatched(ctx, tag, len(handlers))
	return delivered, nil
}

// invoke runs one handler under the handler timeout, converting errors and
// panics into *HandlerExecutionError.
func (r *Router) invoke(ctx context.Context, evt DomainEvent, h Handler) (err error) {
	start := time.Now()
	name := handlerName(h)

	if r.opts.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.handlerTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = &HandlerExecutionError{
				EventID:   evt.EventID(),
				EventType: evt.EventType(),
				Handler:   name,
				Panicked:  true,
				Err:       fmt.Errorf("%v", rec),
			}
		}
		r.opts.metrics.RecordHandler(ctx, evt.EventType(), name, time.Since(start), err)
	}()

	if herr := h.Handle(ctx, evt); herr != nil {
		return &HandlerExecutionError{
			EventID:   evt.EventID(),
			EventType: evt.EventType(),
			Handler:   name,
			Err:       herr,
		}
	}
	return nil
}

func dropReason(err error) string {
	var unknown *UnknownEventTypeError
	var decode *DeserializationError
	switch {
	case errors.As(err, &unknown) && unknown.NoHandlers:
		return "no_handlers"
	case errors.As(err, &unknown):
		return "unknown_type"
	case errors.As(err, &decode):
		return "deserialization"
	default:
		return "error"
	}
}
