// Package event provides domain event primitives: schema-validated
// immutable event records, factories for declaring event shapes, and an
// in-process bus for distributing events to handlers.
//
// The package is built around four pieces:
//   - Factory declares an event type from a name and a Schema, and
//     constructs validated Event records
//   - Bus routes published events to registered handlers, with one-shot
//     subscriptions and identity-based unsubscription
//   - a pending queue on the Bus buffers events for a batched publish,
//     typically flushed after a persistence operation commits
//   - Adapter is the seam for swapping in-memory dispatch for a real
//     transport (see ChannelAdapter here and the redisadapter package)
//
// A Bus is an explicit value constructed by the application and passed to
// producers and consumers. There is no package-level default bus; tests
// isolate state with Bus.Reset or by constructing a fresh Bus.
//
// Error handling splits in two: configuration mistakes (missing factory
// name or schema, nil handler, nil adapter) fail synchronously at the
// call site, while dispatch failures (a handler returning an error, an
// adapter failing to publish) are returned from Publish and PublishAll
// for the caller to handle. Nothing in this package is fatal.
package event
