// Package subscription implements the generic push-subscription multiplexer:
// one background pump per manager reads from a single upstream source and
// fans values out to a dynamic set of per-subscriber queues.
//
// A Manager is parameterized by a key type (tag ID, topic) and a value type
// (snapshot value, event message, health status). The upstream source is
// either a polling function invoked at a fixed interval against the keys
// that currently have subscribers, or a push feed driven by the adapter's
// own domain logic through Publish.
//
// Fan-out runs under a read lock and delivers with a non-blocking enqueue,
// so a subscriber that stops draining its queue loses its own oldest values
// but never delays delivery to anyone else. A pump-level upstream failure is
// terminal: every live queue receives the error and the manager disposes
// itself. Individual subscriber problems never reach the pump.
package subscription
