// Package kvstore defines the key-value persistence collaborator used by the
// named-entity managers, plus two implementations: an in-memory store for
// tests and embedded use, and a NATS JetStream KV backed store for durable
// deployments.
//
// # Contract
//
// The Store interface is deliberately minimal: Read, Write, Delete on opaque
// byte values. Ordinary not-found is reported with ErrKeyNotFound (a status,
// not a failure); genuine backend trouble is wrapped as a transient error so
// managers can retry initialization later. No atomicity is assumed across
// keys: managers order their writes so a crash between an entity-record write
// and an index write leaves the store re-scannable.
//
// # Key Conventions
//
// Managers persist under these keys:
//
//	"nodes"            -> JSON array of all asset-node IDs
//	"nodes:{id}"       -> one node record
//	"{scope}:tags"     -> JSON array of tag IDs for one adapter scope
//	"{scope}:tags:{id}"-> one tag record
//
// Scoped() wraps a Store with a key prefix so multiple adapters can share one
// backing bucket with independent namespaces.
//
// # NATS Mapping
//
// JetStream KV keys cannot contain ':', so the NATS implementation maps ':'
// to '.' transparently on the way in and out. Callers always use the colon
// convention above.
package kvstore
