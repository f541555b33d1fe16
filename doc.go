// The [sessionmirror] package keeps a durable PostgreSQL replica of session,
// credential and api-key data whose source of truth lives in a fast local
// store. Replication is asynchronous and best-effort relative to the primary
// path: submissions never block the caller, a down or not-yet-connected
// secondary never fails a primary write, and every unit of work retries with
// exponential backoff until it lands or the process drains.
//
// # Runtime
//
// [Runtime] is the single object owning all replication state: the secondary
// store's connection pool, the pending-task registry, the partition cache,
// the concurrency gate and the draining flag. Construct one with [New], call
// [Runtime.Startup] once during process start, and [Runtime.Shutdown] once
// during process stop. Multiple isolated runtimes can coexist, which is how
// the tests run.
//
// # Submitting work
//
// The Replicate* and Delete* methods each capture an immutable snapshot of
// the primary-store row and schedule a background unit of work. Callers get
// no completion signal back; persistent secondary-store failure surfaces
// only through backlog warnings in the log and, at shutdown, through tasks
// discarded after the drain timeout.
//
// # Ordering
//
// No ordering is guaranteed across different records: a unit that fails and
// backs off may complete after one submitted later. Within one unit the
// internal steps run strictly in sequence, e.g. a log batch ensures its
// monthly partitions before the bulk insert.
package sessionmirror
