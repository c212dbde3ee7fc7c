// Package event provides the kernel's in-process publish/subscribe bus.
//
// Cells publish named events with a payload mapping; other cells (and the
// router, for event-mode messages) receive callbacks. Delivery is
// synchronous and ordered: Publish runs every handler on the caller's
// goroutine in subscription order, and a handler's failure is isolated —
// recorded, never re-raised, never blocking the remaining handlers.
//
// There is no delivery guarantee across restarts, no persistence of
// events themselves, and no back-pressure. Failed handler invocations can
// optionally be captured in a dead letter Store (in-memory or SQLite) for
// inspection and manual replay.
package event
