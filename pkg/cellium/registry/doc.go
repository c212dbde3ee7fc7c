// Package registry provides the kernel's name lookup tables.
//
// Registry is a generic thread-safe map used for factory tables (cell
// constructors, worker tasks). Cells is the cell instance registry with
// the kernel's load semantics: unique names, write-once at startup,
// read-many at dispatch, reverse-order teardown.
//
// # Factory Pattern
//
// The generic registry works well where constructors are registered by
// identifier and resolved at load time:
//
//	factories := registry.New[string, inject.Factory]()
//	factories.Register("greeter", cells.NewGreeter)
//
//	factory, ok := factories.Get("greeter")
//	if ok {
//	    c, err := factory(injector)
//	    // use c...
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use. Range iterates over a
// snapshot, so mutating during iteration does not affect the iteration
// itself. Cells additionally supports Seal, after which registration
// fails and reads are effectively lock-free contention-wise.
package registry
