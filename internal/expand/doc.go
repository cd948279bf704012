// Package expand implements the template store that build contexts are
// configured through.
//
// A [Store] holds two namespaces of raw templates: build-local variables and
// environment entries destined for child processes. Templates reference other
// values with {{ name }} placeholders. Resolution is lazy: nothing is expanded
// at write time, and every [Store.Expand] call resolves against the current
// state without caching.
//
// # Self-extension
//
// A template that references its own name is flattened when written:
//
//	s.SetEnvironment("CFLAGS", "-O3")
//	s.SetEnvironment("CFLAGS", "{{ CFLAGS }} -DFOO")
//	s.Raw("CFLAGS") // "-O3 -DFOO"
//
// The right-hand side is expanded against the state before the write, so the
// stored value never contains its own placeholder and can be extended again.
//
// # Lookup
//
// Placeholders resolve against environment entries, then variables, then
// context scalars, then the inherited process environment. Names found nowhere
// are an error ([ErrUnresolvedReference]); they never expand to an empty
// string. A name reached again while it is being resolved is reported as
// [ErrCyclicReference] with the full chain.
package expand
