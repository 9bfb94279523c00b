// Package docstore is a path-addressed document tree.
//
// Every node is addressed by a slash-delimited, case-sensitive path such as
// "users/u1/appointments/a9". A node carries its own flat fields; its children
// are separate nodes one segment deeper. Collections are simply the set of
// children under a path.
//
// Two backends are provided: MemoryStore for tests and single-process runs and
// MongoStore, which keeps every node in one collection keyed by its full path
// and serves watches from change streams.
package docstore
