// Package resolver defines the contract between the resolution engine and
// the sources that supply raw environment values.
//
// A Resolver is any named source of flat string key/value pairs: the process
// environment, a dotenv or JSON/YAML file, an HTTP endpoint, a cloud secret
// store, a SQL table. The merge engine treats every source uniformly through
// this interface; precedence between sources is decided by list order, never
// by the source itself.
//
// # Implementing a Resolver
//
//	type fileSource struct{ path string }
//
//	func (s *fileSource) Name() string { return "json_file:" + s.path }
//
//	func (s *fileSource) Load(ctx context.Context) (map[string]string, error) {
//	    // read and flatten the file
//	}
//
//	func (s *fileSource) Metadata() map[string]interface{} { return nil }
//
// Implementations must be safe for concurrent use: under last-wins priority
// all resolvers' Load calls are in flight at once.
//
// # Rules for implementations
//
//   - Name must be stable for the life of the resolver. It is the key used
//     for provenance records, policy matching, and audit events.
//   - Keys whose value is unknown or unset must be omitted from the returned
//     map, never included with an empty placeholder the source invented.
//     An explicitly empty value ("KEY=") is returned as an empty string.
//   - Load must honor context cancellation. The engine applies no timeout of
//     its own; a source that can hang owns its own deadline.
//   - Secret values must never be logged by the source.
package resolver

import "context"

// Resolver is a named source of raw string key/value pairs.
type Resolver interface {
	// Name returns the source's identifier, e.g. "process_env",
	// "dotenv:.env.local", "aws_secrets_manager".
	Name() string

	// Load fetches the source's key/value pairs.
	Load(ctx context.Context) (map[string]string, error)

	// Metadata exposes source attributes consulted by the engine. May return
	// nil. A "cached" key set to true marks the returned values as served
	// from a cache.
	Metadata() map[string]interface{}
}

// SyncResolver is implemented by sources that can load without suspension,
// such as the process environment and local files. The synchronous resolve
// path only consults sources implementing this interface.
type SyncResolver interface {
	Resolver

	// LoadSync has identical semantics to Load but never blocks on I/O that
	// requires an event boundary.
	LoadSync() (map[string]string, error)
}

// SyncCapable narrows a resolver to its synchronous capability. This is the
// one sanctioned capability check; callers must not probe for methods
// themselves.
func SyncCapable(r Resolver) (SyncResolver, bool) {
	s, ok := r.(SyncResolver)
	return s, ok
}

// Cached reports whether the resolver's metadata marks its values as served
// from a cache.
func Cached(r Resolver) bool {
	meta := r.Metadata()
	if meta == nil {
		return false
	}
	cached, _ := meta["cached"].(bool)
	return cached
}
