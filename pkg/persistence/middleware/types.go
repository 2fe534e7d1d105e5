// Package middleware wraps a SubmissionStore with cross-cutting persistence
// behavior: masking of sensitive answers and envelope encryption at rest.
package middleware

import "github.com/espalier-io/espalier/pkg/ports"

// Middleware allows wrapping a SubmissionStore to add behavior.
type Middleware func(ports.SubmissionStore) ports.SubmissionStore

// Chain composes middlewares so the first listed is the outermost.
func Chain(store ports.SubmissionStore, mws ...Middleware) ports.SubmissionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
