// Package service contains the business rules of Recipe Room.
//
// THE THREE LAYERS:
//
//	Handler (HTTP)       → parses requests, writes JSON
//	Service (this pkg)   → validates input, authorizes, runs mutations in a transaction
//	Repository (storage) → reads and writes rows, maps constraint errors
//
// Services depend on repository.Store, never on *sqlite.DB, so tests can
// run them against a throwaway in-memory database.
//
// AUTHORIZATION FIRST:
// Every mutation follows the same order inside Store.WithTx:
//  1. load what the decision needs (recipe owner, membership row)
//  2. decide (Authorizer, owner check), returning Forbidden on failure
//  3. write
//
// Because the decision and the write share one transaction, a failed gate
// or a failed write leaves nothing behind.
//
// IDENTITY:
// Mutations take the acting user id (the route guarantees authentication).
// Reads that change shape for a signed-in caller take a model.Viewer, which
// may be anonymous.
package service

import "strings"

// trimmed returns a trimmed copy of s, or nil when s is nil or blank.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
