// Package idmint allocates unique identifiers from a bounded range to paying
// requesters.
//
// An allocator draws identifiers either from a materialized pool, removing a
// random element per request, or lazily by hashing into the range and
// retrying on collision. Ownership is recorded in a ledger, payment beyond
// the price is returned as a refund and proceeds accrue for an operator to
// withdraw. State survives restarts through a memory, afs or SQLite store.
//
//	cfg, _ := idmint.LoadConfig(ctx, "idmint.yaml")
//	srv, _ := idmint.New(ctx, cfg, idmint.WithOperators("ops"))
//	defer srv.Close()
//	alloc := srv.Allocator()
//	_, _ = alloc.InitializeFull(policy.WithActor(ctx, "ops"))
//	result, _ := alloc.RequestAllocation(ctx, allocator.Request{Owner: "alice", Paid: cfg.Allocator.Price})
//
// Allocation entropy is only as unpredictable as the value supplied with the
// request; it spreads identifiers but does not defend against a requester
// who can predict it.
package idmint

// Version is reported in traces.
const Version = "0.1.0"
