// Package allocator is the single entry point for allocating identifiers.
//
// A Service runs every operation in one critical section: payment check,
// strategy draw, ledger assignment and persistence either all take effect or
// none do. Administrative operations require the caller, carried in the
// context through policy.WithActor, to be a configured operator.
package allocator
