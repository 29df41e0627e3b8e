// Package model holds the allocator's domain types: the identifier universe,
// money amounts, allocation records and the persisted state snapshot.
//
// The types are plain data; behaviour lives in the service packages:
//
//   - service/ledger    – ownership of allocated identifiers
//   - service/pool      – shrinking pool of unallocated identifiers
//   - service/batch     – incremental pool materialization
//   - service/lazy      – hash-and-retry allocation without a pool
//   - service/allocator – request facade tying everything together
package model
