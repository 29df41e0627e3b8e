// Package progress tracks how far an allocator has materialized and consumed
// its universe, for reporting from long-running initialization loops.
package progress
