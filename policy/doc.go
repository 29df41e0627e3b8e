// Package policy decides who may request identifiers and who may run
// administrative allocator operations.
package policy
