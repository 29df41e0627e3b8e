// Package idgen generates opaque identifiers for allocation records, events
// and queue messages. Callers treat the values as opaque strings.
package idgen
