// Package tracing wraps OpenTelemetry so allocator operations can open and
// close spans without importing the SDK directly. Without Init every span is
// a no-op.
package tracing
