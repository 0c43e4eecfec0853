// Package postgres implements the store interfaces on PostgreSQL via the
// pgx stdlib driver. Writes are serialized through a process-level writer
// mutex plus per-operation transactions: the store is a single shared
// mutable resource with a single-writer discipline. Reads run concurrently
// and observe entities atomically.
package postgres
