// Package store defines the persistence contracts for the biometrics
// tracker, independent of the storage engine. Implementations live under
// internal/platform; they take and return the domain's value objects
// verbatim, with no partial updates: an update replaces the full record
// identified by its primary key. The single exception is the schedule
// store's UpdateLastTriggered, a deliberately narrower operation that keeps
// the last-triggered field monotonic.
package store
