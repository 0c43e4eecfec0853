package store

import "context"

// Stores bundles the entity stores, all bound to the same database or
// transaction.
type Stores struct {
	People     PersonStore
	Datapoints DatapointStore
	Schedules  ScheduleStore
}

// TxRunner executes a function against transaction-bound stores under the
// single-writer discipline: implementations serialize writers so that two
// concurrent firings of the same schedule cannot both pass the stale-trigger
// check against the same prior state.
type TxRunner interface {
	RunInWriteTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
