package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
)

// DatapointStore defines the interface for datapoint persistence.
// Datapoints are addressed by their natural key (person, type, timestamp).
type DatapointStore interface {
	// Create saves a new datapoint. Returns ErrReferentialIntegrity if the
	// person does not exist and ErrDatapointExists on a natural-key clash.
	Create(ctx context.Context, dp domain.Datapoint) error

	// Get retrieves a datapoint by natural key.
	// Returns ErrDatapointNotFound if absent.
	Get(ctx context.Context, key domain.DatapointKey) (domain.Datapoint, error)

	// Update replaces the record identified by key with dp; the replacement
	// may carry a new timestamp (an edit of the reading time). No partial
	// updates. Returns ErrDatapointNotFound if the key does not exist.
	Update(ctx context.Context, key domain.DatapointKey, dp domain.Datapoint) error

	// Delete removes a single datapoint by natural key.
	// Returns ErrDatapointNotFound if absent.
	Delete(ctx context.Context, key domain.DatapointKey) error

	// DeleteForPerson removes every datapoint belonging to the person.
	// Deleting zero rows is not an error.
	DeleteForPerson(ctx context.Context, personID uuid.UUID) error

	// List returns the person's datapoints within [from, to] ordered by
	// timestamp, their natural key. A non-empty t restricts to one type.
	List(ctx context.Context, personID uuid.UUID, t domain.DatapointType, from, to time.Time) ([]domain.Datapoint, error)

	// WithTx returns a DatapointStore bound to the given transaction.
	WithTx(tx *sql.Tx) DatapointStore
}
