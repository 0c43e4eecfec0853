package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
)

// PersonStore defines the interface for person and tracking-configuration
// persistence.
type PersonStore interface {
	// Create saves a new person together with its tracking configurations.
	// Returns ErrDuplicate if the ID is already taken and validation errors
	// from the domain Person if data is invalid.
	Create(ctx context.Context, person *domain.Person) error

	// GetByID retrieves a person by ID with tracking configurations and
	// schedules loaded. Returns ErrPersonNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error)

	// Update replaces the person's full record, including its tracking
	// configurations. Returns ErrPersonNotFound if absent.
	Update(ctx context.Context, person *domain.Person) error

	// Delete removes a person and cascades to its tracking configurations,
	// schedules, and datapoints. The datapoint cascade is explicit, not
	// implicit garbage collection. Returns ErrPersonNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns all people ordered by name, their natural key.
	List(ctx context.Context) ([]*domain.Person, error)

	// SaveTrackingConfig inserts a single tracking configuration.
	// Returns ErrReferentialIntegrity if the person does not exist and
	// ErrTrackingConfigExists for a second configuration on the same
	// (person, type) pair.
	SaveTrackingConfig(ctx context.Context, cfg domain.TrackingConfig) error

	// DeleteTrackingConfig removes the configuration for (person, type).
	// Returns ErrNotFound if no such configuration exists.
	DeleteTrackingConfig(ctx context.Context, personID uuid.UUID, t domain.DatapointType) error

	// ListTrackingConfigs returns the person's configurations in type order.
	ListTrackingConfigs(ctx context.Context, personID uuid.UUID) ([]domain.TrackingConfig, error)

	// WithTx returns a PersonStore bound to the given transaction.
	WithTx(tx *sql.Tx) PersonStore
}
