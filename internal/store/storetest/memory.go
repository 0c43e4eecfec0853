// Package storetest provides an in-memory store implementation for tests
// that exercise services, tasks, and exchange flows without a database.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/biotrack-api/internal/domain"
	"github.com/phrazzld/biotrack-api/internal/store"
)

type personRow struct {
	id          uuid.UUID
	name        string
	dateOfBirth time.Time
	createdAt   time.Time
	updatedAt   time.Time
	configs     map[domain.DatapointType]domain.TrackingConfig
}

// Store is an in-memory implementation of the entity stores and the write
// transaction runner. It enforces the same referential and key constraints
// as the PostgreSQL layer but offers no rollback: a failing transaction
// function may leave earlier writes applied. Tests that need rollback
// semantics belong against the real database.
type Store struct {
	mu sync.Mutex
	// writeMu serializes RunInWriteTx callers, mirroring the single-writer
	// discipline of the database layer.
	writeMu sync.Mutex

	people     map[uuid.UUID]*personRow
	schedules  map[uuid.UUID]*domain.Schedule
	datapoints map[domain.DatapointKey]domain.Datapoint
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		people:     make(map[uuid.UUID]*personRow),
		schedules:  make(map[uuid.UUID]*domain.Schedule),
		datapoints: make(map[domain.DatapointKey]domain.Datapoint),
	}
}

var _ store.TxRunner = (*Store)(nil)

// Stores returns the store bundle, every entity store backed by this
// in-memory instance.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		People:     &personStore{s},
		Datapoints: &datapointStore{s},
		Schedules:  &scheduleStore{s},
	}
}

// RunInWriteTx implements store.TxRunner. Writers are serialized; the
// function runs against the same instance.
func (s *Store) RunInWriteTx(ctx context.Context, fn func(ctx context.Context, st store.Stores) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn(ctx, s.Stores())
}

func normalizeKey(key domain.DatapointKey) domain.DatapointKey {
	key.Taken = key.Taken.UTC()
	return key
}

// personStore implements store.PersonStore against the shared state.
type personStore struct{ s *Store }

var _ store.PersonStore = (*personStore)(nil)

func (p *personStore) WithTx(tx *sql.Tx) store.PersonStore { return p }

func (p *personStore) Create(ctx context.Context, person *domain.Person) error {
	if err := person.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, exists := p.s.people[person.ID]; exists {
		return fmt.Errorf("%w: person %s", store.ErrDuplicate, person.ID)
	}
	row := &personRow{
		id:          person.ID,
		name:        person.Name,
		dateOfBirth: person.DateOfBirth,
		createdAt:   person.CreatedAt,
		updatedAt:   person.UpdatedAt,
		configs:     make(map[domain.DatapointType]domain.TrackingConfig),
	}
	for _, cfg := range person.TrackingConfigs() {
		row.configs[cfg.Type] = cfg
	}
	p.s.people[person.ID] = row
	for _, sched := range person.Schedules() {
		p.s.schedules[sched.ID] = sched.Clone()
	}
	return nil
}

func (p *personStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Person, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.getPersonLocked(id)
}

func (s *Store) getPersonLocked(id uuid.UUID) (*domain.Person, error) {
	row, ok := s.people[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrPersonNotFound, id)
	}
	person := domain.RehydratePerson(row.id, row.name, row.dateOfBirth, row.createdAt, row.updatedAt)
	for _, cfg := range row.configs {
		if err := person.SetTrackingConfig(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}
	}
	for _, sched := range s.schedules {
		if sched.PersonID == id {
			if err := person.AttachSchedule(sched.Clone()); err != nil {
				return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
			}
		}
	}
	return person, nil
}

func (p *personStore) Update(ctx context.Context, person *domain.Person) error {
	if err := person.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.people[person.ID]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrPersonNotFound, person.ID)
	}
	row.name = person.Name
	row.dateOfBirth = person.DateOfBirth
	row.updatedAt = person.UpdatedAt
	row.configs = make(map[domain.DatapointType]domain.TrackingConfig)
	for _, cfg := range person.TrackingConfigs() {
		row.configs[cfg.Type] = cfg
	}
	return nil
}

func (p *personStore) Delete(ctx context.Context, id uuid.UUID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if _, ok := p.s.people[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrPersonNotFound, id)
	}
	delete(p.s.people, id)
	for sid, sched := range p.s.schedules {
		if sched.PersonID == id {
			delete(p.s.schedules, sid)
		}
	}
	for key := range p.s.datapoints {
		if key.PersonID == id {
			delete(p.s.datapoints, key)
		}
	}
	return nil
}

func (p *personStore) List(ctx context.Context) ([]*domain.Person, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(p.s.people))
	for id := range p.s.people {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := p.s.people[ids[i]], p.s.people[ids[j]]
		if a.name == b.name {
			return a.id.String() < b.id.String()
		}
		return a.name < b.name
	})
	people := make([]*domain.Person, 0, len(ids))
	for _, id := range ids {
		person, err := p.s.getPersonLocked(id)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	return people, nil
}

func (p *personStore) SaveTrackingConfig(ctx context.Context, cfg domain.TrackingConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.people[cfg.PersonID]
	if !ok {
		return fmt.Errorf("%w: person %s does not exist", store.ErrReferentialIntegrity, cfg.PersonID)
	}
	if _, exists := row.configs[cfg.Type]; exists {
		return fmt.Errorf("%w: person %s type %s", store.ErrTrackingConfigExists, cfg.PersonID, cfg.Type)
	}
	row.configs[cfg.Type] = cfg
	return nil
}

func (p *personStore) DeleteTrackingConfig(ctx context.Context, personID uuid.UUID, t domain.DatapointType) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.people[personID]
	if !ok {
		return fmt.Errorf("%w: tracking config not found", store.ErrNotFound)
	}
	if _, exists := row.configs[t]; !exists {
		return fmt.Errorf("%w: tracking config not found", store.ErrNotFound)
	}
	delete(row.configs, t)
	return nil
}

func (p *personStore) ListTrackingConfigs(ctx context.Context, personID uuid.UUID) ([]domain.TrackingConfig, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	row, ok := p.s.people[personID]
	if !ok {
		return nil, nil
	}
	var configs []domain.TrackingConfig
	for _, t := range domain.DatapointTypes {
		if cfg, exists := row.configs[t]; exists {
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}

// datapointStore implements store.DatapointStore against the shared state.
type datapointStore struct{ s *Store }

var _ store.DatapointStore = (*datapointStore)(nil)

func (d *datapointStore) WithTx(tx *sql.Tx) store.DatapointStore { return d }

func (d *datapointStore) Create(ctx context.Context, dp domain.Datapoint) error {
	if err := dp.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.s.insertDatapointLocked(dp)
}

func (s *Store) insertDatapointLocked(dp domain.Datapoint) error {
	if _, ok := s.people[dp.PersonID]; !ok {
		return fmt.Errorf("%w: person %s does not exist", store.ErrReferentialIntegrity, dp.PersonID)
	}
	key := normalizeKey(dp.Key())
	if _, exists := s.datapoints[key]; exists {
		return fmt.Errorf("%w: person %s type %s at %s",
			store.ErrDatapointExists, dp.PersonID, dp.Type, dp.Taken.UTC().Format(time.RFC3339))
	}
	s.datapoints[key] = dp
	return nil
}

func (d *datapointStore) Get(ctx context.Context, key domain.DatapointKey) (domain.Datapoint, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	dp, ok := d.s.datapoints[normalizeKey(key)]
	if !ok {
		return domain.Datapoint{}, fmt.Errorf("%w: person %s type %s at %s",
			store.ErrDatapointNotFound, key.PersonID, key.Type, key.Taken.UTC().Format(time.RFC3339))
	}
	return dp, nil
}

func (d *datapointStore) Update(ctx context.Context, key domain.DatapointKey, dp domain.Datapoint) error {
	if err := dp.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	old := normalizeKey(key)
	if _, ok := d.s.datapoints[old]; !ok {
		return fmt.Errorf("%w: person %s type %s at %s",
			store.ErrDatapointNotFound, key.PersonID, key.Type, key.Taken.UTC().Format(time.RFC3339))
	}
	delete(d.s.datapoints, old)
	return d.s.insertDatapointLocked(dp)
}

func (d *datapointStore) Delete(ctx context.Context, key domain.DatapointKey) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	k := normalizeKey(key)
	if _, ok := d.s.datapoints[k]; !ok {
		return fmt.Errorf("%w: person %s type %s at %s",
			store.ErrDatapointNotFound, key.PersonID, key.Type, key.Taken.UTC().Format(time.RFC3339))
	}
	delete(d.s.datapoints, k)
	return nil
}

func (d *datapointStore) DeleteForPerson(ctx context.Context, personID uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for key := range d.s.datapoints {
		if key.PersonID == personID {
			delete(d.s.datapoints, key)
		}
	}
	return nil
}

func (d *datapointStore) List(ctx context.Context, personID uuid.UUID, t domain.DatapointType, from, to time.Time) ([]domain.Datapoint, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var out []domain.Datapoint
	for key, dp := range d.s.datapoints {
		if key.PersonID != personID {
			continue
		}
		if t != "" && key.Type != t {
			continue
		}
		if key.Taken.Before(from) || key.Taken.After(to) {
			continue
		}
		out = append(out, dp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Taken.Equal(out[j].Taken) {
			return out[i].Type < out[j].Type
		}
		return out[i].Taken.Before(out[j].Taken)
	})
	return out, nil
}

// scheduleStore implements store.ScheduleStore against the shared state.
type scheduleStore struct{ s *Store }

var _ store.ScheduleStore = (*scheduleStore)(nil)

func (sc *scheduleStore) WithTx(tx *sql.Tx) store.ScheduleStore { return sc }

func (sc *scheduleStore) Create(ctx context.Context, sched *domain.Schedule) error {
	if err := sched.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	if _, ok := sc.s.people[sched.PersonID]; !ok {
		return fmt.Errorf("%w: person %s does not exist", store.ErrReferentialIntegrity, sched.PersonID)
	}
	if _, exists := sc.s.schedules[sched.ID]; exists {
		return fmt.Errorf("%w: schedule %s", store.ErrDuplicate, sched.ID)
	}
	sc.s.schedules[sched.ID] = sched.Clone()
	return nil
}

func (sc *scheduleStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	sched, ok := sc.s.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrScheduleNotFound, id)
	}
	return sched.Clone(), nil
}

func (sc *scheduleStore) Update(ctx context.Context, sched *domain.Schedule) error {
	if err := sched.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	current, ok := sc.s.schedules[sched.ID]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrScheduleNotFound, sched.ID)
	}
	// The last-triggered field only advances through UpdateLastTriggered.
	replacement := sched.Clone()
	replacement.LastTriggered = current.LastTriggered
	sc.s.schedules[sched.ID] = replacement
	return nil
}

func (sc *scheduleStore) UpdateLastTriggered(ctx context.Context, id uuid.UUID, firedAt time.Time) error {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	sched, ok := sc.s.schedules[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrScheduleNotFound, id)
	}
	if sched.LastTriggered != nil {
		if sched.LastTriggered.Equal(firedAt) {
			return nil
		}
		if firedAt.Before(*sched.LastTriggered) {
			return fmt.Errorf("%w: schedule %s already triggered at %s",
				domain.ErrStaleTrigger, id, sched.LastTriggered.UTC().Format(time.RFC3339))
		}
	}
	lt := firedAt.UTC()
	sched.LastTriggered = &lt
	sched.UpdatedAt = time.Now().UTC()
	return nil
}

func (sc *scheduleStore) Delete(ctx context.Context, id uuid.UUID) error {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	if _, ok := sc.s.schedules[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrScheduleNotFound, id)
	}
	delete(sc.s.schedules, id)
	return nil
}

func (sc *scheduleStore) ListForPerson(ctx context.Context, personID uuid.UUID) ([]*domain.Schedule, error) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	var out []*domain.Schedule
	for _, sched := range sc.s.schedules {
		if sched.PersonID == personID {
			out = append(out, sched.Clone())
		}
	}
	sortSchedules(out)
	return out, nil
}

func (sc *scheduleStore) ListActive(ctx context.Context, asOf time.Time) ([]*domain.Schedule, error) {
	sc.s.mu.Lock()
	defer sc.s.mu.Unlock()
	cutoff := domain.DateOf(asOf)
	var out []*domain.Schedule
	for _, sched := range sc.s.schedules {
		if sched.Suspended {
			continue
		}
		if !sched.EndsOn.IsZero() && sched.EndsOn.Before(cutoff) {
			continue
		}
		out = append(out, sched.Clone())
	}
	sortSchedules(out)
	return out, nil
}

func sortSchedules(schedules []*domain.Schedule) {
	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].CreatedAt.Equal(schedules[j].CreatedAt) {
			return schedules[i].ID.String() < schedules[j].ID.String()
		}
		return schedules[i].CreatedAt.Before(schedules[j].CreatedAt)
	})
}
