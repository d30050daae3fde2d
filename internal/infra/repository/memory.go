package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

var ErrDuplicateArchive = errors.New("archive row already exists for reservation")

type memState struct {
	tables       map[uint]models.Table
	reservations map[uint]models.Reservation
	archive      []models.ReservationArchive

	nextTableID       uint
	nextReservationID uint
	nextArchiveID     uint
}

func (s *memState) clone() *memState {
	c := &memState{
		tables:            make(map[uint]models.Table, len(s.tables)),
		reservations:      make(map[uint]models.Reservation, len(s.reservations)),
		archive:           append([]models.ReservationArchive(nil), s.archive...),
		nextTableID:       s.nextTableID,
		nextReservationID: s.nextReservationID,
		nextArchiveID:     s.nextArchiveID,
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	return c
}

// MemoryRepository keeps everything in process. A transaction works on a
// private copy of the state under one mutex and swaps it in on commit, so
// transactions are fully serialized and a failed one leaves no trace.
type MemoryRepository struct {
	mu    *sync.Mutex
	state **memState
	tx    *memState
}

func NewMemoryRepository() *MemoryRepository {
	st := &memState{
		tables:       map[uint]models.Table{},
		reservations: map[uint]models.Reservation{},
	}
	return &MemoryRepository{mu: &sync.Mutex{}, state: &st}
}

func (m *MemoryRepository) begin() (*memState, func()) {
	if m.tx != nil {
		return m.tx, func() {}
	}
	m.mu.Lock()
	return *m.state, m.mu.Unlock
}

func (m *MemoryRepository) Transaction(
	ctx context.Context,
	fn func(tx domain.Repository) error,
) error {

	if m.tx != nil {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := (*m.state).clone()
	if err := fn(&MemoryRepository{mu: m.mu, state: m.state, tx: work}); err != nil {
		return err
	}
	*m.state = work
	return nil
}

// --------------------------------------------------
// Tables
// --------------------------------------------------

func (m *MemoryRepository) CreateTable(_ context.Context, t *models.Table) error {
	st, done := m.begin()
	defer done()

	st.nextTableID++
	t.ID = st.nextTableID
	if t.Status == "" {
		t.Status = models.TableAvailable
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	st.tables[t.ID] = *t
	return nil
}

func (m *MemoryRepository) GetTable(_ context.Context, id uint) (*models.Table, error) {
	st, done := m.begin()
	defer done()

	t, ok := st.tables[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (m *MemoryRepository) LockTable(ctx context.Context, id uint) (*models.Table, error) {
	return m.GetTable(ctx, id)
}

func (m *MemoryRepository) ListTables(_ context.Context) ([]models.Table, error) {
	st, done := m.begin()
	defer done()

	out := make([]models.Table, 0, len(st.tables))
	for _, t := range st.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) ListTablesWithSeats(_ context.Context, minSeats int) ([]models.Table, error) {
	st, done := m.begin()
	defer done()

	out := make([]models.Table, 0)
	for _, t := range st.tables {
		if t.Seats >= minSeats {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seats != out[j].Seats {
			return out[i].Seats < out[j].Seats
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryRepository) UpdateTableOccupancy(
	_ context.Context,
	id uint,
	status models.TableStatus,
	guest string,
	occupiedUntil *time.Time,
) error {
	st, done := m.begin()
	defer done()

	t, ok := st.tables[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	t.Guest = guest
	t.OccupiedUntil = occupiedUntil
	t.UpdatedAt = time.Now()
	st.tables[id] = t
	return nil
}

func (m *MemoryRepository) ListOccupancyElapsed(_ context.Context, now time.Time) ([]models.Table, error) {
	st, done := m.begin()
	defer done()

	out := make([]models.Table, 0)
	for _, t := range st.tables {
		if t.Status == models.TableOccupied && t.OccupiedUntil != nil && !t.OccupiedUntil.After(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --------------------------------------------------
// Reservations
// --------------------------------------------------

func (m *MemoryRepository) CreateReservation(_ context.Context, r *models.Reservation) error {
	st, done := m.begin()
	defer done()

	if _, ok := st.tables[r.TableID]; !ok {
		return domain.ErrNotFound
	}
	st.nextReservationID++
	r.ID = st.nextReservationID
	if r.DurationMinutes == 0 {
		r.DurationMinutes = domain.DefaultDurationMinutes
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	st.reservations[r.ID] = *r
	return nil
}

func (m *MemoryRepository) GetReservation(_ context.Context, id uint) (*models.Reservation, error) {
	st, done := m.begin()
	defer done()

	r, ok := st.reservations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *MemoryRepository) LockReservation(ctx context.Context, id uint) (*models.Reservation, error) {
	return m.GetReservation(ctx, id)
}

func (m *MemoryRepository) FindConflicts(
	_ context.Context,
	tableID uint,
	start time.Time,
	end time.Time,
) ([]models.Reservation, error) {
	st, done := m.begin()
	defer done()

	out := make([]models.Reservation, 0)
	for _, r := range st.reservations {
		if r.TableID != tableID || !r.Status.IsActive() {
			continue
		}
		if domain.Overlaps(start, end, r.StartTime, domain.EffectiveEnd(&r)) {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *MemoryRepository) CountActiveForTable(_ context.Context, tableID uint) (int64, error) {
	st, done := m.begin()
	defer done()

	var n int64
	for _, r := range st.reservations {
		if r.TableID == tableID && r.Status.IsActive() {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) DeleteReservation(_ context.Context, id uint) error {
	st, done := m.begin()
	defer done()

	if _, ok := st.reservations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(st.reservations, id)
	return nil
}

func (m *MemoryRepository) ListReservationsForPeriod(
	_ context.Context,
	start time.Time,
	end time.Time,
) ([]models.Reservation, error) {
	st, done := m.begin()
	defer done()

	out := make([]models.Reservation, 0)
	for _, r := range st.reservations {
		if r.Status.IsActive() && !r.StartTime.Before(start) && r.StartTime.Before(end) {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *MemoryRepository) ListExpired(_ context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	st, done := m.begin()
	defer done()

	out := make([]models.Reservation, 0)
	for _, r := range st.reservations {
		if r.Status.IsActive() && !domain.EffectiveEnd(&r).After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) ListDueSoon(_ context.Context, from, to time.Time, limit int) ([]models.Reservation, error) {
	st, done := m.begin()
	defer done()

	out := make([]models.Reservation, 0)
	for _, r := range st.reservations {
		if !r.Status.IsActive() || r.NotifiedAt != nil {
			continue
		}
		end := domain.EffectiveEnd(&r)
		if !end.Before(from) && !end.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ei, ej := domain.EffectiveEnd(&out[i]), domain.EffectiveEnd(&out[j])
		if !ei.Equal(ej) {
			return ei.Before(ej)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) MarkNotified(_ context.Context, id uint, at time.Time) (bool, error) {
	st, done := m.begin()
	defer done()

	r, ok := st.reservations[id]
	if !ok || r.NotifiedAt != nil {
		return false, nil
	}
	r.NotifiedAt = &at
	r.UpdatedAt = time.Now()
	st.reservations[id] = r
	return true, nil
}

// --------------------------------------------------
// Archive
// --------------------------------------------------

func (m *MemoryRepository) AppendArchive(_ context.Context, a *models.ReservationArchive) error {
	st, done := m.begin()
	defer done()

	for i := range st.archive {
		if st.archive[i].ReservationID == a.ReservationID {
			return ErrDuplicateArchive
		}
	}
	st.nextArchiveID++
	a.ID = st.nextArchiveID
	st.archive = append(st.archive, *a)
	return nil
}

func (m *MemoryRepository) GetArchiveByReservation(
	_ context.Context,
	reservationID uint,
) (*models.ReservationArchive, error) {
	st, done := m.begin()
	defer done()

	for i := range st.archive {
		if st.archive[i].ReservationID == reservationID {
			a := st.archive[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryRepository) ListArchive(
	_ context.Context,
	f domain.ArchiveFilter,
) ([]models.ReservationArchive, int64, error) {
	st, done := m.begin()
	defer done()

	matched := make([]models.ReservationArchive, 0)
	for _, a := range st.archive {
		if f.TableID != nil && a.TableID != *f.TableID {
			continue
		}
		if f.From != nil && a.DeletedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !a.DeletedAt.Before(*f.To) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].DeletedAt.Equal(matched[j].DeletedAt) {
			return matched[i].DeletedAt.After(matched[j].DeletedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Offset >= len(matched) {
		return []models.ReservationArchive{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func sortByStart(rs []models.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].StartTime.Equal(rs[j].StartTime) {
			return rs[i].StartTime.Before(rs[j].StartTime)
		}
		return rs[i].ID < rs[j].ID
	})
}

// Compile-time check
var _ domain.Repository = (*MemoryRepository)(nil)
