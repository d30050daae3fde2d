package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

// effective end of a row: end_time, or start + duration for legacy rows.
const effectiveEndSQL = "COALESCE(end_time, start_time + make_interval(mins => COALESCE(NULLIF(duration_minutes, 0), 90)))"

var activeStatuses = []string{
	string(models.ReservationReserved),
	string(models.ReservationOccupied),
}

type ReservationGormRepository struct {
	db        *gorm.DB
	txTimeout time.Duration
	inTx      bool
}

func NewReservationGormRepository(db *gorm.DB, txTimeout time.Duration) *ReservationGormRepository {
	return &ReservationGormRepository{db: db, txTimeout: txTimeout}
}

// --------------------------------------------------
// Transaction
// --------------------------------------------------

func (r *ReservationGormRepository) Transaction(
	ctx context.Context,
	fn func(tx domain.Repository) error,
) error {

	if r.inTx {
		return fn(r)
	}

	if r.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.txTimeout)
		defer cancel()
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&ReservationGormRepository{db: tx, inTx: true})
		})
		if !isRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// --------------------------------------------------
// Tables
// --------------------------------------------------

func (r *ReservationGormRepository) CreateTable(
	ctx context.Context,
	t *models.Table,
) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *ReservationGormRepository) GetTable(
	ctx context.Context,
	id uint,
) (*models.Table, error) {

	var t models.Table
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

func (r *ReservationGormRepository) LockTable(
	ctx context.Context,
	id uint,
) (*models.Table, error) {

	var t models.Table
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &t, nil
}

func (r *ReservationGormRepository) ListTables(
	ctx context.Context,
) ([]models.Table, error) {

	var tables []models.Table
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *ReservationGormRepository) ListTablesWithSeats(
	ctx context.Context,
	minSeats int,
) ([]models.Table, error) {

	var tables []models.Table
	if err := r.db.WithContext(ctx).
		Where("seats >= ?", minSeats).
		Order("seats ASC, id ASC").
		Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (r *ReservationGormRepository) UpdateTableOccupancy(
	ctx context.Context,
	id uint,
	status models.TableStatus,
	guest string,
	occupiedUntil *time.Time,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.Table{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         status,
			"guest":          guest,
			"occupied_until": occupiedUntil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReservationGormRepository) ListOccupancyElapsed(
	ctx context.Context,
	now time.Time,
) ([]models.Table, error) {

	var tables []models.Table
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where(
			"status = ? AND occupied_until IS NOT NULL AND occupied_until <= ?",
			models.TableOccupied,
			now,
		).
		Order("id ASC").
		Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

// --------------------------------------------------
// Reservations
// --------------------------------------------------

func (r *ReservationGormRepository) CreateReservation(
	ctx context.Context,
	res *models.Reservation,
) error {
	return r.db.WithContext(ctx).Omit("Table").Create(res).Error
}

func (r *ReservationGormRepository) GetReservation(
	ctx context.Context,
	id uint,
) (*models.Reservation, error) {

	var res models.Reservation
	if err := r.db.WithContext(ctx).First(&res, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &res, nil
}

func (r *ReservationGormRepository) LockReservation(
	ctx context.Context,
	id uint,
) (*models.Reservation, error) {

	var res models.Reservation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&res, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &res, nil
}

func (r *ReservationGormRepository) FindConflicts(
	ctx context.Context,
	tableID uint,
	start time.Time,
	end time.Time,
) ([]models.Reservation, error) {

	var conflicts []models.Reservation
	if err := r.db.WithContext(ctx).
		Where(
			"table_id = ? AND status IN ? AND start_time < ? AND "+effectiveEndSQL+" > ?",
			tableID,
			activeStatuses,
			end,
			start,
		).
		Order("start_time ASC").
		Find(&conflicts).Error; err != nil {
		return nil, err
	}
	return conflicts, nil
}

func (r *ReservationGormRepository) CountActiveForTable(
	ctx context.Context,
	tableID uint,
) (int64, error) {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("table_id = ? AND status IN ?", tableID, activeStatuses).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ReservationGormRepository) DeleteReservation(
	ctx context.Context,
	id uint,
) error {

	res := r.db.WithContext(ctx).Delete(&models.Reservation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReservationGormRepository) ListReservationsForPeriod(
	ctx context.Context,
	start time.Time,
	end time.Time,
) ([]models.Reservation, error) {

	var list []models.Reservation
	if err := r.db.WithContext(ctx).
		Where(
			"status IN ? AND start_time >= ? AND start_time < ?",
			activeStatuses,
			start,
			end,
		).
		Order("start_time ASC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ReservationGormRepository) ListExpired(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]models.Reservation, error) {

	var list []models.Reservation
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status IN ? AND "+effectiveEndSQL+" <= ?", activeStatuses, now).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ReservationGormRepository) ListDueSoon(
	ctx context.Context,
	from time.Time,
	to time.Time,
	limit int,
) ([]models.Reservation, error) {

	var list []models.Reservation
	if err := r.db.WithContext(ctx).
		Where(
			"status IN ? AND notified_at IS NULL AND "+effectiveEndSQL+" BETWEEN ? AND ?",
			activeStatuses,
			from,
			to,
		).
		Order(effectiveEndSQL + " ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ReservationGormRepository) MarkNotified(
	ctx context.Context,
	id uint,
	at time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// --------------------------------------------------
// Archive
// --------------------------------------------------

func (r *ReservationGormRepository) AppendArchive(
	ctx context.Context,
	a *models.ReservationArchive,
) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ReservationGormRepository) GetArchiveByReservation(
	ctx context.Context,
	reservationID uint,
) (*models.ReservationArchive, error) {

	var a models.ReservationArchive
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		First(&a).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &a, nil
}

func (r *ReservationGormRepository) ListArchive(
	ctx context.Context,
	f domain.ArchiveFilter,
) ([]models.ReservationArchive, int64, error) {

	if f.Offset < 0 {
		f.Offset = 0
	}

	q := r.db.WithContext(ctx).Model(&models.ReservationArchive{})

	if f.TableID != nil {
		q = q.Where("table_id = ?", *f.TableID)
	}
	if f.From != nil {
		q = q.Where("deleted_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("deleted_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ReservationArchive
	if err := q.
		Order("deleted_at DESC, id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// Compile-time check
var _ domain.Repository = (*ReservationGormRepository)(nil)
