package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/BruksfildServices01/table-reservations/internal/models"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("record not found")

type ArchiveFilter struct {
	TableID *uint
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

type Repository interface {
	// Transaction runs fn against a repository bound to one transaction.
	// Any error returned by fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	// -------- Tables --------
	CreateTable(ctx context.Context, t *models.Table) error

	GetTable(ctx context.Context, id uint) (*models.Table, error)

	// LockTable loads the table and holds a row lock until the transaction
	// ends, serializing writers on the same table.
	LockTable(ctx context.Context, id uint) (*models.Table, error)

	ListTables(ctx context.Context) ([]models.Table, error)

	// ListTablesWithSeats returns tables seating at least minSeats ordered
	// by (seats, id).
	ListTablesWithSeats(ctx context.Context, minSeats int) ([]models.Table, error)

	UpdateTableOccupancy(
		ctx context.Context,
		id uint,
		status models.TableStatus,
		guest string,
		occupiedUntil *time.Time,
	) error

	ListOccupancyElapsed(ctx context.Context, now time.Time) ([]models.Table, error)

	// -------- Reservations --------
	CreateReservation(ctx context.Context, r *models.Reservation) error

	GetReservation(ctx context.Context, id uint) (*models.Reservation, error)

	LockReservation(ctx context.Context, id uint) (*models.Reservation, error)

	// FindConflicts returns active reservations on the table whose effective
	// window intersects [start,end).
	FindConflicts(
		ctx context.Context,
		tableID uint,
		start time.Time,
		end time.Time,
	) ([]models.Reservation, error)

	CountActiveForTable(ctx context.Context, tableID uint) (int64, error)

	DeleteReservation(ctx context.Context, id uint) error

	ListReservationsForPeriod(
		ctx context.Context,
		start time.Time,
		end time.Time,
	) ([]models.Reservation, error)

	// ListExpired returns up to limit active reservations whose effective end
	// is <= now, locking them for the current transaction.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)

	// ListDueSoon returns unnotified active reservations whose effective end
	// falls in [from,to].
	ListDueSoon(ctx context.Context, from, to time.Time, limit int) ([]models.Reservation, error)

	// MarkNotified sets notified_at if it is still unset and reports whether
	// this call set it.
	MarkNotified(ctx context.Context, id uint, at time.Time) (bool, error)

	// -------- Archive --------
	AppendArchive(ctx context.Context, a *models.ReservationArchive) error

	GetArchiveByReservation(ctx context.Context, reservationID uint) (*models.ReservationArchive, error)

	ListArchive(ctx context.Context, f ArchiveFilter) ([]models.ReservationArchive, int64, error)
}
