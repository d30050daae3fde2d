package reservation

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/events"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/models"
	"github.com/BruksfildServices01/table-reservations/internal/timezone"
)

// ======================================================
// INPUT
// ======================================================

type CreateReservationInput struct {
	// nil picks the best-fit table
	TableID *uint

	Date            string
	StartTime       string
	DurationMinutes *int
	PartySize       int
	Guest           string
	Status          string

	Actor string
}

type CreateReservationOutput struct {
	ID              uint                     `json:"id"`
	TableID         uint                     `json:"table_id"`
	Start           time.Time                `json:"start"`
	End             time.Time                `json:"end"`
	DurationMinutes int                      `json:"duration_minutes"`
	Status          models.ReservationStatus `json:"status"`
	TotalPrice      decimal.Decimal          `json:"total_price"`
}

// ======================================================
// USE CASE
// ======================================================

type CreateReservation struct {
	repo   domain.Repository
	events *events.Dispatcher
	loc    *time.Location
}

func NewCreateReservation(
	repo domain.Repository,
	ev *events.Dispatcher,
	tz string,
) *CreateReservation {
	return &CreateReservation{
		repo:   repo,
		events: ev,
		loc:    timezone.Location(tz),
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateReservation) Execute(
	ctx context.Context,
	in CreateReservationInput,
) (*CreateReservationOutput, error) {

	// --------------------------------------------------
	// 1️⃣ Validation, before touching the store
	// --------------------------------------------------
	status, err := domain.InitialStatus(in.Status)
	if err != nil {
		return nil, err
	}

	minutes, err := resolveRequestedDuration(in.DurationMinutes)
	if err != nil {
		return nil, err
	}

	if in.PartySize < 0 {
		return nil, httperr.ErrValidation("invalid_party_size")
	}

	guest := strings.TrimSpace(in.Guest)

	// --------------------------------------------------
	// 2️⃣ Window
	// --------------------------------------------------
	day, start, end, err := parseWindow(uc.loc, in.Date, in.StartTime, minutes)
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// 3️⃣ Table + conflicts + insert, one transaction
	// --------------------------------------------------
	var out *CreateReservationOutput

	err = uc.repo.Transaction(ctx, func(tx domain.Repository) error {
		table, err := uc.lockTable(ctx, tx, in.TableID, start, end, in.PartySize)
		if err != nil {
			return err
		}

		price, err := priceFor(table, minutes)
		if err != nil {
			return err
		}

		res := &models.Reservation{
			TableID:         table.ID,
			Date:            day,
			StartTime:       start,
			EndTime:         &end,
			DurationMinutes: minutes,
			PartySize:       in.PartySize,
			Guest:           guest,
			Status:          status,
			TotalPrice:      price,
		}
		if err := tx.CreateReservation(ctx, res); err != nil {
			return err
		}

		if status == models.ReservationOccupied {
			if err := tx.UpdateTableOccupancy(
				ctx,
				table.ID,
				models.TableOccupied,
				guest,
				&end,
			); err != nil {
				return err
			}
		}

		out = &CreateReservationOutput{
			ID:              res.ID,
			TableID:         res.TableID,
			Start:           res.StartTime,
			End:             end,
			DurationMinutes: minutes,
			Status:          res.Status,
			TotalPrice:      res.TotalPrice,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.events.Dispatch(events.New(
		events.ReservationCreated,
		out.ID,
		out.TableID,
		in.Actor,
		out,
	))

	return out, nil
}

// lockTable returns the requested table, or the smallest free one, holding
// its row lock. Conflicts are re-checked after the lock is taken.
func (uc *CreateReservation) lockTable(
	ctx context.Context,
	tx domain.Repository,
	tableID *uint,
	start time.Time,
	end time.Time,
	partySize int,
) (*models.Table, error) {

	if tableID != nil {
		table, err := tx.LockTable(ctx, *tableID)
		if err != nil {
			return nil, mapNotFound(err, "table_not_found")
		}
		if err := assertNoConflict(ctx, tx, table.ID, start, end); err != nil {
			return nil, err
		}
		return table, nil
	}

	candidates, err := FindAvailableTables(ctx, tx, start, end, partySize)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		table, err := tx.LockTable(ctx, candidates[i].ID)
		if err != nil {
			return nil, err
		}
		ok, err := isFree(ctx, tx, table, start, end)
		if err != nil {
			return nil, err
		}
		if ok {
			return table, nil
		}
	}

	return nil, httperr.ErrConflict("no_table_available", nil)
}
