package reservation

import (
	"context"
	"time"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/models"
	"github.com/BruksfildServices01/table-reservations/internal/timezone"
)

// ======================================================
// RESOLVER
// ======================================================

// FindConflicts lists the active reservations on the table overlapping
// [start,end).
func FindConflicts(
	ctx context.Context,
	repo domain.Repository,
	tableID uint,
	start time.Time,
	end time.Time,
) ([]models.Reservation, error) {
	return repo.FindConflicts(ctx, tableID, start, end)
}

func assertNoConflict(
	ctx context.Context,
	repo domain.Repository,
	tableID uint,
	start time.Time,
	end time.Time,
) error {

	conflicts, err := FindConflicts(ctx, repo, tableID, start, end)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return httperr.ErrConflict("time_conflict", domain.ConflictDetails(conflicts))
	}
	return nil
}

// FindAvailableTables returns tables seating partySize with no active
// reservation in [start,end), smallest first then by id. Tables whose
// walk-in hold runs past start are skipped too.
func FindAvailableTables(
	ctx context.Context,
	repo domain.Repository,
	start time.Time,
	end time.Time,
	partySize int,
) ([]models.Table, error) {

	candidates, err := repo.ListTablesWithSeats(ctx, partySize)
	if err != nil {
		return nil, err
	}

	free := make([]models.Table, 0, len(candidates))
	for i := range candidates {
		ok, err := isFree(ctx, repo, &candidates[i], start, end)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, candidates[i])
		}
	}
	return free, nil
}

// BestFit is the first of FindAvailableTables.
func BestFit(
	ctx context.Context,
	repo domain.Repository,
	start time.Time,
	end time.Time,
	partySize int,
) (*models.Table, error) {

	tables, err := FindAvailableTables(ctx, repo, start, end, partySize)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, httperr.ErrConflict("no_table_available", nil)
	}
	return &tables[0], nil
}

func isFree(
	ctx context.Context,
	repo domain.Repository,
	t *models.Table,
	start time.Time,
	end time.Time,
) (bool, error) {

	if t.Status == models.TableOccupied && t.OccupiedUntil != nil && t.OccupiedUntil.After(start) {
		return false, nil
	}
	conflicts, err := FindConflicts(ctx, repo, t.ID, start, end)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// ======================================================
// QUERY
// ======================================================

type AvailabilityInput struct {
	Date            string
	StartTime       string
	DurationMinutes *int
	PartySize       int
}

type CheckAvailability struct {
	repo domain.Repository
	loc  *time.Location
}

func NewCheckAvailability(repo domain.Repository, tz string) *CheckAvailability {
	return &CheckAvailability{repo: repo, loc: timezone.Location(tz)}
}

func (uc *CheckAvailability) Execute(
	ctx context.Context,
	in AvailabilityInput,
) ([]models.Table, error) {

	if in.PartySize < 0 {
		return nil, httperr.ErrValidation("invalid_party_size")
	}
	minutes, err := resolveRequestedDuration(in.DurationMinutes)
	if err != nil {
		return nil, err
	}
	_, start, end, err := parseWindow(uc.loc, in.Date, in.StartTime, minutes)
	if err != nil {
		return nil, err
	}

	return FindAvailableTables(ctx, uc.repo, start, end, in.PartySize)
}
