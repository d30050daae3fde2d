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
// TABLE STATUS
// ======================================================

type TableStatus struct {
	Table models.Table
	// current or next active reservation on the requested date
	Reservation *models.Reservation
}

type GetTableStatus struct {
	repo domain.Repository
	loc  *time.Location
	now  Clock
}

func NewGetTableStatus(repo domain.Repository, tz string, now Clock) *GetTableStatus {
	return &GetTableStatus{repo: repo, loc: timezone.Location(tz), now: orSystem(now)}
}

func (uc *GetTableStatus) Execute(ctx context.Context, date string) ([]TableStatus, error) {
	dayStart, dayEnd, err := uc.dayRange(date)
	if err != nil {
		return nil, err
	}

	tables, err := uc.repo.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	list, err := uc.repo.ListReservationsForPeriod(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	next := map[uint]*models.Reservation{}
	for i := range list {
		r := &list[i]
		if !domain.EffectiveEnd(r).After(now) {
			continue
		}
		if _, ok := next[r.TableID]; !ok {
			next[r.TableID] = r
		}
	}

	out := make([]TableStatus, 0, len(tables))
	for _, t := range tables {
		out = append(out, TableStatus{Table: t, Reservation: next[t.ID]})
	}
	return out, nil
}

func (uc *GetTableStatus) dayRange(date string) (time.Time, time.Time, error) {
	if date == "" {
		start := timezone.StartOfDay(uc.now(), uc.loc)
		return start, start.AddDate(0, 0, 1), nil
	}
	start, err := parseDay(uc.loc, date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// ======================================================
// RESERVATIONS
// ======================================================

type ListReservations struct {
	repo domain.Repository
	loc  *time.Location
}

func NewListReservations(repo domain.Repository, tz string) *ListReservations {
	return &ListReservations{repo: repo, loc: timezone.Location(tz)}
}

func (uc *ListReservations) Execute(ctx context.Context, date string) ([]models.Reservation, error) {
	start, err := parseDay(uc.loc, date)
	if err != nil {
		return nil, err
	}
	return uc.repo.ListReservationsForPeriod(ctx, start, start.AddDate(0, 0, 1))
}

type GetReservation struct {
	repo domain.Repository
}

func NewGetReservation(repo domain.Repository) *GetReservation {
	return &GetReservation{repo: repo}
}

func (uc *GetReservation) Execute(ctx context.Context, id uint) (*models.Reservation, error) {
	res, err := uc.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "reservation_not_found")
	}
	return res, nil
}

// ======================================================
// ARCHIVE
// ======================================================

type ListArchiveInput struct {
	TableID *uint
	From    string
	To      string
	Page    int
	Limit   int
}

type ListArchiveOutput struct {
	Items []models.ReservationArchive
	Total int64
	Page  int
	Limit int
}

const (
	defaultArchiveLimit = 50
	maxArchiveLimit     = 200

	// keeps (page-1)*limit far from overflowing
	MaxArchivePage = 1_000_000
)

type ListArchive struct {
	repo domain.Repository
	loc  *time.Location
}

func NewListArchive(repo domain.Repository, tz string) *ListArchive {
	return &ListArchive{repo: repo, loc: timezone.Location(tz)}
}

// Execute filters on deleted_at from the start of From to the end of To.
func (uc *ListArchive) Execute(ctx context.Context, in ListArchiveInput) (*ListArchiveOutput, error) {
	page := in.Page
	if page <= 0 {
		page = 1
	}
	if page > MaxArchivePage {
		return nil, httperr.ErrValidation("invalid_page")
	}
	limit := in.Limit
	if limit <= 0 || limit > maxArchiveLimit {
		limit = defaultArchiveLimit
	}

	f := domain.ArchiveFilter{
		TableID: in.TableID,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	if in.From != "" {
		from, err := parseDay(uc.loc, in.From)
		if err != nil {
			return nil, err
		}
		f.From = &from
	}
	if in.To != "" {
		to, err := parseDay(uc.loc, in.To)
		if err != nil {
			return nil, err
		}
		to = to.AddDate(0, 0, 1)
		f.To = &to
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, httperr.ErrValidation("invalid_date")
	}

	items, total, err := uc.repo.ListArchive(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ListArchiveOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}
