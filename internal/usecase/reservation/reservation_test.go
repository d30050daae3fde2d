package reservation

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/events"
	"github.com/BruksfildServices01/table-reservations/internal/httperr"
	"github.com/BruksfildServices01/table-reservations/internal/infra/repository"
	"github.com/BruksfildServices01/table-reservations/internal/models"
	"github.com/BruksfildServices01/table-reservations/internal/notify"
)

// ======================================================
// HELPERS
// ======================================================

const testTZ = "UTC"

type fixture struct {
	t    *testing.T
	ctx  context.Context
	repo *repository.MemoryRepository
	now  time.Time
}

func newFixture(t *testing.T, now string) *fixture {
	t.Helper()
	at, err := time.Parse("2006-01-02 15:04", now)
	if err != nil {
		t.Fatalf("bad fixture time: %v", err)
	}
	return &fixture{t: t, ctx: context.Background(), repo: repository.NewMemoryRepository(), now: at}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) table(name string, seats int, price string) *models.Table {
	f.t.Helper()
	tbl, err := NewAddTable(f.repo).Execute(f.ctx, AddTableInput{
		Name:         name,
		Seats:        seats,
		PricePerHour: decimal.RequireFromString(price),
	})
	if err != nil {
		f.t.Fatalf("add table: %v", err)
	}
	return tbl
}

func (f *fixture) create(in CreateReservationInput) (*CreateReservationOutput, error) {
	return NewCreateReservation(f.repo, nil, testTZ).Execute(f.ctx, in)
}

func (f *fixture) mustCreate(in CreateReservationInput) *CreateReservationOutput {
	f.t.Helper()
	out, err := f.create(in)
	if err != nil {
		f.t.Fatalf("create: %v", err)
	}
	return out
}

func (f *fixture) tableState(id uint) *models.Table {
	f.t.Helper()
	tbl, err := f.repo.GetTable(f.ctx, id)
	if err != nil {
		f.t.Fatalf("get table: %v", err)
	}
	return tbl
}

func (f *fixture) archive() []models.ReservationArchive {
	f.t.Helper()
	rows, _, err := f.repo.ListArchive(f.ctx, domain.ArchiveFilter{Limit: 1000})
	if err != nil {
		f.t.Fatalf("list archive: %v", err)
	}
	return rows
}

func ptr[T any](v T) *T { return &v }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	return l
}

func assertKind(t *testing.T, err error, kind httperr.Kind, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error %q, got nil", kind, code)
	}
	if httperr.KindOf(err) != kind || !httperr.IsBusiness(err, code) {
		t.Fatalf("expected %s error %q, got %v", kind, code, err)
	}
}

// ======================================================
// CREATE
// ======================================================

func TestCreateComputesPrice(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	for i := 0; i < 4; i++ {
		f.table("filler", 2, "10")
	}
	t5 := f.table("T5", 4, "3000")

	out := f.mustCreate(CreateReservationInput{
		TableID:         ptr(t5.ID),
		Date:            "2024-06-01",
		StartTime:       "19:00",
		DurationMinutes: ptr(120),
		Guest:           "Ana",
	})

	if !out.TotalPrice.Equal(decimal.RequireFromString("6000.00")) {
		t.Fatalf("expected 6000.00, got %s", out.TotalPrice)
	}
	if out.Status != models.ReservationReserved {
		t.Fatalf("expected default status reserved, got %s", out.Status)
	}
	if got := out.End.Sub(out.Start); got != 2*time.Hour {
		t.Fatalf("expected 2h window, got %s", got)
	}
	if f.tableState(t5.ID).Status != models.TableAvailable {
		t.Fatalf("a reserved booking does not change table status")
	}
}

func TestCreateDefaultsDurationTo90(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	tbl := f.table("T1", 4, "60")

	out := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "Ana",
	})
	if out.DurationMinutes != 90 || !out.TotalPrice.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected 90 minutes at 90.00, got %d at %s", out.DurationMinutes, out.TotalPrice)
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	tbl := f.table("T1", 4, "100")

	a := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "A",
	})

	_, err := f.create(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:30", DurationMinutes: ptr(30), Guest: "B",
	})
	assertKind(t, err, httperr.KindConflict, "time_conflict")

	var be httperr.BusinessError
	if !errors.As(err, &be) {
		t.Fatalf("expected BusinessError")
	}
	details, ok := be.Details.([]domain.ConflictDetail)
	if !ok || len(details) != 1 {
		t.Fatalf("expected one conflict detail, got %#v", be.Details)
	}
	d := details[0]
	if d.ID != a.ID || d.TableID != tbl.ID || d.Guest != "A" || d.Status != models.ReservationReserved {
		t.Fatalf("unexpected conflict detail %+v", d)
	}
	if !d.Start.Equal(a.Start) || !d.End.Equal(a.End) {
		t.Fatalf("conflict window mismatch: %+v vs %+v", d, a)
	}
}

func TestCreateAllowsAdjacentWindows(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	tbl := f.table("T1", 4, "100")

	f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", DurationMinutes: ptr(60), Guest: "A",
	})
	f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "20:00", DurationMinutes: ptr(60), Guest: "B",
	})
	f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "18:00", DurationMinutes: ptr(60), Guest: "C",
	})
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	tbl := f.table("T1", 4, "100")

	cases := []struct {
		name string
		in   CreateReservationInput
		kind httperr.Kind
		code string
	}{
		{"bad date", CreateReservationInput{TableID: &tbl.ID, Date: "2024-13-01", StartTime: "19:00", Guest: "x"}, httperr.KindValidation, "invalid_date_or_time"},
		{"bad time", CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "7pm", Guest: "x"}, httperr.KindValidation, "invalid_date_or_time"},
		{"negative duration", CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", DurationMinutes: ptr(-5), Guest: "x"}, httperr.KindValidation, "invalid_duration"},
		{"negative party", CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", PartySize: -1, Guest: "x"}, httperr.KindValidation, "invalid_party_size"},
		{"bad status", CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Status: "completed", Guest: "x"}, httperr.KindValidation, "invalid_status"},
		{"longer than a day", CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", DurationMinutes: ptr(24*60 + 1), Guest: "x"}, httperr.KindValidation, "invalid_duration"},
		{"overflowing duration", CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", DurationMinutes: ptr(200_000_000), Guest: "x"}, httperr.KindValidation, "invalid_duration"},
		{"unknown table", CreateReservationInput{TableID: ptr(uint(99)), Date: "2024-06-01", StartTime: "19:00", Guest: "x"}, httperr.KindNotFound, "table_not_found"},
	}
	for _, tc := range cases {
		_, err := f.create(tc.in)
		if err == nil || httperr.KindOf(err) != tc.kind || !httperr.IsBusiness(err, tc.code) {
			t.Fatalf("%s: expected %s/%s, got %v", tc.name, tc.kind, tc.code, err)
		}
	}

	n, _ := f.repo.CountActiveForTable(f.ctx, tbl.ID)
	if n != 0 {
		t.Fatalf("rejected creates must not write, found %d rows", n)
	}
}

func TestCreateDurationCap(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	tbl := f.table("T1", 4, domain.MaxPricePerHour.String())

	out := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", DurationMinutes: ptr(domain.MaxDurationMinutes), Guest: "x",
	})
	if !out.End.After(out.Start) || out.End.Sub(out.Start) != 24*time.Hour {
		t.Fatalf("expected a full day window, got %v - %v", out.Start, out.End)
	}
	if out.TotalPrice.GreaterThan(domain.MaxTotalPrice) {
		t.Fatalf("total %s does not fit the money column", out.TotalPrice)
	}

	// the rejected request must not leave a row that blocks later bookings
	_, err := f.create(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-03", StartTime: "19:00", DurationMinutes: ptr(200_000_000), Guest: "y",
	})
	assertKind(t, err, httperr.KindValidation, "invalid_duration")
	f.mustCreate(CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-03", StartTime: "19:30", Guest: "z"})
}

func TestAddTableRejectsOutOfRangePrice(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	for _, price := range []string{"-1", "100000000"} {
		_, err := NewAddTable(f.repo).Execute(f.ctx, AddTableInput{Name: "T", Seats: 2, PricePerHour: decimal.RequireFromString(price)})
		assertKind(t, err, httperr.KindValidation, "invalid_price")
	}
}

func TestCreateWithoutGuest(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	tbl := f.table("T1", 4, "100")

	out := f.mustCreate(CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "  "})
	res, err := f.repo.GetReservation(f.ctx, out.ID)
	if err != nil || res.Guest != "" {
		t.Fatalf("expected stored reservation with empty guest, got %+v %v", res, err)
	}
}

func TestCreateBestFit(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	six := f.table("six", 6, "100")
	f.table("two", 2, "100")
	fourA := f.table("fourA", 4, "100")
	fourB := f.table("fourB", 4, "100")

	first := f.mustCreate(CreateReservationInput{
		Date: "2024-06-01", StartTime: "19:00", PartySize: 3, Guest: "A",
	})
	if first.TableID != fourA.ID {
		t.Fatalf("expected smallest sufficient table %d, got %d", fourA.ID, first.TableID)
	}

	second := f.mustCreate(CreateReservationInput{
		Date: "2024-06-01", StartTime: "19:30", PartySize: 4, Guest: "B",
	})
	if second.TableID != fourB.ID {
		t.Fatalf("expected next four-seater %d, got %d", fourB.ID, second.TableID)
	}

	third := f.mustCreate(CreateReservationInput{
		Date: "2024-06-01", StartTime: "20:00", PartySize: 4, Guest: "C",
	})
	if third.TableID != six.ID {
		t.Fatalf("expected six-seater %d, got %d", six.ID, third.TableID)
	}

	_, err := f.create(CreateReservationInput{
		Date: "2024-06-01", StartTime: "20:00", PartySize: 3, Guest: "D",
	})
	assertKind(t, err, httperr.KindConflict, "no_table_available")
}

func TestCreateOccupiedSeatsTable(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:00")
	tbl := f.table("T1", 4, "100")

	out := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "walk-in", Status: "occupied",
	})

	got := f.tableState(tbl.ID)
	if got.Status != models.TableOccupied || got.Guest != "walk-in" {
		t.Fatalf("expected seated table, got %+v", got)
	}
	if got.OccupiedUntil == nil || !got.OccupiedUntil.Equal(out.End) {
		t.Fatalf("expected occupied_until %s, got %v", out.End, got.OccupiedUntil)
	}
}

func TestConcurrentCreatesNeverOverlap(t *testing.T) {
	f := newFixture(t, "2024-06-01 12:00")
	tbl := f.table("T1", 4, "100")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	conflicts := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.create(CreateReservationInput{
				TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "race",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case httperr.IsBusiness(err, "time_conflict"):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != 19 {
		t.Fatalf("expected 1 success and 19 conflicts, got %d and %d", succeeded, conflicts)
	}
}

// ======================================================
// START
// ======================================================

func TestStartArchivesAndSeats(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:05")
	tbl := f.table("T1", 4, "100")
	a := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", DurationMinutes: ptr(60), Guest: "A",
	})

	out, err := NewStartReservation(f.repo, nil, f.clock).Execute(f.ctx, StartReservationInput{
		ReservationID: a.ID, Actor: "maria",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if !out.Start.Equal(f.now) || !out.End.Equal(f.now.Add(time.Hour)) {
		t.Fatalf("expected window from now, got %s-%s", out.Start, out.End)
	}
	if !out.TotalPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100.00, got %s", out.TotalPrice)
	}

	got := f.tableState(tbl.ID)
	if got.Status != models.TableOccupied || got.Guest != "A" || got.OccupiedUntil == nil || !got.OccupiedUntil.Equal(out.End) {
		t.Fatalf("expected table seated until end, got %+v", got)
	}

	if _, err := f.repo.GetReservation(f.ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected reservation removed from active store, got %v", err)
	}

	rows := f.archive()
	if len(rows) != 1 {
		t.Fatalf("expected one archive row, got %d", len(rows))
	}
	row := rows[0]
	if row.ReservationID != a.ID || row.Reason != models.ArchiveStarted || row.DeletedBy != "maria" {
		t.Fatalf("unexpected archive row %+v", row)
	}
	if row.DeletionNote != nil {
		t.Fatalf("expected null deletion note, got %q", *row.DeletionNote)
	}
	if row.Status != models.ReservationOccupied || !row.StartTime.Equal(f.now) {
		t.Fatalf("snapshot should carry the started window, got %+v", row)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:05")
	tbl := f.table("T1", 4, "100")
	a := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "A",
	})

	uc := NewStartReservation(f.repo, nil, f.clock)
	first, err := uc.Execute(f.ctx, StartReservationInput{ReservationID: a.ID, Actor: "maria"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	second, err := uc.Execute(f.ctx, StartReservationInput{ReservationID: a.ID, Actor: "maria"})
	if err != nil {
		t.Fatalf("retried start: %v", err)
	}
	if !second.AlreadyStarted || !second.Start.Equal(first.Start) || !second.End.Equal(first.End) || !second.TotalPrice.Equal(first.TotalPrice) {
		t.Fatalf("retry should replay the first result: %+v vs %+v", second, first)
	}
	if len(f.archive()) != 1 {
		t.Fatalf("retry must not archive twice")
	}
}

func TestStartOccupiedIsNoop(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:05")
	tbl := f.table("T1", 4, "100")
	walkIn := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "W", Status: "occupied",
	})

	out, err := NewStartReservation(f.repo, nil, f.clock).Execute(f.ctx, StartReservationInput{ReservationID: walkIn.ID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !out.AlreadyStarted || !out.Start.Equal(walkIn.Start) {
		t.Fatalf("expected no-op, got %+v", out)
	}
	if _, err := f.repo.GetReservation(f.ctx, walkIn.ID); err != nil {
		t.Fatalf("occupied reservation should stay active: %v", err)
	}
	if len(f.archive()) != 0 {
		t.Fatalf("no-op start must not archive")
	}
}

func TestStartUnknownReservation(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:05")
	_, err := NewStartReservation(f.repo, nil, f.clock).Execute(f.ctx, StartReservationInput{ReservationID: 42})
	assertKind(t, err, httperr.KindNotFound, "reservation_not_found")
}

type failingArchive struct {
	domain.Repository
}

var errArchiveDown = errors.New("archive down")

func (r failingArchive) Transaction(ctx context.Context, fn func(tx domain.Repository) error) error {
	return r.Repository.Transaction(ctx, func(tx domain.Repository) error {
		return fn(failingArchive{tx})
	})
}

func (failingArchive) AppendArchive(context.Context, *models.ReservationArchive) error {
	return errArchiveDown
}

func TestArchiveFailureRollsBack(t *testing.T) {
	f := newFixture(t, "2024-06-01 21:00")
	tbl := f.table("T1", 4, "100")
	a := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "A", Status: "occupied",
	})
	b := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-02", StartTime: "19:00", Guest: "B",
	})
	before := f.tableState(tbl.ID)

	broken := failingArchive{f.repo}

	if _, err := NewStartReservation(broken, nil, f.clock).Execute(f.ctx, StartReservationInput{ReservationID: b.ID}); !errors.Is(err, errArchiveDown) {
		t.Fatalf("start: expected archive error, got %v", err)
	}
	if _, err := NewCancelReservation(broken, nil, f.clock).Execute(f.ctx, CancelReservationInput{ReservationID: b.ID}); !errors.Is(err, errArchiveDown) {
		t.Fatalf("cancel: expected archive error, got %v", err)
	}
	if _, err := NewExpireReservations(broken, nil, quietLogger(), f.clock, 0).Execute(f.ctx); !errors.Is(err, errArchiveDown) {
		t.Fatalf("expire: expected archive error, got %v", err)
	}

	for _, id := range []uint{a.ID, b.ID} {
		if _, err := f.repo.GetReservation(f.ctx, id); err != nil {
			t.Fatalf("reservation %d must survive a failed transition: %v", id, err)
		}
	}
	after := f.tableState(tbl.ID)
	if after.Status != before.Status || after.Guest != before.Guest {
		t.Fatalf("table changed despite rollback: %+v -> %+v", before, after)
	}
	if len(f.archive()) != 0 {
		t.Fatalf("no archive rows expected")
	}
}

// ======================================================
// CANCEL
// ======================================================

func TestCancelKeepsSeatedTable(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:05")
	tbl := f.table("T1", 4, "100")
	a := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "A",
	})
	b := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "21:00", Guest: "B",
	})

	if _, err := NewStartReservation(f.repo, nil, f.clock).Execute(f.ctx, StartReservationInput{ReservationID: a.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}

	out, err := NewCancelReservation(f.repo, nil, f.clock).Execute(f.ctx, CancelReservationInput{
		ReservationID: b.ID, Actor: "maria", Note: ptr("guest cancelled"),
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !out.Archived || !out.Deleted || out.TableFreed {
		t.Fatalf("unexpected cancel result %+v", out)
	}

	if got := f.tableState(tbl.ID); got.Status != models.TableOccupied || got.Guest != "A" {
		t.Fatalf("cancelling an unrelated booking must not free a seated table, got %+v", got)
	}

	row, err := f.repo.GetArchiveByReservation(f.ctx, b.ID)
	if err != nil {
		t.Fatalf("archive row: %v", err)
	}
	if row.DeletionNote == nil || *row.DeletionNote != "guest cancelled" || row.Reason != models.ArchiveCancelled || row.DeletedBy != "maria" {
		t.Fatalf("unexpected archive row %+v", row)
	}
}

func TestCancelFreesTableWhenLastBooking(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:05")
	tbl := f.table("T1", 4, "100")
	w := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "W", Status: "occupied",
	})

	out, err := NewCancelReservation(f.repo, nil, f.clock).Execute(f.ctx, CancelReservationInput{ReservationID: w.ID})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !out.TableFreed {
		t.Fatalf("expected table freed")
	}
	got := f.tableState(tbl.ID)
	if got.Status != models.TableAvailable || got.Guest != "" || got.OccupiedUntil != nil {
		t.Fatalf("expected available table, got %+v", got)
	}

	_, err = NewCancelReservation(f.repo, nil, f.clock).Execute(f.ctx, CancelReservationInput{ReservationID: w.ID})
	assertKind(t, err, httperr.KindNotFound, "reservation_not_found")
}

// ======================================================
// EXPIRE
// ======================================================

func TestExpireArchivesElapsed(t *testing.T) {
	f := newFixture(t, "2024-06-01 21:00")
	t1 := f.table("T1", 4, "100")
	t2 := f.table("T2", 4, "100")

	c := f.mustCreate(CreateReservationInput{
		TableID: &t1.ID, Date: "2024-06-01", StartTime: "19:25", Guest: "C", Status: "occupied",
	})
	future := f.mustCreate(CreateReservationInput{
		TableID: &t2.ID, Date: "2024-06-01", StartTime: "20:00", Guest: "F",
	})

	out, err := NewExpireReservations(f.repo, nil, quietLogger(), f.clock, 0).Execute(f.ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if out.ArchivedCount != 1 || out.DeletedCount != 1 || out.TablesFreed != 1 {
		t.Fatalf("unexpected counts %+v", out)
	}

	got := f.tableState(t1.ID)
	if got.Status != models.TableAvailable || got.Guest != "" {
		t.Fatalf("expected freed table, got %+v", got)
	}

	row, err := f.repo.GetArchiveByReservation(f.ctx, c.ID)
	if err != nil {
		t.Fatalf("archive row: %v", err)
	}
	if row.DeletedBy != AutoExpireActor || row.DeletionNote == nil || *row.DeletionNote != AutoExpireActor || row.Reason != models.ArchiveExpired {
		t.Fatalf("unexpected archive row %+v", row)
	}

	if _, err := f.repo.GetReservation(f.ctx, future.ID); err != nil {
		t.Fatalf("future reservation must stay: %v", err)
	}

	again, err := NewExpireReservations(f.repo, nil, quietLogger(), f.clock, 0).Execute(f.ctx)
	if err != nil || *again != (ExpireOutput{}) {
		t.Fatalf("second run should be an empty batch, got %+v %v", again, err)
	}
}

func TestExpireLegacyRowWithoutEnd(t *testing.T) {
	f := newFixture(t, "2024-06-01 21:00")
	tbl := f.table("T1", 4, "100")

	legacy := &models.Reservation{
		TableID:         tbl.ID,
		StartTime:       f.now.Add(-61 * time.Minute),
		DurationMinutes: 60,
		Status:          models.ReservationReserved,
	}
	if err := f.repo.CreateReservation(f.ctx, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}
	fresh := &models.Reservation{
		TableID:   tbl.ID,
		StartTime: f.now.Add(-89 * time.Minute),
		Status:    models.ReservationReserved,
	}
	if err := f.repo.CreateReservation(f.ctx, fresh); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := NewExpireReservations(f.repo, nil, quietLogger(), f.clock, 0).Execute(f.ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if out.ArchivedCount != 1 {
		t.Fatalf("expected only the elapsed legacy row, got %+v", out)
	}
	if _, err := f.repo.GetReservation(f.ctx, fresh.ID); err != nil {
		t.Fatalf("row on default 90 minutes has not ended yet: %v", err)
	}
}

func TestExpireFreesElapsedWalkIn(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:00")
	tbl := f.table("T1", 4, "100")
	a := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", DurationMinutes: ptr(60), Guest: "A",
	})
	if _, err := NewStartReservation(f.repo, nil, f.clock).Execute(f.ctx, StartReservationInput{ReservationID: a.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}

	f.now = f.now.Add(30 * time.Minute)
	out, _ := NewExpireReservations(f.repo, nil, quietLogger(), f.clock, 0).Execute(f.ctx)
	if out.TablesFreed != 0 {
		t.Fatalf("hold still running, nothing to free")
	}

	f.now = f.now.Add(30 * time.Minute)
	out, err := NewExpireReservations(f.repo, nil, quietLogger(), f.clock, 0).Execute(f.ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if out.TablesFreed != 1 || out.ArchivedCount != 0 {
		t.Fatalf("expected elapsed hold to be freed, got %+v", out)
	}
	if got := f.tableState(tbl.ID); got.Status != models.TableAvailable {
		t.Fatalf("expected available, got %+v", got)
	}
}

func TestExpireRespectsBatchSize(t *testing.T) {
	f := newFixture(t, "2024-06-02 12:00")
	tbl := f.table("T1", 4, "100")
	for _, hhmm := range []string{"10:00", "12:00", "14:00"} {
		f.mustCreate(CreateReservationInput{
			TableID: &tbl.ID, Date: "2024-06-01", StartTime: hhmm, DurationMinutes: ptr(60), Guest: "x",
		})
	}

	uc := NewExpireReservations(f.repo, nil, quietLogger(), f.clock, 2)
	first, _ := uc.Execute(f.ctx)
	second, _ := uc.Execute(f.ctx)
	if first.ArchivedCount != 2 || second.ArchivedCount != 1 {
		t.Fatalf("expected batches of 2 then 1, got %d and %d", first.ArchivedCount, second.ArchivedCount)
	}
}

// ======================================================
// NOTIFY
// ======================================================

type countingChannel struct {
	mu    sync.Mutex
	fail  bool
	sent  []notify.Alert
	tries int
}

func (c *countingChannel) Name() string { return "counting" }

func (c *countingChannel) Send(_ context.Context, a notify.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tries++
	if c.fail {
		return errors.New("unreachable")
	}
	c.sent = append(c.sent, a)
	return nil
}

func TestSweepDueSoonOnce(t *testing.T) {
	f := newFixture(t, "2024-06-01 20:27")
	tbl := f.table("Patio", 4, "100")
	d := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "D",
	})
	// ends 20:30, outside the window
	f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "21:00", Guest: "later",
	})

	ch := &countingChannel{}
	uc := NewSweepDueSoon(f.repo, notify.NewFanout(ch), quietLogger(), f.clock)
	in := SweepDueSoonInput{WindowMinutes: 5, GraceMinutes: 10}

	first, err := uc.Execute(f.ctx, in)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if first.Notified != 1 || len(ch.sent) != 1 {
		t.Fatalf("expected exactly one alert, got %+v sent=%d", first, len(ch.sent))
	}
	alert := ch.sent[0]
	if alert.ReservationID != d.ID || alert.TableName != "Patio" || alert.MinutesRemaining != 3 {
		t.Fatalf("unexpected alert %+v", alert)
	}

	res, _ := f.repo.GetReservation(f.ctx, d.ID)
	if res.NotifiedAt == nil || !res.NotifiedAt.Equal(f.now) {
		t.Fatalf("expected notified_at set, got %v", res.NotifiedAt)
	}

	second, err := uc.Execute(f.ctx, in)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if second.Notified != 0 || len(ch.sent) != 1 {
		t.Fatalf("second sweep must send nothing, got %+v sent=%d", second, len(ch.sent))
	}
}

func TestSweepDueSoonRetriesFailures(t *testing.T) {
	f := newFixture(t, "2024-06-01 20:27")
	tbl := f.table("T1", 4, "100")
	d := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "D",
	})

	ch := &countingChannel{fail: true}
	uc := NewSweepDueSoon(f.repo, notify.NewFanout(ch), quietLogger(), f.clock)
	in := SweepDueSoonInput{WindowMinutes: 5, GraceMinutes: 10}

	out, err := uc.Execute(f.ctx, in)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if out.Failed != 1 || out.Notified != 0 {
		t.Fatalf("expected failed delivery, got %+v", out)
	}
	if res, _ := f.repo.GetReservation(f.ctx, d.ID); res.NotifiedAt != nil {
		t.Fatalf("failed delivery must leave notified_at unset")
	}

	ch.fail = false
	f.now = f.now.Add(time.Minute)
	out, _ = uc.Execute(f.ctx, in)
	if out.Notified != 1 || ch.tries != 2 {
		t.Fatalf("expected retry to succeed, got %+v tries=%d", out, ch.tries)
	}
}

func TestSweepDueSoonGraceAndNoChannel(t *testing.T) {
	f := newFixture(t, "2024-06-01 20:38")
	tbl := f.table("T1", 4, "100")
	// ended 8 minutes ago, inside grace
	missed := f.mustCreate(CreateReservationInput{
		TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "M",
	})
	// ended 20 minutes ago, outside grace
	other := f.table("T2", 4, "100")
	f.mustCreate(CreateReservationInput{
		TableID: &other.ID, Date: "2024-06-01", StartTime: "19:30", DurationMinutes: ptr(48), Guest: "old",
	})

	out, err := NewSweepDueSoon(f.repo, notify.NewFanout(), quietLogger(), f.clock).Execute(f.ctx, SweepDueSoonInput{WindowMinutes: 5, GraceMinutes: 10})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if out.Candidates != 1 || out.Notified != 1 {
		t.Fatalf("expected the missed reservation to be marked, got %+v", out)
	}
	if res, _ := f.repo.GetReservation(f.ctx, missed.ID); res.NotifiedAt == nil {
		t.Fatalf("no channel configured should still mark")
	}
}

// ======================================================
// QUERIES & EVENTS
// ======================================================

func TestTableStatusShowsNextReservation(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:30")
	t1 := f.table("T1", 4, "100")
	t2 := f.table("T2", 2, "100")

	f.mustCreate(CreateReservationInput{TableID: &t1.ID, Date: "2024-06-01", StartTime: "18:00", DurationMinutes: ptr(60), Guest: "done"})
	next := f.mustCreate(CreateReservationInput{TableID: &t1.ID, Date: "2024-06-01", StartTime: "20:00", Guest: "next"})

	list, err := NewGetTableStatus(f.repo, testTZ, f.clock).Execute(f.ctx, "2024-06-01")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected every table, got %d", len(list))
	}
	if list[0].Table.ID != t1.ID || list[0].Reservation == nil || list[0].Reservation.ID != next.ID {
		t.Fatalf("expected next reservation on T1, got %+v", list[0])
	}
	if list[1].Table.ID != t2.ID || list[1].Reservation != nil {
		t.Fatalf("expected T2 idle, got %+v", list[1])
	}

	_, err = NewGetTableStatus(f.repo, testTZ, f.clock).Execute(f.ctx, "June 1")
	assertKind(t, err, httperr.KindValidation, "invalid_date")
}

func TestListArchivePaging(t *testing.T) {
	f := newFixture(t, "2024-06-02 12:00")
	tbl := f.table("T1", 4, "100")
	for _, hhmm := range []string{"10:00", "12:00", "14:00"} {
		f.mustCreate(CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: hhmm, DurationMinutes: ptr(60), Guest: "x"})
	}
	if _, err := NewExpireReservations(f.repo, nil, quietLogger(), f.clock, 0).Execute(f.ctx); err != nil {
		t.Fatalf("expire: %v", err)
	}

	out, err := NewListArchive(f.repo, testTZ).Execute(f.ctx, ListArchiveInput{Page: 2, Limit: 2, From: "2024-06-02", To: "2024-06-02"})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if out.Total != 3 || len(out.Items) != 1 {
		t.Fatalf("expected page 2 of 3 rows, got total=%d items=%d", out.Total, len(out.Items))
	}

	_, err = NewListArchive(f.repo, testTZ).Execute(f.ctx, ListArchiveInput{From: "2024-06-03", To: "2024-06-01"})
	assertKind(t, err, httperr.KindValidation, "invalid_date")

	_, err = NewListArchive(f.repo, testTZ).Execute(f.ctx, ListArchiveInput{Page: 1<<58 + 1, Limit: 50})
	assertKind(t, err, httperr.KindValidation, "invalid_page")

	last, err := NewListArchive(f.repo, testTZ).Execute(f.ctx, ListArchiveInput{Page: MaxArchivePage, Limit: 200})
	if err != nil || len(last.Items) != 0 || last.Total != 3 {
		t.Fatalf("expected empty far page, got %+v %v", last, err)
	}
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, ev.Type)
	return nil
}

func TestLifecycleEmitsEvents(t *testing.T) {
	f := newFixture(t, "2024-06-01 19:00")
	tbl := f.table("T1", 4, "100")
	pub := &recordingPublisher{}
	ev := events.NewDispatcher(pub, quietLogger(), 10)

	create := NewCreateReservation(f.repo, ev, testTZ)
	a, err := create.Execute(f.ctx, CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "19:00", Guest: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := create.Execute(f.ctx, CreateReservationInput{TableID: &tbl.ID, Date: "2024-06-01", StartTime: "21:00", Guest: "B"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := NewStartReservation(f.repo, ev, f.clock).Execute(f.ctx, StartReservationInput{ReservationID: a.ID}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := NewCancelReservation(f.repo, ev, f.clock).Execute(f.ctx, CancelReservationInput{ReservationID: b.ID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	ev.Close()

	want := []string{events.ReservationCreated, events.ReservationCreated, events.ReservationStarted, events.ReservationCancelled}
	if len(pub.types) != len(want) {
		t.Fatalf("expected %v, got %v", want, pub.types)
	}
	for i := range want {
		if pub.types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, pub.types)
		}
	}
}
