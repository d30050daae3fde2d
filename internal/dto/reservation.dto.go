package dto

import (
	"time"

	domain "github.com/BruksfildServices01/table-reservations/internal/domain/reservation"
	"github.com/BruksfildServices01/table-reservations/internal/models"
)

// Money fields are strings with two decimals so clients never see floats.

type ReservationDTO struct {
	ID              uint       `json:"id"`
	TableID         uint       `json:"table_id"`
	Date            string     `json:"date"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	DurationMinutes int        `json:"duration_minutes"`
	PartySize       int        `json:"party_size"`
	Guest           string     `json:"guest"`
	Status          string     `json:"status"`
	TotalPrice      string     `json:"total_price"`
	NotifiedAt      *time.Time `json:"notified_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

func Reservation(r *models.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:              r.ID,
		TableID:         r.TableID,
		Date:            r.Date.Format("2006-01-02"),
		Start:           r.StartTime,
		End:             domain.EffectiveEnd(r),
		DurationMinutes: domain.ResolveDuration(r),
		PartySize:       r.PartySize,
		Guest:           r.Guest,
		Status:          string(r.Status),
		TotalPrice:      r.TotalPrice.StringFixed(2),
		NotifiedAt:      r.NotifiedAt,
		CreatedAt:       r.CreatedAt,
	}
}

func Reservations(list []models.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, 0, len(list))
	for i := range list {
		out = append(out, Reservation(&list[i]))
	}
	return out
}

type TableDTO struct {
	ID            uint       `json:"id"`
	Name          string     `json:"name"`
	Seats         int        `json:"seats"`
	Status        string     `json:"status"`
	Guest         string     `json:"guest"`
	PricePerHour  string     `json:"price_per_hour"`
	OccupiedUntil *time.Time `json:"occupied_until"`
}

func Table(t *models.Table) TableDTO {
	return TableDTO{
		ID:            t.ID,
		Name:          t.Name,
		Seats:         t.Seats,
		Status:        string(t.Status),
		Guest:         t.Guest,
		PricePerHour:  t.PricePerHour.StringFixed(2),
		OccupiedUntil: t.OccupiedUntil,
	}
}

func Tables(list []models.Table) []TableDTO {
	out := make([]TableDTO, 0, len(list))
	for i := range list {
		out = append(out, Table(&list[i]))
	}
	return out
}

type TableStatusDTO struct {
	TableDTO
	Reservation *ReservationDTO `json:"reservation"`
}

type ArchiveDTO struct {
	ID              uint       `json:"id"`
	ReservationID   uint       `json:"reservation_id"`
	TableID         uint       `json:"table_id"`
	Date            string     `json:"date"`
	Start           time.Time  `json:"start"`
	End             *time.Time `json:"end"`
	DurationMinutes int        `json:"duration_minutes"`
	PartySize       int        `json:"party_size"`
	Guest           string     `json:"guest"`
	Status          string     `json:"status"`
	TotalPrice      string     `json:"total_price"`
	Reason          string     `json:"reason"`
	DeletedAt       time.Time  `json:"deleted_at"`
	DeletedBy       string     `json:"deleted_by"`
	DeletionNote    *string    `json:"deletion_note"`
}

func Archive(list []models.ReservationArchive) []ArchiveDTO {
	out := make([]ArchiveDTO, 0, len(list))
	for _, a := range list {
		out = append(out, ArchiveDTO{
			ID:              a.ID,
			ReservationID:   a.ReservationID,
			TableID:         a.TableID,
			Date:            a.Date.Format("2006-01-02"),
			Start:           a.StartTime,
			End:             a.EndTime,
			DurationMinutes: a.DurationMinutes,
			PartySize:       a.PartySize,
			Guest:           a.Guest,
			Status:          string(a.Status),
			TotalPrice:      a.TotalPrice.StringFixed(2),
			Reason:          string(a.Reason),
			DeletedAt:       a.DeletedAt,
			DeletedBy:       a.DeletedBy,
			DeletionNote:    a.DeletionNote,
		})
	}
	return out
}
