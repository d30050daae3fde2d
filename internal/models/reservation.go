package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationOccupied  ReservationStatus = "occupied"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// IsActive reports whether a reservation with this status takes part in
// conflict detection.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationReserved || s == ReservationOccupied
}

type Reservation struct {
	ID uint `gorm:"primaryKey" json:"id"`

	TableID uint  `gorm:"not null;index:idx_reservations_table_window,priority:1" json:"table_id"`
	Table   Table `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`

	Date            time.Time  `gorm:"type:date;not null;index" json:"date"`
	StartTime       time.Time  `gorm:"not null;index:idx_reservations_table_window,priority:2" json:"start"`
	EndTime         *time.Time `json:"end"`
	DurationMinutes int        `gorm:"not null;default:90" json:"duration_minutes"`
	PartySize       int        `json:"party_size"`
	Guest           string     `gorm:"size:100" json:"guest"`

	Status     ReservationStatus `gorm:"size:20;not null;default:'reserved';index" json:"status"`
	TotalPrice decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0" json:"total_price"`
	NotifiedAt *time.Time        `gorm:"index" json:"notified_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
