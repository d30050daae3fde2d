package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableReserved  TableStatus = "reserved"
	TableOccupied  TableStatus = "occupied"
)

type Table struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:100;not null" json:"name"`
	Seats int    `gorm:"not null;index" json:"seats"`

	Status TableStatus `gorm:"size:20;not null;default:'available'" json:"status"`
	Guest  string      `gorm:"size:100" json:"guest"`

	PricePerHour  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price_per_hour"`
	OccupiedUntil *time.Time      `json:"occupied_until"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
