package models

import (
	"github.com/shopspring/decimal"
)

// Plan is a purchasable credit bundle. Prices are BRL.
type Plan struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Credits     int64
	ValidDays   int
	IsPopular   bool
}
