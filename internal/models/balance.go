package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EntryTypePurchase   = "purchase"
	EntryTypeGeneration = "generation"
	EntryTypeRefund     = "refund"
	EntryTypeBonus      = "bonus"
	EntryTypeReferral   = "referral"
)

type Balance struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Current   int64
	ExpiresAt *time.Time // nil if credits never expire
}

// LedgerEntry is an append-only record of a single balance mutation.
// Amount is signed: positive entries credit the balance, negative entries debit it.
type LedgerEntry struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      int64
	Type        string
	ReferenceID *uuid.UUID // task id for generation debits and refunds
	Description string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}
