package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationSuccess = "success"
	NotificationError   = "error"
	NotificationInfo    = "info"
)

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Message   string
	Type      string
	Read      bool
	CreatedAt time.Time
}
