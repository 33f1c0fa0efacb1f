package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID
	Name      string
	Style     string
	UPC       int64 // unique external code
	MinOnHand int
	BatchSize int // units produced per production run
	CreatedAt time.Time
	UpdatedAt time.Time
}
