package domain

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID        uuid.UUID
	Name      string
	APIKey    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
