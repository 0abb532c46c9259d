package entity

import (
	"time"

	"github.com/google/uuid"
)

// Transaction represents one analyzed money movement from a document.
type Transaction struct {
	ID          uuid.UUID `json:"id"`
	DocumentID  uuid.UUID `json:"document_id"`
	TxDate      time.Time `json:"tx_date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}
