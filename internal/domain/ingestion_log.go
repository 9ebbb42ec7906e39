package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionRun is the persisted summary of one completed upload.
type IngestionRun struct {
	ID           uuid.UUID  `json:"id"`
	Kind         EntityKind `json:"kind"`
	FileName     string     `json:"file_name"`
	TotalRows    int        `json:"total_rows"`
	Inserted     int        `json:"inserted"`
	Duplicates   int        `json:"duplicates"`
	Errors       int        `json:"errors"`
	ErrorDetails []string   `json:"error_details"`
	CreatedAt    time.Time  `json:"created_at"`
}
