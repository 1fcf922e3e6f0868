// Package store persists registration records. Implementations share one
// error contract: ErrNotFound (wrapping the sentinel) when an id is absent,
// wrapped infrastructure errors otherwise. IDs are sequential and never
// reused, and All returns records in insertion order.
package store

import (
	"context"
	"fmt"

	"rollcall/internal/registration/models"
	"rollcall/pkg/platform/sentinel"
)

// RecordStore is interface-driven so the service layer can run against the
// in-memory, postgres, or redis implementation without rewiring.
type RecordStore interface {
	// Insert assigns a fresh id, stamps CreatedAt and CreatedBy, and appends
	// the record.
	Insert(ctx context.Context, sub models.Submission, createdBy string) (*models.Record, error)
	Get(ctx context.Context, id int64) (*models.Record, error)
	// Update merges the partial update over the stored record, preserving id
	// and creation metadata.
	Update(ctx context.Context, id int64, upd models.Update) (*models.Record, error)
	// Delete reports whether a record existed. Deleting an absent id is not
	// an error.
	Delete(ctx context.Context, id int64) (bool, error)
	All(ctx context.Context) ([]*models.Record, error)
}

func notFound(id int64) error {
	return fmt.Errorf("record %d: %w", id, sentinel.ErrNotFound)
}
