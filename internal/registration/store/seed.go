package store

import (
	"context"

	"rollcall/internal/registration/models"
)

// SeedDemo inserts a handful of records for local development so search and
// duplicate checks have something to chew on. Never used in production wiring.
func SeedDemo(ctx context.Context, s RecordStore) error {
	subs := []models.Submission{
		{FullName: "Test User", Phone: "034 00 00 00"},
		{FullName: "Jean Paul Dupont", Phone: "032 11 22 33"},
	}
	for _, sub := range subs {
		if _, err := s.Insert(ctx, sub, models.UnverifiedPrincipal); err != nil {
			return err
		}
	}
	return nil
}
